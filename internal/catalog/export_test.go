package catalog

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jdefrancesco/vidshelf/internal/config"
)

func exportFixture() *Catalog {
	return Group(pairs(
		"root/Math/Algebra/lec1.mp4",
		"root/Math/Algebra/lec1.pdf",
		"root/Physics/Mechanics/Kinematics/lec1.mov",
	), Options{Depth: config.Depth3})
}

func TestWriteJSON(t *testing.T) {
	out := filepath.Join(t.TempDir(), "catalog.json")
	if err := exportFixture().WriteJSON(out); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	var summary exportSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if summary.Root != "root" || summary.Depth != 3 {
		t.Errorf("root/depth = %q/%d", summary.Root, summary.Depth)
	}
	if summary.Subjects != 2 || summary.EntryCount != 2 {
		t.Fatalf("counts = %d subjects, %d entries", summary.Subjects, summary.EntryCount)
	}

	first := summary.Entries[0]
	if first.Subject != "Math" || first.Chapter != "Algebra" || first.Branch != "" {
		t.Errorf("first entry = %+v", first)
	}
	if len(first.Companions) != 1 || first.Companions[0] != "root/Math/Algebra/lec1.pdf" {
		t.Errorf("companions = %v", first.Companions)
	}
	second := summary.Entries[1]
	if second.Branch != "Mechanics" || second.Chapter != "Kinematics" {
		t.Errorf("second entry = %+v", second)
	}
}

func TestWriteCSV(t *testing.T) {
	out := filepath.Join(t.TempDir(), "catalog.csv")
	if err := exportFixture().WriteCSV(out); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d; want header + 2", len(rows))
	}
	if rows[0][0] != "id" || rows[1][1] != "Math" || rows[2][2] != "Mechanics" {
		t.Errorf("unexpected rows: %v", rows)
	}
}

func TestWriteRejectsDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := exportFixture().WriteJSON(dir); err == nil {
		t.Fatal("expected error writing to a directory")
	}
	if err := exportFixture().WriteCSV(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

type failingCloser struct{ err error }

func (f failingCloser) Close() error { return f.err }

func TestCloseOutputReportsError(t *testing.T) {
	diskFull := errors.New("no space left on device")

	var err error
	closeOutput(failingCloser{diskFull}, "out.csv", &err)
	if !errors.Is(err, diskFull) {
		t.Fatalf("err = %v; want close error", err)
	}

	earlier := errors.New("write CSV row")
	err = earlier
	closeOutput(failingCloser{diskFull}, "out.csv", &err)
	if err != earlier {
		t.Fatalf("err = %v; earlier error must win", err)
	}

	err = nil
	closeOutput(failingCloser{}, "out.csv", &err)
	if err != nil {
		t.Fatalf("clean close set err = %v", err)
	}
}
