package catalog

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type exportEntry struct {
	ID         string   `json:"id"`
	Subject    string   `json:"subject"`
	Branch     string   `json:"branch,omitempty"`
	Chapter    string   `json:"chapter"`
	Name       string   `json:"name"`
	Path       string   `json:"path"`
	Size       int64    `json:"size"`
	Companions []string `json:"companions,omitempty"`
}

type exportSummary struct {
	Root       string        `json:"root"`
	Depth      int           `json:"depth"`
	Subjects   int           `json:"subject_count"`
	EntryCount int           `json:"entry_count"`
	Entries    []exportEntry `json:"entries"`
}

// WriteJSON writes every entry of the catalog to a JSON file.
func (c *Catalog) WriteJSON(path string) (err error) {
	summary := c.collectExportSummary()
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	file, err := secureOutputFile(path)
	if err != nil {
		return err
	}
	defer closeOutput(file, path, &err)

	if _, err := file.Write(data); err != nil {
		return fmt.Errorf("write JSON file %s: %w", path, err)
	}
	return nil
}

// WriteCSV writes every entry of the catalog to a CSV file, one row per video.
func (c *Catalog) WriteCSV(path string) (err error) {
	summary := c.collectExportSummary()
	file, err := secureOutputFile(path)
	if err != nil {
		return err
	}
	defer closeOutput(file, path, &err)

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"id", "subject", "branch", "chapter", "name", "path", "size_bytes", "companions"}); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}

	for _, e := range summary.Entries {
		row := []string{
			e.ID, e.Subject, e.Branch, e.Chapter, e.Name, e.Path,
			strconv.FormatInt(e.Size, 10),
			strings.Join(e.Companions, ";"),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush CSV writer: %w", err)
	}
	return nil
}

// closeOutput closes an export file, reporting the close error unless an
// earlier one is already set.
func closeOutput(f io.Closer, path string, err *error) {
	if cerr := f.Close(); cerr != nil && *err == nil {
		*err = fmt.Errorf("close %s: %w", path, cerr)
	}
}

// collectExportSummary flattens the catalog in display order.
func (c *Catalog) collectExportSummary() exportSummary {
	if c == nil {
		return exportSummary{}
	}

	summary := exportSummary{
		Root:     c.Root,
		Depth:    int(c.Depth),
		Subjects: len(c.top.order),
		Entries:  make([]exportEntry, 0, c.EntryCount()),
	}

	c.Walk(func(trail []string, e *Entry) {
		item := exportEntry{
			ID:   e.ID,
			Name: e.Name,
			Path: e.RelPath,
			Size: e.Size(),
		}
		item.Subject = trail[0]
		item.Chapter = trail[len(trail)-1]
		if len(trail) == 3 {
			item.Branch = trail[1]
		}
		for _, comp := range e.Companions {
			item.Companions = append(item.Companions, comp.RelPath)
		}
		summary.Entries = append(summary.Entries, item)
	})
	summary.EntryCount = len(summary.Entries)
	return summary
}

func secureOutputFile(path string) (*os.File, error) {
	if path == "" {
		return nil, errors.New("output path is empty")
	}

	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("resolve output path %s: %w", path, err)
	}

	if info, err := os.Stat(abs); err == nil && info.IsDir() {
		return nil, fmt.Errorf("output path %s is a directory", abs)
	}

	return createInDir(filepath.Dir(abs), filepath.Base(abs))
}
