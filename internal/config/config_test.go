package config

import (
	"reflect"
	"testing"
)

func TestParseDepth(t *testing.T) {
	for _, n := range []int{2, 3} {
		d, err := ParseDepth(n)
		if err != nil {
			t.Fatalf("ParseDepth(%d) returned error: %v", n, err)
		}
		if int(d) != n {
			t.Fatalf("ParseDepth(%d) = %d", n, d)
		}
	}
	for _, n := range []int{0, 1, 4, -1} {
		if _, err := ParseDepth(n); err == nil {
			t.Errorf("ParseDepth(%d) should fail", n)
		}
	}
}

func TestParseExtensions(t *testing.T) {
	got := ParseExtensions(" .MP4, webm,,.Mkv ")
	want := []string{"mp4", "webm", "mkv"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseExtensions = %v; want %v", got, want)
	}
	if got := ParseExtensions(""); len(got) != 0 {
		t.Fatalf("expected no extensions, got %v", got)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	bad := cfg
	bad.Depth = 5
	if err := bad.Validate(); err == nil {
		t.Error("expected depth error")
	}

	bad = cfg
	bad.ListenAddr = " "
	if err := bad.Validate(); err == nil {
		t.Error("expected listen address error")
	}

	bad = cfg
	bad.VideoExtensions = nil
	if err := bad.Validate(); err == nil {
		t.Error("expected extension list error")
	}
}

func TestDefaultCopiesExtensionLists(t *testing.T) {
	cfg := Default()
	cfg.VideoExtensions[0] = "xyz"
	if DefaultVideoExtensions[0] != "mp4" {
		t.Fatal("Default must not alias the package level allow-list")
	}
}
