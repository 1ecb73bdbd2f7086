package preset

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOpenMissingStartsEmpty(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "default.json"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, ok := s.Get("model_a"); ok {
		t.Fatal("fresh store must be empty")
	}
}

func TestSetFlushOpenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rig.json")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Set("model_a", "/models/twin.nam"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set("ir_a", "None"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if v, ok := s2.Get("model_a"); !ok || v != "/models/twin.nam" {
		t.Fatalf("model_a round trip failed: %q %v", v, ok)
	}
	if v, ok := s2.Get("ir_a"); !ok || v != "None" {
		t.Fatalf("sentinel must persist verbatim: %q %v", v, ok)
	}
}

func TestFlushCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deep", "rig.json")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("preset file missing: %v", err)
	}
}

func TestFlushLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "rig.json"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "rig.json" {
		t.Fatalf("unexpected leftovers: %v", entries)
	}
}

func TestOpenRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestListPresets(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"clean.json", "lead.json", "readme.txt"} {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	names, err := List(dir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("expected 2 presets, got %v", names)
	}

	names, err = List(filepath.Join(dir, "missing"))
	if err != nil || names != nil {
		t.Fatalf("missing dir must list empty, got %v %v", names, err)
	}
}
