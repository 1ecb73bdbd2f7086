// Package preset persists engine resource paths as named JSON presets on
// disk. A preset is a flat map of resource id to file path; the engine's
// Store interface reads and writes it without knowing about files.
package preset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"ampd/internal/common/fsutil"
)

// FileStore is one named preset backed by a JSON file. It satisfies the
// engine's persistence Store on both the save and restore sides.
type FileStore struct {
	path string
	data map[string]string
}

// Open loads the preset file at path, or starts empty when the file does
// not exist yet.
func Open(path string) (*FileStore, error) {
	p, err := fsutil.ExpandHome(path)
	if err != nil {
		return nil, err
	}
	s := &FileStore{path: p, data: map[string]string{}}
	b, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("preset: read %s: %w", p, err)
	}
	if err := json.Unmarshal(b, &s.data); err != nil {
		return nil, fmt.Errorf("preset: parse %s: %w", p, err)
	}
	return s, nil
}

// Get returns the stored value for key.
func (s *FileStore) Get(key string) (string, bool) {
	v, ok := s.data[key]
	return v, ok
}

// Set stores key in memory. Flush writes the file.
func (s *FileStore) Set(key, value string) error {
	s.data[key] = value
	return nil
}

// Flush writes the preset to disk. The write goes through a temp file and
// a rename so a crash never leaves a half-written preset behind.
func (s *FileStore) Flush() error {
	b, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("preset: encode: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("preset: mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".preset-*")
	if err != nil {
		return fmt.Errorf("preset: temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("preset: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("preset: close: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("preset: rename: %w", err)
	}
	return nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

// List returns the preset names (file basenames without extension) found
// under dir. A missing directory lists as empty rather than failing, so a
// fresh install shows no presets instead of an error.
func List(dir string) ([]string, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(base)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("preset: read dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !fsutil.HasExt(e.Name(), ".json") {
			continue
		}
		name := e.Name()
		names = append(names, name[:len(name)-len(filepath.Ext(name))])
	}
	return names, nil
}

// PathFor maps a preset name to its file path under dir.
func PathFor(dir, name string) string {
	return filepath.Join(dir, name+".json")
}
