// Package scan lists loadable files under the configured model and IR
// directories for the control surface's file browser.
package scan

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"ampd/internal/common/fsutil"
	"ampd/pkg/types"
)

// Kind values reported in FileEntry.Kind.
const (
	KindModel = "model"
	KindIR    = "ir"
)

var (
	modelExts = []string{".nam", ".json", ".aidax"}
	irExts    = []string{".wav"}
)

// Models scans dir for neural model files (.nam, .json, .aidax).
func Models(dir string) ([]types.FileEntry, error) {
	return scanDir(dir, KindModel, modelExts)
}

// IRs scans dir for impulse response files (.wav).
func IRs(dir string) ([]types.FileEntry, error) {
	return scanDir(dir, KindIR, irExts)
}

// All scans the model and IR directories and merges the results. An empty
// directory path is skipped, not an error; a missing configured directory is.
func All(modelsDir, irsDir string) ([]types.FileEntry, error) {
	var out []types.FileEntry
	if modelsDir != "" {
		entries, err := Models(modelsDir)
		if err != nil {
			return nil, err
		}
		out = append(out, entries...)
	}
	if irsDir != "" {
		entries, err := IRs(irsDir)
		if err != nil {
			return nil, err
		}
		out = append(out, entries...)
	}
	return out, nil
}

func scanDir(dir, kind string, exts []string) ([]types.FileEntry, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var out []types.FileEntry
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !fsutil.HasExt(name, exts...) {
			continue
		}
		out = append(out, types.FileEntry{
			Name: name,
			Path: filepath.Join(abs, name),
			Kind: kind,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
