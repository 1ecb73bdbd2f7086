package main

import (
	"fmt"
	"net/http"

	"ampd/internal/common/fsutil"
	"ampd/internal/engine"
	"ampd/internal/preset"
	"ampd/internal/scan"
	"ampd/pkg/types"
)

// defaultPresetName backs the unnamed preset endpoints.
const defaultPresetName = "default"

// service adapts the engine and its surrounding stores to the HTTP API.
type service struct {
	eng        *engine.Engine
	modelsDir  string
	irsDir     string
	presetsDir string
}

func (s *service) Resources() []types.ResourceState { return s.eng.Resources() }

func (s *service) SetResource(id types.ResourceID, path string) error {
	return s.eng.PushEvent(engine.ControlEvent{Op: engine.OpSet, ID: id, Path: path})
}

func (s *service) Status() types.StatusResponse { return s.eng.Status() }

func (s *service) Ready() bool { return !s.eng.Busy() }

func (s *service) Files() ([]types.FileEntry, error) {
	return scan.All(s.modelsDir, s.irsDir)
}

func (s *service) Presets() ([]string, error) {
	return preset.List(s.presetsDir)
}

func (s *service) SavePreset(name string) error {
	st, err := preset.Open(s.presetPath(name))
	if err != nil {
		return err
	}
	if err := s.eng.SaveTo(st); err != nil {
		return err
	}
	return st.Flush()
}

func (s *service) LoadPreset(name string) error {
	p := s.presetPath(name)
	if !fsutil.PathExists(p) {
		return presetNotFoundError{name: s.presetName(name)}
	}
	st, err := preset.Open(p)
	if err != nil {
		return err
	}
	return s.eng.RestoreFrom(st)
}

func (s *service) presetName(name string) string {
	if name == "" {
		return defaultPresetName
	}
	return name
}

func (s *service) presetPath(name string) string {
	return preset.PathFor(s.presetsDir, s.presetName(name))
}

// presetNotFoundError maps to 404 through the API's HTTPError hook.
type presetNotFoundError struct{ name string }

func (e presetNotFoundError) Error() string {
	return fmt.Sprintf("preset not found: %s", e.name)
}

func (e presetNotFoundError) StatusCode() int { return http.StatusNotFound }
