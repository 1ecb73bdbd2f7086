package engine

import (
	"fmt"

	"ampd/pkg/types"
)

// Store is the persisted state surface: one string value per resource path,
// sentinel included.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}

// SaveTo serializes the six resource paths verbatim.
func (e *Engine) SaveTo(s Store) error {
	for _, id := range types.AllResources {
		if err := s.Set(string(id), e.reg.path(id)); err != nil {
			return fmt.Errorf("engine: save %s: %w", id, err)
		}
	}
	return nil
}

// RestoreFrom reads back whatever paths the store holds and defers the
// reload: the first subsequent audio block arms a single reload-all
// request off the restore flag. Restore never loads synchronously; it may
// run before the worker or the stream are in steady operation.
func (e *Engine) RestoreFrom(s Store) error {
	if e.closed.Load() {
		return ErrClosed
	}
	for _, id := range types.AllResources {
		if v, ok := s.Get(string(id)); ok {
			e.reg.setPath(id, v)
		}
	}
	e.restoreFlag.Store(true)
	return nil
}

// MemoryStore is an in-memory Store for tests and the preset round trip.
type MemoryStore map[string]string

func (m MemoryStore) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

func (m MemoryStore) Set(key, value string) error {
	m[key] = value
	return nil
}
