package engine

import (
	"sync/atomic"

	"ampd/pkg/types"
)

// registry holds the current path for each of the six addressable
// resources as atomically swapped string pointers. Paths start at the
// sentinel and are written by the audio thread (set events, restore) and
// the worker (failure reverts, sibling teardown). Every access is a single
// pointer load or store, so neither thread can ever block the other on a
// path lookup, and external snapshot readers need no lock either.
type registry struct {
	paths [6]atomic.Pointer[string] // indexed by position in types.AllResources
}

func newRegistry() *registry {
	r := &registry{}
	s := types.Sentinel
	for i := range r.paths {
		r.paths[i].Store(&s)
	}
	return r
}

func resourceIndex(id types.ResourceID) int {
	for i, rid := range types.AllResources {
		if rid == id {
			return i
		}
	}
	return -1
}

func (r *registry) path(id types.ResourceID) string {
	if i := resourceIndex(id); i >= 0 {
		return *r.paths[i].Load()
	}
	return types.Sentinel
}

func (r *registry) setPath(id types.ResourceID, p string) {
	if p == "" {
		p = types.Sentinel
	}
	if i := resourceIndex(id); i >= 0 {
		r.paths[i].Store(&p)
	}
}

func (r *registry) present(id types.ResourceID) bool {
	return r.path(id) != types.Sentinel
}

// snapshot returns the six resource states in drain order, with active
// flags resolved through the supplied function.
func (r *registry) snapshot(active func(types.ResourceID) bool) []types.ResourceState {
	out := make([]types.ResourceState, 0, len(types.AllResources))
	for i, id := range types.AllResources {
		out = append(out, types.ResourceState{ID: id, Path: *r.paths[i].Load(), Active: active(id)})
	}
	return out
}
