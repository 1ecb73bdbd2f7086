package engine

import (
	"fmt"
	"sync"
	"testing"

	"ampd/pkg/types"
)

func TestRegistryStartsAtSentinel(t *testing.T) {
	r := newRegistry()
	for _, id := range types.AllResources {
		if got := r.path(id); got != types.Sentinel {
			t.Fatalf("%s: expected sentinel, got %q", id, got)
		}
		if r.present(id) {
			t.Fatalf("%s: fresh entry must not be present", id)
		}
	}
}

func TestRegistryEmptyPathMapsToSentinel(t *testing.T) {
	r := newRegistry()
	r.setPath(types.ModelA, "/m/a.nam")
	if !r.present(types.ModelA) {
		t.Fatal("path not stored")
	}
	r.setPath(types.ModelA, "")
	if r.path(types.ModelA) != types.Sentinel {
		t.Fatalf("empty path must store the sentinel, got %q", r.path(types.ModelA))
	}
}

func TestRegistryIgnoresUnknownIDs(t *testing.T) {
	r := newRegistry()
	r.setPath("chorus", "/x")
	if got := r.path("chorus"); got != types.Sentinel {
		t.Fatalf("unknown id must read as sentinel, got %q", got)
	}
}

// Writers on two goroutines model the audio thread and the worker touching
// the table at the same time; every read must observe one complete value,
// never a torn or stale-forever one.
func TestRegistryConcurrentAccess(t *testing.T) {
	r := newRegistry()
	const iters = 2000
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < iters; i++ {
			r.setPath(types.ModelA, fmt.Sprintf("/a/%d.nam", i))
			_ = r.path(types.ModelB)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < iters; i++ {
			r.setPath(types.ModelB, fmt.Sprintf("/b/%d.nam", i))
			_ = r.snapshot(func(types.ResourceID) bool { return false })
		}
	}()
	wg.Wait()
	if r.path(types.ModelA) != fmt.Sprintf("/a/%d.nam", iters-1) {
		t.Fatalf("final A path wrong: %q", r.path(types.ModelA))
	}
	if r.path(types.ModelB) != fmt.Sprintf("/b/%d.nam", iters-1) {
		t.Fatalf("final B path wrong: %q", r.path(types.ModelB))
	}
}
