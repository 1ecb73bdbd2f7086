package engine

import (
	"sync"

	"ampd/pkg/types"
)

// Op discriminates inbound control events.
type Op int

const (
	// OpGet asks for one notification per non-sentinel resource.
	OpGet Op = iota
	// OpSet targets a resource at a new path (or the sentinel to clear it).
	OpSet
)

// ControlEvent is one inbound host event, drained at the top of each block.
type ControlEvent struct {
	Op   Op
	ID   types.ResourceID
	Path string
}

// Notifier receives outbound resource notifications. Implementations must
// be lightweight and non-blocking; Notify is called from the audio path.
type Notifier interface {
	Notify(types.ResourceState)
}

// noopNotifier is the default; it drops notifications.
type noopNotifier struct{}

func (noopNotifier) Notify(types.ResourceState) {}

// MemoryNotifier records notifications in memory for tests.
type MemoryNotifier struct {
	mu   sync.Mutex
	sent []types.ResourceState
}

func NewMemoryNotifier() *MemoryNotifier { return &MemoryNotifier{} }

func (m *MemoryNotifier) Notify(s types.ResourceState) {
	m.mu.Lock()
	m.sent = append(m.sent, s)
	m.mu.Unlock()
}

// Sent returns a copy of all notifications seen so far.
func (m *MemoryNotifier) Sent() []types.ResourceState {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.ResourceState, len(m.sent))
	copy(out, m.sent)
	return out
}

// Reset clears the recorded notifications.
func (m *MemoryNotifier) Reset() {
	m.mu.Lock()
	m.sent = nil
	m.mu.Unlock()
}
