package engine

import (
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"ampd/pkg/types"
)

const testBlock = 64

func newTestEngine(t *testing.T) (*Engine, *MemoryNotifier) {
	t.Helper()
	mn := NewMemoryNotifier()
	e := New(Config{
		SampleRate: 48000,
		BlockSize:  testBlock,
		Blend:      0.5,
		Mix:        0.5,
		Notifier:   mn,
	})
	t.Cleanup(e.Close)
	return e, mn
}

// waitIdle spins until the worker has drained the armed request and raised
// the completion flag for the next block.
func waitIdle(t *testing.T, e *Engine) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for e.Busy() || !e.notifyFlag.Load() {
		if time.Now().After(deadline) {
			t.Fatal("engine stayed busy")
		}
		time.Sleep(time.Millisecond)
	}
}

func writeLinearNAM(t *testing.T, gain float64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.nam")
	body := `{"version":"0.5.2","architecture":"Linear","config":{"receptive_field":1,"bias":false},"weights":[` +
		formatFloat(gain) + `]}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeDenseRTN(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.json")
	body := `{"in_shape":[null,1,1],"layers":[{"type":"dense","shape":[null,1,1],"weights":[[[1.0]],[0.0]]},{"type":"activation","activation":"tanh"}]}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeImpulseWAV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cab.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	enc := wav.NewEncoder(f, 48000, 16, 1, 1)
	data := make([]int, 64)
	data[0] = 1 << 14 // 0.5 full scale impulse
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: 48000},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func pushSet(t *testing.T, e *Engine, id types.ResourceID, path string) {
	t.Helper()
	if err := e.PushEvent(ControlEvent{Op: OpSet, ID: id, Path: path}); err != nil {
		t.Fatalf("push set %s: %v", id, err)
	}
}

func runBlock(e *Engine) []float64 {
	in := make([]float64, testBlock)
	out := make([]float64, testBlock)
	e.ProcessBlock(in, out)
	return out
}

func TestPassthroughAllSentinel(t *testing.T) {
	e, _ := newTestEngine(t)
	out := runBlock(e)
	for i, v := range out {
		if v != 0 {
			t.Fatalf("silence in must be silence out, sample %d = %v", i, v)
		}
	}
	if e.Blocks() != 1 {
		t.Fatalf("expected 1 block processed, got %d", e.Blocks())
	}
	for _, rs := range e.Resources() {
		if rs.Path != types.Sentinel || rs.Active {
			t.Fatalf("fresh engine resource %s not sentinel/inactive: %+v", rs.ID, rs)
		}
	}
}

func TestLoadModelAndNotifyPass(t *testing.T) {
	e, mn := newTestEngine(t)
	path := writeLinearNAM(t, 2.0)

	pushSet(t, e, types.ModelA, path)
	runBlock(e)
	waitIdle(t, e)
	runBlock(e) // notify pass lands here

	sent := mn.Sent()
	if len(sent) != 6 {
		t.Fatalf("expected 6 notifications, got %d: %+v", len(sent), sent)
	}
	// absent models first, loaded models after, both IRs last
	wantOrder := []types.ResourceID{
		types.ModelB, types.AltModelA, types.AltModelB,
		types.ModelA, types.IRA, types.IRB,
	}
	for i, id := range wantOrder {
		if sent[i].ID != id {
			t.Fatalf("notification %d: expected %s got %s", i, id, sent[i].ID)
		}
	}
	if sent[3].Path != path || !sent[3].Active {
		t.Fatalf("model A notification wrong: %+v", sent[3])
	}

	var got types.ResourceState
	for _, rs := range e.Resources() {
		if rs.ID == types.ModelA {
			got = rs
		}
	}
	if got.Path != path || !got.Active {
		t.Fatalf("model A not active after drain: %+v", got)
	}
}

func TestSetWhileBusyUpdatesPathOnly(t *testing.T) {
	e, _ := newTestEngine(t)

	// arm a request by hand so the busy window is deterministic
	e.busy.Store(true)
	pushSet(t, e, types.ModelA, "/some/late.nam")
	runBlock(e)

	if e.dropped.Load() != 1 {
		t.Fatalf("expected 1 dropped request, got %d", e.dropped.Load())
	}
	if p := e.reg.path(types.ModelA); p != "/some/late.nam" {
		t.Fatalf("path must still update while busy, got %q", p)
	}
	e.busy.Store(false)
}

func TestFamilyMutualExclusion(t *testing.T) {
	e, _ := newTestEngine(t)
	namPath := writeLinearNAM(t, 1.0)
	rtnPath := writeDenseRTN(t)

	pushSet(t, e, types.ModelA, namPath)
	runBlock(e)
	waitIdle(t, e)
	runBlock(e)

	pushSet(t, e, types.AltModelA, rtnPath)
	runBlock(e)
	waitIdle(t, e)
	runBlock(e)

	states := map[types.ResourceID]types.ResourceState{}
	for _, rs := range e.Resources() {
		states[rs.ID] = rs
	}
	if rs := states[types.AltModelA]; rs.Path != rtnPath || !rs.Active {
		t.Fatalf("alt model A should be active: %+v", rs)
	}
	if rs := states[types.ModelA]; rs.Path != types.Sentinel || rs.Active {
		t.Fatalf("primary model A must be torn down when alt loads: %+v", rs)
	}
}

func TestBadModelRevertsToSentinel(t *testing.T) {
	e, _ := newTestEngine(t)
	pushSet(t, e, types.ModelA, "/no/such/model.nam")
	runBlock(e)
	waitIdle(t, e)

	for _, rs := range e.Resources() {
		if rs.ID == types.ModelA && (rs.Path != types.Sentinel || rs.Active) {
			t.Fatalf("failed load must revert to sentinel: %+v", rs)
		}
	}
}

func TestBadIRRevertsToSentinel(t *testing.T) {
	e, _ := newTestEngine(t)
	pushSet(t, e, types.IRA, "/no/such/cab.wav")
	runBlock(e)
	waitIdle(t, e)

	for _, rs := range e.Resources() {
		if rs.ID == types.IRA && (rs.Path != types.Sentinel || rs.Active) {
			t.Fatalf("failed IR must revert to sentinel: %+v", rs)
		}
	}
}

func TestIRLoadAndTeardown(t *testing.T) {
	e, _ := newTestEngine(t)
	irPath := writeImpulseWAV(t)

	pushSet(t, e, types.IRA, irPath)
	runBlock(e)
	waitIdle(t, e)
	runBlock(e)

	active := false
	for _, rs := range e.Resources() {
		if rs.ID == types.IRA {
			active = rs.Active
		}
	}
	if !active {
		t.Fatal("IR A should be runnable after drain")
	}

	pushSet(t, e, types.IRA, types.Sentinel)
	runBlock(e)
	waitIdle(t, e)
	runBlock(e)

	for _, rs := range e.Resources() {
		if rs.ID == types.IRA && (rs.Path != types.Sentinel || rs.Active) {
			t.Fatalf("sentinel must tear the convolver down: %+v", rs)
		}
	}
}

// impulsePeak feeds a unit impulse followed by silence and returns the
// largest output magnitude seen across the following blocks, covering the
// partitioned convolver's block of latency.
func impulsePeak(e *Engine) float64 {
	in := make([]float64, testBlock)
	out := make([]float64, testBlock)
	in[0] = 1.0
	peak := 0.0
	for b := 0; b < 8; b++ {
		e.ProcessBlock(in, out)
		for _, v := range out {
			if a := math.Abs(v); a > peak {
				peak = a
			}
		}
		in[0] = 0
	}
	return peak
}

func TestBusyBlockSkipsConvolution(t *testing.T) {
	e, _ := newTestEngine(t)
	pushSet(t, e, types.IRA, writeImpulseWAV(t))
	runBlock(e)
	waitIdle(t, e)
	runBlock(e)

	// the IR kernel is a half-scale impulse, so a unit impulse comes out
	// near 0.5 while the convolver runs
	if peak := impulsePeak(e); peak < 0.4 || peak > 0.6 {
		t.Fatalf("running convolver should scale the impulse to ~0.5, peak=%v", peak)
	}

	// with a request in flight the IR stage must be skipped, not stalled:
	// the block still completes and carries the dry (DC-blocked) signal
	e.busy.Store(true)
	before := e.Blocks()
	if peak := impulsePeak(e); peak < 0.9 {
		t.Fatalf("busy block must pass the dry signal through, peak=%v", peak)
	}
	if e.Blocks() != before+8 {
		t.Fatalf("busy blocks must still complete, got %d of 8", e.Blocks()-before)
	}

	// once the worker is free again the convolver picks back up
	e.busy.Store(false)
	if peak := impulsePeak(e); peak < 0.4 || peak > 0.6 {
		t.Fatalf("convolution should resume after busy clears, peak=%v", peak)
	}
}

func TestRestoreIdempotentAcrossDrains(t *testing.T) {
	e, _ := newTestEngine(t)
	store := MemoryStore{
		string(types.ModelA): writeLinearNAM(t, 1.5),
		string(types.IRA):    writeImpulseWAV(t),
	}

	restore := func() []types.ResourceState {
		t.Helper()
		if err := e.RestoreFrom(store); err != nil {
			t.Fatal(err)
		}
		runBlock(e)
		waitIdle(t, e)
		runBlock(e)
		return e.Resources()
	}

	first := restore()
	second := restore()
	if len(first) != len(second) {
		t.Fatalf("snapshot lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("resource %s changed on second reload: %+v vs %+v",
				first[i].ID, first[i], second[i])
		}
	}
	if rs := second[0]; rs.Path != store[string(types.ModelA)] || !rs.Active {
		t.Fatalf("model A not active after reload: %+v", rs)
	}
}

func TestSaveRestoreRoundTrip(t *testing.T) {
	e, _ := newTestEngine(t)
	path := writeLinearNAM(t, 1.5)
	pushSet(t, e, types.ModelA, path)
	runBlock(e)
	waitIdle(t, e)

	store := MemoryStore{}
	if err := e.SaveTo(store); err != nil {
		t.Fatal(err)
	}
	if store[string(types.ModelA)] != path {
		t.Fatalf("saved path mismatch: %q", store[string(types.ModelA)])
	}
	if store[string(types.IRB)] != types.Sentinel {
		t.Fatalf("unset resources must persist the sentinel, got %q", store[string(types.IRB)])
	}

	e2, _ := newTestEngine(t)
	if err := e2.RestoreFrom(store); err != nil {
		t.Fatal(err)
	}
	// restore again before any block: last write wins, no queue to overflow
	if err := e2.RestoreFrom(store); err != nil {
		t.Fatal(err)
	}
	runBlock(e2)
	waitIdle(t, e2)
	runBlock(e2)

	for _, rs := range e2.Resources() {
		if rs.ID == types.ModelA && (rs.Path != path || !rs.Active) {
			t.Fatalf("restore did not reload model A: %+v", rs)
		}
	}
}

func TestPushEventBackpressure(t *testing.T) {
	e, _ := newTestEngine(t)
	var err error
	for i := 0; i < defaultEventQueue+1; i++ {
		err = e.PushEvent(ControlEvent{Op: OpGet})
		if err != nil {
			break
		}
	}
	if !IsTooBusy(err) {
		t.Fatalf("expected queue-full rejection, got %v", err)
	}
}

func TestPushEventValidation(t *testing.T) {
	e, _ := newTestEngine(t)
	err := e.PushEvent(ControlEvent{Op: OpSet, ID: "tape_echo", Path: "/x"})
	if !IsUnknownResource(err) {
		t.Fatalf("expected unknown-resource error, got %v", err)
	}
}

func TestPushEventAfterClose(t *testing.T) {
	mn := NewMemoryNotifier()
	e := New(Config{BlockSize: testBlock, Notifier: mn})
	e.Close()
	if err := e.PushEvent(ControlEvent{Op: OpGet}); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := e.RestoreFrom(MemoryStore{}); err != ErrClosed {
		t.Fatalf("expected ErrClosed from restore, got %v", err)
	}
}

func TestGetEventNotifiesPresentOnly(t *testing.T) {
	e, mn := newTestEngine(t)
	path := writeLinearNAM(t, 1.0)
	pushSet(t, e, types.ModelB, path)
	runBlock(e)
	waitIdle(t, e)
	runBlock(e)
	mn.Reset()

	if err := e.PushEvent(ControlEvent{Op: OpGet}); err != nil {
		t.Fatal(err)
	}
	runBlock(e)

	sent := mn.Sent()
	if len(sent) != 1 || sent[0].ID != types.ModelB {
		t.Fatalf("query must report present resources only, got %+v", sent)
	}
}

func TestBlendMixClamped(t *testing.T) {
	e, _ := newTestEngine(t)
	e.SetBlend(1.7)
	e.SetMix(-0.3)
	if e.Blend() != 1 || e.Mix() != 0 {
		t.Fatalf("controls must clamp to 0..1, got blend=%v mix=%v", e.Blend(), e.Mix())
	}
}

func TestLongBlockChunking(t *testing.T) {
	e, _ := newTestEngine(t)
	in := make([]float64, testBlock*3+7)
	out := make([]float64, len(in))
	e.ProcessBlock(in, out)
	if e.Blocks() != 4 {
		t.Fatalf("expected 4 chunks, got %d", e.Blocks())
	}
	for i, v := range out {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("non-finite output at %d", i)
		}
	}
}
