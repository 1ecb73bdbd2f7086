package engine

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
	"github.com/rs/zerolog"

	"ampd/internal/convolver"
	"ampd/internal/neural"
	"ampd/pkg/types"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultSampleRate = 48000.0
	defaultBlockSize  = 512
	defaultEventQueue = 16

	// dcBlockHz is the corner of the shared DC-blocking highpass between
	// the model stage and the IR stage.
	dcBlockHz = 20.0
)

// Config encapsulates all tunables for Engine construction.
type Config struct {
	SampleRate float64
	BlockSize  int
	// Initial control values, 0..1.
	Blend float64
	Mix   float64
	// Scheduling hints handed to the convolvers on start.
	RTPriority int
	RTPolicy   int

	// Logger is optional; nil disables engine logging.
	Logger   *zerolog.Logger
	Notifier Notifier
}

// Engine owns the two model families, the two IR convolvers, the resource
// registry and the background worker. One Engine maps to one audio stream;
// sample rate and maximum block size are fixed for its lifetime.
type Engine struct {
	cfg      Config
	log      zerolog.Logger
	notifier Notifier

	nam   *neural.Engine // primary family
	rtn   *neural.Engine // alt family
	dcb   *biquad.Section
	convA *convolver.Convolver
	convB *convolver.Convolver

	reg *registry

	// cross-thread flags, release/acquire
	busy        atomic.Bool // a request is armed or draining
	notifyFlag  atomic.Bool // worker finished, audio thread owes a notify pass
	restoreFlag atomic.Bool // restore happened, arm reload-all next block

	// pending is written by the audio thread strictly before busy goes
	// true and read by the worker strictly after its wake; the busy flag
	// and wake channel provide the happens-before edges.
	pending loadRequest

	dropped atomic.Uint64 // set events dropped while busy, logged per drain

	blendBits atomic.Uint64
	mixBits   atomic.Uint64
	fadeModel smoother
	fadeIR    smoother

	// audio-thread scratch, sized to BlockSize at construction
	bufA []float64
	bufB []float64
	irA  []float64
	irB  []float64

	events chan ControlEvent

	wake   chan struct{}
	quit   chan struct{}
	wg     sync.WaitGroup
	closed atomic.Bool

	blocks atomic.Uint64 // cycle counter; doubles as the cycle-done signal
}

// New constructs an engine, initializes the DSP collaborators for the
// configured rate and starts the worker. Close must be called to join it.
func New(cfg Config) *Engine {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = defaultSampleRate
	}
	if cfg.BlockSize <= 0 {
		cfg.BlockSize = defaultBlockSize
	}
	if cfg.Notifier == nil {
		cfg.Notifier = noopNotifier{}
	}
	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}

	e := &Engine{
		cfg:      cfg,
		log:      log,
		notifier: cfg.Notifier,
		nam:      neural.NewNAM(),
		rtn:      neural.NewRTNeural(),
		dcb:      biquad.NewSection(design.Highpass(dcBlockHz, 0.707, cfg.SampleRate)),
		convA:    convolver.New(),
		convB:    convolver.New(),
		reg:      newRegistry(),
		bufA:     make([]float64, cfg.BlockSize),
		bufB:     make([]float64, cfg.BlockSize),
		irA:      make([]float64, cfg.BlockSize),
		irB:      make([]float64, cfg.BlockSize),
		events:   make(chan ControlEvent, defaultEventQueue),
		wake:     make(chan struct{}, 1),
		quit:     make(chan struct{}),
	}
	e.nam.Init(cfg.SampleRate)
	e.rtn.Init(cfg.SampleRate)
	for _, c := range []*convolver.Convolver{e.convA, e.convB} {
		c.SetSampleRate(cfg.SampleRate)
		c.SetBufferSize(cfg.BlockSize)
	}
	e.SetBlend(cfg.Blend)
	e.SetMix(cfg.Mix)

	e.wg.Add(1)
	go e.workerLoop()
	return e
}

// Close stops the worker and joins it. The engine must not process blocks
// after Close returns.
func (e *Engine) Close() {
	if !e.closed.CompareAndSwap(false, true) {
		return
	}
	close(e.quit)
	e.wakeWorker()
	e.wg.Wait()
	e.convA.Stop()
	e.convA.Cleanup()
	e.convB.Stop()
	e.convB.Cleanup()
}

// SampleRate returns the fixed engine sample rate.
func (e *Engine) SampleRate() float64 { return e.cfg.SampleRate }

// BlockSize returns the maximum block length per ProcessBlock call.
func (e *Engine) BlockSize() int { return e.cfg.BlockSize }

// SetBlend updates the model cross-fade target (0..1).
func (e *Engine) SetBlend(v float64) { e.blendBits.Store(math.Float64bits(clamp01(v))) }

// SetMix updates the IR cross-fade target (0..1).
func (e *Engine) SetMix(v float64) { e.mixBits.Store(math.Float64bits(clamp01(v))) }

// Blend returns the current model cross-fade target.
func (e *Engine) Blend() float64 { return math.Float64frombits(e.blendBits.Load()) }

// Mix returns the current IR cross-fade target.
func (e *Engine) Mix() float64 { return math.Float64frombits(e.mixBits.Load()) }

// Busy reports whether a load request is armed or draining.
func (e *Engine) Busy() bool { return e.busy.Load() }

// Blocks returns the number of blocks processed since construction.
func (e *Engine) Blocks() uint64 { return e.blocks.Load() }

// PushEvent queues a control event for the next block's drain. It never
// blocks: a full queue returns ErrTooBusy for host-side backpressure.
func (e *Engine) PushEvent(ev ControlEvent) error {
	if e.closed.Load() {
		return ErrClosed
	}
	if ev.Op == OpSet {
		if _, _, ok := ev.ID.Split(); !ok {
			return ErrUnknownResource(ev.ID)
		}
	}
	select {
	case e.events <- ev:
		return nil
	default:
		return ErrTooBusy
	}
}

// Resources returns the six resource states in drain order.
func (e *Engine) Resources() []types.ResourceState {
	return e.reg.snapshot(e.activeFor)
}

// Status summarizes the engine for the control surface.
func (e *Engine) Status() types.StatusResponse {
	return types.StatusResponse{
		SampleRate: e.cfg.SampleRate,
		BlockSize:  e.cfg.BlockSize,
		Busy:       e.busy.Load(),
		Blocks:     e.blocks.Load(),
		Resources:  e.Resources(),
	}
}

// activeFor resolves a resource's active flag from its owning collaborator.
func (e *Engine) activeFor(id types.ResourceID) bool {
	switch id {
	case types.ModelA:
		return e.nam.LoadedA()
	case types.ModelB:
		return e.nam.LoadedB()
	case types.AltModelA:
		return e.rtn.LoadedA()
	case types.AltModelB:
		return e.rtn.LoadedB()
	case types.IRA:
		return e.convA.IsRunnable()
	case types.IRB:
		return e.convB.IsRunnable()
	}
	return false
}

func (e *Engine) stateOf(id types.ResourceID) types.ResourceState {
	return types.ResourceState{ID: id, Path: e.reg.path(id), Active: e.activeFor(id)}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
