// Package neural implements the two swappable amp-model families: NAM-style
// profiles (.nam) and RTNeural-style networks (.json/.aidax). Each family
// Engine hosts one model per slot (A/B). Loading and unloading happen on the
// resource worker; Compute runs on the audio thread and must never block, so
// the live model is held behind an atomic pointer and swapped whole.
package neural

import (
	"fmt"
	"math"
	"sync/atomic"
)

// Engine hosts the slot A and slot B models of one family.
type Engine struct {
	rate float64
	kind string // "nam" or "rtneural", selects the accepted file formats
	a    atomic.Pointer[net]
	b    atomic.Pointer[net]
}

// NewNAM returns the primary-family engine (NAM profiles).
func NewNAM() *Engine { return &Engine{kind: "nam"} }

// NewRTNeural returns the alt-family engine (RTNeural networks).
func NewRTNeural() *Engine { return &Engine{kind: "rtneural"} }

// Init fixes the sample rate for the engine's lifetime.
func (e *Engine) Init(rate float64) { e.rate = rate }

// LoadA parses the model file and swaps it in for slot A. The swap is a
// single pointer exchange; a Compute running concurrently finishes on the
// model it already picked up.
func (e *Engine) LoadA(path string) error {
	n, err := e.load(path)
	if err != nil {
		return err
	}
	e.a.Store(n)
	return nil
}

// LoadB is LoadA for slot B.
func (e *Engine) LoadB(path string) error {
	n, err := e.load(path)
	if err != nil {
		return err
	}
	e.b.Store(n)
	return nil
}

// UnloadA drops the slot A model. Subsequent ComputeA calls pass through.
func (e *Engine) UnloadA() { e.a.Store(nil) }

// UnloadB drops the slot B model.
func (e *Engine) UnloadB() { e.b.Store(nil) }

// LoadedA reports whether slot A holds a model.
func (e *Engine) LoadedA() bool { return e.a.Load() != nil }

// LoadedB reports whether slot B holds a model.
func (e *Engine) LoadedB() bool { return e.b.Load() != nil }

// ComputeA processes buf in place through the slot A model, if any.
// Safe on the audio thread: no locks, no allocation.
func (e *Engine) ComputeA(buf []float64) {
	if n := e.a.Load(); n != nil {
		n.process(buf)
	}
}

// ComputeB processes buf in place through the slot B model, if any.
func (e *Engine) ComputeB(buf []float64) {
	if n := e.b.Load(); n != nil {
		n.process(buf)
	}
}

func (e *Engine) load(path string) (*net, error) {
	switch e.kind {
	case "nam":
		return loadNAM(path)
	case "rtneural":
		return loadRTNeural(path)
	}
	return nil, fmt.Errorf("neural: unknown engine kind %q", e.kind)
}

// net is a loaded model: either a small dense network or a calibrated
// waveshaper fallback for architectures the reference forward pass does
// not cover. Scratch buffers are owned by the single audio thread.
type net struct {
	layers []denseLayer
	drive  float64 // waveshaper drive, used when layers is empty
	makeup float64 // linear output gain

	scratchIn  []float64
	scratchOut []float64
}

type denseLayer struct {
	in, out int
	w       []float64 // row-major [out][in]
	bias    []float64
	act     activation
}

type activation int

const (
	actIdentity activation = iota
	actTanh
	actRelu
)

func (a activation) apply(x float64) float64 {
	switch a {
	case actTanh:
		return math.Tanh(x)
	case actRelu:
		if x < 0 {
			return 0
		}
		return x
	}
	return x
}

func newShaperNet(drive, makeup float64) *net {
	if drive < 1 {
		drive = 1
	}
	if drive > 10 {
		drive = 10
	}
	if makeup <= 0 {
		makeup = 1
	}
	return &net{drive: drive, makeup: makeup}
}

func newDenseNet(layers []denseLayer) *net {
	maxDim := 1
	for _, l := range layers {
		if l.in > maxDim {
			maxDim = l.in
		}
		if l.out > maxDim {
			maxDim = l.out
		}
	}
	return &net{
		layers:     layers,
		makeup:     1,
		scratchIn:  make([]float64, maxDim),
		scratchOut: make([]float64, maxDim),
	}
}

func (n *net) process(buf []float64) {
	if len(n.layers) == 0 {
		norm := math.Tanh(n.drive)
		for i, x := range buf {
			buf[i] = math.Tanh(n.drive*x) / norm * n.makeup
		}
		return
	}
	for i, x := range buf {
		buf[i] = n.forward(x) * n.makeup
	}
}

// forward runs one sample through the dense stack. Input dimension is 1;
// the sample is broadcast when the first layer expects a wider input.
func (n *net) forward(x float64) float64 {
	in := n.scratchIn[:1]
	in[0] = x
	for _, l := range n.layers {
		out := n.scratchOut[:l.out]
		for j := 0; j < l.out; j++ {
			sum := l.bias[j]
			row := l.w[j*l.in : (j+1)*l.in]
			for i := 0; i < l.in; i++ {
				v := 0.0
				if i < len(in) {
					v = in[i]
				} else {
					v = in[len(in)-1]
				}
				sum += row[i] * v
			}
			out[j] = l.act.apply(sum)
		}
		n.scratchIn, n.scratchOut = n.scratchOut, n.scratchIn
		in = out
	}
	return in[0]
}

func parseActivation(s string) activation {
	switch s {
	case "tanh":
		return actTanh
	case "relu":
		return actRelu
	}
	return actIdentity
}
