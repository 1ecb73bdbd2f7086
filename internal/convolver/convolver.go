// Package convolver wraps a partitioned FFT convolution engine behind the
// configure/start/stop lifecycle the resource worker drives. A convolver is
// never reconfigured in place: the worker stops it, cleans it up and builds
// a fresh one from the IR file. The audio thread only asks IsRunnable and
// calls Compute; both are safe while the worker rebuilds, because Compute
// is skipped engine-side whenever a load is in flight.
package convolver

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sync/atomic"
	"time"

	"github.com/cwbudde/algo-dsp/dsp/conv"
	"github.com/cwbudde/algo-dsp/dsp/resample"
	"github.com/go-audio/wav"
)

// lifecycle states
const (
	stateUnconfigured int32 = iota
	stateConfiguring
	stateReady
	stateRunning
	stateFailed
)

var (
	// ErrNotConfigured is returned by Start before a successful Configure.
	ErrNotConfigured = errors.New("convolver: not configured")
	// ErrConfigurePending is returned by Start while Configure is still running.
	ErrConfigurePending = errors.New("convolver: configuration still in progress")
	// ErrAwaitTimeout is returned when AwaitReady gives up waiting.
	ErrAwaitTimeout = errors.New("convolver: timed out waiting for configuration")
)

// maxKernelSamples bounds IR length after resampling (about 5.5 s at 48 kHz).
const maxKernelSamples = 1 << 18

// Convolver is one slot's impulse-response engine.
type Convolver struct {
	sampleRate float64
	bufferSize int

	state    atomic.Int32
	runnable atomic.Bool

	// written by the Configure goroutine, read by Start/Compute strictly
	// after observing stateReady / runnable (release/acquire on state).
	pc      *conv.PartitionedConvolution
	cfgErr  error
	irPath  string
	irLen   int
	prio    int
	policy  int
	started time.Time
}

// New returns an unconfigured convolver.
func New() *Convolver { return &Convolver{} }

// SetSampleRate fixes the engine sample rate used for IR conversion.
func (c *Convolver) SetSampleRate(rate float64) { c.sampleRate = rate }

// SetBufferSize sets the host block size; the partition layout is derived
// from it so convolution latency stays within one block.
func (c *Convolver) SetBufferSize(n int) { c.bufferSize = n }

// Configure starts building a convolver from the IR file at path, scaled by
// gain. The heavy work (WAV decode, resampling, FFT partitioning) runs on
// its own goroutine; poll CheckState or AwaitReady for completion. Must not
// be called while Running.
func (c *Convolver) Configure(path string, gain float64) {
	c.irPath = path
	c.cfgErr = nil
	c.pc = nil
	c.state.Store(stateConfiguring)
	go func() {
		pc, n, err := c.build(path, gain)
		if err != nil {
			c.cfgErr = err
			c.state.Store(stateFailed)
			return
		}
		c.pc = pc
		c.irLen = n
		c.state.Store(stateReady)
	}()
}

// CheckState reports whether the last Configure has finished, successfully
// or not. Mirrors the zita-style checkstate poll.
func (c *Convolver) CheckState() bool {
	s := c.state.Load()
	return s == stateReady || s == stateFailed
}

// AwaitReady polls CheckState until the configuration completes or timeout
// elapses. Worker-thread only: this blocks.
func (c *Convolver) AwaitReady(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for !c.CheckState() {
		if time.Now().After(deadline) {
			return ErrAwaitTimeout
		}
		time.Sleep(time.Millisecond)
	}
	return nil
}

// Start makes the convolver runnable. prio and policy are scheduling hints
// carried over from the host; when the platform offers no control over the
// compute path's priority they are recorded and otherwise ignored, which
// degrades to "always allowed to run".
func (c *Convolver) Start(prio, policy int) error {
	switch c.state.Load() {
	case stateFailed:
		return fmt.Errorf("convolver: start %s: %w", c.irPath, c.cfgErr)
	case stateConfiguring:
		return ErrConfigurePending
	case stateUnconfigured:
		return ErrNotConfigured
	}
	c.prio, c.policy = prio, policy
	c.started = time.Now()
	c.state.Store(stateRunning)
	c.runnable.Store(true)
	return nil
}

// Stop takes the convolver out of the signal path without discarding the
// configured kernel.
func (c *Convolver) Stop() {
	c.runnable.Store(false)
	if c.state.Load() == stateRunning {
		c.state.Store(stateReady)
	}
}

// Cleanup drops all configured state. The next use requires Configure.
func (c *Convolver) Cleanup() {
	c.runnable.Store(false)
	c.pc = nil
	c.cfgErr = nil
	c.irLen = 0
	c.state.Store(stateUnconfigured)
}

// IsRunnable reports whether Compute will convolve. Safe on the audio thread.
func (c *Convolver) IsRunnable() bool { return c.runnable.Load() }

// KernelLen returns the configured IR length in samples at the engine rate.
func (c *Convolver) KernelLen() int { return c.irLen }

// Compute convolves n samples from in to out. When not runnable the input
// is passed through unchanged. in and out may alias.
func (c *Convolver) Compute(n int, in, out []float64) {
	if n <= 0 {
		return
	}
	if !c.runnable.Load() || c.pc == nil {
		copyThrough(out[:n], in[:n])
		return
	}
	if err := c.pc.ProcessBlock(in[:n], out[:n]); err != nil {
		copyThrough(out[:n], in[:n])
	}
}

func copyThrough(dst, src []float64) {
	// in-place callers pass identical slices
	if &dst[0] != &src[0] {
		copy(dst, src)
	}
}

// build loads, converts and partitions the IR kernel.
func (c *Convolver) build(path string, gain float64) (*conv.PartitionedConvolution, int, error) {
	kernel, fileRate, err := readIR(path)
	if err != nil {
		return nil, 0, err
	}
	if c.sampleRate > 0 && fileRate > 0 && fileRate != c.sampleRate {
		kernel, err = resample.Resample(kernel, int(c.sampleRate), int(fileRate))
		if err != nil {
			return nil, 0, fmt.Errorf("convolver: resample %s (%g -> %g Hz): %w", path, fileRate, c.sampleRate, err)
		}
	}
	if len(kernel) == 0 {
		return nil, 0, fmt.Errorf("convolver: %s: empty impulse response", path)
	}
	if len(kernel) > maxKernelSamples {
		kernel = kernel[:maxKernelSamples]
	}
	if gain != 0 && gain != 1 {
		for i := range kernel {
			kernel[i] *= gain
		}
	}

	minOrder := blockOrder(c.bufferSize)
	pc, err := conv.NewPartitionedConvolution(kernel, minOrder, 13)
	if err != nil {
		return nil, 0, fmt.Errorf("convolver: partition %s: %w", path, err)
	}
	return pc, len(kernel), nil
}

// blockOrder maps the host buffer size to the smallest partition order,
// clamped so tiny and huge host buffers both get a workable layout.
func blockOrder(bufsize int) int {
	order := 6 // 64 samples default
	if bufsize > 0 {
		order = int(math.Floor(math.Log2(float64(bufsize))))
	}
	if order < 5 {
		order = 5
	}
	if order > 13 {
		order = 13
	}
	return order
}

// readIR decodes the first channel of a WAV file into float64 samples.
// Multi-channel files are averaged down to mono.
func readIR(path string) ([]float64, float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("convolver: open %s: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("convolver: %s: not a valid WAV file", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("convolver: decode %s: %w", path, err)
	}
	ch := buf.Format.NumChannels
	if ch < 1 {
		ch = 1
	}
	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = int(dec.BitDepth)
	}
	scale := 1.0 / float64(int(1)<<(bitDepth-1))

	frames := len(buf.Data) / ch
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		sum := 0.0
		for j := 0; j < ch; j++ {
			sum += float64(buf.Data[i*ch+j])
		}
		out[i] = sum / float64(ch) * scale
	}
	return out, float64(dec.SampleRate), nil
}
