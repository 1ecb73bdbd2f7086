// Package render runs the processing chain offline over WAV files. It
// reuses the realtime engine block loop, so a rendered file goes through
// exactly the chain a live stream would.
package render

import (
	"fmt"
	"os"
	"time"

	"github.com/cwbudde/algo-dsp/dsp/resample"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"ampd/internal/engine"
	"ampd/pkg/types"
)

// defaultDrainTimeout bounds Prepare's wait for resource loads.
const defaultDrainTimeout = 60 * time.Second

// Prepare queues the given resource paths and pumps silent blocks until the
// worker has drained every load. Rendering before the models are in place
// would just print the input.
func Prepare(e *engine.Engine, paths map[types.ResourceID]string) error {
	queued := false
	for id, p := range paths {
		if p == "" || p == types.Sentinel {
			continue
		}
		if err := e.PushEvent(engine.ControlEvent{Op: engine.OpSet, ID: id, Path: p}); err != nil {
			return fmt.Errorf("render: queue %s: %w", id, err)
		}
		queued = true
		if err := pumpUntilIdle(e); err != nil {
			return err
		}
	}
	if !queued {
		return nil
	}
	return pumpUntilIdle(e)
}

func pumpUntilIdle(e *engine.Engine) error {
	silence := make([]float64, e.BlockSize())
	out := make([]float64, e.BlockSize())
	deadline := time.Now().Add(defaultDrainTimeout)
	for {
		e.ProcessBlock(silence, out)
		if !e.Busy() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("render: resource load did not finish")
		}
		time.Sleep(time.Millisecond)
	}
}

// File renders inPath through the engine into outPath. Input is mixed to
// mono and resampled to the engine rate when needed; output is mono at the
// engine rate, 24 bit.
func File(e *engine.Engine, inPath, outPath string) error {
	samples, fileRate, err := readWAV(inPath)
	if err != nil {
		return err
	}
	rate := int(e.SampleRate())
	if fileRate != rate {
		samples, err = resample.Resample(samples, rate, fileRate)
		if err != nil {
			return fmt.Errorf("render: resample %s (%d -> %d Hz): %w", inPath, fileRate, rate, err)
		}
	}

	out := make([]float64, len(samples))
	block := e.BlockSize()
	for off := 0; off < len(samples); off += block {
		end := off + block
		if end > len(samples) {
			end = len(samples)
		}
		e.ProcessBlock(samples[off:end], out[off:end])
	}

	return writeWAV(outPath, out, rate)
}

func readWAV(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("render: open %s: %w", path, err)
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("render: decode %s: %w", path, err)
	}
	if buf == nil || len(buf.Data) == 0 {
		return nil, 0, fmt.Errorf("render: %s: empty file", path)
	}
	ch := buf.Format.NumChannels
	if ch < 1 {
		ch = 1
	}
	bitDepth := int(dec.BitDepth)
	if buf.SourceBitDepth > 0 {
		bitDepth = buf.SourceBitDepth
	}
	scale := 1.0 / float64(int(1)<<(bitDepth-1))
	frames := len(buf.Data) / ch
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		sum := 0.0
		for c := 0; c < ch; c++ {
			sum += float64(buf.Data[i*ch+c])
		}
		samples[i] = sum / float64(ch) * scale
	}
	return samples, buf.Format.SampleRate, nil
}

func writeWAV(path string, samples []float64, rate int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("render: create %s: %w", path, err)
	}
	const bitDepth = 24
	enc := wav.NewEncoder(f, rate, bitDepth, 1, 1)
	full := float64(int(1)<<(bitDepth-1)) - 1
	data := make([]int, len(samples))
	for i, v := range samples {
		if v > 1 {
			v = 1
		}
		if v < -1 {
			v = -1
		}
		data[i] = int(v * full)
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: rate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		enc.Close()
		f.Close()
		return fmt.Errorf("render: write %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("render: finalize %s: %w", path, err)
	}
	return f.Close()
}
