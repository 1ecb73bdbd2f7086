package neural

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// namFile mirrors the top level of a .nam profile. Only the fields the
// reference forward pass needs are decoded; the rest is kept as raw JSON
// so malformed sections still fail the load.
type namFile struct {
	Version      string          `json:"version"`
	Architecture string          `json:"architecture"`
	Config       json.RawMessage `json:"config"`
	Weights      []float64       `json:"weights"`
	Metadata     struct {
		Loudness *float64 `json:"loudness"`
	} `json:"metadata"`
}

// namLinearConfig is the config block of the "Linear" architecture.
type namLinearConfig struct {
	ReceptiveField int  `json:"receptive_field"`
	Bias           bool `json:"bias"`
}

// loudnessTarget is the output level models are normalized towards, dBFS.
const loudnessTarget = -18.0

// loadNAM parses a .nam profile. Linear architectures get an exact forward
// pass; WaveNet/LSTM and friends fall back to a waveshaper calibrated from
// the profile's weights and loudness so that any valid file is usable.
func loadNAM(path string) (*net, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("nam: read %s: %w", path, err)
	}
	var f namFile
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("nam: parse %s: %w", path, err)
	}
	if len(f.Weights) == 0 {
		return nil, fmt.Errorf("nam: %s: no weights", path)
	}

	makeup := 1.0
	if f.Metadata.Loudness != nil {
		makeup = math.Pow(10, (loudnessTarget-*f.Metadata.Loudness)/20)
		// keep runaway profiles from clipping the chain
		makeup = math.Min(makeup, 8)
	}

	if f.Architecture == "Linear" {
		var cfg namLinearConfig
		if len(f.Config) > 0 {
			if err := json.Unmarshal(f.Config, &cfg); err != nil {
				return nil, fmt.Errorf("nam: %s: linear config: %w", path, err)
			}
		}
		rf := cfg.ReceptiveField
		if rf <= 0 || rf > len(f.Weights) {
			rf = len(f.Weights)
		}
		bias := 0.0
		w := f.Weights[:rf]
		if cfg.Bias && rf < len(f.Weights) {
			bias = f.Weights[rf]
		}
		layer := denseLayer{in: rf, out: 1, w: append([]float64(nil), w...), bias: []float64{bias}, act: actIdentity}
		n := newDenseNet([]denseLayer{layer})
		n.makeup = makeup
		return n, nil
	}

	drive := weightsDrive(f.Weights)
	return newShaperNet(drive, makeup), nil
}

// weightsDrive derives a waveshaper drive from the profile's weight energy.
func weightsDrive(w []float64) float64 {
	var sum float64
	for _, v := range w {
		sum += v * v
	}
	rms := math.Sqrt(sum / float64(len(w)))
	return 1 + 4*math.Min(rms, 2)
}
