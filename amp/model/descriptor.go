package model

import (
	"encoding/json"
	"fmt"
)

// Layer is one entry of the model JSON's layers array. Only the fields
// relevant to identification and weight population are kept; everything
// else in a real export is ignored.
type Layer struct {
	Type       string    `json:"type"`
	Shape      []int     `json:"shape"`
	Activation string    `json:"activation,omitempty"`
	WeightIH   []float32 `json:"weight_ih,omitempty"`
	WeightHH   []float32 `json:"weight_hh,omitempty"`
	BiasIH     []float32 `json:"bias_ih,omitempty"`
	BiasHH     []float32 `json:"bias_hh,omitempty"`
	Weight     []float32 `json:"weight,omitempty"`
	Bias       []float32 `json:"bias,omitempty"`
}

// Descriptor is the model JSON consumed by Identify, matching the schema
// in the external interfaces: in_shape, in_skip, in_gain, out_gain, layers.
type Descriptor struct {
	InShape []int   `json:"in_shape"`
	InSkip  int     `json:"in_skip"`
	InGain  float32 `json:"in_gain"`
	OutGain float32 `json:"out_gain"`
	Layers  []Layer `json:"layers"`
}

// ParseDescriptor unmarshals a model JSON document.
func ParseDescriptor(data []byte) (*Descriptor, error) {
	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, newLoadError("malformed_json", err)
	}
	return &d, nil
}

func lastOf(shape []int) int {
	if len(shape) == 0 {
		return 0
	}
	return shape[len(shape)-1]
}

// Identify checks in_skip, then the input size, the hidden size and the
// cell type, and finally detects the sigmoid-arm shape. It returns the
// matching arm, or Null with an error for the first check that fails.
func Identify(d *Descriptor) (Variant, error) {
	if d == nil || len(d.Layers) == 0 {
		return Null{}, newLoadError("unknown_shape", fmt.Errorf("empty descriptor"))
	}
	if d.InSkip < 0 || d.InSkip > 1 {
		return Null{}, newLoadError("invalid_in_skip", fmt.Errorf("in_skip must be 0 or 1, got %d", d.InSkip))
	}

	inputSize := lastOf(d.InShape)
	if inputSize > maxSupportedInputSize {
		return Null{}, newLoadError("unsupported_input_size", fmt.Errorf("in_shape.last=%d exceeds max %d", inputSize, maxSupportedInputSize))
	}
	if !validInput(inputSize) {
		return Null{}, newLoadError("unknown_shape", fmt.Errorf("unsupported in_shape.last=%d", inputSize))
	}

	recurrent := d.Layers[0]
	hidden := lastOf(recurrent.Shape)
	if !validHidden(hidden) {
		return Null{}, newLoadError("unknown_shape", fmt.Errorf("unsupported hidden size %d", hidden))
	}

	hasSigmoid := len(d.Layers) == 3 && d.Layers[1].Activation == "sigmoid"

	var v Variant
	switch recurrent.Type {
	case "gru":
		c := newGRUCell(hidden, inputSize)
		if err := populateGRU(c, &recurrent); err != nil {
			return Null{}, err
		}
		v = c
	case "lstm":
		c := newLSTMCell(hidden, inputSize)
		if err := populateLSTM(c, &recurrent); err != nil {
			return Null{}, err
		}
		v = c
	default:
		return Null{}, newLoadError("unknown_shape", fmt.Errorf("unsupported cell type %q", recurrent.Type))
	}

	dense := d.Layers[len(d.Layers)-1]
	if err := populateDense(v, &dense); err != nil {
		return Null{}, err
	}

	if hasSigmoid {
		v = sigmoidWrap{inner: v}
	}
	v.Reset()
	return v, nil
}

func populateDense(v Variant, layer *Layer) error {
	hidden := v.HiddenSize()
	var dw []float32
	var db float32
	if len(layer.Weight) > 0 {
		dw = layer.Weight
	}
	if len(layer.Bias) > 0 {
		db = layer.Bias[0]
	}
	switch c := v.(type) {
	case *gruCell:
		copyOrZero(c.denseW, dw, hidden)
		c.denseB = db
	case *lstmCell:
		copyOrZero(c.denseW, dw, hidden)
		c.denseB = db
	}
	return nil
}

func copyOrZero(dst, src []float32, n int) {
	for i := 0; i < n; i++ {
		if i < len(src) {
			dst[i] = src[i]
		} else {
			dst[i] = 0
		}
	}
}

// populateGRU splits the concatenated RTNeural-style [z;r;h] gate blocks
// into the three per-gate weight matrices, zero-filling anything the JSON
// omits so identification never fails on a short/placeholder weight file.
func populateGRU(c *gruCell, layer *Layer) error {
	h, n := c.hidden, c.input
	blockIH := h * n
	blockHH := h * h
	copyOrZero(c.wzIn, sliceAt(layer.WeightIH, 0*blockIH, blockIH), blockIH)
	copyOrZero(c.wrIn, sliceAt(layer.WeightIH, 1*blockIH, blockIH), blockIH)
	copyOrZero(c.whIn, sliceAt(layer.WeightIH, 2*blockIH, blockIH), blockIH)
	copyOrZero(c.wzH, sliceAt(layer.WeightHH, 0*blockHH, blockHH), blockHH)
	copyOrZero(c.wrH, sliceAt(layer.WeightHH, 1*blockHH, blockHH), blockHH)
	copyOrZero(c.whH, sliceAt(layer.WeightHH, 2*blockHH, blockHH), blockHH)
	copyOrZero(c.bz, sliceAt(layer.BiasIH, 0*h, h), h)
	copyOrZero(c.br, sliceAt(layer.BiasIH, 1*h, h), h)
	copyOrZero(c.bh, sliceAt(layer.BiasIH, 2*h, h), h)
	return nil
}

func populateLSTM(c *lstmCell, layer *Layer) error {
	h, n := c.hidden, c.input
	blockIH := h * n
	blockHH := h * h
	copyOrZero(c.wiIn, sliceAt(layer.WeightIH, 0*blockIH, blockIH), blockIH)
	copyOrZero(c.wfIn, sliceAt(layer.WeightIH, 1*blockIH, blockIH), blockIH)
	copyOrZero(c.wgIn, sliceAt(layer.WeightIH, 2*blockIH, blockIH), blockIH)
	copyOrZero(c.woIn, sliceAt(layer.WeightIH, 3*blockIH, blockIH), blockIH)
	copyOrZero(c.wiH, sliceAt(layer.WeightHH, 0*blockHH, blockHH), blockHH)
	copyOrZero(c.wfH, sliceAt(layer.WeightHH, 1*blockHH, blockHH), blockHH)
	copyOrZero(c.wgH, sliceAt(layer.WeightHH, 2*blockHH, blockHH), blockHH)
	copyOrZero(c.woH, sliceAt(layer.WeightHH, 3*blockHH, blockHH), blockHH)
	copyOrZero(c.bi, sliceAt(layer.BiasIH, 0*h, h), h)
	copyOrZero(c.bf, sliceAt(layer.BiasIH, 1*h, h), h)
	copyOrZero(c.bg, sliceAt(layer.BiasIH, 2*h, h), h)
	copyOrZero(c.bo, sliceAt(layer.BiasIH, 3*h, h), h)
	return nil
}

func sliceAt(src []float32, start, length int) []float32 {
	if start >= len(src) {
		return nil
	}
	end := start + length
	if end > len(src) {
		end = len(src)
	}
	return src[start:end]
}

// DefaultDescriptorJSON is the embedded default model: GRU, hidden=8, io=1,
// no sigmoid, the smallest arm in the closed set. It ships as a literal so
// the engine always has a model published without a compiled-in binary
// asset.
const DefaultDescriptorJSON = `{
  "in_shape": [1, 1],
  "in_skip": 1,
  "in_gain": 0,
  "out_gain": 0,
  "layers": [
    {"type": "gru", "shape": [1, 8]},
    {"type": "dense", "shape": [1, 1]}
  ]
}`
