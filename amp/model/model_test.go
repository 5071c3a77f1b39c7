package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func descFor(cell string, hidden, io int, sigmoid bool) *Descriptor {
	layers := []Layer{{Type: cell, Shape: []int{1, hidden}}}
	if sigmoid {
		layers = append(layers, Layer{Activation: "sigmoid"})
	}
	layers = append(layers, Layer{Type: "dense", Shape: []int{1, 1}})
	return &Descriptor{
		InShape: []int{1, io},
		InSkip:  0,
		Layers:  layers,
	}
}

func TestIdentify_ModelDispatchRoundTrip(t *testing.T) {
	for _, cell := range []string{"gru", "lstm"} {
		for _, hidden := range hiddenSizes {
			for _, io := range inputSizes {
				for _, sigmoid := range []bool{false, true} {
					d := descFor(cell, hidden, io, sigmoid)
					v, err := Identify(d)
					if !assert.NoError(t, err, "cell=%s hidden=%d io=%d sigmoid=%v", cell, hidden, io, sigmoid) {
						continue
					}
					assert.Equal(t, hidden, v.HiddenSize())
					assert.Equal(t, io, v.InputSize())
				}
			}
		}
	}
}

func TestIdentify_RejectsUnknownCellType(t *testing.T) {
	d := descFor("rnn", 8, 1, false)
	v, err := Identify(d)
	assert.Error(t, err)
	assert.Equal(t, Null{}, v)
}

func TestIdentify_RejectsUnsupportedInputSize(t *testing.T) {
	d := descFor("gru", 8, 4, false)
	_, err := Identify(d)
	assert.Error(t, err)
}

func TestIdentify_RejectsInSkipGreaterThanOne(t *testing.T) {
	d := descFor("gru", 8, 1, false)
	d.InSkip = 2
	_, err := Identify(d)
	assert.Error(t, err)
}

func TestIdentify_RejectsUnsupportedHiddenSize(t *testing.T) {
	d := descFor("gru", 7, 1, false)
	_, err := Identify(d)
	assert.Error(t, err)
}

// TestForward_FiniteForAllInputs is a property test for the audio-thread
// invariant: finite parameters and finite input must produce finite output.
func TestForward_FiniteForAllInputs(t *testing.T) {
	d := descFor("gru", 8, 3, false)
	v, err := Identify(d)
	assert.NoError(t, err)

	rapid.Check(t, func(rt *rapid.T) {
		sample := rapid.Float32Range(-1, 1).Draw(rt, "sample")
		p1 := rapid.Float32Range(0, 1).Draw(rt, "p1")
		p2 := rapid.Float32Range(0, 1).Draw(rt, "p2")
		out := v.Forward([]float32{sample, p1, p2})
		assert.False(t, isNaNOrInf(out))
	})
}

func isNaNOrInf(x float32) bool {
	return x != x || x > 3.4e38 || x < -3.4e38
}
