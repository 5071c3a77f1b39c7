package model

import "math"

// gruCell is one arm of the tagged union: a single-layer GRU followed by a
// dense output projection to a scalar, exactly the shape
// original_source/model_variant.hpp enumerates per (hidden, io) pair.
type gruCell struct {
	hidden int
	input  int

	// Gate weights, flattened row-major: [hidden, input+hidden] per gate.
	wzIn, wzH []float32
	wrIn, wrH []float32
	whIn, whH []float32
	bz, br, bh []float32

	// Dense output projection: hidden -> 1.
	denseW []float32
	denseB float32

	state []float32
	gz, gr, gh []float32
}

func newGRUCell(hidden, input int) *gruCell {
	c := &gruCell{
		hidden: hidden,
		input:  input,
		wzIn:   make([]float32, hidden*input),
		wzH:    make([]float32, hidden*hidden),
		wrIn:   make([]float32, hidden*input),
		wrH:    make([]float32, hidden*hidden),
		whIn:   make([]float32, hidden*input),
		whH:    make([]float32, hidden*hidden),
		bz:     make([]float32, hidden),
		br:     make([]float32, hidden),
		bh:     make([]float32, hidden),
		denseW: make([]float32, hidden),
		state:  make([]float32, hidden),
		gz:     make([]float32, hidden),
		gr:     make([]float32, hidden),
		gh:     make([]float32, hidden),
	}
	return c
}

func sigmoid(x float32) float32 {
	return float32(1.0 / (1.0 + math.Exp(-float64(x))))
}

func tanhf(x float32) float32 {
	return float32(math.Tanh(float64(x)))
}

// Forward runs one GRU step: gz/gr from input+previous state, candidate gh
// gated by gr, then a convex update of the hidden state, followed by the
// dense output projection. Allocation-free: all scratch is preallocated.
func (c *gruCell) Forward(input []float32) float32 {
	h := c.hidden
	n := c.input
	for i := 0; i < h; i++ {
		var z, r float32
		for j := 0; j < n; j++ {
			z += c.wzIn[i*n+j] * input[j]
			r += c.wrIn[i*n+j] * input[j]
		}
		for j := 0; j < h; j++ {
			z += c.wzH[i*h+j] * c.state[j]
			r += c.wrH[i*h+j] * c.state[j]
		}
		c.gz[i] = sigmoid(z + c.bz[i])
		c.gr[i] = sigmoid(r + c.br[i])
	}
	for i := 0; i < h; i++ {
		var hc float32
		for j := 0; j < n; j++ {
			hc += c.whIn[i*n+j] * input[j]
		}
		for j := 0; j < h; j++ {
			hc += c.whH[i*h+j] * (c.gr[j] * c.state[j])
		}
		c.gh[i] = tanhf(hc + c.bh[i])
	}
	var out float32
	for i := 0; i < h; i++ {
		c.state[i] = (1-c.gz[i])*c.gh[i] + c.gz[i]*c.state[i]
		out += c.denseW[i] * c.state[i]
	}
	return out + c.denseB
}

func (c *gruCell) Reset() {
	for i := range c.state {
		c.state[i] = 0
	}
}

func (c *gruCell) InputSize() int  { return c.input }
func (c *gruCell) HiddenSize() int { return c.hidden }
