package model

// lstmCell is the LSTM arm of the tagged union: input/forget/cell/output
// gates, a cell and hidden state, and a dense output projection to a scalar.
type lstmCell struct {
	hidden int
	input  int

	wiIn, wiH []float32
	wfIn, wfH []float32
	wgIn, wgH []float32
	woIn, woH []float32
	bi, bf, bg, bo []float32

	denseW []float32
	denseB float32

	h, cState []float32
	gi, gf, gg, go_ []float32
}

func newLSTMCell(hidden, input int) *lstmCell {
	return &lstmCell{
		hidden: hidden,
		input:  input,
		wiIn:   make([]float32, hidden*input), wiH: make([]float32, hidden*hidden),
		wfIn: make([]float32, hidden*input), wfH: make([]float32, hidden*hidden),
		wgIn: make([]float32, hidden*input), wgH: make([]float32, hidden*hidden),
		woIn: make([]float32, hidden*input), woH: make([]float32, hidden*hidden),
		bi: make([]float32, hidden), bf: make([]float32, hidden),
		bg: make([]float32, hidden), bo: make([]float32, hidden),
		denseW: make([]float32, hidden),
		h:      make([]float32, hidden),
		cState: make([]float32, hidden),
		gi:     make([]float32, hidden), gf: make([]float32, hidden),
		gg: make([]float32, hidden), go_: make([]float32, hidden),
	}
}

func (c *lstmCell) Forward(input []float32) float32 {
	h := c.hidden
	n := c.input
	for i := 0; i < h; i++ {
		var in, f, g, o float32
		for j := 0; j < n; j++ {
			in += c.wiIn[i*n+j] * input[j]
			f += c.wfIn[i*n+j] * input[j]
			g += c.wgIn[i*n+j] * input[j]
			o += c.woIn[i*n+j] * input[j]
		}
		for j := 0; j < h; j++ {
			in += c.wiH[i*h+j] * c.h[j]
			f += c.wfH[i*h+j] * c.h[j]
			g += c.wgH[i*h+j] * c.h[j]
			o += c.woH[i*h+j] * c.h[j]
		}
		c.gi[i] = sigmoid(in + c.bi[i])
		c.gf[i] = sigmoid(f + c.bf[i])
		c.gg[i] = tanhf(g + c.bg[i])
		c.go_[i] = sigmoid(o + c.bo[i])
	}
	var out float32
	for i := 0; i < h; i++ {
		c.cState[i] = c.gf[i]*c.cState[i] + c.gi[i]*c.gg[i]
		c.h[i] = c.go_[i] * tanhf(c.cState[i])
		out += c.denseW[i] * c.h[i]
	}
	return out + c.denseB
}

func (c *lstmCell) Reset() {
	for i := range c.h {
		c.h[i] = 0
		c.cState[i] = 0
	}
}

func (c *lstmCell) InputSize() int  { return c.input }
func (c *lstmCell) HiddenSize() int { return c.hidden }

// sigmoidWrap decorates a Variant's scalar output with a sigmoid, the
// optional third identification criterion in the spec's matching rule
// (layers.size == 3 && layers[1].activation == "sigmoid").
type sigmoidWrap struct {
	inner Variant
}

func (w sigmoidWrap) Forward(input []float32) float32 { return sigmoid(w.inner.Forward(input)) }
func (w sigmoidWrap) Reset()                          { w.inner.Reset() }
func (w sigmoidWrap) InputSize() int                  { return w.inner.InputSize() }
func (w sigmoidWrap) HiddenSize() int                 { return w.inner.HiddenSize() }
