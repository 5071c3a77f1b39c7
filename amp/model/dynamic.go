package model

import "github.com/cwbudde/algo-approx"

// Dynamic is the hot-swappable unit published into the model slot: a
// Variant plus the gain/skip configuration carried alongside it in the
// descriptor, exactly DynamicModel's fields.
type Dynamic struct {
	Variant     Variant
	InputSkip   bool
	InputGain   float32
	OutputGain  float32
}

// Build turns a parsed Descriptor into a ready-to-publish Dynamic, including
// the in_skip/in_gain/out_gain fields the variant itself does not carry.
func Build(d *Descriptor) (*Dynamic, error) {
	v, err := Identify(d)
	if err != nil {
		return nil, err
	}
	return &Dynamic{
		Variant:    v,
		InputSkip:  d.InSkip == 1,
		InputGain:  dbToCoef(d.InGain),
		OutputGain: dbToCoef(d.OutGain),
	}, nil
}

// Forward runs one sample through the dispatch rule of §4.2: input_size==1
// feeds back the running sample, 2 adds param1, 3 adds param1 and param2;
// skip mode accumulates the residual instead of replacing the sample.
func (m *Dynamic) Forward(sample float32, param1, param2 float32) float32 {
	if m == nil || m.Variant == nil {
		return sample
	}
	var scratch [3]float32
	n := m.Variant.InputSize()
	in := sample
	if m.InputSkip {
		in *= m.InputGain
	}
	scratch[0] = in
	if n >= 2 {
		scratch[1] = param1
	}
	if n >= 3 {
		scratch[2] = param2
	}
	out := m.Variant.Forward(scratch[:n])
	if m.InputSkip {
		return sample + out*m.OutputGain
	}
	return out * m.OutputGain
}

// Reset clears recurrent state, called once after identification and before
// publication (pre-warm runs through it again on a zero buffer).
func (m *Dynamic) Reset() {
	if m != nil && m.Variant != nil {
		m.Variant.Reset()
	}
}

func dbToCoef(gainDB float32) float32 {
	if gainDB <= -90 {
		return 0
	}
	const ln10 = 2.302585092994046
	return approx.FastExp(gainDB / 20.0 * ln10)
}
