package amp

import (
	"math"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
)

// MidType selects how the mid-band biquad is designed.
type MidType int

const (
	MidPeak MidType = iota
	MidBandpass
)

// EQPosition selects whether the tone stack runs before or after the neural
// model in the per-buffer pipeline.
type EQPosition int

const (
	EQPost EQPosition = iota
	EQPre
)

// toneStack implements the five-band tone control (§4.6): bass low-shelf,
// mid peak-or-bandpass, treble high-shelf, plus a fixed-frequency depth peak
// and presence high-shelf, each a black-box biquad section supplied by
// algo-dsp.
type toneStack struct {
	sampleRate float64

	bass     *biquad.Section
	mid      *biquad.Section
	treble   *biquad.Section
	depth    *biquad.Section
	presence *biquad.Section

	bassGainDB, bassFreqHz, bassQ             float32
	midGainDB, midFreqHz, midQ                float32
	trebleGainDB, trebleFreqHz, trebleQ       float32
	depthGainDB, presenceGainDB               float32
	midType                                   MidType
	eqPos                                     EQPosition
	eqBypass                                  bool
}

const (
	depthFreqHz    = 75.0
	presenceFreqHz = 900.0
	fixedShelfQ    = 0.707
)

func newToneStack(sampleRate float64) *toneStack {
	t := &toneStack{
		sampleRate: sampleRate,
		bassFreqHz: 150, bassQ: 0.707,
		midFreqHz: 800, midQ: 0.707,
		trebleFreqHz: 2000, trebleQ: 0.707,
		midType: MidPeak,
		eqPos:   EQPost,
	}
	t.rebuildAll()
	return t
}

func (t *toneStack) setSampleRate(sampleRate float64) {
	t.sampleRate = sampleRate
	t.rebuildAll()
}

func (t *toneStack) rebuildAll() {
	t.bass = biquad.NewSection(design.LowShelf(float64(t.bassFreqHz), float64(t.bassGainDB), float64(t.bassQ), t.sampleRate))
	t.rebuildMid()
	t.treble = biquad.NewSection(design.HighShelf(float64(t.trebleFreqHz), float64(t.trebleGainDB), float64(t.trebleQ), t.sampleRate))
	t.depth = biquad.NewSection(design.Peak(depthFreqHz, float64(t.depthGainDB), fixedShelfQ, t.sampleRate))
	t.presence = biquad.NewSection(design.HighShelf(presenceFreqHz, float64(t.presenceGainDB), fixedShelfQ, t.sampleRate))
}

func (t *toneStack) rebuildMid() {
	switch t.midType {
	case MidBandpass:
		t.mid = biquad.NewSection(rbjConstantPeakBandpass(float64(t.midFreqHz), float64(t.midQ), t.sampleRate))
	default:
		t.mid = biquad.NewSection(design.Peak(float64(t.midFreqHz), float64(t.midGainDB), float64(t.midQ), t.sampleRate))
	}
}

func (t *toneStack) setBass(gainDB, freqHz, q float32) {
	t.bassGainDB, t.bassFreqHz, t.bassQ = gainDB, freqHz, q
	t.bass = biquad.NewSection(design.LowShelf(float64(freqHz), float64(gainDB), float64(q), t.sampleRate))
}

func (t *toneStack) setMid(gainDB, freqHz, q float32) {
	t.midGainDB, t.midFreqHz, t.midQ = gainDB, freqHz, q
	t.rebuildMid()
}

func (t *toneStack) setMidType(mt MidType) {
	if mt == t.midType {
		return
	}
	t.midType = mt
	t.rebuildMid()
}

func (t *toneStack) setTreble(gainDB, freqHz, q float32) {
	t.trebleGainDB, t.trebleFreqHz, t.trebleQ = gainDB, freqHz, q
	t.treble = biquad.NewSection(design.HighShelf(float64(freqHz), float64(gainDB), float64(q), t.sampleRate))
}

func (t *toneStack) setDepth(gainDB float32) {
	t.depthGainDB = gainDB
	t.depth = biquad.NewSection(design.Peak(depthFreqHz, float64(gainDB), fixedShelfQ, t.sampleRate))
}

func (t *toneStack) setPresence(gainDB float32) {
	t.presenceGainDB = gainDB
	t.presence = biquad.NewSection(design.HighShelf(presenceFreqHz, float64(gainDB), fixedShelfQ, t.sampleRate))
}

// process runs one sample through the configured mid-type path.
func (t *toneStack) process(x float64) float64 {
	if t.midType == MidBandpass {
		return t.mid.ProcessSample(x)
	}
	x = t.depth.ProcessSample(x)
	x = t.bass.ProcessSample(x)
	x = t.mid.ProcessSample(x)
	x = t.treble.ProcessSample(x)
	x = t.presence.ProcessSample(x)
	return x
}

// rbjConstantPeakBandpass computes constant-peak-gain RBJ bandpass
// coefficients (peak gain 1.0 regardless of Q), used for the mid band's
// bandpass mode since algo-dsp's design package only exposes shelf/peak.
func rbjConstantPeakBandpass(freqHz, q, sampleRate float64) biquad.Coefficients {
	w0 := 2 * math.Pi * freqHz / sampleRate
	if w0 <= 0 || w0 >= math.Pi || q <= 0 {
		return biquad.Coefficients{B0: 1}
	}
	cw := math.Cos(w0)
	sw := math.Sin(w0)
	alpha := sw / (2 * q)

	a0 := 1 + alpha
	inv := 1.0 / a0
	return biquad.Coefficients{
		B0: alpha * inv,
		B1: 0,
		B2: -alpha * inv,
		A1: -2 * cw * inv,
		A2: (1 - alpha) * inv,
	}
}

// fixedFilter backs the remaining two black-box biquads named in §3 (input
// lowpass from newAntialiasFilter, DC-block highpass from
// newDCBlockFilter). They live outside
// toneStack since they run unconditionally, not as part of the bypassable
// five-band block.
type fixedFilter struct {
	section    *biquad.Section
	sampleRate float64
}

func newAntialiasFilter(sampleRate float64, cutoffHz float64) *fixedFilter {
	return &fixedFilter{
		section:    biquad.NewSection(design.Lowpass(cutoffHz, 0.7071067811865476, sampleRate)),
		sampleRate: sampleRate,
	}
}

func (f *fixedFilter) setLowpass(cutoffHz float64) {
	f.section = biquad.NewSection(design.Lowpass(cutoffHz, 0.7071067811865476, f.sampleRate))
}

func newDCBlockFilter(sampleRate float64) *fixedFilter {
	// ~5 Hz highpass is enough to remove DC drift without audible effect.
	return &fixedFilter{
		section:    biquad.NewSection(design.Highpass(5.0, 0.7071067811865476, sampleRate)),
		sampleRate: sampleRate,
	}
}

func (f *fixedFilter) process(x float64) float64 {
	return f.section.ProcessSample(x)
}
