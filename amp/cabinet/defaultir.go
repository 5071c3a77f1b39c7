package cabinet

import (
	"math"
	"math/rand"
)

// defaultIRConfig parameterizes DefaultIR's modal synthesis, reparameterized
// from the soundboard-body modal synthesis used elsewhere in this lineage
// for a guitar speaker cabinet: shorter duration, a brighter cluster of
// high modes standing in for cone breakup, mono rather than stereo.
type defaultIRConfig struct {
	durationS  float64
	modes      int
	seed       int64
	brightness float64
	density    float64
	lowDecayS  float64
	highDecayS float64
	peak       float64
}

func defaultIRCabinetConfig() defaultIRConfig {
	return defaultIRConfig{
		durationS:  0.25,
		modes:      96,
		seed:       1,
		brightness: 1.6,
		density:    1.4,
		lowDecayS:  0.12,
		highDecayS: 0.02,
		peak:       0.9,
	}
}

// DefaultIR synthesizes a deterministic mono speaker-cabinet-like impulse
// response, satisfying the embedded-default-IR requirement without a
// compiled-in WAV asset: the decode path into Convolver.SetIR is identical
// either way.
func DefaultIR(sampleRate int) []float32 {
	cfg := defaultIRCabinetConfig()
	n := int(math.Round(cfg.durationS * float64(sampleRate)))
	if n < 1 {
		n = 1
	}
	buf := make([]float64, n)
	rng := rand.New(rand.NewSource(cfg.seed))

	buf[0] += 0.6 // direct path impulse

	maxF := 0.45 * float64(sampleRate)
	if maxF < 500 {
		maxF = 500
	}
	minF := 70.0
	if minF >= maxF {
		minF = maxF * 0.5
	}

	for m := 0; m < cfg.modes; m++ {
		fNorm := math.Pow((float64(m)+0.5)/float64(cfg.modes), cfg.density)
		f := minF * math.Pow(maxF/minF, fNorm)

		brightnessExp := 0.7 + 0.9*cfg.brightness
		amp := 0.9 / math.Pow(1.0+f/800.0, brightnessExp)
		amp *= 0.7 + 0.6*rng.Float64()

		tau := lerp(cfg.lowDecayS, cfg.highDecayS, math.Sqrt(f/maxF))
		decay := math.Exp(-1.0 / (tau * float64(sampleRate)))

		phi := rng.Float64() * 2.0 * math.Pi
		addMode(buf, amp, f, phi, decay, sampleRate)
	}

	highpassDC(buf, 0.995)

	peak := maxAbs(buf)
	if peak < 1e-12 {
		peak = 1e-12
	}
	s := cfg.peak / peak
	out := make([]float32, n)
	for i, v := range buf {
		out[i] = float32(v * s)
	}
	return out
}

func addMode(buf []float64, amp, freqHz, phase, decay float64, sampleRate int) {
	w := 2 * math.Pi * freqHz / float64(sampleRate)
	env := amp
	for i := range buf {
		buf[i] += env * math.Cos(w*float64(i)+phase)
		env *= decay
		if env < 1e-8 {
			break
		}
	}
}

func highpassDC(buf []float64, pole float64) {
	prevIn, prevOut := 0.0, 0.0
	for i, x := range buf {
		y := x - prevIn + pole*prevOut
		prevIn, prevOut = x, y
		buf[i] = y
	}
}

func maxAbs(buf []float64) float64 {
	m := 0.0
	for _, v := range buf {
		if a := math.Abs(v); a > m {
			m = a
		}
	}
	return m
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
