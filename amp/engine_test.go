package amp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func settledEngine(sampleRate, bufferSize int) *Engine {
	e := NewEngine(sampleRate, bufferSize)
	e.SetParameter(ParamNetBypass, 1)
	e.SetParameter(ParamEQBypass, 1)
	e.SetParameter(ParamCabsimBypass, 1)
	e.SetParameter(ParamBypass, 1)
	e.SetParameter(ParamMaster, 0)
	e.SetParameter(ParamPreGain, 0)
	return e
}

func settle(e *Engine, sampleRate, bufferSize int, seconds float64) {
	n := int(seconds*float64(sampleRate)) / bufferSize
	if n < 1 {
		n = 1
	}
	in := make([]float32, bufferSize)
	out := make([]float32, bufferSize)
	for i := 0; i < n; i++ {
		e.Process(in, out)
	}
}

func TestProcess_IdentityWithEmptyChain(t *testing.T) {
	const sampleRate, bufferSize = 48000, 64
	e := settledEngine(sampleRate, bufferSize)
	// bypass_gain's tau is 0.25s; settle for ~24 tau so the exponential
	// smoother's residual is well under the comparison tolerance below.
	settle(e, sampleRate, bufferSize, 6.0)

	in := make([]float32, bufferSize)
	for i := range in {
		in[i] = float32(math.Sin(2 * math.Pi * 1000 * float64(i) / sampleRate))
	}
	out := make([]float32, bufferSize)
	e.Process(in, out)

	for i := range in {
		assert.InDelta(t, in[i], out[i], 1e-5)
	}
}

func TestProcess_BypassIdempotence(t *testing.T) {
	const sampleRate, bufferSize = 48000, 64
	e := NewEngine(sampleRate, bufferSize)
	e.SetParameter(ParamBypass, 1)

	in := make([]float32, bufferSize)
	for i := range in {
		in[i] = float32(math.Sin(2 * math.Pi * 1000 * float64(i) / sampleRate))
	}
	out := make([]float32, bufferSize)

	// tau=0.25s; an exponential smoother needs many time constants to reach
	// a tight numeric tolerance, so settle for ~24*tau.
	settleSamples := int(math.Ceil(24 * 0.25 * sampleRate))
	for s := 0; s < settleSamples; s += bufferSize {
		e.Process(in, out)
	}

	e.Process(in, out)
	for i := range in {
		assert.InDelta(t, in[i], out[i], 1e-5)
	}
}

func TestProcess_FiniteOutputForAllParameters(t *testing.T) {
	const sampleRate, bufferSize = 48000, 64
	rapid.Check(t, func(rt *rapid.T) {
		e := NewEngine(sampleRate, bufferSize)
		e.SetParameter(ParamPreGain, rapid.Float32Range(-12, 3).Draw(rt, "pregain"))
		e.SetParameter(ParamMaster, rapid.Float32Range(-15, 15).Draw(rt, "master"))
		e.SetParameter(ParamBass, rapid.Float32Range(-8, 8).Draw(rt, "bass"))
		e.SetParameter(ParamMid, rapid.Float32Range(-8, 8).Draw(rt, "mid"))
		e.SetParameter(ParamTreble, rapid.Float32Range(-8, 8).Draw(rt, "treble"))
		e.SetParameter(ParamBypass, rapid.Float32Range(0, 1).Draw(rt, "bypass"))

		in := make([]float32, bufferSize)
		for i := range in {
			in[i] = rapid.Float32Range(-1, 1).Draw(rt, "sample")
		}
		out := make([]float32, bufferSize)
		for block := 0; block < 4; block++ {
			e.Process(in, out)
			for _, v := range out {
				assert.True(rt, isFiniteFloat(float64(v)))
			}
		}
	})
}

func TestProcess_GainRampMonotonicOverSettlingWindow(t *testing.T) {
	const sampleRate, bufferSize = 48000, 32
	e := NewEngine(sampleRate, bufferSize)
	e.SetParameter(ParamNetBypass, 1)
	e.SetParameter(ParamEQBypass, 1)
	e.SetParameter(ParamCabsimBypass, 1)
	e.SetParameter(ParamMaster, 0)
	e.SetParameter(ParamPreGain, -12)
	settle(e, sampleRate, bufferSize, 2.0)

	e.SetParameter(ParamPreGain, 0)

	// The DC blocker removes a constant input, so the ramp is observed on a
	// 1500 Hz sine of amplitude 0.1: its period is exactly one 32-sample
	// buffer, so each buffer's RMS follows the pre-gain alone.
	in := make([]float32, bufferSize)
	for i := range in {
		in[i] = float32(0.1 * math.Sin(2*math.Pi*1500*float64(i)/sampleRate))
	}
	out := make([]float32, bufferSize)

	prevRMS := float64(-1)
	samples := int(0.25 * sampleRate)
	for s := 0; s < samples; s += bufferSize {
		e.Process(in, out)
		var sum float64
		for _, v := range out {
			sum += float64(v) * float64(v)
		}
		rms := math.Sqrt(sum / float64(len(out)))
		if prevRMS >= 0 {
			assert.GreaterOrEqual(t, rms, prevRMS-1e-9)
		}
		prevRMS = rms
	}
}

func TestSetParameter_MidTypeSwitchesBandpassPath(t *testing.T) {
	const sampleRate, bufferSize = 48000, 64
	e := NewEngine(sampleRate, bufferSize)
	e.SetParameter(ParamMidType, 1)
	assert.Equal(t, MidBandpass, e.tone.midType)
	e.SetParameter(ParamMidType, 0)
	assert.Equal(t, MidPeak, e.tone.midType)
}

func TestModelInputSize_ReflectsDefaultModel(t *testing.T) {
	e := NewEngine(48000, 64)
	assert.Equal(t, 1, e.ModelInputSize())
}
