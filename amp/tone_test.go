package amp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToneStack_ZeroGainIsNearIdentity(t *testing.T) {
	const sampleRate = 48000
	ts := newToneStack(sampleRate)

	// Settle filter state, then compare against a pass-through reference.
	var maxDiff float64
	for i := 0; i < 2000; i++ {
		x := math.Sin(2 * math.Pi * 440 * float64(i) / sampleRate)
		y := ts.process(x)
		if d := math.Abs(y - x); i > 200 && d > maxDiff {
			maxDiff = d
		}
	}
	assert.Less(t, maxDiff, 0.05)
}

func TestToneStack_BandpassModeBypassesOtherBands(t *testing.T) {
	const sampleRate = 48000
	ts := newToneStack(sampleRate)
	ts.setMidType(MidBandpass)
	assert.Equal(t, MidBandpass, ts.midType)
	ts.setBass(8, 150, 0.707)
	ts.setTreble(8, 2000, 0.707)
	ts.setDepth(8)
	ts.setPresence(8)

	// A bandpass-mode stack with every other band at 0 dB must give the same
	// output: only the mid bandpass runs.
	ref := newToneStack(sampleRate)
	ref.setMidType(MidBandpass)

	for i := 0; i < 512; i++ {
		x := math.Sin(2 * math.Pi * 800 * float64(i) / sampleRate)
		y := ts.process(x)
		assert.False(t, math.IsNaN(y) || math.IsInf(y, 0))
		assert.Equal(t, ref.process(x), y)
	}
}

func TestFixedFilter_DCBlockerRemovesOffset(t *testing.T) {
	const sampleRate = 48000
	f := newDCBlockFilter(sampleRate)
	var last float64
	for i := 0; i < sampleRate; i++ {
		last = f.process(1.0)
	}
	assert.Less(t, math.Abs(last), 1e-2)
}
