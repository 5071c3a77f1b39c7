package amp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestLinearSmoother_ReachesTargetInExactlyTauSeconds(t *testing.T) {
	const sampleRate, tau = 48000.0, 0.1
	s := NewLinearSmoother(sampleRate, tau, 0)
	s.SetTarget(1)

	n := int(tau * sampleRate)
	var last float32
	for i := 0; i < n; i++ {
		last = s.Next()
	}
	assert.InDelta(t, 1.0, last, 1e-4)
	// Holds exactly once reached, regardless of further calls.
	for i := 0; i < 10; i++ {
		last = s.Next()
	}
	assert.Equal(t, float32(1), last)
}

func TestLinearSmoother_ClearToTargetSnapsImmediately(t *testing.T) {
	s := NewLinearSmoother(48000, 1.0, 0)
	s.SetTarget(5)
	s.ClearToTarget()
	assert.Equal(t, float32(5), s.Current())
}

func TestExpSmoother_MonotonicApproachToHigherTarget(t *testing.T) {
	s := NewExpSmoother(48000, 0.05, 0)
	s.SetTarget(1)
	prev := float32(-1)
	// 48000 samples is 1 s, i.e. 20 time constants at tau=0.05s.
	for i := 0; i < 48000; i++ {
		v := s.Next()
		assert.GreaterOrEqual(t, v, prev)
		prev = v
	}
	assert.InDelta(t, 1.0, prev, 1e-3)
}

func TestExpSmoother_NeverOvershoots(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		initial := rapid.Float32Range(-10, 10).Draw(rt, "initial")
		target := rapid.Float32Range(-10, 10).Draw(rt, "target")
		tau := rapid.Float32Range(0.001, 2).Draw(rt, "tau")
		s := NewExpSmoother(48000, tau, initial)
		s.SetTarget(target)

		lo, hi := initial, target
		if lo > hi {
			lo, hi = hi, lo
		}
		for i := 0; i < 1000; i++ {
			v := s.Next()
			assert.True(rt, v >= lo-1e-3 && v <= hi+1e-3)
		}
	})
}

func TestDbToCoef_FloorsDeepAttenuationToZero(t *testing.T) {
	assert.Equal(t, float32(0), dbToCoef(-90))
	assert.Equal(t, float32(0), dbToCoef(-120))
	assert.InDelta(t, 1.0, float64(dbToCoef(0)), 1e-3)
}

func TestDbToCoef_MatchesStandardFormula(t *testing.T) {
	for _, db := range []float32{-40, -20, -6, -3, 0, 3, 6} {
		want := math.Pow(10, float64(db)/20)
		assert.InDelta(t, want, float64(dbToCoef(db)), want*0.01+1e-6)
	}
}
