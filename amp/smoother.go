package amp

import "github.com/cwbudde/algo-approx"

// LinearSmoother ramps current toward target by a fixed per-sample step,
// reaching target in exactly tau seconds and then holding it exactly.
type LinearSmoother struct {
	current    float32
	target     float32
	step       float32
	tau        float32
	sampleRate float32
}

// NewLinearSmoother creates a smoother with the given ramp time constant.
func NewLinearSmoother(sampleRate, tau, initial float32) *LinearSmoother {
	return &LinearSmoother{
		current:    initial,
		target:     initial,
		tau:        tau,
		sampleRate: sampleRate,
	}
}

// SetTarget updates the ramp target and recomputes the per-sample step.
func (s *LinearSmoother) SetTarget(t float32) {
	if t == s.target {
		return
	}
	s.target = t
	denom := s.tau * s.sampleRate
	if denom <= 0 {
		s.step = 0
		return
	}
	s.step = (s.target - s.current) / denom
}

// SetSampleRate updates the sample rate used for step recomputation on the
// next SetTarget call, and immediately recomputes the in-flight step so an
// ongoing ramp keeps its remaining duration roughly constant.
func (s *LinearSmoother) SetSampleRate(sampleRate float32) {
	if sampleRate <= 0 {
		s.step = 0
	} else if s.sampleRate > 0 {
		s.step *= s.sampleRate / sampleRate
	}
	s.sampleRate = sampleRate
}

// Next advances current toward target by at most one step and returns it.
func (s *LinearSmoother) Next() float32 {
	if s.current == s.target {
		return s.current
	}
	s.current += s.step
	if (s.step > 0 && s.current > s.target) || (s.step < 0 && s.current < s.target) {
		s.current = s.target
	}
	return s.current
}

// ClearToTarget snaps current to target immediately.
func (s *LinearSmoother) ClearToTarget() {
	s.current = s.target
}

// Current returns the smoother's current value without advancing it.
func (s *LinearSmoother) Current() float32 {
	return s.current
}

// ExpSmoother is a one-pole low-pass toward target with time constant tau.
// Used for gains where overshoot-free decay is acceptable.
type ExpSmoother struct {
	current    float32
	target     float32
	coef       float32
	tau        float32
	sampleRate float32
}

// NewExpSmoother creates an exponential smoother with the given tau.
func NewExpSmoother(sampleRate, tau, initial float32) *ExpSmoother {
	s := &ExpSmoother{
		current:    initial,
		target:     initial,
		tau:        tau,
		sampleRate: sampleRate,
	}
	s.recomputeCoef()
	return s
}

func (s *ExpSmoother) recomputeCoef() {
	if s.tau <= 0 || s.sampleRate <= 0 {
		s.coef = 0
		return
	}
	// coef = exp(-1 / (tau * sampleRate)); FastExp keeps this allocation
	// and branch free for reuse on the audio thread's setup path.
	s.coef = approx.FastExp(-1.0 / (s.tau * s.sampleRate))
}

// SetTarget updates the convergence target.
func (s *ExpSmoother) SetTarget(t float32) {
	s.target = t
}

// SetSampleRate updates the sample rate and recomputes the pole coefficient.
func (s *ExpSmoother) SetSampleRate(sampleRate float32) {
	s.sampleRate = sampleRate
	s.recomputeCoef()
}

// Next advances current one pole-step toward target and returns it.
func (s *ExpSmoother) Next() float32 {
	s.current = s.target + s.coef*(s.current-s.target)
	return s.current
}

// ClearToTarget snaps current to target immediately.
func (s *ExpSmoother) ClearToTarget() {
	s.current = s.target
}

// Current returns the smoother's current value without advancing it.
func (s *ExpSmoother) Current() float32 {
	return s.current
}

// dbToCoef maps a dB gain to a linear coefficient, collapsing anything at or
// below -90 dB to exactly zero.
func dbToCoef(gainDB float32) float32 {
	if gainDB <= -90 {
		return 0
	}
	// 10^(g/20) = exp(g/20 * ln(10))
	const ln10 = 2.302585092994046
	return approx.FastExp(gainDB / 20.0 * ln10)
}
