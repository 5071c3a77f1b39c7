package amp

// flushDenormal collapses subnormal floats to exact zero. Denormal avoidance
// is a platform concern on architectures where subnormals trap to microcode;
// Process calls this on every state-carrying filter output each sample.
func flushDenormal(x float64) float64 {
	const epsilon = 1e-30
	if x > -epsilon && x < epsilon {
		return 0.0
	}
	return x
}
