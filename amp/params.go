package amp

// ParameterID enumerates the plugin's parameter surface (spec §6). Ranges
// and units are documented per-constant; SetParameter maps each id to its
// side effect on the tone block, smoothers, or flags.
type ParameterID int

const (
	ParamAntialiasing ParameterID = iota // 0-100 %, input LPF cutoff
	ParamPreGain                         // -12..+3 dB
	ParamNetBypass                       // bool
	ParamEQBypass                        // bool
	ParamEQPos                           // int {0,1}: 0=Post, 1=Pre
	ParamBass                            // -8..+8 dB
	ParamBassFreq                        // 75-600 Hz
	ParamMid                             // -8..+8 dB
	ParamMidFreq                         // 150-5000 Hz
	ParamMidQ                            // 0.2-5
	ParamMidType                         // int {0,1}: 0=Peak, 1=Bandpass
	ParamTreble                          // -8..+8 dB
	ParamTrebleFreq                      // 1000-4000 Hz
	ParamDepth                           // -8..+8 dB, fixed 75 Hz
	ParamPresence                        // -8..+8 dB, fixed 900 Hz
	ParamMaster                          // -15..+15 dB
	ParamCabsimBypass                    // bool, smoothed
	ParamBypass                          // bool, smoothed global bypass
	ParamParam1                          // 0-1, conditioning input
	ParamParam2                          // 0-1, conditioning input

	// Output-only parameters, published by the engine rather than consumed.
	ParamModelInputSize // 0-3
	ParamMeterIn        // 0-2 linear
	ParamMeterOut       // 0-2 linear

	paramCount
)

const (
	kCabinetMaxGain     = 0.251 // ~-12 dB, the resolved cabinet gain-compensation constant
	kCabinetBypassGain  = 0.0
	kCabinetEnabledGain = kCabinetMaxGain
)

func boolFromFloat(v float32) bool { return v >= 0.5 }

func floatFromBool(b bool) float32 {
	if b {
		return 1
	}
	return 0
}

// SetParameter applies one parameter value as a pure (id, float) -> side
// effect mapping. Output-only ids are accepted but ignored:
// the engine is the sole writer of its own published meters/model size.
func (e *Engine) SetParameter(id ParameterID, value float32) {
	switch id {
	case ParamAntialiasing:
		e.antialiasPct = clampf(value, 0, 100)
		e.recomputeAntialias()
	case ParamPreGain:
		e.preGain.SetTarget(dbToCoef(clampf(value, -12, 3)))
	case ParamNetBypass:
		e.netBypass = boolFromFloat(value)
	case ParamEQBypass:
		e.tone.eqBypass = boolFromFloat(value)
	case ParamEQPos:
		if value >= 0.5 {
			e.tone.eqPos = EQPre
		} else {
			e.tone.eqPos = EQPost
		}
	case ParamBass:
		e.bassGainDB = clampf(value, -8, 8)
		e.tone.setBass(e.bassGainDB, e.bassFreqHz, 0.707)
	case ParamBassFreq:
		e.bassFreqHz = clampf(value, 75, 600)
		e.tone.setBass(e.bassGainDB, e.bassFreqHz, 0.707)
	case ParamMid:
		e.midGainDB = clampf(value, -8, 8)
		e.tone.setMid(e.midGainDB, e.midFreqHz, e.midQ)
	case ParamMidFreq:
		e.midFreqHz = clampf(value, 150, 5000)
		e.tone.setMid(e.midGainDB, e.midFreqHz, e.midQ)
	case ParamMidQ:
		e.midQ = clampf(value, 0.2, 5)
		e.tone.setMid(e.midGainDB, e.midFreqHz, e.midQ)
	case ParamMidType:
		if value >= 0.5 {
			e.tone.setMidType(MidBandpass)
		} else {
			e.tone.setMidType(MidPeak)
		}
	case ParamTreble:
		e.trebleGainDB = clampf(value, -8, 8)
		e.tone.setTreble(e.trebleGainDB, e.trebleFreqHz, 0.707)
	case ParamTrebleFreq:
		e.trebleFreqHz = clampf(value, 1000, 4000)
		e.tone.setTreble(e.trebleGainDB, e.trebleFreqHz, 0.707)
	case ParamDepth:
		e.tone.setDepth(clampf(value, -8, 8))
	case ParamPresence:
		e.tone.setPresence(clampf(value, -8, 8))
	case ParamMaster:
		e.masterGain.SetTarget(dbToCoef(clampf(value, -15, 15)))
	case ParamCabsimBypass:
		if boolFromFloat(value) {
			e.cabsimGain.SetTarget(kCabinetBypassGain)
		} else {
			e.cabsimGain.SetTarget(kCabinetEnabledGain)
		}
	case ParamBypass:
		// Bypass=true mixes in the dry bypass_buf fully (crossfade gain 0);
		// Bypass=false runs the fully processed signal (crossfade gain 1).
		if boolFromFloat(value) {
			e.bypassGain.SetTarget(0)
		} else {
			e.bypassGain.SetTarget(1)
		}
	case ParamParam1:
		e.param1.SetTarget(clampf(value, 0, 1))
	case ParamParam2:
		e.param2.SetTarget(clampf(value, 0, 1))
	}
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
