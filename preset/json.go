// Package preset loads the amplifier's full parameter and state surface
// from a JSON file and applies it on top of a running engine.
package preset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/cwbudde/algo-amp/amp"
)

// File is the JSON schema for amp presets. Every field is optional: a
// preset only needs to name the parameters it wants to override, and
// everything else is left at the engine's current value.
type File struct {
	Antialiasing *float32 `json:"antialiasing"`
	PreGain      *float32 `json:"pre_gain_db"`
	NetBypass    *bool    `json:"net_bypass"`
	EQBypass     *bool    `json:"eq_bypass"`
	EQPre        *bool    `json:"eq_pre"`
	Bass         *float32 `json:"bass_db"`
	BassFreq     *float32 `json:"bass_freq_hz"`
	Mid          *float32 `json:"mid_db"`
	MidFreq      *float32 `json:"mid_freq_hz"`
	MidQ         *float32 `json:"mid_q"`
	MidBandpass  *bool    `json:"mid_bandpass"`
	Treble       *float32 `json:"treble_db"`
	TrebleFreq   *float32 `json:"treble_freq_hz"`
	Depth        *float32 `json:"depth_db"`
	Presence     *float32 `json:"presence_db"`
	Master       *float32 `json:"master_db"`
	CabsimBypass *bool    `json:"cabsim_bypass"`
	Bypass       *bool    `json:"bypass"`
	Param1       *float32 `json:"param1"`
	Param2       *float32 `json:"param2"`

	ModelPath   string `json:"model_path"`
	CabinetPath string `json:"cabinet_path"`
}

// LoadJSON reads a preset file and applies it to the engine. Paths to a
// model or cabinet IR are resolved relative to the preset file's own
// directory when they are not already absolute.
func LoadJSON(e *amp.Engine, path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		log.Error("preset read failed", "path", path, "err", err)
		return nil, err
	}

	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		log.Error("preset descriptor invalid", "path", path, "err", err)
		return nil, err
	}

	base := filepath.Dir(path)
	if f.ModelPath != "" && f.ModelPath != "default" && !filepath.IsAbs(f.ModelPath) {
		f.ModelPath = filepath.Clean(filepath.Join(base, f.ModelPath))
	}
	if f.CabinetPath != "" && f.CabinetPath != "default" && !filepath.IsAbs(f.CabinetPath) {
		f.CabinetPath = filepath.Clean(filepath.Join(base, f.CabinetPath))
	}

	if err := Apply(e, &f); err != nil {
		log.Error("preset apply failed", "path", path, "err", err)
		return nil, err
	}
	log.Debug("preset applied", "path", path)
	return &f, nil
}

// Apply pushes every field set in f onto e via the engine's parameter and
// state surfaces, and returns the first error it meets. An out-of-range
// antialiasing or mid_q value stops Apply before the fields after it. Every
// parameter field is applied before the state loads, so a bad model or
// cabinet path does not keep the parameters from taking effect; a failed
// model load returns before the cabinet path is loaded.
func Apply(e *amp.Engine, f *File) error {
	if e == nil {
		return fmt.Errorf("nil destination engine")
	}
	if f == nil {
		return nil
	}

	if f.Antialiasing != nil {
		if *f.Antialiasing < 0 || *f.Antialiasing > 100 {
			return fmt.Errorf("antialiasing must be in 0..100")
		}
		e.SetParameter(amp.ParamAntialiasing, *f.Antialiasing)
	}
	if f.PreGain != nil {
		e.SetParameter(amp.ParamPreGain, *f.PreGain)
	}
	if f.NetBypass != nil {
		e.SetParameter(amp.ParamNetBypass, boolToFloat(*f.NetBypass))
	}
	if f.EQBypass != nil {
		e.SetParameter(amp.ParamEQBypass, boolToFloat(*f.EQBypass))
	}
	if f.EQPre != nil {
		e.SetParameter(amp.ParamEQPos, boolToFloat(*f.EQPre))
	}
	if f.Bass != nil {
		e.SetParameter(amp.ParamBass, *f.Bass)
	}
	if f.BassFreq != nil {
		e.SetParameter(amp.ParamBassFreq, *f.BassFreq)
	}
	if f.Mid != nil {
		e.SetParameter(amp.ParamMid, *f.Mid)
	}
	if f.MidFreq != nil {
		e.SetParameter(amp.ParamMidFreq, *f.MidFreq)
	}
	if f.MidQ != nil {
		if *f.MidQ <= 0 {
			return fmt.Errorf("mid_q must be > 0")
		}
		e.SetParameter(amp.ParamMidQ, *f.MidQ)
	}
	if f.MidBandpass != nil {
		e.SetParameter(amp.ParamMidType, boolToFloat(*f.MidBandpass))
	}
	if f.Treble != nil {
		e.SetParameter(amp.ParamTreble, *f.Treble)
	}
	if f.TrebleFreq != nil {
		e.SetParameter(amp.ParamTrebleFreq, *f.TrebleFreq)
	}
	if f.Depth != nil {
		e.SetParameter(amp.ParamDepth, *f.Depth)
	}
	if f.Presence != nil {
		e.SetParameter(amp.ParamPresence, *f.Presence)
	}
	if f.Master != nil {
		e.SetParameter(amp.ParamMaster, *f.Master)
	}
	if f.CabsimBypass != nil {
		e.SetParameter(amp.ParamCabsimBypass, boolToFloat(*f.CabsimBypass))
	}
	if f.Bypass != nil {
		e.SetParameter(amp.ParamBypass, boolToFloat(*f.Bypass))
	}
	if f.Param1 != nil {
		e.SetParameter(amp.ParamParam1, *f.Param1)
	}
	if f.Param2 != nil {
		e.SetParameter(amp.ParamParam2, *f.Param2)
	}

	if f.ModelPath != "" {
		if err := e.SetState("json", f.ModelPath); err != nil {
			return fmt.Errorf("model_path %q: %w", f.ModelPath, err)
		}
	}
	if f.CabinetPath != "" {
		if err := e.SetState("cabinet", f.CabinetPath); err != nil {
			return fmt.Errorf("cabinet_path %q: %w", f.CabinetPath, err)
		}
	}
	return nil
}

// SaveJSON snapshots every field of f (typically populated by the caller
// from its own cached parameter state) to path as indented JSON.
func SaveJSON(f *File, path string) error {
	b, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func boolToFloat(b bool) float32 {
	if b {
		return 1
	}
	return 0
}
