package amp

import (
	"os"

	"github.com/charmbracelet/log"

	"github.com/cwbudde/algo-amp/amp/cabinet"
	"github.com/cwbudde/algo-amp/amp/model"
)

// SetState dispatches a state key to a loader, which runs to completion on
// the calling control thread before SetState returns, or to the meter-reset
// flag, per the spec's state surface (§6). Load failures are logged and
// leave the currently published resource unchanged.
func (e *Engine) SetState(key, value string) error {
	switch key {
	case "json":
		return e.loadModelState(value)
	case "cabinet":
		return e.loadCabinetState(value)
	case "audiofile":
		return e.loadAudioFileState(value)
	case "reset-meters":
		e.requestMeterReset()
		return nil
	}
	return nil
}

func (e *Engine) loadModelState(path string) error {
	var data []byte
	var err error
	if path == "" || path == "default" {
		data = []byte(model.DefaultDescriptorJSON)
	} else {
		data, err = os.ReadFile(path)
		if err != nil {
			log.Error("model load failed", "path", path, "err", err)
			return err
		}
	}

	desc, err := model.ParseDescriptor(data)
	if err != nil {
		log.Error("model descriptor invalid", "path", path, "err", err)
		return err
	}
	dyn, err := model.Build(desc)
	if err != nil {
		log.Error("model identification failed", "path", path, "err", err)
		return err
	}

	e.prewarmModel(dyn)
	old := e.modelSlot.Publish(dyn)
	if old != nil {
		log.Debug("model discarded after hot-swap", "path", path)
	}
	e.modelPath = path
	return nil
}

func (e *Engine) loadCabinetState(path string) error {
	conv := cabinet.NewConvolver(e.sampleRate, e.bufferSize)
	var err error
	if path == "" || path == "default" {
		err = conv.SetIR(cabinet.DefaultIR(e.sampleRate))
	} else {
		var ir []float32
		ir, err = cabinet.LoadIRFile(path, e.sampleRate)
		if err == nil {
			err = conv.SetIR(ir)
		}
	}
	if err != nil {
		log.Error("cabinet load failed", "path", path, "err", err)
		return err
	}

	e.prewarmConvolver(conv)
	old := e.convolverSlot.Publish(conv)
	if old != nil {
		if closeErr := old.Close(); closeErr != nil {
			log.Error("convolver teardown error", "err", closeErr)
		}
	}
	e.cabinetPath = path
	return nil
}

func (e *Engine) loadAudioFileState(path string) error {
	lp, err := NewLoopPlayer(path)
	if err != nil {
		log.Error("audio file load failed", "path", path, "err", err)
		return err
	}
	e.loopPlayer = lp
	return nil
}

func (e *Engine) requestMeterReset() {
	e.meters.requestReset()
}

// prewarmModel runs the new model over a throwaway zero buffer to stabilize
// internal state and fault in code paths before publication, per the
// publish protocol's pre-warm step.
func (e *Engine) prewarmModel(dyn *model.Dynamic) {
	const prewarmLen = 2048
	for i := 0; i < prewarmLen; i++ {
		dyn.Forward(0, 0, 0)
	}
	dyn.Reset()
}

// prewarmConvolver feeds 2048 zero samples through the new convolver in
// bufferSize-sized calls, the largest block its scratch was sized for.
func (e *Engine) prewarmConvolver(conv *cabinet.Convolver) {
	const prewarmLen = 2048
	block := e.bufferSize
	if block < 1 {
		block = 1
	}
	buf := make([]float32, block)
	for done := 0; done < prewarmLen; done += block {
		conv.Process(buf)
	}
	conv.Reset()
}
