// Package amp implements the real-time guitar amplifier emulator core: the
// audio processing graph, tone stack, parameter/state surfaces, and the
// hot-swap glue connecting it to the neural model and cabinet convolver.
package amp

import (
	"math"

	"github.com/cwbudde/algo-amp/amp/cabinet"
	"github.com/cwbudde/algo-amp/amp/hotswap"
	"github.com/cwbudde/algo-amp/amp/model"
)

// Engine is the plugin's process-lifetime state: parameters, sample rate,
// buffer size, and every DSP-owning object reachable from Process.
type Engine struct {
	sampleRate int
	bufferSize int

	tone            *toneStack
	antialias       *fixedFilter
	dcBlock         *fixedFilter
	antialiasPct    float32
	bassGainDB, bassFreqHz       float32
	midGainDB, midFreqHz, midQ   float32
	trebleGainDB, trebleFreqHz   float32

	preGain    *ExpSmoother
	masterGain *ExpSmoother
	cabsimGain *ExpSmoother
	bypassGain *ExpSmoother
	param1     *LinearSmoother
	param2     *LinearSmoother

	netBypass bool

	modelSlot     hotswap.Slot[model.Dynamic]
	convolverSlot hotswap.Slot[cabinet.Convolver]
	modelPath     string
	cabinetPath   string

	loopPlayer *LoopPlayer

	meters *Meters

	bypassBuf []float32
	cabBuf    []float32
	loopBuf   []float32
}

// NewEngine constructs an engine at the given sample rate and maximum
// per-call buffer size, with the embedded default model and cabinet IR
// already published.
func NewEngine(sampleRate, bufferSize int) *Engine {
	e := &Engine{
		sampleRate:   sampleRate,
		antialiasPct: 100,
		bassFreqHz:   150,
		midFreqHz:    800,
		midQ:         0.707,
		trebleFreqHz: 2000,
	}
	e.tone = newToneStack(float64(sampleRate))
	e.antialias = newAntialiasFilter(float64(sampleRate), antialiasCutoffHz(100, sampleRate))
	e.dcBlock = newDCBlockFilter(float64(sampleRate))

	// Spec §4.2/§4.1 runs PARAM1/PARAM2 conditioning through linear, not
	// exponential, smoothers: see DESIGN.md's "Open Questions resolved".
	e.preGain = NewExpSmoother(float32(sampleRate), 1.0, 1.0)
	e.masterGain = NewExpSmoother(float32(sampleRate), 1.0, 1.0)
	e.cabsimGain = NewExpSmoother(float32(sampleRate), 0.1, kCabinetEnabledGain)
	e.bypassGain = NewExpSmoother(float32(sampleRate), 0.25, 1.0)
	e.param1 = NewLinearSmoother(float32(sampleRate), 0.1, 0.0)
	e.param2 = NewLinearSmoother(float32(sampleRate), 0.1, 0.0)

	e.meters = newMeters(sampleRate)

	e.bufferSize = bufferSize
	e.bypassBuf = make([]float32, bufferSize)
	e.cabBuf = make([]float32, bufferSize)
	e.loopBuf = make([]float32, bufferSize)

	if err := e.loadModelState(""); err != nil {
		panic(err) // the embedded default descriptor is a compile-time constant
	}
	if err := e.loadCabinetState(""); err != nil {
		panic(err) // the synthesized default IR must always pass SanityCheck
	}

	return e
}

func antialiasCutoffHz(pct float32, sampleRate int) float64 {
	frac := clampf(pct, 0, 100) / 100
	lo, hi := float32(0.25), float32(0.99)
	ratio := lo + (hi-lo)*frac
	return float64(ratio) * float64(sampleRate) / 2
}

func (e *Engine) recomputeAntialias() {
	e.antialias.setLowpass(antialiasCutoffHz(e.antialiasPct, e.sampleRate))
}

// OnBufferSizeChange reallocates the scratch buffers used by Process. The
// cabinet convolver's own scratch is sized to bufferSize too (spec §3: "
// buffer_size ... determines scratch-buffer capacity"), so it is rebuilt and
// republished through the ordinary hot-swap path rather than mutated in
// place while the audio thread might still be reading it.
func (e *Engine) OnBufferSizeChange(bufferSize int) {
	e.bufferSize = bufferSize
	e.bypassBuf = make([]float32, bufferSize)
	e.cabBuf = make([]float32, bufferSize)
	e.loopBuf = make([]float32, bufferSize)
	_ = e.loadCabinetState(e.cabinetPath)
}

// OnSampleRateChange recomputes every biquad, resets smoother sample rates,
// recomputes the meter publish threshold, and reloads the current cabinet
// IR (from its cached path, or the embedded default).
func (e *Engine) OnSampleRateChange(sampleRate int) {
	e.sampleRate = sampleRate
	e.tone.setSampleRate(float64(sampleRate))
	e.antialias = newAntialiasFilter(float64(sampleRate), antialiasCutoffHz(e.antialiasPct, sampleRate))
	e.dcBlock = newDCBlockFilter(float64(sampleRate))

	e.preGain.SetSampleRate(float32(sampleRate))
	e.masterGain.SetSampleRate(float32(sampleRate))
	e.cabsimGain.SetSampleRate(float32(sampleRate))
	e.bypassGain.SetSampleRate(float32(sampleRate))
	e.param1.SetSampleRate(float32(sampleRate))
	e.param2.SetSampleRate(float32(sampleRate))

	e.meters.setSampleRate(sampleRate)
	e.meters.requestReset()

	_ = e.loadCabinetState(e.cabinetPath)
}

// Process runs the full per-buffer audio pipeline: dry copy, input peak,
// antialias, pre-gain, pre-EQ, neural model, DC block, cabinet
// convolution, post-EQ, master gain, global bypass crossfade, and meter
// publish. It writes one mono output; ProcessStereo does the mono->stereo
// duplication.
func (e *Engine) Process(in []float32, out []float32) {
	n := len(in)
	if n == 0 {
		return
	}
	bypassBuf := e.bypassBuf[:n]
	cabBuf := e.cabBuf[:n]

	copy(bypassBuf, in)

	var peakIn float32
	for _, s := range bypassBuf {
		if a := absf(s); a > peakIn {
			peakIn = a
		}
	}

	for i := 0; i < n; i++ {
		x := float64(bypassBuf[i])
		x = e.antialias.process(x)
		x = flushDenormal(x)
		out[i] = float32(x)
	}

	for i := 0; i < n; i++ {
		out[i] *= e.preGain.Next()
	}

	if !e.tone.eqBypass && e.tone.eqPos == EQPre {
		e.runTone(out)
	}

	if !e.netBypass {
		if dyn := e.modelSlot.Acquire(); dyn != nil {
			for i := 0; i < n; i++ {
				out[i] = dyn.Forward(out[i], e.param1.Next(), e.param2.Next())
			}
			e.modelSlot.Release()
		}
	}

	for i := 0; i < n; i++ {
		x := e.dcBlock.process(float64(out[i]))
		out[i] = float32(flushDenormal(x))
	}

	if conv := e.convolverSlot.Acquire(); conv != nil {
		copy(cabBuf, out[:n])
		wet := conv.Process(cabBuf)
		e.convolverSlot.Release()
		const kMax = kCabinetMaxGain
		for i := 0; i < n; i++ {
			b := e.cabsimGain.Next()
			out[i] = wet[i]*b + cabBuf[i]*((kMax-b)/kMax)
		}
	}

	if !e.tone.eqBypass && e.tone.eqPos == EQPost {
		e.runTone(out)
	}

	for i := 0; i < n; i++ {
		out[i] *= e.masterGain.Next()
	}

	var peakOut float32
	for i := 0; i < n; i++ {
		b := e.bypassGain.Next()
		out[i] = out[i]*b + bypassBuf[i]*(1-b)
		if a := absf(out[i]); a > peakOut {
			peakOut = a
		}
	}

	e.meters.update(peakIn, peakOut, n)
}

// ProcessStereo runs Process and duplicates a mono result across two
// output channels, for hosts that always expect a stereo pair.
func (e *Engine) ProcessStereo(in []float32, outL, outR []float32) {
	e.Process(in, outL)
	copy(outR, outL)
}

// ProcessLoop runs the standalone input-less variant: the dry buffer is
// sourced from the looped audio-file player, with wraparound, instead of
// from a host input (spec §3 audio-file data model, §4.5 step 2). If no
// file has been loaded via SetState("audiofile", ...), it feeds silence.
func (e *Engine) ProcessLoop(out []float32) {
	n := len(out)
	loopBuf := e.loopBuf[:n]
	if e.loopPlayer != nil {
		e.loopPlayer.Fill(loopBuf)
	} else {
		for i := range loopBuf {
			loopBuf[i] = 0
		}
	}
	e.Process(loopBuf, out)
}

func (e *Engine) runTone(buf []float32) {
	for i, s := range buf {
		x := e.tone.process(float64(s))
		buf[i] = float32(flushDenormal(x))
	}
}

func absf(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

// MeterIn and MeterOut expose the engine's published peak meters.
func (e *Engine) MeterIn() float32  { return e.meters.MeterIn() }
func (e *Engine) MeterOut() float32 { return e.meters.MeterOut() }

// ModelInputSize reports the dispatch width of the currently published
// model: 0 if none is loaded, otherwise 1-3.
func (e *Engine) ModelInputSize() int {
	dyn := e.modelSlot.Current()
	if dyn == nil || dyn.Variant == nil {
		return 0
	}
	return dyn.Variant.InputSize()
}

func isFiniteFloat(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
