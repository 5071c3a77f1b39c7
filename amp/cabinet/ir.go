package cabinet

import (
	"fmt"
	"io"
	"os"
	"strings"

	dspresample "github.com/cwbudde/algo-dsp/dsp/resample"
	algofft "github.com/cwbudde/algo-fft"
	"github.com/cwbudde/wav"
	"github.com/mewkiz/flac"
)

// LoadError carries a load-error kind for IR loading: malformed or
// unreadable files never disturb the currently published convolver.
type LoadError struct {
	Kind string
	Err  error
}

func (e *LoadError) Error() string { return fmt.Sprintf("ir %s: %v", e.Kind, e.Err) }
func (e *LoadError) Unwrap() error { return e.Err }

func newLoadError(kind string, err error) *LoadError {
	return &LoadError{Kind: kind, Err: err}
}

// isFLACPath detects FLAC files by extension, case-insensitive: the last
// five bytes of the path must equal ".flac".
func isFLACPath(path string) bool {
	if len(path) < 5 {
		return false
	}
	return strings.EqualFold(path[len(path)-5:], ".flac")
}

// LoadIRFile reads a mono/multi-channel WAV or FLAC file, downmixes to the
// first channel, and resamples to sampleRate if needed.
func LoadIRFile(path string, sampleRate int) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, newLoadError("open_failed", err)
	}
	defer f.Close()

	var mono []float32
	var srcRate int
	if isFLACPath(path) {
		mono, srcRate, err = decodeFLAC(f)
	} else {
		mono, srcRate, err = decodeWAV(f)
	}
	if err != nil {
		return nil, err
	}

	mono, err = resampleIfNeeded(mono, srcRate, sampleRate)
	if err != nil {
		return nil, newLoadError("resample_failed", err)
	}
	if err := SanityCheck(mono); err != nil {
		return nil, err
	}
	return mono, nil
}

func decodeWAV(f *os.File) ([]float32, int, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, newLoadError("decode_failed", fmt.Errorf("invalid wav file"))
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, newLoadError("decode_failed", err)
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, 0, newLoadError("decode_failed", fmt.Errorf("invalid wav buffer"))
	}
	numCh := buf.Format.NumChannels
	srcRate := buf.Format.SampleRate
	if srcRate <= 0 {
		return nil, 0, newLoadError("decode_failed", fmt.Errorf("invalid wav sample rate %d", srcRate))
	}
	frames := len(buf.Data) / numCh
	if frames == 0 {
		return nil, 0, newLoadError("decode_failed", fmt.Errorf("empty wav data"))
	}
	mono := make([]float32, frames)
	for i := 0; i < frames; i++ {
		mono[i] = buf.Data[i*numCh] // downmix: first channel only
	}
	return mono, srcRate, nil
}

func decodeFLAC(r io.Reader) ([]float32, int, error) {
	stream, err := flac.Parse(r)
	if err != nil {
		return nil, 0, newLoadError("decode_failed", err)
	}
	defer stream.Close()

	srcRate := int(stream.Info.SampleRate)
	if srcRate <= 0 {
		return nil, 0, newLoadError("decode_failed", fmt.Errorf("invalid flac sample rate"))
	}
	scale := float32(int64(1) << (stream.Info.BitsPerSample - 1))
	if scale <= 0 {
		scale = 1
	}

	var mono []float32
	for {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, newLoadError("decode_failed", err)
		}
		n := len(frame.Subframes[0].Samples)
		for i := 0; i < n; i++ {
			mono = append(mono, float32(frame.Subframes[0].Samples[i])/scale) // downmix: first channel
		}
	}
	if len(mono) == 0 {
		return nil, 0, newLoadError("decode_failed", fmt.Errorf("empty flac stream"))
	}
	return mono, srcRate, nil
}

func resampleIfNeeded(in []float32, srcRate, dstRate int) ([]float32, error) {
	if srcRate == dstRate || srcRate <= 0 {
		return in, nil
	}
	r, err := dspresample.NewForRates(
		float64(srcRate),
		float64(dstRate),
		dspresample.WithQuality(dspresample.QualityBest),
	)
	if err != nil {
		return nil, err
	}
	in64 := make([]float64, len(in))
	for i, v := range in {
		in64[i] = float64(v)
	}
	out64 := r.Process(in64)
	out := make([]float32, len(out64))
	for i, v := range out64 {
		out[i] = float32(v)
	}
	return out, nil
}

// SanityCheck rejects an all-zero or non-finite IR before it reaches the
// hot-swap publisher: amplitude checks first, then a total spectral-energy
// pass over algo-fft that rejects a zero-energy spectrum.
func SanityCheck(ir []float32) error {
	if len(ir) == 0 {
		return newLoadError("degenerate", fmt.Errorf("empty impulse response"))
	}
	peak := float32(0)
	for _, v := range ir {
		if v != v || v > 3.4e38 || v < -3.4e38 {
			return newLoadError("degenerate", fmt.Errorf("non-finite sample in impulse response"))
		}
		if a := abs32(v); a > peak {
			peak = a
		}
	}
	if peak == 0 {
		return newLoadError("degenerate", fmt.Errorf("all-zero impulse response"))
	}

	n := nextPow2(len(ir))
	padded := make([]float64, n)
	for i, v := range ir {
		padded[i] = float64(v)
	}
	plan, err := algofft.NewFastPlanReal64(n)
	if err != nil {
		// No spectral plan available for this size; amplitude checks above
		// already caught the cases that matter.
		return nil
	}
	spectrum := make([]complex128, n/2+1)
	if err := plan.Forward(spectrum, padded); err != nil {
		return nil
	}
	var den float64
	for _, c := range spectrum {
		den += abs128(c)
	}
	if den == 0 {
		return newLoadError("degenerate", fmt.Errorf("zero-energy spectrum"))
	}
	return nil
}

func abs32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

func abs128(c complex128) float64 {
	re, im := real(c), imag(c)
	return re*re + im*im
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	if p < 2 {
		p = 2
	}
	return p
}
