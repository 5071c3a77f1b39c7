// Command ampsim-render offline-renders a mono WAV file through the
// amplifier engine, for preset auditioning and regression capture without a
// host plugin shell.
package main

import (
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/charmbracelet/log"
	algofft "github.com/cwbudde/algo-fft"
	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"

	"github.com/cwbudde/algo-amp/amp"
	"github.com/cwbudde/algo-amp/preset"
)

func main() {
	input := flag.String("input", "", "Input mono WAV file path (required)")
	output := flag.String("output", "output.wav", "Output WAV file path")
	presetPath := flag.String("preset", "", "Preset JSON file path (optional)")
	bufferSize := flag.Int("buffer-size", 128, "Process block size in frames")
	spectralReport := flag.Bool("spectral-report", false, "Print a coarse spectral energy summary of the rendered output")
	flag.Parse()

	if *input == "" {
		log.Fatal("-input is required")
	}

	in, sampleRate, err := readMonoWAV(*input)
	if err != nil {
		log.Fatal("failed to read input wav", "path", *input, "err", err)
	}

	e := amp.NewEngine(sampleRate, *bufferSize)
	if *presetPath != "" {
		if _, err := preset.LoadJSON(e, *presetPath); err != nil {
			log.Fatal("failed to load preset", "path", *presetPath, "err", err)
		}
	}

	out := make([]float32, len(in))
	inBlock := make([]float32, *bufferSize)
	outBlock := make([]float32, *bufferSize)
	for start := 0; start < len(in); start += *bufferSize {
		end := start + *bufferSize
		if end > len(in) {
			end = len(in)
		}
		n := end - start
		copy(inBlock[:n], in[start:end])
		for i := n; i < *bufferSize; i++ {
			inBlock[i] = 0
		}
		e.Process(inBlock[:*bufferSize], outBlock[:*bufferSize])
		copy(out[start:end], outBlock[:n])
	}

	if err := writeMonoWAV(*output, out, sampleRate); err != nil {
		log.Fatal("failed to write output wav", "path", *output, "err", err)
	}
	log.Info("render complete", "path", *output, "frames", len(out), "sample_rate", sampleRate)

	if *spectralReport {
		if err := printSpectralReport(out, sampleRate); err != nil {
			log.Error("spectral report failed", "err", err)
		}
	}
}

func readMonoWAV(path string) ([]float32, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("invalid wav file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, err
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, 0, fmt.Errorf("invalid wav buffer")
	}
	numCh := buf.Format.NumChannels
	frames := len(buf.Data) / numCh
	mono := make([]float32, frames)
	for i := 0; i < frames; i++ {
		mono[i] = buf.Data[i*numCh]
	}
	return mono, buf.Format.SampleRate, nil
}

func writeMonoWAV(path string, samples []float32, sampleRate int) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := wav.NewEncoder(file, sampleRate, 16, 1, 1)
	defer encoder.Close()

	buf := &audio.Float32Buffer{
		Format: &audio.Format{
			SampleRate:  sampleRate,
			NumChannels: 1,
		},
		Data:           samples,
		SourceBitDepth: 16,
	}
	return encoder.Write(buf)
}

// printSpectralReport prints the energy in a handful of coarse bands, using
// the same real-input FFT plan as the cabinet IR sanity check.
func printSpectralReport(samples []float32, sampleRate int) error {
	n := nextPow2(len(samples))
	if n < 2 {
		return fmt.Errorf("signal too short for spectral analysis")
	}
	padded := make([]float64, n)
	for i, s := range samples {
		padded[i] = float64(s)
	}

	plan, err := algofft.NewFastPlanReal64(n)
	if err != nil {
		return err
	}
	spectrum := make([]complex128, n/2+1)
	if err := plan.Forward(spectrum, padded); err != nil {
		return err
	}

	bands := []struct {
		name     string
		lo, hi   float64
	}{
		{"low (0-200Hz)", 0, 200},
		{"mid (200-2kHz)", 200, 2000},
		{"high (2k-8kHz)", 2000, 8000},
		{"air (8k+)", 8000, math.Inf(1)},
	}
	binHz := float64(sampleRate) / float64(n)

	energies := make([]float64, len(bands))
	for k, c := range spectrum {
		freq := float64(k) * binHz
		mag := real(c)*real(c) + imag(c)*imag(c)
		for i, b := range bands {
			if freq >= b.lo && freq < b.hi {
				energies[i] += mag
			}
		}
	}
	for i, b := range bands {
		fmt.Printf("%-16s %.3e\n", b.name, energies[i])
	}
	return nil
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
