package amp

import (
	"fmt"
	"os"

	"github.com/cwbudde/wav"
)

// LoopPlayer feeds the standalone, input-less variant from a looped mono
// audio file, per the spec's standalone-only audio file data model.
type LoopPlayer struct {
	buffer      []float32
	currentFrame int
}

// NewLoopPlayer loads a WAV file fully into memory and downmixes it to mono.
func NewLoopPlayer(path string) (*LoopPlayer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid wav file: %s", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, fmt.Errorf("invalid wav buffer: %s", path)
	}
	numCh := buf.Format.NumChannels
	frames := len(buf.Data) / numCh
	if frames == 0 {
		return nil, fmt.Errorf("empty wav data: %s", path)
	}
	mono := make([]float32, frames)
	for i := 0; i < frames; i++ {
		mono[i] = buf.Data[i*numCh]
	}
	return &LoopPlayer{buffer: mono}, nil
}

// Fill writes n samples into dst, wrapping around NumFrames.
func (p *LoopPlayer) Fill(dst []float32) {
	if len(p.buffer) == 0 {
		for i := range dst {
			dst[i] = 0
		}
		return
	}
	for i := range dst {
		dst[i] = p.buffer[p.currentFrame]
		p.currentFrame++
		if p.currentFrame >= len(p.buffer) {
			p.currentFrame = 0
		}
	}
}

// NumFrames reports the loop's total frame count.
func (p *LoopPlayer) NumFrames() int { return len(p.buffer) }
