package cabinet

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewConvolver_IdentityPassesThroughWithinLatency(t *testing.T) {
	c := NewConvolver(48000, 64)
	in := make([]float32, 64)
	for i := range in {
		in[i] = float32(math.Sin(2 * math.Pi * 1000 * float64(i) / 48000))
	}
	out := c.Process(in)
	assert.Equal(t, len(in), len(out))
	for i := range in {
		assert.InDelta(t, in[i], out[i], 1e-5)
	}
}

func TestSetIR_ShortIRSkipsWorker(t *testing.T) {
	c := NewConvolver(48000, HeadBlockSize)
	ir := make([]float32, 2000)
	ir[0] = 1
	assert.NoError(t, c.SetIR(ir))
	assert.False(t, c.Running())
	assert.NoError(t, c.Close())
}

func TestSetIR_LongIRStartsWorker(t *testing.T) {
	c := NewConvolver(48000, HeadBlockSize)
	ir := make([]float32, 8192)
	ir[0] = 1
	assert.NoError(t, c.SetIR(ir))
	assert.True(t, c.Running())
	assert.NoError(t, c.Close())
	assert.False(t, c.Running())
}

func TestProcess_FiniteOutputForLongIR(t *testing.T) {
	c := NewConvolver(48000, HeadBlockSize)
	ir := make([]float32, 8192)
	ir[0] = 1
	assert.NoError(t, c.SetIR(ir))
	defer c.Close()

	for block := 0; block < 64; block++ {
		in := make([]float32, HeadBlockSize)
		if block == 0 {
			in[0] = 1
		}
		out := c.Process(in)
		for _, v := range out {
			assert.False(t, math.IsNaN(float64(v)) || math.IsInf(float64(v), 0), "non-finite output")
		}
	}
}

func TestSanityCheck_RejectsZeroIR(t *testing.T) {
	err := SanityCheck(make([]float32, 256))
	assert.Error(t, err)
}

func TestSanityCheck_RejectsNaN(t *testing.T) {
	ir := make([]float32, 256)
	ir[10] = float32(math.NaN())
	err := SanityCheck(ir)
	assert.Error(t, err)
}

func TestDefaultIR_IsSaneAndNonZero(t *testing.T) {
	ir := DefaultIR(48000)
	assert.NoError(t, SanityCheck(ir))
	assert.Greater(t, len(ir), 0)
}

func TestIsFLACPath(t *testing.T) {
	assert.True(t, isFLACPath("cab.FLAC"))
	assert.True(t, isFLACPath("cab.flac"))
	assert.False(t, isFLACPath("cab.wav"))
}
