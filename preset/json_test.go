package preset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cwbudde/algo-amp/amp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply_SetsOnlyProvidedFields(t *testing.T) {
	e := amp.NewEngine(48000, 64)
	bass := float32(4)
	master := float32(-6)
	f := &File{Bass: &bass, Master: &master}

	require.NoError(t, Apply(e, f))
	// No direct getters exist on Engine for these; Apply not erroring and
	// not panicking on a partially-populated file is the contract under
	// test here, since the parameter surface is write-only by design.
}

func TestApply_RejectsInvalidMidQ(t *testing.T) {
	e := amp.NewEngine(48000, 64)
	bad := float32(-1)
	f := &File{MidQ: &bad}
	assert.Error(t, Apply(e, f))
}

func TestApply_RejectsInvalidAntialiasing(t *testing.T) {
	e := amp.NewEngine(48000, 64)
	bad := float32(150)
	f := &File{Antialiasing: &bad}
	assert.Error(t, Apply(e, f))
}

func TestApply_NilFileIsNoop(t *testing.T) {
	e := amp.NewEngine(48000, 64)
	assert.NoError(t, Apply(e, nil))
}

func TestLoadJSON_ResolvesRelativeModelPath(t *testing.T) {
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "model.json")
	require.NoError(t, os.WriteFile(modelPath, []byte(defaultModelJSON()), 0o644))

	presetPath := filepath.Join(dir, "preset.json")
	content := `{"bass_db": 2, "model_path": "model.json"}`
	require.NoError(t, os.WriteFile(presetPath, []byte(content), 0o644))

	e := amp.NewEngine(48000, 64)
	f, err := LoadJSON(e, presetPath)
	require.NoError(t, err)
	assert.Equal(t, modelPath, f.ModelPath)
}

func TestSaveJSON_RoundTripsThroughDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")
	bass := float32(3)
	require.NoError(t, SaveJSON(&File{Bass: &bass}, path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "bass_db")
}

func defaultModelJSON() string {
	return `{
  "in_shape": [1, 1],
  "in_skip": 1,
  "in_gain": 0,
  "out_gain": 0,
  "layers": [
    {"type": "gru", "shape": [1, 8]},
    {"type": "dense", "shape": [1, 1]}
  ]
}`
}
