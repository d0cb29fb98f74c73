package wav_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dudk/tonegraph/signal"
	"github.com/dudk/tonegraph/wav"
)

func sine(n int) []float32 {
	result := make([]float32, n)
	for i := range result {
		result[i] = float32(0.8 * math.Sin(2*math.Pi*float64(i)/64))
	}
	return result
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		bitDepth signal.BitDepth
		delta    float64
	}{
		{bitDepth: signal.BitDepth16, delta: 1.0 / 32767},
		{bitDepth: signal.BitDepth24, delta: 1.0 / 8388607},
		{bitDepth: signal.BitDepth32, delta: 1e-6},
	}
	samples := sine(1000)
	for _, test := range tests {
		path := filepath.Join(t.TempDir(), "out.wav")
		sink, err := wav.Create(path, 44100, test.bitDepth)
		require.NoError(t, err)
		require.NoError(t, sink.Write(samples[:512]))
		require.NoError(t, sink.Write(samples[512:]))
		require.NoError(t, sink.Write(nil))
		assert.Equal(t, len(samples), sink.Frames())
		require.NoError(t, sink.Close())

		clip, err := wav.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, 44100, clip.SampleRate)
		require.Len(t, clip.Samples, len(samples))
		for i := range samples {
			assert.InDelta(t, samples[i], clip.Samples[i], test.delta)
		}
	}
}

func TestDecodeStereo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	e := gowav.NewEncoder(f, 48000, 16, 2, 1)
	require.NoError(t, e.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: 48000},
		Data:           []int{32767, 0, 32767, -32767, 0, 0},
		SourceBitDepth: 16,
	}))
	require.NoError(t, e.Close())
	require.NoError(t, f.Close())

	clip, err := wav.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 48000, clip.SampleRate)
	assert.Equal(t, []float32{0.5, 0, 0}, clip.Samples)
}

func TestSource(t *testing.T) {
	s := (&wav.Clip{Samples: []float32{0.1, 0.2}}).Source()
	assert.False(t, s.Done())
	assert.Equal(t, float32(0.1), s.Next())
	assert.Equal(t, float32(0.2), s.Next())
	assert.True(t, s.Done())
	assert.Equal(t, float32(0), s.Next())
}

func TestErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := wav.Create(filepath.Join(dir, "out.wav"), 44100, signal.BitDepth8)
	assert.ErrorIs(t, err, wav.ErrUnsupportedBitDepth)
	_, err = wav.ReadFile(filepath.Join(dir, "missing.wav"))
	assert.Error(t, err)

	garbage := filepath.Join(dir, "garbage.wav")
	require.NoError(t, os.WriteFile(garbage, []byte("definitely not a riff file"), 0o644))
	_, err = wav.ReadFile(garbage)
	assert.Error(t, err)
}
