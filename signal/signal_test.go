package signal_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dudk/tonegraph/signal"
)

func TestInterIntAsFloat32(t *testing.T) {
	tests := []struct {
		name     string
		ints     signal.InterInt
		expected signal.Float32
	}{
		{
			name:     "empty",
			ints:     signal.InterInt{NumChannels: 2, BitDepth: signal.BitDepth16},
			expected: nil,
		},
		{
			name: "stereo",
			ints: signal.InterInt{
				Data:        []int{32767, -32767, 0, 0},
				NumChannels: 2,
				BitDepth:    signal.BitDepth16,
			},
			expected: signal.Float32{{1, 0}, {-1, 0}},
		},
		{
			name: "uneven",
			ints: signal.InterInt{
				Data:        []int{127, 127, 127},
				NumChannels: 2,
				BitDepth:    signal.BitDepth8,
			},
			expected: signal.Float32{{1, 1}, {1, 0}},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, test.ints.AsFloat32())
		})
	}
}

func TestFloat32AsInterInt(t *testing.T) {
	floats := signal.Float32{{1, 0.5, 2}, {-1, -0.5, -2}}
	ints := floats.AsInterInt(signal.BitDepth16, nil)
	assert.Equal(t, []int{32767, -32767, 16384, -16384, 32767, -32767}, ints)

	dst := make([]int, 0, 16)
	ints = signal.Float32{{0.25}}.AsInterInt(signal.BitDepth8, dst)
	assert.Equal(t, []int{32}, ints)
	assert.Equal(t, 16, cap(ints))

	assert.Empty(t, signal.Float32(nil).AsInterInt(signal.BitDepth16, nil))
}

func TestMono(t *testing.T) {
	assert.Nil(t, signal.Float32(nil).Mono())
	assert.Equal(t, []float32{1, 2}, signal.Float32{{1, 2}}.Mono())
	assert.Equal(t, []float32{0.5, 0}, signal.Float32{{1, 1}, {0, -1}}.Mono())
	assert.Equal(t, 2, signal.Float32{{1, 1}, {0, -1}}.Size())
}

func TestParseBitDepth(t *testing.T) {
	b, err := signal.ParseBitDepth(24)
	assert.NoError(t, err)
	assert.Equal(t, signal.BitDepth24, b)
	_, err = signal.ParseBitDepth(12)
	assert.Error(t, err)
}
