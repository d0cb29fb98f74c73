// Package signal converts between float samples and integer PCM. Float
// samples are in range [-1, 1], values outside are clipped.
package signal

import (
	"fmt"
	"math"
)

// BitDepth is a number of bits per integer sample.
type BitDepth int

const (
	// BitDepth8 is 8 bit depth.
	BitDepth8 = BitDepth(8)
	// BitDepth16 is 16 bit depth.
	BitDepth16 = BitDepth(16)
	// BitDepth24 is 24 bit depth.
	BitDepth24 = BitDepth(24)
	// BitDepth32 is 32 bit depth.
	BitDepth32 = BitDepth(32)
)

// ParseBitDepth validates bit depth.
func ParseBitDepth(n int) (BitDepth, error) {
	switch b := BitDepth(n); b {
	case BitDepth8, BitDepth16, BitDepth24, BitDepth32:
		return b, nil
	}
	return 0, fmt.Errorf("unsupported bit depth %d", n)
}

// scale is used for int-to-float and backward conversion.
func (b BitDepth) scale() float64 {
	if b < BitDepth8 || b > BitDepth32 {
		return 1
	}
	return float64(int64(1)<<(b-1) - 1)
}

// Float32 is a non-interleaved float32 signal.
type Float32 [][]float32

// InterInt is an interleaved int signal.
type InterInt struct {
	Data        []int
	NumChannels int
	BitDepth
}

// AsFloat32 converts interleaved int signal to float32.
func (ints InterInt) AsFloat32() Float32 {
	if ints.Data == nil || ints.NumChannels == 0 {
		return nil
	}
	floats := make([][]float32, ints.NumChannels)
	size := int(math.Ceil(float64(len(ints.Data)) / float64(ints.NumChannels)))
	scale := ints.BitDepth.scale()
	for i := range floats {
		floats[i] = make([]float32, size)
		pos := 0
		for j := i; j < len(ints.Data); j += ints.NumChannels {
			floats[i][pos] = float32(float64(ints.Data[j]) / scale)
			pos++
		}
	}
	return floats
}

// NumChannels returns number of channels in the signal.
func (floats Float32) NumChannels() int {
	return len(floats)
}

// Size returns number of samples in single channel.
func (floats Float32) Size() int {
	if floats.NumChannels() == 0 {
		return 0
	}
	return len(floats[0])
}

// Mono averages channels into one.
func (floats Float32) Mono() []float32 {
	switch floats.NumChannels() {
	case 0:
		return nil
	case 1:
		return floats[0]
	}
	result := make([]float32, floats.Size())
	n := float32(floats.NumChannels())
	for i := range result {
		var sum float32
		for _, channel := range floats {
			sum += channel[i]
		}
		result[i] = sum / n
	}
	return result
}

// AsInterInt converts float32 signal to interleaved int. Result is
// written into dst if it has enough capacity.
func (floats Float32) AsInterInt(bitDepth BitDepth, dst []int) []int {
	numChannels := floats.NumChannels()
	if numChannels == 0 {
		return dst[:0]
	}
	size := floats.Size() * numChannels
	if cap(dst) < size {
		dst = make([]int, size)
	}
	dst = dst[:size]
	scale := bitDepth.scale()
	for j := range floats {
		for i, v := range floats[j] {
			dst[i*numChannels+j] = int(math.Round(float64(clip(v)) * scale))
		}
	}
	return dst
}

func clip(v float32) float32 {
	switch {
	case v > 1:
		return 1
	case v < -1:
		return -1
	}
	return v
}
