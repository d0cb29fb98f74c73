// Package wav reads and writes mono wav files for rendered graphs.
package wav

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/dudk/tonegraph/signal"
)

// ErrUnsupportedBitDepth is returned when unsupported bit depth is used.
var ErrUnsupportedBitDepth = errors.New("only 16, 24 and 32 bit depth is supported")

// pcmFormat is integer PCM audio format code.
const pcmFormat = 1

func supported(b signal.BitDepth) bool {
	return b == signal.BitDepth16 || b == signal.BitDepth24 || b == signal.BitDepth32
}

// Clip is decoded audio. Channels are averaged into one.
type Clip struct {
	SampleRate int
	Samples    []float32
}

// ReadFile decodes wav file.
func ReadFile(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	c, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Decode reads whole wav stream into memory.
func Decode(r io.ReadSeeker) (*Clip, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		if err := decoder.Err(); err != nil {
			return nil, fmt.Errorf("wav is not valid: %w", err)
		}
		return nil, errors.New("wav is not valid")
	}
	bitDepth := signal.BitDepth(decoder.BitDepth)
	if !supported(bitDepth) {
		return nil, ErrUnsupportedBitDepth
	}
	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	floats := signal.InterInt{
		Data:        buf.Data,
		NumChannels: buf.Format.NumChannels,
		BitDepth:    bitDepth,
	}.AsFloat32()
	return &Clip{
		SampleRate: int(decoder.SampleRate),
		Samples:    floats.Mono(),
	}, nil
}

// Source feeds clip to a graph input one sample at a time. It returns
// silence after the end of the clip.
type Source struct {
	clip *Clip
	pos  int
}

// Source returns a new source reading from the start of the clip.
func (c *Clip) Source() *Source {
	return &Source{clip: c}
}

// Next returns the next sample.
func (s *Source) Next() float32 {
	if s.pos >= len(s.clip.Samples) {
		return 0
	}
	v := s.clip.Samples[s.pos]
	s.pos++
	return v
}

// Done reports whether every sample of the clip was read.
func (s *Source) Done() bool {
	return s.pos >= len(s.clip.Samples)
}

// Sink encodes mono samples into wav.
type Sink struct {
	encoder  *wav.Encoder
	closer   io.Closer
	buf      *audio.IntBuffer
	channel  signal.Float32
	bitDepth signal.BitDepth
	frames   int
}

// NewSink creates a sink writing into w. Close must be called to
// finalize headers, w itself is not closed.
func NewSink(w io.WriteSeeker, sampleRate int, bitDepth signal.BitDepth) (*Sink, error) {
	if !supported(bitDepth) {
		return nil, ErrUnsupportedBitDepth
	}
	return &Sink{
		encoder: wav.NewEncoder(w, sampleRate, int(bitDepth), 1, pcmFormat),
		buf: &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: 1,
				SampleRate:  sampleRate,
			},
			SourceBitDepth: int(bitDepth),
		},
		channel:  make(signal.Float32, 1),
		bitDepth: bitDepth,
	}, nil
}

// Create creates the file and a sink writing into it. The file is closed
// with the sink.
func Create(path string, sampleRate int, bitDepth signal.BitDepth) (*Sink, error) {
	if !supported(bitDepth) {
		return nil, ErrUnsupportedBitDepth
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	s, err := NewSink(f, sampleRate, bitDepth)
	if err != nil {
		f.Close()
		return nil, err
	}
	s.closer = f
	return s, nil
}

// Write encodes samples.
func (s *Sink) Write(samples []float32) error {
	if len(samples) == 0 {
		return nil
	}
	s.channel[0] = samples
	s.buf.Data = s.channel.AsInterInt(s.bitDepth, s.buf.Data)
	s.frames += len(samples)
	return s.encoder.Write(s.buf)
}

// Frames returns number of written samples.
func (s *Sink) Frames() int {
	return s.frames
}

// Close finalizes wav headers.
func (s *Sink) Close() error {
	err := s.encoder.Close()
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
