// Package portaudio plays rendered graphs on the default output device.
package portaudio

import (
	"context"
	"errors"

	"github.com/gordonklaus/portaudio"
)

// Renderer fills a block of samples.
type Renderer interface {
	ProcessBlock([]float32) int
}

// Sink represents portaudio sink which allows to play audio using default
// device. Audio is mono.
type Sink struct {
	buf        []float32
	stream     *portaudio.Stream
	sampleRate int
	blockSize  int
}

// NewSink returns new sink. Open must be called before writing.
func NewSink(sampleRate, blockSize int) *Sink {
	return &Sink{
		sampleRate: sampleRate,
		blockSize:  blockSize,
	}
}

// Open initializes portaudio api and starts the default stream.
func (s *Sink) Open() error {
	s.buf = make([]float32, s.blockSize)
	if err := portaudio.Initialize(); err != nil {
		return err
	}
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(s.sampleRate), s.blockSize, &s.buf)
	if err != nil {
		return errors.Join(err, portaudio.Terminate())
	}
	if err := stream.Start(); err != nil {
		return errors.Join(err, stream.Close(), portaudio.Terminate())
	}
	s.stream = stream
	return nil
}

// Write blocks until samples are played. Samples beyond the block size
// are ignored.
func (s *Sink) Write(samples []float32) error {
	n := copy(s.buf, samples)
	clear(s.buf[n:])
	return s.stream.Write()
}

// Close stops the stream and terminates portaudio structures.
func (s *Sink) Close() error {
	if s.stream == nil {
		return nil
	}
	err := s.stream.Stop()
	if cerr := s.stream.Close(); err == nil {
		err = cerr
	}
	s.stream = nil
	if terr := portaudio.Terminate(); err == nil {
		err = terr
	}
	return err
}

// Play renders r block by block into the sink until ctx is done.
func Play(ctx context.Context, r Renderer, s *Sink) error {
	if err := s.Open(); err != nil {
		return err
	}
	block := make([]float32, s.blockSize)
	for {
		select {
		case <-ctx.Done():
			return s.Close()
		default:
		}
		n := r.ProcessBlock(block)
		if err := s.Write(block[:n]); err != nil {
			return errors.Join(err, s.Close())
		}
	}
}
