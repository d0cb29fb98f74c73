package nodes

import (
	"math"
	"strconv"

	"github.com/dudk/tonegraph"
)

// Constant outputs the same value every tick.
type Constant struct {
	V float32
}

// NewConstant returns a constant stream source.
func NewConstant(v float32) tonegraph.Descriptor {
	return tonegraph.Descriptor{
		Type:      "constant",
		Outputs:   []tonegraph.EndpointSpec{tonegraph.StreamEndpoint("out")},
		Processor: &Constant{V: v},
	}
}

// Process implements tonegraph.Processor.
func (p *Constant) Process(c *tonegraph.Context) {
	c.Set(0, p.V)
}

// Sine is a sine oscillator with frequency and amplitude inputs.
type Sine struct {
	phase    float64
	interval float64
}

// NewSine returns an oscillator.
func NewSine(freq, amp float32) tonegraph.Descriptor {
	return tonegraph.Descriptor{
		Type: "sine",
		Inputs: []tonegraph.EndpointSpec{
			tonegraph.ValueEndpoint("freq", freq),
			tonegraph.ValueEndpoint("amp", amp),
		},
		Outputs:   []tonegraph.EndpointSpec{tonegraph.StreamEndpoint("out")},
		Processor: &Sine{},
	}
}

// Init implements tonegraph.Initializer.
func (p *Sine) Init(sampleRate float32) {
	p.phase = 0
	p.interval = 1 / float64(sampleRate)
}

// Process implements tonegraph.Processor.
func (p *Sine) Process(c *tonegraph.Context) {
	c.Set(0, c.Value(1)*float32(math.Sin(2*math.Pi*p.phase)))
	p.phase += float64(c.Value(0)) * p.interval
	p.phase -= math.Floor(p.phase)
}

// Lowpass is a one-pole lowpass filter. Output never exceeds the peak of
// its input.
type Lowpass struct {
	y float32
}

// NewLowpass returns a filter with cutoff frequency input.
func NewLowpass(cutoff float32) tonegraph.Descriptor {
	return tonegraph.Descriptor{
		Type: "lowpass",
		Inputs: []tonegraph.EndpointSpec{
			tonegraph.StreamEndpoint("in"),
			tonegraph.ValueEndpoint("cutoff", cutoff),
		},
		Outputs:   []tonegraph.EndpointSpec{tonegraph.StreamEndpoint("out")},
		Processor: &Lowpass{},
	}
}

// Process implements tonegraph.Processor.
func (p *Lowpass) Process(c *tonegraph.Context) {
	a := float32(1 - math.Exp(-2*math.Pi*float64(c.Value(1))/float64(c.SampleRate())))
	if a > 1 {
		a = 1
	}
	if a < 0 {
		a = 0
	}
	p.y += a * (c.Stream(0) - p.y)
	c.Set(0, p.y)
}

// Gain multiplies stream by value input.
type Gain struct{}

// NewGain returns a gain stage.
func NewGain(gain float32) tonegraph.Descriptor {
	return tonegraph.Descriptor{
		Type: "gain",
		Inputs: []tonegraph.EndpointSpec{
			tonegraph.StreamEndpoint("in"),
			tonegraph.ValueEndpoint("gain", gain),
		},
		Outputs:   []tonegraph.EndpointSpec{tonegraph.StreamEndpoint("out")},
		Processor: &Gain{},
	}
}

// Process implements tonegraph.Processor.
func (Gain) Process(c *tonegraph.Context) {
	c.Set(0, c.Stream(0)*c.Value(1))
}

// Multiply outputs the product of streams a and b.
type Multiply struct{}

// NewMultiply returns a ring modulator, also used as a VCA.
func NewMultiply() tonegraph.Descriptor {
	return tonegraph.Descriptor{
		Type: "multiply",
		Inputs: []tonegraph.EndpointSpec{
			tonegraph.StreamEndpoint("a"),
			tonegraph.StreamEndpoint("b"),
		},
		Outputs:   []tonegraph.EndpointSpec{tonegraph.StreamEndpoint("out")},
		Processor: &Multiply{},
	}
}

// Process implements tonegraph.Processor.
func (Multiply) Process(c *tonegraph.Context) {
	c.Set(0, c.Stream(0)*c.Stream(1))
}

// Mixer sums its inputs named in1, in2 and so on.
type Mixer struct {
	n int
}

// NewMixer returns a mixer with n inputs.
func NewMixer(n int) tonegraph.Descriptor {
	inputs := make([]tonegraph.EndpointSpec, n)
	for i := range inputs {
		inputs[i] = tonegraph.StreamEndpoint("in" + strconv.Itoa(i+1))
	}
	return tonegraph.Descriptor{
		Type:      "mixer",
		Inputs:    inputs,
		Outputs:   []tonegraph.EndpointSpec{tonegraph.StreamEndpoint("out")},
		Processor: &Mixer{n: n},
	}
}

// Process implements tonegraph.Processor.
func (p *Mixer) Process(c *tonegraph.Context) {
	var sum float32
	for i := 0; i < p.n; i++ {
		sum += c.Stream(i)
	}
	c.Set(0, sum)
}

// Delay outputs its input delayed by fixed number of frames.
type Delay struct {
	buf []float32
	pos int
}

// NewDelay returns a delay line.
func NewDelay(frames int) tonegraph.Descriptor {
	if frames < 1 {
		frames = 1
	}
	return tonegraph.Descriptor{
		Type:      "delay",
		Inputs:    []tonegraph.EndpointSpec{tonegraph.StreamEndpoint("in")},
		Outputs:   []tonegraph.EndpointSpec{tonegraph.StreamEndpoint("out")},
		Processor: &Delay{buf: make([]float32, frames)},
	}
}

// Process implements tonegraph.Processor.
func (p *Delay) Process(c *tonegraph.Context) {
	c.Set(0, p.buf[p.pos])
	p.buf[p.pos] = c.Stream(0)
	p.pos++
	if p.pos == len(p.buf) {
		p.pos = 0
	}
}

// Transform applies a function to the stream.
type Transform struct {
	Fn func(float32) float32
}

// NewTransform returns a node that maps input with fn.
func NewTransform(fn func(float32) float32) tonegraph.Descriptor {
	return tonegraph.Descriptor{
		Type:      "transform",
		Inputs:    []tonegraph.EndpointSpec{tonegraph.StreamEndpoint("in")},
		Outputs:   []tonegraph.EndpointSpec{tonegraph.StreamEndpoint("out")},
		Processor: &Transform{Fn: fn},
	}
}

// Process implements tonegraph.Processor.
func (p *Transform) Process(c *tonegraph.Context) {
	c.Set(0, p.Fn(c.Stream(0)))
}

// Combine merges two streams with a function.
type Combine struct {
	Fn func(a, b float32) float32
}

// NewCombine returns a node with inputs a and b.
func NewCombine(fn func(a, b float32) float32) tonegraph.Descriptor {
	return tonegraph.Descriptor{
		Type: "combine",
		Inputs: []tonegraph.EndpointSpec{
			tonegraph.StreamEndpoint("a"),
			tonegraph.StreamEndpoint("b"),
		},
		Outputs:   []tonegraph.EndpointSpec{tonegraph.StreamEndpoint("out")},
		Processor: &Combine{Fn: fn},
	}
}

// Process implements tonegraph.Processor.
func (p *Combine) Process(c *tonegraph.Context) {
	c.Set(0, p.Fn(c.Stream(0), c.Stream(1)))
}
