package nodes

import "github.com/dudk/tonegraph"

// Metronome emits scalar 1 on its event output at fixed tempo. The first
// tick is emitted at frame zero.
type Metronome struct {
	bpm      float32
	interval int
	counter  int
}

// NewMetronome returns a metronome running at bpm beats per minute.
func NewMetronome(bpm float32) tonegraph.Descriptor {
	return tonegraph.Descriptor{
		Type:      "metronome",
		Outputs:   []tonegraph.EndpointSpec{tonegraph.EventEndpoint("tick")},
		Processor: &Metronome{bpm: bpm},
	}
}

// Init implements tonegraph.Initializer.
func (p *Metronome) Init(sampleRate float32) {
	p.counter = 0
	p.interval = int(sampleRate * 60 / p.bpm)
	if p.interval < 1 {
		p.interval = 1
	}
}

// Process implements tonegraph.Processor.
func (p *Metronome) Process(c *tonegraph.Context) {
	if p.counter == 0 {
		c.Emit(0, tonegraph.Scalar(1))
	}
	p.counter++
	if p.counter >= p.interval {
		p.counter = 0
	}
}

// Counter counts events received on its input.
type Counter struct {
	n float32
}

// NewCounter returns a counter processed at provided rate.
func NewCounter(rate tonegraph.Rate) tonegraph.Descriptor {
	return tonegraph.Descriptor{
		Type:      "counter",
		Inputs:    []tonegraph.EndpointSpec{tonegraph.EventEndpoint("in")},
		Outputs:   []tonegraph.EndpointSpec{{Name: "count", Kind: tonegraph.Value}},
		Rate:      rate,
		Processor: &Counter{},
	}
}

// Process implements tonegraph.Processor.
func (p *Counter) Process(c *tonegraph.Context) {
	p.n += float32(len(c.Events(0)))
	c.Set(0, p.n)
}

// Gate opens its stream output on events with positive scalar and closes
// it on the rest.
type Gate struct {
	level float32
}

// NewGate returns a gate.
func NewGate() tonegraph.Descriptor {
	return tonegraph.Descriptor{
		Type:      "gate",
		Inputs:    []tonegraph.EndpointSpec{tonegraph.EventEndpoint("gate")},
		Outputs:   []tonegraph.EndpointSpec{tonegraph.StreamEndpoint("out")},
		Processor: &Gate{},
	}
}

// Process implements tonegraph.Processor.
func (p *Gate) Process(c *tonegraph.Context) {
	for _, e := range c.Events(0) {
		if e.Payload.Scalar() > 0 {
			p.level = 1
		} else {
			p.level = 0
		}
	}
	c.Set(0, p.level)
}

// Passthrough forwards events keeping their offsets.
type Passthrough struct{}

// NewPassthrough returns an event passthrough.
func NewPassthrough() tonegraph.Descriptor {
	return tonegraph.Descriptor{
		Type:      "passthrough",
		Inputs:    []tonegraph.EndpointSpec{tonegraph.EventEndpoint("in")},
		Outputs:   []tonegraph.EndpointSpec{tonegraph.EventEndpoint("out")},
		Processor: &Passthrough{},
	}
}

// Process implements tonegraph.Processor.
func (Passthrough) Process(c *tonegraph.Context) {
	for _, e := range c.Events(0) {
		c.EmitAt(0, e.Offset, e.Payload)
	}
}
