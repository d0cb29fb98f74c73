// Package mock provides mocks for graph nodes and allows to execute
// integration tests.
package mock

import "github.com/dudk/tonegraph"

// Source mocks a stream source. Value can be changed between ticks.
type Source struct {
	counter
	Value float32
	Hooks
}

// Node returns descriptor of the source.
func (m *Source) Node(name string) tonegraph.Descriptor {
	return tonegraph.Descriptor{
		Name:      name,
		Type:      "mock.source",
		Outputs:   []tonegraph.EndpointSpec{tonegraph.StreamEndpoint("out")},
		Processor: m,
	}
}

// Init implements tonegraph.Initializer.
func (m *Source) Init(sampleRate float32) {
	m.initialize(sampleRate)
}

// Process implements tonegraph.Processor.
func (m *Source) Process(c *tonegraph.Context) {
	m.advance(c)
	c.Set(0, m.Value)
}

// Recorder records what arrives to its stream, value and event inputs.
type Recorder struct {
	counter
	// Rate is a rate of the recorder node.
	Rate tonegraph.Rate
	// Default is a default of value input.
	Default float32
	// Ramp is a ramp length of value input.
	Ramp    int
	Streams []float32
	Values  []float32
	Events  []Received
	Hooks
}

// Received is an event with the frame it was seen at.
type Received struct {
	Frame int
	tonegraph.EventInstance
}

// Node returns descriptor of the recorder. Inputs are "stream", "value"
// and "events". Output "out" repeats stream input.
func (m *Recorder) Node(name string) tonegraph.Descriptor {
	return tonegraph.Descriptor{
		Name: name,
		Type: "mock.recorder",
		Inputs: []tonegraph.EndpointSpec{
			tonegraph.StreamEndpoint("stream"),
			{Name: "value", Kind: tonegraph.Value, Default: m.Default, Ramp: m.Ramp},
			tonegraph.EventEndpoint("events"),
		},
		Outputs:   []tonegraph.EndpointSpec{tonegraph.StreamEndpoint("out")},
		Rate:      m.Rate,
		Processor: m,
	}
}

// Init implements tonegraph.Initializer.
func (m *Recorder) Init(sampleRate float32) {
	m.initialize(sampleRate)
}

// Process implements tonegraph.Processor.
func (m *Recorder) Process(c *tonegraph.Context) {
	m.advance(c)
	m.Streams = append(m.Streams, c.Stream(0))
	m.Values = append(m.Values, c.Value(1))
	for _, e := range c.Events(2) {
		m.Events = append(m.Events, Received{Frame: c.Frame(), EventInstance: e})
	}
	c.Set(0, c.Stream(0))
}

// Payloads returns scalars of received events.
func (m *Recorder) Payloads() []float32 {
	result := make([]float32, 0, len(m.Events))
	for _, e := range m.Events {
		result = append(result, e.Payload.Scalar())
	}
	return result
}

// Emission is an event scheduled for a call of emitter.
type Emission struct {
	Call   int
	Offset int
	Value  float32
}

// Emitter emits scheduled events from its event output "out". Emissions
// for the same call are emitted in declaration order.
type Emitter struct {
	counter
	Schedule []Emission
	// Rejected counts events emitter failed to emit.
	Rejected int
	Hooks
}

// Node returns descriptor of the emitter.
func (m *Emitter) Node(name string) tonegraph.Descriptor {
	return tonegraph.Descriptor{
		Name:      name,
		Type:      "mock.emitter",
		Outputs:   []tonegraph.EndpointSpec{tonegraph.EventEndpoint("out")},
		Processor: m,
	}
}

// Init implements tonegraph.Initializer.
func (m *Emitter) Init(sampleRate float32) {
	m.initialize(sampleRate)
}

// Process implements tonegraph.Processor.
func (m *Emitter) Process(c *tonegraph.Context) {
	call := m.calls
	m.advance(c)
	for _, e := range m.Schedule {
		if e.Call != call {
			continue
		}
		if !c.EmitAt(0, e.Offset, tonegraph.Scalar(e.Value)) {
			m.Rejected++
		}
	}
}

// Hooks allows to check initialization.
type Hooks struct {
	Initialized bool
	SampleRate  float32
}

func (h *Hooks) initialize(sampleRate float32) {
	h.Initialized = true
	h.SampleRate = sampleRate
}

// counter counts calls and frames.
type counter struct {
	calls  int
	frames []int
}

// advance counter's metrics.
func (c *counter) advance(ctx *tonegraph.Context) {
	c.calls++
	c.frames = append(c.frames, ctx.Frame())
}

// Calls returns number of processing calls.
func (c *counter) Calls() int {
	return c.calls
}

// Frames returns frames of every processing call.
func (c *counter) Frames() []int {
	return c.frames
}
