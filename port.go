package tonegraph

import "fmt"

// PortProcessor moves data across graph boundary. Graph-level inputs and
// outputs are nodes processed by it.
type PortProcessor struct {
	kind Kind
	dir  Direction
	v    float32
}

// InputPort returns descriptor of graph-level input. Value and event
// inputs pass their input "in" to output "out", stream input outputs the
// value set with Set.
func InputPort(name string, kind Kind, def float32) Descriptor {
	p := &PortProcessor{kind: kind, dir: Input, v: def}
	d := Descriptor{
		Name:      name,
		Type:      "input",
		Outputs:   []EndpointSpec{{Name: "out", Kind: kind, Default: def}},
		Processor: p,
	}
	if kind != Stream {
		d.Inputs = []EndpointSpec{{Name: "in", Kind: kind, Default: def}}
	}
	return d
}

// OutputPort returns descriptor of graph-level output with input "in".
func OutputPort(name string, kind Kind) Descriptor {
	return Descriptor{
		Name:      name,
		Type:      "output",
		Inputs:    []EndpointSpec{{Name: "in", Kind: kind}},
		Processor: &PortProcessor{kind: kind, dir: Output},
	}
}

// Kind returns the kind of port.
func (p *PortProcessor) Kind() Kind {
	return p.kind
}

// Direction returns the direction of port.
func (p *PortProcessor) Direction() Direction {
	return p.dir
}

// Set updates stream input. It must be called from the processing
// goroutine.
func (p *PortProcessor) Set(v float32) {
	p.v = v
}

// Value returns the last value received by stream or value output.
func (p *PortProcessor) Value() float32 {
	return p.v
}

// Process implements Processor.
func (p *PortProcessor) Process(c *Context) {
	switch {
	case p.dir == Input && p.kind == Stream:
		c.Set(0, p.v)
	case p.dir == Input && p.kind == Value:
		c.Set(0, c.Value(0))
	case p.dir == Input && p.kind == Event:
		for _, e := range c.Events(0) {
			c.EmitAt(0, e.Offset, e.Payload)
		}
	case p.dir == Output && p.kind != Event:
		p.v = c.Stream(0)
	}
}

// AddInput declares graph-level input. Stream inputs are set with
// Port.Set, value inputs with SetValue and event inputs with QueueEvent.
// The input is connected as a source by its name.
func (g *Graph) AddInput(name string, kind Kind, def float32) (NodeKey, error) {
	d := InputPort(name, kind, def)
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addNode(d)
}

// AddOutput declares graph-level output. The first stream output is the
// main output returned by Process. Event outputs keep events until they
// are drained.
func (g *Graph) AddOutput(name string, kind Kind) (NodeKey, error) {
	d := OutputPort(name, kind)
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addNode(d)
}

// Port is a handle of graph-level input or output. It resolves the port
// once, so its methods don't take graph lock.
type Port struct {
	name string
	g    *Graph
	proc *PortProcessor
	ctx  *Context
}

// Port returns a handle of graph-level port.
func (g *Graph) Port(name string) (*Port, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	key, ok := g.names[name]
	if !ok {
		return nil, fmt.Errorf("port %s: %w", name, ErrUnknownNode)
	}
	s := g.slots[key.index]
	if s.port == nil {
		return nil, fmt.Errorf("port %s: %w", name, ErrUnknownEndpoint)
	}
	return &Port{name: name, g: g, proc: s.port, ctx: s.ctx}, nil
}

// Name returns the name of port.
func (p *Port) Name() string {
	return p.name
}

// Kind returns the kind of port.
func (p *Port) Kind() Kind {
	return p.proc.kind
}

// Direction returns the direction of port.
func (p *Port) Direction() Direction {
	return p.proc.dir
}

// Set updates input. Stream inputs must be set from the processing
// goroutine, value inputs from any goroutine.
func (p *Port) Set(v float32) error {
	if p.proc.dir != Input {
		return fmt.Errorf("set %s: %w", p.name, ErrIncompatibleDirection)
	}
	switch p.proc.kind {
	case Stream:
		p.proc.Set(v)
	case Value:
		p.ctx.Store(0, v, -1)
	default:
		return fmt.Errorf("set %s: %w", p.name, ErrKindMismatch)
	}
	return nil
}

// Queue injects an event into event input.
func (p *Port) Queue(offset int, payload Payload) error {
	if p.proc.dir != Input || p.proc.kind != Event {
		return fmt.Errorf("queue %s: %w", p.name, ErrKindMismatch)
	}
	if offset < 0 || offset >= p.ctx.blockSize {
		return fmt.Errorf("queue %s at %d: %w", p.name, offset, ErrInvalidOffset)
	}
	return p.g.inject(p.ctx, 0, EventInstance{Offset: offset, Payload: payload})
}

// Value returns the last value that passed the port.
func (p *Port) Value() float32 {
	if p.proc.dir == Input {
		return p.ctx.Output(0)
	}
	return p.proc.Value()
}

// Drain passes events collected by event output to fn and clears them.
// It must be called from the processing goroutine.
func (p *Port) Drain(fn func(EventInstance)) error {
	if p.proc.dir != Output || p.proc.kind != Event {
		return fmt.Errorf("drain %s: %w", p.name, ErrKindMismatch)
	}
	p.ctx.Drain(0, fn)
	return nil
}
