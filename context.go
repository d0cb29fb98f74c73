package tonegraph

import "sync/atomic"

// Context is the view a node has of the graph during processing. Node
// methods read inputs, write outputs and emit events. Host methods are
// used by executors to drive a node and are not meant to be called from
// Process.
type Context struct {
	name       string
	rate       Rate
	sampleRate float32
	blockSize  int
	frame      int
	block      uint64

	in       []float32
	defaults []float32
	ramps    []ramp
	rampLen  []int
	external []float32
	cells    []*valueCell
	queues   []*eventQueue
	due      []int

	out     []float32
	emits   []bool
	pending *PendingBuffer
	retain  bool
}

// ContextConfig holds parameters shared by all contexts of a graph.
type ContextConfig struct {
	SampleRate    float32
	BlockSize     int
	QueueCapacity int
	QueuePolicy   OverflowPolicy
	// Pending receives events emitted by the node.
	Pending *PendingBuffer
	// Dropped counts events lost to input queue overflow. Optional.
	Dropped *atomic.Uint64
}

// NewContext allocates everything a node needs to be processed.
func NewContext(d *Descriptor, cfg ContextConfig) *Context {
	n := len(d.Inputs)
	c := &Context{
		name:       d.Name,
		rate:       d.Rate,
		sampleRate: cfg.SampleRate,
		blockSize:  cfg.BlockSize,
		in:         make([]float32, n),
		defaults:   make([]float32, n),
		ramps:      make([]ramp, n),
		rampLen:    make([]int, n),
		external:   make([]float32, n),
		cells:      make([]*valueCell, n),
		queues:     make([]*eventQueue, n),
		due:        make([]int, n),
		out:        make([]float32, len(d.Outputs)),
		emits:      make([]bool, len(d.Outputs)),
		pending:    cfg.Pending,
	}
	if c.blockSize < 1 {
		c.blockSize = 1
	}
	for i, spec := range d.Inputs {
		c.defaults[i] = spec.Default
		c.in[i] = spec.Default
		switch spec.Kind {
		case Value:
			c.external[i] = spec.Default
			c.ramps[i].reset(spec.Default)
			c.rampLen[i] = spec.Ramp
			c.cells[i] = &valueCell{}
		case Event:
			c.queues[i] = newEventQueue(cfg.QueueCapacity, cfg.QueuePolicy, cfg.Dropped)
		}
	}
	for i, spec := range d.Outputs {
		c.out[i] = spec.Default
		c.emits[i] = spec.Kind == Event
	}
	// event outputs of the graph keep events until they are drained.
	if p, ok := d.Processor.(*PortProcessor); ok && p.dir == Output && p.kind == Event {
		c.retain = true
	}
	return c
}

// Name returns the name of the node.
func (c *Context) Name() string {
	return c.name
}

// Frame returns the position of current tick in the block.
func (c *Context) Frame() int {
	return c.frame
}

// SampleRate returns sample rate of the graph.
func (c *Context) SampleRate() float32 {
	return c.sampleRate
}

// BlockSize returns number of frames in a block.
func (c *Context) BlockSize() int {
	return c.blockSize
}

// Stream returns the value of stream input.
func (c *Context) Stream(i int) float32 {
	return c.in[i]
}

// Value returns the smoothed value of value input.
func (c *Context) Value(i int) float32 {
	return c.in[i]
}

// Events returns events delivered to event input since node was processed
// last time, ordered by frame offset.
func (c *Context) Events(i int) []EventInstance {
	return c.queues[i].events[:c.due[i]]
}

// Set writes the output.
func (c *Context) Set(i int, v float32) {
	c.out[i] = v
}

// Output returns the last value written to the output.
func (c *Context) Output(i int) float32 {
	return c.out[i]
}

// Emit sends payload from event output at current frame.
func (c *Context) Emit(i int, p Payload) bool {
	return c.EmitAt(i, c.frame, p)
}

// EmitAt sends payload from event output at provided frame offset. Events
// with offset outside the block and events sent from anything but an event
// output are dropped. False is returned if event was dropped.
func (c *Context) EmitAt(i, offset int, p Payload) bool {
	if i < 0 || i >= len(c.emits) || !c.emits[i] || offset < 0 || offset >= c.blockSize {
		c.pending.dropped.Add(1)
		return false
	}
	return c.pending.Push(i, EventInstance{Offset: offset, Payload: p})
}

// Begin prepares the context for the tick. Per-block nodes see every
// queued event, per-sample nodes see events with offset not after the
// frame.
func (c *Context) Begin(frame int, block uint64) {
	c.frame = frame
	c.block = block
	for i, q := range c.queues {
		if q == nil {
			continue
		}
		if c.rate == PerBlock {
			c.due[i] = q.size()
		} else {
			c.due[i] = q.due(block, frame)
		}
	}
}

// SetStream sets the gathered value of stream input.
func (c *Context) SetStream(i int, v float32) {
	c.in[i] = v
}

// ResetStream sets stream input to its default.
func (c *Context) ResetStream(i int) {
	c.in[i] = c.defaults[i]
}

// Drive sets the target of connected value input and advances its ramp.
func (c *Context) Drive(i int, v float32) {
	r := &c.ramps[i]
	if v != r.target {
		r.retarget(v, c.rampLen[i])
	}
	c.in[i] = r.next()
}

// Hold advances unconnected value input towards its externally set value.
func (c *Context) Hold(i int) {
	r := &c.ramps[i]
	if v, frames, ok := c.cells[i].take(); ok {
		c.external[i] = v
		if frames < 0 {
			frames = c.rampLen[i]
		}
		r.retarget(v, frames)
	} else if r.target != c.external[i] {
		r.retarget(c.external[i], c.rampLen[i])
	}
	c.in[i] = r.next()
}

// Store sets value input from any goroutine. Negative frames use the
// declared ramp of the input. The value takes effect on the next tick
// the input is unconnected.
func (c *Context) Store(i int, v float32, frames int) {
	c.cells[i].store(v, frames)
}

// Deliver queues an event to event input.
func (c *Context) Deliver(i int, e EventInstance, block, seq uint64) bool {
	return c.queues[i].push(e, block, seq)
}

// Finish consumes events the node has seen.
func (c *Context) Finish() {
	if c.retain {
		return
	}
	for i, q := range c.queues {
		if q == nil {
			continue
		}
		q.consume(c.due[i])
		c.due[i] = 0
	}
}

// Drain passes every queued event of input to fn and empties the queue.
func (c *Context) Drain(i int, fn func(EventInstance)) {
	q := c.queues[i]
	for _, e := range q.events {
		fn(e)
	}
	q.consume(q.size())
	c.due[i] = 0
}
