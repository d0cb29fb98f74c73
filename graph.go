package tonegraph

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/xid"
)

// Logger is a global interface for graph loggers.
type Logger interface {
	Debug(...interface{})
	Info(...interface{})
}

// newUID returns new unique id value.
func newUID() string {
	return xid.New().String()
}

// Graph is an interpreted audio graph. Topology can be edited from any
// goroutine while another goroutine calls Process: edits are serialized and
// every successful edit publishes a new plan which is picked up at the
// next tick.
type Graph struct {
	uid  string
	name string
	log  Logger

	sampleRate    float32
	blockSize     int
	pendingCap    int
	queueCap      int
	inboxCap      int
	pendingPolicy OverflowPolicy
	queuePolicy   OverflowPolicy
	valuePolicy   ValuePolicy

	// mu guards topology. It's never taken by Process.
	mu       sync.Mutex
	slots    []*slot
	gens     []uint32
	free     []uint32
	names    map[string]NodeKey
	declared uint64
	conns    []*connection
	lastConn ConnectionID
	order    []NodeKey
	frozen   bool

	plan     atomic.Pointer[plan]
	inbox    chan injection
	pending  *PendingBuffer
	counters counters

	// owned by processing goroutine.
	frame int
	block uint64
}

// injection is an event queued from outside of the graph.
type injection struct {
	ctx   *Context
	input int
	event EventInstance
}

// New creates a new graph and applies provided options.
func New(options ...Option) (*Graph, error) {
	g := &Graph{
		uid:        newUID(),
		log:        defaultLogger,
		sampleRate: defaultSampleRate,
		blockSize:  defaultBlockSize,
		pendingCap: defaultPendingCapacity,
		queueCap:   defaultQueueCapacity,
		inboxCap:   defaultInboxCapacity,
		names:      make(map[string]NodeKey),
	}
	for _, option := range options {
		if err := option(g); err != nil {
			return nil, err
		}
	}
	g.pending = NewPendingBuffer(g.pendingCap, g.pendingPolicy)
	g.inbox = make(chan injection, g.inboxCap)
	g.plan.Store(&plan{})
	g.log.Debug(fmt.Sprintf("%v: created with sample rate %v and block size %d", g, g.sampleRate, g.blockSize))
	return g, nil
}

// ID returns unique identifier of the graph.
func (g *Graph) ID() string {
	return g.uid
}

// SampleRate returns sample rate of the graph.
func (g *Graph) SampleRate() float32 {
	return g.sampleRate
}

// BlockSize returns number of frames in a block.
func (g *Graph) BlockSize() int {
	return g.blockSize
}

// Convert graph to string. Name is included if has value.
func (g *Graph) String() string {
	if g.name == "" {
		return g.uid
	}
	return fmt.Sprintf("%v %v", g.name, g.uid)
}

// Process computes one tick and returns the value of the main output,
// which is the first declared stream output. It must be called from one
// goroutine at a time.
func (g *Graph) Process() float32 {
	p := g.plan.Load()
	g.receive(g.block)
	for i := range p.steps {
		p.steps[i].run(g.frame, g.block, g.pending)
	}
	p.snapshot()
	g.advance()
	return p.output()
}

// ProcessBlock fills dst with consecutive ticks and returns number of
// samples written.
func (g *Graph) ProcessBlock(dst []float32) int {
	for i := range dst {
		dst[i] = g.Process()
	}
	return len(dst)
}

func (g *Graph) advance() {
	g.frame++
	if g.frame == g.blockSize {
		g.frame = 0
		g.block++
	}
	g.counters.ticks.Add(1)
}

// receive delivers events queued from outside. It takes at most inbox
// capacity events per tick.
func (g *Graph) receive(block uint64) {
	for i := cap(g.inbox); i > 0; i-- {
		select {
		case in := <-g.inbox:
			in.ctx.Deliver(in.input, in.event, block, 0)
		default:
			return
		}
	}
}

// SetValue updates value input addressed by name. Graph-level value inputs
// are addressed by their name, node inputs as "node.endpoint". The value
// is seen by the node starting from the next tick. It's safe to call from
// any goroutine.
func (g *Graph) SetValue(name string, v float32) error {
	return g.store(name, v, -1)
}

// SetValueRamp is like SetValue, but the input moves linearly to the new
// value over provided number of frames.
func (g *Graph) SetValueRamp(name string, v float32, frames int) error {
	if frames < 0 {
		frames = 0
	}
	return g.store(name, v, frames)
}

func (g *Graph) store(name string, v float32, frames int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, err := g.resolve(name, Input)
	if err != nil {
		return err
	}
	s := g.slots[id.Node.index]
	if s.desc.Inputs[id.Index].Kind != Value {
		return fmt.Errorf("set %s: %w", name, ErrKindMismatch)
	}
	if g.valuePolicy == ExclusiveValue && len(g.incoming(id)) > 0 {
		return fmt.Errorf("set %s: %w", name, ErrValueConflict)
	}
	s.ctx.Store(id.Index, v, frames)
	return nil
}

// QueueEvent injects an event into event input addressed by name. The
// event is delivered on the next tick. It's safe to call from any
// goroutine. ErrQueueOverflow is returned if too many events are waiting.
func (g *Graph) QueueEvent(name string, offset int, p Payload) error {
	if offset < 0 || offset >= g.blockSize {
		return fmt.Errorf("queue %s at %d: %w", name, offset, ErrInvalidOffset)
	}
	g.mu.Lock()
	id, err := g.resolve(name, Input)
	if err != nil {
		g.mu.Unlock()
		return err
	}
	s := g.slots[id.Node.index]
	g.mu.Unlock()
	if s.desc.Inputs[id.Index].Kind != Event {
		return fmt.Errorf("queue %s: %w", name, ErrKindMismatch)
	}
	return g.inject(s.ctx, id.Index, EventInstance{Offset: offset, Payload: p})
}

func (g *Graph) inject(c *Context, input int, e EventInstance) error {
	select {
	case g.inbox <- injection{ctx: c, input: input, event: e}:
		return nil
	default:
		g.counters.inboxDropped.Add(1)
		return ErrQueueOverflow
	}
}

// DrainEvents passes events collected by graph-level event output to fn
// and clears them. It must be called from the processing goroutine
// between ticks. Use Port to avoid name lookup.
func (g *Graph) DrainEvents(name string, fn func(EventInstance)) error {
	p, err := g.Port(name)
	if err != nil {
		return err
	}
	return p.Drain(fn)
}

type silentLogger struct{}

func (silentLogger) Debug(args ...interface{}) {}

func (silentLogger) Info(args ...interface{}) {}

var defaultLogger silentLogger
