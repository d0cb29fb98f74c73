package tonegraph

import "fmt"

type opKind uint8

const (
	opReset opKind = iota
	opSum
	opDrive
	opHold
)

// op gathers one input of a node.
type op struct {
	kind     opKind
	input    int
	src      *float32
	from, to int
}

// Static is a graph compiled for fixed topology. Nodes are stored in
// processing order and all gathers and routes are flattened into arrays,
// so a tick is a straight walk without plan lookups. Static produces the
// same output as the graph it was compiled from.
type Static struct {
	g       *Graph
	ctxs    []*Context
	procs   []Processor
	rates   []Rate
	ops     []op
	opAt    []int
	srcs    []*float32
	outBase []int
	routeAt []int
	routes  []route
	plan    *plan
}

// Compile freezes topology of the graph and lowers it into Static. After
// compilation every topology change of the graph fails with
// ErrTopologyFrozen and the graph must not be processed directly.
// Values and events are still passed through the graph methods.
func Compile(g *Graph) (*Static, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, _, err := g.compile()
	if err != nil {
		return nil, fmt.Errorf("compile %v: %w", g, err)
	}
	g.frozen = true

	s := &Static{
		g:       g,
		ctxs:    make([]*Context, 0, len(p.steps)),
		procs:   make([]Processor, 0, len(p.steps)),
		rates:   make([]Rate, 0, len(p.steps)),
		opAt:    make([]int, 0, len(p.steps)+1),
		outBase: make([]int, 0, len(p.steps)),
		routeAt: []int{0},
		plan:    p,
	}
	for i := range p.steps {
		st := &p.steps[i]
		s.ctxs = append(s.ctxs, st.ctx)
		s.procs = append(s.procs, st.proc)
		s.rates = append(s.rates, st.rate)
		s.opAt = append(s.opAt, len(s.ops))
		for _, gather := range st.streams {
			switch len(gather.srcs) {
			case 0:
				s.ops = append(s.ops, op{kind: opReset, input: gather.input})
			default:
				from := len(s.srcs)
				s.srcs = append(s.srcs, gather.srcs...)
				s.ops = append(s.ops, op{kind: opSum, input: gather.input, from: from, to: len(s.srcs)})
			}
		}
		for _, gather := range st.values {
			if gather.src == nil {
				s.ops = append(s.ops, op{kind: opHold, input: gather.input})
				continue
			}
			s.ops = append(s.ops, op{kind: opDrive, input: gather.input, src: gather.src})
		}
		s.outBase = append(s.outBase, len(s.routeAt)-1)
		for _, routes := range st.routes {
			s.routes = append(s.routes, routes...)
			s.routeAt = append(s.routeAt, len(s.routes))
		}
	}
	s.opAt = append(s.opAt, len(s.ops))
	g.log.Info(fmt.Sprintf("%v: compiled %d nodes, %d gathers, %d routes", g, len(s.ctxs), len(s.ops), len(s.routes)))
	return s, nil
}

// Graph returns the graph Static was compiled from.
func (s *Static) Graph() *Graph {
	return s.g
}

// Process computes one tick and returns the value of the main output.
func (s *Static) Process() float32 {
	g := s.g
	frame, block := g.frame, g.block
	g.receive(block)
	pending := g.pending
	for i, c := range s.ctxs {
		if s.rates[i] == PerBlock && frame != 0 {
			continue
		}
		for _, o := range s.ops[s.opAt[i]:s.opAt[i+1]] {
			switch o.kind {
			case opReset:
				c.ResetStream(o.input)
			case opSum:
				var v float32
				for _, src := range s.srcs[o.from:o.to] {
					v += *src
				}
				c.SetStream(o.input, v)
			case opDrive:
				c.Drive(o.input, *o.src)
			case opHold:
				c.Hold(o.input)
			}
		}
		c.Begin(frame, block)
		s.procs[i].Process(c)
		c.Finish()
		for _, e := range pending.Entries() {
			base := s.outBase[i] + e.Output
			for _, r := range s.routes[s.routeAt[base]:s.routeAt[base+1]] {
				r.ctx.Deliver(r.input, e.Event, block, r.seq)
			}
		}
		pending.Reset()
	}
	s.plan.snapshot()
	g.advance()
	return s.plan.output()
}

// ProcessBlock fills dst with consecutive ticks and returns number of
// samples written.
func (s *Static) ProcessBlock(dst []float32) int {
	for i := range dst {
		dst[i] = s.Process()
	}
	return len(dst)
}

// SetValue updates value input addressed by name.
func (s *Static) SetValue(name string, v float32) error {
	return s.g.SetValue(name, v)
}

// SetValueRamp updates value input with linear ramp.
func (s *Static) SetValueRamp(name string, v float32, frames int) error {
	return s.g.SetValueRamp(name, v, frames)
}

// QueueEvent injects an event into event input addressed by name.
func (s *Static) QueueEvent(name string, offset int, p Payload) error {
	return s.g.QueueEvent(name, offset, p)
}

// DrainEvents passes events collected by event output to fn.
func (s *Static) DrainEvents(name string, fn func(EventInstance)) error {
	return s.g.DrainEvents(name, fn)
}
