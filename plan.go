package tonegraph

import "fmt"

// plan is an immutable processing program. It's built under the graph
// lock and published to the processing goroutine.
type plan struct {
	steps    []step
	feedback []*feedbackCell
	main     *PortProcessor
}

type step struct {
	ctx     *Context
	proc    Processor
	rate    Rate
	streams []streamGather
	values  []valueGather
	// routes are indexed by output.
	routes [][]route
}

// streamGather sums sources into stream input. Input without sources
// reads its default.
type streamGather struct {
	input int
	srcs  []*float32
}

// valueGather reads authoritative source into value input. Input without
// source holds the externally set value.
type valueGather struct {
	input int
	src   *float32
}

// route delivers events to event input.
type route struct {
	ctx   *Context
	input int
	seq   uint64
}

func (s *step) run(frame int, block uint64, pending *PendingBuffer) {
	if s.rate == PerBlock && frame != 0 {
		return
	}
	c := s.ctx
	for i := range s.streams {
		gather := &s.streams[i]
		if len(gather.srcs) == 0 {
			c.ResetStream(gather.input)
			continue
		}
		var v float32
		for _, src := range gather.srcs {
			v += *src
		}
		c.SetStream(gather.input, v)
	}
	for i := range s.values {
		gather := &s.values[i]
		if gather.src == nil {
			c.Hold(gather.input)
			continue
		}
		c.Drive(gather.input, *gather.src)
	}
	c.Begin(frame, block)
	s.proc.Process(c)
	c.Finish()
	for _, e := range pending.Entries() {
		for _, r := range s.routes[e.Output] {
			r.ctx.Deliver(r.input, e.Event, block, r.seq)
		}
	}
	pending.Reset()
}

// snapshot stores values carried by feedback connections to the next tick.
func (p *plan) snapshot() {
	for _, c := range p.feedback {
		c.v = *c.src
	}
}

func (p *plan) output() float32 {
	if p.main == nil {
		return 0
	}
	return p.main.Value()
}

// rebuild computes processing order and publishes a new plan.
func (g *Graph) rebuild() error {
	p, order, err := g.compile()
	if err != nil {
		return err
	}
	g.order = order
	g.plan.Store(p)
	g.counters.rebuilds.Add(1)
	return nil
}

// compile builds a plan from current topology.
func (g *Graph) compile() (*plan, []NodeKey, error) {
	slots := g.declaredSlots()
	position := make(map[NodeKey]int, len(slots))
	for i, s := range slots {
		position[s.key] = i
	}
	var edges []edge
	for _, c := range g.conns {
		if !c.feedback {
			edges = append(edges, edge{from: position[c.from.Node], to: position[c.to.Node]})
		}
	}
	sorted, cycles := schedule(len(slots), edges)
	if len(cycles) > 0 {
		ce := &CycleError{}
		for _, cycle := range cycles {
			names := make([]string, 0, len(cycle))
			for _, i := range cycle {
				names = append(names, slots[i].desc.Name)
			}
			ce.Cycles = append(ce.Cycles, names)
		}
		return nil, nil, ce
	}

	rank := make(map[NodeKey]int, len(slots))
	order := make([]NodeKey, len(sorted))
	for r, i := range sorted {
		order[r] = slots[i].key
		rank[slots[i].key] = r
	}

	p := &plan{steps: make([]step, len(sorted))}
	for r, i := range sorted {
		p.steps[r] = g.step(slots[i], rank)
	}
	for _, c := range g.conns {
		if c.cell != nil {
			p.feedback = append(p.feedback, c.cell)
		}
	}
	for _, s := range slots {
		if s.port != nil && s.port.dir == Output && s.port.kind == Stream {
			p.main = s.port
			break
		}
	}
	return p, order, nil
}

// step builds gathers and routes of node.
func (g *Graph) step(s *slot, rank map[NodeKey]int) step {
	st := step{
		ctx:    s.ctx,
		proc:   s.desc.Processor,
		rate:   s.desc.Rate,
		routes: make([][]route, len(s.desc.Outputs)),
	}
	for i, spec := range s.desc.Inputs {
		in := s.key.In(i)
		switch spec.Kind {
		case Stream:
			gather := streamGather{input: i}
			for _, c := range g.incoming(in) {
				gather.srcs = append(gather.srcs, g.source(c))
			}
			st.streams = append(st.streams, gather)
		case Value:
			st.values = append(st.values, valueGather{input: i, src: g.authoritative(g.incoming(in), rank)})
		}
	}
	for _, c := range g.conns {
		if c.from.Node != s.key || c.kind != Event {
			continue
		}
		dst := g.slots[c.to.Node.index]
		st.routes[c.from.Index] = append(st.routes[c.from.Index], route{
			ctx:   dst.ctx,
			input: c.to.Index,
			seq:   uint64(c.id),
		})
	}
	return st
}

// source returns the location connection reads from.
func (g *Graph) source(c *connection) *float32 {
	if c.cell != nil {
		return &c.cell.v
	}
	return &g.slots[c.from.Node.index].ctx.out[c.from.Index]
}

// authoritative picks the source of value input: the latest non-feedback
// source in processing order, otherwise the latest feedback connection.
func (g *Graph) authoritative(conns []*connection, rank map[NodeKey]int) *float32 {
	var (
		best     *connection
		bestRank = -1
	)
	for _, c := range conns {
		r := -1
		if !c.feedback {
			r = rank[c.from.Node]
		}
		if r >= bestRank {
			best, bestRank = c, r
		}
	}
	if best == nil {
		return nil
	}
	return g.source(best)
}

// Validate checks that topology can be scheduled.
func (g *Graph) Validate() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, _, err := g.compile(); err != nil {
		return fmt.Errorf("validate %v: %w", g, err)
	}
	return nil
}
