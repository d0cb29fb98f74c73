package tonegraph

import (
	"errors"
	"fmt"
)

// ConnectionID identifies a connection. IDs grow in registration order.
type ConnectionID uint64

// Connection describes a registered connection.
type Connection struct {
	ID       ConnectionID
	From, To EndpointID
	Kind     Kind
	Feedback bool
	Initial  float32
}

type connection struct {
	id       ConnectionID
	from, to EndpointID
	kind     Kind
	feedback bool
	initial  float32
	// cell carries the previous tick value of feedback stream and value
	// connections.
	cell *feedbackCell
}

type feedbackCell struct {
	v   float32
	src *float32
}

func (c *connection) info() Connection {
	return Connection{
		ID:       c.id,
		From:     c.from,
		To:       c.to,
		Kind:     c.kind,
		Feedback: c.feedback,
		Initial:  c.initial,
	}
}

// Connect wires output endpoint to input endpoint. Connection that closes
// a cycle fails with ErrCycleDetected unless it's marked as Feedback.
func (g *Graph) Connect(from, to EndpointID, options ...ConnectOption) (ConnectionID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.connect(from, to, options...)
}

// ConnectNames is like Connect, but endpoints are addressed by reference.
// Source "osc.out" is an output of node osc, "freq" is a graph-level input.
// Destination "out" is a graph-level output.
func (g *Graph) ConnectNames(from, to string, options ...ConnectOption) (ConnectionID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	src, err := g.resolve(from, Output)
	if err != nil {
		return 0, &ConnectError{From: from, To: to, Err: err}
	}
	dst, err := g.resolve(to, Input)
	if err != nil {
		return 0, &ConnectError{From: from, To: to, Err: err}
	}
	return g.connect(src, dst, options...)
}

func (g *Graph) connect(from, to EndpointID, options ...ConnectOption) (ConnectionID, error) {
	fail := func(err error) (ConnectionID, error) {
		return 0, &ConnectError{From: g.ref(from), To: g.ref(to), Err: err}
	}
	if g.frozen {
		return fail(ErrTopologyFrozen)
	}
	src, srcSpec, err := g.endpoint(from)
	if err != nil {
		return fail(ErrUnknownEndpoint)
	}
	_, dstSpec, err := g.endpoint(to)
	if err != nil {
		return fail(ErrUnknownEndpoint)
	}
	if from.Dir != Output || to.Dir != Input {
		return fail(ErrIncompatibleDirection)
	}
	if srcSpec.Kind != dstSpec.Kind {
		return fail(fmt.Errorf("%w: %v to %v", ErrKindMismatch, srcSpec.Kind, dstSpec.Kind))
	}

	c := &connection{
		id:   g.lastConn + 1,
		from: from,
		to:   to,
		kind: srcSpec.Kind,
	}
	for _, option := range options {
		option(c)
	}
	if c.kind == Value && g.valuePolicy == ExclusiveValue && len(g.incoming(to)) > 0 {
		return fail(ErrValueConflict)
	}
	if c.feedback && c.kind != Event {
		c.cell = &feedbackCell{v: c.initial, src: &src.ctx.out[from.Index]}
	}

	g.conns = append(g.conns, c)
	if err := g.rebuild(); err != nil {
		g.conns[len(g.conns)-1] = nil
		g.conns = g.conns[:len(g.conns)-1]
		return fail(err)
	}
	g.lastConn = c.id
	g.log.Debug(fmt.Sprintf("%v: connected %s -> %s", g, g.ref(from), g.ref(to)))
	return c.id, nil
}

// Disconnect removes the connection. Inputs left without connections read
// their defaults again.
func (g *Graph) Disconnect(id ConnectionID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.frozen {
		return ErrTopologyFrozen
	}
	for i, c := range g.conns {
		if c.id != id {
			continue
		}
		copy(g.conns[i:], g.conns[i+1:])
		g.conns[len(g.conns)-1] = nil
		g.conns = g.conns[:len(g.conns)-1]
		if err := g.rebuild(); err != nil {
			return err
		}
		g.log.Debug(fmt.Sprintf("%v: disconnected %s -> %s", g, g.ref(c.from), g.ref(c.to)))
		return nil
	}
	return fmt.Errorf("disconnect %d: %w", id, ErrUnknownConnection)
}

// Incoming returns connections feeding the input in registration order.
func (g *Graph) Incoming(to EndpointID) []Connection {
	g.mu.Lock()
	defer g.mu.Unlock()
	return infos(g.incoming(to))
}

// Outgoing returns connections fed by the output in registration order.
func (g *Graph) Outgoing(from EndpointID) []Connection {
	g.mu.Lock()
	defer g.mu.Unlock()
	var result []*connection
	for _, c := range g.conns {
		if c.from == from {
			result = append(result, c)
		}
	}
	return infos(result)
}

// Connections returns every connection in registration order.
func (g *Graph) Connections() []Connection {
	g.mu.Lock()
	defer g.mu.Unlock()
	return infos(g.conns)
}

func (g *Graph) incoming(to EndpointID) []*connection {
	var result []*connection
	for _, c := range g.conns {
		if c.to == to {
			result = append(result, c)
		}
	}
	return result
}

func infos(conns []*connection) []Connection {
	result := make([]Connection, 0, len(conns))
	for _, c := range conns {
		result = append(result, c.info())
	}
	return result
}

// IsCycle returns nodes of cycles if err was caused by a cycle.
func IsCycle(err error) ([][]string, bool) {
	var ce *CycleError
	if errors.As(err, &ce) {
		return ce.Cycles, true
	}
	return nil, false
}
