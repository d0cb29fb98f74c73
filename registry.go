package tonegraph

import (
	"fmt"
	"sort"
	"strings"
)

// slot holds a registered node.
type slot struct {
	key  NodeKey
	desc Descriptor
	ctx  *Context
	decl uint64
	port *PortProcessor
}

// AddNode registers a node and returns its key.
func (g *Graph) AddNode(d Descriptor) (NodeKey, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addNode(d)
}

func (g *Graph) addNode(d Descriptor) (NodeKey, error) {
	if g.frozen {
		return NodeKey{}, ErrTopologyFrozen
	}
	if d.Processor == nil {
		return NodeKey{}, fmt.Errorf("node %q: nil processor", d.Name)
	}
	if d.Name == "" {
		t := d.Type
		if t == "" {
			t = "node"
		}
		d.Name = fmt.Sprintf("%s%d", t, g.declared+1)
	}
	if strings.Contains(d.Name, ".") {
		return NodeKey{}, fmt.Errorf("node %q: name must not contain dots", d.Name)
	}
	if _, ok := g.names[d.Name]; ok {
		return NodeKey{}, fmt.Errorf("node %q: %w", d.Name, ErrDuplicateName)
	}
	d.Inputs = append([]EndpointSpec(nil), d.Inputs...)
	d.Outputs = append([]EndpointSpec(nil), d.Outputs...)
	if i, ok := d.Processor.(Initializer); ok {
		i.Init(g.sampleRate)
	}

	var index uint32
	if n := len(g.free); n > 0 {
		index = g.free[n-1]
		g.free = g.free[:n-1]
	} else {
		index = uint32(len(g.slots))
		g.slots = append(g.slots, nil)
		g.gens = append(g.gens, 0)
	}
	g.gens[index]++
	g.declared++
	s := &slot{
		key:  NodeKey{index: index, gen: g.gens[index]},
		desc: d,
		decl: g.declared,
		ctx: NewContext(&d, ContextConfig{
			SampleRate:    g.sampleRate,
			BlockSize:     g.blockSize,
			QueueCapacity: g.queueCap,
			QueuePolicy:   g.queuePolicy,
			Pending:       g.pending,
			Dropped:       &g.counters.queueDropped,
		}),
	}
	if p, ok := d.Processor.(*PortProcessor); ok {
		s.port = p
	}
	g.slots[index] = s
	g.names[d.Name] = s.key
	if err := g.rebuild(); err != nil {
		g.release(s)
		return NodeKey{}, err
	}
	g.log.Debug(fmt.Sprintf("%v: added node %s (%s)", g, d.Name, d.Type))
	return s.key, nil
}

// RemoveNode removes the node and every connection referencing it.
func (g *Graph) RemoveNode(key NodeKey) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.frozen {
		return ErrTopologyFrozen
	}
	s, ok := g.lookup(key)
	if !ok {
		return fmt.Errorf("remove %v: %w", key, ErrUnknownNode)
	}
	kept := g.conns[:0]
	removed := 0
	for _, c := range g.conns {
		if c.from.Node == key || c.to.Node == key {
			removed++
			continue
		}
		kept = append(kept, c)
	}
	for i := len(kept); i < len(g.conns); i++ {
		g.conns[i] = nil
	}
	g.conns = kept
	g.release(s)
	if err := g.rebuild(); err != nil {
		return err
	}
	g.log.Debug(fmt.Sprintf("%v: removed node %s with %d connections", g, s.desc.Name, removed))
	return nil
}

// release frees the slot of node.
func (g *Graph) release(s *slot) {
	g.slots[s.key.index] = nil
	g.free = append(g.free, s.key.index)
	delete(g.names, s.desc.Name)
}

// lookup returns the slot for a key if it's not stale.
func (g *Graph) lookup(key NodeKey) (*slot, bool) {
	if key.IsZero() || int(key.index) >= len(g.slots) {
		return nil, false
	}
	s := g.slots[key.index]
	if s == nil || s.key != key {
		return nil, false
	}
	return s, true
}

// endpoint returns the slot and spec of endpoint.
func (g *Graph) endpoint(id EndpointID) (*slot, EndpointSpec, error) {
	s, ok := g.lookup(id.Node)
	if !ok {
		return nil, EndpointSpec{}, fmt.Errorf("%v: %w", id, ErrUnknownEndpoint)
	}
	spec, ok := s.desc.endpoint(id.Dir, id.Index)
	if !ok {
		return nil, EndpointSpec{}, fmt.Errorf("%v: %w", id, ErrUnknownEndpoint)
	}
	return s, spec, nil
}

// Endpoints returns ordered inputs and then outputs of the node.
func (g *Graph) Endpoints(key NodeKey) ([]EndpointInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.lookup(key)
	if !ok {
		return nil, fmt.Errorf("endpoints of %v: %w", key, ErrUnknownNode)
	}
	result := make([]EndpointInfo, 0, len(s.desc.Inputs)+len(s.desc.Outputs))
	for i, spec := range s.desc.Inputs {
		result = append(result, EndpointInfo{ID: key.In(i), Name: spec.Name, Kind: spec.Kind})
	}
	for i, spec := range s.desc.Outputs {
		result = append(result, EndpointInfo{ID: key.Out(i), Name: spec.Name, Kind: spec.Kind})
	}
	return result, nil
}

// Node returns the key of named node.
func (g *Graph) Node(name string) (NodeKey, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	k, ok := g.names[name]
	return k, ok
}

// Name returns the name of node.
func (g *Graph) Name(key NodeKey) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.lookup(key)
	if !ok {
		return "", false
	}
	return s.desc.Name, true
}

// Order returns node keys in processing order.
func (g *Graph) Order() []NodeKey {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]NodeKey(nil), g.order...)
}

// declaredSlots returns live slots in declaration order.
func (g *Graph) declaredSlots() []*slot {
	result := make([]*slot, 0, len(g.slots))
	for _, s := range g.slots {
		if s != nil {
			result = append(result, s)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].decl < result[j].decl
	})
	return result
}

// resolve finds endpoint by reference. Reference is either
// "node.endpoint" or a name of graph-level port.
func (g *Graph) resolve(ref string, dir Direction) (EndpointID, error) {
	name, endpoint := ref, ""
	if i := strings.LastIndexByte(ref, '.'); i >= 0 {
		name, endpoint = ref[:i], ref[i+1:]
	}
	key, ok := g.names[name]
	if !ok {
		return EndpointID{}, fmt.Errorf("%s: %w", ref, ErrUnknownNode)
	}
	s := g.slots[key.index]
	if endpoint == "" {
		if s.port == nil {
			return EndpointID{}, fmt.Errorf("%s: %w", ref, ErrUnknownEndpoint)
		}
		if _, ok := s.desc.endpoint(dir, 0); !ok {
			return EndpointID{}, fmt.Errorf("%s: %w", ref, ErrUnknownEndpoint)
		}
		return EndpointID{Node: key, Dir: dir, Index: 0}, nil
	}
	i, ok := s.desc.index(dir, endpoint)
	if !ok {
		return EndpointID{}, fmt.Errorf("%s: %w", ref, ErrUnknownEndpoint)
	}
	return EndpointID{Node: key, Dir: dir, Index: i}, nil
}

// ref returns a reference of endpoint.
func (g *Graph) ref(id EndpointID) string {
	s, ok := g.lookup(id.Node)
	if !ok {
		return id.String()
	}
	spec, ok := s.desc.endpoint(id.Dir, id.Index)
	if !ok {
		return id.String()
	}
	return s.desc.Name + "." + spec.Name
}
