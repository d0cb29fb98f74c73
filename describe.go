package tonegraph

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/cespare/xxhash/v2"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/multi"
)

// Describe returns a text dump of processing order and wiring.
func (g *Graph) Describe() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	var b strings.Builder
	names := make([]string, 0, len(g.order))
	for _, k := range g.order {
		names = append(names, g.slots[k.index].desc.Name)
	}
	fmt.Fprintf(&b, "order: %s\n", strings.Join(names, " "))
	for _, k := range g.order {
		s := g.slots[k.index]
		fmt.Fprintf(&b, "%s (%s, %v)\n", s.desc.Name, s.desc.Type, s.desc.Rate)
		for i, spec := range s.desc.Inputs {
			fmt.Fprintf(&b, "  in %s %v", spec.Name, spec.Kind)
			conns := g.incoming(k.In(i))
			if len(conns) == 0 {
				if spec.Kind != Event {
					fmt.Fprintf(&b, " = %g", spec.Default)
				}
				b.WriteString("\n")
				continue
			}
			refs := make([]string, 0, len(conns))
			for _, c := range conns {
				r := g.ref(c.from)
				if c.feedback {
					r += " (feedback)"
				}
				refs = append(refs, r)
			}
			fmt.Fprintf(&b, " <- %s\n", strings.Join(refs, ", "))
		}
		for i, spec := range s.desc.Outputs {
			fmt.Fprintf(&b, "  out %s %v", spec.Name, spec.Kind)
			var refs []string
			for _, c := range g.conns {
				if c.from == k.Out(i) {
					refs = append(refs, g.ref(c.to))
				}
			}
			if len(refs) > 0 {
				fmt.Fprintf(&b, " -> %s", strings.Join(refs, ", "))
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Fingerprint returns a hash of topology. Graphs with equal declarations
// and connections have equal fingerprints.
func (g *Graph) Fingerprint() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	d := xxhash.New()
	var buf [8]byte
	word := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		d.Write(buf[:])
	}
	str := func(s string) {
		word(uint64(len(s)))
		d.WriteString(s)
	}
	endpoints := func(specs []EndpointSpec) {
		word(uint64(len(specs)))
		for _, spec := range specs {
			str(spec.Name)
			word(uint64(spec.Kind))
			word(uint64(math.Float32bits(spec.Default)))
			word(uint64(spec.Ramp))
		}
	}
	for _, s := range g.declaredSlots() {
		str(s.desc.Name)
		str(s.desc.Type)
		word(uint64(s.desc.Rate))
		endpoints(s.desc.Inputs)
		endpoints(s.desc.Outputs)
	}
	for _, c := range g.conns {
		str(g.ref(c.from))
		str(g.ref(c.to))
		if c.feedback {
			word(1)
			word(uint64(math.Float32bits(c.initial)))
		} else {
			word(0)
		}
	}
	return d.Sum64()
}

// Fingerprint returns a hash of compiled topology.
func (s *Static) Fingerprint() uint64 {
	return s.g.Fingerprint()
}

type dotNode struct {
	graph.Node
	name, typ string
	rate      Rate
}

func (n *dotNode) DOTID() string {
	return n.name
}

func (n *dotNode) Attributes() []encoding.Attribute {
	attrs := []encoding.Attribute{{Key: "label", Value: fmt.Sprintf("%s\\n%s", n.name, n.typ)}}
	if n.rate == PerBlock {
		attrs = append(attrs, encoding.Attribute{Key: "shape", Value: "box"})
	}
	return attrs
}

type dotLine struct {
	graph.Line
	label    string
	feedback bool
}

func (l *dotLine) Attributes() []encoding.Attribute {
	attrs := []encoding.Attribute{{Key: "label", Value: l.label}}
	if l.feedback {
		attrs = append(attrs, encoding.Attribute{Key: "style", Value: "dashed"})
	}
	return attrs
}

// DOT returns the graph in graphviz format. Feedback connections are
// dashed.
func (g *Graph) DOT() ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	dg := multi.NewDirectedGraph()
	nodes := make(map[NodeKey]*dotNode)
	for i, s := range g.declaredSlots() {
		n := &dotNode{Node: multi.Node(i), name: s.desc.Name, typ: s.desc.Type, rate: s.desc.Rate}
		nodes[s.key] = n
		dg.AddNode(n)
	}
	for _, c := range g.conns {
		from, to := nodes[c.from.Node], nodes[c.to.Node]
		src, _ := g.slots[c.from.Node.index].desc.endpoint(Output, c.from.Index)
		dst, _ := g.slots[c.to.Node.index].desc.endpoint(Input, c.to.Index)
		dg.SetLine(&dotLine{
			Line:     dg.NewLine(from, to),
			label:    src.Name + " -> " + dst.Name,
			feedback: c.feedback,
		})
	}
	name := g.name
	if name == "" {
		name = "tonegraph"
	}
	return dot.MarshalMulti(dg, name, "", "  ")
}
