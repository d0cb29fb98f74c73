package tonegraph

import "fmt"

// NodeKey identifies a node in a graph. Keys of removed nodes are never
// reused: a slot gets a new generation every time it's taken.
type NodeKey struct {
	index uint32
	gen   uint32
}

// IsZero returns true for key that doesn't address any node.
func (k NodeKey) IsZero() bool {
	return k.gen == 0
}

// In returns the input endpoint with provided index.
func (k NodeKey) In(i int) EndpointID {
	return EndpointID{Node: k, Dir: Input, Index: i}
}

// Out returns the output endpoint with provided index.
func (k NodeKey) Out(i int) EndpointID {
	return EndpointID{Node: k, Dir: Output, Index: i}
}

func (k NodeKey) String() string {
	return fmt.Sprintf("node%dv%d", k.index, k.gen)
}

// Processor is the processing contract every node implements. Process is
// called on the audio goroutine and must not allocate or block.
type Processor interface {
	Process(c *Context)
}

// Initializer is implemented by processors that depend on sample rate.
// Init is called once, when the node is added to a graph.
type Initializer interface {
	Init(sampleRate float32)
}

// Rate defines how often a node is processed.
type Rate uint8

const (
	// PerSample nodes are processed every tick.
	PerSample Rate = iota
	// PerBlock nodes are processed on the first frame of every block.
	PerBlock
)

func (r Rate) String() string {
	if r == PerBlock {
		return "block"
	}
	return "sample"
}

// Descriptor declares a node.
type Descriptor struct {
	// Name must be unique within a graph. If empty, the name is
	// generated from Type.
	Name      string
	Type      string
	Inputs    []EndpointSpec
	Outputs   []EndpointSpec
	Rate      Rate
	Processor Processor
}

// endpoint returns a spec of the endpoint.
func (d *Descriptor) endpoint(dir Direction, i int) (EndpointSpec, bool) {
	specs := d.Inputs
	if dir == Output {
		specs = d.Outputs
	}
	if i < 0 || i >= len(specs) {
		return EndpointSpec{}, false
	}
	return specs[i], true
}

// index returns an index of the named endpoint.
func (d *Descriptor) index(dir Direction, name string) (int, bool) {
	specs := d.Inputs
	if dir == Output {
		specs = d.Outputs
	}
	for i := range specs {
		if specs[i].Name == name {
			return i, true
		}
	}
	return 0, false
}
