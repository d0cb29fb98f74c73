package tonegraph

import "fmt"

// Kind is a kind of endpoint data.
type Kind uint8

const (
	// Stream is an audio-rate scalar.
	Stream Kind = iota
	// Value is a control-rate scalar.
	Value
	// Event is a sequence of timed messages.
	Event
)

func (k Kind) String() string {
	switch k {
	case Stream:
		return "stream"
	case Value:
		return "value"
	case Event:
		return "event"
	}
	return "unknown"
}

// ParseKind returns the kind with provided name.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "stream":
		return Stream, nil
	case "value":
		return Value, nil
	case "event":
		return Event, nil
	}
	return 0, fmt.Errorf("unknown endpoint kind %q", s)
}

// Direction tells if endpoint consumes or produces data.
type Direction uint8

const (
	// Input endpoints consume data.
	Input Direction = iota
	// Output endpoints produce data.
	Output
)

func (d Direction) String() string {
	if d == Output {
		return "out"
	}
	return "in"
}

// EndpointSpec declares a single endpoint of a node.
type EndpointSpec struct {
	Name string
	Kind Kind
	// Default is read by unconnected stream and value inputs.
	Default float32
	// Ramp is a number of frames value inputs take to reach a new target.
	Ramp int
}

// StreamEndpoint declares a stream endpoint.
func StreamEndpoint(name string) EndpointSpec {
	return EndpointSpec{Name: name, Kind: Stream}
}

// ValueEndpoint declares a value endpoint with default value.
func ValueEndpoint(name string, def float32) EndpointSpec {
	return EndpointSpec{Name: name, Kind: Value, Default: def}
}

// EventEndpoint declares an event endpoint.
func EventEndpoint(name string) EndpointSpec {
	return EndpointSpec{Name: name, Kind: Event}
}

// EndpointID addresses an endpoint of a node.
type EndpointID struct {
	Node  NodeKey
	Dir   Direction
	Index int
}

func (id EndpointID) String() string {
	return fmt.Sprintf("%v.%v%d", id.Node, id.Dir, id.Index)
}

// EndpointInfo describes a registered endpoint.
type EndpointInfo struct {
	ID   EndpointID
	Name string
	Kind Kind
}
