// Package nodes provides reference processors for tonegraph. They are
// deliberately simple and exist to exercise the engine.
package nodes

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/dudk/tonegraph"
)

// ImportPath is the import path used by generated code.
const ImportPath = "github.com/dudk/tonegraph/nodes"

// Factory creates nodes of one type from declarative arguments.
type Factory struct {
	// Args lists accepted argument names.
	Args []string
	// New returns descriptor of a new node.
	New func(args map[string]any) (tonegraph.Descriptor, error)
	// Go returns Go expression that constructs the same descriptor and the
	// concrete processor type.
	Go func(args map[string]any) (expr, typ string, err error)
}

// Catalog maps node type to factory.
type Catalog map[string]Factory

// New creates node of provided type.
func (c Catalog) New(typ string, args map[string]any) (tonegraph.Descriptor, error) {
	f, err := c.factory(typ, args)
	if err != nil {
		return tonegraph.Descriptor{}, err
	}
	return f.New(args)
}

// Go returns constructor expression and processor type of node.
func (c Catalog) Go(typ string, args map[string]any) (string, string, error) {
	f, err := c.factory(typ, args)
	if err != nil {
		return "", "", err
	}
	return f.Go(args)
}

// Types returns sorted names of known types.
func (c Catalog) Types() []string {
	types := make([]string, 0, len(c))
	for t := range c {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

func (c Catalog) factory(typ string, args map[string]any) (Factory, error) {
	f, ok := c[typ]
	if !ok {
		return Factory{}, fmt.Errorf("unknown node type %q", typ)
	}
	for name := range args {
		if !contains(f.Args, name) {
			return Factory{}, fmt.Errorf("%s: unknown argument %q", typ, name)
		}
	}
	return f, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// number returns numeric argument or default.
func number(args map[string]any, name string, def float64) (float64, error) {
	v, ok := args[name]
	if !ok {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	}
	return 0, fmt.Errorf("argument %s: expected number, got %T", name, v)
}

func str(args map[string]any, name, def string) (string, error) {
	v, ok := args[name]
	if !ok {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %s: expected string, got %T", name, v)
	}
	return s, nil
}

// lit formats float as Go literal.
func lit(v float64) string {
	return strconv.FormatFloat(float64(float32(v)), 'g', -1, 32)
}

// Builtin returns catalog of every processor in this package.
func Builtin() Catalog {
	return Catalog{
		"constant": {
			Args: []string{"value"},
			New: func(args map[string]any) (tonegraph.Descriptor, error) {
				v, err := number(args, "value", 0)
				if err != nil {
					return tonegraph.Descriptor{}, err
				}
				return NewConstant(float32(v)), nil
			},
			Go: func(args map[string]any) (string, string, error) {
				v, err := number(args, "value", 0)
				return "nodes.NewConstant(" + lit(v) + ")", "*nodes.Constant", err
			},
		},
		"sine": {
			Args: []string{"freq", "amp"},
			New: func(args map[string]any) (tonegraph.Descriptor, error) {
				freq, amp, err := sineArgs(args)
				if err != nil {
					return tonegraph.Descriptor{}, err
				}
				return NewSine(float32(freq), float32(amp)), nil
			},
			Go: func(args map[string]any) (string, string, error) {
				freq, amp, err := sineArgs(args)
				return "nodes.NewSine(" + lit(freq) + ", " + lit(amp) + ")", "*nodes.Sine", err
			},
		},
		"lowpass": {
			Args: []string{"cutoff"},
			New: func(args map[string]any) (tonegraph.Descriptor, error) {
				v, err := number(args, "cutoff", 1000)
				if err != nil {
					return tonegraph.Descriptor{}, err
				}
				return NewLowpass(float32(v)), nil
			},
			Go: func(args map[string]any) (string, string, error) {
				v, err := number(args, "cutoff", 1000)
				return "nodes.NewLowpass(" + lit(v) + ")", "*nodes.Lowpass", err
			},
		},
		"gain": {
			Args: []string{"gain"},
			New: func(args map[string]any) (tonegraph.Descriptor, error) {
				v, err := number(args, "gain", 1)
				if err != nil {
					return tonegraph.Descriptor{}, err
				}
				return NewGain(float32(v)), nil
			},
			Go: func(args map[string]any) (string, string, error) {
				v, err := number(args, "gain", 1)
				return "nodes.NewGain(" + lit(v) + ")", "*nodes.Gain", err
			},
		},
		"multiply": {
			New: func(map[string]any) (tonegraph.Descriptor, error) {
				return NewMultiply(), nil
			},
			Go: func(map[string]any) (string, string, error) {
				return "nodes.NewMultiply()", "*nodes.Multiply", nil
			},
		},
		"mixer": {
			Args: []string{"inputs"},
			New: func(args map[string]any) (tonegraph.Descriptor, error) {
				n, err := count(args, "inputs", 2)
				if err != nil {
					return tonegraph.Descriptor{}, err
				}
				return NewMixer(n), nil
			},
			Go: func(args map[string]any) (string, string, error) {
				n, err := count(args, "inputs", 2)
				return "nodes.NewMixer(" + strconv.Itoa(n) + ")", "*nodes.Mixer", err
			},
		},
		"delay": {
			Args: []string{"frames"},
			New: func(args map[string]any) (tonegraph.Descriptor, error) {
				n, err := count(args, "frames", 1)
				if err != nil {
					return tonegraph.Descriptor{}, err
				}
				return NewDelay(n), nil
			},
			Go: func(args map[string]any) (string, string, error) {
				n, err := count(args, "frames", 1)
				return "nodes.NewDelay(" + strconv.Itoa(n) + ")", "*nodes.Delay", err
			},
		},
		"metronome": {
			Args: []string{"bpm"},
			New: func(args map[string]any) (tonegraph.Descriptor, error) {
				v, err := number(args, "bpm", 120)
				if err != nil {
					return tonegraph.Descriptor{}, err
				}
				return NewMetronome(float32(v)), nil
			},
			Go: func(args map[string]any) (string, string, error) {
				v, err := number(args, "bpm", 120)
				return "nodes.NewMetronome(" + lit(v) + ")", "*nodes.Metronome", err
			},
		},
		"counter": {
			Args: []string{"rate"},
			New: func(args map[string]any) (tonegraph.Descriptor, error) {
				r, err := rate(args)
				if err != nil {
					return tonegraph.Descriptor{}, err
				}
				return NewCounter(r), nil
			},
			Go: func(args map[string]any) (string, string, error) {
				r, err := rate(args)
				expr := "nodes.NewCounter(tonegraph.PerSample)"
				if r == tonegraph.PerBlock {
					expr = "nodes.NewCounter(tonegraph.PerBlock)"
				}
				return expr, "*nodes.Counter", err
			},
		},
		"gate": {
			New: func(map[string]any) (tonegraph.Descriptor, error) {
				return NewGate(), nil
			},
			Go: func(map[string]any) (string, string, error) {
				return "nodes.NewGate()", "*nodes.Gate", nil
			},
		},
		"passthrough": {
			New: func(map[string]any) (tonegraph.Descriptor, error) {
				return NewPassthrough(), nil
			},
			Go: func(map[string]any) (string, string, error) {
				return "nodes.NewPassthrough()", "*nodes.Passthrough", nil
			},
		},
	}
}

func sineArgs(args map[string]any) (float64, float64, error) {
	freq, err := number(args, "freq", 440)
	if err != nil {
		return 0, 0, err
	}
	amp, err := number(args, "amp", 1)
	return freq, amp, err
}

func count(args map[string]any, name string, def int) (int, error) {
	v, err := number(args, name, float64(def))
	if err != nil {
		return 0, err
	}
	if v < 1 || v != float64(int(v)) {
		return 0, fmt.Errorf("argument %s: expected positive integer, got %v", name, v)
	}
	return int(v), nil
}

func rate(args map[string]any) (tonegraph.Rate, error) {
	s, err := str(args, "rate", "sample")
	if err != nil {
		return 0, err
	}
	switch s {
	case "sample":
		return tonegraph.PerSample, nil
	case "block":
		return tonegraph.PerBlock, nil
	}
	return 0, fmt.Errorf("argument rate: unknown rate %q", s)
}
