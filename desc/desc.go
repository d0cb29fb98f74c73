// Package desc declares graphs in HCL or YAML files and builds them.
package desc

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dudk/tonegraph"
)

// Description declares a graph. Inputs are declared first, then nodes and
// then outputs, which defines the declaration order of the graph.
type Description struct {
	Name        string             `yaml:"name"`
	Inputs      []Port             `yaml:"inputs"`
	Outputs     []Port             `yaml:"outputs"`
	Nodes       []Node             `yaml:"nodes"`
	Connections []Connection       `yaml:"connections"`
	Values      map[string]float64 `yaml:"values"`
}

// Port declares graph-level input or output.
type Port struct {
	Name    string  `yaml:"name"`
	Kind    string  `yaml:"kind"`
	Default float64 `yaml:"default"`
}

// Node declares a node created by catalog.
type Node struct {
	Name string         `yaml:"name"`
	Type string         `yaml:"type"`
	Args map[string]any `yaml:"args"`
}

// Connection declares a connection between endpoint references.
type Connection struct {
	From     string  `yaml:"from"`
	To       string  `yaml:"to"`
	Feedback bool    `yaml:"feedback"`
	Initial  float64 `yaml:"initial"`
}

// Catalog creates nodes by type.
type Catalog interface {
	New(typ string, args map[string]any) (tonegraph.Descriptor, error)
}

// LoadFile reads description from .hcl, .yaml or .yml file.
func LoadFile(path string) (*Description, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch filepath.Ext(path) {
	case ".hcl":
		return LoadHCL(src, path)
	case ".yaml", ".yml":
		return LoadYAML(src)
	}
	return nil, fmt.Errorf("%s: unsupported description format", path)
}

// Validate reports every invalid declaration at once.
func (d *Description) Validate() error {
	var errs errorList
	names := make(map[string]bool)
	declare := func(what, name string) {
		switch {
		case name == "":
			errs = append(errs, fmt.Errorf("%s without name", what))
		case strings.Contains(name, "."):
			errs = append(errs, fmt.Errorf("%s %q: name must not contain dots", what, name))
		case names[name]:
			errs = append(errs, fmt.Errorf("%s %q: %w", what, name, tonegraph.ErrDuplicateName))
		default:
			names[name] = true
		}
	}
	ports := func(what string, list []Port) {
		for _, p := range list {
			declare(what, p.Name)
			if _, err := tonegraph.ParseKind(p.Kind); err != nil {
				errs = append(errs, fmt.Errorf("%s %q: %w", what, p.Name, err))
			}
		}
	}
	ports("input", d.Inputs)
	for _, n := range d.Nodes {
		declare("node", n.Name)
		if n.Type == "" {
			errs = append(errs, fmt.Errorf("node %q without type", n.Name))
		}
	}
	ports("output", d.Outputs)

	known := func(ref string) error {
		if ref == "" {
			return fmt.Errorf("empty reference")
		}
		name := ref
		if i := strings.LastIndexByte(ref, '.'); i >= 0 {
			name = ref[:i]
		}
		if !names[name] {
			return fmt.Errorf("%s: %w", ref, tonegraph.ErrUnknownNode)
		}
		return nil
	}
	for i, c := range d.Connections {
		if err := known(c.From); err != nil {
			errs = append(errs, fmt.Errorf("connection %d from: %w", i+1, err))
		}
		if err := known(c.To); err != nil {
			errs = append(errs, fmt.Errorf("connection %d to: %w", i+1, err))
		}
	}
	for _, ref := range d.valueRefs() {
		if err := known(ref); err != nil {
			errs = append(errs, fmt.Errorf("value: %w", err))
		}
	}
	return errs.ret()
}

// valueRefs returns sorted references of initial values.
func (d *Description) valueRefs() []string {
	refs := make([]string, 0, len(d.Values))
	for ref := range d.Values {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}

// Build creates a graph from description. Nodes are created by catalog.
func Build(d *Description, catalog Catalog, options ...tonegraph.Option) (*tonegraph.Graph, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if d.Name != "" {
		options = append([]tonegraph.Option{tonegraph.WithName(d.Name)}, options...)
	}
	g, err := tonegraph.New(options...)
	if err != nil {
		return nil, err
	}

	var errs errorList
	for _, p := range d.Inputs {
		kind, _ := tonegraph.ParseKind(p.Kind)
		if _, err := g.AddInput(p.Name, kind, float32(p.Default)); err != nil {
			errs = append(errs, fmt.Errorf("input %q: %w", p.Name, err))
		}
	}
	for _, n := range d.Nodes {
		nd, err := catalog.New(n.Type, n.Args)
		if err != nil {
			errs = append(errs, fmt.Errorf("node %q: %w", n.Name, err))
			continue
		}
		nd.Name = n.Name
		if _, err := g.AddNode(nd); err != nil {
			errs = append(errs, fmt.Errorf("node %q: %w", n.Name, err))
		}
	}
	for _, p := range d.Outputs {
		kind, _ := tonegraph.ParseKind(p.Kind)
		if _, err := g.AddOutput(p.Name, kind); err != nil {
			errs = append(errs, fmt.Errorf("output %q: %w", p.Name, err))
		}
	}
	if err := errs.ret(); err != nil {
		return nil, err
	}

	for i, c := range d.Connections {
		var opts []tonegraph.ConnectOption
		if c.Feedback {
			opts = append(opts, tonegraph.Feedback(float32(c.Initial)))
		}
		if _, err := g.ConnectNames(c.From, c.To, opts...); err != nil {
			errs = append(errs, fmt.Errorf("connection %d: %w", i+1, err))
		}
	}
	for _, ref := range d.valueRefs() {
		if err := g.SetValue(ref, float32(d.Values[ref])); err != nil {
			errs = append(errs, fmt.Errorf("value %s: %w", ref, err))
		}
	}
	if err := errs.ret(); err != nil {
		return nil, err
	}
	return g, nil
}
