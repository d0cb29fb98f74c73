package desc

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

type hclFile struct {
	Name        string             `hcl:"name,optional"`
	Inputs      []hclPort          `hcl:"input,block"`
	Outputs     []hclPort          `hcl:"output,block"`
	Nodes       []hclNode          `hcl:"node,block"`
	Connections []hclConnection    `hcl:"connect,block"`
	Values      map[string]float64 `hcl:"values,optional"`
}

type hclPort struct {
	Name    string  `hcl:"name,label"`
	Kind    string  `hcl:"kind"`
	Default float64 `hcl:"default,optional"`
}

// hclNode keeps node arguments as remaining attributes of the block.
type hclNode struct {
	Name   string   `hcl:"name,label"`
	Type   string   `hcl:"type"`
	Remain hcl.Body `hcl:",remain"`
}

type hclConnection struct {
	From     string  `hcl:"from"`
	To       string  `hcl:"to"`
	Feedback bool    `hcl:"feedback,optional"`
	Initial  float64 `hcl:"initial,optional"`
}

// LoadHCL parses HCL description. Filename is used in diagnostics.
//
//	input "freq" {
//	  kind    = "value"
//	  default = 440
//	}
//	node "osc" {
//	  type = "sine"
//	  amp  = 0.5
//	}
//	connect {
//	  from = "freq"
//	  to   = "osc.freq"
//	}
func LoadHCL(src []byte, filename string) (*Description, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, diags
	}
	var f hclFile
	if diags := gohcl.DecodeBody(file.Body, nil, &f); diags.HasErrors() {
		return nil, diags
	}

	d := &Description{
		Name:   f.Name,
		Values: f.Values,
	}
	for _, p := range f.Inputs {
		d.Inputs = append(d.Inputs, Port(p))
	}
	for _, p := range f.Outputs {
		d.Outputs = append(d.Outputs, Port(p))
	}
	for _, c := range f.Connections {
		d.Connections = append(d.Connections, Connection(c))
	}
	for _, n := range f.Nodes {
		attrs, diags := n.Remain.JustAttributes()
		if diags.HasErrors() {
			return nil, diags
		}
		node := Node{Name: n.Name, Type: n.Type}
		for name, attr := range attrs {
			val, diags := attr.Expr.Value(nil)
			if diags.HasErrors() {
				return nil, diags
			}
			v, err := ctyValueToInterface(val)
			if err != nil {
				return nil, fmt.Errorf("node %q argument %s: %w", n.Name, name, err)
			}
			if node.Args == nil {
				node.Args = make(map[string]any, len(attrs))
			}
			node.Args[name] = v
		}
		d.Nodes = append(d.Nodes, node)
	}
	return d, nil
}

// ctyValueToInterface converts primitive cty value to Go value.
func ctyValueToInterface(val cty.Value) (any, error) {
	if !val.IsKnown() || val.IsNull() {
		return nil, nil
	}
	switch val.Type() {
	case cty.String:
		return val.AsString(), nil
	case cty.Number:
		f, _ := val.AsBigFloat().Float64()
		return f, nil
	case cty.Bool:
		return val.True(), nil
	}
	return nil, fmt.Errorf("unsupported type %s", val.Type().FriendlyName())
}
