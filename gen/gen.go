// Package gen emits Go source of a graph with fixed topology. Generated
// type holds one concrete field per node and calls them in processing
// order, so there are no interface calls or plan lookups on the tick path.
// Its output is identical to the interpreted graph built from the same
// description.
package gen

import (
	"bytes"
	"fmt"
	"go/format"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"unicode"

	"github.com/dudk/tonegraph"
	"github.com/dudk/tonegraph/config"
	"github.com/dudk/tonegraph/desc"
	"github.com/dudk/tonegraph/nodes"
)

// Catalog creates nodes and their Go constructors by type.
type Catalog interface {
	desc.Catalog
	// Go returns constructor expression and processor type.
	Go(typ string, args map[string]any) (string, string, error)
}

// Options of generated code.
type Options struct {
	// Package is the name of generated package.
	Package string
	// Type is the name of generated type.
	Type string
	// Config holds capacities and policies. Default config is used if nil.
	Config *config.Config
}

type file struct {
	Package         string
	Type            string
	Name            string
	Fingerprint     uint64
	BlockSize       int
	PendingCapacity int
	PendingPolicy   string
	QueueCapacity   int
	QueuePolicy     string
	InboxCapacity   int
	Nodes           []*node
	Feedback        []feedback
	Main            string
	Sums            bool
	Values          []setter
	Inits           []setter
	Streams         []setter
	Events          []setter
	Drains          []setter
	Ports           string
	Inner           string
	ImportNodes     bool
	NodesImport     string
}

type node struct {
	Name     string
	Field    string
	Ctx      string
	Type     string
	Expr     string
	Init     bool
	PerBlock bool
	Gathers  []string
	Routes   []routeCase
}

type routeCase struct {
	Output   int
	Delivers []string
}

type feedback struct {
	Field   string
	Initial string
	Src     string
}

type setter struct {
	Refs  string
	Field string
	Ctx   string
	Input int
	Err   string
	Value string
	names []string
}

// Generate builds the graph described by d and emits Go source of it.
func Generate(d *desc.Description, catalog Catalog, opts Options) ([]byte, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if opts.Package == "" {
		opts.Package = "graph"
	}
	if opts.Type == "" {
		opts.Type = "Graph"
	}
	options, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	g, err := desc.Build(d, catalog, options...)
	if err != nil {
		return nil, err
	}

	f := &file{
		Package:         opts.Package,
		Type:            opts.Type,
		Name:            d.Name,
		Fingerprint:     g.Fingerprint(),
		BlockSize:       cfg.BlockSize,
		PendingCapacity: cfg.PendingCapacity,
		PendingPolicy:   policy(cfg.PendingPolicy),
		QueueCapacity:   cfg.QueueCapacity,
		QueuePolicy:     policy(cfg.QueuePolicy),
		InboxCapacity:   cfg.InboxCapacity,
		NodesImport:     nodes.ImportPath,
	}
	if f.Name == "" {
		f.Name = opts.Type
	}
	valuePolicy, _ := tonegraph.ParseValuePolicy(cfg.ValuePolicy)

	descriptors, err := constructors(d, catalog)
	if err != nil {
		return nil, err
	}

	order := g.Order()
	rank := make(map[tonegraph.NodeKey]int, len(order))
	byKey := make(map[tonegraph.NodeKey]*node, len(order))
	used := make(map[string]bool)
	for r, key := range order {
		name, _ := g.Name(key)
		c := descriptors[name]
		id := ident(name, used)
		n := &node{
			Name:     name,
			Field:    id + "Node",
			Ctx:      id + "Ctx",
			Type:     c.typ,
			Expr:     c.expr,
			Init:     c.init,
			PerBlock: c.rate == tonegraph.PerBlock,
		}
		if strings.HasPrefix(c.expr, "nodes.") {
			f.ImportNodes = true
		}
		rank[key] = r
		byKey[key] = n
		f.Nodes = append(f.Nodes, n)
	}

	conns := g.Connections()
	cells := make(map[tonegraph.ConnectionID]string)
	for _, c := range conns {
		if !c.Feedback || c.Kind == tonegraph.Event {
			continue
		}
		field := "feedback" + strconv.Itoa(len(f.Feedback))
		cells[c.ID] = field
		f.Feedback = append(f.Feedback, feedback{
			Field:   field,
			Initial: lit(c.Initial),
			Src:     fmt.Sprintf("g.%s.Output(%d)", byKey[c.From.Node].Ctx, c.From.Index),
		})
	}
	source := func(c tonegraph.Connection) string {
		if field, ok := cells[c.ID]; ok {
			return "g." + field
		}
		return fmt.Sprintf("g.%s.Output(%d)", byKey[c.From.Node].Ctx, c.From.Index)
	}

	for _, key := range order {
		n := byKey[key]
		endpoints, err := g.Endpoints(key)
		if err != nil {
			return nil, err
		}
		var streams, values []string
		for _, e := range endpoints {
			if e.ID.Dir != tonegraph.Input {
				continue
			}
			incoming := g.Incoming(e.ID)
			switch e.Kind {
			case tonegraph.Stream:
				if len(incoming) == 0 {
					streams = append(streams, fmt.Sprintf("g.%s.ResetStream(%d)", n.Ctx, e.ID.Index))
					continue
				}
				f.Sums = true
				streams = append(streams, "s = 0")
				for _, c := range incoming {
					streams = append(streams, "s += "+source(c))
				}
				streams = append(streams, fmt.Sprintf("g.%s.SetStream(%d, s)", n.Ctx, e.ID.Index))
			case tonegraph.Value:
				names := refs(n, e.Name)
				s := setter{Refs: quote(names), Ctx: n.Ctx, Input: e.ID.Index, names: names}
				if len(incoming) > 0 && valuePolicy == tonegraph.ExclusiveValue {
					s.Err = "tonegraph.ErrValueConflict"
				}
				f.Values = append(f.Values, s)

				best, bestRank := -1, -1
				for i, c := range incoming {
					r := -1
					if !c.Feedback {
						r = rank[c.From.Node]
					}
					if r >= bestRank {
						best, bestRank = i, r
					}
				}
				if best < 0 {
					values = append(values, fmt.Sprintf("g.%s.Hold(%d)", n.Ctx, e.ID.Index))
					continue
				}
				values = append(values, fmt.Sprintf("g.%s.Drive(%d, %s)", n.Ctx, e.ID.Index, source(incoming[best])))
			case tonegraph.Event:
				f.Events = append(f.Events, setter{Refs: quote(refs(n, e.Name)), Ctx: n.Ctx, Input: e.ID.Index})
			}
		}
		n.Gathers = append(streams, values...)

		routes := make(map[int]int)
		for _, c := range conns {
			if c.From.Node != key || c.Kind != tonegraph.Event {
				continue
			}
			i, ok := routes[c.From.Index]
			if !ok {
				i = len(n.Routes)
				routes[c.From.Index] = i
				n.Routes = append(n.Routes, routeCase{Output: c.From.Index})
			}
			n.Routes[i].Delivers = append(n.Routes[i].Delivers, fmt.Sprintf("g.%s.Deliver(%d, e.Event, g.block, %d)",
				byKey[c.To.Node].Ctx, c.To.Index, c.ID))
		}
	}
	for _, p := range d.Inputs {
		if p.Kind == tonegraph.Stream.String() {
			f.Streams = append(f.Streams, setter{Refs: strconv.Quote(p.Name), Field: fieldOf(f, p.Name)})
		}
	}
	drains := make(map[string]bool)
	for _, p := range d.Outputs {
		switch p.Kind {
		case tonegraph.Event.String():
			drains[p.Name] = true
			f.Drains = append(f.Drains, setter{Refs: strconv.Quote(p.Name), Ctx: ctxOf(f, p.Name)})
		case tonegraph.Stream.String():
			if f.Main == "" {
				f.Main = "g." + fieldOf(f, p.Name) + ".Value()"
			}
		}
	}
	if f.Main == "" {
		f.Main = "0"
	}
	// names that are not event outputs fail to drain the same way the
	// graph fails to resolve them.
	var ports, inner []string
	for _, n := range f.Nodes {
		switch {
		case drains[n.Name]:
		case n.Type == "*tonegraph.PortProcessor":
			ports = append(ports, n.Name)
		default:
			inner = append(inner, n.Name)
		}
	}
	f.Ports, f.Inner = quote(ports), quote(inner)

	inits := make([]string, 0, len(d.Values))
	for ref := range d.Values {
		inits = append(inits, ref)
	}
	sort.Strings(inits)
	for _, ref := range inits {
		s, ok := setterOf(f.Values, ref)
		if !ok {
			return nil, fmt.Errorf("value %s: %w", ref, tonegraph.ErrUnknownEndpoint)
		}
		if s.Err != "" {
			return nil, fmt.Errorf("value %s: %w", ref, tonegraph.ErrValueConflict)
		}
		s.Value = lit(float32(d.Values[ref]))
		f.Inits = append(f.Inits, s)
	}

	var buf bytes.Buffer
	if err := graphTemplate.Execute(&buf, f); err != nil {
		return nil, err
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("format generated code: %w", err)
	}
	return src, nil
}

type constructor struct {
	expr, typ string
	init      bool
	rate      tonegraph.Rate
}

// constructors returns Go constructors of every declared node and port.
func constructors(d *desc.Description, catalog Catalog) (map[string]constructor, error) {
	result := make(map[string]constructor)
	for _, p := range d.Inputs {
		result[p.Name] = constructor{
			expr: fmt.Sprintf("tonegraph.InputPort(%q, %s, %s)", p.Name, kind(p.Kind), lit(float32(p.Default))),
			typ:  "*tonegraph.PortProcessor",
		}
	}
	for _, p := range d.Outputs {
		result[p.Name] = constructor{
			expr: fmt.Sprintf("tonegraph.OutputPort(%q, %s)", p.Name, kind(p.Kind)),
			typ:  "*tonegraph.PortProcessor",
		}
	}
	for _, n := range d.Nodes {
		nd, err := catalog.New(n.Type, n.Args)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", n.Name, err)
		}
		expr, typ, err := catalog.Go(n.Type, n.Args)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", n.Name, err)
		}
		_, init := nd.Processor.(tonegraph.Initializer)
		result[n.Name] = constructor{expr: expr, typ: typ, init: init, rate: nd.Rate}
	}
	return result, nil
}

// refs returns names addressing node input. Ports are also addressed by
// their own name.
func refs(n *node, input string) []string {
	names := []string{n.Name + "." + input}
	if n.Type == "*tonegraph.PortProcessor" {
		names = append([]string{n.Name}, names...)
	}
	return names
}

func quote(names []string) string {
	q := make([]string, 0, len(names))
	for _, name := range names {
		q = append(q, strconv.Quote(name))
	}
	return strings.Join(q, ", ")
}

func setterOf(setters []setter, ref string) (setter, bool) {
	for _, s := range setters {
		for _, name := range s.names {
			if name == ref {
				return s, true
			}
		}
	}
	return setter{}, false
}

func fieldOf(f *file, name string) string {
	for _, n := range f.Nodes {
		if n.Name == name {
			return n.Field
		}
	}
	return ""
}

func ctxOf(f *file, name string) string {
	for _, n := range f.Nodes {
		if n.Name == name {
			return n.Ctx
		}
	}
	return ""
}

// ident converts node name into unique Go identifier.
func ident(name string, used map[string]bool) string {
	var b strings.Builder
	for i, r := range name {
		switch {
		case unicode.IsLetter(r) || r == '_':
			if i == 0 {
				r = unicode.ToLower(r)
			}
			b.WriteRune(r)
		case unicode.IsDigit(r):
			if i == 0 {
				b.WriteString("n")
			}
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	id := b.String()
	if id == "" {
		id = "n"
	}
	for base, i := id, 2; used[id]; i++ {
		id = base + strconv.Itoa(i)
	}
	used[id] = true
	return id
}

// lit formats float32 as the shortest Go literal converting back to v.
func lit(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', -1, 32)
}

func kind(s string) string {
	k, _ := tonegraph.ParseKind(s)
	switch k {
	case tonegraph.Value:
		return "tonegraph.Value"
	case tonegraph.Event:
		return "tonegraph.Event"
	}
	return "tonegraph.Stream"
}

func policy(s string) string {
	if p, _ := tonegraph.ParseOverflowPolicy(s); p == tonegraph.EvictOldest {
		return "tonegraph.EvictOldest"
	}
	return "tonegraph.RejectNew"
}

// Builtin returns the catalog of the nodes package.
func Builtin() Catalog {
	return nodes.Builtin()
}

var graphTemplate = template.Must(template.New("graph").Parse(`// Code generated by tonegraph generate. DO NOT EDIT.

package {{.Package}}

import (
	"fmt"
	"sync/atomic"

	"github.com/dudk/tonegraph"
{{- if .ImportNodes}}
	"{{.NodesImport}}"
{{- end}}
)

// Fingerprint is the topology hash of the graph {{.Type}} was generated from.
const Fingerprint uint64 = {{printf "%#x" .Fingerprint}}

// BlockSize is the number of frames in a block.
const BlockSize = {{.BlockSize}}

type injection struct {
	ctx   *tonegraph.Context
	input int
	event tonegraph.EventInstance
}

// {{.Type}} processes graph {{.Name}} with fixed topology.
type {{.Type}} struct {
	pending *tonegraph.PendingBuffer
	dropped atomic.Uint64
	inbox   chan injection
	frame   int
	block   uint64
{{range .Nodes}}
	{{.Field}} {{.Type}}
	{{.Ctx}} *tonegraph.Context
{{- end}}
{{range .Feedback}}
	{{.Field}} float32
{{- end}}
}

// New{{.Type}} creates the graph. Nodes are initialized with sample rate.
func New{{.Type}}(sampleRate float32) *{{.Type}} {
	g := &{{.Type}}{
		pending: tonegraph.NewPendingBuffer({{.PendingCapacity}}, {{.PendingPolicy}}),
		inbox:   make(chan injection, {{.InboxCapacity}}),
{{- range .Feedback}}
		{{.Field}}: {{.Initial}},
{{- end}}
	}
	cfg := tonegraph.ContextConfig{
		SampleRate:    sampleRate,
		BlockSize:     BlockSize,
		QueueCapacity: {{.QueueCapacity}},
		QueuePolicy:   {{.QueuePolicy}},
		Pending:       g.pending,
		Dropped:       &g.dropped,
	}
	var d tonegraph.Descriptor
{{- range .Nodes}}

	d = {{.Expr}}
	d.Name = {{printf "%q" .Name}}
	g.{{.Field}} = d.Processor.({{.Type}})
{{- if .Init}}
	g.{{.Field}}.Init(sampleRate)
{{- end}}
	g.{{.Ctx}} = tonegraph.NewContext(&d, cfg)
{{- end}}
{{- if .Inits}}
{{range .Inits}}
	g.{{.Ctx}}.Store({{.Input}}, {{.Value}}, -1)
{{- end}}
{{- end}}
	return g
}

// Fingerprint returns the topology hash.
func (g *{{.Type}}) Fingerprint() uint64 {
	return Fingerprint
}

// Process computes one tick and returns the main output.
func (g *{{.Type}}) Process() float32 {
	g.receive()
{{- if .Sums}}
	var s float32
{{- end}}
{{- range .Nodes}}

	// {{.Name}}
{{- if .PerBlock}}
	if g.frame == 0 {
{{- end}}
{{- range .Gathers}}
	{{.}}
{{- end}}
	g.{{.Ctx}}.Begin(g.frame, g.block)
	g.{{.Field}}.Process(g.{{.Ctx}})
	g.{{.Ctx}}.Finish()
{{- if .Routes}}
	for _, e := range g.pending.Entries() {
		switch e.Output {
{{- range .Routes}}
		case {{.Output}}:
{{- range .Delivers}}
			{{.}}
{{- end}}
{{- end}}
		}
	}
{{- end}}
	g.pending.Reset()
{{- if .PerBlock}}
	}
{{- end}}
{{- end}}
{{range .Feedback}}
	g.{{.Field}} = {{.Src}}
{{- end}}
	g.frame++
	if g.frame == BlockSize {
		g.frame = 0
		g.block++
	}
	return {{.Main}}
}

// ProcessBlock fills dst with consecutive ticks.
func (g *{{.Type}}) ProcessBlock(dst []float32) int {
	for i := range dst {
		dst[i] = g.Process()
	}
	return len(dst)
}

func (g *{{.Type}}) receive() {
	for i := cap(g.inbox); i > 0; i-- {
		select {
		case in := <-g.inbox:
			in.ctx.Deliver(in.input, in.event, g.block, 0)
		default:
			return
		}
	}
}

// SetValue updates value input. It's safe to call from any goroutine.
func (g *{{.Type}}) SetValue(name string, v float32) error {
	return g.store(name, v, -1)
}

// SetValueRamp updates value input with linear ramp over frames.
func (g *{{.Type}}) SetValueRamp(name string, v float32, frames int) error {
	if frames < 0 {
		frames = 0
	}
	return g.store(name, v, frames)
}

func (g *{{.Type}}) store(name string, v float32, frames int) error {
	switch name {
{{- range .Values}}
	case {{.Refs}}:
{{- if .Err}}
		return fmt.Errorf("set %s: %w", name, {{.Err}})
{{- else}}
		g.{{.Ctx}}.Store({{.Input}}, v, frames)
{{- end}}
{{- end}}
	default:
		return fmt.Errorf("%s: %w", name, tonegraph.ErrUnknownEndpoint)
	}
	return nil
}

// SetInput sets graph-level stream input. It must be called from the
// processing goroutine.
func (g *{{.Type}}) SetInput(name string, v float32) error {
	switch name {
{{- range .Streams}}
	case {{.Refs}}:
		g.{{.Field}}.Set(v)
		return nil
{{- end}}
	}
	return fmt.Errorf("set %s: %w", name, tonegraph.ErrUnknownEndpoint)
}

// QueueEvent injects an event. It's safe to call from any goroutine.
func (g *{{.Type}}) QueueEvent(name string, offset int, p tonegraph.Payload) error {
	if offset < 0 || offset >= BlockSize {
		return fmt.Errorf("queue %s at %d: %w", name, offset, tonegraph.ErrInvalidOffset)
	}
	var in injection
	switch name {
{{- range .Events}}
	case {{.Refs}}:
		in = injection{ctx: g.{{.Ctx}}, input: {{.Input}}}
{{- end}}
	default:
		return fmt.Errorf("%s: %w", name, tonegraph.ErrUnknownEndpoint)
	}
	in.event = tonegraph.EventInstance{Offset: offset, Payload: p}
	select {
	case g.inbox <- in:
		return nil
	default:
		return tonegraph.ErrQueueOverflow
	}
}

// DrainEvents passes events collected by event output to fn. It must be
// called from the processing goroutine.
func (g *{{.Type}}) DrainEvents(name string, fn func(tonegraph.EventInstance)) error {
	switch name {
{{- range .Drains}}
	case {{.Refs}}:
		g.{{.Ctx}}.Drain(0, fn)
		return nil
{{- end}}
{{- if .Ports}}
	case {{.Ports}}:
		return fmt.Errorf("drain %s: %w", name, tonegraph.ErrKindMismatch)
{{- end}}
{{- if .Inner}}
	case {{.Inner}}:
		return fmt.Errorf("port %s: %w", name, tonegraph.ErrUnknownEndpoint)
{{- end}}
	}
	return fmt.Errorf("port %s: %w", name, tonegraph.ErrUnknownNode)
}

// Dropped returns number of events lost to pending buffer and input
// queue overflows.
func (g *{{.Type}}) Dropped() (pending, queue uint64) {
	return g.pending.Dropped(), g.dropped.Load()
}
`))
