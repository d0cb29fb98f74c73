package nodes_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dudk/tonegraph"
	"github.com/dudk/tonegraph/mock"
	"github.com/dudk/tonegraph/nodes"
)

func TestCatalog(t *testing.T) {
	c := nodes.Builtin()
	assert.Equal(t, []string{
		"constant", "counter", "delay", "gain", "gate", "lowpass",
		"metronome", "mixer", "multiply", "passthrough", "sine",
	}, c.Types())

	for _, typ := range c.Types() {
		d, err := c.New(typ, nil)
		require.NoError(t, err, typ)
		assert.Equal(t, typ, d.Type)
		_, processor, err := c.Go(typ, nil)
		require.NoError(t, err, typ)
		assert.Contains(t, processor, "*nodes.")
	}

	tests := []struct {
		typ  string
		args map[string]any
		expr string
	}{
		{typ: "sine", args: map[string]any{"freq": 220, "amp": 0.8}, expr: "nodes.NewSine(220, 0.8)"},
		{typ: "mixer", args: map[string]any{"inputs": float64(3)}, expr: "nodes.NewMixer(3)"},
		{typ: "counter", args: map[string]any{"rate": "block"}, expr: "nodes.NewCounter(tonegraph.PerBlock)"},
		{typ: "constant", args: map[string]any{"value": float32(-0.25)}, expr: "nodes.NewConstant(-0.25)"},
	}
	for _, test := range tests {
		expr, _, err := c.Go(test.typ, test.args)
		require.NoError(t, err)
		assert.Equal(t, test.expr, expr)
	}

	d, err := c.New("counter", map[string]any{"rate": "block"})
	require.NoError(t, err)
	assert.Equal(t, tonegraph.PerBlock, d.Rate)
	d, err = c.New("mixer", map[string]any{"inputs": 4})
	require.NoError(t, err)
	assert.Len(t, d.Inputs, 4)
	assert.Equal(t, "in4", d.Inputs[3].Name)
}

func TestCatalogErrors(t *testing.T) {
	c := nodes.Builtin()
	tests := []struct {
		name string
		typ  string
		args map[string]any
	}{
		{name: "unknown type", typ: "saw"},
		{name: "unknown argument", typ: "sine", args: map[string]any{"phase": 1}},
		{name: "not a number", typ: "gain", args: map[string]any{"gain": "loud"}},
		{name: "fractional count", typ: "delay", args: map[string]any{"frames": 1.5}},
		{name: "zero count", typ: "mixer", args: map[string]any{"inputs": 0}},
		{name: "unknown rate", typ: "counter", args: map[string]any{"rate": "minute"}},
		{name: "rate not a string", typ: "counter", args: map[string]any{"rate": 1}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := c.New(test.typ, test.args)
			assert.Error(t, err)
			_, _, err = c.Go(test.typ, test.args)
			assert.Error(t, err)
		})
	}
}

// run builds chain of nodes connected by their first endpoints, ending
// with stream output, and processes n ticks.
func run(t *testing.T, n int, chain ...tonegraph.Descriptor) []float32 {
	t.Helper()
	g, err := tonegraph.New(tonegraph.WithSampleRate(48000), tonegraph.WithBlockSize(16))
	require.NoError(t, err)
	var prev tonegraph.NodeKey
	for i, d := range chain {
		key, err := g.AddNode(d)
		require.NoError(t, err)
		if i > 0 {
			_, err = g.Connect(prev.Out(0), key.In(0))
			require.NoError(t, err)
		}
		prev = key
	}
	out, err := g.AddOutput("out", tonegraph.Stream)
	require.NoError(t, err)
	_, err = g.Connect(prev.Out(0), out.In(0))
	require.NoError(t, err)

	result := make([]float32, n)
	g.ProcessBlock(result)
	return result
}

func TestDelay(t *testing.T) {
	assert.Equal(t, []float32{0, 0, 0, 1, 1}, run(t, 5, nodes.NewConstant(1), nodes.NewDelay(3)))
	assert.Equal(t, []float32{0, 1, 1}, run(t, 3, nodes.NewConstant(1), nodes.NewDelay(0)))
}

func TestGain(t *testing.T) {
	assert.Equal(t, []float32{0.5, 0.5}, run(t, 2, nodes.NewConstant(2), nodes.NewGain(0.25)))
}

func TestTransform(t *testing.T) {
	neg := nodes.NewTransform(func(v float32) float32 { return -v })
	assert.Equal(t, []float32{-3}, run(t, 1, nodes.NewConstant(3), neg))
}

func TestSine(t *testing.T) {
	result := run(t, 5, nodes.NewSine(12000, 0.5))
	expected := []float32{0, 0.5, 0, -0.5, 0}
	for i := range expected {
		assert.InDelta(t, expected[i], result[i], 1e-6)
	}
}

func TestLowpass(t *testing.T) {
	result := run(t, 64, nodes.NewConstant(1), nodes.NewLowpass(1000))
	assert.Greater(t, result[0], float32(0))
	for i := 1; i < len(result); i++ {
		assert.Greater(t, result[i], result[i-1])
		assert.Less(t, result[i], float32(1))
	}
}

func TestMixing(t *testing.T) {
	g, err := tonegraph.New(tonegraph.WithSampleRate(48000))
	require.NoError(t, err)
	for _, d := range []tonegraph.Descriptor{
		named("a", nodes.NewConstant(2)),
		named("b", nodes.NewConstant(3)),
		named("mix", nodes.NewMixer(2)),
		named("mul", nodes.NewMultiply()),
		named("sub", nodes.NewCombine(func(a, b float32) float32 { return a - b })),
	} {
		_, err := g.AddNode(d)
		require.NoError(t, err)
	}
	_, err = g.AddOutput("out", tonegraph.Stream)
	require.NoError(t, err)
	for _, c := range [][2]string{
		{"a.out", "mix.in1"},
		{"b.out", "mix.in2"},
		{"a.out", "mul.a"},
		{"b.out", "mul.b"},
		{"mix.out", "sub.a"},
		{"mul.out", "sub.b"},
		{"sub.out", "out"},
	} {
		_, err := g.ConnectNames(c[0], c[1])
		require.NoError(t, err)
	}
	// (2 + 3) - 2*3
	assert.Equal(t, float32(-1), g.Process())
}

func named(name string, d tonegraph.Descriptor) tonegraph.Descriptor {
	d.Name = name
	return d
}

func TestGate(t *testing.T) {
	g, err := tonegraph.New(tonegraph.WithSampleRate(48000), tonegraph.WithBlockSize(8))
	require.NoError(t, err)
	emitter := &mock.Emitter{Schedule: []mock.Emission{
		{Call: 0, Offset: 2, Value: 1},
		{Call: 0, Offset: 4, Value: 0},
	}}
	recorder := &mock.Recorder{}
	for _, d := range []tonegraph.Descriptor{
		emitter.Node("emitter"),
		named("gate", nodes.NewGate()),
		named("pass", nodes.NewPassthrough()),
		recorder.Node("recorder"),
	} {
		_, err := g.AddNode(d)
		require.NoError(t, err)
	}
	_, err = g.AddOutput("out", tonegraph.Stream)
	require.NoError(t, err)
	for _, c := range [][2]string{
		{"emitter.out", "gate.gate"},
		{"emitter.out", "pass.in"},
		{"pass.out", "recorder.events"},
		{"gate.out", "out"},
	} {
		_, err := g.ConnectNames(c[0], c[1])
		require.NoError(t, err)
	}

	result := make([]float32, 6)
	g.ProcessBlock(result)
	assert.Equal(t, []float32{0, 0, 1, 1, 0, 0}, result)
	require.Len(t, recorder.Events, 2)
	assert.Equal(t, []float32{1, 0}, recorder.Payloads())
	assert.Equal(t, 2, recorder.Events[0].Frame)
	assert.Equal(t, 4, recorder.Events[1].Frame)
	assert.Equal(t, 0, emitter.Rejected)
}
