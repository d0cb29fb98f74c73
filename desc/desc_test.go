package desc_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dudk/tonegraph"
	"github.com/dudk/tonegraph/desc"
	"github.com/dudk/tonegraph/nodes"
)

func TestLoadFile(t *testing.T) {
	hcl, err := desc.LoadFile("testdata/voice.hcl")
	require.NoError(t, err)
	yml, err := desc.LoadFile("testdata/voice.yaml")
	require.NoError(t, err)
	assert.Equal(t, yml.Name, hcl.Name)
	assert.Equal(t, yml.Inputs, hcl.Inputs)
	assert.Equal(t, yml.Outputs, hcl.Outputs)
	assert.Equal(t, yml.Connections, hcl.Connections)
	assert.Equal(t, yml.Values, hcl.Values)
	require.Len(t, hcl.Nodes, len(yml.Nodes))
	for i := range hcl.Nodes {
		assert.Equal(t, yml.Nodes[i].Name, hcl.Nodes[i].Name)
		assert.Equal(t, yml.Nodes[i].Type, hcl.Nodes[i].Type)
		assert.Len(t, hcl.Nodes[i].Args, len(yml.Nodes[i].Args))
	}

	_, err = desc.LoadFile("testdata/missing.hcl")
	assert.Error(t, err)
	_, err = desc.LoadFile("desc.go")
	assert.Error(t, err)
}

func TestBuild(t *testing.T) {
	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	var fingerprints []uint64
	for _, file := range []string{"testdata/voice.hcl", "testdata/voice.yaml"} {
		d, err := desc.LoadFile(file)
		require.NoError(t, err)
		graph, err := desc.Build(d, nodes.Builtin(), tonegraph.WithSampleRate(48000))
		require.NoError(t, err)
		g.Assert(t, "voice", []byte(graph.Describe()))
		fingerprints = append(fingerprints, graph.Fingerprint())

		result := make([]float32, 4800)
		graph.ProcessBlock(result)
		var peak float32
		for _, v := range result {
			if v > peak {
				peak = v
			}
		}
		assert.Greater(t, peak, float32(0))
	}
	assert.Equal(t, fingerprints[0], fingerprints[1])
}

func TestValidate(t *testing.T) {
	d := &desc.Description{
		Inputs: []desc.Port{
			{Name: "freq", Kind: "value"},
			{Name: "freq", Kind: "value"},
			{Name: "bad", Kind: "audio"},
		},
		Nodes: []desc.Node{
			{Name: "osc"},
			{Name: "a.b", Type: "sine"},
			{Type: "sine"},
		},
		Connections: []desc.Connection{
			{From: "osc.out", To: "missing.in"},
			{From: "", To: "osc.freq"},
		},
		Values: map[string]float64{"nope.gain": 1},
	}
	err := d.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, tonegraph.ErrDuplicateName)
	assert.ErrorIs(t, err, tonegraph.ErrUnknownNode)
	for _, s := range []string{
		`input "freq"`,
		`unknown endpoint kind "audio"`,
		`node "osc" without type`,
		`node "a.b": name must not contain dots`,
		`node without name`,
		`connection 1 to: missing.in`,
		`connection 2 from: empty reference`,
		`value: nope.gain`,
	} {
		assert.Contains(t, err.Error(), s)
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name string
		d    desc.Description
		err  error
	}{
		{
			name: "unknown type",
			d: desc.Description{
				Nodes: []desc.Node{{Name: "osc", Type: "saw"}},
			},
		},
		{
			name: "unknown argument",
			d: desc.Description{
				Nodes: []desc.Node{{Name: "osc", Type: "sine", Args: map[string]any{"phase": 1.0}}},
			},
		},
		{
			name: "kind mismatch",
			d: desc.Description{
				Nodes: []desc.Node{
					{Name: "osc", Type: "sine"},
					{Name: "gain", Type: "gain"},
				},
				Connections: []desc.Connection{{From: "osc.out", To: "gain.gain"}},
			},
			err: tonegraph.ErrKindMismatch,
		},
		{
			name: "cycle",
			d: desc.Description{
				Nodes: []desc.Node{
					{Name: "a", Type: "gain"},
					{Name: "b", Type: "gain"},
				},
				Connections: []desc.Connection{
					{From: "a.out", To: "b.in"},
					{From: "b.out", To: "a.in"},
				},
			},
			err: tonegraph.ErrCycleDetected,
		},
		{
			name: "value of stream",
			d: desc.Description{
				Nodes:  []desc.Node{{Name: "a", Type: "gain"}},
				Values: map[string]float64{"a.in": 1},
			},
			err: tonegraph.ErrKindMismatch,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := desc.Build(&test.d, nodes.Builtin())
			require.Error(t, err)
			if test.err != nil {
				assert.ErrorIs(t, err, test.err)
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	_, err := desc.LoadHCL([]byte(`node "osc" {`), "broken.hcl")
	assert.Error(t, err)
	_, err = desc.LoadHCL([]byte(`node "osc" {}`), "untyped.hcl")
	assert.Error(t, err)
	_, err = desc.LoadHCL([]byte("node \"osc\" {\n  type = \"sine\"\n  freq = [1, 2]\n}\n"), "list.hcl")
	assert.Error(t, err)
	_, err = desc.LoadYAML([]byte("name: voice\nunknown: 1\n"))
	assert.Error(t, err)

	dir := t.TempDir()
	file := filepath.Join(dir, "graph.txt")
	require.NoError(t, os.WriteFile(file, []byte("name: x"), 0o600))
	_, err = desc.LoadFile(file)
	assert.Error(t, err)
}
