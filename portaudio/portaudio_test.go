//go:build portaudio

package portaudio_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dudk/tonegraph"
	"github.com/dudk/tonegraph/nodes"
	"github.com/dudk/tonegraph/portaudio"
)

func TestPlay(t *testing.T) {
	g, err := tonegraph.New(tonegraph.WithSampleRate(44100), tonegraph.WithBlockSize(512))
	require.NoError(t, err)
	d := nodes.NewSine(440, 0.2)
	d.Name = "osc"
	_, err = g.AddNode(d)
	require.NoError(t, err)
	_, err = g.AddOutput("out", tonegraph.Stream)
	require.NoError(t, err)
	_, err = g.ConnectNames("osc.out", "out")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	err = portaudio.Play(ctx, g, portaudio.NewSink(44100, 512))
	assert.NoError(t, err)
	assert.NotZero(t, g.Stats().Ticks)
}
