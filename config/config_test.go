package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dudk/tonegraph"
	"github.com/dudk/tonegraph/config"
)

func TestRead(t *testing.T) {
	file := filepath.Join(t.TempDir(), "engine.yaml")
	require.NoError(t, os.WriteFile(file, []byte("sample_rate: 48000\nblock_size: 64\nqueue_policy: evict-oldest\n"), 0o600))
	t.Setenv("TONEGRAPH_BLOCK_SIZE", "32")
	t.Setenv("TONEGRAPH_INBOX_CAPACITY", "8")

	v := config.New()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, config.BindFlags(v, flags))
	require.NoError(t, flags.Parse([]string{"--inbox-capacity=4", "--value-policy=exclusive"}))

	c, err := config.Read(v, file)
	require.NoError(t, err)
	assert.Equal(t, &config.Config{
		SampleRate:      48000,
		BlockSize:       32,
		PendingCapacity: 256,
		PendingPolicy:   "reject-new",
		QueueCapacity:   32,
		QueuePolicy:     "evict-oldest",
		InboxCapacity:   4,
		ValuePolicy:     "exclusive",
	}, c)

	options, err := c.Options()
	require.NoError(t, err)
	g, err := tonegraph.New(options...)
	require.NoError(t, err)
	assert.Equal(t, float32(48000), g.SampleRate())
	assert.Equal(t, 32, g.BlockSize())
}

func TestReadDefaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	c, err := config.Read(config.New(), "")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), c)
}

func TestReadErrors(t *testing.T) {
	_, err := config.Read(config.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	c := config.Default()
	c.QueuePolicy = "drop-all"
	_, err = c.Options()
	assert.Error(t, err)

	c = config.Default()
	c.BlockSize = 0
	options, err := c.Options()
	require.NoError(t, err)
	_, err = tonegraph.New(options...)
	assert.Error(t, err)
}
