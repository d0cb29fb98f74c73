// Package config reads engine settings from a config file, TONEGRAPH_*
// environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/dudk/tonegraph"
)

// EnvPrefix is a prefix of environment variables.
const EnvPrefix = "TONEGRAPH"

// Config holds engine settings.
type Config struct {
	SampleRate      int    `mapstructure:"sample_rate"`
	BlockSize       int    `mapstructure:"block_size"`
	PendingCapacity int    `mapstructure:"pending_capacity"`
	PendingPolicy   string `mapstructure:"pending_policy"`
	QueueCapacity   int    `mapstructure:"queue_capacity"`
	QueuePolicy     string `mapstructure:"queue_policy"`
	InboxCapacity   int    `mapstructure:"inbox_capacity"`
	ValuePolicy     string `mapstructure:"value_policy"`
}

// Default returns settings used when nothing is configured.
func Default() *Config {
	return &Config{
		SampleRate:      44100,
		BlockSize:       128,
		PendingCapacity: 256,
		PendingPolicy:   tonegraph.RejectNew.String(),
		QueueCapacity:   32,
		QueuePolicy:     tonegraph.RejectNew.String(),
		InboxCapacity:   256,
		ValuePolicy:     tonegraph.LastWriteWins.String(),
	}
}

// New returns viper instance reading TONEGRAPH_* environment.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	d := Default()
	v.SetDefault("sample_rate", d.SampleRate)
	v.SetDefault("block_size", d.BlockSize)
	v.SetDefault("pending_capacity", d.PendingCapacity)
	v.SetDefault("pending_policy", d.PendingPolicy)
	v.SetDefault("queue_capacity", d.QueueCapacity)
	v.SetDefault("queue_policy", d.QueuePolicy)
	v.SetDefault("inbox_capacity", d.InboxCapacity)
	v.SetDefault("value_policy", d.ValuePolicy)
	return v
}

// BindFlags adds engine flags to the set and binds them to v.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	d := Default()
	flags.Int("sample-rate", d.SampleRate, "sample rate in Hz")
	flags.Int("block-size", d.BlockSize, "number of frames in a block")
	flags.Int("pending-capacity", d.PendingCapacity, "capacity of emitted events buffer")
	flags.String("pending-policy", d.PendingPolicy, "overflow policy of emitted events buffer: reject-new or evict-oldest")
	flags.Int("queue-capacity", d.QueueCapacity, "capacity of every event input queue")
	flags.String("queue-policy", d.QueuePolicy, "overflow policy of event input queues: reject-new or evict-oldest")
	flags.Int("inbox-capacity", d.InboxCapacity, "capacity of external events inbox")
	flags.String("value-policy", d.ValuePolicy, "resolution of value inputs with several sources: last-write-wins or exclusive")
	for _, name := range []string{
		"sample-rate",
		"block-size",
		"pending-capacity",
		"pending-policy",
		"queue-capacity",
		"queue-policy",
		"inbox-capacity",
		"value-policy",
	} {
		if err := v.BindPFlag(strings.ReplaceAll(name, "-", "_"), flags.Lookup(name)); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Read loads settings. File is optional, missing default config file is
// not an error.
func Read(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("tonegraph")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		if file != "" || !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}
	c := Default()
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return c, nil
}

// Options converts settings to graph options.
func (c *Config) Options() ([]tonegraph.Option, error) {
	pending, err := tonegraph.ParseOverflowPolicy(c.PendingPolicy)
	if err != nil {
		return nil, err
	}
	queue, err := tonegraph.ParseOverflowPolicy(c.QueuePolicy)
	if err != nil {
		return nil, err
	}
	value, err := tonegraph.ParseValuePolicy(c.ValuePolicy)
	if err != nil {
		return nil, err
	}
	return []tonegraph.Option{
		tonegraph.WithSampleRate(float32(c.SampleRate)),
		tonegraph.WithBlockSize(c.BlockSize),
		tonegraph.WithPendingCapacity(c.PendingCapacity, pending),
		tonegraph.WithQueueCapacity(c.QueueCapacity, queue),
		tonegraph.WithInboxCapacity(c.InboxCapacity),
		tonegraph.WithValuePolicy(value),
	}, nil
}
