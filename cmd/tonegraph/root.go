package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dudk/tonegraph"
	"github.com/dudk/tonegraph/config"
	"github.com/dudk/tonegraph/desc"
	"github.com/dudk/tonegraph/log"
	"github.com/dudk/tonegraph/nodes"
)

// rootOptions holds global flags and settings resolved before every
// command.
type rootOptions struct {
	configFile string
	verbose    bool
	viper      *viper.Viper
	config     *config.Config
	logger     *logrus.Logger
}

// commands registered by optional build tags.
var extraCommands []func(*rootOptions) *cobra.Command

func newRootCommand() *cobra.Command {
	opts := &rootOptions{
		viper:  config.New(),
		logger: log.GetLogger(),
	}
	cmd := &cobra.Command{
		Use:           "tonegraph",
		Short:         "Real-time audio dataflow graphs",
		Long:          "Build, inspect, render and compile audio graphs declared in HCL or YAML.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Read(opts.viper, opts.configFile)
			if err != nil {
				return err
			}
			opts.config = c
			opts.logger.SetOutput(cmd.ErrOrStderr())
			if opts.verbose {
				opts.logger.SetLevel(logrus.DebugLevel)
			}
			return nil
		},
	}
	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "config file (default ./tonegraph.yaml if present)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	if err := config.BindFlags(opts.viper, flags); err != nil {
		panic(err)
	}

	cmd.AddCommand(newDescribeCommand(opts))
	cmd.AddCommand(newRenderCommand(opts))
	cmd.AddCommand(newGenerateCommand(opts))
	for _, fn := range extraCommands {
		cmd.AddCommand(fn(opts))
	}
	return cmd
}

// build loads description from file and builds the graph.
func (opts *rootOptions) build(path string) (*desc.Description, *tonegraph.Graph, error) {
	d, err := desc.LoadFile(path)
	if err != nil {
		return nil, nil, err
	}
	options, err := opts.config.Options()
	if err != nil {
		return nil, nil, err
	}
	name := d.Name
	if name == "" {
		name = path
	}
	options = append(options,
		tonegraph.WithName(name),
		tonegraph.WithLogger(log.ForGraph(opts.logger, name)),
	)
	g, err := desc.Build(d, nodes.Builtin(), options...)
	if err != nil {
		return nil, nil, fmt.Errorf("build %s: %w", path, err)
	}
	return d, g, nil
}
