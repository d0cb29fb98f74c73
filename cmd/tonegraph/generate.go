package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/dudk/tonegraph/desc"
	"github.com/dudk/tonegraph/gen"
)

type generateOptions struct {
	*rootOptions
	output string
	pkg    string
	typ    string
}

func newGenerateCommand(root *rootOptions) *cobra.Command {
	opts := &generateOptions{rootOptions: root}
	cmd := &cobra.Command{
		Use:   "generate <graph-file>",
		Short: "Emit Go source of a graph with fixed topology",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := desc.LoadFile(args[0])
			if err != nil {
				return err
			}
			src, err := gen.Generate(d, gen.Builtin(), gen.Options{
				Package: opts.pkg,
				Type:    opts.typ,
				Config:  opts.config,
			})
			if err != nil {
				return err
			}
			if opts.output == "" {
				_, err = cmd.OutOrStdout().Write(src)
				return err
			}
			if err := os.WriteFile(opts.output, src, 0o644); err != nil {
				return err
			}
			opts.logger.WithField("file", opts.output).Info("generated")
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file, stdout if empty")
	cmd.Flags().StringVar(&opts.pkg, "package", "graph", "package of generated code")
	cmd.Flags().StringVar(&opts.typ, "type", "Graph", "name of generated type")
	return cmd
}
