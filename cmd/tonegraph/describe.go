package main

import (
	"github.com/spf13/cobra"
)

type describeOptions struct {
	*rootOptions
	dot bool
}

func newDescribeCommand(root *rootOptions) *cobra.Command {
	opts := &describeOptions{rootOptions: root}
	cmd := &cobra.Command{
		Use:   "describe <graph-file>",
		Short: "Print processing order and connections of a graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, g, err := opts.build(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.dot {
				b, err := g.DOT()
				if err != nil {
					return err
				}
				_, err = out.Write(append(b, '\n'))
				return err
			}
			_, err = out.Write([]byte(g.Describe()))
			return err
		},
	}
	cmd.Flags().BoolVar(&opts.dot, "dot", false, "print graphviz DOT instead")
	return cmd
}
