package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dudk/tonegraph"
	"github.com/dudk/tonegraph/metric"
	"github.com/dudk/tonegraph/signal"
	"github.com/dudk/tonegraph/wav"
)

type renderOptions struct {
	*rootOptions
	output   string
	seconds  float64
	bitDepth int
	static   bool
	metrics  string
	inputs   []string
	values   []string
}

// processor is either interpreted or compiled graph.
type processor interface {
	Process() float32
	SetValue(name string, v float32) error
}

// feed passes samples of a wav clip to a stream input.
type feed struct {
	port   *tonegraph.Port
	source *wav.Source
}

func newRenderCommand(root *rootOptions) *cobra.Command {
	opts := &renderOptions{rootOptions: root}
	cmd := &cobra.Command{
		Use:   "render <graph-file>",
		Short: "Render main output of a graph into wav file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(opts, args[0])
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&opts.output, "output", "o", "", "output wav file (required)")
	flags.Float64VarP(&opts.seconds, "seconds", "s", 1, "duration of rendered audio")
	flags.IntVar(&opts.bitDepth, "bit-depth", 16, "bit depth of output: 16, 24 or 32")
	flags.BoolVar(&opts.static, "static", false, "compile topology before rendering")
	flags.StringVar(&opts.metrics, "metrics", "", "write prometheus metrics into text file after rendering")
	flags.StringArrayVarP(&opts.inputs, "input", "i", nil, "stream input fed from wav file: name=path.wav")
	flags.StringArrayVar(&opts.values, "set", nil, "initial value: name=value")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func runRender(opts *renderOptions, path string) error {
	bitDepth, err := signal.ParseBitDepth(opts.bitDepth)
	if err != nil {
		return err
	}
	if opts.seconds <= 0 {
		return fmt.Errorf("invalid duration %v", opts.seconds)
	}
	_, g, err := opts.build(path)
	if err != nil {
		return err
	}
	feeds, err := opts.feeds(g)
	if err != nil {
		return err
	}

	var p processor = g
	if opts.static {
		s, err := tonegraph.Compile(g)
		if err != nil {
			return err
		}
		p = s
	}
	for _, kv := range opts.values {
		name, v, err := parseValue(kv)
		if err != nil {
			return err
		}
		if err := p.SetValue(name, v); err != nil {
			return err
		}
	}

	sink, err := wav.Create(opts.output, int(g.SampleRate()), bitDepth)
	if err != nil {
		return err
	}
	reg := prometheus.NewRegistry()
	collector := metric.NewCollector()
	collector.Add(g)
	reg.MustRegister(collector)
	meter := metric.NewMeter(reg, g.ID(), g.SampleRate())

	total := int(opts.seconds * float64(g.SampleRate()))
	block := make([]float32, g.BlockSize())
	for done := 0; done < total; {
		n := min(len(block), total-done)
		start := time.Now()
		for i := range block[:n] {
			for _, f := range feeds {
				if err := f.port.Set(f.source.Next()); err != nil {
					return errors.Join(err, sink.Close())
				}
			}
			block[i] = p.Process()
		}
		meter.Observe(time.Since(start), n)
		if err := sink.Write(block[:n]); err != nil {
			return errors.Join(err, sink.Close())
		}
		done += n
	}
	if err := sink.Close(); err != nil {
		return err
	}

	stats := g.Stats()
	opts.logger.WithFields(logrus.Fields{
		"file":            opts.output,
		"frames":          sink.Frames(),
		"pending_dropped": stats.PendingDropped,
		"queue_dropped":   stats.QueueDropped,
	}).Info("rendered")
	if opts.metrics != "" {
		return prometheus.WriteToTextfile(opts.metrics, reg)
	}
	return nil
}

// feeds opens wav files for stream inputs.
func (opts *renderOptions) feeds(g *tonegraph.Graph) ([]feed, error) {
	var feeds []feed
	for _, kv := range opts.inputs {
		name, path, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("invalid input %q: expected name=path", kv)
		}
		port, err := g.Port(name)
		if err != nil {
			return nil, err
		}
		if port.Direction() != tonegraph.Input || port.Kind() != tonegraph.Stream {
			return nil, fmt.Errorf("input %s: %w", name, tonegraph.ErrKindMismatch)
		}
		clip, err := wav.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if clip.SampleRate != int(g.SampleRate()) {
			opts.logger.WithFields(logrus.Fields{
				"input":       name,
				"sample_rate": clip.SampleRate,
			}).Warn("sample rate of input differs from graph")
		}
		feeds = append(feeds, feed{port: port, source: clip.Source()})
	}
	return feeds, nil
}

func parseValue(kv string) (string, float32, error) {
	name, s, ok := strings.Cut(kv, "=")
	if !ok {
		return "", 0, fmt.Errorf("invalid value %q: expected name=value", kv)
	}
	v, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return "", 0, fmt.Errorf("invalid value %q: %w", kv, err)
	}
	return name, float32(v), nil
}
