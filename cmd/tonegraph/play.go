//go:build portaudio

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/dudk/tonegraph/metric"
	"github.com/dudk/tonegraph/portaudio"
)

type playOptions struct {
	*rootOptions
	duration    time.Duration
	metricsAddr string
}

func init() {
	extraCommands = append(extraCommands, newPlayCommand)
}

// meteredGraph measures every rendered block.
type meteredGraph struct {
	p     metric.BlockProcessor
	meter *metric.Meter
}

func (m meteredGraph) ProcessBlock(dst []float32) int {
	return m.meter.ProcessBlock(m.p, dst)
}

func newPlayCommand(root *rootOptions) *cobra.Command {
	opts := &playOptions{rootOptions: root}
	cmd := &cobra.Command{
		Use:   "play <graph-file>",
		Short: "Play main output of a graph on default device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, g, err := opts.build(args[0])
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if opts.duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, opts.duration)
				defer cancel()
			}

			reg := prometheus.NewRegistry()
			collector := metric.NewCollector()
			collector.Add(g)
			reg.MustRegister(collector)
			r := meteredGraph{p: g, meter: metric.NewMeter(reg, g.ID(), g.SampleRate())}
			if opts.metricsAddr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
				srv := &http.Server{Addr: opts.metricsAddr, Handler: mux}
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						opts.logger.WithError(err).Error("metrics server failed")
					}
				}()
				defer srv.Close()
			}

			opts.logger.WithField("graph", g.ID()).Info("playing")
			return portaudio.Play(ctx, r, portaudio.NewSink(int(g.SampleRate()), g.BlockSize()))
		},
	}
	cmd.Flags().DurationVarP(&opts.duration, "duration", "d", 0, "stop after duration, play until interrupted if zero")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve prometheus metrics on address")
	return cmd
}
