// Package metric exposes graph counters and processing load to prometheus.
package metric

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dudk/tonegraph"
)

const (
	namespace  = "tonegraph"
	graphLabel = "graph"
)

// Source is a graph measured by Collector. Both *tonegraph.Graph and
// *tonegraph.Static graphs qualify through their Graph.
type Source interface {
	ID() string
	Stats() tonegraph.Stats
}

// Collector reports counters of registered graphs. Counters are read on
// scrape, so processing goroutine is never touched.
type Collector struct {
	mu     sync.Mutex
	graphs map[string]Source

	ticks          *prometheus.Desc
	pendingDropped *prometheus.Desc
	queueDropped   *prometheus.Desc
	inboxDropped   *prometheus.Desc
	rebuilds       *prometheus.Desc
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, []string{graphLabel}, nil)
	}
	return &Collector{
		graphs:         make(map[string]Source),
		ticks:          desc("ticks_total", "Number of processed samples."),
		pendingDropped: desc("pending_dropped_total", "Number of emitted events lost to pending buffer overflow."),
		queueDropped:   desc("queue_dropped_total", "Number of events lost to input queue overflow."),
		inboxDropped:   desc("inbox_dropped_total", "Number of external events rejected on injection."),
		rebuilds:       desc("rebuilds_total", "Number of published processing plans."),
	}
}

// Add registers the graph.
func (c *Collector) Add(s Source) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.graphs[s.ID()] = s
}

// Remove unregisters the graph.
func (c *Collector) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.graphs, id)
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.ticks
	ch <- c.pendingDropped
	ch <- c.queueDropped
	ch <- c.inboxDropped
	ch <- c.rebuilds
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, s := range c.graphs {
		stats := s.Stats()
		ch <- prometheus.MustNewConstMetric(c.ticks, prometheus.CounterValue, float64(stats.Ticks), id)
		ch <- prometheus.MustNewConstMetric(c.pendingDropped, prometheus.CounterValue, float64(stats.PendingDropped), id)
		ch <- prometheus.MustNewConstMetric(c.queueDropped, prometheus.CounterValue, float64(stats.QueueDropped), id)
		ch <- prometheus.MustNewConstMetric(c.inboxDropped, prometheus.CounterValue, float64(stats.InboxDropped), id)
		ch <- prometheus.MustNewConstMetric(c.rebuilds, prometheus.CounterValue, float64(stats.Rebuilds), id)
	}
}

// BlockProcessor renders blocks of samples.
type BlockProcessor interface {
	ProcessBlock([]float32) int
}

// Meter measures how long blocks take to render compared to their
// duration. Load above 1 means the graph can't keep up in real time.
type Meter struct {
	sampleRate float32
	latency    prometheus.Observer
	load       prometheus.Gauge
}

// NewMeter registers meter metrics for the graph in reg.
func NewMeter(reg prometheus.Registerer, id string, sampleRate float32) *Meter {
	f := promauto.With(reg)
	return &Meter{
		sampleRate: sampleRate,
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "block_latency_seconds",
			Help:      "Time spent rendering a block.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 12),
		}, []string{graphLabel}).WithLabelValues(id),
		load: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "load_ratio",
			Help:      "Ratio of render time to duration of the last block.",
		}, []string{graphLabel}).WithLabelValues(id),
	}
}

// ProcessBlock renders dst with p and records the measurements.
func (m *Meter) ProcessBlock(p BlockProcessor, dst []float32) int {
	start := time.Now()
	n := p.ProcessBlock(dst)
	m.Observe(time.Since(start), n)
	return n
}

// Observe records that n samples took elapsed time to render.
func (m *Meter) Observe(elapsed time.Duration, n int) {
	m.latency.Observe(elapsed.Seconds())
	if d := DurationOf(m.sampleRate, n); d > 0 {
		m.load.Set(float64(elapsed) / float64(d))
	}
}

// DurationOf returns time duration of samples at provided sample rate.
func DurationOf(sampleRate float32, samples int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(samples) / float64(sampleRate) * float64(time.Second))
}
