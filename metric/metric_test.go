package metric_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dudk/tonegraph"
	"github.com/dudk/tonegraph/metric"
	"github.com/dudk/tonegraph/mock"
)

func TestCollector(t *testing.T) {
	g, err := tonegraph.New(tonegraph.WithInboxCapacity(1))
	require.NoError(t, err)
	rec := &mock.Recorder{}
	_, err = g.AddNode(rec.Node("rec"))
	require.NoError(t, err)
	require.NoError(t, g.QueueEvent("rec.events", 0, tonegraph.Scalar(1)))
	assert.Error(t, g.QueueEvent("rec.events", 0, tonegraph.Scalar(2)))
	for i := 0; i < 10; i++ {
		g.Process()
	}

	c := metric.NewCollector()
	c.Add(g)
	expected := fmt.Sprintf(`
# HELP tonegraph_inbox_dropped_total Number of external events rejected on injection.
# TYPE tonegraph_inbox_dropped_total counter
tonegraph_inbox_dropped_total{graph="%[1]s"} 1
# HELP tonegraph_ticks_total Number of processed samples.
# TYPE tonegraph_ticks_total counter
tonegraph_ticks_total{graph="%[1]s"} 10
`, g.ID())
	assert.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected),
		"tonegraph_ticks_total", "tonegraph_inbox_dropped_total"))
	assert.Equal(t, 5, testutil.CollectAndCount(c))

	c.Remove(g.ID())
	assert.Equal(t, 0, testutil.CollectAndCount(c))
}

type blocks struct {
	calls int
}

func (b *blocks) ProcessBlock(dst []float32) int {
	b.calls++
	return len(dst)
}

func TestMeter(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metric.NewMeter(reg, "test", 1000)
	p := &blocks{}
	assert.Equal(t, 10, m.ProcessBlock(p, make([]float32, 10)))
	assert.Equal(t, 1, p.calls)

	m.Observe(5*time.Millisecond, 10)
	count, err := testutil.GatherAndCount(reg, "tonegraph_block_latency_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	expected := `
# HELP tonegraph_load_ratio Ratio of render time to duration of the last block.
# TYPE tonegraph_load_ratio gauge
tonegraph_load_ratio{graph="test"} 0.5
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "tonegraph_load_ratio"))
}

func TestDurationOf(t *testing.T) {
	assert.Equal(t, time.Second, metric.DurationOf(44100, 44100))
	assert.Equal(t, 10*time.Millisecond, metric.DurationOf(1000, 10))
	assert.Equal(t, time.Duration(0), metric.DurationOf(0, 10))
}
