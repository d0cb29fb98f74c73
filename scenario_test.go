package tonegraph_test

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dudk/tonegraph"
	"github.com/dudk/tonegraph/mock"
	"github.com/dudk/tonegraph/nodes"
)

func goldenFixture(t *testing.T) *goldie.Goldie {
	return goldie.New(
		t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestFilterChain(t *testing.T) {
	g := newGraph(t)
	add(t, g, "osc", nodes.NewSine(440, 1))
	add(t, g, "filter", nodes.NewLowpass(1000))
	add(t, g, "gain", nodes.NewGain(0.5))
	_, err := g.AddOutput("out", tonegraph.Stream)
	require.NoError(t, err)
	connect(t, g, "osc.out", "filter.in")
	connect(t, g, "filter.out", "gain.in")
	connect(t, g, "gain.out", "out")

	result := make([]float32, 4800)
	assert.Equal(t, len(result), g.ProcessBlock(result))
	var peak float32
	for _, v := range result {
		peak = float32(math.Max(float64(peak), math.Abs(float64(v))))
	}
	assert.LessOrEqual(t, peak, float32(0.5))
	assert.Greater(t, peak, float32(0.1))

	out, err := g.Port("out")
	require.NoError(t, err)
	assert.Equal(t, result[len(result)-1], out.Value())
}

func TestFeedbackAccumulator(t *testing.T) {
	g := newGraph(t)
	add(t, g, "one", nodes.NewConstant(1))
	add(t, g, "mix", nodes.NewMixer(2))
	add(t, g, "delay", nodes.NewDelay(1))
	_, err := g.AddOutput("out", tonegraph.Stream)
	require.NoError(t, err)
	connect(t, g, "one.out", "mix.in1")
	connect(t, g, "mix.out", "delay.in")
	connect(t, g, "mix.out", "out")
	id := connect(t, g, "delay.out", "mix.in2", tonegraph.Feedback(0))

	assert.Equal(t, []float32{1, 1, 2, 2, 3, 3}, process(g, 6))
	incoming := g.Incoming(mustNode(t, g, "mix").In(1))
	require.Len(t, incoming, 1)
	assert.Equal(t, id, incoming[0].ID)
	assert.True(t, incoming[0].Feedback)
}

func TestFeedbackInitialValue(t *testing.T) {
	g := newGraph(t)
	add(t, g, "mix", nodes.NewMixer(1))
	_, err := g.AddOutput("out", tonegraph.Stream)
	require.NoError(t, err)
	connect(t, g, "mix.out", "mix.in1", tonegraph.Feedback(2))
	connect(t, g, "mix.out", "out")
	assert.Equal(t, []float32{2, 2, 2}, process(g, 3))
}

func TestValueUpdates(t *testing.T) {
	g := newGraph(t)
	rec := &mock.Recorder{}
	add(t, g, "rec", rec.Node("rec"))

	g.Process()
	require.NoError(t, g.SetValue("rec.value", 0.5))
	g.Process()
	require.NoError(t, g.SetValueRamp("rec.value", 1, 4))
	process(g, 5)
	require.NoError(t, g.SetValue("rec.value", 0))
	g.Process()

	assert.Equal(t, []float32{0, 0.5, 0.625, 0.75, 0.875, 1, 1, 0}, rec.Values)
}

func TestValueRampFromDeclaration(t *testing.T) {
	g := newGraph(t)
	rec := &mock.Recorder{Ramp: 4}
	add(t, g, "rec", rec.Node("rec"))
	require.NoError(t, g.SetValue("rec.value", 1))
	process(g, 5)
	assert.Equal(t, []float32{0.25, 0.5, 0.75, 1, 1}, rec.Values)
}

func TestGraphInputs(t *testing.T) {
	g := newGraph(t)
	_, err := g.AddInput("a", tonegraph.Stream, 0.3)
	require.NoError(t, err)
	_, err = g.AddInput("b", tonegraph.Stream, 0.4)
	require.NoError(t, err)
	add(t, g, "mix", nodes.NewMixer(2))
	_, err = g.AddOutput("out", tonegraph.Stream)
	require.NoError(t, err)
	connect(t, g, "a", "mix.in1")
	connect(t, g, "b", "mix.in2")
	connect(t, g, "mix.out", "out")

	assert.InDelta(t, 0.7, g.Process(), 1e-6)

	a, err := g.Port("a")
	require.NoError(t, err)
	assert.Equal(t, "a", a.Name())
	assert.Equal(t, tonegraph.Stream, a.Kind())
	assert.Equal(t, tonegraph.Input, a.Direction())
	require.NoError(t, a.Set(0.5))
	assert.InDelta(t, 0.9, g.Process(), 1e-6)

	out, err := g.Port("out")
	require.NoError(t, err)
	assert.ErrorIs(t, out.Set(1), tonegraph.ErrIncompatibleDirection)
	_, err = g.Port("mix")
	assert.ErrorIs(t, err, tonegraph.ErrUnknownEndpoint)
	_, err = g.Port("missing")
	assert.ErrorIs(t, err, tonegraph.ErrUnknownNode)
}

func TestGraphValueInput(t *testing.T) {
	g := newGraph(t)
	_, err := g.AddInput("level", tonegraph.Value, 0.2)
	require.NoError(t, err)
	add(t, g, "one", nodes.NewConstant(1))
	add(t, g, "gain", nodes.NewGain(1))
	_, err = g.AddOutput("out", tonegraph.Stream)
	require.NoError(t, err)
	connect(t, g, "level", "gain.gain")
	connect(t, g, "one.out", "gain.in")
	connect(t, g, "gain.out", "out")

	assert.Equal(t, float32(0.2), g.Process())
	require.NoError(t, g.SetValue("level", 0.6))
	assert.Equal(t, float32(0.6), g.Process())

	level, err := g.Port("level")
	require.NoError(t, err)
	require.NoError(t, level.Set(0.8))
	assert.Equal(t, float32(0.8), g.Process())
	assert.Equal(t, float32(0.8), level.Value())
}

func TestExternalEvents(t *testing.T) {
	g := newGraph(t, tonegraph.WithBlockSize(8))
	_, err := g.AddInput("notes", tonegraph.Event, 0)
	require.NoError(t, err)
	add(t, g, "pass", nodes.NewPassthrough())
	_, err = g.AddOutput("events", tonegraph.Event)
	require.NoError(t, err)
	connect(t, g, "notes", "pass.in")
	connect(t, g, "pass.out", "events")

	require.NoError(t, g.QueueEvent("notes", 3, tonegraph.Scalar(60)))
	process(g, 8)

	var received []tonegraph.EventInstance
	require.NoError(t, g.DrainEvents("events", func(e tonegraph.EventInstance) {
		received = append(received, e)
	}))
	assert.Equal(t, []tonegraph.EventInstance{{Offset: 3, Payload: tonegraph.Scalar(60)}}, received)

	received = nil
	require.NoError(t, g.DrainEvents("events", func(e tonegraph.EventInstance) {
		received = append(received, e)
	}))
	assert.Empty(t, received)

	notes, err := g.Port("notes")
	require.NoError(t, err)
	require.NoError(t, notes.Queue(0, tonegraph.Ref("chord")))
	g.Process()
	require.NoError(t, g.DrainEvents("events", func(e tonegraph.EventInstance) {
		received = append(received, e)
	}))
	require.Len(t, received, 1)
	assert.True(t, received[0].Payload.IsRef())
	assert.Equal(t, "chord", received[0].Payload.Ref())

	assert.ErrorIs(t, g.QueueEvent("notes", 8, tonegraph.Scalar(1)), tonegraph.ErrInvalidOffset)
	assert.ErrorIs(t, notes.Queue(-1, tonegraph.Scalar(1)), tonegraph.ErrInvalidOffset)
	assert.ErrorIs(t, g.QueueEvent("missing", 0, tonegraph.Scalar(1)), tonegraph.ErrUnknownNode)
	assert.ErrorIs(t, g.DrainEvents("notes", func(tonegraph.EventInstance) {}), tonegraph.ErrKindMismatch)
}

func TestQueueEventKindMismatch(t *testing.T) {
	g := newGraph(t)
	add(t, g, "gain", nodes.NewGain(1))
	assert.ErrorIs(t, g.QueueEvent("gain.gain", 0, tonegraph.Scalar(1)), tonegraph.ErrKindMismatch)
}

func TestInboxOverflow(t *testing.T) {
	g := newGraph(t, tonegraph.WithInboxCapacity(2))
	rec := &mock.Recorder{Rate: tonegraph.PerBlock}
	add(t, g, "rec", rec.Node("rec"))

	require.NoError(t, g.QueueEvent("rec.events", 0, tonegraph.Scalar(1)))
	require.NoError(t, g.QueueEvent("rec.events", 0, tonegraph.Scalar(2)))
	assert.ErrorIs(t, g.QueueEvent("rec.events", 0, tonegraph.Scalar(3)), tonegraph.ErrQueueOverflow)
	assert.Equal(t, uint64(1), g.Stats().InboxDropped)

	g.Process()
	assert.Equal(t, []float32{1, 2}, rec.Payloads())
}

func TestMetronomeCounter(t *testing.T) {
	g := newGraph(t, tonegraph.WithBlockSize(64))
	// one beat every 480 frames
	add(t, g, "metronome", nodes.NewMetronome(6000))
	add(t, g, "counter", nodes.NewCounter(tonegraph.PerBlock))
	add(t, g, "one", nodes.NewConstant(1))
	add(t, g, "gain", nodes.NewGain(0))
	_, err := g.AddOutput("out", tonegraph.Stream)
	require.NoError(t, err)
	connect(t, g, "metronome.tick", "counter.in")
	connect(t, g, "counter.count", "gain.gain")
	connect(t, g, "one.out", "gain.in")
	connect(t, g, "gain.out", "out")

	result := process(g, 64*20)
	assert.Equal(t, float32(1), result[0])
	// beat at frame 480 is counted on the next block
	assert.Equal(t, float32(1), result[511])
	assert.Equal(t, float32(2), result[512])
	assert.Equal(t, float32(3), result[len(result)-1])
}

func TestStatic(t *testing.T) {
	build := func() *tonegraph.Graph {
		g := newGraph(t, tonegraph.WithBlockSize(32))
		add(t, g, "metronome", nodes.NewMetronome(12000))
		add(t, g, "counter", nodes.NewCounter(tonegraph.PerBlock))
		add(t, g, "osc", nodes.NewSine(440, 1))
		add(t, g, "mix", nodes.NewMixer(2))
		add(t, g, "delay", nodes.NewDelay(7))
		add(t, g, "gain", nodes.NewGain(0.1))
		_, err := g.AddOutput("out", tonegraph.Stream)
		require.NoError(t, err)
		connect(t, g, "metronome.tick", "counter.in")
		connect(t, g, "counter.count", "gain.gain")
		connect(t, g, "osc.out", "mix.in1")
		connect(t, g, "mix.out", "delay.in")
		connect(t, g, "delay.out", "mix.in2", tonegraph.Feedback(0))
		connect(t, g, "mix.out", "gain.in")
		connect(t, g, "gain.out", "out")
		return g
	}
	dynamic := build()
	static, err := tonegraph.Compile(build())
	require.NoError(t, err)
	assert.Equal(t, dynamic.Fingerprint(), static.Fingerprint())

	assert.Equal(t, process(dynamic, 2000), process(static, 2000))
	require.NoError(t, dynamic.SetValueRamp("osc.freq", 880, 100))
	require.NoError(t, static.SetValueRamp("osc.freq", 880, 100))
	a, b := make([]float32, 500), make([]float32, 500)
	dynamic.ProcessBlock(a)
	static.ProcessBlock(b)
	assert.Equal(t, a, b)

	g := static.Graph()
	_, err = g.AddNode(nodes.NewConstant(1))
	assert.ErrorIs(t, err, tonegraph.ErrTopologyFrozen)
	_, err = g.ConnectNames("osc.out", "mix.in2")
	assert.ErrorIs(t, err, tonegraph.ErrTopologyFrozen)
	key, _ := g.Node("osc")
	assert.ErrorIs(t, g.RemoveNode(key), tonegraph.ErrTopologyFrozen)
	assert.ErrorIs(t, g.Disconnect(1), tonegraph.ErrTopologyFrozen)
	assert.NoError(t, static.SetValue("osc.amp", 0.5))
}

func TestStaticEvents(t *testing.T) {
	g := newGraph(t, tonegraph.WithBlockSize(8))
	_, err := g.AddInput("notes", tonegraph.Event, 0)
	require.NoError(t, err)
	add(t, g, "pass", nodes.NewPassthrough())
	_, err = g.AddOutput("events", tonegraph.Event)
	require.NoError(t, err)
	connect(t, g, "notes", "pass.in")
	connect(t, g, "pass.out", "events")
	static, err := tonegraph.Compile(g)
	require.NoError(t, err)

	require.NoError(t, static.QueueEvent("notes", 5, tonegraph.Scalar(7)))
	process(static, 8)
	var received []tonegraph.EventInstance
	require.NoError(t, static.DrainEvents("events", func(e tonegraph.EventInstance) {
		received = append(received, e)
	}))
	assert.Equal(t, []tonegraph.EventInstance{{Offset: 5, Payload: tonegraph.Scalar(7)}}, received)
}

func TestCompileCycle(t *testing.T) {
	g := newGraph(t)
	add(t, g, "a", nodes.NewMixer(1))
	_, err := g.ConnectNames("a.out", "a.in1")
	require.Error(t, err)
	_, err = tonegraph.Compile(g)
	assert.NoError(t, err)
}

func TestConcurrentControl(t *testing.T) {
	defer goleak.VerifyNone(t)

	g := newGraph(t, tonegraph.WithBlockSize(16))
	rec := &mock.Recorder{Rate: tonegraph.PerBlock}
	add(t, g, "rec", rec.Node("rec"))
	_, err := g.AddInput("notes", tonegraph.Event, 0)
	require.NoError(t, err)
	connect(t, g, "notes", "rec.events")

	const events = 100
	var (
		wg   sync.WaitGroup
		errs = make(chan error, 2*events)
		done = make(chan struct{})
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < events; i++ {
			if err := g.SetValue("rec.value", float32(i)); err != nil {
				errs <- err
			}
			if err := g.QueueEvent("notes", 0, tonegraph.Scalar(float32(i))); err != nil && !errors.Is(err, tonegraph.ErrQueueOverflow) {
				errs <- err
			}
		}
	}()
	go func() {
		wg.Wait()
		close(done)
	}()

loop:
	for {
		select {
		case <-done:
			break loop
		default:
			g.Process()
		}
	}
	process(g, 16*50)
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	stats := g.Stats()
	assert.Equal(t, events-int(stats.QueueDropped)-int(stats.InboxDropped), len(rec.Events))
	assert.Equal(t, float32(events-1), rec.Values[len(rec.Values)-1])
}

// busyGraph routes an event on every tick into buffers too small to hold
// them.
func busyGraph(t *testing.T) *tonegraph.Graph {
	t.Helper()
	g := newGraph(t,
		tonegraph.WithBlockSize(16),
		tonegraph.WithPendingCapacity(1, tonegraph.RejectNew),
		tonegraph.WithQueueCapacity(4, tonegraph.EvictOldest),
	)
	_, err := g.AddInput("notes", tonegraph.Event, 0)
	require.NoError(t, err)
	add(t, g, "clock", nodes.NewMetronome(sampleRate*60))
	add(t, g, "pass", nodes.NewPassthrough())
	add(t, g, "beats", nodes.NewCounter(tonegraph.PerBlock))
	add(t, g, "osc", nodes.NewSine(440, 1))
	add(t, g, "filter", nodes.NewLowpass(800))
	add(t, g, "gain", nodes.NewGain(1))
	_, err = g.AddOutput("out", tonegraph.Stream)
	require.NoError(t, err)
	_, err = g.AddOutput("events", tonegraph.Event)
	require.NoError(t, err)
	connect(t, g, "notes", "pass.in")
	connect(t, g, "clock.tick", "pass.in")
	connect(t, g, "pass.out", "beats.in")
	connect(t, g, "pass.out", "events")
	connect(t, g, "beats.count", "gain.gain")
	connect(t, g, "osc.out", "filter.in")
	connect(t, g, "filter.out", "gain.in")
	connect(t, g, "gain.out", "out")
	return g
}

func TestProcessDoesNotAllocate(t *testing.T) {
	type runner interface {
		Process() float32
		QueueEvent(name string, offset int, p tonegraph.Payload) error
	}
	measure := func(t *testing.T, g *tonegraph.Graph, r runner) {
		block := func() {
			_ = r.QueueEvent("notes", 3, tonegraph.Scalar(1))
			for i := 0; i < g.BlockSize(); i++ {
				r.Process()
			}
		}
		assert.Zero(t, testing.AllocsPerRun(100, block))
		stats := g.Stats()
		assert.NotZero(t, stats.PendingDropped)
		assert.NotZero(t, stats.QueueDropped)
	}
	t.Run("graph", func(t *testing.T) {
		g := busyGraph(t)
		measure(t, g, g)
	})
	t.Run("static", func(t *testing.T) {
		g := busyGraph(t)
		s, err := tonegraph.Compile(g)
		require.NoError(t, err)
		measure(t, g, s)
	})
}

func mustNode(t *testing.T, g *tonegraph.Graph, name string) tonegraph.NodeKey {
	t.Helper()
	key, ok := g.Node(name)
	require.True(t, ok)
	return key
}
