package tonegraph

import "fmt"

// Option provides a way to set functional parameters to graph.
type Option func(g *Graph) error

// ValuePolicy defines how value inputs with several sources are resolved.
type ValuePolicy uint8

const (
	// LastWriteWins makes the source latest in processing order
	// authoritative. Feedback sources count as written before the tick.
	LastWriteWins ValuePolicy = iota
	// ExclusiveValue rejects a second connection to value input.
	ExclusiveValue
)

func (p ValuePolicy) String() string {
	if p == ExclusiveValue {
		return "exclusive"
	}
	return "last-write-wins"
}

// ParseValuePolicy returns the policy with provided name.
func ParseValuePolicy(s string) (ValuePolicy, error) {
	switch s {
	case "last-write-wins":
		return LastWriteWins, nil
	case "exclusive":
		return ExclusiveValue, nil
	}
	return 0, fmt.Errorf("unknown value policy %q", s)
}

const (
	defaultSampleRate      = 44100
	defaultBlockSize       = 128
	defaultPendingCapacity = 256
	defaultQueueCapacity   = 32
	defaultInboxCapacity   = 256
)

// WithLogger sets logger to Graph. If this option is not provided, silent
// logger is used.
func WithLogger(logger Logger) Option {
	return func(g *Graph) error {
		g.log = logger
		return nil
	}
}

// WithName sets name to Graph.
func WithName(n string) Option {
	return func(g *Graph) error {
		g.name = n
		return nil
	}
}

// WithSampleRate sets sample rate passed to node initializers.
func WithSampleRate(sampleRate float32) Option {
	return func(g *Graph) error {
		if sampleRate <= 0 {
			return fmt.Errorf("invalid sample rate: %v", sampleRate)
		}
		g.sampleRate = sampleRate
		return nil
	}
}

// WithBlockSize sets number of frames in a block. Event offsets must be
// less than block size.
func WithBlockSize(n int) Option {
	return func(g *Graph) error {
		if n < 1 {
			return fmt.Errorf("invalid block size: %d", n)
		}
		g.blockSize = n
		return nil
	}
}

// WithPendingCapacity sets how many events one node can emit in a tick.
func WithPendingCapacity(n int, policy OverflowPolicy) Option {
	return func(g *Graph) error {
		if n < 1 {
			return fmt.Errorf("invalid pending capacity: %d", n)
		}
		g.pendingCap = n
		g.pendingPolicy = policy
		return nil
	}
}

// WithQueueCapacity sets capacity and overflow policy of every event input.
func WithQueueCapacity(n int, policy OverflowPolicy) Option {
	return func(g *Graph) error {
		if n < 1 {
			return fmt.Errorf("invalid queue capacity: %d", n)
		}
		g.queueCap = n
		g.queuePolicy = policy
		return nil
	}
}

// WithInboxCapacity sets how many externally queued events can wait for
// the next tick.
func WithInboxCapacity(n int) Option {
	return func(g *Graph) error {
		if n < 1 {
			return fmt.Errorf("invalid inbox capacity: %d", n)
		}
		g.inboxCap = n
		return nil
	}
}

// WithValuePolicy sets how value inputs with several sources are resolved.
func WithValuePolicy(p ValuePolicy) Option {
	return func(g *Graph) error {
		g.valuePolicy = p
		return nil
	}
}

// ConnectOption configures a connection.
type ConnectOption func(c *connection)

// Feedback marks connection as a feedback edge. Destination reads the
// value source produced on the previous tick, initial on the first one.
func Feedback(initial float32) ConnectOption {
	return func(c *connection) {
		c.feedback = true
		c.initial = initial
	}
}
