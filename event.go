package tonegraph

import (
	"fmt"
	"sync/atomic"
)

// Payload is either a scalar or a reference to shared immutable data.
type Payload struct {
	scalar float32
	ref    any
}

// Scalar returns a scalar payload.
func Scalar(v float32) Payload {
	return Payload{scalar: v}
}

// Ref returns a payload that references v. Receivers must treat v as
// read-only.
func Ref(v any) Payload {
	return Payload{ref: v}
}

// Scalar returns a scalar value of payload. It's zero for references.
func (p Payload) Scalar() float32 {
	return p.scalar
}

// Ref returns a referenced value or nil for scalars.
func (p Payload) Ref() any {
	return p.ref
}

// IsRef returns true if payload carries a reference.
func (p Payload) IsRef() bool {
	return p.ref != nil
}

// EventInstance is a payload with frame offset inside the block.
type EventInstance struct {
	Offset  int
	Payload Payload
}

// OverflowPolicy defines what happens when bounded event buffer is full.
type OverflowPolicy uint8

const (
	// RejectNew drops the incoming event. Earliest events survive.
	RejectNew OverflowPolicy = iota
	// EvictOldest drops the event that arrived first. Latest events
	// survive.
	EvictOldest
)

func (p OverflowPolicy) String() string {
	if p == EvictOldest {
		return "evict-oldest"
	}
	return "reject-new"
}

// ParseOverflowPolicy returns the policy with provided name.
func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	switch s {
	case "reject-new":
		return RejectNew, nil
	case "evict-oldest":
		return EvictOldest, nil
	}
	return 0, fmt.Errorf("unknown overflow policy %q", s)
}

// Emitted is an event produced by a node during its processing call.
type Emitted struct {
	Output int
	Event  EventInstance
}

// PendingBuffer collects events a node emits during one processing call.
// It's allocated once and never grows.
type PendingBuffer struct {
	entries []Emitted
	policy  OverflowPolicy
	dropped atomic.Uint64
}

// NewPendingBuffer returns a buffer with fixed capacity.
func NewPendingBuffer(capacity int, policy OverflowPolicy) *PendingBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &PendingBuffer{
		entries: make([]Emitted, 0, capacity),
		policy:  policy,
	}
}

// Push appends an event. If buffer is full, policy is applied and false
// is returned when incoming event was dropped.
func (b *PendingBuffer) Push(output int, e EventInstance) bool {
	if len(b.entries) == cap(b.entries) {
		b.dropped.Add(1)
		if b.policy == RejectNew {
			return false
		}
		copy(b.entries, b.entries[1:])
		b.entries = b.entries[:len(b.entries)-1]
	}
	b.entries = append(b.entries, Emitted{Output: output, Event: e})
	return true
}

// Entries returns pending events in emission order.
func (b *PendingBuffer) Entries() []Emitted {
	return b.entries
}

// Reset empties the buffer.
func (b *PendingBuffer) Reset() {
	b.entries = b.entries[:0]
}

// Dropped returns number of events lost to overflow.
func (b *PendingBuffer) Dropped() uint64 {
	return b.dropped.Load()
}

// queueKey orders events within an input queue.
type queueKey struct {
	block   uint64
	seq     uint64
	arrival uint64
}

// eventQueue is a bounded per-input queue sorted by block, offset,
// connection sequence and arrival.
type eventQueue struct {
	events  []EventInstance
	keys    []queueKey
	policy  OverflowPolicy
	arrival uint64
	dropped *atomic.Uint64
}

func newEventQueue(capacity int, policy OverflowPolicy, dropped *atomic.Uint64) *eventQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &eventQueue{
		events:  make([]EventInstance, 0, capacity),
		keys:    make([]queueKey, 0, capacity),
		policy:  policy,
		dropped: dropped,
	}
}

func (q *eventQueue) less(e EventInstance, k queueKey, i int) bool {
	o := q.keys[i]
	switch {
	case k.block != o.block:
		return k.block < o.block
	case e.Offset != q.events[i].Offset:
		return e.Offset < q.events[i].Offset
	case k.seq != o.seq:
		return k.seq < o.seq
	}
	return k.arrival < o.arrival
}

// push inserts an event keeping the order stable.
func (q *eventQueue) push(e EventInstance, block, seq uint64) bool {
	if len(q.events) == cap(q.events) {
		if q.dropped != nil {
			q.dropped.Add(1)
		}
		if q.policy == RejectNew {
			return false
		}
		q.remove(q.oldest())
	}
	q.arrival++
	k := queueKey{block: block, seq: seq, arrival: q.arrival}
	pos := len(q.events)
	for pos > 0 && q.less(e, k, pos-1) {
		pos--
	}
	q.events = append(q.events, EventInstance{})
	q.keys = append(q.keys, queueKey{})
	copy(q.events[pos+1:], q.events[pos:])
	copy(q.keys[pos+1:], q.keys[pos:])
	q.events[pos] = e
	q.keys[pos] = k
	return true
}

func (q *eventQueue) oldest() int {
	j := 0
	for i := 1; i < len(q.keys); i++ {
		if q.keys[i].arrival < q.keys[j].arrival {
			j = i
		}
	}
	return j
}

func (q *eventQueue) remove(i int) {
	copy(q.events[i:], q.events[i+1:])
	copy(q.keys[i:], q.keys[i+1:])
	q.events = q.events[:len(q.events)-1]
	q.keys = q.keys[:len(q.keys)-1]
}

// due returns the number of leading events deliverable at frame of block.
func (q *eventQueue) due(block uint64, frame int) int {
	n := 0
	for n < len(q.events) {
		k := q.keys[n]
		if k.block > block || (k.block == block && q.events[n].Offset > frame) {
			break
		}
		n++
	}
	return n
}

// consume drops first n events.
func (q *eventQueue) consume(n int) {
	if n == 0 {
		return
	}
	m := copy(q.events, q.events[n:])
	copy(q.keys, q.keys[n:])
	q.events = q.events[:m]
	q.keys = q.keys[:m]
}

func (q *eventQueue) size() int {
	return len(q.events)
}
