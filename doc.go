/*
Package tonegraph executes audio dataflow graphs in real time.

Concept

A graph is a set of nodes wired together through typed endpoints. Every
endpoint is one of three kinds:

    Stream - audio-rate scalar, read and written every sample;
    Value - control-rate scalar parameter, optionally smoothed;
    Event - discrete messages with a frame offset inside the block.

Nodes implement Processor. Each tick the graph walks its processing order,
gathers inputs from upstream outputs, calls Process and routes the events
the node emitted. Stream inputs fed by several connections receive the sum
of their sources. Event inputs receive every event, ordered by frame offset
and then by connection registration order.

Building

Nodes are added with AddNode and wired with Connect:

    g, err := tonegraph.New(tonegraph.WithSampleRate(48000))
    osc, _ := g.AddNode(nodes.NewSine(440, 1))
    out, _ := g.AddOutput("out", tonegraph.Stream)
    _, err = g.Connect(osc.Out(0), out.In(0))

A connection closing a cycle is rejected with ErrCycleDetected unless it is
declared with Feedback, in which case the destination reads the value the
source produced on the previous tick.

Execution

Process computes one sample and returns the main output. The graph can be
edited between ticks from another goroutine: every edit publishes a new
processing plan which the audio goroutine picks up at the next tick. Values
are updated with SetValue and events injected with QueueEvent from any
goroutine without blocking the audio goroutine.

Compile freezes a graph into a Static, a flat program over the same nodes.
The gen package goes further and emits Go source with one field per node.
*/
package tonegraph
