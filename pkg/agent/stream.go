package agent

import (
	"context"
	"strings"
)

// StreamEventType tags a streamed fragment with its meaning for the consumer.
type StreamEventType string

const (
	// EventReflectionChunk carries internal deliberation text. Consumers
	// must treat it as non-user-facing trace data.
	EventReflectionChunk StreamEventType = "reflection_chunk"

	// EventToken carries a fragment of the user-facing reply. Fragments
	// concatenate in arrival order to the persisted response.
	EventToken StreamEventType = "token"

	// EventError is terminal; no token events follow it.
	EventError StreamEventType = "error"

	// EventFinal is always the last event of a successful turn. The
	// channel is closed after it.
	EventFinal StreamEventType = "final"
)

// StreamEvent is one discrete record on the streaming wire.
type StreamEvent struct {
	Type    StreamEventType `json:"type"`
	Content string          `json:"content"`
}

// EmitFunc pushes a tagged fragment towards the transport. Returning an
// error cancels the producing call.
type EmitFunc func(StreamEvent) error

// multiplexer tags fragments by originating node, forwards them over a
// bounded channel and accumulates the generate-phase text for the
// persistence step. Sends block when the consumer is slow (backpressure,
// no drops) and abort when the turn context is cancelled.
type multiplexer struct {
	ctx      context.Context
	out      chan<- StreamEvent
	response strings.Builder
}

func newMultiplexer(ctx context.Context, out chan<- StreamEvent) *multiplexer {
	return &multiplexer{ctx: ctx, out: out}
}

func (m *multiplexer) forward(ev StreamEvent) error {
	select {
	case m.out <- ev:
		return nil
	case <-m.ctx.Done():
		return m.ctx.Err()
	}
}

// emitterFor returns the EmitFunc a node should stream through. Reflection
// chunks are forwarded as trace data; generate tokens are additionally
// accumulated into the would-be final response.
func (m *multiplexer) emitterFor(node string) EmitFunc {
	switch node {
	case NodeReflect:
		return func(ev StreamEvent) error {
			ev.Type = EventReflectionChunk
			return m.forward(ev)
		}
	case NodeGenerate:
		return func(ev StreamEvent) error {
			ev.Type = EventToken
			m.response.WriteString(ev.Content)
			return m.forward(ev)
		}
	default:
		// retrieve produces no fragments
		return func(StreamEvent) error { return nil }
	}
}

// Response returns the concatenation of all token fragments forwarded so far.
func (m *multiplexer) Response() string { return m.response.String() }
