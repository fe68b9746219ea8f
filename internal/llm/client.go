// Package llm defines the generative backend boundary. The backend is an
// opaque streaming text-completion capability: it accepts a system
// instruction plus an ordered role/text history and yields incremental text
// deltas. It is consumed, never reimplemented; services depend on the Client
// interface so tests can inject fakes.
package llm

import "context"

// Turn is one prior message handed to the backend.
type Turn struct {
	Role string // "user" or "model"
	Text string
}

// Delta is one increment of a streamed completion. A Delta with Done set
// terminates the stream; Err is non-nil when the stream failed mid-flight.
type Delta struct {
	Content string
	Done    bool
	Err     error
}

// Client streams completions from a generative backend.
type Client interface {
	// StreamChat starts a completion for the given instruction and history
	// and returns a channel of deltas. The channel is closed after the
	// terminal delta. Cancelling ctx aborts the upstream call promptly so
	// abandoned requests release backend resources.
	StreamChat(ctx context.Context, model, systemInstruction string, history []Turn) (<-chan Delta, error)
}
