package agent

import (
	"context"
	"time"
)

// Checkpoint is the durably persisted state of a thread plus bookkeeping.
type Checkpoint struct {
	ThreadID  string
	State     State
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Write is one entry of the per-turn write log: the partial update a single
// node contributed, in execution order. The log exists for crash-consistent
// resume and audit, not time travel.
type Write struct {
	Seq   int
	Node  string
	Delta Delta
}

// CheckpointStore is the durable keyed storage of per-thread pipeline state.
//
// Load returns (nil, nil) when no checkpoint exists for the thread.
// Save overwrites the latest snapshot and appends the turn's write log in a
// single transaction; a failed Save must leave the prior checkpoint intact.
// DeleteAll removes the snapshot, the write log and any blob overflow rows
// atomically; a partial delete is a correctness violation.
type CheckpointStore interface {
	Load(ctx context.Context, threadID string) (*Checkpoint, error)
	Save(ctx context.Context, threadID string, state *State, writes []Write) error
	DeleteAll(ctx context.Context, threadID string) error
}
