package mapper

import (
	"encoding/json"
	"fmt"

	"roleplay-agent-be/internal/model"
	"roleplay-agent-be/pkg/agent"

	"github.com/google/uuid"
)

// blobThreshold is the size in bytes above which a scalar state field is
// moved out of the checkpoint JSON into its own checkpoint_blobs row. Keeps
// the snapshot row small enough to stay in the jsonb fast path.
const blobThreshold = 8 * 1024

// blobMarker replaces an overflowed field inside the snapshot JSON. Load
// recognises it and restores the field from the blob row.
const blobMarker = "__blob__"

// overflowFields are the scalar fields eligible for blob overflow. Messages
// stays inline: it grows by whole entries and the history itself is the
// snapshot's payload.
var overflowFields = []agent.Field{agent.FieldContext, agent.FieldReflection, agent.FieldResponse}

type CheckpointMapper struct{}

func NewCheckpointMapper() *CheckpointMapper {
	return &CheckpointMapper{}
}

func fieldValue(s *agent.State, f agent.Field) *string {
	switch f {
	case agent.FieldContext:
		return &s.Context
	case agent.FieldReflection:
		return &s.Reflection
	case agent.FieldResponse:
		return &s.Response
	}
	return nil
}

// ToModel serializes a state snapshot for persistence. Oversized scalar
// fields are extracted into blob rows and replaced by a marker in the JSON.
func (m *CheckpointMapper) ToModel(threadId uuid.UUID, state *agent.State) (*model.Checkpoint, []*model.CheckpointBlob, error) {
	snapshot := state.Clone()

	var blobs []*model.CheckpointBlob
	for _, f := range overflowFields {
		v := fieldValue(snapshot, f)
		if len(*v) <= blobThreshold {
			continue
		}
		blobs = append(blobs, &model.CheckpointBlob{
			ThreadId: threadId,
			Field:    string(f),
			Value:    []byte(*v),
		})
		*v = blobMarker
	}

	raw, err := json.Marshal(snapshot)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal checkpoint state: %w", err)
	}

	return &model.Checkpoint{
		ThreadId: threadId,
		State:    raw,
	}, blobs, nil
}

// ToCheckpoint rebuilds the in-memory checkpoint, restoring any overflowed
// fields from their blob rows.
func (m *CheckpointMapper) ToCheckpoint(cp *model.Checkpoint, blobs []*model.CheckpointBlob) (*agent.Checkpoint, error) {
	if cp == nil {
		return nil, nil
	}

	var state agent.State
	if err := json.Unmarshal(cp.State, &state); err != nil {
		return nil, fmt.Errorf("unmarshal checkpoint state: %w", err)
	}

	for _, b := range blobs {
		v := fieldValue(&state, agent.Field(b.Field))
		if v == nil {
			return nil, fmt.Errorf("unknown blob field %q for thread %s", b.Field, cp.ThreadId)
		}
		*v = string(b.Value)
	}

	return &agent.Checkpoint{
		ThreadID:  cp.ThreadId.String(),
		State:     state,
		CreatedAt: cp.CreatedAt,
		UpdatedAt: cp.UpdatedAt,
	}, nil
}

// WriteToModel serializes one write-log entry for a turn.
func (m *CheckpointMapper) WriteToModel(threadId, turnId uuid.UUID, w agent.Write) (*model.CheckpointWrite, error) {
	raw, err := json.Marshal(w.Delta)
	if err != nil {
		return nil, fmt.Errorf("marshal write delta: %w", err)
	}
	return &model.CheckpointWrite{
		ThreadId: threadId,
		TurnId:   turnId,
		Seq:      w.Seq,
		Node:     w.Node,
		Delta:    raw,
	}, nil
}
