package events

import "time"

// Event type codes used on the bus.
const (
	TypeTurnPersisted   = "TURN_PERSISTED"
	TypeThreadDeleted   = "THREAD_DELETED"
	TypePassageEmbedded = "PASSAGE_EMBEDDED"
)

// NewTurnPersistedEvent fires after a turn's checkpoint and messages are
// durably committed.
func NewTurnPersistedEvent(userId, threadId, characterName string) Event {
	return BaseEvent{
		Type: TypeTurnPersisted,
		Data: map[string]interface{}{
			"user_id":        userId,
			"thread_id":      threadId,
			"character_name": characterName,
		},
		OccurredAt: time.Now(),
	}
}

// NewThreadDeletedEvent fires after a thread and its checkpoint data are
// removed.
func NewThreadDeletedEvent(userId, threadId string) Event {
	return BaseEvent{
		Type: TypeThreadDeleted,
		Data: map[string]interface{}{
			"user_id":   userId,
			"thread_id": threadId,
		},
		OccurredAt: time.Now(),
	}
}

// NewPassageEmbeddedEvent fires after an ingested passage gets its embedding.
func NewPassageEmbeddedEvent(passageId string, chunks int) Event {
	return BaseEvent{
		Type: TypePassageEmbedded,
		Data: map[string]interface{}{
			"passage_id": passageId,
			"chunks":     chunks,
		},
		OccurredAt: time.Now(),
	}
}
