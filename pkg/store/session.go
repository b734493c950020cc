package store

// Session represents the active thread session state in memory. It mirrors
// runtime-only turn bookkeeping; the durable record lives in the checkpoint.
type Session struct {
	ID            string `json:"id"` // ThreadID
	UserID        string `json:"user_id"`
	CharacterName string `json:"character_name"`
	State         string `json:"state"` // "IDLE" | "STREAMING"

	// Metadata for last interaction
	LastTurnID   string `json:"last_turn_id"`
	LastUserText string `json:"last_user_text"`
}

const (
	StateIdle      = "IDLE"
	StateStreaming = "STREAMING"
)
