package dto

import (
	"time"

	"github.com/google/uuid"
)

type SendTurnRequest struct {
	ThreadId      *uuid.UUID `json:"thread_id,omitempty"`
	CharacterName string     `json:"character_name" validate:"required,max=255"`
	Text          string     `json:"text" validate:"required"`
}

type TurnMessageDTO struct {
	Id        uuid.UUID `json:"id"`
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type SendTurnResponse struct {
	ThreadId    uuid.UUID       `json:"thread_id"`
	ThreadTitle string          `json:"title"`
	Sent        *TurnMessageDTO `json:"sent"`
	Reply       *TurnMessageDTO `json:"reply"`
	Reflection  string          `json:"reflection,omitempty"`
}

type GetAllThreadsResponse struct {
	Id            uuid.UUID  `json:"id"`
	CharacterName string     `json:"character_name"`
	Title         string     `json:"title"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at"`
}

type GetThreadHistoryResponse struct {
	Id        uuid.UUID `json:"id"`
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type DeleteThreadRequest struct {
	ThreadId uuid.UUID `json:"thread_id" validate:"required"`
}
