package dto

import (
	"time"

	"github.com/google/uuid"
)

type IngestPassageRequest struct {
	Characters []string `json:"characters" validate:"required,min=1,dive,required"`
	Content    string   `json:"content" validate:"required"`
	SourceType string   `json:"source_type,omitempty"`
	Topic      string   `json:"topic,omitempty"`
}

type IngestPassagesRequest struct {
	Passages []IngestPassageRequest `json:"passages" validate:"required,min=1,max=100,dive"`
}

type IngestPassagesResponse struct {
	Queued int `json:"queued"`
}

type GetPassageResponse struct {
	Id         uuid.UUID `json:"id"`
	Characters []string  `json:"characters"`
	Content    string    `json:"content"`
	SourceType string    `json:"source_type,omitempty"`
	Topic      string    `json:"topic,omitempty"`
	Embedded   bool      `json:"embedded"`
	CreatedAt  time.Time `json:"created_at"`
}

// PublishEmbedPassageMessage is the payload queued for async embedding of an
// ingested passage.
type PublishEmbedPassageMessage struct {
	PassageId uuid.UUID `json:"passage_id"`
	Content   string    `json:"content"`
}
