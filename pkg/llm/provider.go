package llm

import (
	"context"
)

// Message represents a chat message in a provider-agnostic format.
type Message struct {
	Role    string // "user", "assistant", "system"
	Content string
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// StreamHandler receives each text fragment as the provider produces it.
// Fragments concatenate, in order, to the full completion. Returning an
// error aborts the in-flight request.
type StreamHandler func(chunk string) error

// LLMProvider defines the contract for any LLM backend.
type LLMProvider interface {
	// Chat sends a chat history to the model and returns the full response.
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)

	// ChatStream sends a chat history and delivers the response
	// incrementally through onChunk. It returns the full accumulated text.
	// A provider error after partial output returns both the partial text
	// and a non-nil error; callers must not treat the partial text as a
	// complete response.
	ChatStream(ctx context.Context, history []Message, onChunk StreamHandler, options ...Option) (string, error)
}
