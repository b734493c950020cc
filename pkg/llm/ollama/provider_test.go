package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"roleplay-agent-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var history = []llm.Message{
	{Role: "system", Content: "You are Elara."},
	{Role: "user", Content: "hello"},
}

func TestChatReturnsMessageContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)

		var req ollamaChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.False(t, req.Stream)
		require.Len(t, req.Messages, 2)

		json.NewEncoder(w).Encode(ollamaChatResponse{
			Message: ollamaMessage{Role: "assistant", Content: "Well met."},
			Done:    true,
		})
	}))
	defer srv.Close()

	provider := NewOllamaProvider(srv.URL, "test-model")
	text, err := provider.Chat(context.Background(), history)
	require.NoError(t, err)
	assert.Equal(t, "Well met.", text)
}

func TestChatNonOKStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	provider := NewOllamaProvider(srv.URL, "missing-model")
	_, err := provider.Chat(context.Background(), history)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func streamLine(w http.ResponseWriter, content string, done bool) {
	json.NewEncoder(w).Encode(ollamaChatResponse{
		Message: ollamaMessage{Role: "assistant", Content: content},
		Done:    done,
	})
}

func TestChatStreamForwardsChunksInOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		streamLine(w, "Well ", false)
		streamLine(w, "met, ", false)
		streamLine(w, "traveler.", false)
		streamLine(w, "", true)
	}))
	defer srv.Close()

	provider := NewOllamaProvider(srv.URL, "test-model")

	var chunks []string
	total, err := provider.ChatStream(context.Background(), history, func(chunk string) error {
		chunks = append(chunks, chunk)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Well ", "met, ", "traveler."}, chunks)
	assert.Equal(t, "Well met, traveler.", total)
}

func TestChatStreamMidStreamErrorReturnsPartial(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		streamLine(w, "Well ", false)
		fmt.Fprintln(w, `{"error":"model crashed"}`)
	}))
	defer srv.Close()

	provider := NewOllamaProvider(srv.URL, "test-model")
	total, err := provider.ChatStream(context.Background(), history, func(string) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model crashed")
	assert.Equal(t, "Well ", total)
}

func TestChatStreamHandlerErrorAborts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		streamLine(w, "Well ", false)
		streamLine(w, "met.", false)
		streamLine(w, "", true)
	}))
	defer srv.Close()

	hangup := errors.New("consumer gone")
	provider := NewOllamaProvider(srv.URL, "test-model")
	total, err := provider.ChatStream(context.Background(), history, func(string) error { return hangup })
	assert.ErrorIs(t, err, hangup)
	assert.Equal(t, "Well ", total)
}

func TestChatStreamTruncatedStreamIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		streamLine(w, "Well ", false)
	}))
	defer srv.Close()

	provider := NewOllamaProvider(srv.URL, "test-model")
	total, err := provider.ChatStream(context.Background(), history, func(string) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ended before completion")
	assert.Equal(t, "Well ", total)
}
