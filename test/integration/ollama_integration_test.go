package integration

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"roleplay-agent-be/pkg/llm"
	"roleplay-agent-be/pkg/llm/ollama"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Requires a local Ollama with the model pulled:
//
//	ollama pull gemma:2b
//	OLLAMA_INTEGRATION=1 go test ./test/integration -run TestOllama -v
func ollamaProvider(t *testing.T) *ollama.OllamaProvider {
	if os.Getenv("OLLAMA_INTEGRATION") == "" {
		t.Skip("Skipping integration test: OLLAMA_INTEGRATION not set")
	}

	baseURL := os.Getenv("OLLAMA_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	model := os.Getenv("OLLAMA_LLM_MODEL")
	if model == "" {
		model = "gemma:2b"
	}
	return ollama.NewOllamaProvider(baseURL, model)
}

var ollamaHistory = []llm.Message{
	{Role: "system", Content: "You are Elara, a careful lighthouse keeper's apprentice. Stay in character."},
	{Role: "user", Content: "Greet me in one short sentence."},
}

func TestOllamaChat(t *testing.T) {
	provider := ollamaProvider(t)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	text, err := provider.Chat(ctx, ollamaHistory, llm.WithTemperature(0.2))
	require.NoError(t, err)
	assert.NotEmpty(t, strings.TrimSpace(text))
	t.Logf("Reply: %s", text)
}

func TestOllamaChatStream(t *testing.T) {
	provider := ollamaProvider(t)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	var chunks []string
	total, err := provider.ChatStream(ctx, ollamaHistory, func(chunk string) error {
		chunks = append(chunks, chunk)
		return nil
	}, llm.WithTemperature(0.2))
	require.NoError(t, err)

	assert.NotEmpty(t, chunks)
	assert.Equal(t, strings.Join(chunks, ""), total)
	t.Logf("Streamed %d chunks: %s", len(chunks), total)
}
