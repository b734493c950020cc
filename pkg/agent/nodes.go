package agent

import (
	"context"
	"fmt"
	"strings"

	"roleplay-agent-be/internal/pkg/logger"
	"roleplay-agent-be/pkg/embedding"
	"roleplay-agent-be/pkg/llm"
	"roleplay-agent-be/pkg/retrieval"
)

// Node names. The pipeline topology is fixed:
// START → retrieve → reflect → generate → END.
const (
	NodeRetrieve = "retrieve"
	NodeReflect  = "reflect"
	NodeGenerate = "generate"
)

// Node is one pipeline stage: a pure function of the accumulated state
// (plus its injected client) to a partial state update. RunStream behaves
// like Run but pushes fragments through emit as they are produced.
type Node interface {
	Name() string
	Run(ctx context.Context, s *State) (Delta, error)
	RunStream(ctx context.Context, s *State, emit EmitFunc) (Delta, error)
}

// --- retrieve ---

type retrieveNode struct {
	embedder  embedding.EmbeddingProvider
	retriever *retrieval.Client
	topK      int
	log       logger.ILogger
}

// NewRetrieveNode builds the retrieval stage: embed the latest user text,
// search the index filtered by the character, join the top-k contents.
func NewRetrieveNode(embedder embedding.EmbeddingProvider, retriever *retrieval.Client, topK int, log logger.ILogger) Node {
	if topK <= 0 {
		topK = retrieval.DefaultTopK
	}
	return &retrieveNode{embedder: embedder, retriever: retriever, topK: topK, log: log}
}

func (n *retrieveNode) Name() string { return NodeRetrieve }

func (n *retrieveNode) Run(ctx context.Context, s *State) (Delta, error) {
	query := s.LastUserText()
	if query == "" {
		return Delta{Context: StrPtr("")}, nil
	}

	vector, err := n.embedder.Generate(ctx, query, embedding.TaskRetrievalQuery)
	if err != nil {
		n.log.Warn("Retrieve", "Embedding failed, degrading to empty context", map[string]interface{}{
			"character": s.CharacterName,
			"error":     err.Error(),
		})
		return Delta{Context: StrPtr("")}, nil
	}

	hits := n.retriever.Search(ctx, vector, s.CharacterName, n.topK)
	contents := make([]string, 0, len(hits))
	for _, hit := range hits {
		contents = append(contents, hit.Content)
	}

	return Delta{Context: StrPtr(strings.Join(contents, "\n\n"))}, nil
}

func (n *retrieveNode) RunStream(ctx context.Context, s *State, emit EmitFunc) (Delta, error) {
	// retrieve produces no fragments
	return n.Run(ctx, s)
}

// --- reflect ---

type reflectNode struct {
	provider llm.LLMProvider
	log      logger.ILogger
}

// NewReflectNode builds the deliberation stage: first-person introspective
// text produced from persona + context + history. Non-empty on success.
func NewReflectNode(provider llm.LLMProvider, log logger.ILogger) Node {
	return &reflectNode{provider: provider, log: log}
}

func (n *reflectNode) Name() string { return NodeReflect }

func (n *reflectNode) Run(ctx context.Context, s *State) (Delta, error) {
	text, err := n.provider.Chat(ctx, newPromptBuilder(s).ReflectTurns())
	if err != nil {
		return Delta{}, fmt.Errorf("reflect: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return Delta{}, fmt.Errorf("reflect: provider returned empty deliberation")
	}
	return Delta{Reflection: StrPtr(text)}, nil
}

func (n *reflectNode) RunStream(ctx context.Context, s *State, emit EmitFunc) (Delta, error) {
	text, err := n.provider.ChatStream(ctx, newPromptBuilder(s).ReflectTurns(), func(chunk string) error {
		return emit(StreamEvent{Content: chunk})
	})
	if err != nil {
		return Delta{}, fmt.Errorf("reflect: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return Delta{}, fmt.Errorf("reflect: provider returned empty deliberation")
	}
	return Delta{Reflection: StrPtr(text)}, nil
}

// --- generate ---

type generateNode struct {
	provider llm.LLMProvider
	log      logger.ILogger
}

// NewGenerateNode builds the reply stage: the visible, persona-consistent
// answer produced from persona + context + reflection + history.
func NewGenerateNode(provider llm.LLMProvider, log logger.ILogger) Node {
	return &generateNode{provider: provider, log: log}
}

func (n *generateNode) Name() string { return NodeGenerate }

func (n *generateNode) Run(ctx context.Context, s *State) (Delta, error) {
	text, err := n.provider.Chat(ctx, newPromptBuilder(s).GenerateTurns())
	if err != nil {
		return Delta{}, fmt.Errorf("generate: %w", err)
	}
	return Delta{Response: StrPtr(text)}, nil
}

func (n *generateNode) RunStream(ctx context.Context, s *State, emit EmitFunc) (Delta, error) {
	text, err := n.provider.ChatStream(ctx, newPromptBuilder(s).GenerateTurns(), func(chunk string) error {
		return emit(StreamEvent{Content: chunk})
	})
	if err != nil {
		return Delta{}, fmt.Errorf("generate: %w", err)
	}
	return Delta{Response: StrPtr(text)}, nil
}
