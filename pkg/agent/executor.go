package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"roleplay-agent-be/internal/pkg/logger"
	"roleplay-agent-be/pkg/embedding"
	"roleplay-agent-be/pkg/llm"
	"roleplay-agent-be/pkg/retrieval"
)

// Write-log entries for state changes the executor itself applies.
const (
	writeInput  = "input"
	writeOutput = "output"
)

// Config tunes per-turn execution.
type Config struct {
	// TopK is the number of passages retrieve asks for (default 5).
	TopK int
	// GenerationTimeout caps each reflect/generate provider call. Zero
	// means no deadline beyond the caller's context.
	GenerationTimeout time.Duration
}

// Executor runs the fixed pipeline for one turn: load checkpoint, append the
// user message, execute retrieve → reflect → generate merging each partial
// update through the declared reducers, then persist checkpoint + write log
// atomically. Turns for the same thread are serialized by rejection; turns
// for different threads never block each other.
type Executor struct {
	nodes []Node
	store CheckpointStore
	cfg   Config
	log   logger.ILogger

	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewExecutor(
	store CheckpointStore,
	embedder embedding.EmbeddingProvider,
	retriever *retrieval.Client,
	provider llm.LLMProvider,
	cfg Config,
	log logger.ILogger,
) *Executor {
	return &Executor{
		nodes: []Node{
			NewRetrieveNode(embedder, retriever, cfg.TopK, log),
			NewReflectNode(provider, log),
			NewGenerateNode(provider, log),
		},
		store:    store,
		cfg:      cfg,
		log:      log,
		inflight: make(map[string]struct{}),
	}
}

// acquire reserves the thread for one turn. A thread with a turn already
// executing is rejected, never queued, so two writers can never race on the
// same checkpoint.
func (e *Executor) acquire(threadID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.inflight[threadID]; busy {
		return fmt.Errorf("%w: %s", ErrTurnInFlight, threadID)
	}
	e.inflight[threadID] = struct{}{}
	return nil
}

func (e *Executor) release(threadID string) {
	e.mu.Lock()
	delete(e.inflight, threadID)
	e.mu.Unlock()
}

// prepare loads (or lazily initializes) the thread state and applies the
// incoming user message through the concat reducer.
func (e *Executor) prepare(ctx context.Context, threadID, characterName, userText string) (*State, []Write, error) {
	cp, err := e.store.Load(ctx, threadID)
	if err != nil {
		return nil, nil, fmt.Errorf("load checkpoint: %w", err)
	}

	var state *State
	if cp != nil {
		state = cp.State.Clone()
	} else {
		state = &State{CharacterName: characterName}
	}
	if state.CharacterName == "" {
		return nil, nil, ErrEmptyCharacter
	}

	input := Delta{Messages: []Message{{Role: RoleUser, Text: userText}}}
	state.Apply(input)
	writes := []Write{{Seq: 0, Node: writeInput, Delta: input}}
	return state, writes, nil
}

// nodeCtx applies the generation deadline to reflect/generate calls.
// retrieve carries no timeout of its own; it fails open instead.
func (e *Executor) nodeCtx(ctx context.Context, node Node) (context.Context, context.CancelFunc) {
	if node.Name() == NodeRetrieve || e.cfg.GenerationTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.cfg.GenerationTimeout)
}

// step executes one node and merges its partial update. A retrieve failure
// is non-fatal: the turn proceeds with an empty (not absent) context. A
// reflect/generate failure aborts the turn.
func (e *Executor) step(ctx context.Context, node Node, run func(context.Context) (Delta, error)) (Delta, error) {
	nctx, cancel := e.nodeCtx(ctx, node)
	defer cancel()

	delta, err := run(nctx)
	if err != nil {
		if node.Name() == NodeRetrieve {
			e.log.Warn("Executor", "Retrieval degraded, continuing with empty context", map[string]interface{}{
				"error": err.Error(),
			})
			return Delta{Context: StrPtr("")}, nil
		}
		return Delta{}, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	return delta, nil
}

// Run executes one blocking turn and returns the final merged state. On a
// fatal node error the prior checkpoint is left untouched.
func (e *Executor) Run(ctx context.Context, threadID, characterName, userText string) (*State, error) {
	if err := e.acquire(threadID); err != nil {
		return nil, err
	}
	defer e.release(threadID)

	state, writes, err := e.prepare(ctx, threadID, characterName, userText)
	if err != nil {
		return nil, err
	}

	for _, node := range e.nodes {
		delta, err := e.step(ctx, node, func(nctx context.Context) (Delta, error) {
			return node.Run(nctx, state)
		})
		if err != nil {
			return nil, err
		}
		state.Apply(delta)
		writes = append(writes, Write{Seq: len(writes), Node: node.Name(), Delta: delta})
	}

	output := Delta{Messages: []Message{{Role: RoleAssistant, Text: state.Response}}}
	state.Apply(output)
	writes = append(writes, Write{Seq: len(writes), Node: writeOutput, Delta: output})

	if err := e.store.Save(ctx, threadID, state, writes); err != nil {
		e.log.Error("Executor", "Checkpoint save failed after turn completed; thread state is now inconsistent and needs operator attention", map[string]interface{}{
			"thread_id": threadID,
			"error":     err.Error(),
		})
		return nil, fmt.Errorf("%w: %v", ErrCheckpointSave, err)
	}

	return state, nil
}

// RunStream executes one turn, forwarding reflection and reply fragments
// over events as they are produced. The channel is always closed before
// returning. The checkpoint is persisted strictly before the final event is
// emitted, so a consumer that observes "final" can rely on the streamed
// token concatenation matching the persisted response. A consumer
// disconnect (context cancellation) aborts the in-flight provider call and
// persists nothing.
func (e *Executor) RunStream(ctx context.Context, threadID, characterName, userText string, events chan<- StreamEvent) (*State, error) {
	defer close(events)

	if err := e.acquire(threadID); err != nil {
		e.tryEmitError(ctx, events, err)
		return nil, err
	}
	defer e.release(threadID)

	state, writes, err := e.prepare(ctx, threadID, characterName, userText)
	if err != nil {
		e.tryEmitError(ctx, events, err)
		return nil, err
	}

	mux := newMultiplexer(ctx, events)
	for _, node := range e.nodes {
		emit := mux.emitterFor(node.Name())
		delta, err := e.step(ctx, node, func(nctx context.Context) (Delta, error) {
			return node.RunStream(nctx, state, emit)
		})
		if err != nil {
			e.tryEmitError(ctx, events, err)
			return nil, err
		}
		state.Apply(delta)
		writes = append(writes, Write{Seq: len(writes), Node: node.Name(), Delta: delta})
	}

	// The streamed fragments are the source of truth for what the consumer
	// saw; the persisted response must match them exactly.
	if streamed := mux.Response(); streamed != state.Response {
		e.log.Warn("Executor", "Streamed fragments and provider total diverged, persisting streamed text", map[string]interface{}{
			"thread_id": threadID,
		})
		state.Apply(Delta{Response: StrPtr(streamed)})
	}

	output := Delta{Messages: []Message{{Role: RoleAssistant, Text: state.Response}}}
	state.Apply(output)
	writes = append(writes, Write{Seq: len(writes), Node: writeOutput, Delta: output})

	if err := e.store.Save(ctx, threadID, state, writes); err != nil {
		e.log.Error("Executor", "Checkpoint save failed after fragments were already streamed; delivered reply is not persisted and needs operator attention", map[string]interface{}{
			"thread_id": threadID,
			"error":     err.Error(),
		})
		e.tryEmitError(ctx, events, err)
		return nil, fmt.Errorf("%w: %v", ErrCheckpointSave, err)
	}

	select {
	case events <- StreamEvent{Type: EventFinal, Content: state.Response}:
	case <-ctx.Done():
		return state, ctx.Err()
	}
	return state, nil
}

// tryEmitError pushes a terminal error event unless the consumer is gone.
func (e *Executor) tryEmitError(ctx context.Context, events chan<- StreamEvent, err error) {
	select {
	case events <- StreamEvent{Type: EventError, Content: err.Error()}:
	case <-ctx.Done():
	}
}
