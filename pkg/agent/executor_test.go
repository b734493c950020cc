package agent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"roleplay-agent-be/pkg/embedding"
	"roleplay-agent-be/pkg/llm"
	"roleplay-agent-be/pkg/retrieval"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- test doubles ---

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }

type fakeStore struct {
	mu          sync.Mutex
	checkpoints map[string]*Checkpoint
	turnWrites  map[string][]Write
	loadErr     error
	saveErr     error
	saves       int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		checkpoints: make(map[string]*Checkpoint),
		turnWrites:  make(map[string][]Write),
	}
}

func (s *fakeStore) Load(ctx context.Context, threadID string) (*Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	cp, ok := s.checkpoints[threadID]
	if !ok {
		return nil, nil
	}
	copied := *cp
	copied.State = *cp.State.Clone()
	return &copied, nil
}

func (s *fakeStore) Save(ctx context.Context, threadID string, state *State, writes []Write) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.checkpoints[threadID] = &Checkpoint{ThreadID: threadID, State: *state.Clone()}
	s.turnWrites[threadID] = append([]Write(nil), writes...)
	s.saves++
	return nil
}

func (s *fakeStore) DeleteAll(ctx context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.checkpoints, threadID)
	delete(s.turnWrites, threadID)
	return nil
}

func (s *fakeStore) saved(threadID string) *Checkpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkpoints[threadID]
}

func (s *fakeStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func (s *fakeStore) writesFor(threadID string) []Write {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turnWrites[threadID]
}

type fakeEmbedder struct {
	err error
}

func (e *fakeEmbedder) Generate(ctx context.Context, text string, taskType string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type fakeSearcher struct {
	mu         sync.Mutex
	hits       []retrieval.Hit
	err        error
	lastFilter string
	lastLimit  int
}

func (f *fakeSearcher) SearchSimilar(ctx context.Context, embedding []float32, characterFilter string, limit int) ([]retrieval.Hit, error) {
	f.mu.Lock()
	f.lastFilter = characterFilter
	f.lastLimit = limit
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

// fakeReply scripts one provider call. With total unset, ChatStream returns
// the chunk concatenation; with hangAfterChunks it blocks until the caller's
// context is cancelled, mimicking a consumer disconnect mid-generation.
type fakeReply struct {
	total           string
	chunks          []string
	err             error
	hangAfterChunks bool
}

type fakeLLM struct {
	mu      sync.Mutex
	calls   int
	replies []fakeReply
	gate    chan struct{}
	entered chan struct{}
}

func (p *fakeLLM) next() fakeReply {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.calls >= len(p.replies) {
		return fakeReply{err: errors.New("unexpected provider call")}
	}
	r := p.replies[p.calls]
	p.calls++
	return r
}

func (p *fakeLLM) wait(ctx context.Context) error {
	if p.entered != nil {
		select {
		case p.entered <- struct{}{}:
		default:
		}
	}
	if p.gate == nil {
		return nil
	}
	select {
	case <-p.gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *fakeLLM) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	r := p.next()
	if err := p.wait(ctx); err != nil {
		return "", err
	}
	if r.err != nil {
		return "", r.err
	}
	return r.total, nil
}

func (p *fakeLLM) ChatStream(ctx context.Context, history []llm.Message, onChunk llm.StreamHandler, opts ...llm.Option) (string, error) {
	r := p.next()
	if err := p.wait(ctx); err != nil {
		return "", err
	}
	if r.err != nil {
		return "", r.err
	}
	var full strings.Builder
	for _, c := range r.chunks {
		full.WriteString(c)
		if err := onChunk(c); err != nil {
			return full.String(), err
		}
	}
	if r.hangAfterChunks {
		<-ctx.Done()
		return full.String(), ctx.Err()
	}
	if r.total != "" {
		return r.total, nil
	}
	return full.String(), nil
}

func newTestExecutor(store CheckpointStore, embedder embedding.EmbeddingProvider, searcher retrieval.Searcher, provider llm.LLMProvider) *Executor {
	log := nopLogger{}
	return NewExecutor(store, embedder, retrieval.NewClient(searcher, log), provider, Config{TopK: 3}, log)
}

// --- tests ---

func TestRunAppendsUserAndAssistantMessages(t *testing.T) {
	store := newFakeStore()
	searcher := &fakeSearcher{hits: []retrieval.Hit{
		{Content: "Elara grew up in Meridian.", Score: 0.9},
		{Content: "Elara dislikes exaggeration.", Score: 0.8},
	}}
	provider := &fakeLLM{replies: []fakeReply{
		{total: "She is greeting me for the first time."},
		{total: "Well met, traveler."},
	}}
	exec := newTestExecutor(store, &fakeEmbedder{}, searcher, provider)

	state, err := exec.Run(context.Background(), "thread-1", "Elara", "hello")
	require.NoError(t, err)

	require.Len(t, state.Messages, 2)
	assert.Equal(t, RoleUser, state.Messages[0].Role)
	assert.Equal(t, "hello", state.Messages[0].Text)
	assert.Equal(t, RoleAssistant, state.Messages[1].Role)
	assert.Equal(t, "Well met, traveler.", state.Messages[1].Text)

	assert.Equal(t, "Elara grew up in Meridian.\n\nElara dislikes exaggeration.", state.Context)
	assert.Equal(t, "She is greeting me for the first time.", state.Reflection)
	assert.Equal(t, "Well met, traveler.", state.Response)

	assert.Equal(t, "Elara", searcher.lastFilter)
	assert.Equal(t, 3, searcher.lastLimit)

	saved := store.saved("thread-1")
	require.NotNil(t, saved)
	assert.Equal(t, state.Response, saved.State.Response)
	assert.Len(t, saved.State.Messages, 2)
}

func TestRunRecordsWriteLogInExecutionOrder(t *testing.T) {
	store := newFakeStore()
	provider := &fakeLLM{replies: []fakeReply{
		{total: "thinking"},
		{total: "reply"},
	}}
	exec := newTestExecutor(store, &fakeEmbedder{}, &fakeSearcher{}, provider)

	_, err := exec.Run(context.Background(), "thread-1", "Elara", "hello")
	require.NoError(t, err)

	writes := store.writesFor("thread-1")
	require.Len(t, writes, 5)
	wantNodes := []string{"input", NodeRetrieve, NodeReflect, NodeGenerate, "output"}
	for i, w := range writes {
		assert.Equal(t, i, w.Seq)
		assert.Equal(t, wantNodes[i], w.Node)
	}
	assert.Equal(t, RoleUser, writes[0].Delta.Messages[0].Role)
	assert.Equal(t, RoleAssistant, writes[4].Delta.Messages[0].Role)
}

func TestRunSearchFailureDegradesToEmptyContext(t *testing.T) {
	store := newFakeStore()
	searcher := &fakeSearcher{err: errors.New("index unavailable")}
	provider := &fakeLLM{replies: []fakeReply{
		{total: "thinking"},
		{total: "reply"},
	}}
	exec := newTestExecutor(store, &fakeEmbedder{}, searcher, provider)

	state, err := exec.Run(context.Background(), "thread-1", "Elara", "hello")
	require.NoError(t, err)
	assert.Equal(t, "", state.Context)
	assert.Equal(t, "reply", state.Response)
	assert.Equal(t, 1, store.saveCount())
}

func TestRunEmbeddingFailureDegradesToEmptyContext(t *testing.T) {
	store := newFakeStore()
	provider := &fakeLLM{replies: []fakeReply{
		{total: "thinking"},
		{total: "reply"},
	}}
	exec := newTestExecutor(store, &fakeEmbedder{err: errors.New("embedder down")}, &fakeSearcher{}, provider)

	state, err := exec.Run(context.Background(), "thread-1", "Elara", "hello")
	require.NoError(t, err)
	assert.Equal(t, "", state.Context)
	assert.Equal(t, "reply", state.Response)
}

func TestRunEmptyCharacterRejected(t *testing.T) {
	store := newFakeStore()
	exec := newTestExecutor(store, &fakeEmbedder{}, &fakeSearcher{}, &fakeLLM{})

	_, err := exec.Run(context.Background(), "thread-1", "", "hello")
	assert.ErrorIs(t, err, ErrEmptyCharacter)
	assert.Equal(t, 0, store.saveCount())
}

func TestRunRejectsSecondTurnOnBusyThread(t *testing.T) {
	store := newFakeStore()
	gate := make(chan struct{})
	provider := &fakeLLM{
		replies: []fakeReply{{total: "thinking"}, {total: "reply"}},
		gate:    gate,
		entered: make(chan struct{}, 4),
	}
	exec := newTestExecutor(store, &fakeEmbedder{}, &fakeSearcher{}, provider)

	firstDone := make(chan error, 1)
	go func() {
		_, err := exec.Run(context.Background(), "thread-1", "Elara", "hello")
		firstDone <- err
	}()
	<-provider.entered

	_, err := exec.Run(context.Background(), "thread-1", "Elara", "impatient second message")
	assert.ErrorIs(t, err, ErrTurnInFlight)

	close(gate)
	assert.NoError(t, <-firstDone)
	assert.Equal(t, 1, store.saveCount())
}

func TestRunIndependentThreadsDoNotBlockEachOther(t *testing.T) {
	store := newFakeStore()
	gate := make(chan struct{})
	provider := &fakeLLM{
		replies: []fakeReply{{total: "a"}, {total: "b"}, {total: "c"}, {total: "d"}},
		gate:    gate,
		entered: make(chan struct{}, 4),
	}
	exec := newTestExecutor(store, &fakeEmbedder{}, &fakeSearcher{}, provider)

	done := make(chan error, 2)
	go func() {
		_, err := exec.Run(context.Background(), "thread-1", "Elara", "hello")
		done <- err
	}()
	<-provider.entered

	// Second thread acquires while the first is mid-generation.
	go func() {
		_, err := exec.Run(context.Background(), "thread-2", "Bram", "hello")
		done <- err
	}()
	<-provider.entered

	close(gate)
	assert.NoError(t, <-done)
	assert.NoError(t, <-done)
	assert.NotNil(t, store.saved("thread-1"))
	assert.NotNil(t, store.saved("thread-2"))
}

func TestRunGenerationFailureLeavesPriorCheckpointUntouched(t *testing.T) {
	store := newFakeStore()
	store.checkpoints["thread-1"] = &Checkpoint{
		ThreadID: "thread-1",
		State: State{
			CharacterName: "Elara",
			Messages: []Message{
				{Role: RoleUser, Text: "hello"},
				{Role: RoleAssistant, Text: "well met"},
			},
			Response: "well met",
		},
	}
	provider := &fakeLLM{replies: []fakeReply{
		{err: errors.New("provider exploded")},
	}}
	exec := newTestExecutor(store, &fakeEmbedder{}, &fakeSearcher{}, provider)

	_, err := exec.Run(context.Background(), "thread-1", "Elara", "second message")
	assert.ErrorIs(t, err, ErrGenerationFailed)

	prior := store.saved("thread-1")
	require.NotNil(t, prior)
	assert.Len(t, prior.State.Messages, 2)
	assert.Equal(t, "well met", prior.State.Response)
	assert.Equal(t, 0, store.saveCount())
}

func TestRunSaveFailureSurfaces(t *testing.T) {
	store := newFakeStore()
	store.saveErr = errors.New("db down")
	provider := &fakeLLM{replies: []fakeReply{
		{total: "thinking"},
		{total: "reply"},
	}}
	exec := newTestExecutor(store, &fakeEmbedder{}, &fakeSearcher{}, provider)

	_, err := exec.Run(context.Background(), "thread-1", "Elara", "hello")
	assert.ErrorIs(t, err, ErrCheckpointSave)
}

func TestRunSecondTurnExtendsHistory(t *testing.T) {
	store := newFakeStore()
	provider := &fakeLLM{replies: []fakeReply{
		{total: "first thought"},
		{total: "first reply"},
		{total: "second thought"},
		{total: "second reply"},
	}}
	exec := newTestExecutor(store, &fakeEmbedder{}, &fakeSearcher{}, provider)

	_, err := exec.Run(context.Background(), "thread-1", "Elara", "hello")
	require.NoError(t, err)

	state, err := exec.Run(context.Background(), "thread-1", "Elara", "tell me more")
	require.NoError(t, err)

	require.Len(t, state.Messages, 4)
	assert.Equal(t, "hello", state.Messages[0].Text)
	assert.Equal(t, "first reply", state.Messages[1].Text)
	assert.Equal(t, "tell me more", state.Messages[2].Text)
	assert.Equal(t, "second reply", state.Messages[3].Text)
	assert.Equal(t, "Elara", state.CharacterName)
	assert.Equal(t, 2, store.saveCount())
}
