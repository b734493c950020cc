package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collectStream runs one streaming turn and drains the event channel until
// it is closed, returning everything in arrival order.
func collectStream(ctx context.Context, exec *Executor, threadID, character, text string) (*State, []StreamEvent, error) {
	events := make(chan StreamEvent, 16)
	var (
		state  *State
		runErr error
		done   = make(chan struct{})
	)
	go func() {
		defer close(done)
		state, runErr = exec.RunStream(ctx, threadID, character, text, events)
	}()

	var collected []StreamEvent
	for ev := range events {
		collected = append(collected, ev)
	}
	<-done
	return state, collected, runErr
}

func eventsOfType(events []StreamEvent, t StreamEventType) []StreamEvent {
	var out []StreamEvent
	for _, ev := range events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func TestRunStreamTokenConcatMatchesPersistedResponse(t *testing.T) {
	store := newFakeStore()
	provider := &fakeLLM{replies: []fakeReply{
		{chunks: []string{"She seems ", "curious."}},
		{chunks: []string{"Well ", "met, ", "traveler."}},
	}}
	exec := newTestExecutor(store, &fakeEmbedder{}, &fakeSearcher{}, provider)

	state, events, err := collectStream(context.Background(), exec, "thread-1", "Elara", "hello")
	require.NoError(t, err)

	reflections := eventsOfType(events, EventReflectionChunk)
	require.Len(t, reflections, 2)
	assert.Equal(t, "She seems ", reflections[0].Content)

	tokens := eventsOfType(events, EventToken)
	var streamed strings.Builder
	for _, ev := range tokens {
		streamed.WriteString(ev.Content)
	}
	assert.Equal(t, "Well met, traveler.", streamed.String())

	// final is the last event and carries the full reply
	final := events[len(events)-1]
	assert.Equal(t, EventFinal, final.Type)
	assert.Equal(t, streamed.String(), final.Content)

	saved := store.saved("thread-1")
	require.NotNil(t, saved)
	assert.Equal(t, streamed.String(), saved.State.Response)
	assert.Equal(t, streamed.String(), state.Response)
	assert.Equal(t, "She seems curious.", saved.State.Reflection)
}

func TestRunStreamPersistsBeforeFinalEvent(t *testing.T) {
	store := newFakeStore()
	provider := &fakeLLM{replies: []fakeReply{
		{chunks: []string{"thinking"}},
		{chunks: []string{"reply"}},
	}}
	exec := newTestExecutor(store, &fakeEmbedder{}, &fakeSearcher{}, provider)

	events := make(chan StreamEvent, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = exec.RunStream(context.Background(), "thread-1", "Elara", "hello", events)
	}()

	for ev := range events {
		if ev.Type == EventFinal {
			// observing final implies the checkpoint is already durable
			assert.Equal(t, 1, store.saveCount())
		}
	}
	<-done
}

func TestRunStreamDivergentProviderTotalUsesStreamedText(t *testing.T) {
	store := newFakeStore()
	provider := &fakeLLM{replies: []fakeReply{
		{chunks: []string{"thinking"}},
		{chunks: []string{"Well ", "met."}, total: "something else entirely"},
	}}
	exec := newTestExecutor(store, &fakeEmbedder{}, &fakeSearcher{}, provider)

	state, events, err := collectStream(context.Background(), exec, "thread-1", "Elara", "hello")
	require.NoError(t, err)

	final := events[len(events)-1]
	assert.Equal(t, EventFinal, final.Type)
	assert.Equal(t, "Well met.", final.Content)
	assert.Equal(t, "Well met.", state.Response)
	assert.Equal(t, "Well met.", store.saved("thread-1").State.Response)
	assert.Equal(t, "Well met.", state.Messages[len(state.Messages)-1].Text)
}

func TestRunStreamDisconnectPersistsNothing(t *testing.T) {
	store := newFakeStore()
	provider := &fakeLLM{replies: []fakeReply{
		{chunks: []string{"thinking"}},
		{chunks: []string{"Well "}, hangAfterChunks: true},
	}}
	exec := newTestExecutor(store, &fakeEmbedder{}, &fakeSearcher{}, provider)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := make(chan StreamEvent, 16)
	done := make(chan error, 1)
	go func() {
		_, err := exec.RunStream(ctx, "thread-1", "Elara", "hello", events)
		done <- err
	}()

	// hang up as soon as the first reply token arrives
	for ev := range events {
		if ev.Type == EventToken {
			cancel()
		}
	}

	err := <-done
	require.Error(t, err)
	assert.Equal(t, 0, store.saveCount())
	assert.Nil(t, store.saved("thread-1"))
}

func TestRunStreamProviderErrorEmitsTerminalErrorEvent(t *testing.T) {
	store := newFakeStore()
	provider := &fakeLLM{replies: []fakeReply{
		{err: errors.New("provider exploded")},
	}}
	exec := newTestExecutor(store, &fakeEmbedder{}, &fakeSearcher{}, provider)

	_, events, err := collectStream(context.Background(), exec, "thread-1", "Elara", "hello")
	assert.ErrorIs(t, err, ErrGenerationFailed)

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, EventError, last.Type)
	assert.Empty(t, eventsOfType(events, EventToken))
	assert.Empty(t, eventsOfType(events, EventFinal))
	assert.Equal(t, 0, store.saveCount())
}

func TestRunStreamBusyThreadEmitsErrorEvent(t *testing.T) {
	store := newFakeStore()
	gate := make(chan struct{})
	provider := &fakeLLM{
		replies: []fakeReply{{chunks: []string{"thinking"}}, {chunks: []string{"reply"}}},
		gate:    gate,
		entered: make(chan struct{}, 4),
	}
	exec := newTestExecutor(store, &fakeEmbedder{}, &fakeSearcher{}, provider)

	firstDone := make(chan struct{})
	firstEvents := make(chan StreamEvent, 16)
	go func() {
		defer close(firstDone)
		_, _ = exec.RunStream(context.Background(), "thread-1", "Elara", "hello", firstEvents)
	}()
	<-provider.entered

	_, events, err := collectStream(context.Background(), exec, "thread-1", "Elara", "again")
	assert.ErrorIs(t, err, ErrTurnInFlight)
	require.Len(t, events, 1)
	assert.Equal(t, EventError, events[0].Type)

	close(gate)
	for range firstEvents {
	}
	<-firstDone
	assert.Equal(t, 1, store.saveCount())
}
