package runtime

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/LucasSabena/codemobile-sub001/pkg/chat"
	"github.com/LucasSabena/codemobile-sub001/pkg/config"
	"github.com/LucasSabena/codemobile-sub001/pkg/model/provider"
	"github.com/LucasSabena/codemobile-sub001/pkg/model/provider/options"
	"github.com/LucasSabena/codemobile-sub001/pkg/session"
	"github.com/LucasSabena/codemobile-sub001/pkg/tools"
)

// scriptedProvider replays one scripted stream per call. Once the script
// is exhausted it keeps replaying the last stream.
type scriptedProvider struct {
	mu       sync.Mutex
	rounds   [][]chat.StreamEvent
	calls    int
	tools    [][]tools.Tool
	messages [][]chat.Message

	cancelled atomic.Int32
}

func (p *scriptedProvider) ID() string { return "mock" }

func (p *scriptedProvider) SendMessage(_ context.Context, messages []chat.Message, _ string, requestTools []tools.Tool, _ options.Generation) <-chan chat.StreamEvent {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx := min(p.calls, len(p.rounds)-1)
	p.calls++
	p.tools = append(p.tools, requestTools)
	p.messages = append(p.messages, append([]chat.Message(nil), messages...))

	ch := make(chan chat.StreamEvent, len(p.rounds[idx]))
	for _, ev := range p.rounds[idx] {
		ch <- ev
	}
	close(ch)
	return ch
}

func (p *scriptedProvider) ListModels() []provider.Model             { return nil }
func (p *scriptedProvider) ValidateCredentials(context.Context) bool { return true }
func (p *scriptedProvider) CancelRequest()                           { p.cancelled.Add(1) }

func (p *scriptedProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type recordingExecutor struct {
	calls  []chat.ToolCall
	result func(chat.ToolCall) tools.Result
}

func (e *recordingExecutor) Execute(_ context.Context, call chat.ToolCall) tools.Result {
	e.calls = append(e.calls, call)
	if e.result != nil {
		return e.result(call)
	}
	return tools.Success("ok " + call.ID)
}

func text(s string) []chat.StreamEvent {
	return []chat.StreamEvent{chat.TextDelta{Text: s}, chat.Usage{InputTokens: 10, OutputTokens: 2}, chat.Done{}}
}

func toolRound(prefix string, ids ...string) []chat.StreamEvent {
	events := []chat.StreamEvent{chat.TextDelta{Text: prefix}}
	for i, id := range ids {
		events = append(events,
			chat.ToolCallDelta{Index: i, ID: id, Name: tools.ToolNameReadFile},
			chat.ToolCallComplete{ToolCall: chat.ToolCall{ID: id, Name: tools.ToolNameReadFile, Arguments: `{"path":"a.txt"}`}},
		)
	}
	return append(events, chat.Usage{InputTokens: 5, OutputTokens: 1}, chat.Done{})
}

func collect(events <-chan Event) []Event {
	var out []Event
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

func ofType[T Event](events []Event) []T {
	var out []T
	for _, ev := range events {
		if t, ok := ev.(T); ok {
			out = append(out, t)
		}
	}
	return out
}

func newSession(t *testing.T, store session.Store, mode session.Mode) *session.Session {
	t.Helper()
	sess := session.New(session.WithMode(mode), session.WithModel("mock", "mock-model"))
	require.NoError(t, store.AddSession(t.Context(), sess))
	return sess
}

func TestRunStreamPlainReply(t *testing.T) {
	t.Parallel()

	prov := &scriptedProvider{rounds: [][]chat.StreamEvent{text("hello there")}}
	store := session.NewInMemorySessionStore()
	sess := newSession(t, store, session.ModeChat)

	rt := New(prov, &recordingExecutor{}, store)
	events := collect(rt.RunStream(t.Context(), sess, "hi"))

	require.IsType(t, &StreamStartedEvent{}, events[0])
	require.IsType(t, &StreamStoppedEvent{}, events[len(events)-1])
	assert.Equal(t, []*AgentChoiceEvent{{Type: "agent_choice", Content: "hello there"}}, ofType[*AgentChoiceEvent](events))
	assert.Empty(t, ofType[*ErrorEvent](events))
	assert.Empty(t, ofType[*MaxRoundsReachedEvent](events))

	assert.Equal(t, 1, prov.callCount())
	assert.Nil(t, prov.tools[0], "chat mode must not offer tools")

	msgs, err := store.GetMessages(t.Context(), sess.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, chat.MessageRoleUser, msgs[0].Role)
	assert.Equal(t, "hi", msgs[0].Content)
	assert.Equal(t, chat.MessageRoleAssistant, msgs[1].Role)
	assert.Equal(t, "hello there", msgs[1].Content)

	stored, err := store.GetSession(t.Context(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), stored.InputTokens)
	assert.Equal(t, int64(2), stored.OutputTokens)
}

func TestRunStreamCreatesUnknownSession(t *testing.T) {
	t.Parallel()

	prov := &scriptedProvider{rounds: [][]chat.StreamEvent{text("ok")}}
	store := session.NewInMemorySessionStore()
	sess := session.New()

	collect(New(prov, &recordingExecutor{}, store).RunStream(t.Context(), sess, "hi"))

	msgs, err := store.GetMessages(t.Context(), sess.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestRunStreamExecutesToolsInOrder(t *testing.T) {
	t.Parallel()

	prov := &scriptedProvider{rounds: [][]chat.StreamEvent{
		toolRound("Let me look. ", "call_1", "call_2"),
		text("Done."),
	}}
	exec := &recordingExecutor{result: func(call chat.ToolCall) tools.Result {
		if call.ID == "call_2" {
			return tools.Failure("a.txt does not exist")
		}
		return tools.Success("content")
	}}
	store := session.NewInMemorySessionStore()
	sess := newSession(t, store, session.ModeBuild)

	events := collect(New(prov, exec, store).RunStream(t.Context(), sess, "read a.txt"))

	require.Len(t, exec.calls, 2)
	assert.Equal(t, "call_1", exec.calls[0].ID)
	assert.Equal(t, "call_2", exec.calls[1].ID)

	assert.Equal(t, 2, prov.callCount())
	assert.Len(t, prov.tools[0], 7)

	responses := ofType[*ToolCallResponseEvent](events)
	require.Len(t, responses, 2)
	assert.True(t, responses[0].Success)
	assert.False(t, responses[1].Success)
	assert.Len(t, ofType[*ToolCallEvent](events), 2)
	assert.Len(t, ofType[*PartialToolCallEvent](events), 2)

	msgs, err := store.GetMessages(t.Context(), sess.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 5)
	assert.Equal(t, chat.MessageRoleAssistant, msgs[1].Role)
	assert.Equal(t, "Let me look. ", msgs[1].Content)
	require.Len(t, msgs[1].ToolCalls, 2)
	assert.Equal(t, chat.MessageRoleTool, msgs[2].Role)
	assert.Equal(t, "call_1", msgs[2].ToolCallID)
	assert.False(t, msgs[2].IsError)
	assert.Equal(t, "call_2", msgs[3].ToolCallID)
	assert.True(t, msgs[3].IsError)
	assert.Equal(t, "Error: a.txt does not exist", msgs[3].Content)
	assert.Equal(t, "Done.", msgs[4].Content)

	// The second request carries the tool turns.
	assert.Len(t, prov.messages[1], 4)

	usage := ofType[*TokenUsageEvent](events)
	require.NotEmpty(t, usage)
	last := usage[len(usage)-1]
	assert.Equal(t, int64(15), last.InputTokens)
	assert.Equal(t, int64(3), last.OutputTokens)
}

func TestRunStreamStopsAtRoundBudget(t *testing.T) {
	t.Parallel()

	prov := &scriptedProvider{rounds: [][]chat.StreamEvent{toolRound("step ", "call")}}
	exec := &recordingExecutor{}
	store := session.NewInMemorySessionStore()
	sess := newSession(t, store, session.ModeBuild)

	events := collect(New(prov, exec, store).RunStream(t.Context(), sess, "loop forever"))

	assert.Equal(t, 25, prov.callCount())
	assert.Len(t, exec.calls, 25)

	maxRounds := ofType[*MaxRoundsReachedEvent](events)
	require.Len(t, maxRounds, 1)
	assert.Equal(t, 25, maxRounds[0].MaxRounds)
	assert.Equal(t, strings.Repeat("step ", 25), maxRounds[0].Content)
	assert.Empty(t, ofType[*ErrorEvent](events))
	require.IsType(t, &StreamStoppedEvent{}, events[len(events)-1])
}

func TestRunStreamHonoursConfiguredRounds(t *testing.T) {
	t.Parallel()

	prov := &scriptedProvider{rounds: [][]chat.StreamEvent{toolRound("", "call")}}
	store := session.NewInMemorySessionStore()
	sess := newSession(t, store, session.ModeBuild)

	rt := New(prov, &recordingExecutor{}, store, WithLimits(config.Limits{MaxRounds: 3}))
	collect(rt.RunStream(t.Context(), sess, "go"))

	assert.Equal(t, 3, prov.callCount())
}

func TestRunStreamProviderError(t *testing.T) {
	t.Parallel()

	prov := &scriptedProvider{rounds: [][]chat.StreamEvent{
		toolRound("", "call_1"),
		{chat.TextDelta{Text: "partial"}, chat.Error{Message: "HTTP 500: boom", Code: "500"}},
	}}
	store := session.NewInMemorySessionStore()
	sess := newSession(t, store, session.ModeBuild)

	events := collect(New(prov, &recordingExecutor{}, store).RunStream(t.Context(), sess, "go"))

	errs := ofType[*ErrorEvent](events)
	require.Len(t, errs, 1)
	assert.Equal(t, "HTTP 500: boom", errs[0].Error)
	assert.Equal(t, "500", errs[0].Code)
	assert.Equal(t, 2, prov.callCount())

	// The first round's turns are kept.
	msgs, err := store.GetMessages(t.Context(), sess.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, 3)
}

// blockingProvider streams one text delta and then waits for
// CancelRequest before closing the stream without a terminal event.
type blockingProvider struct {
	scriptedProvider
	once     sync.Once
	released chan struct{}
}

func (p *blockingProvider) SendMessage(context.Context, []chat.Message, string, []tools.Tool, options.Generation) <-chan chat.StreamEvent {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()

	ch := make(chan chat.StreamEvent)
	go func() {
		defer close(ch)
		ch <- chat.TextDelta{Text: "thinking"}
		<-p.released
	}()
	return ch
}

func (p *blockingProvider) CancelRequest() {
	p.cancelled.Add(1)
	p.once.Do(func() { close(p.released) })
}

func TestRunStreamCancellation(t *testing.T) {
	t.Parallel()

	prov := &blockingProvider{released: make(chan struct{})}
	store := session.NewInMemorySessionStore()
	sess := newSession(t, store, session.ModeBuild)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	var events []Event
	for ev := range New(prov, &recordingExecutor{}, store).RunStream(ctx, sess, "go") {
		events = append(events, ev)
		if _, ok := ev.(*AgentChoiceEvent); ok {
			cancel()
		}
	}

	assert.Equal(t, int32(1), prov.cancelled.Load())
	assert.Equal(t, 1, prov.callCount())
	assert.Empty(t, ofType[*ErrorEvent](events))
	assert.Empty(t, ofType[*MaxRoundsReachedEvent](events))
	require.IsType(t, &StreamStoppedEvent{}, events[len(events)-1])

	msgs, err := store.GetMessages(t.Context(), sess.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "go", msgs[0].Content)
}

// cancellingExecutor cancels the run while executing the call with id at.
type cancellingExecutor struct {
	at     string
	cancel context.CancelFunc
}

func (e *cancellingExecutor) Execute(_ context.Context, call chat.ToolCall) tools.Result {
	if call.ID == e.at {
		e.cancel()
	}
	return tools.Success("ok " + call.ID)
}

func TestRunStreamResumesAfterStopBetweenToolCalls(t *testing.T) {
	t.Parallel()

	store := session.NewInMemorySessionStore()
	sess := newSession(t, store, session.ModeBuild)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	first := &scriptedProvider{rounds: [][]chat.StreamEvent{toolRound("", "a", "b")}}
	events := collect(New(first, &cancellingExecutor{at: "a", cancel: cancel}, store).RunStream(ctx, sess, "read twice"))
	assert.Empty(t, ofType[*ErrorEvent](events))
	assert.Len(t, ofType[*ToolCallResponseEvent](events), 1)

	stored, err := store.GetMessages(t.Context(), sess.ID)
	require.NoError(t, err)
	require.Len(t, stored, 3)

	second := &scriptedProvider{rounds: [][]chat.StreamEvent{text("Resumed.")}}
	events = collect(New(second, &recordingExecutor{}, store).RunStream(t.Context(), sess, "go on"))
	assert.Empty(t, ofType[*ErrorEvent](events))
	require.Equal(t, 1, second.callCount())

	sent := second.messages[0]
	require.Len(t, sent, 5)
	for i, msg := range sent {
		for j, call := range msg.ToolCalls {
			result := sent[i+1+j]
			assert.Equal(t, chat.MessageRoleTool, result.Role)
			assert.Equal(t, call.ID, result.ToolCallID)
		}
	}
	assert.Equal(t, "ok a", sent[2].Content)
	assert.False(t, sent[2].IsError)
	assert.Equal(t, "(tool execution cancelled)", sent[3].Content)
	assert.True(t, sent[3].IsError)
	assert.Equal(t, "go on", sent[4].Content)

	// The stored history is not rewritten.
	stored, err = store.GetMessages(t.Context(), sess.ID)
	require.NoError(t, err)
	require.Len(t, stored, 5)
	assert.Equal(t, chat.MessageRoleUser, stored[3].Role)
	assert.Equal(t, "Resumed.", stored[4].Content)
}

func TestRunStreamRecordsSpans(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	prov := &scriptedProvider{rounds: [][]chat.StreamEvent{toolRound("", "call_1"), text("done")}}
	store := session.NewInMemorySessionStore()
	sess := newSession(t, store, session.ModeBuild)

	rt := New(prov, &recordingExecutor{}, store, WithTracer(tp.Tracer("test")))
	collect(rt.RunStream(t.Context(), sess, "go"))

	var names []string
	for _, span := range recorder.Ended() {
		names = append(names, span.Name())
	}
	assert.ElementsMatch(t, []string{"runtime.round", "runtime.tool.call", "runtime.round", "runtime.stream"}, names)
}
