// Package runtime drives the agentic conversation loop: it streams the
// model's reply, runs the tools it asks for and feeds the results back
// until the model answers without tool calls.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/LucasSabena/codemobile-sub001/pkg/chat"
	"github.com/LucasSabena/codemobile-sub001/pkg/config"
	"github.com/LucasSabena/codemobile-sub001/pkg/model/provider"
	"github.com/LucasSabena/codemobile-sub001/pkg/model/provider/options"
	"github.com/LucasSabena/codemobile-sub001/pkg/session"
	"github.com/LucasSabena/codemobile-sub001/pkg/tools"
)

const tracerName = "github.com/LucasSabena/codemobile-sub001/pkg/runtime"

// ToolExecutor runs one tool call. It never fails: problems are reported
// through the returned result.
type ToolExecutor interface {
	Execute(ctx context.Context, call chat.ToolCall) tools.Result
}

type Runtime struct {
	provider provider.Provider
	executor ToolExecutor
	store    session.Store
	limits   config.Limits
	tracer   trace.Tracer
	genOpts  []options.Opt
}

type Opt func(*Runtime)

func WithLimits(l config.Limits) Opt {
	return func(r *Runtime) {
		r.limits = l
	}
}

func WithTracer(t trace.Tracer) Opt {
	return func(r *Runtime) {
		r.tracer = t
	}
}

// WithGeneration sets the sampling parameters sent with every request.
func WithGeneration(opts ...options.Opt) Opt {
	return func(r *Runtime) {
		r.genOpts = append(r.genOpts, opts...)
	}
}

func New(p provider.Provider, executor ToolExecutor, store session.Store, opts ...Opt) *Runtime {
	r := &Runtime{
		provider: p,
		executor: executor,
		store:    store,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.limits = r.limits.WithDefaults()
	if r.tracer == nil {
		r.tracer = otel.Tracer(tracerName)
	}
	return r
}

// RunStream appends input to the session and runs rounds until the model
// replies without tool calls, the round budget is spent, the provider
// reports an error, or ctx is cancelled. The caller must drain the
// returned channel; it is closed after StreamStopped.
func (r *Runtime) RunStream(ctx context.Context, sess *session.Session, input string) <-chan Event {
	events := make(chan Event, 128)

	go func() {
		defer close(events)

		events <- StreamStarted(sess.ID)
		defer func() { events <- StreamStopped(sess.ID) }()

		ctx, span := r.tracer.Start(ctx, "runtime.stream", trace.WithAttributes(
			attribute.String("session.id", sess.ID),
			attribute.String("provider", r.provider.ID()),
			attribute.String("model", sess.Model),
			attribute.String("mode", string(sess.Mode)),
		))
		defer span.End()

		// Cancelling ctx aborts the request in flight, which ends its stream.
		stop := context.AfterFunc(ctx, r.provider.CancelRequest)
		defer stop()

		err := r.run(ctx, sess, input, events)
		switch {
		case errors.Is(err, errStopped):
			span.SetStatus(codes.Ok, "stream stopped")
		case err != nil:
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		default:
			span.SetStatus(codes.Ok, "stream completed")
		}
	}()

	return events
}

// errStopped marks a run that ended because ctx was cancelled.
var errStopped = errors.New("run stopped")

func (r *Runtime) run(ctx context.Context, sess *session.Session, input string, events chan<- Event) error {
	history, err := r.store.GetMessages(ctx, sess.ID)
	if errors.Is(err, session.ErrNotFound) {
		err = r.store.AddSession(ctx, sess)
	}
	if ctx.Err() != nil {
		return errStopped
	}
	if err != nil {
		events <- Error(fmt.Sprintf("loading session: %v", err), "session")
		return err
	}
	history = repairToolResults(history)

	userMsg := chat.UserMessage(input)
	if err := r.persist(ctx, sess, userMsg, events); err != nil {
		return err
	}
	history = append(history, userMsg)

	var requestTools []tools.Tool
	if sess.Build() {
		requestTools = tools.Catalog()
	}
	gen := options.New(r.genOpts...)

	var transcript strings.Builder
	for round := 1; round <= r.limits.MaxRounds; round++ {
		res, err := r.runRound(ctx, sess, round, history, requestTools, gen, events)
		transcript.WriteString(res.text)
		if err != nil {
			return err
		}

		if len(res.calls) == 0 {
			slog.Debug("Conversation round finished without tool calls", "session_id", sess.ID, "round", round)
			return r.persist(ctx, sess, chat.AssistantMessage(res.text, nil), events)
		}

		assistant := chat.AssistantMessage(res.text, res.calls)
		if err := r.persist(ctx, sess, assistant, events); err != nil {
			return err
		}
		history = append(history, assistant)

		results, err := r.runTools(ctx, sess, res.calls, events)
		history = append(history, results...)
		if err != nil {
			return err
		}
	}

	slog.Warn("Round budget exhausted", "session_id", sess.ID, "max_rounds", r.limits.MaxRounds)
	events <- MaxRoundsReached(r.limits.MaxRounds, transcript.String())
	return nil
}

type roundResult struct {
	text  string
	calls []chat.ToolCall
}

func (r *Runtime) runRound(ctx context.Context, sess *session.Session, round int, history []chat.Message, requestTools []tools.Tool, gen options.Generation, events chan<- Event) (roundResult, error) {
	ctx, span := r.tracer.Start(ctx, "runtime.round", trace.WithAttributes(
		attribute.String("session.id", sess.ID),
		attribute.Int("round", round),
		attribute.Int("message_count", len(history)),
	))
	defer span.End()

	slog.Debug("Starting conversation round", "session_id", sess.ID, "round", round, "tool_count", len(requestTools))

	var (
		res   roundResult
		text  strings.Builder
		usage chat.Usage
		fail  *chat.Error
	)

	stream := r.provider.SendMessage(ctx, history, sess.Model, requestTools, gen)
	for ev := range stream {
		switch ev := ev.(type) {
		case chat.TextDelta:
			text.WriteString(ev.Text)
			events <- AgentChoice(ev.Text)
		case chat.ToolCallDelta:
			if ev.Name != "" {
				events <- PartialToolCall(ev.Index, ev.ID, ev.Name)
			}
		case chat.ToolCallComplete:
			res.calls = append(res.calls, ev.ToolCall)
		case chat.Usage:
			usage = usage.Add(ev)
		case chat.Error:
			fail = &ev
		}
		if chat.IsTerminal(ev) {
			break
		}
	}
	res.text = text.String()

	if usage != (chat.Usage{}) {
		sess.InputTokens += usage.InputTokens
		sess.OutputTokens += usage.OutputTokens
		if err := r.store.UpdateSessionTokens(context.WithoutCancel(ctx), sess.ID, sess.InputTokens, sess.OutputTokens); err != nil {
			slog.Warn("Failed to update token counters", "session_id", sess.ID, "error", err)
		}
		events <- TokenUsage(sess.ID, sess.InputTokens, sess.OutputTokens)
	}

	if ctx.Err() != nil {
		slog.Debug("Conversation round stopped", "session_id", sess.ID, "round", round)
		span.SetStatus(codes.Ok, "round stopped")
		return res, errStopped
	}
	if fail != nil {
		slog.Error("Provider stream failed", "session_id", sess.ID, "round", round, "error", fail.Message, "code", fail.Code)
		span.SetStatus(codes.Error, fail.Message)
		events <- Error(fail.Message, fail.Code)
		return res, fail
	}

	span.SetAttributes(attribute.Int("tool_calls", len(res.calls)))
	span.SetStatus(codes.Ok, "round completed")
	return res, nil
}

// runTools executes calls one after the other. A call may depend on the
// effects of the calls before it.
func (r *Runtime) runTools(ctx context.Context, sess *session.Session, calls []chat.ToolCall, events chan<- Event) ([]chat.Message, error) {
	var results []chat.Message
	for _, call := range calls {
		if ctx.Err() != nil {
			return results, errStopped
		}

		msg := r.runTool(ctx, sess, call, events)
		if err := r.persist(ctx, sess, msg, events); err != nil {
			return results, err
		}
		results = append(results, msg)
	}
	return results, nil
}

func (r *Runtime) runTool(ctx context.Context, sess *session.Session, call chat.ToolCall, events chan<- Event) chat.Message {
	ctx, span := r.tracer.Start(ctx, "runtime.tool.call", trace.WithAttributes(
		attribute.String("tool.name", call.Name),
		attribute.String("tool.call_id", call.ID),
		attribute.String("session.id", sess.ID),
	))
	defer span.End()

	events <- ToolCall(call)

	res := r.executor.Execute(ctx, call)
	if res.Success {
		span.SetStatus(codes.Ok, "tool call succeeded")
		slog.Debug("Tool call completed", "tool", call.Name, "output_length", len(res.Output))
	} else {
		span.SetStatus(codes.Error, "tool call failed")
		slog.Debug("Tool call failed", "tool", call.Name, "output", res.Output)
	}

	events <- ToolCallResponse(call, res.Output, res.Success)

	msg := chat.ToolResultMessage(call.ID, res.Output)
	msg.IsError = !res.Success
	return msg
}

// persist stores msg even when ctx has been cancelled: a turn that
// completed is kept.
func (r *Runtime) persist(ctx context.Context, sess *session.Session, msg chat.Message, events chan<- Event) error {
	if err := r.store.AddMessage(context.WithoutCancel(ctx), sess.ID, msg); err != nil {
		slog.Error("Failed to store message", "session_id", sess.ID, "role", msg.Role, "error", err)
		events <- Error(fmt.Sprintf("storing message: %v", err), "session")
		return err
	}
	return nil
}
