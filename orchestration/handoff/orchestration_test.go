//
// Copyright (C) 2026 The parley Authors.  All rights reserved.
//
// parley is licensed under the Apache License Version 2.0.
//
//

package handoff

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/parley-go/parley/agent"
	"github.com/parley-go/parley/event"
	"github.com/parley-go/parley/model"
	"github.com/parley-go/parley/orchestration"
	"github.com/parley-go/parley/runtime/inprocess"
	"github.com/parley-go/parley/tool"
)

// scriptedAgent replays a fixed sequence of turns, one per Run call, and
// records every invocation it receives.
type scriptedAgent struct {
	name        string
	description string

	mu          sync.Mutex
	turns       []scriptedTurn
	next        int
	invocations []*agent.Invocation
}

type scriptedTurn []*event.Event

func newScriptedAgent(name, description string, turns ...scriptedTurn) *scriptedAgent {
	return &scriptedAgent{name: name, description: description, turns: turns}
}

func (s *scriptedAgent) Info() agent.Info {
	return agent.Info{Name: s.name, Description: s.description}
}

func (s *scriptedAgent) Tools() *tool.Registry { return nil }

func (s *scriptedAgent) Run(_ context.Context, invocation *agent.Invocation) (<-chan *event.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next >= len(s.turns) {
		return nil, fmt.Errorf("agent %s: no scripted turn for invocation %d", s.name, s.next+1)
	}
	turn := s.turns[s.next]
	s.next++
	s.invocations = append(s.invocations, invocation)

	out := make(chan *event.Event, len(turn))
	for _, ev := range turn {
		ev.InvocationID = invocation.InvocationID
		ev.Author = s.name
		out <- ev
	}
	close(out)
	return out, nil
}

func (s *scriptedAgent) runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.invocations)
}

func (s *scriptedAgent) invocation(i int) *agent.Invocation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invocations[i]
}

func answerTurn(deltas ...string) scriptedTurn {
	var turn scriptedTurn
	var full string
	for _, delta := range deltas {
		full += delta
		turn = append(turn, event.New("", "",
			event.WithContent(delta),
			event.WithIsPartial(true),
		))
	}
	return append(turn, event.New("", "",
		event.WithContent(full),
		event.WithDone(true),
	))
}

func transferTurn(target string) scriptedTurn {
	return scriptedTurn{event.New("", "",
		event.WithToolCalls([]model.ToolCall{scriptedCall("transfer_to_"+target, `{}`)}),
		event.WithDone(true),
	)}
}

func completeTurn(summary string) scriptedTurn {
	args := fmt.Sprintf(`{"task_summary":%q}`, summary)
	return scriptedTurn{event.New("", "",
		event.WithToolCalls([]model.ToolCall{scriptedCall("complete_task", args)}),
		event.WithDone(true),
	)}
}

func scriptedCall(name, args string) model.ToolCall {
	return model.ToolCall{
		Type: "function",
		ID:   uuid.NewString(),
		Function: model.FunctionCall{
			Name:      name,
			Arguments: []byte(args),
		},
	}
}

func newTestRuntime(t *testing.T) *inprocess.Runtime {
	t.Helper()
	rt := inprocess.New()
	rt.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, rt.StopWhenIdle(ctx))
	})
	return rt
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestInvokeTransferThenComplete(t *testing.T) {
	triage := newScriptedAgent("triage", "Routes requests.",
		transferTurn("refund"),
	)
	refund := newScriptedAgent("refund", "Handles refunds.",
		completeTurn("Refund for order #1234 issued."),
	)

	var answered []model.Message
	orch, err := New(
		[]agent.Agent{triage, refund},
		NewHandoffs().
			AddAgent("triage", refund).
			AddAgent("refund", triage),
		WithAgentResponseCallback(func(msg model.Message) {
			answered = append(answered, msg)
		}),
	)
	require.NoError(t, err)

	ctx := testContext(t)
	result, err := orch.Invoke(ctx, newTestRuntime(t), model.NewUserMessage("I want a refund."))
	require.NoError(t, err)

	final, err := result.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, model.RoleAssistant, final.Role)
	require.Equal(t, "refund", final.Name)
	require.Equal(t, "Refund for order #1234 issued.", final.Content)

	require.Equal(t, 1, triage.runs())
	require.Equal(t, 1, refund.runs())

	// Handoff and completion turns produce no visible answer.
	require.Empty(t, answered)

	// Every member holds the task before the first turn runs.
	refundInv := refund.invocation(0)
	require.Len(t, refundInv.Messages, 1)
	require.Equal(t, "I want a refund.", refundInv.Messages[0].Content)

	// The triage turn ran with its outgoing transfer plus complete_task.
	triageInv := triage.invocation(0)
	_, ok := triageInv.Tools.Lookup("transfer_to_refund")
	require.True(t, ok)
	_, ok = triageInv.Tools.Lookup("complete_task")
	require.True(t, ok)
	_, ok = triageInv.Tools.Lookup("transfer_to_triage")
	require.False(t, ok)
}

func TestInvokeDefaultCompletion(t *testing.T) {
	triage := newScriptedAgent("triage", "Routes requests.",
		answerTurn("The order ships tomorrow."),
	)
	refund := newScriptedAgent("refund", "Handles refunds.")

	var answered []model.Message
	orch, err := New(
		[]agent.Agent{triage, refund},
		NewHandoffs().AddAgent("triage", refund),
		WithAgentResponseCallback(func(msg model.Message) {
			answered = append(answered, msg)
		}),
	)
	require.NoError(t, err)

	ctx := testContext(t)
	result, err := orch.Invoke(ctx, newTestRuntime(t), model.NewUserMessage("Where is my order?"))
	require.NoError(t, err)

	final, err := result.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "triage", final.Name)
	require.Equal(t, defaultCompletionSummary, final.Content)

	require.Len(t, answered, 1)
	require.Equal(t, "The order ships tomorrow.", answered[0].Content)
	require.Equal(t, 1, triage.runs())
	require.Zero(t, refund.runs())
}

func TestInvokeHumanResponseLoop(t *testing.T) {
	triage := newScriptedAgent("triage", "Routes requests.",
		answerTurn("Could you share the order number?"),
		transferTurn("refund"),
	)
	refund := newScriptedAgent("refund", "Handles refunds.",
		completeTurn("Refund issued."),
	)

	orch, err := New(
		[]agent.Agent{triage, refund},
		NewHandoffs().AddAgent("triage", refund),
		WithHumanResponseFunc(func(context.Context) (model.Message, error) {
			return model.Message{Content: "It is order #1234, please refund it."}, nil
		}),
	)
	require.NoError(t, err)

	ctx := testContext(t)
	result, err := orch.Invoke(ctx, newTestRuntime(t), model.NewUserMessage("I have an issue."))
	require.NoError(t, err)

	final, err := result.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "Refund issued.", final.Content)

	require.Equal(t, 2, triage.runs())
	require.Equal(t, 1, refund.runs())

	// The second triage turn sees its own answer and the human reply.
	second := triage.invocation(1)
	require.Len(t, second.Messages, 3)
	require.Equal(t, "I have an issue.", second.Messages[0].Content)
	require.Equal(t, "Could you share the order number?", second.Messages[1].Content)
	require.Equal(t, model.RoleAssistant, second.Messages[1].Role)
	require.Equal(t, "It is order #1234, please refund it.", second.Messages[2].Content)
	require.Equal(t, model.RoleUser, second.Messages[2].Role)
	require.NotEmpty(t, second.Messages[2].ID)

	// The refund turn holds the same conversation, converged by broadcast.
	refundInv := refund.invocation(0)
	require.Len(t, refundInv.Messages, 3)
	require.Equal(t, second.Messages[1].ID, refundInv.Messages[1].ID)
	require.Equal(t, second.Messages[2].ID, refundInv.Messages[2].ID)
}

func TestInvokeStreamingLookahead(t *testing.T) {
	triage := newScriptedAgent("triage", "Routes requests.",
		answerTurn("Hel", "lo ", "world"),
	)
	refund := newScriptedAgent("refund", "Handles refunds.")

	type delta struct {
		content string
		isFinal bool
	}
	var mu sync.Mutex
	var deltas []delta

	orch, err := New(
		[]agent.Agent{triage, refund},
		NewHandoffs().AddAgent("triage", refund),
		WithStreamingResponseCallback(func(msg model.Message, isFinal bool) {
			mu.Lock()
			deltas = append(deltas, delta{content: msg.Content, isFinal: isFinal})
			mu.Unlock()
		}),
	)
	require.NoError(t, err)

	ctx := testContext(t)
	result, err := orch.Invoke(ctx, newTestRuntime(t), model.NewUserMessage("Hi"))
	require.NoError(t, err)
	_, err = result.Get(ctx)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []delta{
		{content: "Hel", isFinal: false},
		{content: "lo ", isFinal: false},
		{content: "world", isFinal: true},
	}, deltas)
}

func TestInvokeCompletionSuppressesContent(t *testing.T) {
	turn := answerTurn("Working on it.")
	turn = append(turn, event.New("", "",
		event.WithToolCalls([]model.ToolCall{scriptedCall("complete_task", `{"task_summary":"Done."}`)}),
	))
	triage := newScriptedAgent("triage", "Routes requests.", turn)
	refund := newScriptedAgent("refund", "Handles refunds.")

	var answered []model.Message
	orch, err := New(
		[]agent.Agent{triage, refund},
		NewHandoffs().AddAgent("triage", refund),
		WithAgentResponseCallback(func(msg model.Message) {
			answered = append(answered, msg)
		}),
	)
	require.NoError(t, err)

	ctx := testContext(t)
	result, err := orch.Invoke(ctx, newTestRuntime(t), model.NewUserMessage("Hi"))
	require.NoError(t, err)

	final, err := result.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "Done.", final.Content)
	require.Empty(t, answered)
}

func TestInvokeEmptyTurnFails(t *testing.T) {
	triage := newScriptedAgent("triage", "Routes requests.",
		scriptedTurn{event.New("", "", event.WithDone(true))},
	)
	refund := newScriptedAgent("refund", "Handles refunds.")

	orch, err := New(
		[]agent.Agent{triage, refund},
		NewHandoffs().AddAgent("triage", refund),
	)
	require.NoError(t, err)

	ctx := testContext(t)
	result, err := orch.Invoke(ctx, newTestRuntime(t), model.NewUserMessage("Hi"))
	require.NoError(t, err)

	_, err = result.Get(ctx)
	require.ErrorIs(t, err, ErrEmptyTurn)
	require.ErrorContains(t, err, `"triage"`)
}

func TestInvokeStreamErrorFails(t *testing.T) {
	streamErr := errors.New("model unavailable")
	triage := newScriptedAgent("triage", "Routes requests.",
		scriptedTurn{event.New("", "", event.WithError(streamErr))},
	)
	refund := newScriptedAgent("refund", "Handles refunds.")

	orch, err := New(
		[]agent.Agent{triage, refund},
		NewHandoffs().AddAgent("triage", refund),
	)
	require.NoError(t, err)

	ctx := testContext(t)
	result, err := orch.Invoke(ctx, newTestRuntime(t), model.NewUserMessage("Hi"))
	require.NoError(t, err)

	_, err = result.Get(ctx)
	require.ErrorIs(t, err, streamErr)
}

func TestInvokeCancelBeforeCompletion(t *testing.T) {
	triage := newScriptedAgent("triage", "Routes requests.",
		answerTurn("Anything else?"),
	)
	refund := newScriptedAgent("refund", "Handles refunds.")

	waiting := make(chan struct{})
	orch, err := New(
		[]agent.Agent{triage, refund},
		NewHandoffs().AddAgent("triage", refund),
		WithHumanResponseFunc(func(ctx context.Context) (model.Message, error) {
			close(waiting)
			<-ctx.Done()
			return model.Message{}, ctx.Err()
		}),
	)
	require.NoError(t, err)

	ctx := testContext(t)
	result, err := orch.Invoke(ctx, newTestRuntime(t), model.NewUserMessage("Hi"))
	require.NoError(t, err)

	<-waiting
	require.NoError(t, result.Cancel())

	_, err = result.Get(ctx)
	require.ErrorIs(t, err, orchestration.ErrCanceled)

	// A canceled run stays canceled.
	require.ErrorIs(t, result.Cancel(), orchestration.ErrAlreadyDone)
}

// floodingAgent streams two deltas, waits for release, then pushes far
// more deltas than its channel buffers. It never watches the context,
// which is the loosest producer the Agent contract allows.
type floodingAgent struct {
	name     string
	release  chan struct{}
	finished atomic.Bool
}

func (f *floodingAgent) Info() agent.Info { return agent.Info{Name: f.name} }

func (f *floodingAgent) Tools() *tool.Registry { return nil }

func (f *floodingAgent) Run(_ context.Context, invocation *agent.Invocation) (<-chan *event.Event, error) {
	out := make(chan *event.Event, 2)
	go func() {
		defer close(out)
		for i := 0; i < 2; i++ {
			out <- event.New(invocation.InvocationID, f.name,
				event.WithContent("partial"),
				event.WithIsPartial(true),
			)
		}
		<-f.release
		for i := 0; i < 256; i++ {
			out <- event.New(invocation.InvocationID, f.name,
				event.WithContent("x"),
				event.WithIsPartial(true),
			)
		}
		f.finished.Store(true)
	}()
	return out, nil
}

func TestInvokeCancelMidStreamReleasesProducer(t *testing.T) {
	producer := &floodingAgent{name: "triage", release: make(chan struct{})}
	refund := newScriptedAgent("refund", "Handles refunds.")

	consuming := make(chan struct{})
	var once sync.Once
	orch, err := New(
		[]agent.Agent{producer, refund},
		NewHandoffs().Add("triage", "refund", ""),
		WithStreamingResponseCallback(func(model.Message, bool) {
			once.Do(func() { close(consuming) })
		}),
	)
	require.NoError(t, err)

	ctx := testContext(t)
	result, err := orch.Invoke(ctx, newTestRuntime(t), model.NewUserMessage("Hi"))
	require.NoError(t, err)

	<-consuming
	require.NoError(t, result.Cancel())
	close(producer.release)

	_, err = result.Get(ctx)
	require.ErrorIs(t, err, orchestration.ErrCanceled)

	// The producer's remaining events are drained after cancellation, so
	// it runs to completion instead of blocking on the channel forever.
	require.Eventually(t, producer.finished.Load, 2*time.Second, 10*time.Millisecond)
}

func TestDefaultCompletionAfterCancelIsDropped(t *testing.T) {
	triage := newScriptedAgent("triage", "Routes requests.",
		answerTurn("All set."),
	)
	refund := newScriptedAgent("refund", "Handles refunds.")

	ready := make(chan struct{})
	var result *orchestration.Result
	orch, err := New(
		[]agent.Agent{triage, refund},
		NewHandoffs().AddAgent("triage", refund),
		WithAgentResponseCallback(func(model.Message) {
			<-ready
			require.NoError(t, result.Cancel())
		}),
	)
	require.NoError(t, err)

	ctx := testContext(t)
	result, err = orch.Invoke(ctx, newTestRuntime(t), model.NewUserMessage("Hi"))
	require.NoError(t, err)
	close(ready)

	// The result settled through Cancel; the default completion that
	// follows the answer must not overwrite it.
	_, err = result.Get(ctx)
	require.ErrorIs(t, err, orchestration.ErrCanceled)
	require.ErrorIs(t, result.Cancel(), orchestration.ErrAlreadyDone)
}

func TestInvokeCancelAfterCompletion(t *testing.T) {
	triage := newScriptedAgent("triage", "Routes requests.",
		completeTurn("Done."),
	)
	refund := newScriptedAgent("refund", "Handles refunds.")

	orch, err := New(
		[]agent.Agent{triage, refund},
		NewHandoffs().AddAgent("triage", refund),
	)
	require.NoError(t, err)

	ctx := testContext(t)
	result, err := orch.Invoke(ctx, newTestRuntime(t), model.NewUserMessage("Hi"))
	require.NoError(t, err)

	final, err := result.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "Done.", final.Content)

	require.ErrorIs(t, result.Cancel(), orchestration.ErrAlreadyDone)
}

func TestInvokeEmptyTask(t *testing.T) {
	triage := newScriptedAgent("triage", "Routes requests.")
	refund := newScriptedAgent("refund", "Handles refunds.")

	orch, err := New(
		[]agent.Agent{triage, refund},
		NewHandoffs().AddAgent("triage", refund),
	)
	require.NoError(t, err)

	_, err = orch.Invoke(testContext(t), newTestRuntime(t))
	require.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestNewValidation(t *testing.T) {
	a := newScriptedAgent("a", "")
	b := newScriptedAgent("b", "")
	graph := NewHandoffs().Add("a", "b", "")

	tests := []struct {
		name     string
		members  []agent.Agent
		handoffs Handoffs
		wantErr  string
	}{
		{
			name:    "no members",
			wantErr: "no members",
		},
		{
			name:     "nil member",
			members:  []agent.Agent{a, nil},
			handoffs: graph,
			wantErr:  "nil member",
		},
		{
			name:     "empty member name",
			members:  []agent.Agent{a, newScriptedAgent("", "")},
			handoffs: graph,
			wantErr:  "empty name",
		},
		{
			name:     "duplicate member name",
			members:  []agent.Agent{a, newScriptedAgent("a", "")},
			handoffs: graph,
			wantErr:  "duplicate member name",
		},
		{
			name:     "invalid graph",
			members:  []agent.Agent{a, b},
			handoffs: NewHandoffs().Add("a", "ghost", ""),
			wantErr:  `target "ghost"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.members, tt.handoffs)
			require.ErrorIs(t, err, ErrInvalidConfiguration)
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestActorTypeName(t *testing.T) {
	require.Equal(t, "triage_handoff_run1", actorTypeName("triage", "handoff_run1"))
}
