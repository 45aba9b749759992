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
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/parley-go/parley/agent"
	"github.com/parley-go/parley/log"
	"github.com/parley-go/parley/model"
	"github.com/parley-go/parley/orchestration"
	"github.com/parley-go/parley/runtime"
	atrace "github.com/parley-go/parley/telemetry/trace"
	"github.com/parley-go/parley/tool"
)

// ErrEmptyTurn is wrapped when an agent's turn yields neither a handoff,
// nor a completion, nor any content. The run fails; there is no retry.
var ErrEmptyTurn = errors.New("agent turn produced neither a handoff, a completion, nor content")

// defaultCompletionSummary finishes a run in which an agent answered but no
// handoff happened, no human hook is configured, and the agent never called
// complete_task.
const defaultCompletionSummary = "Task is completed with summary: " +
	"no handoff agent name provided and no human response function set."

// agentActor hosts one member agent. It owns the agent's local conversation
// thread and runs the invoke/interpret cycle whenever it is granted the
// floor. All mutable state is confined to the actor; the runtime guarantees
// its handlers never run concurrently.
type agentActor struct {
	id        runtime.ActorID
	rt        runtime.Runtime
	agent     agent.Agent
	topicType string

	// edges maps reachable target names to transfer descriptions.
	edges map[string]string

	thread *agent.Thread
	result *orchestration.Result
	cbs    options

	// completed marks the actor terminal; it ignores further requests.
	completed bool
}

func newAgentActor(
	actorCtx *runtime.ActorContext,
	member agent.Agent,
	topicType string,
	edges map[string]string,
	result *orchestration.Result,
	cbs options,
) *agentActor {
	return &agentActor{
		id:        actorCtx.ID,
		rt:        actorCtx.Runtime,
		agent:     member,
		topicType: topicType,
		edges:     edges,
		thread:    agent.NewThread(),
		result:    result,
		cbs:       cbs,
	}
}

// OnMessage implements runtime.Actor.
func (a *agentActor) OnMessage(ctx context.Context, msg any) error {
	switch m := msg.(type) {
	case *StartMessage:
		a.handleStart(m)
		return nil
	case *ResponseMessage:
		a.thread.OnNewMessage(m.Body)
		return nil
	case *RequestMessage:
		if m.AgentName != a.agent.Info().Name {
			// Requests are broadcast; only the named actor takes the floor.
			return nil
		}
		return a.handleRequest(ctx)
	default:
		log.Warnf("actor %s: dropping unexpected message %T", a.id, msg)
		return nil
	}
}

// handleStart appends the task content to the local thread. The thread
// deduplicates by message ID, so content that already arrived through
// another channel is recorded once.
func (a *agentActor) handleStart(m *StartMessage) {
	for _, msg := range m.Body {
		a.thread.OnNewMessage(msg)
	}
}

// handleRequest runs invoke/interpret cycles until the turn hands off,
// completes, or settles through the default completion. Between cycles it
// may solicit one human message when a hook is configured.
func (a *agentActor) handleRequest(ctx context.Context) error {
	if a.completed {
		return nil
	}
	name := a.agent.Info().Name
	for {
		out, err := a.invokeTurn(ctx)
		if err != nil {
			// Includes stream failures and cancellation. A result settled
			// by Cancel rejects the Fail; that is fine.
			a.result.Fail(err)
			return err
		}
		switch {
		case out.completed:
			a.completed = true
			if !a.result.Complete(model.NewAssistantMessage(name, out.summary)) {
				log.Debugf("actor %s: result already settled, completion dropped", a.id)
			}
			return nil
		case out.target != "":
			// Hand the floor to the peer; this actor holds nothing further.
			return a.rt.PublishMessage(ctx, &RequestMessage{AgentName: out.target}, a.topic())
		}
		// Ordinary answer: already recorded and broadcast by invokeTurn.
		if a.cbs.humanResponse == nil {
			a.completed = true
			if !a.result.Complete(model.NewAssistantMessage(name, defaultCompletionSummary)) {
				log.Debugf("actor %s: result already settled, completion dropped", a.id)
			}
			return nil
		}
		human, err := a.cbs.humanResponse(ctx)
		if err != nil {
			err = fmt.Errorf("human response for agent %q: %w", name, err)
			a.result.Fail(err)
			return err
		}
		if human.ID == "" {
			human.ID = uuid.NewString()
		}
		if human.Role == "" {
			human.Role = model.RoleUser
		}
		a.thread.OnNewMessage(human)
		if err := a.rt.PublishMessage(ctx, &ResponseMessage{Body: human}, a.topic()); err != nil {
			a.result.Fail(err)
			return err
		}
		// Re-invoke the same agent with the human reply appended.
	}
}

// invokeTurn runs one turn of the underlying agent on the current thread
// with the cloned, handoff-augmented capability set, consumes the stream
// with one-step lookahead, and interprets the turn's function calls.
func (a *agentActor) invokeTurn(ctx context.Context) (turnOutcome, error) {
	name := a.agent.Info().Name
	invocationID := uuid.NewString()

	ctx, span := atrace.Tracer.Start(ctx, "handoff.turn",
		trace.WithAttributes(
			attribute.String("agent.name", name),
			attribute.String("invocation.id", invocationID),
		))
	defer span.End()

	// Clone so concurrent runs sharing this agent never see each other's
	// injected functions.
	registry := a.agent.Tools()
	if registry == nil {
		registry = tool.NewRegistry()
	} else {
		registry = registry.Clone()
	}
	injected, injectedTools := buildInjected(a.edges)
	for _, t := range injectedTools {
		if err := registry.Register(t); err != nil {
			return turnOutcome{}, fmt.Errorf("agent %q: inject %s: %w", name, t.Declaration().Name, err)
		}
	}

	invocation := &agent.Invocation{
		InvocationID: invocationID,
		AgentName:    name,
		Messages:     a.thread.Messages(),
		Tools:        registry,
	}
	stream, err := a.agent.Run(ctx, invocation)
	if err != nil {
		return turnOutcome{}, fmt.Errorf("agent %q invocation %s: %w", name, invocationID, err)
	}

	// One-step lookahead over the stream: hold the latest delta and flush
	// the held one as not-final when the next arrives; after the stream
	// ends the held delta is flushed as final.
	var pending string
	var aggregated strings.Builder
	var finalContent string
	var calls []model.ToolCall
	seenCalls := make(map[string]struct{})
	for ev := range stream {
		if cerr := ctx.Err(); cerr != nil {
			// Cancellation observed between chunks: stop interpreting and
			// publish nothing further for this run. The rest of the stream
			// is drained so a producer that does not watch the context is
			// never left blocked on the channel.
			go func() {
				for range stream {
				}
			}()
			return turnOutcome{}, cerr
		}
		if ev == nil {
			continue
		}
		if ev.Err != nil {
			return turnOutcome{}, fmt.Errorf("agent %q invocation %s stream: %w", name, invocationID, ev.Err)
		}
		for _, call := range ev.ToolCalls {
			key := call.ID + "/" + call.Function.Name
			if _, ok := seenCalls[key]; ok {
				continue
			}
			seenCalls[key] = struct{}{}
			calls = append(calls, call)
		}
		switch {
		case ev.IsPartial && ev.Content != "":
			if pending != "" {
				a.emitDelta(name, pending, false)
			}
			pending = ev.Content
			aggregated.WriteString(ev.Content)
		case ev.Done && ev.Content != "":
			finalContent = ev.Content
		}
	}
	if pending != "" {
		a.emitDelta(name, pending, true)
	}
	if cerr := ctx.Err(); cerr != nil {
		return turnOutcome{}, cerr
	}

	out := interpretToolCalls(injected, calls)
	if out.completed {
		// Terminal: no Response is broadcast for this turn.
		return out, nil
	}
	if out.target != "" {
		// A handoff turn is never itself a visible answer; any content the
		// agent produced alongside the transfer is suppressed.
		return out, nil
	}

	content := aggregated.String()
	if content == "" {
		content = finalContent
	}
	if content == "" {
		return turnOutcome{}, fmt.Errorf("agent %q invocation %s: %w", name, invocationID, ErrEmptyTurn)
	}
	answer := model.NewAssistantMessage(name, content)
	// Record locally at publish time; the self-delivered broadcast copy
	// deduplicates by ID.
	a.thread.OnNewMessage(answer)
	if err := a.rt.PublishMessage(ctx, &ResponseMessage{Body: answer}, a.topic()); err != nil {
		return turnOutcome{}, err
	}
	if a.cbs.agentResponse != nil {
		a.cbs.agentResponse(answer)
	}
	out.content = content
	return out, nil
}

func (a *agentActor) emitDelta(name, delta string, isFinal bool) {
	if a.cbs.streamingResponse == nil {
		return
	}
	a.cbs.streamingResponse(model.Message{
		Role:    model.RoleAssistant,
		Name:    name,
		Content: delta,
	}, isFinal)
}

func (a *agentActor) topic() runtime.TopicID {
	return runtime.TopicID{Type: a.topicType, Source: a.id.String()}
}
