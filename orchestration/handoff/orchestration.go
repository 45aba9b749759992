//
// Copyright (C) 2026 The parley Authors.  All rights reserved.
//
// parley is licensed under the Apache License Version 2.0.
//
//

package handoff

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/parley-go/parley/agent"
	"github.com/parley-go/parley/log"
	"github.com/parley-go/parley/model"
	"github.com/parley-go/parley/orchestration"
	"github.com/parley-go/parley/runtime"
	atrace "github.com/parley-go/parley/telemetry/trace"
)

// topicPrefix prefixes the per-run private topic type, so one runtime can
// host several concurrent orchestrations without cross-talk.
const topicPrefix = "handoff_"

// coordinatorSource identifies the coordinator as a topic publisher.
const coordinatorSource = "coordinator"

// Orchestration coordinates a fixed set of member agents that hand a task
// off to one another. At most one agent holds the floor at any instant.
type Orchestration struct {
	members  []agent.Agent
	handoffs Handoffs
	opts     options
}

// New creates a handoff orchestration over the given members and handoff
// graph. It fails fast on an invalid graph, before anything reaches a
// runtime.
func New(members []agent.Agent, handoffs Handoffs, opts ...Option) (*Orchestration, error) {
	if len(members) == 0 {
		return nil, fmt.Errorf("%w: no members", ErrInvalidConfiguration)
	}
	names := make(map[string]struct{}, len(members))
	for _, member := range members {
		if member == nil {
			return nil, fmt.Errorf("%w: nil member", ErrInvalidConfiguration)
		}
		name := member.Info().Name
		if name == "" {
			return nil, fmt.Errorf("%w: member with empty name", ErrInvalidConfiguration)
		}
		if _, ok := names[name]; ok {
			return nil, fmt.Errorf("%w: duplicate member name %q", ErrInvalidConfiguration, name)
		}
		names[name] = struct{}{}
	}
	if err := handoffs.validate(names); err != nil {
		return nil, err
	}

	o := &Orchestration{members: members, handoffs: handoffs}
	for _, opt := range opts {
		opt(&o.opts)
	}
	return o, nil
}

// Invoke runs the orchestration for one task on the given runtime and
// returns the run's result handle. The runtime must already be started.
//
// The returned result settles exactly once: with the completion summary,
// with the run's first error, or through Cancel.
func (o *Orchestration) Invoke(
	ctx context.Context,
	rt runtime.Runtime,
	task ...model.Message,
) (*orchestration.Result, error) {
	if len(task) == 0 {
		return nil, fmt.Errorf("%w: empty task", ErrInvalidConfiguration)
	}
	for i := range task {
		if task[i].ID == "" {
			task[i].ID = uuid.NewString()
		}
	}

	topicType := topicPrefix + uuid.NewString()
	runCtx, cancel := context.WithCancel(ctx)
	result := orchestration.NewResult(cancel)

	runCtx, span := atrace.Tracer.Start(runCtx, "handoff.run",
		trace.WithAttributes(
			attribute.String("handoff.topic", topicType),
			attribute.String("handoff.first_agent", o.members[0].Info().Name),
			attribute.Int("handoff.members", len(o.members)),
		))
	go func() {
		<-result.Done()
		span.End()
	}()

	if err := o.prepare(rt, topicType, result); err != nil {
		cancel()
		return nil, err
	}
	if err := o.start(runCtx, rt, topicType, task); err != nil {
		cancel()
		return nil, err
	}
	return result, nil
}

// prepare registers one actor per member, each with its outgoing edges and
// the shared result, and subscribes every actor to the run's private topic
// so each broadcast reaches all of them.
func (o *Orchestration) prepare(
	rt runtime.Runtime,
	topicType string,
	result *orchestration.Result,
) error {
	for _, member := range o.members {
		member := member
		name := member.Info().Name
		edges := make(map[string]string, len(o.handoffs[name]))
		for target, description := range o.handoffs[name] {
			edges[target] = description
		}
		actorType := actorTypeName(name, topicType)
		factory := func(actorCtx *runtime.ActorContext) (runtime.Actor, error) {
			return newAgentActor(actorCtx, member, topicType, edges, result, o.opts), nil
		}
		if err := rt.Register(actorType, factory); err != nil {
			return fmt.Errorf("register actor for member %q: %w", name, err)
		}
	}

	var g errgroup.Group
	for _, member := range o.members {
		actorType := actorTypeName(member.Info().Name, topicType)
		g.Go(func() error {
			return rt.AddSubscription(runtime.TypeSubscription{
				TopicType: topicType,
				ActorType: actorType,
			})
		})
	}
	return g.Wait()
}

// start seeds every actor with the task and waits for all sends to
// complete before granting the floor to the first member. The barrier
// keeps a fast first agent from handing off before slower peers hold the
// initial task.
func (o *Orchestration) start(
	ctx context.Context,
	rt runtime.Runtime,
	topicType string,
	task []model.Message,
) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, member := range o.members {
		name := member.Info().Name
		g.Go(func() error {
			target, err := rt.Get(actorTypeName(name, topicType))
			if err != nil {
				return err
			}
			return rt.SendMessage(gctx, &StartMessage{Body: task}, target)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("seed members with task: %w", err)
	}

	first := o.members[0].Info().Name
	log.Debugf("handoff orchestration %s: granting the floor to %q", topicType, first)
	return rt.PublishMessage(ctx, &RequestMessage{AgentName: first},
		runtime.TopicID{Type: topicType, Source: coordinatorSource})
}

// actorTypeName derives the runtime actor type for a member. The topic
// type suffix keeps actor types unique when several orchestrations share a
// runtime.
func actorTypeName(memberName, topicType string) string {
	return memberName + "_" + topicType
}
