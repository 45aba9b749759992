//
// Copyright (C) 2026 The parley Authors.  All rights reserved.
//
// parley is licensed under the Apache License Version 2.0.
//
//

// Package agent defines the agent contract consumed by the orchestration
// layer.
package agent

import (
	"context"

	"github.com/parley-go/parley/event"
	"github.com/parley-go/parley/model"
	"github.com/parley-go/parley/tool"
)

// Info holds the identity of an agent.
type Info struct {
	// Name is the unique agent name within an orchestration.
	Name string
	// Description tells peers what the agent is good at.
	Description string
}

// Agent is a conversational agent that produces one turn per invocation as
// a stream of events.
//
// Implementations must not retain or mutate the invocation's tool registry:
// callers pass a registry assembled for that single invocation.
type Agent interface {
	// Info returns the agent identity.
	Info() Info

	// Tools returns the agent's own capability registry. Callers that need
	// to augment it for a run must Clone it first.
	Tools() *tool.Registry

	// Run executes one turn over the given invocation and returns the
	// event stream of the turn. The returned channel is closed when the
	// turn ends. A stream failure is reported as a final event with a
	// non-nil Err.
	Run(ctx context.Context, invocation *Invocation) (<-chan *event.Event, error)
}

// Invocation holds everything an agent needs to produce one turn.
type Invocation struct {
	// InvocationID uniquely identifies this turn.
	InvocationID string
	// AgentName is the name of the invoked agent.
	AgentName string
	// Messages is the conversation the agent responds to, oldest first.
	Messages []model.Message
	// Tools is the capability set for this turn. It may differ from the
	// agent's own registry when the caller injected run-scoped tools.
	Tools *tool.Registry
}
