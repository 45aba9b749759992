//
// Copyright (C) 2026 The parley Authors.  All rights reserved.
//
// parley is licensed under the Apache License Version 2.0.
//
//

package handoff

import (
	"context"

	"github.com/parley-go/parley/model"
)

// AgentResponseCallback observes every full visible answer an agent
// broadcasts during a run.
type AgentResponseCallback func(message model.Message)

// StreamingResponseCallback observes streamed deltas of an agent's answer.
// Every delta before the last carries isFinal=false and exactly the last
// carries isFinal=true.
type StreamingResponseCallback func(delta model.Message, isFinal bool)

// HumanResponseFunc solicits one message from a human when an agent ends a
// turn without handing off or completing. The context is the run context;
// implementations may block (synchronous hooks) or wait on other work
// (asynchronous hooks).
type HumanResponseFunc func(ctx context.Context) (model.Message, error)

// Option configures a handoff orchestration.
type Option func(*options)

type options struct {
	agentResponse     AgentResponseCallback
	streamingResponse StreamingResponseCallback
	humanResponse     HumanResponseFunc
}

// WithAgentResponseCallback sets the full-response callback.
func WithAgentResponseCallback(cb AgentResponseCallback) Option {
	return func(o *options) { o.agentResponse = cb }
}

// WithStreamingResponseCallback sets the streamed-delta callback.
func WithStreamingResponseCallback(cb StreamingResponseCallback) Option {
	return func(o *options) { o.streamingResponse = cb }
}

// WithHumanResponseFunc sets the human-in-the-loop hook.
func WithHumanResponseFunc(fn HumanResponseFunc) Option {
	return func(o *options) { o.humanResponse = fn }
}
