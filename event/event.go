//
// Copyright (C) 2026 The parley Authors.  All rights reserved.
//
// parley is licensed under the Apache License Version 2.0.
//
//

// Package event provides the event stream agents emit while producing a
// turn.
package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/parley-go/parley/model"
)

// Event is one element of an agent's output stream.
//
// A turn is a sequence of partial content events, optional tool-call events,
// and a final event with Done set. The final event carries the aggregated
// content and the complete tool-call list of the turn.
type Event struct {
	// ID uniquely identifies the event.
	ID string `json:"id"`
	// InvocationID identifies the agent invocation this event belongs to.
	InvocationID string `json:"invocation_id"`
	// Author is the name of the agent that produced the event.
	Author string `json:"author"`
	// Timestamp is the event creation time.
	Timestamp time.Time `json:"timestamp"`

	// Content is the content delta for partial events, or the aggregated
	// turn content for the final event.
	Content string `json:"content,omitempty"`
	// ToolCalls is the tool calls the agent requested.
	ToolCalls []model.ToolCall `json:"tool_calls,omitempty"`
	// IsPartial indicates this event carries a streamed delta.
	IsPartial bool `json:"is_partial,omitempty"`
	// Done indicates the turn is complete.
	Done bool `json:"done,omitempty"`

	// Err carries a stream failure. A stream that errors ends with a single
	// event whose Err is non-nil.
	Err error `json:"-"`
}

// Option configures an Event.
type Option func(*Event)

// New creates a new Event with a generated ID and timestamp.
func New(invocationID, author string, opts ...Option) *Event {
	e := &Event{
		ID:           uuid.NewString(),
		InvocationID: invocationID,
		Author:       author,
		Timestamp:    time.Now(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithContent sets the event content.
func WithContent(content string) Option {
	return func(e *Event) { e.Content = content }
}

// WithToolCalls sets the tool calls carried by the event.
func WithToolCalls(calls []model.ToolCall) Option {
	return func(e *Event) { e.ToolCalls = calls }
}

// WithIsPartial marks the event as a streamed delta.
func WithIsPartial(partial bool) Option {
	return func(e *Event) { e.IsPartial = partial }
}

// WithDone marks the event as the end of the turn.
func WithDone(done bool) Option {
	return func(e *Event) { e.Done = done }
}

// WithError attaches a stream failure to the event.
func WithError(err error) Option {
	return func(e *Event) { e.Err = err }
}
