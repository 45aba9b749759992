//
// Copyright (C) 2026 The parley Authors.  All rights reserved.
//
// parley is licensed under the Apache License Version 2.0.
//
//

// Package runtime defines the actor runtime contract the orchestration
// layer builds on.
//
// A runtime owns actor instances, delivers messages to them, and fans
// published messages out to topic subscribers. It guarantees that message
// handlers on a single actor instance never run concurrently; handlers on
// different actors may. Cross-actor ordering is per sender→receiver FIFO
// only.
package runtime

import "context"

// ActorID addresses a single actor instance in a runtime.
type ActorID struct {
	// Type is the registered actor type.
	Type string
	// Key distinguishes instances of the same type.
	Key string
}

// String returns "type/key".
func (id ActorID) String() string { return id.Type + "/" + id.Key }

// TopicID names a broadcast channel.
type TopicID struct {
	// Type is the topic type subscriptions match on.
	Type string
	// Source identifies the publisher.
	Source string
}

// TypeSubscription binds every topic of the given type to the actor of the
// given type: each message published to the topic is delivered to that
// actor.
type TypeSubscription struct {
	// TopicType is the topic type to match.
	TopicType string
	// ActorType is the actor type that receives matching messages.
	ActorType string
}

// Actor handles messages delivered by the runtime.
type Actor interface {
	// OnMessage processes one message. The context is the one the sender
	// passed to SendMessage or PublishMessage; once it is canceled the
	// actor must stop working on the message.
	OnMessage(ctx context.Context, msg any) error
}

// ActorContext is handed to an actor factory at instantiation.
type ActorContext struct {
	// ID is the identity of the actor being created.
	ID ActorID
	// Runtime is the runtime the actor lives in, for sending and
	// publishing from inside handlers.
	Runtime Runtime
}

// Factory creates an actor instance.
type Factory func(actorCtx *ActorContext) (Actor, error)

// Runtime delivers messages between actors.
type Runtime interface {
	// Register registers an actor type with its factory. The actor is
	// instantiated lazily on first use.
	Register(actorType string, factory Factory) error

	// Get resolves the actor ID for a registered actor type.
	Get(actorType string) (ActorID, error)

	// SendMessage delivers msg to the target actor. It returns after the
	// target's handler has processed the message, or with the context's
	// error if the context is canceled first.
	SendMessage(ctx context.Context, msg any, target ActorID) error

	// PublishMessage delivers msg to every actor subscribed to the topic's
	// type. It returns once the message is enqueued on every subscriber;
	// it does not wait for handlers.
	PublishMessage(ctx context.Context, msg any, topic TopicID) error

	// AddSubscription adds a type subscription.
	AddSubscription(sub TypeSubscription) error

	// Start begins message processing.
	Start()

	// StopWhenIdle blocks until every mailbox is drained, then stops the
	// runtime. It returns early with the context's error if ctx is
	// canceled.
	StopWhenIdle(ctx context.Context) error
}
