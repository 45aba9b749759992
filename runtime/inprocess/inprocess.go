//
// Copyright (C) 2026 The parley Authors.  All rights reserved.
//
// parley is licensed under the Apache License Version 2.0.
//
//

// Package inprocess provides an in-process actor runtime.
//
// Each actor instance owns a mailbox processed by a single worker, so
// handlers on one actor never run concurrently and messages from one sender
// to one receiver are processed in FIFO order. Workers run on a shared
// goroutine pool.
package inprocess

import (
	"context"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/parley-go/parley/log"
	"github.com/parley-go/parley/runtime"
)

const defaultMailboxSize = 128

// defaultActorKey is the instance key used for singleton actors.
const defaultActorKey = "default"

// Runtime is an in-process implementation of runtime.Runtime.
type Runtime struct {
	mu        sync.Mutex
	started   bool
	stopped   bool
	pool      *ants.Pool
	factories map[string]runtime.Factory
	mailboxes map[string]*mailbox
	subs      []runtime.TypeSubscription

	mailboxSize int

	// pending counts enqueued-but-unprocessed messages, for StopWhenIdle.
	pending sync.WaitGroup
}

// Option configures the runtime.
type Option func(*Runtime)

// WithMailboxSize sets the per-actor mailbox capacity.
func WithMailboxSize(size int) Option {
	return func(r *Runtime) {
		if size > 0 {
			r.mailboxSize = size
		}
	}
}

// New creates a new in-process runtime. Call Start before sending.
func New(opts ...Option) *Runtime {
	r := &Runtime{
		factories:   make(map[string]runtime.Factory),
		mailboxes:   make(map[string]*mailbox),
		mailboxSize: defaultMailboxSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type envelope struct {
	ctx  context.Context
	msg  any
	done chan struct{}
	err  error
}

type mailbox struct {
	id      runtime.ActorID
	actor   runtime.Actor
	ch      chan *envelope
	quit    chan struct{}
	running bool
}

// Register implements runtime.Runtime.
func (r *Runtime) Register(actorType string, factory runtime.Factory) error {
	if actorType == "" {
		return fmt.Errorf("register actor: empty actor type")
	}
	if factory == nil {
		return fmt.Errorf("register actor %s: nil factory", actorType)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[actorType]; ok {
		return fmt.Errorf("register actor %s: already registered", actorType)
	}
	r.factories[actorType] = factory
	return nil
}

// Get implements runtime.Runtime.
func (r *Runtime) Get(actorType string) (runtime.ActorID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[actorType]; !ok {
		return runtime.ActorID{}, fmt.Errorf("unknown actor type %q", actorType)
	}
	return runtime.ActorID{Type: actorType, Key: defaultActorKey}, nil
}

// SendMessage implements runtime.Runtime. It returns after the target's
// handler ran, propagating the handler's error.
func (r *Runtime) SendMessage(ctx context.Context, msg any, target runtime.ActorID) error {
	mb, err := r.resolveMailbox(target.Type)
	if err != nil {
		return err
	}
	env := &envelope{ctx: ctx, msg: msg, done: make(chan struct{})}
	if err := r.enqueue(ctx, mb, env); err != nil {
		return err
	}
	select {
	case <-env.done:
		return env.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishMessage implements runtime.Runtime. The message is enqueued on
// every actor subscribed to the topic type; handlers run asynchronously.
// A publish that matches no subscription is dropped with a warning.
func (r *Runtime) PublishMessage(ctx context.Context, msg any, topic runtime.TopicID) error {
	r.mu.Lock()
	var actorTypes []string
	for _, sub := range r.subs {
		if sub.TopicType == topic.Type {
			actorTypes = append(actorTypes, sub.ActorType)
		}
	}
	r.mu.Unlock()

	if len(actorTypes) == 0 {
		log.Warnf("publish to topic %q: no subscribers, message dropped", topic.Type)
		return nil
	}
	for _, actorType := range actorTypes {
		mb, err := r.resolveMailbox(actorType)
		if err != nil {
			return err
		}
		if err := r.enqueue(ctx, mb, &envelope{ctx: ctx, msg: msg}); err != nil {
			return err
		}
	}
	return nil
}

// AddSubscription implements runtime.Runtime.
func (r *Runtime) AddSubscription(sub runtime.TypeSubscription) error {
	if sub.TopicType == "" || sub.ActorType == "" {
		return fmt.Errorf("add subscription: empty topic or actor type")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = append(r.subs, sub)
	return nil
}

// Start implements runtime.Runtime.
func (r *Runtime) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	// Workers host long-lived mailbox loops, one per actor, so the pool is
	// unbounded.
	pool, err := ants.NewPool(-1)
	if err != nil {
		log.Fatalf("in-process runtime: create pool: %v", err)
		return
	}
	r.pool = pool
	r.started = true
	for _, mb := range r.mailboxes {
		r.startMailboxLocked(mb)
	}
}

// StopWhenIdle implements runtime.Runtime.
func (r *Runtime) StopWhenIdle(ctx context.Context) error {
	idle := make(chan struct{})
	go func() {
		r.pending.Wait()
		close(idle)
	}()
	select {
	case <-idle:
	case <-ctx.Done():
		return ctx.Err()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return nil
	}
	r.stopped = true
	for _, mb := range r.mailboxes {
		close(mb.quit)
	}
	if r.pool != nil {
		r.pool.Release()
	}
	return nil
}

func (r *Runtime) resolveMailbox(actorType string) (*mailbox, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if mb, ok := r.mailboxes[actorType]; ok {
		return mb, nil
	}
	factory, ok := r.factories[actorType]
	if !ok {
		return nil, fmt.Errorf("unknown actor type %q", actorType)
	}
	id := runtime.ActorID{Type: actorType, Key: defaultActorKey}
	actor, err := factory(&runtime.ActorContext{ID: id, Runtime: r})
	if err != nil {
		return nil, fmt.Errorf("create actor %s: %w", id, err)
	}
	mb := &mailbox{
		id:    id,
		actor: actor,
		ch:    make(chan *envelope, r.mailboxSize),
		quit:  make(chan struct{}),
	}
	r.mailboxes[actorType] = mb
	if r.started {
		r.startMailboxLocked(mb)
	}
	return mb, nil
}

func (r *Runtime) startMailboxLocked(mb *mailbox) {
	if mb.running {
		return
	}
	mb.running = true
	if err := r.pool.Submit(func() { r.runMailbox(mb) }); err != nil {
		log.Errorf("in-process runtime: start mailbox %s: %v", mb.id, err)
	}
}

func (r *Runtime) enqueue(ctx context.Context, mb *mailbox, env *envelope) error {
	r.pending.Add(1)
	select {
	case mb.ch <- env:
		return nil
	case <-ctx.Done():
		r.pending.Done()
		return ctx.Err()
	}
}

func (r *Runtime) runMailbox(mb *mailbox) {
	for {
		select {
		case env := <-mb.ch:
			r.process(mb, env)
		case <-mb.quit:
			return
		}
	}
}

func (r *Runtime) process(mb *mailbox, env *envelope) {
	defer r.pending.Done()
	if env.done != nil {
		defer close(env.done)
	}
	// A message whose context was canceled while queued is dropped
	// unprocessed: once cancellation is observed no further work runs for
	// that sender.
	if err := env.ctx.Err(); err != nil {
		env.err = err
		return
	}
	if err := mb.actor.OnMessage(env.ctx, env.msg); err != nil {
		env.err = err
		log.Errorf("actor %s: handle %T: %v", mb.id, env.msg, err)
	}
}
