//
// Copyright (C) 2026 The parley Authors.  All rights reserved.
//
// parley is licensed under the Apache License Version 2.0.
//
//

// Package orchestration provides the shared pieces of multi-agent
// orchestrations: the single-assignment result future handed to callers.
package orchestration

import (
	"context"
	"errors"
	"sync"

	"github.com/parley-go/parley/model"
)

var (
	// ErrAlreadyDone is returned by Cancel when the run already settled.
	ErrAlreadyDone = errors.New("orchestration already completed")

	// ErrCanceled is returned by Get after a successful Cancel.
	ErrCanceled = errors.New("orchestration canceled before completion")
)

// Result is the single-assignment future of an orchestration run.
//
// It settles exactly once, through Complete, Fail, or Cancel. Get blocks
// until the result settles or the caller's context expires.
type Result struct {
	mu      sync.Mutex
	settled bool
	msg     model.Message
	err     error
	done    chan struct{}
	cancel  context.CancelFunc
}

// NewResult creates an unsettled result. cancel is invoked when the caller
// cancels the run; it may be nil.
func NewResult(cancel context.CancelFunc) *Result {
	return &Result{done: make(chan struct{}), cancel: cancel}
}

// Complete settles the result with a final message. It reports whether this
// call settled the result; repeated settlement attempts are rejected so the
// caller observes exactly one result per run.
func (r *Result) Complete(msg model.Message) bool {
	return r.settle(msg, nil)
}

// Fail settles the result with an error.
func (r *Result) Fail(err error) bool {
	return r.settle(model.Message{}, err)
}

func (r *Result) settle(msg model.Message, err error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.settled {
		return false
	}
	r.settled = true
	r.msg = msg
	r.err = err
	close(r.done)
	return true
}

// Get blocks until the result settles and returns the final message, or an
// error when the run failed or was canceled. Pass a context with a deadline
// to bound the wait.
func (r *Result) Get(ctx context.Context) (model.Message, error) {
	select {
	case <-r.done:
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.msg, r.err
	case <-ctx.Done():
		return model.Message{}, ctx.Err()
	}
}

// Cancel cancels a run that has not settled yet. Canceling a run that
// already completed is an error, not a no-op: it returns ErrAlreadyDone.
func (r *Result) Cancel() error {
	r.mu.Lock()
	if r.settled {
		r.mu.Unlock()
		return ErrAlreadyDone
	}
	r.settled = true
	r.err = ErrCanceled
	close(r.done)
	cancel := r.cancel
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return nil
}

// Done returns a channel closed when the result settles.
func (r *Result) Done() <-chan struct{} {
	return r.done
}
