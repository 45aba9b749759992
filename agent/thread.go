//
// Copyright (C) 2026 The parley Authors.  All rights reserved.
//
// parley is licensed under the Apache License Version 2.0.
//
//

package agent

import (
	"sync"

	"github.com/parley-go/parley/model"
)

// Thread is a conversation history owned by a single actor.
//
// Appends are deduplicated by message ID so that a message which arrives
// through more than one channel (for example an actor's own broadcast
// delivered back to it) is recorded once.
type Thread struct {
	mu       sync.Mutex
	messages []model.Message
	seen     map[string]struct{}
}

// NewThread creates an empty thread.
func NewThread() *Thread {
	return &Thread{seen: make(map[string]struct{})}
}

// OnNewMessage appends msg to the thread. It reports whether the message
// was new; a message whose ID was already recorded is ignored.
func (t *Thread) OnNewMessage(msg model.Message) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if msg.ID != "" {
		if _, ok := t.seen[msg.ID]; ok {
			return false
		}
		t.seen[msg.ID] = struct{}{}
	}
	t.messages = append(t.messages, msg)
	return true
}

// Messages returns a snapshot of the thread, oldest first.
func (t *Thread) Messages() []model.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]model.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Len returns the number of messages in the thread.
func (t *Thread) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.messages)
}
