//
// Copyright (C) 2026 The parley Authors.  All rights reserved.
//
// parley is licensed under the Apache License Version 2.0.
//
//

package handoff

import "github.com/parley-go/parley/model"

// StartMessage seeds an actor with the initial task content. Every member
// receives one before any work begins.
type StartMessage struct {
	// Body is the initial task, one or more messages.
	Body []model.Message
}

// RequestMessage grants the floor to the named agent. It is broadcast on
// the orchestration topic; actors whose name differs ignore it.
type RequestMessage struct {
	// AgentName is the member that should take the next turn.
	AgentName string
}

// ResponseMessage carries a visible answer. It is broadcast to every actor,
// and each appends it to its local thread; this is the only mechanism by
// which agents converge on a shared context.
type ResponseMessage struct {
	// Body is the answer message.
	Body model.Message
}
