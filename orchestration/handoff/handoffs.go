//
// Copyright (C) 2026 The parley Authors.  All rights reserved.
//
// parley is licensed under the Apache License Version 2.0.
//
//

// Package handoff implements the handoff orchestration: a fixed set of
// cooperating agents that pass exclusive control of a task to one another
// through synthesized transfer functions, converging on a shared
// conversation purely by message exchange.
package handoff

import (
	"errors"
	"fmt"

	"github.com/parley-go/parley/agent"
)

// ErrInvalidConfiguration is wrapped by every handoff graph validation
// failure.
var ErrInvalidConfiguration = errors.New("invalid handoff configuration")

// Handoffs maps a source agent name to the set of agents it can transfer
// control to, with the description shown to the model for each transfer.
//
// Handoffs is pure data. It is built before the orchestration is
// constructed and validated once at construction; re-adding a (source,
// target) pair overwrites the description.
type Handoffs map[string]map[string]string

// NewHandoffs creates an empty handoff graph.
func NewHandoffs() Handoffs {
	return make(Handoffs)
}

// Add records that source may transfer control to target. It returns the
// receiver so calls can be chained.
func (h Handoffs) Add(source, target, description string) Handoffs {
	if h[source] == nil {
		h[source] = make(map[string]string)
	}
	h[source][target] = description
	return h
}

// AddAgent records that source may transfer control to the target agent,
// using the target's own description as the transfer description.
func (h Handoffs) AddAgent(source string, target agent.Agent) Handoffs {
	info := target.Info()
	return h.Add(source, info.Name, info.Description)
}

// AddMany records several targets for one source.
func (h Handoffs) AddMany(source string, targets map[string]string) Handoffs {
	for target, description := range targets {
		h.Add(source, target, description)
	}
	return h
}

// AddAgents records several target agents for one source, each with its own
// description as the transfer description.
func (h Handoffs) AddAgents(source string, targets ...agent.Agent) Handoffs {
	for _, target := range targets {
		h.AddAgent(source, target)
	}
	return h
}

// validate checks the graph against the orchestration members. It runs
// before any actor is registered with the runtime, so a bad configuration
// never reaches it.
func (h Handoffs) validate(members map[string]struct{}) error {
	if len(h) == 0 {
		return fmt.Errorf("%w: handoffs are empty", ErrInvalidConfiguration)
	}
	for source, targets := range h {
		if _, ok := members[source]; !ok {
			return fmt.Errorf(
				"%w: source %q is not a member of the orchestration",
				ErrInvalidConfiguration, source,
			)
		}
		for target := range targets {
			if _, ok := members[target]; !ok {
				return fmt.Errorf(
					"%w: target %q of source %q is not a member of the orchestration",
					ErrInvalidConfiguration, target, source,
				)
			}
			if target == source {
				return fmt.Errorf(
					"%w: agent %q hands off to itself",
					ErrInvalidConfiguration, source,
				)
			}
		}
	}
	return nil
}
