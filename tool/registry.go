//
// Copyright (C) 2026 The parley Authors.  All rights reserved.
//
// parley is licensed under the Apache License Version 2.0.
//
//

package tool

import (
	"fmt"
	"sync"
)

// Registry is a named set of tools owned by an agent.
//
// A Registry can be cloned so that callers may augment an agent's tool set
// for a single run without mutating the agent's own definition. A shared
// agent can therefore participate in several concurrent runs, each with its
// own injected tools.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry creates a registry holding the given tools.
// Later tools with the same name overwrite earlier ones.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		r.register(t)
	}
	return r
}

// Register adds a tool to the registry, replacing any tool with the same
// name. It returns an error when the tool or its declaration is nil.
func (r *Registry) Register(t Tool) error {
	if t == nil || t.Declaration() == nil {
		return fmt.Errorf("register tool: nil tool or declaration")
	}
	if t.Declaration().Name == "" {
		return fmt.Errorf("register tool: empty tool name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.register(t)
	return nil
}

func (r *Registry) register(t Tool) {
	if t == nil || t.Declaration() == nil || t.Declaration().Name == "" {
		return
	}
	name := t.Declaration().Name
	if _, ok := r.tools[name]; !ok {
		r.order = append(r.order, name)
	}
	r.tools[name] = t
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Tools returns the registered tools in registration order.
func (r *Registry) Tools() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Clone returns a new registry holding the same tools.
//
// The clone and the original share tool instances but not the set itself:
// registering on one never shows up on the other.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &Registry{
		tools: make(map[string]Tool, len(r.tools)),
		order: make([]string, len(r.order)),
	}
	copy(clone.order, r.order)
	for name, t := range r.tools {
		clone.tools[name] = t
	}
	return clone
}
