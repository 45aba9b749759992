//
// Copyright (C) 2026 The parley Authors.  All rights reserved.
//
// parley is licensed under the Apache License Version 2.0.
//
//

// Package tool provides tool interfaces and the capability registry agents
// expose to the orchestration layer.
package tool

import "context"

// Tool is the interface that all tools must implement.
type Tool interface {
	// Declaration returns the tool declaration used to advertise the tool
	// to a model.
	Declaration() *Declaration
}

// CallableTool is a tool that can be executed with JSON arguments.
type CallableTool interface {
	Tool

	// Call executes the tool with the given JSON-encoded arguments.
	Call(ctx context.Context, jsonArgs []byte) (any, error)
}

// Declaration describes a tool to the model.
type Declaration struct {
	// Name is the tool name. Must match ^[a-zA-Z0-9_-]+$ for broad model
	// API compatibility.
	Name string `json:"name"`
	// Description tells the model what the tool does and when to use it.
	Description string `json:"description"`
	// InputSchema is the JSON schema of the tool input.
	InputSchema *Schema `json:"input_schema,omitempty"`
}

// Schema is a minimal JSON schema representation for tool parameters.
type Schema struct {
	// Type is the JSON type, e.g. "object" or "string".
	Type string `json:"type,omitempty"`
	// Description describes the value.
	Description string `json:"description,omitempty"`
	// Properties lists the named properties of an object schema.
	Properties map[string]*Schema `json:"properties,omitempty"`
	// Required lists the required property names of an object schema.
	Required []string `json:"required,omitempty"`
	// Items is the element schema of an array schema.
	Items *Schema `json:"items,omitempty"`
	// Enum restricts a value to a fixed set.
	Enum []string `json:"enum,omitempty"`
}

// EmptyObjectSchema returns the schema of a tool that takes no arguments.
func EmptyObjectSchema() *Schema {
	return &Schema{Type: "object", Properties: map[string]*Schema{}}
}
