//
// Copyright (C) 2026 The parley Authors.  All rights reserved.
//
// parley is licensed under the Apache License Version 2.0.
//
//

// Package function provides function-based tool implementations.
package function

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/parley-go/parley/tool"
)

// FunctionTool wraps a Go function as a callable tool. The input type I is
// decoded from the JSON arguments the model produced.
type FunctionTool[I, O any] struct {
	name        string
	description string
	inputSchema *tool.Schema
	fn          func(context.Context, I) (O, error)
}

// Option configures a FunctionTool.
type Option func(*options)

type options struct {
	name        string
	description string
	inputSchema *tool.Schema
}

// WithName sets the name of the function tool.
//
// Tool names must match ^[a-zA-Z0-9_-]+$ for model API compatibility.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithDescription sets the description of the function tool.
func WithDescription(description string) Option {
	return func(o *options) { o.description = description }
}

// WithInputSchema sets the input schema of the function tool. When omitted
// the tool advertises an empty object schema.
func WithInputSchema(schema *tool.Schema) Option {
	return func(o *options) { o.inputSchema = schema }
}

// New creates a FunctionTool around fn.
func New[I, O any](fn func(context.Context, I) (O, error), opts ...Option) *FunctionTool[I, O] {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.inputSchema == nil {
		o.inputSchema = tool.EmptyObjectSchema()
	}
	return &FunctionTool[I, O]{
		name:        o.name,
		description: o.description,
		inputSchema: o.inputSchema,
		fn:          fn,
	}
}

// Declaration implements tool.Tool.
func (t *FunctionTool[I, O]) Declaration() *tool.Declaration {
	return &tool.Declaration{
		Name:        t.name,
		Description: t.description,
		InputSchema: t.inputSchema,
	}
}

// Call implements tool.CallableTool.
func (t *FunctionTool[I, O]) Call(ctx context.Context, jsonArgs []byte) (any, error) {
	var in I
	if len(jsonArgs) > 0 {
		if err := json.Unmarshal(jsonArgs, &in); err != nil {
			return nil, fmt.Errorf("tool %s: unmarshal arguments: %w", t.name, err)
		}
	}
	out, err := t.fn(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("tool %s: %w", t.name, err)
	}
	return out, nil
}
