//
// Copyright (C) 2026 The parley Authors.  All rights reserved.
//
// parley is licensed under the Apache License Version 2.0.
//
//

package openaiagent

import (
	openaiopt "github.com/openai/openai-go/option"

	"github.com/parley-go/parley/tool"
)

const defaultMaxToolIterations = 8

// Option configures an Agent.
type Option func(*options)

type options struct {
	description       string
	instruction       string
	model             string
	maxToolIterations int
	tools             []tool.Tool
	clientOptions     []openaiopt.RequestOption
}

// WithDescription sets the agent description shown to peers.
func WithDescription(description string) Option {
	return func(o *options) { o.description = description }
}

// WithInstruction sets the system instruction prepended to every turn.
func WithInstruction(instruction string) Option {
	return func(o *options) { o.instruction = instruction }
}

// WithModel sets the model name, e.g. "gpt-4o-mini".
func WithModel(model string) Option {
	return func(o *options) { o.model = model }
}

// WithTools registers the agent's own tools.
func WithTools(tools ...tool.Tool) Option {
	return func(o *options) { o.tools = append(o.tools, tools...) }
}

// WithMaxToolIterations bounds the tool-execution loop of one turn.
func WithMaxToolIterations(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxToolIterations = n
		}
	}
}

// WithClientOptions passes options to the underlying OpenAI client, e.g.
// option.WithAPIKey or option.WithBaseURL.
func WithClientOptions(opts ...openaiopt.RequestOption) Option {
	return func(o *options) { o.clientOptions = append(o.clientOptions, opts...) }
}
