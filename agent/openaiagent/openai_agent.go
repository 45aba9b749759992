//
// Copyright (C) 2026 The parley Authors.  All rights reserved.
//
// parley is licensed under the Apache License Version 2.0.
//
//

// Package openaiagent provides an agent backed by the OpenAI chat
// completion API with streaming and tool calling.
package openaiagent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"

	"github.com/parley-go/parley/agent"
	"github.com/parley-go/parley/event"
	"github.com/parley-go/parley/log"
	"github.com/parley-go/parley/model"
	"github.com/parley-go/parley/tool"
)

const defaultModel = "gpt-4o-mini"

// Agent is a chat-completion agent. One Run call produces one turn: it
// streams content deltas, executes requested tools, and ends with a final
// event carrying the aggregated content and the turn's tool calls.
type Agent struct {
	name              string
	description       string
	instruction       string
	model             string
	maxToolIterations int
	client            openai.Client
	tools             *tool.Registry
}

// New creates an OpenAI-backed agent. Credentials default to the standard
// OPENAI_API_KEY environment variable; override with WithClientOptions.
func New(name string, opts ...Option) *Agent {
	o := options{
		model:             defaultModel,
		maxToolIterations: defaultMaxToolIterations,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Agent{
		name:              name,
		description:       o.description,
		instruction:       o.instruction,
		model:             o.model,
		maxToolIterations: o.maxToolIterations,
		client:            openai.NewClient(o.clientOptions...),
		tools:             tool.NewRegistry(o.tools...),
	}
}

// Info implements agent.Agent.
func (a *Agent) Info() agent.Info {
	return agent.Info{Name: a.name, Description: a.description}
}

// Tools implements agent.Agent.
func (a *Agent) Tools() *tool.Registry {
	return a.tools
}

// Run implements agent.Agent.
func (a *Agent) Run(ctx context.Context, invocation *agent.Invocation) (<-chan *event.Event, error) {
	if invocation == nil {
		return nil, fmt.Errorf("openai agent %s: nil invocation", a.name)
	}
	out := make(chan *event.Event, 16)
	go a.runTurn(ctx, invocation, out)
	return out, nil
}

func (a *Agent) runTurn(ctx context.Context, invocation *agent.Invocation, out chan<- *event.Event) {
	defer close(out)

	registry := invocation.Tools
	if registry == nil {
		registry = a.tools
	}
	messages := a.convertMessages(invocation.Messages)
	toolParams := convertTools(registry)

	var turnCalls []model.ToolCall
	for iteration := 0; iteration < a.maxToolIterations; iteration++ {
		params := openai.ChatCompletionNewParams{
			Model:    shared.ChatModel(a.model),
			Messages: messages,
		}
		if len(toolParams) > 0 {
			params.Tools = toolParams
		}

		stream := a.client.Chat.Completions.NewStreaming(ctx, params)
		acc := openai.ChatCompletionAccumulator{}
		for stream.Next() {
			chunk := stream.Current()
			acc.AddChunk(chunk)
			if len(chunk.Choices) == 0 {
				continue
			}
			if delta := chunk.Choices[0].Delta.Content; delta != "" {
				ev := event.New(invocation.InvocationID, a.name,
					event.WithContent(delta),
					event.WithIsPartial(true),
				)
				if !emit(ctx, out, ev) {
					_ = stream.Close()
					return
				}
			}
		}
		if err := stream.Err(); err != nil {
			_ = stream.Close()
			emit(ctx, out, event.New(invocation.InvocationID, a.name,
				event.WithError(fmt.Errorf("openai stream: %w", err))))
			return
		}
		_ = stream.Close()
		if len(acc.Choices) == 0 {
			emit(ctx, out, event.New(invocation.InvocationID, a.name,
				event.WithError(fmt.Errorf("openai stream: empty completion"))))
			return
		}

		choice := acc.Choices[0]
		calls := convertCompletionToolCalls(choice.Message.ToolCalls)
		if len(calls) == 0 {
			emit(ctx, out, event.New(invocation.InvocationID, a.name,
				event.WithContent(choice.Message.Content),
				event.WithToolCalls(turnCalls),
				event.WithDone(true),
			))
			return
		}

		turnCalls = append(turnCalls, calls...)
		if !emit(ctx, out, event.New(invocation.InvocationID, a.name, event.WithToolCalls(calls))) {
			return
		}

		messages = append(messages, openai.ChatCompletionMessageParamUnion{
			OfAssistant: &openai.ChatCompletionAssistantMessageParam{
				Content: openai.ChatCompletionAssistantMessageParamContentUnion{
					OfString: openai.String(choice.Message.Content),
				},
				ToolCalls: convertToolCallParams(calls),
			},
		})
		for _, call := range calls {
			result := a.executeTool(ctx, registry, call)
			messages = append(messages, openai.ChatCompletionMessageParamUnion{
				OfTool: &openai.ChatCompletionToolMessageParam{
					Content: openai.ChatCompletionToolMessageParamContentUnion{
						OfString: openai.String(result),
					},
					ToolCallID: call.ID,
				},
			})
		}
	}

	emit(ctx, out, event.New(invocation.InvocationID, a.name,
		event.WithToolCalls(turnCalls),
		event.WithDone(true),
	))
}

// emit delivers ev unless the context is canceled first. A consumer that
// stopped reading therefore never strands this goroutine on the channel.
func emit(ctx context.Context, out chan<- *event.Event, ev *event.Event) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// executeTool runs one requested tool and returns its JSON result. Errors
// are reported back to the model as the tool result instead of failing the
// turn, so the model can recover.
func (a *Agent) executeTool(ctx context.Context, registry *tool.Registry, call model.ToolCall) string {
	t, ok := registry.Lookup(call.Function.Name)
	if !ok {
		return fmt.Sprintf(`{"error":"unknown tool %s"}`, call.Function.Name)
	}
	callable, ok := t.(tool.CallableTool)
	if !ok {
		return fmt.Sprintf(`{"error":"tool %s is not callable"}`, call.Function.Name)
	}
	result, err := callable.Call(ctx, call.Function.Arguments)
	if err != nil {
		log.Warnf("openai agent %s: tool %s: %v", a.name, call.Function.Name, err)
		return fmt.Sprintf(`{"error":%q}`, err.Error())
	}
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprintf(`{"error":"marshal result of %s"}`, call.Function.Name)
	}
	return string(data)
}

// convertMessages converts thread messages to OpenAI's format, prepending
// the agent instruction when set.
func (a *Agent) convertMessages(messages []model.Message) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)+1)
	if a.instruction != "" {
		result = append(result, openai.ChatCompletionMessageParamUnion{
			OfSystem: &openai.ChatCompletionSystemMessageParam{
				Content: openai.ChatCompletionSystemMessageParamContentUnion{
					OfString: openai.String(a.instruction),
				},
			},
		})
	}
	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			result = append(result, openai.ChatCompletionMessageParamUnion{
				OfSystem: &openai.ChatCompletionSystemMessageParam{
					Content: openai.ChatCompletionSystemMessageParamContentUnion{
						OfString: openai.String(msg.Content),
					},
				},
			})
		case model.RoleAssistant:
			result = append(result, openai.ChatCompletionMessageParamUnion{
				OfAssistant: &openai.ChatCompletionAssistantMessageParam{
					Content: openai.ChatCompletionAssistantMessageParamContentUnion{
						OfString: openai.String(msg.Content),
					},
					ToolCalls: convertToolCallParams(msg.ToolCalls),
				},
			})
		case model.RoleTool:
			result = append(result, openai.ChatCompletionMessageParamUnion{
				OfTool: &openai.ChatCompletionToolMessageParam{
					Content: openai.ChatCompletionToolMessageParamContentUnion{
						OfString: openai.String(msg.Content),
					},
					ToolCallID: msg.ToolID,
				},
			})
		default:
			result = append(result, openai.ChatCompletionMessageParamUnion{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfString: openai.String(msg.Content),
					},
				},
			})
		}
	}
	return result
}

// convertTools converts registry declarations to OpenAI tool params.
func convertTools(registry *tool.Registry) []openai.ChatCompletionToolParam {
	if registry == nil {
		return nil
	}
	var result []openai.ChatCompletionToolParam
	for _, t := range registry.Tools() {
		declaration := t.Declaration()
		schemaBytes, err := json.Marshal(declaration.InputSchema)
		if err != nil {
			log.Errorf("marshal tool schema for %s: %v", declaration.Name, err)
			continue
		}
		var parameters shared.FunctionParameters
		if err := json.Unmarshal(schemaBytes, &parameters); err != nil {
			log.Errorf("unmarshal tool schema for %s: %v", declaration.Name, err)
			continue
		}
		result = append(result, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        declaration.Name,
				Description: openai.String(declaration.Description),
				Parameters:  parameters,
			},
		})
	}
	return result
}

func convertCompletionToolCalls(calls []openai.ChatCompletionMessageToolCall) []model.ToolCall {
	var result []model.ToolCall
	for _, call := range calls {
		if call.Function.Name == "" {
			// The accumulator may surface empty placeholder calls.
			continue
		}
		result = append(result, model.ToolCall{
			Type: "function",
			ID:   call.ID,
			Function: model.FunctionCall{
				Name:      call.Function.Name,
				Arguments: []byte(call.Function.Arguments),
			},
		})
	}
	return result
}

func convertToolCallParams(calls []model.ToolCall) []openai.ChatCompletionMessageToolCallParam {
	var result []openai.ChatCompletionMessageToolCallParam
	for _, call := range calls {
		result = append(result, openai.ChatCompletionMessageToolCallParam{
			ID: call.ID,
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      call.Function.Name,
				Arguments: string(call.Function.Arguments),
			},
		})
	}
	return result
}
