//
// Copyright (C) 2026 The parley Authors.  All rights reserved.
//
// parley is licensed under the Apache License Version 2.0.
//
//

// Package model defines the chat message types exchanged between agents.
package model

import "github.com/google/uuid"

// Role is the role of the message author.
type Role string

// Role constants for message authors.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// IsValid checks if the role is one of the defined constants.
func (r Role) IsValid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return true
	}
	return false
}

// Message represents a single message in a conversation.
type Message struct {
	// ID uniquely identifies the message. Threads use it to deduplicate
	// messages that arrive through more than one channel.
	ID string `json:"id"`
	// Role is the role of the message author.
	Role Role `json:"role"`
	// Name is the name of the author, typically an agent name.
	Name string `json:"name,omitempty"`
	// Content is the message content.
	Content string `json:"content,omitempty"`
	// ToolCalls is the optional tool calls requested by the message.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	// ToolID is the ID of the tool call a tool response answers.
	ToolID string `json:"tool_id,omitempty"`
	// ToolName is the name of the tool a tool response answers.
	ToolName string `json:"tool_name,omitempty"`
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) Message {
	return Message{ID: uuid.NewString(), Role: RoleSystem, Content: content}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) Message {
	return Message{ID: uuid.NewString(), Role: RoleUser, Content: content}
}

// NewAssistantMessage creates a new assistant message authored by the named
// agent.
func NewAssistantMessage(name, content string) Message {
	return Message{
		ID:      uuid.NewString(),
		Role:    RoleAssistant,
		Name:    name,
		Content: content,
	}
}

// NewToolMessage creates a new tool response message.
func NewToolMessage(toolID, toolName, content string) Message {
	return Message{
		ID:       uuid.NewString(),
		Role:     RoleTool,
		ToolID:   toolID,
		ToolName: toolName,
		Content:  content,
	}
}

// ToolCall represents a tool call requested by the model.
type ToolCall struct {
	// Type of the tool. Currently, only `function` is supported.
	Type string `json:"type"`
	// Function carries the function name and raw JSON arguments.
	Function FunctionCall `json:"function"`
	// ID is the ID of the tool call returned by the model.
	ID string `json:"id,omitempty"`
}

// FunctionCall represents the function invocation inside a tool call.
type FunctionCall struct {
	// Name is the name of the function to be called.
	Name string `json:"name"`
	// Arguments is the raw JSON-encoded argument object.
	Arguments []byte `json:"arguments,omitempty"`
}
