//
// Copyright (C) 2026 The parley Authors.  All rights reserved.
//
// parley is licensed under the Apache License Version 2.0.
//
//

package handoff

import (
	"context"
	"encoding/json"

	"github.com/parley-go/parley/log"
	"github.com/parley-go/parley/model"
	"github.com/parley-go/parley/tool"
)

const (
	// completeTaskToolName is the synthesized completion function.
	completeTaskToolName = "complete_task"
	// transferToolPrefix prefixes every synthesized transfer function; the
	// suffix is the target agent name.
	transferToolPrefix = "transfer_to_"
)

// injectedKind tags the two kinds of synthesized handoff functions.
type injectedKind int

const (
	kindTransfer injectedKind = iota
	kindCompleteTask
)

// injectedFunction is one entry of the per-turn function table. After a
// turn the actor looks the agent's function calls up in this table instead
// of threading a terminate flag through the invocation.
type injectedFunction struct {
	kind   injectedKind
	target string
}

// buildInjected synthesizes the handoff function set for one agent's
// outgoing edges: one zero-argument transfer function per edge plus
// complete_task. It returns the lookup table and the tools to register on
// the cloned registry.
func buildInjected(edges map[string]string) (map[string]injectedFunction, []tool.Tool) {
	table := make(map[string]injectedFunction, len(edges)+1)
	tools := make([]tool.Tool, 0, len(edges)+1)
	for target, description := range edges {
		name := transferToolPrefix + target
		table[name] = injectedFunction{kind: kindTransfer, target: target}
		tools = append(tools, &transferTool{target: target, description: description})
	}
	table[completeTaskToolName] = injectedFunction{kind: kindCompleteTask}
	tools = append(tools, &completeTaskTool{})
	return table, tools
}

// transferTool is a synthesized zero-argument function that hands the
// conversation to a named peer. Its body performs no I/O; the actor
// interprets the recorded call after the turn.
type transferTool struct {
	target      string
	description string
}

// Declaration implements tool.Tool.
func (t *transferTool) Declaration() *tool.Declaration {
	return &tool.Declaration{
		Name:        transferToolPrefix + t.target,
		Description: t.description,
		InputSchema: tool.EmptyObjectSchema(),
	}
}

// Call implements tool.CallableTool.
func (t *transferTool) Call(context.Context, []byte) (any, error) {
	return transferAck{Transferred: true, TargetAgent: t.target}, nil
}

type transferAck struct {
	Transferred bool   `json:"transferred"`
	TargetAgent string `json:"target_agent"`
}

// completeTaskTool is the synthesized function an agent calls to finish the
// task with a summary.
type completeTaskTool struct{}

type completeTaskArgs struct {
	TaskSummary string `json:"task_summary"`
}

// Declaration implements tool.Tool.
func (t *completeTaskTool) Declaration() *tool.Declaration {
	return &tool.Declaration{
		Name:        completeTaskToolName,
		Description: "Complete the task with a summary when no further requests are given.",
		InputSchema: &tool.Schema{
			Type: "object",
			Properties: map[string]*tool.Schema{
				"task_summary": {
					Type:        "string",
					Description: "Summary of the completed task.",
				},
			},
			Required: []string{"task_summary"},
		},
	}
}

// Call implements tool.CallableTool.
func (t *completeTaskTool) Call(_ context.Context, jsonArgs []byte) (any, error) {
	var args completeTaskArgs
	if err := json.Unmarshal(jsonArgs, &args); err != nil {
		log.Warnf("complete_task: unparsable arguments: %v", err)
	}
	return map[string]string{"task_summary": args.TaskSummary}, nil
}

// turnOutcome is the scratch result of one invoke/interpret cycle. It is
// produced by invokeTurn and consumed immediately by the request handler;
// it never outlives a turn.
type turnOutcome struct {
	// target is the agent the turn handed control to, if any.
	target string
	// completed reports that complete_task was called.
	completed bool
	// summary is the task summary carried by complete_task.
	summary string
	// content is the visible answer of an ordinary turn.
	content string
}

// interpretToolCalls resolves the function calls of a turn against the
// injected table. Completion wins over transfer; among several transfers
// the first wins; calls to anything outside the table are not ours to
// interpret.
func interpretToolCalls(
	injected map[string]injectedFunction,
	calls []model.ToolCall,
) turnOutcome {
	var out turnOutcome
	for _, call := range calls {
		fn, ok := injected[call.Function.Name]
		if !ok {
			continue
		}
		switch fn.kind {
		case kindCompleteTask:
			if !out.completed {
				out.completed = true
				var args completeTaskArgs
				if err := json.Unmarshal(call.Function.Arguments, &args); err == nil {
					out.summary = args.TaskSummary
				}
			}
		case kindTransfer:
			if out.target == "" {
				out.target = fn.target
			}
		}
	}
	return out
}
