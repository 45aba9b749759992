//
// Copyright (C) 2026 The parley Authors.  All rights reserved.
//
// parley is licensed under the Apache License Version 2.0.
//
//

package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoleIsValid(t *testing.T) {
	for _, role := range []Role{RoleSystem, RoleUser, RoleAssistant, RoleTool} {
		require.True(t, role.IsValid())
	}
	require.False(t, Role("model").IsValid())
	require.False(t, Role("").IsValid())
}

func TestMessageConstructors(t *testing.T) {
	sys := NewSystemMessage("rules")
	require.Equal(t, RoleSystem, sys.Role)
	require.Equal(t, "rules", sys.Content)
	require.NotEmpty(t, sys.ID)

	user := NewUserMessage("hello")
	require.Equal(t, RoleUser, user.Role)
	require.NotEmpty(t, user.ID)

	assistant := NewAssistantMessage("triage", "hi")
	require.Equal(t, RoleAssistant, assistant.Role)
	require.Equal(t, "triage", assistant.Name)
	require.NotEmpty(t, assistant.ID)

	toolMsg := NewToolMessage("call-1", "greet", `{"greeting":"hi"}`)
	require.Equal(t, RoleTool, toolMsg.Role)
	require.Equal(t, "call-1", toolMsg.ToolID)
	require.Equal(t, "greet", toolMsg.ToolName)

	// IDs are unique per message.
	require.NotEqual(t, sys.ID, user.ID)
}
