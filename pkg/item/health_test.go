package item

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateHealthClean(t *testing.T) {
	items := []Item{
		NewMessage("user", "do the thing"),
		NewFunctionCall("call-1", "do_thing", "{}"),
		NewFunctionCallOutput("call-1", "done"),
		NewMessage("assistant", "all done"),
	}

	h := ValidateHealth(items)
	assert.True(t, h.IsValid)
	assert.False(t, h.HasInvalidResponses)
	assert.Equal(t, 1.0, h.ContinuityScore)
	assert.Empty(t, h.Issues)
}

func TestValidateHealthOrphanedCall(t *testing.T) {
	items := []Item{
		NewFunctionCall("call-1", "a", "{}"),
		NewFunctionCallOutput("call-1", "ok"),
		NewFunctionCall("call-2", "b", "{}"), // never answered
	}

	h := ValidateHealth(items)
	assert.False(t, h.IsValid)
	assert.False(t, h.HasInvalidResponses)
	require.Len(t, h.Issues, 1)
	assert.Contains(t, h.Issues[0], "Orphaned function call")
	assert.Contains(t, h.Issues[0], "call-2")
	// 1 orphan out of 3 call-related items.
	assert.InDelta(t, 1.0-1.0/3.0, h.ContinuityScore, 1e-9)
}

func TestValidateHealthOrphanedOutput(t *testing.T) {
	items := []Item{
		NewFunctionCallOutput("call-9", "result from nowhere"),
	}

	h := ValidateHealth(items)
	assert.False(t, h.IsValid)
	assert.True(t, h.HasInvalidResponses)
	require.Len(t, h.Issues, 1)
	assert.Contains(t, h.Issues[0], "call-9")
	assert.Equal(t, 0.0, h.ContinuityScore)
}

func TestValidateHealthEmpty(t *testing.T) {
	h := ValidateHealth(nil)
	assert.True(t, h.IsValid)
	assert.Equal(t, 1.0, h.ContinuityScore)
}

func TestValidateHealthMessagesOnly(t *testing.T) {
	items := []Item{
		NewMessage("user", "hi"),
		NewMessage("assistant", "hello"),
		NewReasoning("greeting detected"),
	}
	h := ValidateHealth(items)
	assert.True(t, h.IsValid)
	assert.Equal(t, 1.0, h.ContinuityScore)
}
