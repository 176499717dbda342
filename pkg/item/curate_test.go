package item

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurateValidRemovesInvalid(t *testing.T) {
	items := []Item{
		NewMessage("user", "keep me"),
		{Type: TypeMessage, Role: "assistant"}, // no content body
		NewFunctionCall("c1", "search", "{}"),
		{Type: TypeFunctionCall, CallID: "c2"}, // no name
		NewFunctionCallOutput("c1", "ok"),
		NewReasoning("step"),
	}

	got := CurateValid(items)
	require.Len(t, got, 4)
	assert.Equal(t, "keep me", got[0].Text())
	assert.Equal(t, "search", got[1].Name)
	assert.Equal(t, "c1", got[2].CallID)
	assert.Equal(t, TypeReasoning, got[3].Type)
}

func TestCuratePreservesOrder(t *testing.T) {
	items := []Item{
		NewMessage("user", "first"),
		NewMessage("assistant", "second"),
		NewMessage("user", "third"),
	}
	got := CurateValid(items)
	require.Len(t, got, 3)
	for i := range items {
		assert.Equal(t, items[i].Text(), got[i].Text())
	}
}

func TestCurateDoesNotMutateInput(t *testing.T) {
	items := []Item{
		NewMessage("user", "a"),
		{Type: TypeMessage},
		NewMessage("user", "b"),
	}
	_ = CurateValid(items)
	assert.Len(t, items, 3)
	assert.Nil(t, items[1].Content)
}

func TestCurateCustomPredicate(t *testing.T) {
	items := []Item{
		NewMessage("user", "a"),
		NewReasoning("internal"),
		NewMessage("assistant", "b"),
	}
	noReasoning := Curate(items, func(it *Item) bool { return it.Type != TypeReasoning })
	require.Len(t, noReasoning, 2)
}

func TestCurateEmpty(t *testing.T) {
	assert.Empty(t, CurateValid(nil))
	assert.Empty(t, CurateValid([]Item{}))
}
