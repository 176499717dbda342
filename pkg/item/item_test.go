package item

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValid(t *testing.T) {
	tests := []struct {
		name string
		item Item
		want bool
	}{
		{"message with content", NewMessage("user", "hello"), true},
		{"message with empty content", NewMessage("user", ""), true},
		{"message with nil content", Item{Type: TypeMessage, Role: "user"}, false},
		{"function call with name", NewFunctionCall("call-1", "search", `{"q":"x"}`), true},
		{"function call without name", Item{Type: TypeFunctionCall, CallID: "call-1"}, false},
		{"function call output", NewFunctionCallOutput("call-1", "result"), true},
		{"reasoning", NewReasoning("thinking"), true},
		{"unknown type", Item{Type: Type("bogus")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.item.Valid())
		})
	}
}

func TestText(t *testing.T) {
	msg := NewMessage("assistant", "the answer")
	assert.Equal(t, "the answer", msg.Text())

	nilMsg := Item{Type: TypeMessage, Role: "user"}
	assert.Equal(t, "", nilMsg.Text())

	out := NewFunctionCallOutput("c1", "42")
	assert.Equal(t, "42", out.Text())

	call := NewFunctionCall("c1", "calc", `{"op":"add"}`)
	assert.Equal(t, `{"op":"add"}`, call.Text())
}

func TestSerializedLen(t *testing.T) {
	it := NewMessage("user", "hi")
	assert.Greater(t, it.SerializedLen(), len("hi"))

	items := []Item{NewMessage("user", "a"), NewMessage("assistant", "b")}
	assert.Equal(t, items[0].SerializedLen()+items[1].SerializedLen(), SerializeAll(items))
}
