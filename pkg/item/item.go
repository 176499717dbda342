// Package item defines the conversation item union and the pure functions
// that curate and validate sequences of items.
package item

import "encoding/json"

// Type tags the kind of conversation item.
type Type string

const (
	// TypeMessage is a plain role/content message.
	TypeMessage Type = "message"
	// TypeFunctionCall is a tool invocation requested by the model.
	TypeFunctionCall Type = "function_call"
	// TypeFunctionCallOutput is the result of a tool invocation.
	TypeFunctionCallOutput Type = "function_call_output"
	// TypeReasoning is an internal reasoning trace.
	TypeReasoning Type = "reasoning"
)

// Item is one unit of conversation content. It is a closed union over the
// four item kinds; only the fields for the tagged kind are meaningful.
type Item struct {
	Type Type `json:"type"`

	// Message fields. Content is a pointer so a missing body is
	// distinguishable from an empty one.
	Role    string  `json:"role,omitempty"`
	Content *string `json:"content,omitempty"`

	// Function call fields.
	Name      string `json:"name,omitempty"`
	CallID    string `json:"call_id,omitempty"`
	Arguments string `json:"arguments,omitempty"`

	// Function call output fields (CallID shared with calls).
	Output string `json:"output,omitempty"`

	// Reasoning fields.
	Summary string `json:"summary,omitempty"`
}

// NewMessage returns a message item with the given role and content.
func NewMessage(role, content string) Item {
	return Item{Type: TypeMessage, Role: role, Content: &content}
}

// NewFunctionCall returns a function call item.
func NewFunctionCall(callID, name, arguments string) Item {
	return Item{Type: TypeFunctionCall, CallID: callID, Name: name, Arguments: arguments}
}

// NewFunctionCallOutput returns a function call output item.
func NewFunctionCallOutput(callID, output string) Item {
	return Item{Type: TypeFunctionCallOutput, CallID: callID, Output: output}
}

// NewReasoning returns a reasoning trace item.
func NewReasoning(summary string) Item {
	return Item{Type: TypeReasoning, Summary: summary}
}

// Valid reports whether the item is structurally sound. A message without a
// content body and a function call without a name are invalid; everything
// else passes.
func (it *Item) Valid() bool {
	switch it.Type {
	case TypeMessage:
		return it.Content != nil
	case TypeFunctionCall:
		return it.Name != ""
	case TypeFunctionCallOutput, TypeReasoning:
		return true
	default:
		return false
	}
}

// Text returns the human-readable body of the item, empty when absent.
func (it *Item) Text() string {
	switch it.Type {
	case TypeMessage:
		if it.Content != nil {
			return *it.Content
		}
		return ""
	case TypeFunctionCall:
		return it.Arguments
	case TypeFunctionCallOutput:
		return it.Output
	case TypeReasoning:
		return it.Summary
	default:
		return ""
	}
}

// SerializedLen returns the length of the item's JSON encoding, used for
// coarse token estimation when no tokenizer is available.
func (it *Item) SerializedLen() int {
	b, err := json.Marshal(it)
	if err != nil {
		return len(it.Text())
	}
	return len(b)
}

// SerializeAll returns the combined JSON length of all items.
func SerializeAll(items []Item) int {
	total := 0
	for i := range items {
		total += items[i].SerializedLen()
	}
	return total
}
