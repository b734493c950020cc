package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyConcatenatesMessages(t *testing.T) {
	s := &State{CharacterName: "Elara"}

	s.Apply(Delta{Messages: []Message{{Role: RoleUser, Text: "hello"}}})
	s.Apply(Delta{Messages: []Message{{Role: RoleAssistant, Text: "hi there"}}})
	s.Apply(Delta{Messages: []Message{{Role: RoleUser, Text: "how are you?"}}})

	assert.Len(t, s.Messages, 3)
	assert.Equal(t, "hello", s.Messages[0].Text)
	assert.Equal(t, "hi there", s.Messages[1].Text)
	assert.Equal(t, "how are you?", s.Messages[2].Text)
}

func TestApplyLastWriteWinsOnScalarFields(t *testing.T) {
	s := &State{CharacterName: "Elara", Context: "old context", Reflection: "old reflection"}

	s.Apply(Delta{Context: StrPtr("new context")})
	assert.Equal(t, "new context", s.Context)
	assert.Equal(t, "old reflection", s.Reflection)

	// A nil pointer means "not touched", not "clear".
	s.Apply(Delta{Reflection: StrPtr("new reflection")})
	assert.Equal(t, "new context", s.Context)
	assert.Equal(t, "new reflection", s.Reflection)

	// An explicit empty string clears the field.
	s.Apply(Delta{Context: StrPtr("")})
	assert.Equal(t, "", s.Context)
}

func TestApplyEmptyDeltaIsNoop(t *testing.T) {
	s := &State{
		CharacterName: "Elara",
		Messages:      []Message{{Role: RoleUser, Text: "hello"}},
		Context:       "ctx",
		Reflection:    "refl",
		Response:      "resp",
	}

	s.Apply(Delta{})

	assert.Len(t, s.Messages, 1)
	assert.Equal(t, "ctx", s.Context)
	assert.Equal(t, "refl", s.Reflection)
	assert.Equal(t, "resp", s.Response)
}

func TestCloneIsIndependent(t *testing.T) {
	orig := &State{
		CharacterName: "Elara",
		Messages:      []Message{{Role: RoleUser, Text: "hello"}},
		Context:       "ctx",
	}

	clone := orig.Clone()
	clone.Apply(Delta{
		Messages: []Message{{Role: RoleAssistant, Text: "hi"}},
		Context:  StrPtr("changed"),
	})

	assert.Len(t, orig.Messages, 1)
	assert.Equal(t, "ctx", orig.Context)
	assert.Len(t, clone.Messages, 2)
	assert.Equal(t, "changed", clone.Context)
}

func TestLastUserText(t *testing.T) {
	s := &State{}
	assert.Equal(t, "", s.LastUserText())

	s.Apply(Delta{Messages: []Message{
		{Role: RoleUser, Text: "first"},
		{Role: RoleAssistant, Text: "reply"},
		{Role: RoleUser, Text: "second"},
		{Role: RoleAssistant, Text: "another reply"},
	}})
	assert.Equal(t, "second", s.LastUserText())
}
