package agent

import (
	"fmt"
	"strings"

	"roleplay-agent-be/pkg/llm"
)

// promptBuilder assembles provider-agnostic message sequences for the
// reflect and generate calls. The persona instruction and retrieved context
// ride in the system message; the conversation history is replayed as-is.
type promptBuilder struct {
	state *State
}

func newPromptBuilder(state *State) *promptBuilder {
	return &promptBuilder{state: state}
}

func (b *promptBuilder) writePersona(sb *strings.Builder) {
	sb.WriteString(fmt.Sprintf("You are %s, a role-play character in an ongoing conversation.\n", b.state.CharacterName))
	sb.WriteString("Stay in character at all times. Speak with the voice, knowledge and mannerisms of ")
	sb.WriteString(b.state.CharacterName)
	sb.WriteString(".\n")
}

func (b *promptBuilder) writeContext(sb *strings.Builder) {
	if b.state.Context == "" {
		return
	}
	sb.WriteString("\n<background_knowledge>\n")
	sb.WriteString(b.state.Context)
	sb.WriteString("\n</background_knowledge>\n")
	sb.WriteString("Use the background knowledge above when it is relevant; never mention that it was provided to you.\n")
}

func (b *promptBuilder) history() []llm.Message {
	turns := make([]llm.Message, 0, len(b.state.Messages))
	for _, msg := range b.state.Messages {
		turns = append(turns, llm.Message{Role: msg.Role, Content: msg.Text})
	}
	return turns
}

// ReflectTurns builds the deliberation prompt: persona + context + full
// history, with a final instruction asking for first-person introspection.
func (b *promptBuilder) ReflectTurns() []llm.Message {
	var system strings.Builder
	b.writePersona(&system)
	b.writeContext(&system)
	system.WriteString("\n<task>\n")
	system.WriteString("Before replying, think through the latest user message in first person, as ")
	system.WriteString(b.state.CharacterName)
	system.WriteString(": what do I know, how do I feel about this, what should I say?\n")
	system.WriteString("Write ONLY this inner deliberation. It is private and will never be shown to the user.\n")
	system.WriteString("</task>")

	turns := []llm.Message{{Role: "system", Content: system.String()}}
	return append(turns, b.history()...)
}

// GenerateTurns builds the final-reply prompt: persona + context +
// reflection + full history. The reflection steers the reply but must not
// leak into it verbatim.
func (b *promptBuilder) GenerateTurns() []llm.Message {
	var system strings.Builder
	b.writePersona(&system)
	b.writeContext(&system)
	if b.state.Reflection != "" {
		system.WriteString("\n<inner_thoughts>\n")
		system.WriteString(b.state.Reflection)
		system.WriteString("\n</inner_thoughts>\n")
		system.WriteString("The inner thoughts above are your private deliberation. Let them guide your reply, but never quote or repeat them verbatim.\n")
	}
	system.WriteString("\nNow reply to the latest user message, in character.")

	turns := []llm.Message{{Role: "system", Content: system.String()}}
	return append(turns, b.history()...)
}
