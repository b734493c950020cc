package agent

// Message roles as they appear in conversation history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single entry in the conversation history.
type Message struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// State is the value threaded through the pipeline for one turn.
// CharacterName is fixed for the lifetime of a thread. Messages is the
// conversation history in conversation order; it is never reordered or
// deduplicated. The remaining fields are rewritten on every turn by their
// owning node.
type State struct {
	CharacterName string    `json:"character_name"`
	Messages      []Message `json:"messages"`
	Context       string    `json:"context"`
	Reflection    string    `json:"reflection"`
	Response      string    `json:"response"`
}

// Delta is a partial state update produced by a single node. Pointer fields
// distinguish "not touched" from "set to empty".
type Delta struct {
	Messages   []Message `json:"messages,omitempty"`
	Context    *string   `json:"context,omitempty"`
	Reflection *string   `json:"reflection,omitempty"`
	Response   *string   `json:"response,omitempty"`
}

// Field names of State that participate in merging.
type Field string

const (
	FieldMessages   Field = "messages"
	FieldContext    Field = "context"
	FieldReflection Field = "reflection"
	FieldResponse   Field = "response"
)

// mergePolicy declares the reducer for every mergeable field. Messages is the
// only accumulating field (concat); everything else is last-write-wins. Kept
// as an explicit table so the merge semantics are in one place instead of
// scattered across nodes.
var mergePolicy = map[Field]func(s *State, d Delta){
	FieldMessages: func(s *State, d Delta) {
		s.Messages = append(s.Messages, d.Messages...)
	},
	FieldContext: func(s *State, d Delta) {
		if d.Context != nil {
			s.Context = *d.Context
		}
	},
	FieldReflection: func(s *State, d Delta) {
		if d.Reflection != nil {
			s.Reflection = *d.Reflection
		}
	},
	FieldResponse: func(s *State, d Delta) {
		if d.Response != nil {
			s.Response = *d.Response
		}
	},
}

// mergeOrder fixes the application order so merges are deterministic.
var mergeOrder = []Field{FieldMessages, FieldContext, FieldReflection, FieldResponse}

// Apply merges a node's partial update into the state using the declared
// per-field reducers.
func (s *State) Apply(d Delta) {
	for _, f := range mergeOrder {
		mergePolicy[f](s, d)
	}
}

// Clone returns a deep copy so callers can hold a snapshot without racing
// the pipeline.
func (s *State) Clone() *State {
	c := *s
	c.Messages = make([]Message, len(s.Messages))
	copy(c.Messages, s.Messages)
	return &c
}

// LastUserText returns the text of the most recent user message, or "".
func (s *State) LastUserText() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleUser {
			return s.Messages[i].Text
		}
	}
	return ""
}

// StrPtr is a small helper for building Deltas.
func StrPtr(v string) *string { return &v }
