package constant

const (
	ThreadMessageRoleUser      = "user"
	ThreadMessageRoleAssistant = "assistant"

	// ThreadTitleMaxLen bounds the auto-generated thread title taken from
	// the first user message.
	ThreadTitleMaxLen = 48
)
