package driven

// PromptStore provides the prompt templates used for answer generation.
type PromptStore interface {
	// Load returns the named prompt. Unknown names are an error; known
	// names fall back to their built-in text when no override exists.
	Load(name string) (string, error)
}

// Well-known prompt names.
const (
	// PromptAnswerSystem is the system prompt placed ahead of retrieved
	// context when generating an answer. No format placeholders.
	PromptAnswerSystem = "answer_system"
)
