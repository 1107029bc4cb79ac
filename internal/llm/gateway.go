// Package llm hides the inference backends behind a single Gateway so the
// orchestrators never know which provider answered.
package llm

import "context"

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Default sampling settings.
const (
	DefaultTemperature = 0.1
	DefaultMaxTokens   = 2048
)

// Message is one entry of a chat-style prompt.
type Message struct {
	Role    string
	Content string
}

// CompleteOptions tunes a single completion.
type CompleteOptions struct {
	// ExpectJSON asks the backend for a JSON object response when it has a
	// native mode for it.
	ExpectJSON bool
	// MaxTokens caps the output. Zero uses the backend default.
	MaxTokens int
}

// Gateway performs one chat completion against the selected backend.
type Gateway interface {
	Complete(ctx context.Context, messages []Message, opts CompleteOptions) (string, error)
	Name() string
}

// Settings holds sampling defaults shared by every backend.
type Settings struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

func (s Settings) maxTokens(opts CompleteOptions) int {
	if opts.MaxTokens > 0 {
		return opts.MaxTokens
	}
	if s.MaxTokens > 0 {
		return s.MaxTokens
	}
	return DefaultMaxTokens
}

func (s Settings) withDefaults() Settings {
	if s.MaxTokens <= 0 {
		s.MaxTokens = DefaultMaxTokens
	}
	return s
}
