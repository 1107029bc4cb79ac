package llm

import "context"

// Unavailable is the gateway used when no backend could be reached at
// startup. Every call fails fast.
type Unavailable struct {
	Reason string
}

// Name identifies the backend in logs and errors.
func (u Unavailable) Name() string {
	return "unavailable"
}

// Complete always returns an InferenceError wrapping ErrBackendUnavailable.
func (u Unavailable) Complete(context.Context, []Message, CompleteOptions) (string, error) {
	return "", &InferenceError{Backend: u.Name(), Err: ErrBackendUnavailable}
}
