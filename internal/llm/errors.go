package llm

import (
	"errors"
	"fmt"
)

// ErrBackendUnavailable is returned by every call when no backend could be
// reached at startup.
var ErrBackendUnavailable = errors.New("llm: no inference backend available")

// InferenceError wraps any failure raised while talking to a backend.
type InferenceError struct {
	Backend string
	Err     error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference failed on %s: %v", e.Backend, e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}
