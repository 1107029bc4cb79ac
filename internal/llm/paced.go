package llm

import (
	"context"

	"golang.org/x/time/rate"
)

// Paced spaces outbound calls to stay under a provider's request quota.
type Paced struct {
	next    Gateway
	limiter *rate.Limiter
}

// NewPaced wraps next with a token bucket allowing rps requests per second.
// Burst is at least 1.
func NewPaced(next Gateway, rps float64, burst int) *Paced {
	if burst < 1 {
		burst = 1
	}
	return &Paced{next: next, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Name reports the wrapped backend.
func (p *Paced) Name() string {
	return p.next.Name()
}

// Complete waits for a token, then delegates. A cancelled ctx while waiting
// is reported as an inference failure.
func (p *Paced) Complete(ctx context.Context, messages []Message, opts CompleteOptions) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", &InferenceError{Backend: p.next.Name(), Err: err}
	}
	return p.next.Complete(ctx, messages, opts)
}
