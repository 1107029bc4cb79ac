package llm

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/insights-api/pkg/anthropic"
)

// AnthropicGateway sends completions through the Messages API. It has no
// JSON response mode, so ExpectJSON relies on the prompt alone.
type AnthropicGateway struct {
	client   anthropic.Client
	settings Settings
}

// NewAnthropic wraps an anthropic client.
func NewAnthropic(client anthropic.Client, settings Settings) *AnthropicGateway {
	return &AnthropicGateway{client: client, settings: settings.withDefaults()}
}

// Name identifies the backend in logs and errors.
func (g *AnthropicGateway) Name() string {
	return "anthropic:" + g.settings.Model
}

// Complete implements Gateway. System messages are lifted, in order, into
// the request's system blocks.
func (g *AnthropicGateway) Complete(ctx context.Context, messages []Message, opts CompleteOptions) (string, error) {
	temperature := g.settings.Temperature
	req := anthropic.MessageRequest{
		Model:       g.settings.Model,
		MaxTokens:   int64(g.settings.maxTokens(opts)),
		Temperature: &temperature,
	}
	for _, m := range messages {
		if m.Role == RoleSystem {
			req.System = append(req.System, anthropic.SystemBlock{Text: m.Content})
			continue
		}
		req.Messages = append(req.Messages, anthropic.Message{Role: m.Role, Content: m.Content})
	}
	if len(req.Messages) == 0 {
		return "", &InferenceError{Backend: g.Name(), Err: eris.New("llm: anthropic request has no user message")}
	}

	resp, err := g.client.CreateMessage(ctx, req)
	if err != nil {
		return "", &InferenceError{Backend: g.Name(), Err: err}
	}

	phase := "text"
	if opts.ExpectJSON {
		phase = "json"
	}
	resp.Usage.LogCost(g.settings.Model, phase)

	return resp.Text(), nil
}
