package llm

import (
	"context"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rotisserie/eris"
)

// DefaultGroqBaseURL is Groq's OpenAI-compatible endpoint.
const DefaultGroqBaseURL = "https://api.groq.com/openai/v1"

// generator is the slice of eino's ChatModel the gateway calls.
type generator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// OpenAIConfig configures an OpenAI-compatible backend such as Groq.
type OpenAIConfig struct {
	Settings
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// OpenAIGateway talks to any OpenAI-compatible chat completions endpoint.
// Two eino chat models are held: one with JSON object response format and
// one without.
type OpenAIGateway struct {
	settings Settings
	plain    generator
	json     generator
}

// NewOpenAI builds the eino chat models for cfg.
func NewOpenAI(ctx context.Context, cfg OpenAIConfig) (*OpenAIGateway, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGroqBaseURL
	}
	settings := cfg.Settings.withDefaults()

	base := openai.ChatModelConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   settings.Model,
		Timeout: cfg.Timeout,
	}

	plain, err := openai.NewChatModel(ctx, &base)
	if err != nil {
		return nil, eris.Wrap(err, "llm: create openai chat model")
	}

	jsonCfg := base
	jsonCfg.ResponseFormat = &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONObject,
	}
	jsonModel, err := openai.NewChatModel(ctx, &jsonCfg)
	if err != nil {
		return nil, eris.Wrap(err, "llm: create openai json chat model")
	}

	return newOpenAIGateway(settings, plain, jsonModel), nil
}

func newOpenAIGateway(settings Settings, plain, jsonModel generator) *OpenAIGateway {
	return &OpenAIGateway{settings: settings.withDefaults(), plain: plain, json: jsonModel}
}

// Name identifies the backend in logs and errors.
func (g *OpenAIGateway) Name() string {
	return "openai-compatible:" + g.settings.Model
}

// Complete implements Gateway.
func (g *OpenAIGateway) Complete(ctx context.Context, messages []Message, opts CompleteOptions) (string, error) {
	cm := g.plain
	if opts.ExpectJSON {
		cm = g.json
	}
	return generate(ctx, g.Name(), cm, g.settings, messages, opts)
}

// generate runs one eino chat model call with the gateway's sampling
// settings and maps failures to InferenceError.
func generate(ctx context.Context, backend string, cm generator, settings Settings, messages []Message, opts CompleteOptions) (string, error) {
	resp, err := cm.Generate(ctx, toSchemaMessages(messages),
		model.WithTemperature(float32(settings.Temperature)),
		model.WithMaxTokens(settings.maxTokens(opts)),
	)
	if err != nil {
		return "", &InferenceError{Backend: backend, Err: eris.Wrap(err, "llm: generate")}
	}
	if resp == nil {
		return "", &InferenceError{Backend: backend, Err: eris.New("llm: backend returned no message")}
	}
	return resp.Content, nil
}

func toSchemaMessages(msgs []Message) []*schema.Message {
	out := make([]*schema.Message, len(msgs))
	for i, m := range msgs {
		role := schema.User
		switch m.Role {
		case RoleSystem:
			role = schema.System
		case RoleAssistant:
			role = schema.Assistant
		}
		out[i] = &schema.Message{Role: role, Content: m.Content}
	}
	return out
}
