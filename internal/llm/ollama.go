package llm

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/rotisserie/eris"
)

// DefaultOllamaHost is where a local Ollama server listens by default.
const DefaultOllamaHost = "http://localhost:11434"

// OllamaConfig configures the local Ollama backend.
type OllamaConfig struct {
	Settings
	Host    string
	Timeout time.Duration
}

// OllamaGateway runs completions on a local Ollama server through eino's
// Ollama chat model. JSON calls go to a second instance with format "json".
type OllamaGateway struct {
	settings Settings
	plain    generator
	json     generator
}

// NewOllama builds the eino chat models for cfg. No request is sent.
func NewOllama(ctx context.Context, cfg OllamaConfig) (*OllamaGateway, error) {
	host := strings.TrimRight(cfg.Host, "/")
	if host == "" {
		host = DefaultOllamaHost
	}
	settings := cfg.Settings.withDefaults()

	base := ollama.ChatModelConfig{
		BaseURL: host,
		Timeout: cfg.Timeout,
		Model:   settings.Model,
	}

	plain, err := ollama.NewChatModel(ctx, &base)
	if err != nil {
		return nil, eris.Wrap(err, "llm: create ollama chat model")
	}

	jsonCfg := base
	jsonCfg.Format = json.RawMessage(`"json"`)
	jsonModel, err := ollama.NewChatModel(ctx, &jsonCfg)
	if err != nil {
		return nil, eris.Wrap(err, "llm: create ollama json chat model")
	}

	return newOllamaGateway(settings, plain, jsonModel), nil
}

func newOllamaGateway(settings Settings, plain, jsonModel generator) *OllamaGateway {
	return &OllamaGateway{settings: settings.withDefaults(), plain: plain, json: jsonModel}
}

// Name identifies the backend in logs and errors.
func (g *OllamaGateway) Name() string {
	return "ollama:" + g.settings.Model
}

// Complete implements Gateway.
func (g *OllamaGateway) Complete(ctx context.Context, messages []Message, opts CompleteOptions) (string, error) {
	cm := g.plain
	if opts.ExpectJSON {
		cm = g.json
	}
	return generate(ctx, g.Name(), cm, g.settings, messages, opts)
}
