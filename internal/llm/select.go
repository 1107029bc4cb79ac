package llm

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ollama/ollama/api"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/insights-api/internal/config"
	"github.com/sells-group/insights-api/pkg/anthropic"
)

// probeTimeout bounds the startup reachability check of a local server.
const probeTimeout = 5 * time.Second

// Select picks exactly one backend from cfg. A cloud key selects the cloud
// provider; otherwise the local server is probed and, if unreachable, an
// Unavailable gateway is returned so the service still starts.
func Select(ctx context.Context, cfg config.LLMConfig) (Gateway, error) {
	settings := Settings{
		Model:       cfg.Model(),
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second

	var gw Gateway
	switch {
	case cfg.UseCloud() && cfg.Provider == config.ProviderAnthropic:
		opts := []option.RequestOption{option.WithMaxRetries(0)}
		if timeout > 0 {
			opts = append(opts, option.WithRequestTimeout(timeout))
		}
		gw = NewAnthropic(anthropic.NewClient(cfg.CloudKey, opts...), settings)

	case cfg.UseCloud():
		oa, err := NewOpenAI(ctx, OpenAIConfig{
			Settings: settings,
			APIKey:   cfg.CloudKey,
			BaseURL:  cfg.CloudBaseURL,
			Timeout:  timeout,
		})
		if err != nil {
			return nil, eris.Wrap(err, "llm: select cloud backend")
		}
		gw = oa

	default:
		local, err := selectLocal(ctx, OllamaConfig{
			Settings: settings,
			Host:     cfg.LocalHost,
			Timeout:  timeout,
		})
		if err != nil {
			return nil, eris.Wrap(err, "llm: select local backend")
		}
		gw = local
	}

	if cfg.RequestsPerSecond > 0 {
		gw = NewPaced(gw, cfg.RequestsPerSecond, 1)
	}

	zap.L().Info("llm: backend selected",
		zap.String("backend", gw.Name()),
		zap.Float64("temperature", settings.Temperature),
		zap.Int("max_tokens", settings.withDefaults().MaxTokens),
		zap.Float64("requests_per_second", cfg.RequestsPerSecond),
	)
	return gw, nil
}

// selectLocal probes the Ollama server's model list. An unreachable server
// yields Unavailable; a missing model only warns.
func selectLocal(ctx context.Context, cfg OllamaConfig) (Gateway, error) {
	host := strings.TrimRight(cfg.Host, "/")
	if host == "" {
		host = DefaultOllamaHost
	}

	models, err := probeOllama(ctx, host)
	if err != nil {
		zap.L().Warn("llm: local inference server unreachable, requests will fail",
			zap.String("host", host),
			zap.Error(err),
		)
		return Unavailable{Reason: err.Error()}, nil
	}

	if !hasModel(models, cfg.Model) {
		zap.L().Warn("llm: local model not installed; pull it before sending requests",
			zap.String("host", host),
			zap.String("model", cfg.Model),
		)
	}

	cfg.Host = host
	return NewOllama(ctx, cfg)
}

func probeOllama(ctx context.Context, host string) (*api.ListResponse, error) {
	base, err := url.Parse(host)
	if err != nil {
		return nil, eris.Wrapf(err, "llm: parse ollama host %q", host)
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	models, err := api.NewClient(base, &http.Client{Timeout: probeTimeout}).List(probeCtx)
	if err != nil {
		return nil, eris.Wrap(err, "llm: list ollama models")
	}
	return models, nil
}

func hasModel(models *api.ListResponse, name string) bool {
	for _, m := range models.Models {
		if m.Name == name || m.Model == name {
			return true
		}
	}
	return false
}
