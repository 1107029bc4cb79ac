package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/insights-api/internal/agent"
	"github.com/sells-group/insights-api/internal/config"
	"github.com/sells-group/insights-api/internal/insights"
	"github.com/sells-group/insights-api/internal/llm"
	"github.com/sells-group/insights-api/internal/ratelimit"
	"github.com/sells-group/insights-api/internal/scrape"
)

// appEnv holds everything the serve, analyze and chat commands share.
type appEnv struct {
	Gateway llm.Gateway
	Service *insights.Service
	Limiter *ratelimit.Limiter // nil outside serve
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Limiter != nil {
		if err := e.Limiter.Close(); err != nil {
			zap.L().Warn("close rate limiter", zap.Error(err))
		}
	}
}

// initApp validates cfg for mode, selects the inference backend and builds
// the service. The rate limiter is only connected for "serve". Callers
// should defer env.Close().
func initApp(ctx context.Context, c *config.Config, mode string) (*appEnv, error) {
	if err := c.Validate(mode); err != nil {
		return nil, err
	}

	prompts, err := agent.LoadPrompts(c.Analysis.PromptsFile)
	if err != nil {
		return nil, eris.Wrap(err, "load prompts")
	}

	gw, err := llm.Select(ctx, c.LLM)
	if err != nil {
		return nil, err
	}

	scraper := scrape.NewHomepageScraper(scrape.Options{
		UserAgent:    c.Fetch.UserAgent,
		Timeout:      time.Duration(c.Fetch.TimeoutSecs) * time.Second,
		MaxChars:     c.Fetch.MaxChars,
		MaxBodyBytes: c.Fetch.MaxBodyBytes,
	})

	env := &appEnv{
		Gateway: gw,
		Service: insights.NewService(
			scraper,
			agent.NewAnalyzer(gw, prompts, c.Analysis.QuestionConcurrency),
			agent.NewConversation(gw, prompts),
		),
	}

	if mode == "serve" {
		env.Limiter = ratelimit.NewFromURL(ctx, c.Redis.URL)
	}

	return env, nil
}
