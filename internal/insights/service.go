// Package insights wires fetching and the orchestrators into the two
// request flows served by the API and the CLI.
package insights

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/insights-api/internal/agent"
	"github.com/sells-group/insights-api/internal/model"
	"github.com/sells-group/insights-api/internal/scrape"
)

// ErrEmptyContent reports a page that yielded no meaningful text.
var ErrEmptyContent = errors.New("could not find any meaningful text content on the homepage")

// Analyzer is the analysis step used by Service.
type Analyzer interface {
	Analyze(ctx context.Context, content string, questions []string) (*agent.Analysis, error)
}

// Responder is the conversational step used by Service.
type Responder interface {
	Reply(ctx context.Context, content, query string, history []model.ConversationTurn) (string, error)
}

// Service runs fetch then inference for each request. It holds no
// per-request state.
type Service struct {
	scraper   scrape.Scraper
	analyzer  Analyzer
	responder Responder
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for analysis timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a Service.
func NewService(scraper scrape.Scraper, analyzer Analyzer, responder Responder, opts ...Option) *Service {
	s := &Service{
		scraper:   scraper,
		analyzer:  analyzer,
		responder: responder,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Analyze fetches url, extracts company info and answers questions.
func (s *Service) Analyze(ctx context.Context, url string, questions []string) (*model.AnalysisResult, error) {
	content, err := s.fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	analysis, err := s.analyzer.Analyze(ctx, content, questions)
	if err != nil {
		return nil, err
	}

	zap.L().Info("insights: analysis complete",
		zap.String("url", url),
		zap.Int("questions", len(questions)),
		zap.Duration("inference", time.Since(start)),
	)

	return &model.AnalysisResult{
		URL:               url,
		AnalysisTimestamp: model.FormatTimestamp(s.now()),
		CompanyInfo:       analysis.CompanyInfo,
		ExtractedAnswers:  analysis.Answers,
	}, nil
}

// Chat fetches url and answers query in the context of history.
func (s *Service) Chat(ctx context.Context, url, query string, history []model.ConversationTurn) (*model.ChatResult, error) {
	content, err := s.fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	reply, err := s.responder.Reply(ctx, content, query, history)
	if err != nil {
		return nil, err
	}

	zap.L().Info("insights: chat reply",
		zap.String("url", url),
		zap.Int("history_turns", len(history)),
	)

	return &model.ChatResult{
		URL:            url,
		UserQuery:      query,
		AgentResponse:  reply,
		ContextSources: []string{model.ContextSourceHomepage},
	}, nil
}

func (s *Service) fetch(ctx context.Context, url string) (string, error) {
	res, err := s.scraper.Scrape(ctx, url)
	if err != nil {
		zap.L().Warn("insights: fetch failed", zap.String("url", url), zap.Error(err))
		return "", err
	}
	if strings.TrimSpace(res.Text) == "" {
		return "", ErrEmptyContent
	}
	return res.Text, nil
}
