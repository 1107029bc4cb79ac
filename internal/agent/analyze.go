// Package agent turns homepage text into structured insights and
// conversational answers using an llm.Gateway.
package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/insights-api/internal/llm"
	"github.com/sells-group/insights-api/internal/model"
)

// DefaultQuestionConcurrency bounds concurrent question calls.
const DefaultQuestionConcurrency = 4

// analysisMaxTokens caps the company info reply.
const analysisMaxTokens = 2048

// ErrMalformedOutput reports a company info reply that is not valid JSON.
var ErrMalformedOutput = errors.New("LLM returned malformed JSON for company info")

// Analysis is the outcome of a full analysis: company info plus one answer
// per question, in question order.
type Analysis struct {
	CompanyInfo model.CompanyInfo
	Answers     []model.ExtractedAnswer
}

// Analyzer runs the two-step analysis against a gateway.
type Analyzer struct {
	gateway     llm.Gateway
	prompts     Prompts
	concurrency int
}

// NewAnalyzer creates an Analyzer. A concurrency below 1 uses
// DefaultQuestionConcurrency.
func NewAnalyzer(gw llm.Gateway, prompts Prompts, concurrency int) *Analyzer {
	if concurrency < 1 {
		concurrency = DefaultQuestionConcurrency
	}
	return &Analyzer{gateway: gw, prompts: prompts, concurrency: concurrency}
}

// Analyze extracts company info from content, then answers each question.
// Any failure of the extraction step aborts before questions are asked.
// A failing question yields an inline error answer instead.
func (a *Analyzer) Analyze(ctx context.Context, content string, questions []string) (*Analysis, error) {
	info, err := a.companyInfo(ctx, content)
	if err != nil {
		return nil, err
	}

	return &Analysis{
		CompanyInfo: info,
		Answers:     a.answerQuestions(ctx, content, questions),
	}, nil
}

func (a *Analyzer) companyInfo(ctx context.Context, content string) (model.CompanyInfo, error) {
	raw, err := a.gateway.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: a.prompts.AnalysisSystem},
		{Role: llm.RoleUser, Content: analysisUserMessage(content)},
	}, llm.CompleteOptions{ExpectJSON: true, MaxTokens: analysisMaxTokens})
	if err != nil {
		return model.CompanyInfo{}, eris.Wrap(err, "agent: company info analysis")
	}

	info, err := model.ParseCompanyInfo([]byte(raw))
	if errors.Is(err, model.ErrInvalidJSON) {
		zap.L().Warn("agent: malformed company info reply",
			zap.String("backend", a.gateway.Name()),
			zap.Int("reply_len", len(raw)),
			zap.Error(err),
		)
		return model.CompanyInfo{}, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if err != nil {
		return model.CompanyInfo{}, err
	}
	return info, nil
}

func (a *Analyzer) answerQuestions(ctx context.Context, content string, questions []string) []model.ExtractedAnswer {
	answers := make([]model.ExtractedAnswer, len(questions))
	if len(questions) == 0 {
		return answers
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for i, q := range questions {
		g.Go(func() error {
			answers[i] = model.ExtractedAnswer{Question: q, Answer: a.answer(gCtx, content, q)}
			return nil
		})
	}
	_ = g.Wait()

	return answers
}

func (a *Analyzer) answer(ctx context.Context, content, question string) string {
	reply, err := a.gateway.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: a.prompts.QASystem},
		{Role: llm.RoleUser, Content: questionUserMessage(content, question)},
	}, llm.CompleteOptions{})
	if err != nil {
		zap.L().Warn("agent: question failed",
			zap.String("question", question),
			zap.Error(err),
		)
		return fmt.Sprintf("Error answering question: %v", err)
	}
	return reply
}
