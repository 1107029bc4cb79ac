package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/insights-api/internal/agent"
	"github.com/sells-group/insights-api/internal/insights"
	"github.com/sells-group/insights-api/internal/llm"
	"github.com/sells-group/insights-api/internal/model"
	"github.com/sells-group/insights-api/internal/ratelimit"
	"github.com/sells-group/insights-api/internal/scrape"
)

const testSecret = "s3cret"

type MockService struct {
	mock.Mock
}

func (m *MockService) Analyze(ctx context.Context, url string, questions []string) (*model.AnalysisResult, error) {
	args := m.Called(ctx, url, questions)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AnalysisResult), args.Error(1)
}

func (m *MockService) Chat(ctx context.Context, url, query string, history []model.ConversationTurn) (*model.ChatResult, error) {
	args := m.Called(ctx, url, query, history)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ChatResult), args.Error(1)
}

func newTestServer(svc Service, limiter *ratelimit.Limiter) http.Handler {
	return New(svc, limiter, Options{
		APISecret:        testSecret,
		AnalyzePerMinute: 5,
		ChatPerMinute:    15,
	}).Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func authed() map[string]string {
	return map[string]string{"Authorization": "Bearer " + testSecret}
}

func detailOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body detailResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Detail
}

func sampleAnalysis(url string) *model.AnalysisResult {
	return &model.AnalysisResult{
		URL:               url,
		AnalysisTimestamp: "2024-03-09T19:05:07.123456Z",
		CompanyInfo:       model.DefaultCompanyInfo(),
		ExtractedAnswers:  []model.ExtractedAnswer{},
	}
}

func TestHealth(t *testing.T) {
	s := New(new(MockService), nil, Options{APISecret: testSecret})
	s.now = func() time.Time { return time.Unix(1700000000, 500000000) }

	rec := do(t, s.Handler(), http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.InDelta(t, 1700000000.5, body.Timestamp, 0.001)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestAuth_RejectsBeforeAnyWork(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		detail  string
	}{
		{"missing header", nil, "Invalid or missing Authorization header"},
		{"wrong scheme", map[string]string{"Authorization": "Token " + testSecret}, "Invalid or missing Authorization header"},
		{"bare token", map[string]string{"Authorization": testSecret}, "Invalid or missing Authorization header"},
		{"wrong key", map[string]string{"Authorization": "Bearer nope"}, "Invalid API Key"},
		{"empty key", map[string]string{"Authorization": "Bearer "}, "Invalid API Key"},
		{"double space before key", map[string]string{"Authorization": "Bearer  " + testSecret}, "Invalid API Key"},
	}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			h := newTestServer(svc, ratelimit.New(client))

			for _, path := range []string{"/analyze", "/chat"} {
				rec := do(t, h, http.MethodPost, path, `{"url":"https://acme.com","query":"hi"}`, tt.headers)
				assert.Equal(t, http.StatusUnauthorized, rec.Code)
				assert.Equal(t, tt.detail, detailOf(t, rec))
			}
			svc.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything, mock.Anything)
			svc.AssertNotCalled(t, "Chat", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
	assert.Empty(t, mr.Keys(), "unauthenticated requests consume no quota")
}

func TestAuth_IgnoresFieldsAfterSecret(t *testing.T) {
	svc := new(MockService)
	svc.On("Analyze", mock.Anything, "https://acme.com", []string(nil)).Return(sampleAnalysis("https://acme.com"), nil)

	headers := map[string]string{"Authorization": "Bearer " + testSecret + " trailing"}
	rec := do(t, newTestServer(svc, nil), http.MethodPost, "/analyze", `{"url":"https://acme.com"}`, headers)
	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestAnalyze_Success(t *testing.T) {
	svc := new(MockService)
	svc.On("Analyze", mock.Anything, "https://acme.com", []string{"Who?"}).Return(sampleAnalysis("https://acme.com"), nil)

	rec := do(t, newTestServer(svc, nil), http.MethodPost, "/analyze", `{"url":"https://acme.com","questions":["Who?"]}`, authed())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "https://acme.com", body["url"])
	assert.Contains(t, body, "analysis_timestamp")
	assert.Contains(t, body, "company_info")
	assert.Equal(t, []any{}, body["extracted_answers"])
}

func TestChat_Success(t *testing.T) {
	history := []model.ConversationTurn{{UserQuery: "What?", AgentResponse: "Widgets."}, {UserQuery: "", AgentResponse: "partial"}}
	svc := new(MockService)
	svc.On("Chat", mock.Anything, "https://acme.com/about", "Where?", history).Return(&model.ChatResult{
		URL:            "https://acme.com/about",
		UserQuery:      "Where?",
		AgentResponse:  "Austin.",
		ContextSources: []string{model.ContextSourceHomepage},
	}, nil)

	body := `{"url":"https://acme.com/about","query":"Where?","conversation_history":[{"user_query":"What?","agent_response":"Widgets."},{"agent_response":"partial"}]}`
	rec := do(t, newTestServer(svc, nil), http.MethodPost, "/chat", body, authed())
	require.Equal(t, http.StatusOK, rec.Code)

	var got model.ChatResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Austin.", got.AgentResponse)
	assert.Equal(t, []string{"Homepage text content."}, got.ContextSources)
}

func TestValidation_Returns422(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
	}{
		{"empty body", "/analyze", ``},
		{"not json", "/analyze", `url=https://acme.com`},
		{"missing url", "/analyze", `{"questions":["a"]}`},
		{"relative url", "/analyze", `{"url":"acme.com"}`},
		{"ftp url", "/analyze", `{"url":"ftp://acme.com"}`},
		{"questions not list", "/analyze", `{"url":"https://acme.com","questions":"a"}`},
		{"missing query", "/chat", `{"url":"https://acme.com"}`},
		{"history wrong type", "/chat", `{"url":"https://acme.com","query":"q","conversation_history":[{"user_query":1}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			rec := do(t, newTestServer(svc, nil), http.MethodPost, tt.path, tt.body, authed())
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.NotEmpty(t, detailOf(t, rec))
			assert.Empty(t, svc.Calls)
		})
	}
}

func TestErrors_MappedAtBoundary(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		detail string
	}{
		{"empty content", insights.ErrEmptyContent, http.StatusNotFound, "Could not find any meaningful text content on the homepage."},
		{"fetch", &scrape.FetchError{URL: "https://acme.com", StatusCode: 503}, http.StatusBadGateway, "error fetching URL https://acme.com: status 503"},
		{"inference", &llm.InferenceError{Backend: "ollama:llama3:8b", Err: errors.New("boom")}, http.StatusBadGateway, "inference failed on ollama:llama3:8b: boom"},
		{"malformed", fmt.Errorf("%w: bad", agent.ErrMalformedOutput), http.StatusBadGateway, "LLM returned malformed JSON for company info: bad"},
		{"validation", &model.ValidationError{Field: "contact_info", Reason: "expected an object"}, http.StatusBadGateway, "company info: contact_info: expected an object"},
		{"other", errors.New("kaboom"), http.StatusInternalServerError, "An internal server error occurred: kaboom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			svc.On("Analyze", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err)

			rec := do(t, newTestServer(svc, nil), http.MethodPost, "/analyze", `{"url":"https://acme.com"}`, authed())
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.detail, detailOf(t, rec))
		})
	}
}

func TestChat_EmptyContentDetail(t *testing.T) {
	svc := new(MockService)
	svc.On("Chat", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, insights.ErrEmptyContent)

	rec := do(t, newTestServer(svc, nil), http.MethodPost, "/chat", `{"url":"https://acme.com","query":"q"}`, authed())
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Could not find any meaningful text content on the homepage to use as context.", detailOf(t, rec))
}

func TestStatusFor_ConversationAndUnavailable(t *testing.T) {
	assert.Equal(t, http.StatusBadGateway, statusFor(&agent.ConversationError{Err: errors.New("x")}))
	assert.Equal(t, http.StatusBadGateway, statusFor(&llm.InferenceError{Backend: "unavailable", Err: llm.ErrBackendUnavailable}))
	assert.Equal(t, http.StatusInternalServerError, statusFor(context.Canceled))
}

func TestRateLimit_SixthAnalyzeRejected(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	svc := new(MockService)
	svc.On("Analyze", mock.Anything, mock.Anything, mock.Anything).Return(sampleAnalysis("https://acme.com"), nil)
	h := newTestServer(svc, ratelimit.New(client))

	for i := 1; i <= 5; i++ {
		rec := do(t, h, http.MethodPost, "/analyze", `{"url":"https://acme.com"}`, authed())
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
	}

	rec := do(t, h, http.MethodPost, "/analyze", `{"url":"https://acme.com"}`, authed())
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Too Many Requests", detailOf(t, rec))
	retry, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, retry, 1)
	assert.LessOrEqual(t, retry, 60)
	svc.AssertNumberOfCalls(t, "Analyze", 5)

	// Chat has its own budget.
	svc.On("Chat", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(&model.ChatResult{}, nil)
	rec = do(t, h, http.MethodPost, "/chat", `{"url":"https://acme.com","query":"q"}`, authed())
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit_StoreDownFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	svc := new(MockService)
	svc.On("Analyze", mock.Anything, mock.Anything, mock.Anything).Return(sampleAnalysis("https://acme.com"), nil)

	rec := do(t, newTestServer(svc, ratelimit.New(client)), http.MethodPost, "/analyze", `{"url":"https://acme.com"}`, authed())
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestID_PropagatesCallerValue(t *testing.T) {
	rec := do(t, newTestServer(new(MockService), nil), http.MethodGet, "/", "", map[string]string{"X-Request-ID": "abc-123"})
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestCORS_Preflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/analyze", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
	rec := httptest.NewRecorder()

	newTestServer(new(MockService), nil).ServeHTTP(rec, req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestUnknownRoute(t *testing.T) {
	rec := do(t, newTestServer(new(MockService), nil), http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found", detailOf(t, rec))
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, 1, retryAfterSeconds(0))
	assert.Equal(t, 1, retryAfterSeconds(200*time.Millisecond))
	assert.Equal(t, 43, retryAfterSeconds(42100*time.Millisecond))
	assert.Equal(t, 60, retryAfterSeconds(time.Minute))
}
