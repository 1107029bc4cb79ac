package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sells-group/insights-api/internal/agent"
	"github.com/sells-group/insights-api/internal/insights"
	"github.com/sells-group/insights-api/internal/llm"
	"github.com/sells-group/insights-api/internal/model"
	"github.com/sells-group/insights-api/internal/scrape"
)

type detailResponse struct {
	Detail string `json:"detail"`
}

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	var (
		fetchErr *scrape.FetchError
		infErr   *llm.InferenceError
		valErr   *model.ValidationError
		convErr  *agent.ConversationError
	)
	switch {
	case errors.Is(err, insights.ErrEmptyContent):
		return http.StatusNotFound
	case errors.As(err, &fetchErr),
		errors.As(err, &infErr),
		errors.Is(err, llm.ErrBackendUnavailable),
		errors.Is(err, agent.ErrMalformedOutput),
		errors.As(err, &valErr),
		errors.As(err, &convErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, detailResponse{Detail: detail})
}
