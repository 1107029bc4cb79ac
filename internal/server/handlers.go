package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/insights-api/internal/model"
)

// maxRequestBody caps request bodies; conversation histories are the only
// sizeable input.
const maxRequestBody = 1 << 20

type analyzeRequest struct {
	URL       string   `json:"url"`
	Questions []string `json:"questions"`
}

type chatRequest struct {
	URL                 string                   `json:"url"`
	Query               *string                  `json:"query"`
	ConversationHistory []model.ConversationTurn `json:"conversation_history"`
}

type healthResponse struct {
	Status    string  `json:"status"`
	Timestamp float64 `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	now := s.now()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: float64(now.UnixNano()) / 1e9,
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := validateURL(req.URL); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	result, err := s.svc.Analyze(r.Context(), req.URL, req.Questions)
	if err != nil {
		s.writeError(w, r, err, "Could not find any meaningful text content on the homepage.")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := validateURL(req.URL); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if req.Query == nil {
		writeDetail(w, http.StatusUnprocessableEntity, "query: field required")
		return
	}

	result, err := s.svc.Chat(r.Context(), req.URL, *req.Query, req.ConversationHistory)
	if err != nil {
		s.writeError(w, r, err, "Could not find any meaningful text content on the homepage to use as context.")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, emptyDetail string) {
	status := statusFor(err)
	detail := err.Error()
	switch status {
	case http.StatusNotFound:
		detail = emptyDetail
	case http.StatusInternalServerError:
		detail = fmt.Sprintf("An internal server error occurred: %v", err)
	}

	log := zap.L().Warn
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		log = zap.L().Error
	}
	log("request failed",
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.String("request_id", RequestIDFrom(r.Context())),
		zap.Error(err),
	)
	writeDetail(w, status, detail)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.Is(err, io.EOF):
			return errors.New("body: field required")
		case errors.As(err, &maxErr):
			return fmt.Errorf("body: exceeds %d bytes", maxErr.Limit)
		case errors.As(err, &typeErr):
			return fmt.Errorf("%s: expected %s", typeErr.Field, typeErr.Type)
		default:
			return fmt.Errorf("body: invalid JSON: %v", err)
		}
	}
	return nil
}

// validateURL accepts absolute http(s) URLs with a host.
func validateURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errors.New("url: field required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("url: invalid URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("url: URL scheme should be 'http' or 'https'")
	}
	if u.Host == "" || u.Hostname() == "" {
		return errors.New("url: URL host required")
	}
	return nil
}
