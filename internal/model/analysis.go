package model

import "time"

// TimestampLayout renders analysis timestamps as ISO-8601 UTC with a Z suffix.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// ContextSourceHomepage labels answers grounded in the homepage text.
const ContextSourceHomepage = "Homepage text content."

// ExtractedAnswer pairs a caller question with the model's answer, or with an
// inline error message when that question alone failed.
type ExtractedAnswer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// ConversationTurn is one prior exchange supplied by the caller. The service
// keeps no history of its own.
type ConversationTurn struct {
	UserQuery     string `json:"user_query"`
	AgentResponse string `json:"agent_response"`
}

// AnalysisResult is the /analyze response body.
type AnalysisResult struct {
	URL               string            `json:"url"`
	AnalysisTimestamp string            `json:"analysis_timestamp"`
	CompanyInfo       CompanyInfo       `json:"company_info"`
	ExtractedAnswers  []ExtractedAnswer `json:"extracted_answers"`
}

// ChatResult is the /chat response body.
type ChatResult struct {
	URL            string   `json:"url"`
	UserQuery      string   `json:"user_query"`
	AgentResponse  string   `json:"agent_response"`
	ContextSources []string `json:"context_sources"`
}

// FormatTimestamp renders t in TimestampLayout after converting to UTC.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
