package agent

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

const analysisSystemPrompt = `You are an expert business analyst AI. Your task is to analyze the text content from a company's homepage and extract key business information.
Respond ONLY with a single, valid JSON object. Do not include any text, explanations, or markdown formatting before or after the JSON.
The JSON object must strictly follow this structure:
{
  "industry": "A specific industry category (e.g., 'Financial Technology', 'E-commerce', 'Healthcare SaaS')",
  "company_size": "An estimated size (e.g., 'Startup (1-10 employees)', 'Medium (50-200 employees)', 'Large Enterprise (>1000 employees)') or 'N/A' if not found.",
  "location": "The primary headquarters or location (e.g., 'San Francisco, CA, USA') or 'N/A' if not found.",
  "core_products_services": ["A list of the main products or services offered."],
  "unique_selling_proposition": "A concise, one-sentence summary of what makes the company unique.",
  "target_audience": "A description of the primary customer demographic (e.g., 'Small to Medium Businesses (SMBs)', 'Individual Consumers', 'Large Enterprises').",
  "contact_info": {
    "email": "The primary contact email or 'N/A'.",
    "phone": "The primary phone number or 'N/A'.",
    "social_media": { "linkedin": "URL", "twitter": "URL", ... }
  }
}
If information for a field is not available in the provided text, use "N/A" for strings, an empty list for arrays, or an empty object for the social_media map.`

const qaSystemPrompt = "You are a helpful question-answering assistant. Use the provided context to answer the user's question concisely and accurately. If the answer is not in the context, state that the information is not available on the homepage."

const chatSystemPrompt = "You are a conversational AI agent. You are having a conversation about a specific website. Use the provided website content and conversation history to answer the user's latest query. Be helpful, conversational, and base your answers on the provided text. If you don't know the answer, say so."

// Prompts holds the system prompts sent with each kind of request.
type Prompts struct {
	AnalysisSystem string `yaml:"analysis_system"`
	QASystem       string `yaml:"qa_system"`
	ChatSystem     string `yaml:"chat_system"`
}

// DefaultPrompts returns the built-in prompts.
func DefaultPrompts() Prompts {
	return Prompts{
		AnalysisSystem: analysisSystemPrompt,
		QASystem:       qaSystemPrompt,
		ChatSystem:     chatSystemPrompt,
	}
}

// LoadPrompts reads prompt overrides from a YAML file with a top-level
// "prompts" key. Entries that are missing or blank keep the built-in text.
// An empty path returns the defaults.
func LoadPrompts(path string) (Prompts, error) {
	p := DefaultPrompts()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return p, eris.Wrapf(err, "agent: read prompts %s", path)
	}

	var wrapper struct {
		Prompts Prompts `yaml:"prompts"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return p, eris.Wrap(err, "agent: parse prompts")
	}

	override(&p.AnalysisSystem, wrapper.Prompts.AnalysisSystem)
	override(&p.QASystem, wrapper.Prompts.QASystem)
	override(&p.ChatSystem, wrapper.Prompts.ChatSystem)
	return p, nil
}

func override(dst *string, v string) {
	if strings.TrimSpace(v) != "" {
		*dst = v
	}
}

func analysisUserMessage(content string) string {
	return fmt.Sprintf("Here is the website content:\n\n---\n\n%s\n\n---\n\nExtract the business information based on your instructions.", content)
}

func questionUserMessage(content, question string) string {
	return fmt.Sprintf("Context:\n\n---\n\n%s\n\n---\n\nQuestion: %s", content, question)
}

func chatContextMessage(content string) string {
	return fmt.Sprintf("Website Content Context:\n\n---\n%s\n---", content)
}
