package agent

import (
	"context"
	"fmt"

	"github.com/sells-group/insights-api/internal/llm"
	"github.com/sells-group/insights-api/internal/model"
)

// ConversationError wraps a gateway failure during a chat reply.
type ConversationError struct {
	Err error
}

func (e *ConversationError) Error() string {
	return fmt.Sprintf("An error occurred during conversational LLM call: %v", e.Err)
}

func (e *ConversationError) Unwrap() error {
	return e.Err
}

// Conversation answers follow-up queries about a page.
type Conversation struct {
	gateway llm.Gateway
	prompts Prompts
}

// NewConversation creates a Conversation.
func NewConversation(gw llm.Gateway, prompts Prompts) *Conversation {
	return &Conversation{gateway: gw, prompts: prompts}
}

// Reply sends the system prompt, the page text, every prior turn and the
// new query, and returns the model's reply verbatim. History is never
// truncated.
func (c *Conversation) Reply(ctx context.Context, content, query string, history []model.ConversationTurn) (string, error) {
	reply, err := c.gateway.Complete(ctx, conversationMessages(c.prompts.ChatSystem, content, query, history), llm.CompleteOptions{})
	if err != nil {
		return "", &ConversationError{Err: err}
	}
	return reply, nil
}

func conversationMessages(system, content, query string, history []model.ConversationTurn) []llm.Message {
	msgs := make([]llm.Message, 0, 3+2*len(history))
	msgs = append(msgs,
		llm.Message{Role: llm.RoleSystem, Content: system},
		llm.Message{Role: llm.RoleSystem, Content: chatContextMessage(content)},
	)
	for _, turn := range history {
		msgs = append(msgs,
			llm.Message{Role: llm.RoleUser, Content: turn.UserQuery},
			llm.Message{Role: llm.RoleAssistant, Content: turn.AgentResponse},
		)
	}
	return append(msgs, llm.Message{Role: llm.RoleUser, Content: query})
}
