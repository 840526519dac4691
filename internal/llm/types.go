package llm

import "fmt"

// Role names used in chat messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of a chat-completions request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body posted to /chat/completions.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
}

// ChatResponse is the subset of the chat-completions reply this tool reads.
type ChatResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`
}

// Choice is one candidate completion.
type Choice struct {
	Index        int              `json:"index"`
	Message      *ResponseMessage `json:"message"`
	FinishReason string           `json:"finish_reason"`
}

// ResponseMessage is the assistant message of a choice. Content is a pointer
// so an absent or null content can be told apart from an empty string.
type ResponseMessage struct {
	Role    string  `json:"role"`
	Content *string `json:"content"`
}

// Usage reports token accounting when the service provides it.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// FirstChoice validates the response shape and returns the first choice.
// A missing choice, message or content is reported as KindMalformedResponse.
func (r *ChatResponse) FirstChoice() (Choice, error) {
	if len(r.Choices) == 0 {
		return Choice{}, newMalformed("response has no choices")
	}
	choice := r.Choices[0]
	if choice.Message == nil {
		return Choice{}, newMalformed("first choice has no message")
	}
	if choice.Message.Content == nil {
		return Choice{}, newMalformed(fmt.Sprintf("first choice message (role %q) has no content", choice.Message.Role))
	}
	return choice, nil
}
