package types

// Message is a single turn in a chat conversation.
type Message struct {
	// Role of the author, e.g. "user" or "assistant".
	Role string `json:"role"`
	// Content is the message text.
	Content string `json:"content"`
}

// ChatRequest is the payload sent to POST /v1/chat/completions.
type ChatRequest struct {
	// Model identifier. Local servers typically accept "default".
	Model string `json:"model"`
	// Messages is the conversation so far. Requests built by this tool
	// carry exactly one user message.
	Messages []Message `json:"messages"`
	// Maximum number of new tokens to generate.
	MaxTokens int `json:"max_tokens,omitempty"`
}

// ChatChoice is one candidate completion in a chat response.
type ChatChoice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason,omitempty"`
}

// ChatResponse is the body returned by POST /v1/chat/completions.
type ChatResponse struct {
	ID      string       `json:"id,omitempty"`
	Object  string       `json:"object,omitempty"`
	Model   string       `json:"model,omitempty"`
	Choices []ChatChoice `json:"choices"`
}

// CompletionRequest is the payload sent to POST /v1/completions.
// Unlike the chat form, the prompt is a raw string with no message wrapping.
type CompletionRequest struct {
	Model     string `json:"model"`
	Prompt    string `json:"prompt"`
	MaxTokens int    `json:"max_tokens,omitempty"`
}

// CompletionChoice is one candidate completion in a text response.
type CompletionChoice struct {
	Index        int    `json:"index"`
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason,omitempty"`
}

// CompletionResponse is the body returned by POST /v1/completions.
type CompletionResponse struct {
	ID      string             `json:"id,omitempty"`
	Object  string             `json:"object,omitempty"`
	Model   string             `json:"model,omitempty"`
	Choices []CompletionChoice `json:"choices"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	Error string `json:"error"`
	// HTTP status code.
	Code int `json:"code"`
}
