package ollama

// Ollama /api/chat request/response types

type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
	Options  *Options  `json:"options,omitempty"`
}

type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

type Options struct {
	Temperature *float64 `json:"temperature,omitempty"`
	NumCtx      *int     `json:"num_ctx,omitempty"`
}

type ChatResponse struct {
	Model      string   `json:"model"`
	Message    *Message `json:"message"`
	Done       bool     `json:"done"`
	DoneReason string   `json:"done_reason,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
