package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/b4llu97/jarvis/models"
	"github.com/b4llu97/jarvis/retry"
)

const (
	DefaultBaseURL = "http://llama:11434"
	DefaultModel   = "llama3.1"
	DefaultTimeout = 60 * time.Second

	backendName = "ollama"
)

// Ollama_Model sends non-streaming chat requests to an Ollama server.
type Ollama_Model struct {
	BaseURL     string
	Model       string
	Temperature *float64
	Timeout     time.Duration // per attempt
	Retry       retry.Policy
	HTTPClient  *http.Client
	Logger      *log.Logger
}

// New creates an Ollama backend with default timeout and retry policy.
func New(baseURL, model string) *Ollama_Model {
	return &Ollama_Model{
		BaseURL:    baseURL,
		Model:      model,
		Timeout:    DefaultTimeout,
		Retry:      retry.Default(),
		HTTPClient: &http.Client{},
		Logger:     log.Default(),
	}
}

// Chat sends the conversation and returns the assistant's reply text.
// Failures are returned as *models.ModelError.
func (o *Ollama_Model) Chat(ctx context.Context, conversation models.Conversation) (string, error) {
	modelToUse := o.Model
	if modelToUse == "" {
		modelToUse = DefaultModel
	}

	body := ChatRequest{Model: modelToUse, Stream: false, Messages: make([]Message, len(conversation))}
	for i, turn := range conversation {
		body.Messages[i] = Message{Role: string(turn.Role), Content: turn.Content}
	}
	if o.Temperature != nil {
		body.Options = &Options{Temperature: o.Temperature}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", &models.ModelError{Backend: backendName, Operation: "chat", Message: "failed to marshal request body", Err: err}
	}

	var reply string
	attempt := 0
	err = o.Retry.Do(ctx, func(ctx context.Context) error {
		attempt++
		var err error
		reply, err = o.makeRequest(ctx, payload)
		if err != nil {
			o.logf("[OLLAMA] Chat attempt %d failed: %v", attempt, err)
		}
		return err
	})
	if err != nil {
		return "", err
	}
	return reply, nil
}

func (o *Ollama_Model) makeRequest(ctx context.Context, payload []byte) (string, error) {
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	baseURL := o.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(baseURL, "/")+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return "", retry.Permanent(modelError("failed to create HTTP request", err))
	}
	req.Header.Set("Content-Type", "application/json")

	client := o.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", modelError("HTTP request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", modelError("failed to read response body", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		msg := fmt.Sprintf("status %d, body: %s", resp.StatusCode, string(data))
		if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error != "" {
			msg = fmt.Sprintf("status %d: %s", resp.StatusCode, errResp.Error)
		}
		merr := modelError(msg, nil)
		if resp.StatusCode < 500 {
			return "", retry.Permanent(merr)
		}
		return "", merr
	}

	var chat ChatResponse
	if err := json.Unmarshal(data, &chat); err != nil {
		return "", retry.Permanent(modelError("failed to unmarshal response", err))
	}
	if chat.Message == nil {
		return "", retry.Permanent(modelError("response has no message", nil))
	}
	return chat.Message.Content, nil
}

func modelError(message string, err error) *models.ModelError {
	return &models.ModelError{Backend: backendName, Operation: "chat", Message: message, Err: err}
}

func (o *Ollama_Model) logf(format string, args ...interface{}) {
	logger := o.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf(format, args...)
}
