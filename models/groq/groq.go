package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/b4llu97/jarvis/models"
	"github.com/b4llu97/jarvis/retry"
)

const (
	GroqBaseURL    = "https://api.groq.com/openai/v1/chat/completions"
	DefaultModel   = "llama-3.1-70b-versatile"
	DefaultTimeout = 60 * time.Second

	backendName = "groq"
)

// Groq_Model implements the chat backend for Groq.
// Groq uses the OpenAI-compatible API format, so BaseURL can point at any
// compatible endpoint.
type Groq_Model struct {
	Model       string // Model identifier (e.g., "llama-3.1-70b-versatile", "mixtral-8x7b-32768")
	Temperature *float64
	MaxTokens   *int
	BaseURL     string // Optional: Custom API base URL (defaults to Groq)
	APIKey      string // Optional: falls back to the APIKeyEnv variable
	APIKeyEnv   string // Optional: Environment variable name for API key (defaults to GROQ_API_KEY)
	Timeout     time.Duration
	Retry       retry.Policy
	HTTPClient  *http.Client
	Logger      *log.Logger
}

// New creates a Groq backend with default timeout and retry policy.
func New(apiKey, model string) *Groq_Model {
	return &Groq_Model{
		Model:      model,
		APIKey:     apiKey,
		Timeout:    DefaultTimeout,
		Retry:      retry.Default(),
		HTTPClient: &http.Client{},
		Logger:     log.Default(),
	}
}

// Chat sends the conversation and returns the first choice's content.
func (g *Groq_Model) Chat(ctx context.Context, conversation models.Conversation) (string, error) {
	modelToUse := g.Model
	if modelToUse == "" {
		modelToUse = DefaultModel
	}

	requestBody := GroqRequest{
		Model:       modelToUse,
		Messages:    make([]Message, len(conversation)),
		MaxTokens:   g.MaxTokens,
		Temperature: g.Temperature,
	}
	for i, turn := range conversation {
		requestBody.Messages[i] = Message{Role: string(turn.Role), Content: turn.Content}
	}
	jsonBytes, err := json.Marshal(requestBody)
	if err != nil {
		return "", modelError("failed to marshal request body", err)
	}

	var response GroqResponse
	attempt := 0
	err = g.Retry.Do(ctx, func(ctx context.Context) error {
		attempt++
		var err error
		response, err = g.makeRequest(ctx, jsonBytes)
		if err != nil {
			g.logf("[GROQ] Chat attempt %d failed: %v", attempt, err)
		}
		return err
	})
	if err != nil {
		return "", err
	}

	if len(response.Choices) == 0 {
		return "", modelError("response has no choices", nil)
	}
	return response.Choices[0].Message.Content, nil
}

// makeRequest sends one non-streaming request
func (g *Groq_Model) makeRequest(ctx context.Context, jsonBytes []byte) (GroqResponse, error) {
	timeout := g.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Use custom base URL if provided, otherwise use Groq
	baseURL := g.BaseURL
	if baseURL == "" {
		baseURL = GroqBaseURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL, bytes.NewReader(jsonBytes))
	if err != nil {
		return GroqResponse{}, retry.Permanent(modelError("failed to create HTTP request", err))
	}
	g.setHeaders(req)

	client := g.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return GroqResponse{}, modelError("HTTP request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return GroqResponse{}, modelError("failed to read response body", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("status %d, body: %s", resp.StatusCode, string(body))
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
			msg = fmt.Sprintf("%s (type: %s)", errResp.Error.Message, errResp.Error.Type)
		}
		merr := modelError(msg, nil)
		// 429 is rate limiting and worth another attempt.
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return GroqResponse{}, retry.Permanent(merr)
		}
		return GroqResponse{}, merr
	}

	var response GroqResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return GroqResponse{}, retry.Permanent(modelError("failed to unmarshal response", err))
	}
	return response, nil
}

// setHeaders sets the required headers for Groq API requests
func (g *Groq_Model) setHeaders(req *http.Request) {
	apiKey := g.APIKey
	if apiKey == "" {
		apiKeyEnv := g.APIKeyEnv
		if apiKeyEnv == "" {
			apiKeyEnv = "GROQ_API_KEY"
		}
		apiKey = os.Getenv(apiKeyEnv)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")
}

func modelError(message string, err error) *models.ModelError {
	return &models.ModelError{Backend: backendName, Operation: "chat", Message: message, Err: err}
}

func (g *Groq_Model) logf(format string, args ...interface{}) {
	logger := g.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf(format, args...)
}
