package gemini

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/b4llu97/jarvis/models"
	"github.com/b4llu97/jarvis/retry"
	"google.golang.org/genai"
)

const (
	DefaultModel   = "gemini-2.0-flash"
	DefaultTimeout = 60 * time.Second

	backendName = "gemini"
)

// Gemini_Model implements the chat backend on the Gemini API via genai.
type Gemini_Model struct {
	Model       string
	APIKey      string // empty uses GEMINI_API_KEY / GOOGLE_API_KEY from the environment
	BaseURL     string // Optional: override the API endpoint
	Temperature *float32
	Timeout     time.Duration
	Retry       retry.Policy
	Logger      *log.Logger

	once      sync.Once
	client    *genai.Client
	clientErr error
}

// New creates a Gemini backend with default timeout and retry policy.
func New(apiKey, model string) *Gemini_Model {
	return &Gemini_Model{
		Model:   model,
		APIKey:  apiKey,
		Timeout: DefaultTimeout,
		Retry:   retry.Default(),
		Logger:  log.Default(),
	}
}

func (g *Gemini_Model) getClient(ctx context.Context) (*genai.Client, error) {
	g.once.Do(func() {
		cfg := &genai.ClientConfig{
			APIKey:  g.APIKey,
			Backend: genai.BackendGeminiAPI,
		}
		if g.BaseURL != "" {
			cfg.HTTPOptions = genai.HTTPOptions{BaseURL: g.BaseURL}
		}
		g.client, g.clientErr = genai.NewClient(ctx, cfg)
	})
	return g.client, g.clientErr
}

// Chat sends the conversation and returns the generated text. System turns
// become the system instruction; assistant turns are sent with the model role.
func (g *Gemini_Model) Chat(ctx context.Context, conversation models.Conversation) (string, error) {
	client, err := g.getClient(ctx)
	if err != nil {
		return "", modelError("failed to create Gemini client", err)
	}

	modelToUse := g.Model
	if modelToUse == "" {
		modelToUse = DefaultModel
	}
	system, contents := toContents(conversation)
	config := &genai.GenerateContentConfig{
		SystemInstruction: system,
		Temperature:       g.Temperature,
	}

	var reply string
	attempt := 0
	err = g.Retry.Do(ctx, func(ctx context.Context) error {
		attempt++
		timeout := g.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		result, err := client.Models.GenerateContent(ctx, modelToUse, contents, config)
		if err != nil {
			g.logf("[GEMINI] Chat attempt %d failed: %v", attempt, err)
			merr := modelError("generate content failed", err)
			if !retryable(err) {
				return retry.Permanent(merr)
			}
			return merr
		}
		if len(result.Candidates) == 0 {
			return retry.Permanent(modelError("response has no candidates", nil))
		}
		reply = result.Text()
		return nil
	})
	if err != nil {
		return "", err
	}
	return reply, nil
}

func toContents(conversation models.Conversation) (*genai.Content, []*genai.Content) {
	var systemParts []string
	contents := make([]*genai.Content, 0, len(conversation))
	for _, turn := range conversation {
		switch turn.Role {
		case models.RoleSystem:
			systemParts = append(systemParts, turn.Content)
		case models.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(turn.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(turn.Content, genai.RoleUser))
		}
	}

	var system *genai.Content
	if len(systemParts) > 0 {
		system = &genai.Content{Parts: []*genai.Part{{Text: strings.Join(systemParts, "\n\n")}}}
	}
	return system, contents
}

func retryable(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code >= 500 || apiErr.Code == http.StatusTooManyRequests
	}
	return true
}

func modelError(message string, err error) *models.ModelError {
	return &models.ModelError{Backend: backendName, Operation: "chat", Message: message, Err: err}
}

func (g *Gemini_Model) logf(format string, args ...interface{}) {
	logger := g.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf(format, args...)
}

// String identifies the backend in logs.
func (g *Gemini_Model) String() string {
	return fmt.Sprintf("gemini(%s)", g.Model)
}
