package toolserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/b4llu97/jarvis/models"
	"github.com/b4llu97/jarvis/retry"
)

// Client talks to a toolserver over HTTP. It serves as the registry provider,
// the fact store and the search provider of the orchestrator.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Retry      retry.Policy
	Logger     *log.Logger
}

// NewClient creates a client for the toolserver at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{},
		Retry:      retry.Default(),
		Logger:     log.Default(),
	}
}

// ListTools fetches GET /v1/tools.
func (c *Client) ListTools(ctx context.Context) ([]models.ToolDescriptor, error) {
	var list models.ToolList
	if err := c.do(ctx, "list tools", http.MethodGet, "/v1/tools", nil, &list); err != nil {
		return nil, err
	}
	if list.Tools == nil {
		list.Tools = []models.ToolDescriptor{}
	}
	return list.Tools, nil
}

// GetFact fetches one fact value. A 404 yields an error matching models.ErrNotFound.
func (c *Client) GetFact(ctx context.Context, key string) (string, error) {
	var fact models.Fact_Response
	if err := c.do(ctx, "get fact", http.MethodGet, "/v1/facts/"+url.PathEscape(key), nil, &fact); err != nil {
		return "", err
	}
	return fact.Value, nil
}

// SetFact stores one fact value.
func (c *Client) SetFact(ctx context.Context, key, value string) error {
	return c.do(ctx, "set fact", http.MethodPut, "/v1/facts/"+url.PathEscape(key), models.Fact_Request{Value: value}, nil)
}

// Search runs POST /v1/search.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]models.Search_Hit, error) {
	var resp models.Search_Response
	req := models.Search_Request{Query: query, N_Results: maxResults}
	if err := c.do(ctx, "search", http.MethodPost, "/v1/search", req, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// AddDocument runs POST /v1/documents.
func (c *Client) AddDocument(ctx context.Context, text string, metadata map[string]string) error {
	return c.do(ctx, "add document", http.MethodPost, "/v1/documents", models.Document_Request{Text: text, Metadata: metadata}, nil)
}

// do performs one request under the retry policy. 4xx responses and
// undecodable bodies are not retried.
func (c *Client) do(ctx context.Context, operation, method, path string, in, out interface{}) error {
	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return &models.ProviderError{Operation: operation, Message: "failed to marshal request body", Err: err}
		}
	}

	attempt := 0
	return c.Retry.Do(ctx, func(ctx context.Context) error {
		attempt++
		err := c.once(ctx, operation, method, path, payload, out)
		if err != nil && attempt > 1 {
			c.logf("[TOOLSERVER_CLIENT] %s attempt %d failed: %v", operation, attempt, err)
		}
		return err
	})
}

func (c *Client) once(ctx context.Context, operation, method, path string, payload []byte, out interface{}) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return retry.Permanent(&models.ProviderError{Operation: operation, Message: "failed to create HTTP request", Err: err})
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return &models.ProviderError{Operation: operation, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &models.ProviderError{Operation: operation, StatusCode: resp.StatusCode, Message: "failed to read response body", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		perr := &models.ProviderError{Operation: operation, StatusCode: resp.StatusCode, Message: errorMessage(data)}
		if resp.StatusCode < 500 {
			return retry.Permanent(perr)
		}
		return perr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return retry.Permanent(&models.ProviderError{Operation: operation, StatusCode: resp.StatusCode, Message: "malformed response body", Err: err})
	}
	return nil
}

func errorMessage(body []byte) string {
	var e struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &e); err == nil {
		if e.Error != "" {
			return e.Error
		}
		if e.Detail != "" {
			return e.Detail
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

func (c *Client) logf(format string, args ...interface{}) {
	logger := c.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf(format, args...)
}
