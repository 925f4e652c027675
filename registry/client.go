// Package registry fetches the live list of callable tools for one query.
package registry

import (
	"context"
	"log"
	"time"

	"github.com/b4llu97/jarvis/models"
)

// DefaultTimeout bounds one registry fetch.
const DefaultTimeout = 5 * time.Second

// Provider is the remote side of the registry (GET /v1/tools).
type Provider interface {
	ListTools(ctx context.Context) ([]models.ToolDescriptor, error)
}

// Client wraps a Provider with a timeout and a degrade-gracefully policy:
// any failure yields an empty list so the query can proceed without tools.
type Client struct {
	Provider Provider
	Timeout  time.Duration
	Logger   *log.Logger
}

// NewClient creates a registry client with the default timeout.
func NewClient(provider Provider) *Client {
	return &Client{
		Provider: provider,
		Timeout:  DefaultTimeout,
		Logger:   log.Default(),
	}
}

// List returns the current tool snapshot, or an empty slice on any failure.
func (c *Client) List(ctx context.Context) []models.ToolDescriptor {
	if c == nil || c.Provider == nil {
		return []models.ToolDescriptor{}
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tools, err := c.Provider.ListTools(ctx)
	if err != nil {
		c.logf("[REGISTRY] Error fetching tools, continuing without: %v", err)
		return []models.ToolDescriptor{}
	}

	valid := make([]models.ToolDescriptor, 0, len(tools))
	for _, tool := range tools {
		if tool.Name == "" {
			c.logf("[REGISTRY] Skipping tool descriptor without name")
			continue
		}
		valid = append(valid, tool)
	}
	return valid
}

func (c *Client) logf(format string, args ...interface{}) {
	logger := c.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf(format, args...)
}
