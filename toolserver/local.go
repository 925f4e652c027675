package toolserver

import (
	"context"

	"github.com/b4llu97/jarvis/models"
	"github.com/b4llu97/jarvis/stores"
)

// Local serves the same contracts as Client straight from a store, for
// single-process deployments without a separate toolserver.
type Local struct {
	Facts stores.FactStore
	Docs  stores.DocumentStore
}

// NewLocal wraps store.
func NewLocal(store stores.Store) *Local {
	return &Local{Facts: store, Docs: store}
}

func (l *Local) ListTools(ctx context.Context) ([]models.ToolDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Definitions()
}

func (l *Local) GetFact(ctx context.Context, key string) (string, error) {
	fact, err := l.Facts.GetFact(ctx, key)
	if err != nil {
		return "", err
	}
	return fact.Value, nil
}

func (l *Local) SetFact(ctx context.Context, key, value string) error {
	_, err := l.Facts.SetFact(ctx, key, value)
	return err
}

func (l *Local) Search(ctx context.Context, query string, maxResults int) ([]models.Search_Hit, error) {
	return l.Docs.Search(ctx, query, maxResults)
}
