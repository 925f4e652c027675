// Package dispatcher executes parsed tool calls against their providers and
// normalizes every result, including failures, into a ToolInvocationOutcome.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/b4llu97/jarvis/models"
	"github.com/b4llu97/jarvis/toolcall"
	"golang.org/x/sync/errgroup"
)

const (
	MsgFactNotFound = "Fakt nicht gefunden"
	MsgFactStored   = "Fakt gespeichert"
	MsgNoDocuments  = "Keine Dokumente gefunden"

	DefaultMaxResults    = 3
	DefaultFactTimeout   = 5 * time.Second
	DefaultSearchTimeout = 10 * time.Second
	DefaultConcurrency   = 4

	snippetLength = 200
)

// FactStore is the key-value fact provider. GetFact returns an error matching
// models.ErrNotFound when the key does not exist.
type FactStore interface {
	GetFact(ctx context.Context, key string) (string, error)
	SetFact(ctx context.Context, key, value string) error
}

// Searcher is the semantic document search provider.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]models.Search_Hit, error)
}

// Dispatcher maps each call to one external request.
type Dispatcher struct {
	Facts         FactStore
	Docs          Searcher
	MaxResults    int
	FactTimeout   time.Duration
	SearchTimeout time.Duration
	// Concurrency bounds parallel calls in ExecuteAll; 1 runs them sequentially.
	Concurrency int
	Logger      *log.Logger
}

// New creates a dispatcher with default limits.
func New(facts FactStore, docs Searcher) *Dispatcher {
	return &Dispatcher{
		Facts:         facts,
		Docs:          docs,
		MaxResults:    DefaultMaxResults,
		FactTimeout:   DefaultFactTimeout,
		SearchTimeout: DefaultSearchTimeout,
		Concurrency:   DefaultConcurrency,
		Logger:        log.Default(),
	}
}

// ExecuteAll runs every call and returns outcomes aligned with calls by index.
// tools is the registry snapshot of the current query; arguments of calls whose
// tool advertises a parameter schema are validated against it first.
func (d *Dispatcher) ExecuteAll(ctx context.Context, calls []toolcall.Call, tools []models.ToolDescriptor) []models.ToolInvocationOutcome {
	outcomes := make([]models.ToolInvocationOutcome, len(calls))
	if len(calls) == 0 {
		return outcomes
	}

	schemas := compileSchemas(tools, d.logger())

	limit := d.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	var g errgroup.Group
	g.SetLimit(limit)
	for i, call := range calls {
		g.Go(func() error {
			if err := schemas.validate(call); err != nil {
				d.logf("[DISPATCHER] %s rejected by schema: %v", call.Function(), err)
				outcomes[i] = models.Failed(fmt.Sprintf("Ungültige Argumente für %s: %v", call.Function(), err))
				return nil
			}
			outcomes[i] = d.Execute(ctx, call)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// Execute runs one call. It never panics and never returns an empty outcome.
func (d *Dispatcher) Execute(ctx context.Context, call toolcall.Call) (outcome models.ToolInvocationOutcome) {
	defer func() {
		if p := recover(); p != nil {
			d.logf("[DISPATCHER] Recovered panic in tool call: %v", p)
			outcome = models.Failed(fmt.Sprintf("interner Fehler: %v", p))
		}
	}()

	switch c := call.(type) {
	case toolcall.GetFact:
		return d.getFact(ctx, c)
	case toolcall.SetFact:
		return d.setFact(ctx, c)
	case toolcall.SearchDocs:
		return d.searchDocs(ctx, c)
	case toolcall.Unrecognized:
		return models.Failed("Unbekannte Funktion: " + c.Name)
	case nil:
		return models.Failed("Unbekannte Funktion")
	default:
		return models.Failed(fmt.Sprintf("Unbekannte Funktion: %s", call.Function()))
	}
}

func (d *Dispatcher) getFact(ctx context.Context, c toolcall.GetFact) models.ToolInvocationOutcome {
	if d.Facts == nil {
		return models.Failed(models.ErrToolProviderUnavailable.Error())
	}
	ctx, cancel := context.WithTimeout(ctx, orDefault(d.FactTimeout, DefaultFactTimeout))
	defer cancel()

	value, err := d.Facts.GetFact(ctx, c.Key)
	if errors.Is(err, models.ErrNotFound) {
		return models.Failed(MsgFactNotFound)
	}
	if err != nil {
		d.logf("[DISPATCHER] get_fact(%q) failed: %v", c.Key, err)
		return models.Failed(err.Error())
	}
	return models.Succeeded(value)
}

func (d *Dispatcher) setFact(ctx context.Context, c toolcall.SetFact) models.ToolInvocationOutcome {
	if d.Facts == nil {
		return models.Failed(models.ErrToolProviderUnavailable.Error())
	}
	ctx, cancel := context.WithTimeout(ctx, orDefault(d.FactTimeout, DefaultFactTimeout))
	defer cancel()

	if err := d.Facts.SetFact(ctx, c.Key, c.Value); err != nil {
		d.logf("[DISPATCHER] set_fact(%q) failed: %v", c.Key, err)
		return models.Failed(err.Error())
	}
	return models.Succeeded(MsgFactStored)
}

func (d *Dispatcher) searchDocs(ctx context.Context, c toolcall.SearchDocs) models.ToolInvocationOutcome {
	if d.Docs == nil {
		return models.Failed(models.ErrToolProviderUnavailable.Error())
	}
	ctx, cancel := context.WithTimeout(ctx, orDefault(d.SearchTimeout, DefaultSearchTimeout))
	defer cancel()

	maxResults := d.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	hits, err := d.Docs.Search(ctx, c.Query, maxResults)
	if err != nil {
		d.logf("[DISPATCHER] search_docs(%q) failed: %v", c.Query, err)
		return models.Failed(err.Error())
	}
	if len(hits) == 0 {
		return models.Succeeded(MsgNoDocuments)
	}
	if len(hits) > maxResults {
		hits = hits[:maxResults]
	}
	return models.Succeeded(FormatHits(hits))
}

// FormatHits renders search hits as one line each with a relevance score of
// 1 - distance.
func FormatHits(hits []models.Search_Hit) string {
	lines := make([]string, len(hits))
	for i, hit := range hits {
		lines[i] = fmt.Sprintf("- %s... (Relevanz: %.2f)", truncate(hit.Text, snippetLength), 1-hit.Distance)
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

func (d *Dispatcher) logger() *log.Logger {
	if d.Logger == nil {
		return log.Default()
	}
	return d.Logger
}

func (d *Dispatcher) logf(format string, args ...interface{}) {
	d.logger().Printf(format, args...)
}
