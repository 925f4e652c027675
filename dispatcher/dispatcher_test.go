package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/b4llu97/jarvis/models"
	"github.com/b4llu97/jarvis/toolcall"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type memFacts struct {
	mu    sync.Mutex
	facts map[string]string
	err   error
}

func (m *memFacts) GetFact(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	v, ok := m.facts[key]
	if !ok {
		return "", &models.ProviderError{Operation: "get fact", StatusCode: 404}
	}
	return v, nil
}

func (m *memFacts) SetFact(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.facts == nil {
		m.facts = map[string]string{}
	}
	m.facts[key] = value
	return nil
}

type searchFunc func(ctx context.Context, query string, maxResults int) ([]models.Search_Hit, error)

func (f searchFunc) Search(ctx context.Context, query string, maxResults int) ([]models.Search_Hit, error) {
	return f(ctx, query, maxResults)
}

func newTestDispatcher(facts FactStore, docs Searcher) *Dispatcher {
	d := New(facts, docs)
	d.Logger = log.New(io.Discard, "", 0)
	return d
}

func TestExecute_GetFact(t *testing.T) {
	d := newTestDispatcher(&memFacts{facts: map[string]string{"naechste_steuer_frist": "2026-07-31"}}, nil)

	out := d.Execute(context.Background(), toolcall.GetFact{Key: "naechste_steuer_frist"})
	require.True(t, out.Success)
	require.NotNil(t, out.Result)
	assert.Equal(t, "2026-07-31", *out.Result)
	assert.Empty(t, out.Error)
}

func TestExecute_GetFactNotFound(t *testing.T) {
	d := newTestDispatcher(&memFacts{}, nil)

	out := d.Execute(context.Background(), toolcall.GetFact{Key: "missing"})
	assert.False(t, out.Success)
	assert.Nil(t, out.Result)
	assert.Equal(t, MsgFactNotFound, out.Error)
}

func TestExecute_GetFactTransportError(t *testing.T) {
	d := newTestDispatcher(&memFacts{err: &models.ProviderError{Operation: "get fact", Err: errors.New("connection refused")}}, nil)

	out := d.Execute(context.Background(), toolcall.GetFact{Key: "x"})
	assert.False(t, out.Success)
	assert.Contains(t, out.Error, "connection refused")
}

func TestExecute_SetFact(t *testing.T) {
	facts := &memFacts{}
	d := newTestDispatcher(facts, nil)

	out := d.Execute(context.Background(), toolcall.SetFact{Key: "auto", Value: "VW"})
	require.True(t, out.Success)
	assert.Equal(t, MsgFactStored, *out.Result)
	assert.Equal(t, "VW", facts.facts["auto"])
}

func TestExecute_SearchDocsFormatsHits(t *testing.T) {
	long := strings.Repeat("ä", 250)
	var gotMax int
	d := newTestDispatcher(nil, searchFunc(func(_ context.Context, _ string, maxResults int) ([]models.Search_Hit, error) {
		gotMax = maxResults
		return []models.Search_Hit{
			{Text: "Police Gebäudeversicherung", Distance: 0.25},
			{Text: long, Distance: 0.9},
		}, nil
	}))

	out := d.Execute(context.Background(), toolcall.SearchDocs{Query: "Versicherung"})
	require.True(t, out.Success)
	assert.Equal(t, DefaultMaxResults, gotMax)

	lines := strings.Split(*out.Result, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "- Police Gebäudeversicherung... (Relevanz: 0.75)", lines[0])
	assert.Equal(t, "- "+strings.Repeat("ä", 200)+"... (Relevanz: 0.10)", lines[1])
}

func TestExecute_SearchDocsEmptyIsSuccess(t *testing.T) {
	d := newTestDispatcher(nil, searchFunc(func(context.Context, string, int) ([]models.Search_Hit, error) {
		return nil, nil
	}))

	out := d.Execute(context.Background(), toolcall.SearchDocs{Query: "nichts"})
	require.True(t, out.Success)
	assert.Equal(t, MsgNoDocuments, *out.Result)
}

func TestExecute_Unrecognized(t *testing.T) {
	d := newTestDispatcher(nil, nil)
	out := d.Execute(context.Background(), toolcall.Unrecognized{Name: "delete_fact"})
	assert.False(t, out.Success)
	assert.Equal(t, "Unbekannte Funktion: delete_fact", out.Error)

	out = d.Execute(context.Background(), nil)
	assert.False(t, out.Success)
}

func TestExecute_MissingProviders(t *testing.T) {
	d := newTestDispatcher(nil, nil)
	for _, call := range []toolcall.Call{toolcall.GetFact{Key: "a"}, toolcall.SetFact{Key: "a", Value: "b"}, toolcall.SearchDocs{Query: "q"}} {
		out := d.Execute(context.Background(), call)
		assert.False(t, out.Success, "%s", call.Function())
		assert.NotEmpty(t, out.Error)
	}
}

func TestExecute_RecoversPanics(t *testing.T) {
	d := newTestDispatcher(nil, searchFunc(func(context.Context, string, int) ([]models.Search_Hit, error) {
		panic("index exploded")
	}))
	out := d.Execute(context.Background(), toolcall.SearchDocs{Query: "q"})
	assert.False(t, out.Success)
	assert.Contains(t, out.Error, "index exploded")
}

func TestExecuteAll_FailureIsolation(t *testing.T) {
	// First call hits an unreachable provider, second a healthy one.
	facts := &memFacts{err: &models.ProviderError{Operation: "get fact", Err: errors.New("dial tcp: connection refused")}}
	docs := searchFunc(func(context.Context, string, int) ([]models.Search_Hit, error) {
		return []models.Search_Hit{{Text: "Mietvertrag", Distance: 0.1}}, nil
	})
	d := newTestDispatcher(facts, docs)

	outcomes := d.ExecuteAll(context.Background(), []toolcall.Call{
		toolcall.GetFact{Key: "miete"},
		toolcall.SearchDocs{Query: "Mietvertrag"},
	}, nil)

	require.Len(t, outcomes, 2)
	assert.False(t, outcomes[0].Success)
	assert.True(t, outcomes[1].Success)
}

func TestExecuteAll_OutcomesAlignedWithCalls(t *testing.T) {
	facts := &memFacts{facts: map[string]string{}}
	for i := 0; i < 20; i++ {
		facts.facts[fmt.Sprintf("k%d", i)] = fmt.Sprintf("v%d", i)
	}
	d := newTestDispatcher(facts, nil)
	d.Concurrency = 8

	calls := make([]toolcall.Call, 20)
	for i := range calls {
		calls[i] = toolcall.GetFact{Key: fmt.Sprintf("k%d", i)}
	}
	outcomes := d.ExecuteAll(context.Background(), calls, nil)

	require.Len(t, outcomes, len(calls))
	for i, out := range outcomes {
		require.True(t, out.Success)
		assert.Equal(t, fmt.Sprintf("v%d", i), *out.Result)
	}
}

func TestExecuteAll_SequentialWhenConcurrencyIsOne(t *testing.T) {
	var inFlight, peak int32
	docs := searchFunc(func(context.Context, string, int) ([]models.Search_Hit, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return nil, nil
	})
	d := newTestDispatcher(nil, docs)
	d.Concurrency = 1

	d.ExecuteAll(context.Background(), []toolcall.Call{
		toolcall.SearchDocs{Query: "a"},
		toolcall.SearchDocs{Query: "b"},
		toolcall.SearchDocs{Query: "c"},
	}, nil)
	assert.Equal(t, int32(1), atomic.LoadInt32(&peak))
}

func TestExecuteAll_Empty(t *testing.T) {
	d := newTestDispatcher(nil, nil)
	assert.Empty(t, d.ExecuteAll(context.Background(), nil, nil))
}

func TestExecuteAll_SchemaValidation(t *testing.T) {
	facts := &memFacts{facts: map[string]string{"a": "1"}}
	d := newTestDispatcher(facts, nil)

	tools := []models.ToolDescriptor{{
		Name: "get_fact",
		Parameters: models.Parameters{
			Type: "object",
			Properties: map[string]interface{}{
				"key": map[string]interface{}{"type": "string", "maxLength": 3},
			},
			Required: []string{"key"},
		},
	}}

	outcomes := d.ExecuteAll(context.Background(), []toolcall.Call{
		toolcall.GetFact{Key: "a"},
		toolcall.GetFact{Key: "much_too_long"},
	}, tools)

	require.Len(t, outcomes, 2)
	assert.True(t, outcomes[0].Success)
	assert.False(t, outcomes[1].Success)
	assert.Contains(t, outcomes[1].Error, "Ungültige Argumente")
}

func TestExecuteAll_BrokenSchemaIsIgnored(t *testing.T) {
	d := newTestDispatcher(&memFacts{facts: map[string]string{"a": "1"}}, nil)
	tools := []models.ToolDescriptor{{
		Name:       "get_fact",
		Parameters: models.Parameters{Type: "no-such-type"},
	}}
	outcomes := d.ExecuteAll(context.Background(), []toolcall.Call{toolcall.GetFact{Key: "a"}}, tools)
	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Success)
}

func TestExecute_HonoursCancellation(t *testing.T) {
	docs := searchFunc(func(ctx context.Context, _ string, _ int) ([]models.Search_Hit, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	d := newTestDispatcher(nil, docs)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := d.Execute(ctx, toolcall.SearchDocs{Query: "q"})
	assert.False(t, out.Success)
	assert.Contains(t, out.Error, context.Canceled.Error())
}
