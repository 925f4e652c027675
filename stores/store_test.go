package stores

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/b4llu97/jarvis/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *GORMStore {
	t.Helper()
	s, err := NewStore(NewStoreConfig("sqlite", ":memory:").WithOption("log_level", "silent"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNewStore_UnsupportedType(t *testing.T) {
	_, err := NewStore(NewStoreConfig("mysql", ""))
	require.Error(t, err)
}

func TestFacts_SetGetOverwrite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.SetFact(ctx, "naechste_steuer_frist", "2026-07-31")
	require.NoError(t, err)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := s.GetFact(ctx, "naechste_steuer_frist")
	require.NoError(t, err)
	assert.Equal(t, "2026-07-31", got.Value)

	_, err = s.SetFact(ctx, "naechste_steuer_frist", "2026-09-30")
	require.NoError(t, err)
	got, err = s.GetFact(ctx, "naechste_steuer_frist")
	require.NoError(t, err)
	assert.Equal(t, "2026-09-30", got.Value)

	facts, err := s.ListFacts(ctx)
	require.NoError(t, err)
	assert.Len(t, facts, 1)
}

func TestFacts_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetFact(context.Background(), "missing")
	assert.True(t, errors.Is(err, models.ErrNotFound))

	err = s.DeleteFact(context.Background(), "missing")
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestFacts_EmptyKeyRejected(t *testing.T) {
	s := newTestStore(t)
	_, err := s.SetFact(context.Background(), " ", "x")
	assert.True(t, errors.Is(err, models.ErrValidation))
}

func TestFacts_Delete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.SetFact(ctx, "auto", "VW")
	require.NoError(t, err)

	require.NoError(t, s.DeleteFact(ctx, "auto"))
	_, err = s.GetFact(ctx, "auto")
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestDocuments_SearchRanksByTermOverlap(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.AddDocument(ctx, "Die Hausratversicherung kostet 120 Euro pro Jahr.", map[string]string{"source": "police.pdf"})
	require.NoError(t, err)
	_, err = s.AddDocument(ctx, "Die Steuererklärung muss bis Juli abgegeben werden.", nil)
	require.NoError(t, err)
	_, err = s.AddDocument(ctx, "Der Mietvertrag läuft bis Juli 2027.", nil)
	require.NoError(t, err)

	hits, err := s.Search(ctx, "Steuererklärung Juli", 3)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Contains(t, hits[0].Text, "Steuererklärung")
	assert.InDelta(t, 0.0, hits[0].Distance, 1e-9)
	assert.Contains(t, hits[1].Text, "Mietvertrag")
	assert.InDelta(t, 0.5, hits[1].Distance, 1e-9)

	hits, err = s.Search(ctx, "Hausratversicherung", 3)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "police.pdf", hits[0].Metadata["source"])
}

func TestDocuments_SearchCapsAndEmpty(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := s.AddDocument(ctx, "Rechnung Strom", nil)
		require.NoError(t, err)
	}

	hits, err := s.Search(ctx, "rechnung", 3)
	require.NoError(t, err)
	assert.Len(t, hits, 3)

	hits, err = s.Search(ctx, "Urlaub", 3)
	require.NoError(t, err)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)
}

func TestTerms(t *testing.T) {
	assert.Equal(t, []string{"wann", "ist", "die", "steuerfrist"}, Terms("Wann ist die Steuerfrist? Die!"))
	assert.Empty(t, Terms("a ?"))
}

func TestAudit_SaveAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	result := &models.QueryResult{
		ID:            "7b1f0f0e-0000-4000-8000-000000000001",
		FinalResponse: "Die Frist ist am 31. Juli.",
		Requests:      []models.ToolInvocationRequest{{Function: "get_fact", Arguments: map[string]string{"key": "naechste_steuer_frist"}}},
		Outcomes:      []models.ToolInvocationOutcome{models.Succeeded("2026-07-31")},
		RawFirstPass:  `<tool_call>get_fact("naechste_steuer_frist")</tool_call>`,
		Duration:      1500 * time.Millisecond,
	}
	require.NoError(t, s.SaveQuery(ctx, NewQueryRecord("Wann ist die Steuerfrist?", result)))

	rec, err := s.GetQuery(ctx, result.ID)
	require.NoError(t, err)
	assert.Equal(t, "Wann ist die Steuerfrist?", rec.Query)
	assert.Equal(t, result.Requests, rec.Requests)
	assert.Equal(t, result.Outcomes, rec.Outcomes)
	assert.Equal(t, result.Duration, rec.Result().Duration)

	list, err := s.ListQueries(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = s.GetQuery(ctx, "unknown")
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestAudit_NoToolQueryKeepsEmptySlices(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	result := &models.QueryResult{ID: "q-1", FinalResponse: "Hallo!", RawFirstPass: "Hallo!"}
	require.NoError(t, s.SaveQuery(ctx, NewQueryRecord("Hallo", result)))

	rec, err := s.GetQuery(ctx, "q-1")
	require.NoError(t, err)
	assert.NotNil(t, rec.Requests)
	assert.Empty(t, rec.Requests)
	assert.NotNil(t, rec.Outcomes)
}
