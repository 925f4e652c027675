package models

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestProviderError_Is(t *testing.T) {
	notFound := fmt.Errorf("get fact: %w", &ProviderError{Operation: "get fact", StatusCode: 404})
	if !errors.Is(notFound, ErrNotFound) {
		t.Error("404 should match ErrNotFound")
	}
	if errors.Is(notFound, ErrToolProviderUnavailable) {
		t.Error("404 should not match ErrToolProviderUnavailable")
	}

	down := &ProviderError{Operation: "search", StatusCode: 503, Message: "index offline"}
	if !errors.Is(down, ErrToolProviderUnavailable) || errors.Is(down, ErrNotFound) {
		t.Errorf("503 mapped wrongly: %v", down)
	}

	transport := &ProviderError{Operation: "list tools", Err: context.DeadlineExceeded}
	if !errors.Is(transport, ErrToolProviderUnavailable) || !errors.Is(transport, context.DeadlineExceeded) {
		t.Errorf("transport error mapped wrongly: %v", transport)
	}
}

func TestModelAndValidationErrors(t *testing.T) {
	var err error = &ModelError{Backend: "ollama", Operation: "first pass", Message: "status 500"}
	if !errors.Is(err, ErrModelBackend) {
		t.Error("ModelError should match ErrModelBackend")
	}
	err = &ValidationError{Field: "query", Message: "must not be empty"}
	if !errors.Is(err, ErrValidation) {
		t.Error("ValidationError should match ErrValidation")
	}
	if got := err.Error(); got != "invalid query: must not be empty" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestConversationWith_DoesNotShareBacking(t *testing.T) {
	base := make(Conversation, 1, 4)
	base[0] = ConversationTurn{Role: RoleUser, Content: "a"}

	first := base.With(ConversationTurn{Role: RoleAssistant, Content: "b"})
	second := base.With(ConversationTurn{Role: RoleAssistant, Content: "c"})

	if first[1].Content != "b" || second[1].Content != "c" {
		t.Errorf("appends interfered: %v %v", first, second)
	}
	if len(base) != 1 {
		t.Errorf("receiver modified: %v", base)
	}
}

func TestNewQueryResponse_PairsCallsWithResults(t *testing.T) {
	result := &QueryResult{
		ID:            "q",
		FinalResponse: "Antwort",
		Requests: []ToolInvocationRequest{
			{Function: "get_fact", Arguments: map[string]string{"key": "a"}},
			{Function: "search_docs", Arguments: map[string]string{"query": "b"}},
		},
		Outcomes: []ToolInvocationOutcome{Succeeded("1"), Failed("")},
	}
	resp := NewQueryResponse(result)
	if len(resp.Tool_Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(resp.Tool_Results))
	}
	if resp.Tool_Results[1].Tool_Call.Function != "search_docs" || resp.Tool_Results[1].Result.Error != "unknown error" {
		t.Errorf("unexpected pairing: %+v", resp.Tool_Results[1])
	}

	empty := NewQueryResponse(&QueryResult{ID: "e"})
	if empty.Tool_Calls == nil || empty.Tool_Results == nil {
		t.Error("empty response should carry empty slices, not null")
	}
}

func TestOutcomeString(t *testing.T) {
	if got := Succeeded("Fakt gespeichert").String(); got != "success: Fakt gespeichert" {
		t.Errorf("got %q", got)
	}
	if got := Failed("timeout").String(); got != "error: timeout" {
		t.Errorf("got %q", got)
	}
}
