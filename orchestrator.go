// Package jarvis turns a natural-language query into a grounded answer: it
// offers the live tool list to a language model, runs the tool calls the model
// asks for and lets the model phrase a final answer from their results.
package jarvis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/b4llu97/jarvis/conversation"
	"github.com/b4llu97/jarvis/models"
	"github.com/b4llu97/jarvis/stores"
	"github.com/b4llu97/jarvis/toolcall"
	"github.com/google/uuid"
)

// Model is a language-model backend. Implementations return *models.ModelError on failure.
type Model interface {
	Chat(ctx context.Context, conversation models.Conversation) (string, error)
}

// ToolLister yields the tool snapshot for one query; registry.Client implements it.
type ToolLister interface {
	List(ctx context.Context) []models.ToolDescriptor
}

// ToolExecutor runs parsed calls; dispatcher.Dispatcher implements it.
type ToolExecutor interface {
	ExecuteAll(ctx context.Context, calls []toolcall.Call, tools []models.ToolDescriptor) []models.ToolInvocationOutcome
}

// AuditRecorder persists finished queries; stores.GORMStore implements it.
type AuditRecorder interface {
	SaveQuery(ctx context.Context, record *stores.QueryRecord) error
}

const auditTimeout = 5 * time.Second

// Orchestrator runs the two-pass query pipeline. It holds no per-query state
// and is safe for concurrent use.
type Orchestrator struct {
	Registry   ToolLister
	Dispatcher ToolExecutor
	Model      Model
	Prompts    conversation.Prompts
	Audit      AuditRecorder // optional
	Logger     *log.Logger
}

// NewOrchestrator wires the pipeline components.
func NewOrchestrator(registry ToolLister, dispatcher ToolExecutor, model Model, prompts conversation.Prompts) *Orchestrator {
	return &Orchestrator{
		Registry:   registry,
		Dispatcher: dispatcher,
		Model:      model,
		Prompts:    prompts,
		Logger:     log.Default(),
	}
}

// ProcessQuery answers query in the context of history.
//
// An empty query fails with a *models.ValidationError before any network call.
// A failed first model call fails with a *models.ModelError. A failed second
// model call does not fail the query: the result carries the first-pass text
// as its answer with Degraded set.
func (o *Orchestrator) ProcessQuery(ctx context.Context, query string, history []models.ConversationTurn) (*models.QueryResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, &models.ValidationError{Field: "query", Message: "must not be empty"}
	}
	if o.Model == nil {
		return nil, &models.ModelError{Backend: "none", Operation: "first pass", Message: "no model backend configured"}
	}

	start := time.Now()
	result := &models.QueryResult{
		ID:       uuid.NewString(),
		Requests: []models.ToolInvocationRequest{},
		Outcomes: []models.ToolInvocationOutcome{},
	}

	system, persona, err := o.loadPrompts(ctx)
	if err != nil {
		return nil, err
	}

	var tools []models.ToolDescriptor
	if o.Registry != nil {
		tools = o.Registry.List(ctx)
	}
	o.logf("[ORCHESTRATOR] %s: %d tools available", result.ID, len(tools))
	if issues := conversation.DetectHistoryIssues(history); len(issues) > 0 {
		o.logf("[ORCHESTRATOR] %s: repairing history: %s", result.ID, strings.Join(issues, "; "))
	}

	first := conversation.BuildFirstPass(system, persona, tools, conversation.SanitizeHistory(history), query)
	reply, err := o.Model.Chat(ctx, first)
	if err != nil {
		o.logf("[ORCHESTRATOR] %s: first pass failed: %v", result.ID, err)
		return nil, asModelError(err, "first pass")
	}
	result.RawFirstPass = reply

	calls := o.parseCalls(result.ID, reply)
	if len(calls) == 0 {
		result.FinalResponse = reply
		o.finish(ctx, query, result, start)
		return result, nil
	}

	result.Requests = toolcall.Requests(calls)
	if o.Dispatcher != nil {
		result.Outcomes = o.Dispatcher.ExecuteAll(ctx, calls, tools)
	} else {
		result.Outcomes = make([]models.ToolInvocationOutcome, len(calls))
		for i := range result.Outcomes {
			result.Outcomes[i] = models.Failed(models.ErrToolProviderUnavailable.Error())
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	second := conversation.BuildSecondPass(first, reply, result.Requests, result.Outcomes)
	final, err := o.Model.Chat(ctx, second)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		o.logf("[ORCHESTRATOR] %s: second pass failed, answering with first-pass text: %v", result.ID, err)
		result.FinalResponse = reply
		result.Degraded = true
		result.SecondPassError = asModelError(err, "second pass").Error()
	} else {
		result.FinalResponse = final
	}

	o.finish(ctx, query, result, start)
	return result, nil
}

func (o *Orchestrator) loadPrompts(ctx context.Context) (string, string, error) {
	if o.Prompts == nil {
		return "", "", nil
	}
	system, persona, err := o.Prompts.Load(ctx)
	if err != nil {
		return "", "", fmt.Errorf("failed to load prompts: %w", err)
	}
	return system, persona, nil
}

// parseCalls keeps the recognized calls in order and logs the rest.
func (o *Orchestrator) parseCalls(id, reply string) []toolcall.Call {
	scanned := toolcall.Scan(reply)
	calls := make([]toolcall.Call, 0, len(scanned))
	for _, call := range scanned {
		if u, ok := call.(toolcall.Unrecognized); ok {
			o.logf("[ORCHESTRATOR] %s: skipping tool block: %v", id, u.Err())
			continue
		}
		calls = append(calls, call)
	}
	return calls
}

func (o *Orchestrator) finish(ctx context.Context, query string, result *models.QueryResult, start time.Time) {
	result.Duration = time.Since(start)
	o.logf("[ORCHESTRATOR] %s: answered in %s with %d tool calls (degraded=%t)",
		result.ID, result.Duration.Round(time.Millisecond), len(result.Requests), result.Degraded)

	if o.Audit == nil {
		return
	}
	// The answer is already computed; the audit write outlives caller cancellation.
	auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	defer cancel()
	if err := o.Audit.SaveQuery(auditCtx, stores.NewQueryRecord(query, result)); err != nil {
		o.logf("[ORCHESTRATOR] %s: failed to save audit record: %v", result.ID, err)
	}
}

func asModelError(err error, operation string) error {
	var merr *models.ModelError
	if errors.As(err, &merr) {
		return err
	}
	return &models.ModelError{Backend: "unknown", Operation: operation, Message: "model call failed", Err: err}
}

func (o *Orchestrator) logf(format string, args ...interface{}) {
	logger := o.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf(format, args...)
}
