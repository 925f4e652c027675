// Package toolcall recognizes tool invocations that a language model embeds in
// its free-text reply as <tool_call>FUNCTION("arg", ...)</tool_call> blocks.
//
// Parsed calls form a closed set of variants. Code that consumes a Call is
// expected to switch over GetFact, SetFact, SearchDocs and Unrecognized.
package toolcall

import (
	"fmt"

	"github.com/b4llu97/jarvis/models"
)

// Function names a callable tool.
type Function string

const (
	FuncGetFact    Function = "get_fact"
	FuncSetFact    Function = "set_fact"
	FuncSearchDocs Function = "search_docs"
)

// Call is one tool invocation found in model output.
type Call interface {
	Function() Function
	Request() models.ToolInvocationRequest
	isCall()
}

// GetFact reads one fact from the fact store.
type GetFact struct {
	Key string
}

// SetFact writes one fact to the fact store.
type SetFact struct {
	Key   string
	Value string
}

// SearchDocs queries the document index.
type SearchDocs struct {
	Query string
}

// Unrecognized is a tagged block that matched no signature.
// Parse drops these; Scan keeps them so callers can log what was skipped.
type Unrecognized struct {
	Name   string
	Body   string
	Reason string
}

func (GetFact) Function() Function    { return FuncGetFact }
func (SetFact) Function() Function    { return FuncSetFact }
func (SearchDocs) Function() Function { return FuncSearchDocs }
func (u Unrecognized) Function() Function {
	return Function(u.Name)
}

func (c GetFact) Request() models.ToolInvocationRequest {
	return models.ToolInvocationRequest{
		Function:  string(FuncGetFact),
		Arguments: map[string]string{"key": c.Key},
	}
}

func (c SetFact) Request() models.ToolInvocationRequest {
	return models.ToolInvocationRequest{
		Function:  string(FuncSetFact),
		Arguments: map[string]string{"key": c.Key, "value": c.Value},
	}
}

func (c SearchDocs) Request() models.ToolInvocationRequest {
	return models.ToolInvocationRequest{
		Function:  string(FuncSearchDocs),
		Arguments: map[string]string{"query": c.Query},
	}
}

func (u Unrecognized) Request() models.ToolInvocationRequest {
	return models.ToolInvocationRequest{
		Function:  u.Name,
		Arguments: map[string]string{},
	}
}

// Err describes why the block was rejected.
func (u Unrecognized) Err() error {
	return fmt.Errorf("%w: %s", models.ErrMalformedToolRequest, u.Reason)
}

func (GetFact) isCall()      {}
func (SetFact) isCall()      {}
func (SearchDocs) isCall()   {}
func (Unrecognized) isCall() {}

// Requests renders calls in their wire form, preserving order.
func Requests(calls []Call) []models.ToolInvocationRequest {
	out := make([]models.ToolInvocationRequest, len(calls))
	for i, c := range calls {
		out[i] = c.Request()
	}
	return out
}
