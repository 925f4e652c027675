package models

import "time"

// ToolInvocationOutcome is the normalized result of one tool dispatch.
// Exactly one of Result and Error is populated; build it with Succeeded or Failed.
type ToolInvocationOutcome struct {
	Success bool    `json:"success"`
	Result  *string `json:"result,omitempty"`
	Error   string  `json:"error,omitempty"`
}

// Succeeded returns a successful outcome carrying result.
func Succeeded(result string) ToolInvocationOutcome {
	return ToolInvocationOutcome{Success: true, Result: &result}
}

// Failed returns a failed outcome carrying a human-readable message.
func Failed(message string) ToolInvocationOutcome {
	if message == "" {
		message = "unknown error"
	}
	return ToolInvocationOutcome{Success: false, Error: message}
}

// String renders the outcome for the second-pass digest.
func (o ToolInvocationOutcome) String() string {
	if o.Success && o.Result != nil {
		return "success: " + *o.Result
	}
	return "error: " + o.Error
}

// QueryResult is what one processed query produces.
// Requests and Outcomes are positionally aligned.
type QueryResult struct {
	ID              string                  `json:"id"`
	FinalResponse   string                  `json:"final_response"`
	Requests        []ToolInvocationRequest `json:"requests"`
	Outcomes        []ToolInvocationOutcome `json:"outcomes"`
	RawFirstPass    string                  `json:"raw_first_pass_text"`
	Degraded        bool                    `json:"degraded,omitempty"`
	SecondPassError string                  `json:"second_pass_error,omitempty"`
	Duration        time.Duration           `json:"-"`
}

// Tool_Result pairs a request with its outcome for the HTTP response.
type Tool_Result struct {
	Tool_Call ToolInvocationRequest `json:"tool_call"`
	Result    ToolInvocationOutcome `json:"result"`
}

// Query_Response is the body returned by POST /v1/query.
type Query_Response struct {
	ID                string                  `json:"id"`
	Response          string                  `json:"response"`
	Tool_Calls        []ToolInvocationRequest `json:"tool_calls"`
	Tool_Results      []Tool_Result           `json:"tool_results"`
	Raw_LLM_Response  string                  `json:"raw_llm_response"`
	Degraded          bool                    `json:"degraded,omitempty"`
	Second_Pass_Error string                  `json:"second_pass_error,omitempty"`
}

// NewQueryResponse converts a QueryResult into its HTTP representation.
func NewQueryResponse(result *QueryResult) Query_Response {
	results := make([]Tool_Result, len(result.Outcomes))
	for i, outcome := range result.Outcomes {
		results[i] = Tool_Result{Tool_Call: result.Requests[i], Result: outcome}
	}
	calls := result.Requests
	if calls == nil {
		calls = []ToolInvocationRequest{}
	}
	return Query_Response{
		ID:                result.ID,
		Response:          result.FinalResponse,
		Tool_Calls:        calls,
		Tool_Results:      results,
		Raw_LLM_Response:  result.RawFirstPass,
		Degraded:          result.Degraded,
		Second_Pass_Error: result.SecondPassError,
	}
}

// Fact_Response is the body returned by the fact endpoints.
type Fact_Response struct {
	Key        string     `json:"key"`
	Value      string     `json:"value"`
	Created_At *time.Time `json:"created_at,omitempty"`
	Updated_At *time.Time `json:"updated_at,omitempty"`
}

// Search_Hit is one semantic search result.
type Search_Hit struct {
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Distance float64           `json:"distance"`
}

// Search_Response is the body returned by POST /v1/search.
type Search_Response struct {
	Query   string       `json:"query"`
	Results []Search_Hit `json:"results"`
}
