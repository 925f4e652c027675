package models

// Query_Request is the body accepted by POST /v1/query and the websocket channel.
type Query_Request struct {
	Query                string             `json:"query"`
	Conversation_History []ConversationTurn `json:"conversation_history,omitempty"`
}

// ToolInvocationRequest is the wire form of one parsed tool call.
type ToolInvocationRequest struct {
	Function  string            `json:"function"`
	Arguments map[string]string `json:"arguments"`
}

// Fact_Request is the body of PUT /v1/facts/:key.
type Fact_Request struct {
	Value string `json:"value"`
}

// Search_Request is the body of POST /v1/search.
type Search_Request struct {
	Query     string `json:"query"`
	N_Results int    `json:"n_results"`
}

// Document_Request is the body of POST /v1/documents.
type Document_Request struct {
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}
