package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/b4llu97/jarvis/models"
	"github.com/b4llu97/jarvis/stores"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeProcessor struct {
	mu      sync.Mutex
	result  *models.QueryResult
	err     error
	queries []string
	history [][]models.ConversationTurn
}

func (f *fakeProcessor) ProcessQuery(ctx context.Context, query string, history []models.ConversationTurn) (*models.QueryResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	f.history = append(f.history, history)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func newTestServer(t *testing.T, processor QueryProcessor, audit QueryLookup) *httptest.Server {
	t.Helper()
	session := NewHTTPSession(processor, audit)
	session.Logger = log.New(io.Discard, "", 0)
	router := gin.New()
	session.Register(router)
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return ts
}

func toolResult() *models.QueryResult {
	return &models.QueryResult{
		ID:            "q-1",
		FinalResponse: "Die Frist ist am 31. März.",
		RawFirstPass:  `<tool_call>get_fact("steuern.frist")</tool_call>`,
		Requests:      []models.ToolInvocationRequest{{Function: "get_fact", Arguments: map[string]string{"key": "steuern.frist"}}},
		Outcomes:      []models.ToolInvocationOutcome{models.Succeeded("2025-03-31")},
	}
}

func postQuery(t *testing.T, url, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := http.Post(url+"/v1/query", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestQuery_Success(t *testing.T) {
	proc := &fakeProcessor{result: toolResult()}
	ts := newTestServer(t, proc, nil)

	resp, out := postQuery(t, ts.URL, `{"query":"Wann ist die Steuerfrist?","conversation_history":[{"role":"user","content":"Hallo"}]}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Die Frist ist am 31. März.", out["response"])
	assert.Equal(t, "q-1", out["id"])
	assert.Contains(t, out["raw_llm_response"], "<tool_call>")
	assert.Len(t, out["tool_calls"], 1)
	assert.Len(t, out["tool_results"], 1)

	proc.mu.Lock()
	defer proc.mu.Unlock()
	require.Len(t, proc.queries, 1)
	assert.Equal(t, "Wann ist die Steuerfrist?", proc.queries[0])
	require.Len(t, proc.history[0], 1)
	assert.Equal(t, "Hallo", proc.history[0][0].Content)
}

func TestQuery_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", &models.ValidationError{Field: "query", Message: "must not be empty"}, http.StatusBadRequest},
		{"model", &models.ModelError{Backend: "ollama", Operation: "first pass", Message: "timeout"}, http.StatusBadGateway},
		{"other", errors.New("failed to load prompts: missing"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t, &fakeProcessor{err: tc.err}, nil)
			resp, out := postQuery(t, ts.URL, `{"query":"x"}`)
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.NotEmpty(t, out["error"])
		})
	}
}

func TestQuery_MalformedBody(t *testing.T) {
	proc := &fakeProcessor{result: toolResult()}
	ts := newTestServer(t, proc, nil)
	resp, _ := postQuery(t, ts.URL, `{"query":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	proc.mu.Lock()
	defer proc.mu.Unlock()
	assert.Empty(t, proc.queries)
}

func TestRootAndHealth(t *testing.T) {
	ts := newTestServer(t, &fakeProcessor{}, nil)

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	var root map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&root))
	resp.Body.Close()
	assert.Equal(t, "Jarvis Orchestrator", root["service"])

	resp, err = http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestQueries_AuditLookup(t *testing.T) {
	store, err := stores.NewStore(stores.NewStoreConfig("sqlite", ":memory:").WithOption("log_level", "silent"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.SaveQuery(context.Background(), stores.NewQueryRecord("Wann ist die Steuerfrist?", toolResult())))

	ts := newTestServer(t, &fakeProcessor{}, store)

	resp, err := http.Get(ts.URL + "/v1/queries/q-1")
	require.NoError(t, err)
	var record stores.QueryRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&record))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Wann ist die Steuerfrist?", record.Query)
	require.Len(t, record.Requests, 1)
	assert.Equal(t, "get_fact", record.Requests[0].Function)

	resp, err = http.Get(ts.URL + "/v1/queries/unknown")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/v1/queries?limit=10")
	require.NoError(t, err)
	var records []stores.QueryRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&records))
	resp.Body.Close()
	assert.Len(t, records, 1)

	resp, err = http.Get(ts.URL + "/v1/queries?limit=zero")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestQueries_AuditDisabled(t *testing.T) {
	ts := newTestServer(t, &fakeProcessor{}, nil)
	resp, err := http.Get(ts.URL + "/v1/queries/q-1")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/ws?session_id=test"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestWebSocket_QueryThenDone(t *testing.T) {
	ts := newTestServer(t, &fakeProcessor{result: toolResult()}, nil)
	conn := dialWS(t, ts)

	for i := 0; i < 2; i++ {
		require.NoError(t, conn.WriteJSON(models.Query_Request{Query: "Wann ist die Steuerfrist?"}))

		var resp models.Query_Response
		require.NoError(t, conn.ReadJSON(&resp))
		assert.Equal(t, "Die Frist ist am 31. März.", resp.Response)
		require.Len(t, resp.Tool_Results, 1)
		require.NotNil(t, resp.Tool_Results[0].Result.Result)
		assert.Equal(t, "2025-03-31", *resp.Tool_Results[0].Result.Result)

		var done map[string]string
		require.NoError(t, conn.ReadJSON(&done))
		assert.Equal(t, "done", done["type"])
	}
}

func TestWebSocket_ErrorFrame(t *testing.T) {
	ts := newTestServer(t, &fakeProcessor{err: &models.ValidationError{Field: "query", Message: "must not be empty"}}, nil)
	conn := dialWS(t, ts)

	require.NoError(t, conn.WriteJSON(models.Query_Request{Query: ""}))

	var frame map[string]string
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Contains(t, frame["error"], "must not be empty")

	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "done", frame["type"])
}
