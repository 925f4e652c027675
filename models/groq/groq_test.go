package groq

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/b4llu97/jarvis/models"
	"github.com/b4llu97/jarvis/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testModel(url string) *Groq_Model {
	g := New("test-key", "llama-3.1-8b-instant")
	g.BaseURL = url
	g.Logger = log.New(io.Discard, "", 0)
	g.Retry = retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}
	return g
}

func TestChat_OpenAICompatibleRequest(t *testing.T) {
	var got GroqRequest
	var auth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id":"x","choices":[{"index":0,"message":{"role":"assistant","content":"Servus"}}]}`))
	}))
	defer ts.Close()

	reply, err := testModel(ts.URL).Chat(context.Background(), models.Conversation{
		{Role: models.RoleSystem, Content: "SYS"},
		{Role: models.RoleUser, Content: "Hallo"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Servus", reply)
	assert.Equal(t, "Bearer test-key", auth)
	assert.Equal(t, "llama-3.1-8b-instant", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "user", got.Messages[1].Role)
}

func TestChat_RateLimitIsRetried(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
	}))
	defer ts.Close()

	reply, err := testModel(ts.URL).Chat(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", reply)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestChat_AuthErrorIsPermanent(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid API Key","type":"invalid_request_error"}}`))
	}))
	defer ts.Close()

	_, err := testModel(ts.URL).Chat(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrModelBackend))
	assert.Contains(t, err.Error(), "Invalid API Key")
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestChat_NoChoices(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer ts.Close()

	_, err := testModel(ts.URL).Chat(context.Background(), nil)
	assert.True(t, errors.Is(err, models.ErrModelBackend))
}
