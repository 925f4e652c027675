package sessions

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/b4llu97/jarvis/models"
	"github.com/b4llu97/jarvis/stores"
	"github.com/gorilla/websocket"
)

// QueryProcessor answers one query; jarvis.Orchestrator implements it.
type QueryProcessor interface {
	ProcessQuery(ctx context.Context, query string, history []models.ConversationTurn) (*models.QueryResult, error)
}

// QueryLookup reads the audit trail; stores.GORMStore implements it.
type QueryLookup interface {
	GetQuery(ctx context.Context, id string) (*stores.QueryRecord, error)
	ListQueries(ctx context.Context, limit int) ([]stores.QueryRecord, error)
}

// WebSocketWriter handles all WebSocket communication
type WebSocketWriter struct {
	Conn      *websocket.Conn
	Logger    *log.Logger
	StartTime time.Time
	mu        sync.Mutex
}

func (w *WebSocketWriter) WriteResponse(resp interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.StartTime.IsZero() {
		w.Logger.Printf("Answered in %v", time.Since(w.StartTime).Round(time.Millisecond))
	}
	return w.Conn.WriteJSON(resp)
}

func (w *WebSocketWriter) WriteError(message string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.Conn.WriteJSON(map[string]string{"error": message})
}

func (w *WebSocketWriter) WriteDone() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.Conn.WriteJSON(map[string]string{"type": "done"})
}

// WebSocketSession serves queries over one websocket connection
type WebSocketSession struct {
	Processor QueryProcessor
	SessionID string
	Conn      *websocket.Conn
	Writer    *WebSocketWriter
	Logger    *log.Logger
}

// HTTPSession handles the orchestrator REST surface
type HTTPSession struct {
	Processor QueryProcessor
	Audit     QueryLookup // optional
	Health    func() error
	Logger    *log.Logger
	Upgrader  websocket.Upgrader
}
