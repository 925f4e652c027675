package sessions

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/gorilla/websocket"
)

// NewWebSocketSession creates a new WebSocket query session
func NewWebSocketSession(sessionID string, conn *websocket.Conn, processor QueryProcessor) *WebSocketSession {
	logger := log.New(os.Stdout, fmt.Sprintf("[WS %s] ", sessionID), log.LstdFlags)
	writer := &WebSocketWriter{
		Conn:   conn,
		Logger: logger,
	}

	return &WebSocketSession{
		Processor: processor,
		SessionID: sessionID,
		Conn:      conn,
		Writer:    writer,
		Logger:    logger,
	}
}

// NewHTTPSession creates the orchestrator API handlers. audit may be nil.
func NewHTTPSession(processor QueryProcessor, audit QueryLookup) *HTTPSession {
	return &HTTPSession{
		Processor: processor,
		Audit:     audit,
		Logger:    log.New(os.Stdout, "[HTTP] ", log.LstdFlags),
		Upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}
