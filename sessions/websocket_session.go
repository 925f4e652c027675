package sessions

import (
	"context"
	"time"

	"github.com/b4llu97/jarvis/models"
	"github.com/gorilla/websocket"
)

// Run serves queries until the client disconnects or ctx ends. Every query is
// answered with either a response or an error frame, followed by a done frame.
func (ws *WebSocketSession) Run(ctx context.Context) {
	for {
		var req models.Query_Request
		if err := ws.Conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				ws.Logger.Printf("WebSocket error: %v", err)
			}
			return
		}
		if ctx.Err() != nil {
			return
		}

		if err := ws.RunInteraction(ctx, req); err != nil {
			ws.Logger.Printf("Error writing to websocket: %v", err)
			return
		}
	}
}

// RunInteraction answers one query on the connection
func (ws *WebSocketSession) RunInteraction(ctx context.Context, req models.Query_Request) error {
	ws.Writer.StartTime = time.Now()

	result, err := ws.Processor.ProcessQuery(ctx, req.Query, req.Conversation_History)
	if err != nil {
		ws.Logger.Printf("Error processing query: %v", err)
		_, body := errorResponse(err)
		if werr := ws.Writer.WriteError(body["error"].(string)); werr != nil {
			return werr
		}
		return ws.Writer.WriteDone()
	}

	if err := ws.Writer.WriteResponse(models.NewQueryResponse(result)); err != nil {
		return err
	}
	return ws.Writer.WriteDone()
}
