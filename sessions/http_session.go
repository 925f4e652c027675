package sessions

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/b4llu97/jarvis/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Router builds the gin engine with every orchestrator route.
func (s *HTTPSession) Router() *gin.Engine {
	router := gin.Default()
	s.Register(router)
	return router
}

// Register mounts the routes on an existing engine.
func (s *HTTPSession) Register(router *gin.Engine) {
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"service": "Jarvis Orchestrator", "status": "running"})
	})
	router.GET("/health", s.health)

	v1 := router.Group("/v1")
	v1.POST("/query", s.query)
	v1.GET("/queries", s.listQueries)
	v1.GET("/queries/:id", s.getQuery)
	v1.GET("/ws", s.websocket)
}

func (s *HTTPSession) health(c *gin.Context) {
	if s.Health != nil {
		if err := s.Health(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *HTTPSession) query(c *gin.Context) {
	var req models.Query_Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	result, err := s.Processor.ProcessQuery(c.Request.Context(), req.Query, req.Conversation_History)
	if err != nil {
		s.Logger.Printf("Error processing query: %v", err)
		status, body := errorResponse(err)
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusOK, models.NewQueryResponse(result))
}

// errorResponse maps a ProcessQuery failure to an HTTP status and body.
func errorResponse(err error) (int, gin.H) {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest, gin.H{"error": err.Error()}
	case errors.Is(err, models.ErrModelBackend):
		return http.StatusBadGateway, gin.H{"error": "Fehler bei der Verarbeitung: " + err.Error()}
	default:
		return http.StatusInternalServerError, gin.H{"error": "Fehler bei der Verarbeitung: " + err.Error()}
	}
}

func (s *HTTPSession) getQuery(c *gin.Context) {
	if s.Audit == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "audit trail disabled"})
		return
	}
	id := c.Param("id")
	record, err := s.Audit.GetQuery(c.Request.Context(), id)
	if errors.Is(err, models.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Query '" + id + "' not found"})
		return
	}
	if err != nil {
		s.Logger.Printf("Error loading query %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, record)
}

func (s *HTTPSession) listQueries(c *gin.Context) {
	if s.Audit == nil {
		c.JSON(http.StatusOK, []interface{}{})
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	records, err := s.Audit.ListQueries(c.Request.Context(), limit)
	if err != nil {
		s.Logger.Printf("Error listing queries: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, records)
}

func (s *HTTPSession) websocket(c *gin.Context) {
	conn, err := s.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sessionID := c.Query("session_id")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	session := NewWebSocketSession(sessionID, conn, s.Processor)
	session.Logger = s.Logger
	session.Writer.Logger = s.Logger
	session.Run(c.Request.Context())
}
