package toolserver

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/b4llu97/jarvis/models"
	"github.com/b4llu97/jarvis/stores"
	"github.com/gin-gonic/gin"
)

// DefaultSearchResults is used when a search request omits n_results.
const DefaultSearchResults = 5

// Server exposes the fact and document stores over HTTP.
type Server struct {
	Facts  stores.FactStore
	Docs   stores.DocumentStore
	Logger *log.Logger
}

// NewServer creates a server backed by one store.
func NewServer(store stores.Store) *Server {
	return &Server{Facts: store, Docs: store, Logger: log.Default()}
}

// Router builds the gin engine with every toolserver route.
func (s *Server) Router() *gin.Engine {
	router := gin.Default()
	s.Register(router)
	return router
}

// Register mounts the routes on an existing engine.
func (s *Server) Register(router *gin.Engine) {
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"service": "Jarvis Toolserver", "status": "running"})
	})
	router.GET("/health", s.health)

	v1 := router.Group("/v1")
	v1.GET("/tools", s.listTools)
	v1.GET("/facts", s.listFacts)
	v1.GET("/facts/:key", s.getFact)
	v1.PUT("/facts/:key", s.setFact)
	v1.DELETE("/facts/:key", s.deleteFact)
	v1.POST("/search", s.search)
	v1.POST("/documents", s.addDocument)
}

func (s *Server) health(c *gin.Context) {
	if p, ok := s.Facts.(interface{ Ping() error }); ok {
		if err := p.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) listTools(c *gin.Context) {
	tools, err := Definitions()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, models.ToolList{Tools: tools})
}

func (s *Server) listFacts(c *gin.Context) {
	facts, err := s.Facts.ListFacts(c.Request.Context())
	if err != nil {
		s.logf("[TOOLSERVER] Error listing facts: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]models.Fact_Response, len(facts))
	for i := range facts {
		out[i] = facts[i].Response()
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getFact(c *gin.Context) {
	key := c.Param("key")
	fact, err := s.Facts.GetFact(c.Request.Context(), key)
	if errors.Is(err, models.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Fact with key '%s' not found", key)})
		return
	}
	if err != nil {
		s.logf("[TOOLSERVER] Error reading fact %s: %v", key, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, fact.Response())
}

func (s *Server) setFact(c *gin.Context) {
	key := c.Param("key")
	var req models.Fact_Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fact, err := s.Facts.SetFact(c.Request.Context(), key, req.Value)
	if errors.Is(err, models.ErrValidation) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		s.logf("[TOOLSERVER] Error storing fact %s: %v", key, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, fact.Response())
}

func (s *Server) deleteFact(c *gin.Context) {
	key := c.Param("key")
	err := s.Facts.DeleteFact(c.Request.Context(), key)
	if errors.Is(err, models.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Fact with key '%s' not found", key)})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Fact '%s' deleted successfully", key)})
}

func (s *Server) search(c *gin.Context) {
	var req models.Search_Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	n := req.N_Results
	if n <= 0 {
		n = DefaultSearchResults
	}

	hits, err := s.Docs.Search(c.Request.Context(), req.Query, n)
	if err != nil {
		s.logf("[TOOLSERVER] Error searching documents: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if hits == nil {
		hits = []models.Search_Hit{}
	}
	c.JSON(http.StatusOK, models.Search_Response{Query: req.Query, Results: hits})
}

func (s *Server) addDocument(c *gin.Context) {
	var req models.Document_Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	doc, err := s.Docs.AddDocument(c.Request.Context(), req.Text, req.Metadata)
	if errors.Is(err, models.ErrValidation) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		s.logf("[TOOLSERVER] Error adding document: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add document"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Document added successfully", "id": doc.ID})
}

func (s *Server) logf(format string, args ...interface{}) {
	logger := s.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf(format, args...)
}
