package proactivity

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Register mounts the scheduler status routes on router.
func (s *Scheduler) Register(router *gin.Engine) {
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":     "Jarvis Proactivity Engine",
			"status":      "running",
			"description": "Proaktive Erinnerungen und Benachrichtigungen",
		})
	})
	router.GET("/health", func(c *gin.Context) {
		state := "stopped"
		if s.Running() {
			state = "running"
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "scheduler": state})
	})
	router.GET("/v1/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.Status(time.Now()))
	})
}
