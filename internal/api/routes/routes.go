package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/voxdesk/voxdesk/internal/api/handlers"
	"github.com/voxdesk/voxdesk/internal/api/middleware"
)

type Deps struct {
	Assist    *handlers.AssistHandler
	Knowledge *handlers.KnowledgeHandler
	Session   *handlers.SessionHandler
	WS        *handlers.WSHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "healthy", "timestamp": time.Now().UTC().Format(time.RFC3339)})
	})

	// Protected routes (JWT)
	auth := r.Group("/")
	auth.Use(middleware.JWTAuth())

	auth.GET("/stats", d.Assist.Stats)
	auth.POST("/tts", d.Assist.Synthesize)

	auth.POST("/knowledge", d.Knowledge.Ingest)
	auth.GET("/knowledge", d.Knowledge.List)
	auth.GET("/knowledge/search", d.Knowledge.Search)

	auth.GET("/sessions/:session_id/utterances", d.Session.Utterances)

	// WebSocket
	auth.GET("/ws/audio", d.WS.AudioWS)
}
