package server

import (
	"log/slog"
	"net/http"

	glog "github.com/gin-contrib/slog"
	"github.com/gin-gonic/gin"

	botcms "github.com/mvoevodskiy/botcms"
	"github.com/mvoevodskiy/botcms/internal/engine"
	"github.com/mvoevodskiy/botcms/pkg/api"
)

// Server is the HTTP API server fronting the dialogue engine
type Server struct {
	logger *slog.Logger
	engine *engine.Engine
	socket *SocketBridge
}

// NewServer creates an HTTP server and registers its websocket chat
// bridge on the engine
func NewServer(logger *slog.Logger, eng *engine.Engine) *Server {
	s := &Server{
		logger: logger,
		engine: eng,
		socket: NewSocketBridge(logger, eng),
	}
	eng.RegisterBridge(s.socket)
	return s
}

// SetupRoutes configures and returns the HTTP router with all API
// endpoints
func (s *Server) SetupRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(glog.SetLogger(
		glog.WithLogger(func(c *gin.Context, l *slog.Logger) *slog.Logger {
			return s.logger
		}),
	))

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set(
			"Access-Control-Allow-Methods",
			"GET, POST, OPTIONS",
		)
		c.Writer.Header().Set(
			"Access-Control-Allow-Headers",
			"Content-Type, Authorization",
		)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	})

	router.GET("/health", s.handleHealth)
	router.POST("/webhook/:bridge", s.handleWebhook)
	router.GET("/ws", s.handleWebSocket)

	return router
}

// CloseWebSockets closes all active websocket connections
func (s *Server) CloseWebSockets() {
	s.socket.CloseAll()
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, api.HealthResponse{
		Status:  "ok",
		Version: botcms.Version,
		Steps:   s.engine.Scripts().Len(),
		Bridges: s.engine.BridgeNames(),
	})
}
