package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"

	httpmw "github.com/johnquangdev/meeting-recorder/internal/infrastructure/http/middleware"
	"github.com/johnquangdev/meeting-recorder/internal/infrastructure/websocket"
	"github.com/johnquangdev/meeting-recorder/pkg/config"
	"github.com/johnquangdev/meeting-recorder/pkg/jwt"
)

// Router holds all handlers
type Router struct {
	cfg              *config.Config
	recordingHandler *Recording
	hub              *websocket.Hub
	metricsHandler   http.Handler
	authMW           echo.MiddlewareFunc
	logger           *zap.Logger
}

// NewRouter creates a new router with all handlers. hub and metricsHandler may be nil.
func NewRouter(cfg *config.Config, recordingHandler *Recording, hub *websocket.Hub, metricsHandler http.Handler, authMW echo.MiddlewareFunc, logger *zap.Logger) *Router {
	if authMW == nil {
		authMW = httpmw.EchoAuth(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		cfg:              cfg,
		recordingHandler: recordingHandler,
		hub:              hub,
		metricsHandler:   metricsHandler,
		authMW:           authMW,
		logger:           logger,
	}
}

// Setup configures all application routes
func (rt *Router) Setup(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", rt.healthCheck)

	if rt.metricsHandler != nil {
		e.GET(rt.cfg.Metrics.Path, echo.WrapHandler(rt.metricsHandler))
	}

	// Swagger documentation
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// API v1 group
	v1 := e.Group("/v1", rt.authMW)

	rt.setupRecordingRoutes(v1)
	rt.setupEventRoutes(v1)
}

// setupRecordingRoutes configures recording control routes
func (rt *Router) setupRecordingRoutes(g *echo.Group) {
	read := httpmw.RequireScope(jwt.ScopeRead)
	control := httpmw.RequireScope(jwt.ScopeControl)

	recordings := g.Group("/recordings")
	recordings.POST("/start", rt.recordingHandler.Start, control)
	recordings.POST("/stop", rt.recordingHandler.Stop, control)
	recordings.POST("/pause", rt.recordingHandler.Pause, control)
	recordings.POST("/resume", rt.recordingHandler.Resume, control)
	recordings.POST("/reconnect", rt.recordingHandler.Reconnect, control)
	recordings.POST("/retranscribe", rt.recordingHandler.Retranscribe, control)
	recordings.POST("/transcripts", rt.recordingHandler.AddTranscript, control)
	recordings.GET("/transcripts", rt.recordingHandler.Transcripts, read)
	recordings.GET("/status", rt.recordingHandler.Status, read)

	g.GET("/meetings", rt.recordingHandler.ListMeetings, read)
}

// setupEventRoutes configures the websocket event stream
func (rt *Router) setupEventRoutes(g *echo.Group) {
	if rt.hub == nil {
		g.GET("/events", rt.notImplemented)
		return
	}
	g.GET("/events", func(c echo.Context) error {
		return websocket.HandleWebSocket(rt.hub, c, rt.logger)
	}, httpmw.RequireScope(jwt.ScopeRead))
}

// notImplemented returns 501 Not Implemented response
func (rt *Router) notImplemented(c echo.Context) error {
	return c.JSON(http.StatusNotImplemented, map[string]interface{}{
		"error":  "This endpoint is not enabled",
		"path":   c.Request().URL.Path,
		"method": c.Request().Method,
	})
}

// healthCheck returns health status
func (rt *Router) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"environment": rt.cfg.Server.Environment,
	})
}
