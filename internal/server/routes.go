package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints (no identity required)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.echo.GET("/version", s.handleVersion)

	api := s.echo.Group("/api")
	api.GET("/status", s.handleStatus)
	api.GET("/sessions", s.handleListSessions)
	api.GET("/targets/:kind", s.handleControllerMapping)

	ch := api.Group("/channels/:channel")
	ch.GET("/session", s.handleGetSession)
	ch.POST("/session", s.handleStartSession, s.requireUser)
	ch.DELETE("/session", s.handleStopSession, s.requireUser)

	ch.POST("/players", s.handleJoinPlayer, s.requireUser)
	ch.DELETE("/players", s.handleLeavePlayer, s.requireUser)
	ch.POST("/spectators", s.handleJoinSpectator, s.requireUser)
	ch.DELETE("/spectators", s.handleLeaveSpectator, s.requireUser)

	ch.POST("/input", s.handleInput, s.requireUser, s.inputLimiter)
	ch.POST("/pause", s.handleTogglePause, s.requireUser)
	ch.POST("/game", s.handleLoadGame, s.requireUser)
	ch.POST("/states/:slot/save", s.handleSaveState, s.requireUser)
	ch.POST("/states/:slot/load", s.handleLoadState, s.requireUser)

	// Hosting client callback for awaited relay commands
	s.echo.POST("/internal/relay/replies/:id", s.handleRelayReply)

	// Realtime event stream
	s.echo.GET("/ws/channels/:channel", s.handleWebSocket)
}
