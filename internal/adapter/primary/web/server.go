package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"announce-helper/internal/domain"
	"announce-helper/internal/logging"
	"announce-helper/internal/usecase"
)

// Server is a primary adapter that exposes the control panel over HTTP.
// It depends on the panel use case (primary port).
type Server struct {
	panel  usecase.PanelUseCase
	server *http.Server
}

// NewServer creates the HTTP server bound to addr.
func NewServer(panel usecase.PanelUseCase, addr string) *Server {
	srv := &Server{panel: panel}
	srv.server = &http.Server{
		Addr:              addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv
}

// Routes builds the router.
func (s *Server) Routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), loggingMiddleware())

	router.GET("/", s.handleRoot)
	router.GET("/ws", s.handleStream)

	api := router.Group("/api")
	{
		api.GET("/state", s.handleState)
		api.PUT("/settings", s.handleUpdateSettings)
		api.POST("/run", s.handleRun)
		api.POST("/devices/refresh", s.handleRefreshDevices)
		api.POST("/log/refresh", s.handleRefreshLog)
		api.DELETE("/log", s.handleClearLog)
		api.POST("/command-file", s.handleCommandFile)
		api.PUT("/schedule", s.handleSchedule)
		api.POST("/reset", s.handleReset)
	}
	return router
}

// Start blocks and serves HTTP traffic.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleRoot(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(indexHTML))
}

func (s *Server) handleState(c *gin.Context) {
	respondJSON(c, http.StatusOK, s.panel.Snapshot())
}

func (s *Server) handleUpdateSettings(c *gin.Context) {
	var req usecase.SettingsUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, errors.New("invalid JSON"))
		return
	}
	if _, err := s.panel.UpdateSettings(req); err != nil {
		respondError(c, statusFor(err), err)
		return
	}
	respondJSON(c, http.StatusOK, s.panel.Snapshot())
}

// handleRun starts a test session and returns without waiting for it.
func (s *Server) handleRun(c *gin.Context) {
	if _, err := s.panel.RunTest(c.Request.Context()); err != nil {
		respondError(c, statusFor(err), err)
		return
	}
	respondJSON(c, http.StatusAccepted, s.panel.Snapshot())
}

func (s *Server) handleRefreshDevices(c *gin.Context) {
	if err := s.panel.RefreshDevices(c.Request.Context()); err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondJSON(c, http.StatusOK, s.panel.Snapshot())
}

func (s *Server) handleRefreshLog(c *gin.Context) {
	if err := s.panel.RefreshLog(); err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondJSON(c, http.StatusOK, s.panel.Snapshot())
}

func (s *Server) handleClearLog(c *gin.Context) {
	if err := s.panel.ClearLog(); err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondJSON(c, http.StatusOK, s.panel.Snapshot())
}

type commandFilePayload struct {
	Path string `json:"path" binding:"required"`
}

func (s *Server) handleCommandFile(c *gin.Context) {
	var req commandFilePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, errors.New("path is required"))
		return
	}
	if err := s.panel.SetCommandFile(req.Path); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	respondJSON(c, http.StatusOK, s.panel.Snapshot())
}

type schedulePayload struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

func (s *Server) handleSchedule(c *gin.Context) {
	var req schedulePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, errors.New("enabled is required"))
		return
	}
	if err := s.panel.ToggleSchedule(c.Request.Context(), *req.Enabled); err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondJSON(c, http.StatusOK, s.panel.Snapshot())
}

func (s *Server) handleReset(c *gin.Context) {
	if err := s.panel.ResetToDefault(); err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondJSON(c, http.StatusOK, s.panel.Snapshot())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrSessionActive):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidVolume),
		errors.Is(err, domain.ErrInvalidTuning),
		errors.Is(err, domain.ErrEmptyCommand):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondJSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

func respondError(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logging.Debugf("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
