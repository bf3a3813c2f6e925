package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"regexp"

	"github.com/labstack/echo/v4"

	"datachat/agent"
)

// artifactNamePattern matches the chart filenames the catalog produces.
// Anything else is rejected before touching the filesystem.
var artifactNamePattern = regexp.MustCompile(`^plot_[a-f0-9]+\.png$`)

// Server handles HTTP requests for the session API.
type Server struct {
	app *App
}

// NewServer creates a new server around the application.
func NewServer(app *App) *Server {
	return &Server{app: app}
}

// RegisterRoutes registers routes with the echo server.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/sessions", s.CreateSession)
	e.GET("/api/sessions/:id/messages", s.GetMessages)
	e.POST("/api/sessions/:id/dataset", s.UploadDataset)
	e.POST("/api/sessions/:id/chat", s.Chat)
	e.GET("/api/sessions/:id/report", s.GetReport)

	e.GET("/api/artifacts/:name", s.GetArtifact)

	e.GET("/health", s.Health)
}

// Health returns health status.
func (s *Server) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// CreateSession starts a new empty session.
// POST /api/sessions
func (s *Server) CreateSession(c echo.Context) error {
	session := s.app.CreateSession()
	return c.JSON(http.StatusOK, map[string]string{"session_id": session.ID})
}

// GetMessages returns the stored transcript.
// GET /api/sessions/:id/messages
func (s *Server) GetMessages(c echo.Context) error {
	session, ok := s.app.Session(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "session not found"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"messages": session.Messages(),
	})
}

// UploadDataset loads a tabular file into the session.
// POST /api/sessions/:id/dataset (multipart, field "file")
func (s *Server) UploadDataset(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
	}
	src, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "failed to open upload"})
	}
	defer src.Close()

	result, err := s.app.LoadDataset(c.Param("id"), fileHeader.Filename, src)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "session not found"})
		}
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, result)
}

type chatRequest struct {
	Message string          `json:"message"`
	History json.RawMessage `json:"history,omitempty"`
}

// Chat answers one question against the session's dataset.
// POST /api/sessions/:id/chat
func (s *Server) Chat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	result, err := s.app.Chat(c.Request().Context(), c.Param("id"), req.Message, req.History)
	if err != nil {
		return s.chatError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// chatError maps turn failures onto HTTP statuses. Transport problems with
// the model endpoint are the upstream's fault, everything else terminal is
// ours, and malformed input stays a client error.
func (s *Server) chatError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "session not found"})
	case errors.Is(err, ErrEmptyMessage):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": ErrEmptyMessage.Error()})
	case errors.Is(err, ErrInvalidHistory):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, agent.ErrPlannerTransport):
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

// GetArtifact serves a chart image produced by a previous turn.
// GET /api/artifacts/:name
func (s *Server) GetArtifact(c echo.Context) error {
	name := c.Param("name")
	if !artifactNamePattern.MatchString(name) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid artifact name"})
	}
	path := filepath.Join(s.app.cfg.ArtifactDir, name)
	return c.File(path)
}

// GetReport renders the session as a PDF document.
// GET /api/sessions/:id/report
func (s *Server) GetReport(c echo.Context) error {
	pdfBytes, err := s.app.BuildReport(c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "session not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.Blob(http.StatusOK, "application/pdf", pdfBytes)
}
