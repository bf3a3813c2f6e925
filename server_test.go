package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/labstack/echo/v4"
)

func newTestServer(t *testing.T, fake *scriptedModel) (*Server, *App) {
	t.Helper()
	app := newTestApp(t, fake)
	return NewServer(app), app
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
}

func multipartUpload(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, w.FormDataContentType()
}

func TestServer_Health(t *testing.T) {
	e := echo.New()
	s, _ := newTestServer(t, &scriptedModel{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	if err := s.Health(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]string
	decodeJSON(t, rec, &resp)
	if resp["status"] != "ok" {
		t.Errorf("status = %q", resp["status"])
	}
}

func TestServer_CreateSession(t *testing.T) {
	e := echo.New()
	s, app := newTestServer(t, &scriptedModel{})

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", nil)
	rec := httptest.NewRecorder()
	if err := s.CreateSession(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]string
	decodeJSON(t, rec, &resp)
	if resp["session_id"] == "" {
		t.Fatal("response has no session_id")
	}
	if _, ok := app.Session(resp["session_id"]); !ok {
		t.Error("returned session_id is not registered")
	}
}

func TestServer_GetMessagesUnknownSession(t *testing.T) {
	e := echo.New()
	s, _ := newTestServer(t, &scriptedModel{})

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/nope/messages", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("nope")

	if err := s.GetMessages(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestServer_UploadDataset(t *testing.T) {
	e := echo.New()
	s, app := newTestServer(t, &scriptedModel{})
	session := app.CreateSession()

	body, contentType := multipartUpload(t, "scores.csv", scoresCSV)
	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+session.ID+"/dataset", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(session.ID)

	if err := s.UploadDataset(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp UploadResult
	decodeJSON(t, rec, &resp)
	if resp.Status != "Loaded dataset 'scores.csv' with 5 rows and 3 columns." {
		t.Errorf("status = %q", resp.Status)
	}
	if resp.Rows != 5 || resp.Columns != 3 {
		t.Errorf("shape = %dx%d", resp.Rows, resp.Columns)
	}
}

func TestServer_UploadDatasetMissingFile(t *testing.T) {
	e := echo.New()
	s, app := newTestServer(t, &scriptedModel{})
	session := app.CreateSession()

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+session.ID+"/dataset", strings.NewReader("{}"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(session.ID)

	if err := s.UploadDataset(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestServer_UploadDatasetUnknownSession(t *testing.T) {
	e := echo.New()
	s, _ := newTestServer(t, &scriptedModel{})

	body, contentType := multipartUpload(t, "scores.csv", scoresCSV)
	req := httptest.NewRequest(http.MethodPost, "/api/sessions/nope/dataset", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("nope")

	if err := s.UploadDataset(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestServer_UploadDatasetBadFile(t *testing.T) {
	e := echo.New()
	s, app := newTestServer(t, &scriptedModel{})
	session := app.CreateSession()

	body, contentType := multipartUpload(t, "notes.txt", "plain text")
	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+session.ID+"/dataset", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(session.ID)

	if err := s.UploadDataset(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var resp map[string]string
	decodeJSON(t, rec, &resp)
	if !strings.Contains(resp["error"], "unsupported file type") {
		t.Errorf("error = %q", resp["error"])
	}
}

func chatViaServer(t *testing.T, s *Server, sessionID, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+sessionID+"/chat", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(sessionID)
	if err := s.Chat(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec
}

func TestServer_ChatFlow(t *testing.T) {
	fake := &scriptedModel{script: []*schema.Message{
		toolReply("chart", `{"kind": "hist", "column_x": "x"}`),
		textReply("Here is the distribution."),
	}}
	s, app := newTestServer(t, fake)
	session := app.CreateSession()
	loadScores(t, app, session.ID)

	rec := chatViaServer(t, s, session.ID, `{"message": "plot x"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp ChatResult
	decodeJSON(t, rec, &resp)
	if resp.Reply != "Here is the distribution." {
		t.Errorf("reply = %q", resp.Reply)
	}
	if resp.ArtifactPath == "" || len(resp.ArtifactPaths) != 1 {
		t.Errorf("artifacts = %q / %v", resp.ArtifactPath, resp.ArtifactPaths)
	}
	if len(resp.Messages) != 2 {
		t.Errorf("messages = %d, want 2", len(resp.Messages))
	}
}

func TestServer_ChatWithHistory(t *testing.T) {
	fake := &scriptedModel{script: []*schema.Message{textReply("replayed")}}
	s, app := newTestServer(t, fake)
	session := app.CreateSession()
	loadScores(t, app, session.ID)

	rec := chatViaServer(t, s, session.ID, `{"message": "next", "history": [["q1", "a1"]]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp ChatResult
	decodeJSON(t, rec, &resp)
	if len(resp.Messages) != 4 {
		t.Errorf("messages = %d, want 4 (replayed pair + new turn)", len(resp.Messages))
	}
}

func TestServer_ChatErrorMapping(t *testing.T) {
	t.Run("empty message", func(t *testing.T) {
		s, app := newTestServer(t, &scriptedModel{})
		session := app.CreateSession()
		rec := chatViaServer(t, s, session.ID, `{"message": ""}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		s, _ := newTestServer(t, &scriptedModel{})
		rec := chatViaServer(t, s, "nope", `{"message": "hi"}`)
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("invalid history", func(t *testing.T) {
		s, app := newTestServer(t, &scriptedModel{})
		session := app.CreateSession()
		rec := chatViaServer(t, s, session.ID, `{"message": "hi", "history": {"bad": true}}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("transport error", func(t *testing.T) {
		s, app := newTestServer(t, &scriptedModel{err: errors.New("connection refused")})
		session := app.CreateSession()
		loadScores(t, app, session.ID)
		rec := chatViaServer(t, s, session.ID, `{"message": "hi"}`)
		if rec.Code != http.StatusBadGateway {
			t.Errorf("expected 502, got %d", rec.Code)
		}
	})

	t.Run("iteration limit", func(t *testing.T) {
		fake := &scriptedModel{
			script:     []*schema.Message{toolReply("summary", "{}")},
			repeatLast: true,
		}
		s, app := newTestServer(t, fake)
		session := app.CreateSession()
		loadScores(t, app, session.ID)
		rec := chatViaServer(t, s, session.ID, `{"message": "loop forever"}`)
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d: %s", rec.Code, rec.Body.String())
		}
		var resp map[string]string
		decodeJSON(t, rec, &resp)
		if !strings.Contains(resp["error"], "iteration limit") {
			t.Errorf("error = %q", resp["error"])
		}
	})
}

func TestServer_GetArtifact(t *testing.T) {
	e := echo.New()
	s, app := newTestServer(t, &scriptedModel{})

	name := "plot_0123456789abcdef0123456789abcdef.png"
	content := []byte("\x89PNG\r\n\x1a\nfake")
	if err := os.WriteFile(filepath.Join(app.cfg.ArtifactDir, name), content, 0644); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/artifacts/"+name, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("name")
	c.SetParamValues(name)

	if err := s.GetArtifact(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !bytes.Equal(rec.Body.Bytes(), content) {
		t.Error("served bytes do not match the artifact file")
	}
}

func TestServer_GetArtifactRejectsBadNames(t *testing.T) {
	e := echo.New()
	s, _ := newTestServer(t, &scriptedModel{})

	for _, name := range []string{
		"evil.png",
		"plot_XYZ.png",
		"plot_abc.png.exe",
		"plot_ABCDEF.png",
		"..",
		"plot_.png",
	} {
		req := httptest.NewRequest(http.MethodGet, "/api/artifacts/x", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("name")
		c.SetParamValues(name)

		if err := s.GetArtifact(c); err != nil {
			t.Fatalf("handler error for %q: %v", name, err)
		}
		if rec.Code != http.StatusBadRequest {
			t.Errorf("name %q: expected 400, got %d", name, rec.Code)
		}
	}
}

func TestServer_GetArtifactMissingFile(t *testing.T) {
	e := echo.New()
	s, _ := newTestServer(t, &scriptedModel{})

	name := "plot_00000000000000000000000000000000.png"
	req := httptest.NewRequest(http.MethodGet, "/api/artifacts/"+name, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("name")
	c.SetParamValues(name)

	err := s.GetArtifact(c)
	if !errors.Is(err, echo.ErrNotFound) {
		t.Errorf("expected echo.ErrNotFound, got %v", err)
	}
}

func TestServer_GetReport(t *testing.T) {
	e := echo.New()
	fake := &scriptedModel{script: []*schema.Message{textReply("Summary of scores.")}}
	s, app := newTestServer(t, fake)
	session := app.CreateSession()
	loadScores(t, app, session.ID)
	if _, err := app.Chat(context.Background(), session.ID, "describe", nil); err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/"+session.ID+"/report", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(session.ID)

	if err := s.GetReport(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get(echo.HeaderContentType); got != "application/pdf" {
		t.Errorf("content type = %q", got)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Error("body is not a PDF document")
	}
}

func TestServer_GetReportUnknownSession(t *testing.T) {
	e := echo.New()
	s, _ := newTestServer(t, &scriptedModel{})

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/nope/report", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("nope")

	if err := s.GetReport(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestServer_RoutesRegistered(t *testing.T) {
	e := echo.New()
	s, _ := newTestServer(t, &scriptedModel{})
	s.RegisterRoutes(e)

	registered := make(map[string]bool)
	for _, route := range e.Routes() {
		registered[route.Method+" "+route.Path] = true
	}

	for _, key := range []string{
		"POST /api/sessions",
		"GET /api/sessions/:id/messages",
		"POST /api/sessions/:id/dataset",
		"POST /api/sessions/:id/chat",
		"GET /api/sessions/:id/report",
		"GET /api/artifacts/:name",
		"GET /health",
	} {
		if !registered[key] {
			t.Errorf("route %s not registered", key)
		}
	}
}
