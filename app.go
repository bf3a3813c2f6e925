package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"datachat/agent"
	"datachat/config"
	"datachat/dataset"
	"datachat/export"
	"datachat/logger"
)

// ErrSessionNotFound is returned when a session ID is not registered.
var ErrSessionNotFound = errors.New("session not found")

// ErrEmptyMessage is returned when a chat turn carries no question.
var ErrEmptyMessage = errors.New("message is required")

// ErrInvalidHistory is returned when a client-supplied transcript cannot be
// normalized.
var ErrInvalidHistory = errors.New("invalid history")

// ChatSession holds the per-session state: one dataset store, the stored
// transcript, and the chart files produced so far. Turns within a session
// run one at a time; different sessions run concurrently.
type ChatSession struct {
	ID        string
	CreatedAt time.Time

	store *dataset.Store

	// turnMu serializes chat turns for this session.
	turnMu sync.Mutex
	// mu guards messages and artifacts.
	mu        sync.Mutex
	messages  []agent.Message
	artifacts []string
}

func newChatSession() *ChatSession {
	return &ChatSession{
		ID:        uuid.New().String(),
		CreatedAt: time.Now(),
		store:     dataset.NewStore(),
	}
}

// Messages returns a copy of the stored transcript.
func (s *ChatSession) Messages() []agent.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]agent.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Artifacts returns a copy of the chart paths produced in this session.
func (s *ChatSession) Artifacts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.artifacts))
	copy(out, s.artifacts)
	return out
}

func (s *ChatSession) replaceTranscript(messages []agent.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = messages
}

func (s *ChatSession) clearTranscript() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	s.artifacts = nil
}

func (s *ChatSession) appendTurn(question, reply string, artifacts []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages,
		agent.Message{Role: agent.RoleUser, Content: question},
		agent.Message{Role: agent.RoleAssistant, Content: reply},
	)
	s.artifacts = append(s.artifacts, artifacts...)
}

// UploadResult reports a completed dataset load.
type UploadResult struct {
	Status  string `json:"status"`
	Rows    int    `json:"rows"`
	Columns int    `json:"columns"`
}

// ChatResult is the outcome of one chat turn.
type ChatResult struct {
	Reply         string          `json:"reply"`
	ArtifactPath  string          `json:"artifact_path,omitempty"`
	ArtifactPaths []string        `json:"artifact_paths,omitempty"`
	Messages      []agent.Message `json:"messages"`
}

// App struct
type App struct {
	cfg      config.Config
	logger   *logger.Logger
	analyst  *agent.Analyst
	report   *export.ReportService
	sessions map[string]*ChatSession
	mu       sync.Mutex
}

// NewApp wires the chat model, operation catalog, and artifact extractor
// into a ready application. The context covers model construction only.
func NewApp(ctx context.Context, cfg config.Config, l *logger.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %v", err)
	}

	chatModel, err := agent.BuildChatModel(ctx, cfg, l.Sink())
	if err != nil {
		return nil, WrapOperationError("initialize chat model", err)
	}
	catalog, err := agent.NewAnalysisCatalog(cfg.ArtifactDir, l.Sink())
	if err != nil {
		return nil, WrapOperationError("build operation catalog", err)
	}
	extractor := agent.NewArtifactExtractor(cfg.ArtifactDir)
	extractor.SetLogger(l.Sink())

	analyst, err := agent.NewAnalyst(chatModel, catalog, extractor, cfg.MaxIterations, l.Sink())
	if err != nil {
		return nil, WrapOperationError("build analyst", err)
	}

	return &App{
		cfg:      cfg,
		logger:   l,
		analyst:  analyst,
		report:   export.NewReportService(l.Sink()),
		sessions: make(map[string]*ChatSession),
	}, nil
}

// Log writes a message through the application logger.
func (a *App) Log(message string) {
	a.logger.Log(message)
}

// CreateSession registers a new empty session and returns it.
func (a *App) CreateSession() *ChatSession {
	session := newChatSession()
	a.mu.Lock()
	a.sessions[session.ID] = session
	a.mu.Unlock()
	a.logger.Logf("[SESSION] Created session %s", session.ID)
	return session
}

// Session looks up a session by ID.
func (a *App) Session(id string) (*ChatSession, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	session, ok := a.sessions[id]
	return session, ok
}

// SessionIDs returns the registered session IDs, sorted.
func (a *App) SessionIDs() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	ids := make([]string, 0, len(a.sessions))
	for id := range a.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// LoadDataset parses an uploaded file and makes it the session's active
// dataset. The previous dataset and the stored transcript are discarded,
// matching a fresh-start upload flow.
func (a *App) LoadDataset(sessionID, filename string, r io.Reader) (*UploadResult, error) {
	session, ok := a.Session(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}

	ds, err := parseUpload(filename, r)
	if err != nil {
		a.logger.Errorf("[DATASET] Failed to load %s: %v", filename, err)
		return nil, WrapOperationErrorf("load %s", err, filepath.Base(filename))
	}

	session.store.Replace(ds)
	session.clearTranscript()
	a.logger.Logf("[DATASET] Session %s loaded %s: %d rows, %d columns",
		sessionID, ds.Name, ds.Rows(), len(ds.Columns))

	return &UploadResult{
		Status:  fmt.Sprintf("Loaded dataset '%s' with %d rows and %d columns.", ds.Name, ds.Rows(), len(ds.Columns)),
		Rows:    ds.Rows(),
		Columns: len(ds.Columns),
	}, nil
}

// parseUpload picks the loader by file extension.
func parseUpload(filename string, r io.Reader) (*dataset.Dataset, error) {
	name := filepath.Base(filename)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return dataset.FromCSV(r, name)
	case ".xlsx":
		return dataset.FromXLSX(r, name)
	case ".xls":
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read upload: %v", err)
		}
		return dataset.FromXLS(bytes.NewReader(data), name)
	default:
		return nil, fmt.Errorf("unsupported file type %q: use .csv, .xlsx or .xls", filepath.Ext(name))
	}
}

// Chat runs one question through the planning loop. When rawHistory is
// non-empty it replaces the stored transcript after normalization, so a
// client-supplied transcript is authoritative for the turn. Completed turns
// are appended to the transcript; failed turns are not.
func (a *App) Chat(ctx context.Context, sessionID, message string, rawHistory []byte) (*ChatResult, error) {
	session, ok := a.Session(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyMessage
	}

	session.turnMu.Lock()
	defer session.turnMu.Unlock()

	if len(bytes.TrimSpace(rawHistory)) > 0 {
		history, dropped, err := agent.NormalizeTranscript(rawHistory)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidHistory, err)
		}
		if dropped > 0 {
			a.logger.Logf("[CHAT] Session %s: dropped %d malformed history entries", sessionID, dropped)
		}
		session.replaceTranscript(history)
	}

	a.logger.Logf("[CHAT] Session %s: %s", sessionID, message)
	result, err := a.analyst.Run(ctx, session.store, session.Messages(), message)
	if err != nil {
		a.logger.Errorf("[CHAT] Session %s turn failed: %v", sessionID, err)
		return nil, WrapError("Analyst", "Run", err)
	}

	session.appendTurn(message, result.Text, result.Artifacts)
	a.logger.Logf("[CHAT] Session %s answered in %d iterations, %d artifacts",
		sessionID, result.Iterations, len(result.Artifacts))

	out := &ChatResult{
		Reply:         result.Text,
		ArtifactPaths: result.Artifacts,
		Messages:      session.Messages(),
	}
	if len(result.Artifacts) > 0 {
		out.ArtifactPath = result.Artifacts[0]
	}
	return out, nil
}

// BuildReport renders the session's current state as a PDF document.
func (a *App) BuildReport(sessionID string) ([]byte, error) {
	session, ok := a.Session(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}

	data := export.ReportData{
		Title:       "Data Analysis Report",
		Turns:       reportTurns(session.Messages()),
		ChartPaths:  session.Artifacts(),
		GeneratedAt: time.Now(),
	}
	if ds, err := session.store.Current(); err == nil {
		data.DatasetName = ds.Name
		data.Rows = ds.Rows()
		for _, c := range ds.Columns {
			data.Columns = append(data.Columns, export.ColumnInfo{
				Name:    c.Name,
				Dtype:   c.Dtype(),
				Missing: c.MissingCount(),
			})
		}
	}

	pdfBytes, err := a.report.BuildPDF(data)
	if err != nil {
		return nil, WrapOperationError("build session report", err)
	}
	return pdfBytes, nil
}

func reportTurns(messages []agent.Message) []export.Turn {
	turns := make([]export.Turn, 0, len(messages))
	for _, m := range messages {
		turns = append(turns, export.Turn{Role: m.Role, Content: m.Content})
	}
	return turns
}
