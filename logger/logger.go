package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Logger handles application logging. Messages go to the console and,
// once Init has been called, to a per-run log file as well.
type Logger struct {
	mu   sync.Mutex
	zl   zerolog.Logger
	file *os.File
}

// NewLogger creates a Logger that writes to stderr only.
func NewLogger() *Logger {
	return &Logger{zl: consoleLogger()}
}

func consoleLogger() zerolog.Logger {
	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"}
	return zerolog.New(console).With().Timestamp().Logger()
}

// Init adds a log file in the specified directory. Each run gets its own
// numbered file so restarts on the same day never interleave.
func (l *Logger) Init(logDir string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %v", err)
	}

	if l.file != nil {
		l.file.Close()
	}

	dateStr := time.Now().Format("2006-01-02")
	pattern := filepath.Join(logDir, fmt.Sprintf("datachat_%s_*.log", dateStr))
	matches, _ := filepath.Glob(pattern)
	runCount := len(matches) + 1
	filename := filepath.Join(logDir, fmt.Sprintf("datachat_%s_%d.log", dateStr, runCount))

	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %v", err)
	}

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"}
	l.file = f
	l.zl = zerolog.New(zerolog.MultiLevelWriter(console, f)).With().Timestamp().Logger()
	l.zl.Info().Msg("App Started")
	return nil
}

// Log writes a message.
func (l *Logger) Log(message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.zl.Info().Msg(message)
}

// Logf writes a formatted message.
func (l *Logger) Logf(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.zl.Info().Msg(fmt.Sprintf(format, args...))
}

// Errorf writes a formatted message at error level.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.zl.Error().Msg(fmt.Sprintf(format, args...))
}

// Sink returns a plain func(string) view of the logger, for services that
// take an injected log function.
func (l *Logger) Sink() func(string) {
	return l.Log
}

// Close closes the log file, if any.
func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		l.zl.Info().Msg("App stopped.")
		l.file.Close()
		l.file = nil
		l.zl = consoleLogger()
	}
}
