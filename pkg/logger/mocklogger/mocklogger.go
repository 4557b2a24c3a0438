// Package mocklogger provides a capturing slog handler for tests.
package mocklogger

import (
	"context"
	"log/slog"
	"sync"
)

// MockHandler records every message and level it handles.
type MockHandler struct {
	mu             sync.Mutex
	LoggedMessages []string
	LoggedLevels   []slog.Level
}

func (h *MockHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func (h *MockHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.LoggedMessages = append(h.LoggedMessages, r.Message)
	h.LoggedLevels = append(h.LoggedLevels, r.Level)
	return nil
}

func (h *MockHandler) WithAttrs(_ []slog.Attr) slog.Handler { return h }

func (h *MockHandler) WithGroup(_ string) slog.Handler { return h }

// Messages returns a copy of the captured messages.
func (h *MockHandler) Messages() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.LoggedMessages))
	copy(out, h.LoggedMessages)
	return out
}

// NewMockLogger returns a logger backed by a fresh MockHandler.
func NewMockLogger() *slog.Logger {
	return slog.New(&MockHandler{})
}

// NewMockLoggerWithHandler returns both the logger and its handler so tests
// can assert on captured output.
func NewMockLoggerWithHandler() (*slog.Logger, *MockHandler) {
	h := &MockHandler{}
	return slog.New(h), h
}
