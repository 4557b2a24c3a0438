// Package logconsole captures console output produced by user scripts so the
// caller can surface it verbatim.
package logconsole

import (
	"fmt"
	"strings"
	"sync"
)

type LogLevel int32

const (
	LogLevelDebug LogLevel = 0
	LogLevelInfo  LogLevel = 1
	LogLevelWarn  LogLevel = 2
	LogLevelError LogLevel = 3
)

var levelTags = map[LogLevel]string{
	LogLevelDebug: "[DEBUG]",
	LogLevelInfo:  "[INFO]",
	LogLevelWarn:  "[WARN]",
	LogLevelError: "[ERROR]",
}

func (l LogLevel) Tag() string {
	if tag, ok := levelTags[l]; ok {
		return tag
	}
	return "[INFO]"
}

type Line struct {
	Level   LogLevel
	Message string
}

// String renders the line the way the result consumer displays it,
// e.g. "[ERROR] connection refused".
func (l Line) String() string {
	return l.Level.Tag() + " " + l.Message
}

// Console collects lines for one script execution. Safe for concurrent use;
// script statements run serially but the worker and timeouts do not.
type Console struct {
	mu    sync.Mutex
	lines []Line
}

func New() *Console {
	return &Console{}
}

func (c *Console) Append(level LogLevel, args ...any) {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprint(a)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, Line{Level: level, Message: strings.Join(parts, " ")})
}

func (c *Console) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}
