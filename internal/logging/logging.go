// Package logging wires zerolog to the console and to a bounded in-memory
// ring of recent lines. The ring backs the /status log view so operators can
// see anomalies without shell access to the process.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const defaultRingSize = 500

// Ring keeps the most recent formatted log lines.
type Ring struct {
	mu    sync.Mutex
	lines []string
	max   int
}

// NewRing creates a ring holding up to max lines. max <= 0 uses the default.
func NewRing(max int) *Ring {
	if max <= 0 {
		max = defaultRingSize
	}
	return &Ring{max: max}
}

// Write appends one console-formatted line, evicting the oldest when full.
func (r *Ring) Write(p []byte) (int, error) {
	line := strings.TrimRight(string(p), "\n")
	r.mu.Lock()
	r.lines = append(r.lines, line)
	if len(r.lines) > r.max {
		r.lines = r.lines[len(r.lines)-r.max:]
	}
	r.mu.Unlock()
	return len(p), nil
}

// Tail returns up to n most recent lines, oldest first.
func (r *Ring) Tail(n int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n <= 0 || n > len(r.lines) {
		n = len(r.lines)
	}
	out := make([]string, n)
	copy(out, r.lines[len(r.lines)-n:])
	return out
}

// New builds the application logger. Console output goes to stdout; every
// line is also captured by the returned Ring.
func New(level string) (zerolog.Logger, *Ring) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	ring := NewRing(defaultRingSize)
	console := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	ringConsole := zerolog.ConsoleWriter{Out: ring, TimeFormat: "15:04:05", NoColor: true}

	logger := zerolog.New(io.MultiWriter(console, ringConsole)).
		Level(lvl).
		With().Timestamp().Logger()
	return logger, ring
}

// ForComponent scopes a logger to one component name.
func ForComponent(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}
