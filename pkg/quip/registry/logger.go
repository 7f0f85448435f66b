package registry

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Logger receives the output of print and other side-effecting selectors.
type Logger interface {
	Log(values ...any)
	LogLine(values ...any)
}

// DefaultLogger writes to stdout. Contexts without a logger use it.
var DefaultLogger Logger = WriterLogger(os.Stdout)

type writerLogger struct{ w io.Writer }

func (l writerLogger) Log(values ...any)     { io.WriteString(l.w, joinValues(values)) }
func (l writerLogger) LogLine(values ...any) { io.WriteString(l.w, joinValues(values)+"\n") }

// WriterLogger logs to w, values separated by spaces.
func WriterLogger(w io.Writer) Logger { return writerLogger{w: w} }

type nullLogger struct{}

func (nullLogger) Log(...any)     {}
func (nullLogger) LogLine(...any) {}

// NullLogger discards everything.
func NullLogger() Logger { return nullLogger{} }

// BufferedLogger keeps logged lines in memory. It is safe for concurrent runs.
type BufferedLogger struct {
	mu      sync.Mutex
	lines   []string
	partial strings.Builder
}

func NewBufferedLogger() *BufferedLogger { return &BufferedLogger{} }

func (l *BufferedLogger) Log(values ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.partial.WriteString(joinValues(values))
}

// LogLine completes the current line; text from earlier Log calls starts it.
func (l *BufferedLogger) LogLine(values ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, l.partial.String()+joinValues(values))
	l.partial.Reset()
}

// Lines returns the completed lines.
func (l *BufferedLogger) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}

// String returns everything logged, including an unfinished line.
func (l *BufferedLogger) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var sb strings.Builder
	for _, line := range l.lines {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	sb.WriteString(l.partial.String())
	return sb.String()
}

func joinValues(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, " ")
}
