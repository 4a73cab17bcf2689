// Package logging provides the leveled JSON-line logger used across the
// engine. The engine only ever logs; it never exits the process.
package logging

import (
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level is a log severity.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

var levelNames = map[Level]string{Debug: "debug", Info: "info", Warn: "warn", Error: "error"}
var nameToLevel = map[string]Level{"debug": Debug, "info": Info, "warn": Warn, "error": Error}

// ParseLevel maps a level name to its Level, defaulting to Info.
func ParseLevel(name string) Level {
	if l, ok := nameToLevel[strings.ToLower(name)]; ok {
		return l
	}
	return Info
}

// Logger writes one JSON object per record.
type Logger struct {
	mu     sync.Mutex
	out    io.Writer
	level  Level
	fields map[string]any
}

// New creates a Logger writing to out at the given level.
func New(out io.Writer, level Level) *Logger {
	if out == nil {
		out = os.Stderr
	}
	return &Logger{out: out, level: level, fields: map[string]any{}}
}

// Default returns a stderr logger at the level named by
// CLASSIFIER_LOG_LEVEL, defaulting to info.
func Default() *Logger {
	return New(os.Stderr, ParseLevel(os.Getenv("CLASSIFIER_LOG_LEVEL")))
}

// With returns a child logger carrying extra fields on every record.
func (l *Logger) With(kv ...any) *Logger {
	child := &Logger{out: l.out, level: l.level, fields: make(map[string]any, len(l.fields))}
	for k, v := range l.fields {
		child.fields[k] = v
	}
	for k, v := range toMap(kv) {
		child.fields[k] = v
	}
	return child
}

func (l *Logger) Debug(msg string, kv ...any) { l.write(Debug, msg, kv) }
func (l *Logger) Info(msg string, kv ...any)  { l.write(Info, msg, kv) }
func (l *Logger) Warn(msg string, kv ...any)  { l.write(Warn, msg, kv) }
func (l *Logger) Error(msg string, kv ...any) { l.write(Error, msg, kv) }

func (l *Logger) write(level Level, msg string, kv []any) {
	if l == nil || level < l.level {
		return
	}
	rec := make(map[string]any, 3+len(l.fields)+len(kv)/2)
	rec["ts"] = time.Now().UTC().Format(time.RFC3339)
	rec["level"] = levelNames[level]
	rec["msg"] = msg
	for k, v := range l.fields {
		rec[k] = v
	}
	for k, v := range toMap(kv) {
		rec[k] = v
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	b, err := json.Marshal(rec)
	if err != nil {
		return
	}
	_, _ = l.out.Write(append(b, '\n'))
}

func toMap(kv []any) map[string]any {
	m := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			continue
		}
		m[k] = kv[i+1]
	}
	return m
}
