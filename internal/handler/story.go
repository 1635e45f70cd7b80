package handler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	levelKey     = "tipo"
	detailKey    = "log_datos"
	messageKey   = "mensaje"
	timestampKey = "timestamp"
)

var now = time.Now

// NewJSONLogger returns a slog logger whose level attribute is written as "tipo".
// The timestamp is written by the story Logger inside the detail object instead.
func NewJSONLogger(w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return a
			}
			switch a.Key {
			case slog.LevelKey:
				a.Key = levelKey
			case slog.TimeKey:
				return slog.Attr{}
			}
			return a
		},
	}))
}

func timestamp() string {
	return now().UTC().Format(time.RFC3339Nano)
}

func newStoryLogger(logger *slog.Logger) *Logger {
	return &Logger{
		slogger:    logger,
		stages:     make([]string, 0),
		params:     make(map[string]any),
		lineParams: make(map[string]any),
	}
}

// Logger writes JSON lines of the form {"tipo": ..., "log_datos": {...}}.
//
// In combined mode every Info/Error call becomes a stage, and a single line is
// written when the invocation finishes.
type Logger struct {
	slogger      *slog.Logger
	stages       []string
	params       map[string]any
	lineParams   map[string]any
	disabled     bool
	errorLevel   bool
	combinedMode bool
}

// AddStage adds a stage to the logging story
//
// description should be in the form <noun> <verb> <other words>. For example:
// Película creada, OR Validación fallida
func (s *Logger) AddStage(description string) *Logger {
	s.stages = append(s.stages, description)
	return s
}

// AddParam sets a top-level attribute on every line written by this logger.
func (s *Logger) AddParam(key string, value any) *Logger {
	s.params[key] = value
	return s
}

func (s *Logger) With(args ...any) *Logger {
	for i := 0; i < len(args); i += 2 {
		key := fmt.Sprint(args[i])
		var value any
		if i+1 < len(args) {
			value = args[i+1]
		} else {
			value = "FIXME - odd number of params"
		}
		s.AddParam(key, value)
	}
	return s
}

// WithLineParams adds key-value pairs which will be appended to the next stage.
// For example:
//
// `message; a=1; b=foo`
func (s *Logger) WithLineParams(args ...any) *Logger {
	for i := 0; i < len(args); i += 2 {
		key := fmt.Sprint(args[i])
		var value any
		if i+1 < len(args) {
			value = args[i+1]
		} else {
			value = key
			key = "FIXME_ODD_NUM_PARAMS"
		}
		s.lineParams[key] = value
	}
	return s
}

func (s *Logger) disableOutput() {
	s.disabled = true
}

func (s *Logger) withParams() *slog.Logger {
	logger := s.slogger
	for k, v := range s.params {
		logger = logger.With(k, v)
	}
	return logger
}

func (s *Logger) emit(level slog.Level, msg string, details ...any) {
	if s.disabled {
		return
	}
	attrs := make([]any, 0, len(details)+4)
	attrs = append(attrs, messageKey, msg)
	attrs = append(attrs, details...)
	attrs = append(attrs, timestampKey, timestamp())
	s.withParams().Log(context.Background(), level, msg, slog.Group(detailKey, attrs...))
}

// Log writes the combined story line. It does nothing outside combined mode.
func (s *Logger) Log() {
	if s.disabled || !s.combinedMode {
		return
	}
	if len(s.stages) == 0 && len(s.params) == 0 {
		return
	}

	description := strings.Join(s.stages, "; ")
	if len(description) > 100 {
		cut := 100
		for cut > 0 && !utf8.RuneStart(description[cut]) {
			cut--
		}
		description = description[:cut] + "..."
	}

	level := slog.LevelInfo
	if s.errorLevel {
		level = slog.LevelError
	}
	s.emit(level, description, "stages", s.stages)
}

func (s *Logger) Info(msg string, args ...any) {
	if s.combinedMode {
		s.legacyLog(msg, args...)
		return
	}
	s.emit(slog.LevelInfo, msg, args...)
}

func (s *Logger) Infof(format string, args ...any) {
	s.Info(fmt.Sprintf(format, args...))
}

func (s *Logger) Errorf(format string, args ...any) {
	s.Error(fmt.Sprintf(format, args...))
}

func (s *Logger) Debug(msg string, args ...any) {
	if s.combinedMode {
		return
	}
	s.emit(slog.LevelDebug, msg, args...)
}

func (s *Logger) Error(msg string, args ...any) {
	if s.combinedMode {
		s.legacyLog(msg, args...)
		s.errorLevel = true
		return
	}
	s.emit(slog.LevelError, msg, args...)
}

// writeTopLevel writes attributes at the root of the line, outside log_datos.
// CloudWatch embedded metrics need this.
func (s *Logger) writeTopLevel(msg string, args ...any) {
	if s.disabled {
		return
	}
	s.withParams().Info(msg, args...)
}

func formatMsgAndArgs(msg string, args map[string]any) string {
	if len(args) == 0 {
		return msg
	}

	var builder strings.Builder
	builder.WriteString(msg)
	for k, v := range args {
		builder.WriteString("; ")
		builder.WriteString(fmt.Sprintf("%v='%v'", k, v))
	}
	return builder.String()
}

func (s *Logger) legacyLog(msg string, args ...any) {
	if args != nil {
		s.WithLineParams(args...)
	}
	s.AddStage(formatMsgAndArgs(msg, s.lineParams))
	s.lineParams = make(map[string]any)
}
