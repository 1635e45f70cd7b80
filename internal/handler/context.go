package handler

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/lambdacontext"
)

// Context is passed to every Handler. It carries the invocation's logger and
// any metrics recorded while handling the event.
type Context struct {
	context.Context
	storyLogger *Logger
	metrics     []*MetricBuilder
}

func (h *Context) GetLogger() *Logger {
	if h.storyLogger == nil {
		h.storyLogger = newStoryLogger(slog.Default())
	}
	return h.storyLogger
}

// GetWithSlogLogger wraps ctx in a Context that logs through logger.
func GetWithSlogLogger(ctx context.Context, logger *slog.Logger) *Context {
	return &Context{
		Context:     ctx,
		storyLogger: newStoryLogger(logger),
	}
}

func newInvocationContext(ctx context.Context, logger *slog.Logger) *Context {
	hctx := GetWithSlogLogger(ctx, logger)
	l := hctx.GetLogger()
	if traceID := getTraceID(); traceID != "" {
		l.AddParam("trace_id", traceID)
	}
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		l.AddParam("aws_request_id", lc.AwsRequestID)
	}
	return hctx
}

func getTraceID() string {
	traceID := os.Getenv("_X_AMZN_TRACE_ID")
	if traceID == "" {
		return ""
	}
	parts := strings.Split(traceID, ";")
	return strings.TrimPrefix(parts[0], "Root=")
}

// Split returns a child Context for work that should log its own combined story,
// e.g. one SQS message. The returned func writes the story.
func (h *Context) Split(ctx context.Context) (*Context, func()) {
	logger := h.GetLogger()
	splitCtx := &Context{
		Context:     ctx,
		storyLogger: newStoryLogger(logger.slogger),
	}
	for k, v := range logger.params {
		splitCtx.storyLogger.AddParam(k, v)
	}
	splitCtx.storyLogger.combinedMode = true
	return splitCtx, splitCtx.finalize
}

func (h *Context) finalize() {
	h.flushMetrics()
	h.GetLogger().Log()
}
