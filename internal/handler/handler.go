package handler

import (
	"context"
	"io"
)

type Handler[T any, U any] func(ctx *Context, event T) (U, error)

// withLogger adapts a Handler to the signature lambda.Start expects. Each invocation
// gets a fresh Context logging to logWriter (stdout when nil).
func withLogger[T any, U any](handlerFunc Handler[T, U], logWriter io.Writer) func(context.Context, T) (U, error) {
	return func(ctx context.Context, event T) (U, error) {
		hctx := newInvocationContext(ctx, NewJSONLogger(logWriter))
		defer hctx.finalize()

		response, err := handlerFunc(hctx, event)
		if err != nil {
			hctx.GetLogger().Error("lambda execution failed", "error", err.Error())
		}
		return response, err
	}
}
