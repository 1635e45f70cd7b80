package pelicula

import (
	"encoding/json"

	"github.com/aws/aws-lambda-go/events"
	"github.com/ockendenjo/pelicula/internal/handler"
)

// SQSProcessor creates one record per queue message. The message body is the
// creation body itself.
type SQSProcessor struct {
	creator *Creator
}

func NewSQSProcessor(creator *Creator) *SQSProcessor {
	return &SQSProcessor{creator: creator}
}

func (p *SQSProcessor) ProcessSQSEvent(ctx *handler.Context, body json.RawMessage, _ map[string]events.SQSMessageAttribute) error {
	logger := ctx.GetLogger()

	req, err := ParseBody(body, false)
	if err != nil {
		ctx.Metric("ErroresCreacion").Dimension("tipo_error", Classify(err).Kind.String()).Count()
		return err
	}
	logger.AddParam(fieldTenantID, req.TenantID)

	record, res, err := p.creator.Create(ctx, req)
	if err != nil {
		ctx.Metric("ErroresCreacion").Dimension("tipo_error", KindUnexpected.String()).Count()
		return &requeueError{err: err}
	}

	ctx.Metric("PeliculasCreadas").Count()
	logger.AddParam("uuid", record.ID).AddParam("dynamodb_request_id", res.RequestID)
	logger.Info(msgCreated)
	return nil
}

// requeueError returns a message to the queue. Failures past request validation
// (configuration, storage) may succeed on a later delivery.
type requeueError struct {
	err error
}

func (e *requeueError) Error() string {
	return e.err.Error()
}

func (e *requeueError) Unwrap() error {
	return e.err
}

func (e *requeueError) IsRetryable() bool {
	return true
}

func NewSQSHandler(creator *Creator) handler.SQSHandler {
	return handler.GetSQSHandler[json.RawMessage](NewSQSProcessor(creator), nil)
}
