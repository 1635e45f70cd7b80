package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"runtime/debug"
	"sync"
	"time"

	"github.com/aws/aws-lambda-go/events"
)

type SQSRecordProcessor[T any] interface {
	ProcessSQSEvent(ctx *Context, record T, attributes map[string]events.SQSMessageAttribute) error
}

// SQSRecordProcessorFunc adapts a plain function to SQSRecordProcessor.
type SQSRecordProcessorFunc[T any] func(ctx *Context, record T, attributes map[string]events.SQSMessageAttribute) error

func (f SQSRecordProcessorFunc[T]) ProcessSQSEvent(ctx *Context, record T, attributes map[string]events.SQSMessageAttribute) error {
	return f(ctx, record, attributes)
}

type SQSHandler = Handler[events.SQSEvent, events.SQSEventResponse]

type LoggerParams struct {
	params map[string]any
}

func (lp *LoggerParams) Add(key string, value any) {
	lp.params[key] = value
}

func NewLoggerParams() *LoggerParams {
	return &LoggerParams{params: make(map[string]any)}
}

type recordOutcome int

const (
	recordProcessed recordOutcome = iota
	recordRetry
	recordDropped
)

// GetSQSHandler returns a lambda handler that processes each SQS message in its own goroutine.
//
// A message is returned to the queue when processing panics, times out or fails with a
// retryable error (see IsErrorRetryable). Other failures are logged and the message is
// acknowledged, since delivering it again cannot succeed.
func GetSQSHandler[T any](processor SQSRecordProcessor[T], addLoggerParams func(lp *LoggerParams, t T)) SQSHandler {

	logInputEvent := GetEnvBool("LOG_INPUT_EVENT")

	process := func(ctx *Context, record events.SQSMessage, outcome chan<- recordOutcome) {
		var genericType T
		logger := ctx.GetLogger()

		defer func() {
			if r := recover(); r != nil {
				strStack := getStackTraceAsSlice(debug.Stack())
				logger.With("panicStack", strStack).Errorf("Goroutine panicked: %v", r)
				outcome <- recordRetry
			}
		}()

		err := json.Unmarshal([]byte(record.Body), &genericType)
		if err != nil {
			logger.Error("JSON unmarshal returned error", "error", err.Error(), "body", record.Body)
			outcome <- recordDropped
			return
		}

		if logInputEvent {
			logger.AddParam("inputEvent", genericType)
		}

		lp := NewLoggerParams()
		if addLoggerParams != nil {
			addLoggerParams(lp, genericType)
		}
		for k, v := range lp.params {
			logger.AddParam(k, v)
		}

		err = processor.ProcessSQSEvent(ctx, genericType, record.MessageAttributes)
		if err != nil {
			logger.AddParam("body", record.Body)
			if IsErrorRetryable(err) {
				logger.Infof("Processing returned error: %s", err.Error())
				outcome <- recordRetry
			} else {
				logger.Errorf("Processing returned error: %s", err.Error())
				outcome <- recordDropped
			}
			return
		}
		outcome <- recordProcessed
	}

	return func(ctx *Context, event events.SQSEvent) (events.SQSEventResponse, error) {
		ctx.GetLogger().disableOutput() //Each SQS message will log its own story

		deadline, hasDeadline := ctx.Deadline()
		if !hasDeadline {
			return events.SQSEventResponse{}, errors.New("context must have a deadline set")
		}
		deadline = deadline.Add(-500 * time.Millisecond)
		subCtx, cancel := context.WithDeadline(ctx, deadline)
		defer cancel()

		routines := make([]*routineData[events.SQSMessage], 0, len(event.Records))
		for _, record := range event.Records {
			//Buffered so a routine finishing after the timeout does not block forever
			c := make(chan recordOutcome, 1)

			routineCtx, closeLog := ctx.Split(subCtx)
			routineCtx.GetLogger().AddParam("messageId", record.MessageId)
			data := routineData[events.SQSMessage]{
				OutcomeChannel: c,
				handlerCtx:     routineCtx,
				closeLog:       closeLog,
				Record:         record,
				TimeoutTimer:   time.NewTimer(time.Until(deadline)),
			}
			routines = append(routines, &data)
			go process(routineCtx, record, c)
		}

		wg := sync.WaitGroup{}
		for _, routine := range routines {
			wg.Go(asyncWaitForResult(routine))
		}
		wg.Wait()

		failures := []events.SQSBatchItemFailure{}
		for _, r := range routines {
			if r.timedOut {
				//The routine may still be writing to its own logger
				timeoutLogger := newStoryLogger(ctx.GetLogger().slogger).AddParam("messageId", r.Record.MessageId)
				timeoutLogger.Info("Message processing timed out; returned to queue for retry")
				failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: r.Record.MessageId})
				continue
			}

			if r.outcome == recordRetry {
				failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: r.Record.MessageId})
				r.handlerCtx.GetLogger().Info("Message returned to queue for retry")
			}
			r.closeLog()
		}

		return events.SQSEventResponse{BatchItemFailures: failures}, nil
	}
}

func getStackTraceAsSlice(stack []byte) []string {
	byteParts := bytes.Split(stack, []byte("\n"))
	strParts := make([]string, 0, len(byteParts))
	for _, part := range byteParts {
		strPart := string(bytes.TrimSpace(part))
		if strPart != "" {
			strParts = append(strParts, strPart)
		}
	}
	return strParts
}

func asyncWaitForResult[T any](routine *routineData[T]) func() {
	return func() {
		select {
		case outcome := <-routine.OutcomeChannel:
			routine.TimeoutTimer.Stop()
			routine.outcome = outcome
		case <-routine.TimeoutTimer.C:
			routine.timedOut = true
		}
	}
}

type routineData[T any] struct {
	OutcomeChannel chan recordOutcome
	Record         T
	//Need a timer for each goroutine because the channel only receives one value
	TimeoutTimer *time.Timer
	outcome      recordOutcome
	timedOut     bool
	handlerCtx   *Context
	closeLog     func()
}
