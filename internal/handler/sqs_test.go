package handler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSQSHandler(t *testing.T) {

	twoRecordEvent := events.SQSEvent{Records: []events.SQSMessage{
		{MessageId: "5a3e8884-4ff1-46f1-8617-b3f483a79956", Body: `{"foo":1}`},
		{MessageId: "2ecc59ae-ea1a-462a-8fca-d835858fc470", Body: `{"foo":2}`},
	}}

	noFailures := events.SQSEventResponse{BatchItemFailures: []events.SQSBatchItemFailure{}}

	testcases := []struct {
		name          string
		processRecord SQSRecordProcessorFunc[inputEvent]
		checkResult   func(t *testing.T, result events.SQSEventResponse)
		event         events.SQSEvent
	}{
		{
			name: "All messages processed",
			processRecord: func(ctx *Context, record inputEvent, attributes map[string]events.SQSMessageAttribute) error {
				return nil
			},
			checkResult: func(t *testing.T, result events.SQSEventResponse) {
				assert.Equal(t, noFailures, result)
			},
			event: twoRecordEvent,
		},
		{
			name: "Retryable failure is returned to the queue",
			processRecord: func(ctx *Context, record inputEvent, attributes map[string]events.SQSMessageAttribute) error {
				if record.Foo == 2 {
					return &testRetryableError{retryable: true}
				}
				return nil
			},
			checkResult: func(t *testing.T, result events.SQSEventResponse) {
				expected := events.SQSEventResponse{BatchItemFailures: []events.SQSBatchItemFailure{
					{ItemIdentifier: "2ecc59ae-ea1a-462a-8fca-d835858fc470"},
				}}
				assert.Equal(t, expected, result)
			},
			event: twoRecordEvent,
		},
		{
			name: "Non-retryable failure is dropped",
			processRecord: func(ctx *Context, record inputEvent, attributes map[string]events.SQSMessageAttribute) error {
				return errors.New("something bad happened")
			},
			checkResult: func(t *testing.T, result events.SQSEventResponse) {
				assert.Equal(t, noFailures, result)
			},
			event: twoRecordEvent,
		},
		{
			name: "All messages fail with retryable errors",
			processRecord: func(ctx *Context, record inputEvent, attributes map[string]events.SQSMessageAttribute) error {
				return &testRetryableError{retryable: true}
			},
			checkResult: func(t *testing.T, result events.SQSEventResponse) {
				errorMap := map[string]bool{}
				for _, failure := range result.BatchItemFailures {
					errorMap[failure.ItemIdentifier] = true
				}
				assert.True(t, errorMap["5a3e8884-4ff1-46f1-8617-b3f483a79956"])
				assert.True(t, errorMap["2ecc59ae-ea1a-462a-8fca-d835858fc470"])
			},
			event: twoRecordEvent,
		},
		{
			name: "Invalid JSON body is dropped",
			processRecord: func(ctx *Context, record inputEvent, attributes map[string]events.SQSMessageAttribute) error {
				return nil
			},
			checkResult: func(t *testing.T, result events.SQSEventResponse) {
				assert.Equal(t, noFailures, result)
			},
			event: events.SQSEvent{Records: []events.SQSMessage{
				{MessageId: "25209c2d-32e5-4117-9c09-dc4d3e954ade", Body: `{"foo":`},
			}},
		},
		{
			name: "Panic is returned to the queue",
			processRecord: func(ctx *Context, record inputEvent, attributes map[string]events.SQSMessageAttribute) error {
				panic("boom")
			},
			checkResult: func(t *testing.T, result events.SQSEventResponse) {
				expected := events.SQSEventResponse{BatchItemFailures: []events.SQSBatchItemFailure{
					{ItemIdentifier: "25209c2d-32e5-4117-9c09-dc4d3e954ade"},
				}}
				assert.Equal(t, expected, result)
			},
			event: events.SQSEvent{Records: []events.SQSMessage{
				{MessageId: "25209c2d-32e5-4117-9c09-dc4d3e954ade", Body: `{"foo":1}`},
			}},
		},
		{
			name: "One message time-out",
			processRecord: func(ctx *Context, record inputEvent, attributes map[string]events.SQSMessageAttribute) error {
				if record.Foo == 1 {
					time.Sleep(5 * time.Second)
				}
				return nil
			},
			checkResult: func(t *testing.T, result events.SQSEventResponse) {
				expected := events.SQSEventResponse{BatchItemFailures: []events.SQSBatchItemFailure{
					{ItemIdentifier: "5a3e8884-4ff1-46f1-8617-b3f483a79956"},
				}}
				assert.Equal(t, expected, result)
			},
			event: twoRecordEvent,
		},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			deadlineCtx, cancel := context.WithDeadline(context.Background(), time.Now().Add(2*time.Second))
			defer cancel()
			ctx := GetWithSlogLogger(deadlineCtx, NewJSONLogger(io.Discard))

			handler := GetSQSHandler[inputEvent](tc.processRecord, nil)
			result, err := handler(ctx, tc.event)
			assert.Nil(t, err)
			tc.checkResult(t, result)
		})
	}
}

func TestGetSQSHandler_RequiresDeadline(t *testing.T) {
	ctx := GetWithSlogLogger(context.Background(), NewJSONLogger(io.Discard))
	handler := GetSQSHandler[inputEvent](SQSRecordProcessorFunc[inputEvent](func(ctx *Context, record inputEvent, attributes map[string]events.SQSMessageAttribute) error {
		return nil
	}), nil)

	_, err := handler(ctx, events.SQSEvent{})
	assert.Error(t, err)
}

func TestGetSQSHandler_LogsOneStoryPerMessage(t *testing.T) {
	t.Setenv("LOG_INPUT_EVENT", "true")
	buf := &bytes.Buffer{}

	deadlineCtx, cancel := context.WithDeadline(context.Background(), time.Now().Add(2*time.Second))
	defer cancel()
	ctx := GetWithSlogLogger(deadlineCtx, NewJSONLogger(buf))

	processor := SQSRecordProcessorFunc[inputEvent](func(ctx *Context, record inputEvent, attributes map[string]events.SQSMessageAttribute) error {
		ctx.GetLogger().Info("Película creada")
		return nil
	})
	addParams := func(lp *LoggerParams, event inputEvent) {
		lp.Add("foo", event.Foo)
	}

	handler := GetSQSHandler[inputEvent](processor, addParams)
	_, err := handler(ctx, events.SQSEvent{Records: []events.SQSMessage{
		{MessageId: "25209c2d-32e5-4117-9c09-dc4d3e954ade", Body: `{"foo":7}`},
	}})
	require.NoError(t, err)

	lines := readLines(t, buf)
	require.Len(t, lines, 1)
	line := lines[0]
	assert.Equal(t, "INFO", line["tipo"])
	assert.Equal(t, "25209c2d-32e5-4117-9c09-dc4d3e954ade", line["messageId"])
	assert.Equal(t, float64(7), line["foo"])
	assert.Equal(t, map[string]any{"foo": float64(7)}, line["inputEvent"])
	assert.Equal(t, "Película creada", line["log_datos"].(map[string]any)["mensaje"])
}
