// Package store writes items to a DynamoDB table.
package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsmiddleware "github.com/aws/aws-sdk-go-v2/aws/middleware"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// PutItemAPI is the part of the DynamoDB client used by Store.
type PutItemAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

type Store struct {
	client PutItemAPI
}

func New(client PutItemAPI) *Store {
	return &Store{client: client}
}

// PutResult is the response metadata of a successful write.
type PutResult struct {
	HTTPStatusCode int    `json:"HTTPStatusCode"`
	RequestID      string `json:"RequestId"`
}

// Put marshals item and writes it to table, replacing any item with the same key.
func (s *Store) Put(ctx context.Context, table string, item any) (PutResult, error) {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return PutResult{}, fmt.Errorf("failed to marshal item to dynamodb map: %w", err)
	}

	out, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(table),
		Item:      av,
	})
	if err != nil {
		return PutResult{}, &WriteError{Table: table, Err: err}
	}

	return resultFromOutput(out), nil
}

func resultFromOutput(out *dynamodb.PutItemOutput) PutResult {
	res := PutResult{HTTPStatusCode: http.StatusOK}
	if out == nil {
		return res
	}
	if id, ok := awsmiddleware.GetRequestIDMetadata(out.ResultMetadata); ok {
		res.RequestID = id
	}
	if raw, ok := awsmiddleware.GetRawResponse(out.ResultMetadata).(*smithyhttp.Response); ok && raw != nil && raw.Response != nil {
		res.HTTPStatusCode = raw.StatusCode
	}
	return res
}

// WriteError is returned when DynamoDB rejects or fails a write.
type WriteError struct {
	Table string
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to put item in table %s: %s", e.Table, e.Err.Error())
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// IsRetryable uses the SDK's own classification of transient and throttling errors.
func (e *WriteError) IsRetryable() bool {
	if errors.Is(e.Err, context.Canceled) {
		return false
	}
	if retry.IsErrorRetryables(retry.DefaultRetryables).IsErrorRetryable(e.Err) == aws.TrueTernary {
		return true
	}
	return retry.IsErrorThrottles(retry.DefaultThrottles).IsErrorThrottle(e.Err) == aws.TrueTernary
}
