// Package pelicula creates película records for a tenant.
package pelicula

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	fieldBody     = "body"
	fieldTenantID = "tenant_id"
	fieldPayload  = "pelicula_datos"
)

// CreationRequest is the validated body of a creation event.
type CreationRequest struct {
	TenantID string
	Payload  Payload
}

// Record is the item written to the table, keyed by (tenant_id, uuid).
type Record struct {
	TenantID string  `json:"tenant_id" dynamodbav:"tenant_id"`
	ID       string  `json:"uuid" dynamodbav:"uuid"`
	Payload  Payload `json:"pelicula_datos" dynamodbav:"pelicula_datos"`
}

// Payload is the caller's película data. It is kept as raw JSON so it is stored and
// returned exactly as received.
type Payload json.RawMessage

func (p Payload) MarshalJSON() ([]byte, error) {
	if len(p) == 0 {
		return []byte("null"), nil
	}
	return p, nil
}

func (p *Payload) UnmarshalJSON(data []byte) error {
	*p = append((*p)[:0], data...)
	return nil
}

// MarshalDynamoDBAttributeValue stores the payload as a native DynamoDB value.
// Numbers keep their JSON text so no precision is lost.
func (p Payload) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	if len(p) == 0 {
		return &types.AttributeValueMemberNULL{Value: true}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(p))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return attributevalue.Marshal(toAttributeNumbers(v))
}

func toAttributeNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		return attributevalue.Number(t.String())
	case map[string]any:
		for k, e := range t {
			t[k] = toAttributeNumbers(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = toAttributeNumbers(e)
		}
		return t
	default:
		return v
	}
}
