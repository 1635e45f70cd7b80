package pelicula

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
)

// Event is the invocation payload. Body may be a JSON object (direct invoke) or a
// string holding one (API Gateway proxy integration).
type Event struct {
	Body            json.RawMessage                       `json:"body,omitempty"`
	Headers         map[string]string                     `json:"headers,omitempty"`
	IsBase64Encoded bool                                  `json:"isBase64Encoded,omitempty"`
	RequestContext  *events.APIGatewayProxyRequestContext `json:"requestContext,omitempty"`
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// ParseEvent validates the event and returns the creation request it carries.
func ParseEvent(event Event) (CreationRequest, error) {
	if isNull(event.Body) {
		return CreationRequest{}, invalid(fieldBody, "El campo 'body' es requerido en el evento")
	}
	return ParseBody(event.Body, event.IsBase64Encoded)
}

// ParseBody decodes body, unwrapping it first when it is a JSON string, and checks the
// required fields in order.
func ParseBody(body json.RawMessage, base64Encoded bool) (CreationRequest, error) {
	raw := bytes.TrimSpace(body)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return CreationRequest{}, fmt.Errorf("decode body string: %w", err)
		}
		raw = []byte(s)
		if base64Encoded {
			decoded, err := base64.StdEncoding.DecodeString(s)
			if err != nil {
				return CreationRequest{}, invalid(fieldBody, "El campo 'body' no contiene base64 válido")
			}
			raw = decoded
		}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return CreationRequest{}, invalid(fieldBody, "El campo 'body' debe ser un objeto JSON")
		}
		return CreationRequest{}, fmt.Errorf("decode body: %w", err)
	}
	if fields == nil {
		return CreationRequest{}, invalid(fieldBody, "El campo 'body' debe ser un objeto JSON")
	}

	tenantRaw, ok := fields[fieldTenantID]
	if !ok {
		return CreationRequest{}, missingField(fieldTenantID)
	}
	var tenantID string
	if err := json.Unmarshal(tenantRaw, &tenantID); err != nil || tenantID == "" {
		return CreationRequest{}, invalid(fieldTenantID, "El campo 'tenant_id' debe ser una cadena no vacía")
	}

	payload, ok := fields[fieldPayload]
	if !ok {
		return CreationRequest{}, missingField(fieldPayload)
	}

	return CreationRequest{TenantID: tenantID, Payload: Payload(payload)}, nil
}
