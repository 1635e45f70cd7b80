package pelicula

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/aws/smithy-go"
)

// Kind classifies a failure. Kinds are matched in order: missing field, then
// validation, then everything else.
type Kind int

const (
	KindUnexpected Kind = iota
	KindValidation
	KindMissingField
)

func (k Kind) String() string {
	switch k {
	case KindMissingField:
		return "MissingFieldError"
	case KindValidation:
		return "ValidationError"
	default:
		return "UnexpectedError"
	}
}

func (k Kind) StatusCode() int {
	if k == KindUnexpected {
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}

// Error is the tagged error returned for every failed creation.
type Error struct {
	Kind  Kind
	Field string
	Msg   string
	Err   error
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func missingField(field string) *Error {
	return &Error{
		Kind:  KindMissingField,
		Field: field,
		Msg:   fmt.Sprintf("Campo requerido faltante: '%s'", field),
	}
}

func invalid(field, msg string) *Error {
	return &Error{Kind: KindValidation, Field: field, Msg: msg}
}

// ConfigError reports a missing setting in the process environment.
type ConfigError struct {
	Key string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("la variable de entorno '%s' no está configurada", e.Key)
}

// Classify returns the *Error describing err. Errors without a tag become KindUnexpected.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	for _, kind := range []Kind{KindMissingField, KindValidation} {
		if e := findKind(err, kind); e != nil {
			return e
		}
	}
	return &Error{Kind: KindUnexpected, Err: err}
}

func findKind(err error, kind Kind) *Error {
	if e, ok := err.(*Error); ok && e.Kind == kind {
		return e
	}
	switch u := err.(type) {
	case interface{ Unwrap() error }:
		if inner := u.Unwrap(); inner != nil {
			return findKind(inner, kind)
		}
	case interface{ Unwrap() []error }:
		for _, inner := range u.Unwrap() {
			if e := findKind(inner, kind); e != nil {
				return e
			}
		}
	}
	return nil
}

// ResponseMessage is the text returned to the caller in the "error" field.
func (e *Error) ResponseMessage() string {
	if e.Kind != KindUnexpected {
		return e.Error()
	}
	return fmt.Sprintf("Error interno del servidor: %s (%s)", e.Error(), e.TypeName())
}

// LogMessage is the text logged for the failure. Unexpected failures are logged
// with their own description rather than the response text.
func (e *Error) LogMessage() string {
	if e.Kind != KindUnexpected {
		return e.Error()
	}
	return fmt.Sprintf("Error inesperado: %s", e.Error())
}

// TypeName names the failure for logs: the kind for client errors, the AWS error
// code or the Go type of the root cause for unexpected ones.
func (e *Error) TypeName() string {
	if e.Kind != KindUnexpected || e.Err == nil {
		return e.Kind.String()
	}
	return errorClass(e.Err)
}

func errorClass(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	root := err
	for {
		inner := errors.Unwrap(root)
		if inner == nil {
			break
		}
		root = inner
	}
	return strings.TrimPrefix(reflect.TypeOf(root).String(), "*")
}
