package model

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigurationError means the class setup makes the operation impossible,
// e.g. a weekly schedule without any periods. It is reported before anything
// is attempted.
type ConfigurationError struct {
	ClassID string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	if e.ClassID == "" {
		return "configuration error: " + e.Reason
	}
	return fmt.Sprintf("configuration error for class %s: %s", e.ClassID, e.Reason)
}

// TransportError wraps a failed persistence call.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: http %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is or wraps a *TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// FieldError describes a problem with a single wire field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// ValidationError is returned when an incoming record is malformed.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Error
	}
	return "invalid record: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Error: msg})
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
