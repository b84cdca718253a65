package model

import "fmt"

// ValidationError represents caller-side precondition failures
type ValidationError struct {
	Field   string
	Value   interface{}
	Rule    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("validation failed on %s: %s (value=%v, rule=%s)", e.Field, e.Message, e.Value, e.Rule)
	}
	return fmt.Sprintf("validation failed on %s: %s (rule=%s)", e.Field, e.Message, e.Rule)
}

// NewValidationError creates a new validation error
func NewValidationError(field string, value interface{}, rule, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Rule:    rule,
		Message: message,
	}
}

// RequestError represents a failed call to a collaborator service
// (Supabase, PDF API) with enough context to diagnose it.
type RequestError struct {
	Service string
	Op      string
	Status  int
	Message string
	Cause   error
}

func (e *RequestError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Service, e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Service, e.Op, e.Message)
}

func (e *RequestError) Unwrap() error {
	return e.Cause
}

// NewRequestError creates a new request error
func NewRequestError(service, op string, status int, message string, cause error) *RequestError {
	return &RequestError{
		Service: service,
		Op:      op,
		Status:  status,
		Message: message,
		Cause:   cause,
	}
}
