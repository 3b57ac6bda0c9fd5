package httpclient

import (
	"errors"
	"fmt"
	"time"
)

// ClientError represents different types of REST client errors
type ClientError interface {
	error
	Type() ErrorType
}

// ErrorType defines the category of client error
type ErrorType string

const (
	TransportError       ErrorType = "transport"
	TimeoutError         ErrorType = "timeout"
	StatusError          ErrorType = "status"
	DeserializationError ErrorType = "deserialization"
	CanceledError        ErrorType = "canceled"
	UnexpectedError      ErrorType = "unexpected"
	ValidationError      ErrorType = "validation"
	InterceptorError     ErrorType = "interceptor"
	CloneError           ErrorType = "clone"
)

var (
	// ErrCloneFailure reports a request body that could not be re-read for another send.
	ErrCloneFailure = errors.New("request body cannot be duplicated")
	// ErrNullBody reports a success response whose body decoded to no value.
	ErrNullBody = errors.New("response body decoded to null")
)

// transportError represents network-related errors
type transportError struct {
	message string
	wrapped error
}

func (e *transportError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("transport error: %s: %v", e.message, e.wrapped)
	}
	return fmt.Sprintf("transport error: %s", e.message)
}

func (e *transportError) Type() ErrorType {
	return TransportError
}

func (e *transportError) Unwrap() error {
	return e.wrapped
}

// timeoutError represents a send that exceeded the transport's own deadline
type timeoutError struct {
	message string
	timeout time.Duration
	wrapped error
}

func (e *timeoutError) Error() string {
	return fmt.Sprintf("timeout error: %s (timeout: %v)", e.message, e.timeout)
}

func (e *timeoutError) Type() ErrorType {
	return TimeoutError
}

func (e *timeoutError) Unwrap() error {
	return e.wrapped
}

// statusError represents a response outside the 2xx range
type statusError struct {
	message    string
	statusCode int
	body       []byte
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status error: %s (status: %d)", e.message, e.statusCode)
}

func (e *statusError) Type() ErrorType {
	return StatusError
}

func (e *statusError) StatusCode() int {
	return e.statusCode
}

func (e *statusError) Body() []byte {
	return e.body
}

// deserializationError represents a response body that could not be read or decoded
type deserializationError struct {
	message    string
	statusCode int
	body       []byte
	wrapped    error
}

func (e *deserializationError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("deserialization error: %s (status: %d): %v", e.message, e.statusCode, e.wrapped)
	}
	return fmt.Sprintf("deserialization error: %s (status: %d)", e.message, e.statusCode)
}

func (e *deserializationError) Type() ErrorType {
	return DeserializationError
}

func (e *deserializationError) StatusCode() int {
	return e.statusCode
}

func (e *deserializationError) Body() []byte {
	return e.body
}

func (e *deserializationError) Unwrap() error {
	return e.wrapped
}

// canceledError represents cancellation observed through the call context
type canceledError struct {
	message string
	wrapped error
}

func (e *canceledError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("canceled: %s: %v", e.message, e.wrapped)
	}
	return fmt.Sprintf("canceled: %s", e.message)
}

func (e *canceledError) Type() ErrorType {
	return CanceledError
}

func (e *canceledError) Unwrap() error {
	return e.wrapped
}

// unexpectedError represents failures outside the known taxonomy, including recovered panics
type unexpectedError struct {
	message string
	wrapped error
}

func (e *unexpectedError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("unexpected error: %s: %v", e.message, e.wrapped)
	}
	return fmt.Sprintf("unexpected error: %s", e.message)
}

func (e *unexpectedError) Type() ErrorType {
	return UnexpectedError
}

func (e *unexpectedError) Unwrap() error {
	return e.wrapped
}

// validationError represents caller input that could not be turned into a request
type validationError struct {
	message string
	field   string
	wrapped error
}

func (e *validationError) Error() string {
	msg := fmt.Sprintf("validation error: %s", e.message)
	if e.field != "" {
		msg = fmt.Sprintf("%s (field: %s)", msg, e.field)
	}
	if e.wrapped != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.wrapped)
	}
	return msg
}

func (e *validationError) Type() ErrorType {
	return ValidationError
}

func (e *validationError) Unwrap() error {
	return e.wrapped
}

// interceptorError represents interceptor-related errors
type interceptorError struct {
	message string
	wrapped error
	stage   string
}

func (e *interceptorError) Error() string {
	return fmt.Sprintf("interceptor error: %s (stage: %s): %v", e.message, e.stage, e.wrapped)
}

func (e *interceptorError) Type() ErrorType {
	return InterceptorError
}

func (e *interceptorError) Unwrap() error {
	return e.wrapped
}

// cloneError represents a request that could not be duplicated for a send
type cloneError struct {
	message string
	wrapped error
}

func (e *cloneError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("clone error: %s: %v", e.message, e.wrapped)
	}
	return fmt.Sprintf("clone error: %s", e.message)
}

func (e *cloneError) Type() ErrorType {
	return CloneError
}

func (e *cloneError) Unwrap() []error {
	if e.wrapped == nil {
		return []error{ErrCloneFailure}
	}
	return []error{ErrCloneFailure, e.wrapped}
}

// NewTransportError creates a new transport error
func NewTransportError(message string, wrapped error) ClientError {
	return &transportError{message: message, wrapped: wrapped}
}

// NewTimeoutError creates a new timeout error
func NewTimeoutError(message string, timeout time.Duration, wrapped error) ClientError {
	return &timeoutError{message: message, timeout: timeout, wrapped: wrapped}
}

// NewStatusError creates a new status error
func NewStatusError(message string, statusCode int, body []byte) ClientError {
	return &statusError{message: message, statusCode: statusCode, body: body}
}

// NewDeserializationError creates a new deserialization error
func NewDeserializationError(message string, statusCode int, body []byte, wrapped error) ClientError {
	return &deserializationError{message: message, statusCode: statusCode, body: body, wrapped: wrapped}
}

// NewCanceledError creates a new canceled error
func NewCanceledError(message string, wrapped error) ClientError {
	return &canceledError{message: message, wrapped: wrapped}
}

// NewUnexpectedError creates a new unexpected error
func NewUnexpectedError(message string, wrapped error) ClientError {
	return &unexpectedError{message: message, wrapped: wrapped}
}

// NewValidationError creates a new validation error
func NewValidationError(message, field string, wrapped error) ClientError {
	return &validationError{message: message, field: field, wrapped: wrapped}
}

// NewInterceptorError creates a new interceptor error
func NewInterceptorError(message, stage string, wrapped error) ClientError {
	return &interceptorError{message: message, wrapped: wrapped, stage: stage}
}

// NewCloneError creates a new clone error. It matches ErrCloneFailure.
func NewCloneError(message string, wrapped error) ClientError {
	return &cloneError{message: message, wrapped: wrapped}
}

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errorType ErrorType) bool {
	if err == nil {
		return false
	}
	var clientErr ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type() == errorType
	}
	return false
}

// IsStatusError checks if an error is a status error with a specific status code
func IsStatusError(err error, statusCode int) bool {
	var statusErr *statusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode() == statusCode
	}
	return false
}

// ErrorBody returns the response body carried by a status or deserialization error.
func ErrorBody(err error) ([]byte, bool) {
	var statusErr *statusError
	if errors.As(err, &statusErr) {
		return statusErr.Body(), true
	}
	var decodeErr *deserializationError
	if errors.As(err, &decodeErr) {
		return decodeErr.Body(), true
	}
	return nil, false
}

// IsSuccessStatus checks if a status code represents success (2xx)
func IsSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
