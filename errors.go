package taskapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	// Store errors.
	ErrNoStore     = errors.New("taskapi: no store configured")
	ErrStoreClosed = errors.New("taskapi: store closed")

	// Request-shape errors. These fail the whole request before any
	// backing-store call.
	ErrDecode        = errors.New("taskapi: request decode failed")
	ErrNotAllowed    = errors.New("taskapi: not allowed")
	ErrUnimplemented = errors.New("taskapi: not implemented")

	// Per-item errors. These never escalate past their slot.
	ErrInvalidRef   = errors.New("taskapi: invalid reference")
	ErrNotFound     = errors.New("taskapi: thing not found")
	ErrLookupFailed = errors.New("taskapi: lookup failed")
	ErrRateLimited  = errors.New("taskapi: rate limited")

	// Batch-shape errors.
	ErrNestingTooDeep = errors.New("taskapi: batch nesting too deep")
	ErrBatchTooLarge  = errors.New("taskapi: action batch too large")
)

// Code identifies an error class on the wire. Request-level envelopes and
// per-item errors share the same code vocabulary.
type Code string

const (
	CodeBadRequest    Code = "BadRequest"
	CodeForbidden     Code = "Forbidden"
	CodeInvalidRef    Code = "InvalidRef"
	CodeNotFound      Code = "NotFound"
	CodeLookupFailed  Code = "LookupFailed"
	CodeActionFailed  Code = "ActionFailed"
	CodeUnimplemented Code = "Unimplemented"
	CodeRateLimited   Code = "RateLimited"
	CodeTimeout       Code = "Timeout"
	CodeInternal      Code = "Internal"
)

// RequestError is a whole-request failure: the response carries a single
// error envelope and no result slots at all. Contrast with ItemError, which
// occupies one slot while sibling items still resolve.
type RequestError struct {
	Status  int    `json:"httpStatusCode,omitempty"`
	Code    Code   `json:"errorCode,omitempty"`
	Message string `json:"message,omitempty"`
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("taskapi: %s: %s", e.Code, e.Message)
}

// BadRequestf builds a RequestError for a malformed or illegal request body.
func BadRequestf(format string, args ...any) *RequestError {
	return &RequestError{
		Status:  http.StatusBadRequest,
		Code:    CodeBadRequest,
		Message: fmt.Sprintf(format, args...),
	}
}

// Forbiddenf builds a RequestError for an authorization denial.
func Forbiddenf(format string, args ...any) *RequestError {
	return &RequestError{
		Status:  http.StatusForbidden,
		Code:    CodeForbidden,
		Message: fmt.Sprintf(format, args...),
	}
}

// Unimplementedf builds a RequestError for a documented-but-unsupported
// feature, such as single-transaction action batches.
func Unimplementedf(format string, args ...any) *RequestError {
	return &RequestError{
		Status:  http.StatusNotImplemented,
		Code:    CodeUnimplemented,
		Message: fmt.Sprintf(format, args...),
	}
}

// Internalf builds a RequestError for an unexpected server-side fault.
func Internalf(format string, args ...any) *RequestError {
	return &RequestError{
		Status:  http.StatusInternalServerError,
		Code:    CodeInternal,
		Message: fmt.Sprintf(format, args...),
	}
}

// AsRequestError converts err into a RequestError, mapping known sentinel
// errors to their codes and wrapping anything else as Internal.
func AsRequestError(err error) *RequestError {
	var re *RequestError
	if errors.As(err, &re) {
		return re
	}
	switch {
	case errors.Is(err, ErrDecode),
		errors.Is(err, ErrNestingTooDeep),
		errors.Is(err, ErrBatchTooLarge):
		return BadRequestf("%v", err)
	case errors.Is(err, ErrNotAllowed):
		return Forbiddenf("%v", err)
	case errors.Is(err, ErrUnimplemented):
		return Unimplementedf("%v", err)
	default:
		return Internalf("%v", err)
	}
}

// ItemError is the lighter error shape embedded at a slot position inside a
// successful response. It carries no HTTP status: the request as a whole
// still succeeds.
type ItemError struct {
	Code    Code   `json:"errorCode"`
	Message string `json:"message,omitempty"`
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ItemErrorFrom maps err to an ItemError, preserving an existing ItemError
// and classifying sentinel errors by code.
func ItemErrorFrom(err error) *ItemError {
	var ie *ItemError
	if errors.As(err, &ie) {
		return ie
	}
	code := CodeLookupFailed
	switch {
	case errors.Is(err, ErrInvalidRef):
		code = CodeInvalidRef
	case errors.Is(err, ErrNotFound):
		code = CodeNotFound
	case errors.Is(err, ErrRateLimited):
		code = CodeRateLimited
	case errors.Is(err, ErrUnimplemented):
		code = CodeUnimplemented
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		code = CodeTimeout
	}
	return &ItemError{Code: code, Message: err.Error()}
}
