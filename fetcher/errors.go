package fetcher

import (
	"errors"
	"fmt"
)

// ErrTimeout indicates a timeout while issuing a request.
type ErrTimeout struct {
	Err error
}

func (e ErrTimeout) Error() string {
	return fmt.Errorf("timeout: %w", e.Err).Error()
}

func (e ErrTimeout) Unwrap() error {
	return e.Err
}

// ErrConnection indicates a network connectivity failure.
type ErrConnection struct {
	Err error
}

func (e ErrConnection) Error() string {
	return fmt.Errorf("connection: %w", e.Err).Error()
}

func (e ErrConnection) Unwrap() error {
	return e.Err
}

// UpstreamError indicates a non-2xx HTTP status from the search API.
// Snippet carries the start of the response body for diagnosis.
type UpstreamError struct {
	StatusCode int
	Snippet    string
	Err        error
}

func (e UpstreamError) Error() string {
	if e.Snippet != "" {
		return fmt.Sprintf("upstream: HTTP %d: %s", e.StatusCode, e.Snippet)
	}
	return fmt.Sprintf("upstream: HTTP %d", e.StatusCode)
}

func (e UpstreamError) Unwrap() error {
	return e.Err
}

// ParseError indicates a response body that is not valid JSON or lacks
// the expected top-level shape.
type ParseError struct {
	Err error
}

func (e ParseError) Error() string {
	return fmt.Errorf("parse: %w", e.Err).Error()
}

func (e ParseError) Unwrap() error {
	return e.Err
}

func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var timeout ErrTimeout
	if errors.As(err, &timeout) {
		return "timeout"
	}
	var conn ErrConnection
	if errors.As(err, &conn) {
		return "connection"
	}
	var upstream UpstreamError
	if errors.As(err, &upstream) {
		return "upstream"
	}
	var parse ParseError
	if errors.As(err, &parse) {
		return "parse"
	}
	return "other"
}
