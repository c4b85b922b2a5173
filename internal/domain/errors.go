package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrBadRequest is returned when required input is missing.
	ErrBadRequest = errors.New("bad request")
	// ErrInvalidImage is returned when an image fails format or size validation.
	ErrInvalidImage = errors.New("invalid image")
	// ErrUnauthorized is returned when the API key is missing or not allowed.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrSessionNotFound is returned when a message is added to an absent session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrStreamDecode marks an upstream stream record that could not be decoded.
	ErrStreamDecode = errors.New("stream decode error")
)

// UpstreamError is a non-success response from the model API.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("Claude API error: %d %s", e.StatusCode, e.Body)
}
