package service

import "errors"

var (
	// ErrInvalidImage marks upload bytes that cannot be decoded.
	ErrInvalidImage = errors.New("invalid image data")

	// ErrModelUnavailable marks a model that failed to load at startup.
	ErrModelUnavailable = errors.New("model not loaded")

	// ErrWorkflowNotConfigured marks a missing workflow API key.
	ErrWorkflowNotConfigured = errors.New("workflow API key not configured")
)
