package domain

import "errors"

var (
	ErrSurfaceUnavailable  = errors.New("automation surface unavailable")
	ErrElementNotFound     = errors.New("ui element not found")
	ErrInteractionFailed   = errors.New("ui interaction failed")
	ErrServiceError        = errors.New("generation service error")
	ErrSendCancelled       = errors.New("send cancelled by operator")
	ErrNoAutomationSurface = errors.New("no automation surface configured")
)
