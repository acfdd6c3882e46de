package quickai

import "github.com/quickai/quickai/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidUser        = domain.ErrInvalidUser
	ErrUnknownResource    = domain.ErrUnknownResource
	ErrInvalidDuration    = domain.ErrInvalidDuration
	ErrStorageUnavailable = domain.ErrStorageUnavailable
)
