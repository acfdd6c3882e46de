package domain

import "errors"

var (
	// ErrInvalidUser signals a malformed user identifier.
	ErrInvalidUser = errors.New("invalid user id")
	// ErrUnknownResource signals a resource kind outside the closed enumeration.
	ErrUnknownResource = errors.New("unknown resource")
	// ErrInvalidDuration signals an unparseable or negative entitlement duration.
	ErrInvalidDuration = errors.New("invalid entitlement duration")
	// ErrStorageUnavailable signals that the persistence layer could not serve the request.
	// Callers must treat it as a denial.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidPrompt signals an empty or oversized generation prompt.
	ErrInvalidPrompt = errors.New("invalid prompt")
	// ErrUnknownModel signals a model or agent name missing from the catalog.
	ErrUnknownModel = errors.New("unknown model")

	// ErrPremiumRequired is used by transports to report a premium_model_required decision.
	ErrPremiumRequired = errors.New("premium model required")
	// ErrQuotaExceeded is used by transports to report a daily_limit_reached decision.
	ErrQuotaExceeded = errors.New("daily limit reached")
	// ErrGenerationFailed signals a failure of the upstream generation API.
	ErrGenerationFailed = errors.New("generation provider error")
)
