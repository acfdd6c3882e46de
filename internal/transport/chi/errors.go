package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/quickai/quickai/internal/domain"
)

// ErrorCode is the machine-readable error code of an API response.
type ErrorCode string

// API error codes.
const (
	CodeBadRequest           ErrorCode = "bad_request"
	CodeUnauthorized         ErrorCode = "unauthorized"
	CodeForbidden            ErrorCode = "forbidden"
	CodeRateLimited          ErrorCode = "rate_limited"
	CodeInvalidUser          ErrorCode = "invalid_user"
	CodeUnknownResource      ErrorCode = "unknown_resource"
	CodeInvalidDuration      ErrorCode = "invalid_duration"
	CodeInvalidPrompt        ErrorCode = "invalid_prompt"
	CodeUnknownModel         ErrorCode = "unknown_model"
	CodePremiumModelRequired ErrorCode = "premium_model_required"
	CodeDailyLimitReached    ErrorCode = "daily_limit_reached"
	CodeNotFound             ErrorCode = "not_found"
	CodeStorageUnavailable   ErrorCode = "storage_unavailable"
	CodeGenerationFailed     ErrorCode = "generation_failed"
	CodeInternalError        ErrorCode = "internal_error"
)

type errorResponse struct {
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Remaining  *int64      `json:"remaining,omitempty"`
	FreeModels []modelJSON `json:"free_models,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidUser,
		domain.ErrUnknownResource,
		domain.ErrInvalidDuration,
		domain.ErrInvalidPrompt,
		domain.ErrUnknownModel,
		domain.ErrPremiumRequired,
		domain.ErrQuotaExceeded,
		domain.ErrNotFound,
		domain.ErrStorageUnavailable,
		domain.ErrGenerationFailed,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}
