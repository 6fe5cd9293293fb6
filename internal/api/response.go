package api

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/julianstephens/timeblock/internal/errors"
	"github.com/julianstephens/timeblock/internal/logger"
)

// ErrorCode is the machine-readable part of an error body.
type ErrorCode string

const (
	ErrCodeBadRequest      ErrorCode = "BAD_REQUEST"
	ErrCodeUnauthorized    ErrorCode = "UNAUTHORIZED"
	ErrCodeLockContention  ErrorCode = "LOCK_CONTENTION"
	ErrCodeTooManyRequests ErrorCode = "TOO_MANY_REQUESTS"
	ErrCodeInternalError   ErrorCode = "INTERNAL_ERROR"
)

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable,omitempty"`
}

// JSON writes data with the given status.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Success writes a 200 with data as the body.
func Success(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

func Error(w http.ResponseWriter, status int, code ErrorCode, message string) {
	JSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

func Unauthorized(w http.ResponseWriter, message string) {
	Error(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// Conflict writes a retryable 409.
func Conflict(w http.ResponseWriter, message string) {
	JSON(w, http.StatusConflict, ErrorResponse{Error: ErrorDetail{Code: ErrCodeLockContention, Message: message, Retryable: true}})
}

func TooManyRequests(w http.ResponseWriter, message string) {
	w.Header().Set("Retry-After", "5")
	Error(w, http.StatusTooManyRequests, ErrCodeTooManyRequests, message)
}

// InternalError writes a 500 whose body never carries the cause.
func InternalError(w http.ResponseWriter, err error) {
	if err != nil {
		logger.Error("internal error", "error", err)
	}
	Error(w, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
}

// HandleError maps an engine error to a response and reports whether it
// wrote one. keyvals are logged alongside persistence failures.
func HandleError(w http.ResponseWriter, err error, keyvals ...interface{}) bool {
	if err == nil {
		return false
	}
	switch apperrors.KindOf(err) {
	case apperrors.KindValidation:
		BadRequest(w, err.Error())
	case apperrors.KindLockContention:
		Conflict(w, "a scheduling pass is already running for this user")
	default:
		logger.Error("request failed", append(keyvals, "kind", apperrors.KindOf(err), "error", err)...)
		InternalError(w, nil)
	}
	return true
}
