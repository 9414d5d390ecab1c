package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ridebook/internal/domain"
	"ridebook/internal/middleware"
	"ridebook/internal/repository"
	"ridebook/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	if code == http.StatusInternalServerError {
		_ = c.Error(err)
		c.JSON(code, ErrorResponse{Error: "internal server error", Code: errorCode(code)})
		return
	}
	c.JSON(code, ErrorResponse{Error: err.Error(), Code: errorCode(code)})
}

// respondBadRequest sends a 400 for malformed input that never reached a service.
func respondBadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Code: errorCode(http.StatusBadRequest)})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidRoute),
		errors.Is(err, service.ErrPriceTooLow),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrUnknownLocation),
		errors.Is(err, service.ErrInvalidDistance),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrInvalidRideID),
		errors.Is(err, service.ErrInvalidUserID),
		errors.Is(err, service.ErrInvalidUser):
		return http.StatusBadRequest

	// Ledger refusal
	case errors.Is(err, service.ErrInsufficientBalance):
		return http.StatusPaymentRequired

	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden

	// Conflict errors
	case errors.Is(err, service.ErrAlreadyAccepted),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, repository.ErrDuplicate):
		return http.StatusConflict

	default:
		return http.StatusInternalServerError
	}
}

func errorCode(status int) string {
	switch status {
	case http.StatusNotFound:
		return "not_found"
	case http.StatusBadRequest:
		return "invalid_request"
	case http.StatusPaymentRequired:
		return "insufficient_balance"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusConflict:
		return "conflict"
	}
	return "internal"
}

// actorFrom returns the authenticated actor or aborts with 401.
func actorFrom(c *gin.Context) (domain.Actor, bool) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthenticated", Code: "unauthenticated"})
	}
	return actor, ok
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
