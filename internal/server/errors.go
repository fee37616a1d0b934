package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/spigell/hh-matcher/internal/relevance"
)

// ErrorCode is a machine readable error class of the API.
type ErrorCode string

const (
	ErrorCodeInvalidJSON      ErrorCode = "INVALID_JSON"
	ErrorCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrorCodeRunNotFound      ErrorCode = "RUN_NOT_FOUND"
	ErrorCodeInternalError    ErrorCode = "INTERNAL_ERROR"
)

// ErrorDetail points at the offending part of a request.
type ErrorDetail struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// APIError is the body of every non-2xx response.
type APIError struct {
	Error     string        `json:"error"`
	Code      ErrorCode     `json:"code"`
	Message   string        `json:"message"`
	Details   []ErrorDetail `json:"details,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

var now = time.Now

func sendError(c *gin.Context, status int, code ErrorCode, message string, details ...ErrorDetail) {
	c.AbortWithStatusJSON(status, &APIError{
		Error:     http.StatusText(status),
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: now().UTC(),
	})
}

// sendInputError maps decoding and validation failures of a match request.
func sendInputError(c *gin.Context, err error) {
	var inputErr *relevance.InputError
	if errors.As(err, &inputErr) {
		sendError(c, http.StatusBadRequest, ErrorCodeValidationFailed, "Request validation failed", ErrorDetail{
			Field:   inputErr.Field,
			Message: inputErr.Reason,
			Code:    inputErr.Kind.String(),
		})
		return
	}

	sendError(c, http.StatusBadRequest, ErrorCodeInvalidJSON, err.Error())
}
