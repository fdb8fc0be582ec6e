// Package httputil provides HTTP utility functions for request and response handling.
package httputil

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/edibox/internal/errors"
)

// ErrorResponse represents a structured error response.
type ErrorResponse struct {
	Error    string              `json:"error"`
	Message  string              `json:"message,omitempty"`
	Problems []apperrors.Problem `json:"problems,omitempty"`
}

// StatusForKind maps an error kind to its HTTP status code.
func StatusForKind(kind string) int {
	switch kind {
	case apperrors.KindValidation:
		return http.StatusUnprocessableEntity
	case apperrors.KindInvalidState, apperrors.KindAlreadyExists:
		return http.StatusConflict
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindTransmission:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// HandleErrorGin maps domain errors to HTTP status codes and writes a JSON response.
// Internal and integrity errors are reported without details; the full error is logged.
func HandleErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if err == nil {
		return
	}

	kind := apperrors.Kind(err)
	statusCode := StatusForKind(kind)
	errorResponse := ErrorResponse{
		Error:    kind,
		Message:  err.Error(),
		Problems: apperrors.Problems(err),
	}

	switch kind {
	case apperrors.KindInternal:
		errorResponse.Message = "An internal error occurred"
	case apperrors.KindIntegrity:
		errorResponse.Message = "Stored content does not match its recorded hash"
	}

	if logger != nil {
		level := slog.LevelWarn
		if statusCode >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "request failed",
			slog.Int("status_code", statusCode),
			slog.String("error_code", kind),
			slog.Any("error", err),
		)
	}

	c.JSON(statusCode, errorResponse)
}

// HandleBadRequestGin writes a 400 Bad Request response for malformed JSON or parameters.
func HandleBadRequestGin(c *gin.Context, err error, logger *slog.Logger) {
	if logger != nil {
		logger.Warn("bad request", slog.Any("error", err))
	}

	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "bad_request",
		Message: err.Error(),
	})
}

// HandleValidationErrorGin writes a 422 Unprocessable Entity response for validation errors.
func HandleValidationErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if logger != nil {
		logger.Warn("validation failed", slog.Any("error", err))
	}

	c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
		Error:    apperrors.KindValidation,
		Message:  err.Error(),
		Problems: apperrors.Problems(err),
	})
}
