package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/KMMOrganisation/ParliQ/internal/apperrors"
)

func errorResponse(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": code, "message": message})
}

// writeError maps sentinel errors to status codes. Unexpected errors are
// logged by the request logger and hidden from the client.
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)
	switch {
	case errors.Is(err, apperrors.ErrInvalidInput):
		errorResponse(c, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, apperrors.ErrNotFound):
		errorResponse(c, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, apperrors.ErrNoTranscript):
		errorResponse(c, http.StatusUnprocessableEntity, "no_transcript", err.Error())
	case errors.Is(err, apperrors.ErrNotConfigured):
		errorResponse(c, http.StatusServiceUnavailable, "not_configured", err.Error())
	default:
		errorResponse(c, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
