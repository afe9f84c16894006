package api

import (
	"alumbra/coaching-app/internal/apperr"
	"alumbra/coaching-app/internal/service"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// errorBody is the wire shape of every failure: the error kind plus the
// offending field, never a raw internal fault.
type errorBody struct {
	Kind    string `json:"kind"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// statusForKind maps the error taxonomy to HTTP status codes.
func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindDuplicate, apperr.KindConflict, apperr.KindAlreadyUsed:
		return http.StatusConflict
	case apperr.KindExpired:
		return http.StatusGone
	case apperr.KindPrecondition:
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}

// respondError translates a service failure into a JSON error response.
// Unclassified errors are logged server-side and surface as a generic 500.
func respondError(c *gin.Context, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		c.JSON(statusForKind(appErr.Kind), gin.H{"error": errorBody{
			Kind:    string(appErr.Kind),
			Field:   appErr.Field,
			Message: appErr.Message,
		}})
		return
	}
	if errors.Is(err, service.ErrAuthenticationFailed) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": errorBody{
			Kind:    "unauthorized",
			Message: "invalid email or password",
		}})
		return
	}

	logrus.WithError(err).Error("unhandled service error")
	c.JSON(http.StatusInternalServerError, gin.H{"error": errorBody{
		Kind:    "internal",
		Message: "internal server error",
	}})
}
