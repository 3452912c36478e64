package handlers

import (
	"net/http"

	"github.com/ArowuTest/crashrace-backend/internal/apperrors"
	"github.com/gin-gonic/gin"
)

// statusFor maps an application error kind to an HTTP status
func statusFor(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindValidation:
		return http.StatusBadRequest
	case apperrors.KindUnauthorized:
		return http.StatusUnauthorized
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindConflict:
		return http.StatusConflict
	case apperrors.KindExpired:
		return http.StatusGone
	case apperrors.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {"error", "code"} with the status for err's kind
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(statusFor(apperrors.KindOf(err)), gin.H{
		"error": apperrors.MessageOf(err),
		"code":  apperrors.CodeOf(err),
	})
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": message, "code": "VALIDATION_FAILED"})
}
