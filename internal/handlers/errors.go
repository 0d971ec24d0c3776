package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/apperror"
	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/verification"
)

var statusByKind = map[apperror.Kind]int{
	apperror.KindEncoding:             http.StatusBadRequest,
	apperror.KindNoImage:              http.StatusBadRequest,
	apperror.KindNetwork:              http.StatusBadGateway,
	apperror.KindAuth:                 http.StatusServiceUnavailable,
	apperror.KindRateLimit:            http.StatusTooManyRequests,
	apperror.KindMalformedResponse:    http.StatusUnprocessableEntity,
	apperror.KindParse:                http.StatusUnprocessableEntity,
	apperror.KindValidation:           http.StatusUnprocessableEntity,
	apperror.KindUserNotFound:         http.StatusNotFound,
	apperror.KindReportNotFound:       http.StatusNotFound,
	apperror.KindRewardNotFound:       http.StatusNotFound,
	apperror.KindNotificationNotFound: http.StatusNotFound,
	apperror.KindInsufficientPoints:   http.StatusConflict,
	apperror.KindInvalidTransition:    http.StatusConflict,
	apperror.KindAlreadyAssigned:      http.StatusConflict,
	apperror.KindForbidden:            http.StatusForbidden,
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	kind := apperror.KindOf(err)
	if status, ok := statusByKind[kind]; ok {
		return status
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, verification.ErrInProgress), errors.Is(err, verification.ErrNotReset):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeError responds with the user-facing message and machine-readable
// kind of err. extra fields are merged into the body.
func writeError(c *gin.Context, err error, extra gin.H) {
	kind := apperror.KindOf(err)
	status := statusFor(err)
	body := gin.H{"error": kind.UserMessage(), "kind": kind.String()}
	if status == http.StatusNotFound && kind == apperror.KindUnknown {
		body["error"] = "ไม่พบข้อมูล"
		body["kind"] = "not_found"
	}
	for k, v := range extra {
		body[k] = v
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": message, "kind": apperror.KindValidation.String()})
}
