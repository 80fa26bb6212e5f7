package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zaqqye/scholarship_backend/internal/scholarship"
)

var statusByCode = map[string]int{
	scholarship.CodeUnauthorized:       http.StatusForbidden,
	scholarship.CodeNotRegistered:      http.StatusNotFound,
	scholarship.CodeNotFound:           http.StatusNotFound,
	scholarship.CodeNotApproved:        http.StatusConflict,
	scholarship.CodeAlreadyClaimed:     http.StatusConflict,
	scholarship.CodeAlreadyRegistered:  http.StatusConflict,
	scholarship.CodeAlreadyInitialized: http.StatusConflict,
	scholarship.CodeNotInitialized:     http.StatusPreconditionFailed,
	scholarship.CodeValidation:         http.StatusBadRequest,
	scholarship.CodeStorage:            http.StatusInternalServerError,
}

// StatusFor maps an engine error to an HTTP status.
func StatusFor(err error) int {
	if status, ok := statusByCode[scholarship.Code(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// AbortWithError writes {"error","code"} with the mapped status. Storage
// faults are not echoed to the client.
func AbortWithError(c *gin.Context, err error) {
	code := scholarship.Code(err)
	msg := err.Error()
	if code == scholarship.CodeStorage || code == scholarship.CodeInternal {
		_ = c.Error(err)
		msg = "internal error"
	}
	c.AbortWithStatusJSON(StatusFor(err), gin.H{"error": msg, "code": code})
}
