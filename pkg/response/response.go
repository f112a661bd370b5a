package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/charlesng35/wavtrack/pkg/errors"
)

// Response is the envelope every API endpoint answers with.
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
	Meta    *Meta      `json:"meta,omitempty"`
}

// ErrorInfo is the client-facing part of an AppError.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Meta carries collection totals and flags writes that were queued locally
// instead of reaching the remote store.
type Meta struct {
	Total   int  `json:"total"`
	Offline bool `json:"offline,omitempty"`
}

func ok(data any, meta *Meta) Response {
	return Response{Success: true, Data: data, Meta: meta}
}

// Success writes data with the given status.
func Success(c *gin.Context, statusCode int, data any) {
	c.JSON(statusCode, ok(data, nil))
}

// SuccessWithMeta writes data along with collection metadata.
func SuccessWithMeta(c *gin.Context, statusCode int, data any, meta *Meta) {
	c.JSON(statusCode, ok(data, meta))
}

// Accepted answers a write that sits in the outbox awaiting replay.
func Accepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, ok(data, &Meta{Offline: true}))
}

// Error maps err onto its AppError status and code. Unknown errors become
// INTERNAL_SERVER_ERROR without leaking their text.
func Error(c *gin.Context, err error) {
	if err == nil {
		err = appErrors.ErrInternalServer
	}
	appErr := appErrors.FromError(err)

	status := appErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}
	c.JSON(status, Response{
		Error: &ErrorInfo{Code: appErr.Code, Message: appErr.Message},
	})
}
