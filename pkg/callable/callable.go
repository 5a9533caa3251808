// Package callable implements the Firebase callable-function wire protocol
// on top of gin: requests arrive as {"data": ...}, successful responses are
// {"result": ...} and failures are {"error": {"status", "message"}}.
package callable

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Code string

const (
	Unauthenticated  Code = "unauthenticated"
	PermissionDenied Code = "permission-denied"
	InvalidArgument  Code = "invalid-argument"
	Internal         Code = "internal"
)

// Status returns the canonical status name used on the wire.
func (c Code) Status() string {
	switch c {
	case Unauthenticated:
		return "UNAUTHENTICATED"
	case PermissionDenied:
		return "PERMISSION_DENIED"
	case InvalidArgument:
		return "INVALID_ARGUMENT"
	default:
		return "INTERNAL"
	}
}

func (c Code) HTTPStatus() int {
	switch c {
	case Unauthenticated:
		return http.StatusUnauthorized
	case PermissionDenied:
		return http.StatusForbidden
	case InvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error is a callable failure with a stable code and a fixed message.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// CodeOf returns the callable code of err, Internal for foreign errors.
func CodeOf(err error) Code {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	return Internal
}

type request struct {
	Data json.RawMessage `json:"data"`
}

// Bind decodes the request envelope and returns the raw data payload.
func Bind(c *gin.Context) (json.RawMessage, error) {
	var req request
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, NewError(InvalidArgument, "Bad Request")
	}
	return req.Data, nil
}

func Respond(c *gin.Context, result any) {
	c.JSON(http.StatusOK, gin.H{"result": result})
}

// Fail writes err in callable form. Errors that are not *Error are reported
// as internal without their detail.
func Fail(c *gin.Context, err error) {
	var ce *Error
	if !errors.As(err, &ce) {
		ce = NewError(Internal, "INTERNAL")
	}
	c.JSON(ce.Code.HTTPStatus(), gin.H{
		"error": gin.H{
			"status":  ce.Code.Status(),
			"message": ce.Message,
		},
	})
}
