package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a transport-level failure raised before a request reaches an aggregate:
// a malformed path id, a bad query parameter, a missing token.
type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Err != nil:
		return e.Err.Error()
	case e.Code != "":
		return e.Code
	default:
		return http.StatusText(e.Status)
	}
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func BadRequest(code string, err error) *Error {
	return New(http.StatusBadRequest, code, err)
}

// InvalidParam reports an unparseable path or query value as invalid_<name>.
func InvalidParam(name, raw string) *Error {
	return BadRequest("invalid_"+name, fmt.Errorf("invalid %s %q", name, raw))
}

func Unauthorized(err error) *Error {
	if err == nil {
		err = errors.New("missing or invalid token")
	}
	return New(http.StatusUnauthorized, "unauthorized", err)
}

func Forbidden(err error) *Error {
	if err == nil {
		err = errors.New("forbidden")
	}
	return New(http.StatusForbidden, "forbidden", err)
}

func Conflict(code string, err error) *Error {
	return New(http.StatusConflict, code, err)
}

// StatusOf returns the status carried by err, or 0 when err is not an *Error.
func StatusOf(err error) int {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Status
	}
	return 0
}
