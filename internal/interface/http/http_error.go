package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/yanqian/weather-screen/pkg/errors"
)

// HTTPError is what the error middleware serializes. Message is shown to the
// caller; Err is only logged.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// NewHTTPError is a helper to build an HTTPError instance.
func NewHTTPError(status int, code, message string, err error) *HTTPError {
	return &HTTPError{Status: status, Code: code, Message: message, Err: err}
}

// fromDomainError maps an AppError code onto a status. Upstream and internal
// failures get a fixed message; the wrapped chain may carry provider detail.
func fromDomainError(err error, fallback string) *HTTPError {
	switch apperrors.Code(err) {
	case apperrors.CodeInvalidInput:
		return NewHTTPError(http.StatusBadRequest, "invalid_request", appMessage(err), err)
	case apperrors.CodeUpstreamFailed:
		return NewHTTPError(http.StatusBadGateway, apperrors.CodeUpstreamFailed, "weather provider request failed", err)
	case apperrors.CodeScreenStopped:
		return NewHTTPError(http.StatusServiceUnavailable, "screen_unavailable", "screen is not running", err)
	}
	return NewHTTPError(http.StatusInternalServerError, fallback, "something went wrong", err)
}

// appMessage returns the outermost AppError message without its cause.
func appMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "invalid request"
}

func asHTTPError(err error) *HTTPError {
	if err == nil {
		return nil
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return fromDomainError(err, "internal_error")
}

func abortWithError(c *gin.Context, err *HTTPError) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}
