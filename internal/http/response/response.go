package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainagg "github.com/yungbote/techwave-backend/internal/domain/aggregates"
	"github.com/yungbote/techwave-backend/internal/platform/apierr"
)

type APIError struct {
	Message string         `json:"message"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// ErrorCodeKey holds the code of the error written for the request, read by the
// request logger and the metrics middleware.
const ErrorCodeKey = "error_code"

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.Set(ErrorCodeKey, code)
	c.AbortWithStatusJSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// ErrorCode returns the code recorded by RespondError or RespondErr.
func ErrorCode(c *gin.Context) string {
	return c.GetString(ErrorCodeKey)
}

// Retryable reports whether the error written for the request is transient
// contention the client should retry.
func Retryable(c *gin.Context) bool {
	switch domainagg.ErrorCode(ErrorCode(c)) {
	case domainagg.CodeConflict, domainagg.CodeRetryable:
		return true
	default:
		return false
	}
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

// StatusForCode maps aggregate error codes onto HTTP statuses.
func StatusForCode(code domainagg.ErrorCode) int {
	switch code {
	case domainagg.CodeValidation:
		return http.StatusBadRequest
	case domainagg.CodeNotFound:
		return http.StatusNotFound
	case domainagg.CodeUnauthorized:
		return http.StatusForbidden
	case domainagg.CodeInsufficientStock,
		domainagg.CodeInvalidStateTransition,
		domainagg.CodeConflict,
		domainagg.CodeRetryable,
		domainagg.CodeAlreadyExists:
		return http.StatusConflict
	case domainagg.CodeInvariantViolation:
		return http.StatusUnprocessableEntity
	case domainagg.CodePreconditionFailed:
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}

// RespondErr writes any error the handlers see. Aggregate errors keep their code,
// apierr errors keep their status, everything else is a 500.
func RespondErr(c *gin.Context, err error) {
	var ae *apierr.Error
	if errors.As(err, &ae) {
		RespondError(c, ae.Status, ae.Code, ae)
		return
	}

	code := domainagg.CodeOf(err)
	if code == "" {
		code = domainagg.CodeInternal
	}
	status := StatusForCode(code)

	body := APIError{Message: err.Error(), Code: string(code)}
	if status == http.StatusInternalServerError {
		body.Message = "internal error"
	}
	if shortage, ok := domainagg.ShortageOf(err); ok {
		body.Details = map[string]any{
			"product_id": shortage.ProductID,
			"requested":  shortage.Requested,
			"available":  shortage.Available,
		}
	}
	_ = c.Error(err)
	c.Set(ErrorCodeKey, body.Code)
	c.AbortWithStatusJSON(status, ErrorEnvelope{Error: body})
}
