package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/farmtrack/internal/common"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Error codes carried in the "error" field of every error body.
const (
	codeInvalidCredentials = "invalid_credentials"
	codeDuplicateSubject   = "duplicate_subject"
	codeUnauthenticated    = "unauthenticated"
	codeForbidden          = "forbidden"
	codeMalformedRequest   = "malformed_request"
	codeRateLimited        = "rate_limited"
	codeNotFound           = "not_found"
	codeInternal           = "internal"
)

type fieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

type errorResponse struct {
	Error   string       `json:"error"`
	Message string       `json:"message"`
	Details []fieldError `json:"details,omitempty"`
}

// classify maps service errors to a status and code. Anything unknown is
// an internal error.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrInvalidCredentials):
		return http.StatusUnauthorized, codeInvalidCredentials
	case errors.Is(err, common.ErrDuplicateSubject):
		return http.StatusConflict, codeDuplicateSubject
	case errors.Is(err, common.ErrUnauthenticated),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrInvalidSignature),
		errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized, codeUnauthenticated
	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden, codeForbidden
	case errors.Is(err, common.ErrMalformedRequest):
		return http.StatusBadRequest, codeMalformedRequest
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, codeNotFound
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

var messages = map[string]string{
	codeInvalidCredentials: "invalid email or password",
	codeDuplicateSubject:   "login or email already registered",
	codeUnauthenticated:    "authentication required",
	codeForbidden:          "insufficient role",
	codeRateLimited:        "too many requests",
	codeNotFound:           "resource not found",
	codeInternal:           "internal error",
}

// abortWithError writes the error body and stops the handler chain.
// Only malformed-request errors echo their text; the others use a fixed
// message so nothing about tokens or accounts leaks.
func abortWithError(c *gin.Context, err error) {
	status, code := classify(err)
	msg := messages[code]
	if code == codeMalformedRequest {
		msg = err.Error()
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, errorResponse{Error: code, Message: msg})
}

func abortWithCode(c *gin.Context, status int, code string) {
	c.AbortWithStatusJSON(status, errorResponse{Error: code, Message: messages[code]})
}

// abortWithBindError reports a request body that failed to decode or
// validate, listing the failing fields when the validator provides them.
func abortWithBindError(c *gin.Context, err error) {
	resp := errorResponse{Error: codeMalformedRequest, Message: "invalid request body"}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			resp.Details = append(resp.Details, fieldError{Field: fe.Field(), Rule: fe.Tag()})
		}
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusBadRequest, resp)
}
