package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"sentiment-sales-risk/internal/types"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// statusFor maps pipeline errors onto transport codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, types.ErrInvalidRequest):
		return http.StatusBadRequest, "invalid_request"
	case types.IsIngestionError(err):
		return http.StatusBadGateway, "ingestion_failed"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func respondPipelineError(c *gin.Context, err error) {
	status, code := statusFor(err)
	RespondError(c, status, code, err)
}
