package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/serroba/shortener-ws/internal/middleware"
	"github.com/serroba/shortener-ws/internal/shortener"
	"go.uber.org/zap"
)

// APIError is the error body returned by every shortener operation.
type APIError struct {
	status  int
	Code    string `doc:"Machine-readable error code" example:"NOT_FOUND"              json:"code"`
	Message string `doc:"Human-readable description"  example:"short code not found" json:"message"`
}

func (e *APIError) Error() string {
	return e.Message
}

// GetStatus implements huma.StatusError.
func (e *APIError) GetStatus() int {
	return e.status
}

// toAPIError maps a service error onto a status code. Internal errors are logged
// in full and reported without detail.
func (h *URLHandler) toAPIError(ctx context.Context, operation string, err error) error {
	var svcErr *shortener.Error
	if errors.As(err, &svcErr) {
		switch svcErr.Kind {
		case shortener.KindValidation:
			return &APIError{status: http.StatusBadRequest, Code: svcErr.Code, Message: svcErr.Message}
		case shortener.KindConflict:
			return &APIError{status: http.StatusConflict, Code: svcErr.Code, Message: svcErr.Message}
		case shortener.KindNotFound:
			return &APIError{status: http.StatusNotFound, Code: svcErr.Code, Message: svcErr.Message}
		}
	}

	h.logger.Error("operation failed",
		zap.String("operation", operation),
		zap.String("request_id", middleware.RequestIDFromContext(ctx)),
		zap.Error(err),
	)

	return &APIError{
		status:  http.StatusInternalServerError,
		Code:    shortener.CodeInternal,
		Message: "internal server error",
	}
}
