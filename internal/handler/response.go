package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"sheetlens/internal/classifier"
	"sheetlens/internal/domain"
)

// APIResponse is the standard envelope for all API responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

// APIError holds error details in the response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RespondOK sends a 200 success response.
func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: msg},
	})
}

// MapDomainError translates domain and model-provider errors to HTTP status
// codes and error codes.
func MapDomainError(err error) (status int, code, msg string) {
	var authErr *classifier.AuthError
	if errors.As(err, &authErr) {
		return http.StatusUnauthorized, "AUTH_FAILED", "model provider rejected the API key"
	}
	var rlErr *classifier.RateLimitError
	if errors.As(err, &rlErr) {
		return http.StatusTooManyRequests, "RATE_LIMITED", "model provider rate limit reached; retry later"
	}

	switch {
	case errors.Is(err, domain.ErrMissingFile):
		return http.StatusBadRequest, "MISSING_FILE", "file field is required"
	case errors.Is(err, domain.ErrUnsupportedFileType):
		return http.StatusBadRequest, "UNSUPPORTED_FILE_TYPE", "unsupported file type; allowed: xlsx, xlsm"
	case errors.Is(err, domain.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "file exceeds maximum allowed size"
	case errors.Is(err, domain.ErrWorkbookLoad):
		return http.StatusBadRequest, "WORKBOOK_LOAD", "workbook could not be opened"
	case errors.Is(err, domain.ErrMissingAPIKey):
		return http.StatusBadRequest, "MISSING_API_KEY", "no API key configured or provided"
	case errors.Is(err, domain.ErrModelReplyInvalid):
		return http.StatusBadGateway, "MODEL_REPLY_INVALID", "model reply could not be interpreted"
	case errors.Is(err, domain.ErrAnalysisUnavailable):
		return http.StatusBadGateway, "ANALYSIS_UNAVAILABLE", "analysis is currently unavailable"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"
	}
}

// HandleError maps a domain error and sends the appropriate error response.
func HandleError(c *gin.Context, err error) {
	status, code, msg := MapDomainError(err)
	if status >= 500 {
		requestID, _ := c.Get("request_id")
		log.Printf("[%s] %s: %v", requestID, code, err)
	}
	RespondError(c, status, code, msg)
}
