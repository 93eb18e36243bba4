package apierrors

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

// ErrorResponse represents the standard error response format.
type ErrorResponse struct {
	Status    string    `json:"status"`
	ErrorCode ErrorCode `json:"error_code"`
	Message   string    `json:"message"`
	RequestID string    `json:"request_id,omitempty"`
}

// Handler provides error handling functionality for HTTP handlers.
type Handler struct {
	logger *zap.Logger
}

// NewHandler creates a new error handler.
func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{
		logger: logger,
	}
}

// HandleError maps a domain error to an HTTP response.
func (h *Handler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := r.Header.Get("X-Request-ID")

	var ve *ValidationError
	if errors.As(err, &ve) {
		h.WriteErrorResponse(w, http.StatusBadRequest, ErrorCodeInvalidRequest, ve.Message, requestID)
		return
	}

	var ce *ConflictError
	if errors.As(err, &ce) {
		h.WriteErrorResponse(w, http.StatusConflict, ce.Code, ce.Message, requestID)
		return
	}

	var ue *UpstreamError
	if errors.As(err, &ue) {
		if ue.Timeout {
			h.WriteErrorResponse(w, http.StatusGatewayTimeout, ErrorCodeUpstreamTimeout, ue.Error(), requestID)
			return
		}
		h.WriteErrorResponse(w, http.StatusBadGateway, ErrorCodeUpstreamError, ue.Error(), requestID)
		return
	}

	h.WriteErrorResponse(w, http.StatusInternalServerError, ErrorCodeInternalError, err.Error(), requestID)
}

// WriteErrorResponse writes a formatted error response to the HTTP response writer.
func (h *Handler) WriteErrorResponse(w http.ResponseWriter, statusCode int, errorCode ErrorCode, message string, requestID string) {
	h.logger.Warn("HTTP error response",
		zap.Int("status_code", statusCode),
		zap.String("error_code", string(errorCode)),
		zap.String("message", message),
		zap.String("request_id", requestID),
	)

	resp := ErrorResponse{
		Status:    "error",
		ErrorCode: errorCode,
		Message:   message,
		RequestID: requestID,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)
}

// WriteValidationError writes a validation error response.
func (h *Handler) WriteValidationError(w http.ResponseWriter, message string, requestID string) {
	h.WriteErrorResponse(w, http.StatusBadRequest, ErrorCodeInvalidRequest, message, requestID)
}

// WriteNotFound writes a not found response with the given code.
func (h *Handler) WriteNotFound(w http.ResponseWriter, errorCode ErrorCode, message string, requestID string) {
	h.WriteErrorResponse(w, http.StatusNotFound, errorCode, message, requestID)
}

// WriteInternalError writes an internal error response.
func (h *Handler) WriteInternalError(w http.ResponseWriter, message string, requestID string) {
	h.WriteErrorResponse(w, http.StatusInternalServerError, ErrorCodeInternalError, message, requestID)
}

// WriteRateLimitedError writes a rate limit exceeded response.
func (h *Handler) WriteRateLimitedError(w http.ResponseWriter, requestID string) {
	h.WriteErrorResponse(w, http.StatusTooManyRequests, ErrorCodeRateLimited, "rate limit exceeded", requestID)
}
