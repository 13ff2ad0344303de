package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rookgm/bundlehub/internal/models"
	"go.uber.org/zap"
)

// error codes returned to clients
const (
	codeValidation       = "VALIDATION_ERROR"
	codeInvalidOTP       = "INVALID_OTP"
	codeEmailNotVerified = "EMAIL_NOT_VERIFIED"
	codeInvalidState     = "INVALID_STATE"
	codeConflict         = "CONFLICT"
	codeNotFound         = "NOT_FOUND"
	codeUnauthorized     = "UNAUTHORIZED"
	codeForbidden        = "FORBIDDEN"
	codeRateLimited      = "RATE_LIMITED"
	codeDBUnavailable    = "DATABASE_UNAVAILABLE"
	codeInternal         = "INTERNAL_ERROR"
)

type errorResponse struct {
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
	Code       string `json:"code"`
	// OrderID is set when order was stored before request failed
	OrderID string `json:"orderId,omitempty"`
}

// Responder writes JSON responses and maps domain errors to HTTP errors
type Responder struct {
	logger *zap.Logger
	// exposeInternal adds error text to 500 responses
	exposeInternal bool
}

// NewResponder creates new Responder instance
func NewResponder(logger *zap.Logger, exposeInternal bool) *Responder {
	return &Responder{
		logger:         logger,
		exposeInternal: exposeInternal,
	}
}

// JSON writes v with status code
func (rs *Responder) JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		rs.logger.Debug("write response", zap.Error(err))
	}
}

// Fail writes error body
func (rs *Responder) Fail(w http.ResponseWriter, status int, code, message string) {
	rs.JSON(w, status, errorResponse{
		Message:    message,
		StatusCode: status,
		Code:       code,
	})
}

// Error maps err to status and code and writes error body
func (rs *Responder) Error(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message := rs.classify(err)
	if status >= http.StatusInternalServerError {
		rs.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	rs.Fail(w, status, code, message)
}

func (rs *Responder) classify(err error) (int, string, string) {
	var verr *models.ValidationError

	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, codeValidation, verr.Error()
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest, codeValidation, err.Error()
	case errors.Is(err, models.ErrInvalidOrExpiredOTP):
		return http.StatusBadRequest, codeInvalidOTP, models.ErrInvalidOrExpiredOTP.Error()
	case errors.Is(err, models.ErrEmailNotVerified):
		return http.StatusBadRequest, codeEmailNotVerified, models.ErrEmailNotVerified.Error()
	case errors.Is(err, models.ErrInvalidState):
		return http.StatusBadRequest, codeInvalidState, models.ErrInvalidState.Error()
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict, codeConflict, err.Error()
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, codeNotFound, "not found"
	case errors.Is(err, models.ErrInvalidCredentials):
		return http.StatusUnauthorized, codeUnauthorized, models.ErrInvalidCredentials.Error()
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden, codeForbidden, models.ErrForbidden.Error()
	case errors.Is(err, models.ErrRateLimited):
		return http.StatusTooManyRequests, codeRateLimited, models.ErrRateLimited.Error()
	case errors.Is(err, models.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, codeDBUnavailable, "database is temporarily unavailable, please try again later"
	}

	message := "internal server error"
	if rs.exposeInternal {
		message = err.Error()
	}
	return http.StatusInternalServerError, codeInternal, message
}

// decodeJSON decodes request body into v, unknown fields are rejected
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return models.NewValidationError("body", "malformed JSON")
	}
	return nil
}
