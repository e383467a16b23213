package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/vasapolrittideah/storefront-api/services/auth-service/internal/payload"
	"github.com/vasapolrittideah/storefront-api/services/auth-service/internal/usecase"
	"github.com/vasapolrittideah/storefront-api/shared/utilities"
	"github.com/vasapolrittideah/storefront-api/shared/validator"
)

// writeError converts usecase errors into status codes. Anything unexpected
// is logged and reported as a generic server error.
func (h *authHTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error, serverMsg string) {
	var validationErr *validator.ValidationError
	status := http.StatusInternalServerError
	message := serverMsg

	switch {
	case errors.As(err, &validationErr):
		utilities.WriteJSON(w, http.StatusBadRequest, payload.ErrorResponse{
			Message: validationErr.Messages[0],
			Errors:  validationErr.Messages,
		})
		return
	case errors.Is(err, usecase.ErrUserAlreadyExists):
		status, message = http.StatusBadRequest, "User with this email or number already exists"
	case errors.Is(err, usecase.ErrInvalidCredentials):
		status, message = http.StatusUnauthorized, "Invalid email or password"
	case errors.Is(err, usecase.ErrOTPExpired):
		status, message = http.StatusBadRequest, "OTP expired"
	case errors.Is(err, usecase.ErrInvalidOrExpiredOTP):
		status, message = http.StatusBadRequest, "Invalid OTP"
	case errors.Is(err, usecase.ErrInvalidOrExpiredResetToken):
		status, message = http.StatusBadRequest, "Invalid or expired reset token"
	case errors.Is(err, usecase.ErrInvalidVerificationToken):
		status, message = http.StatusBadRequest, "Invalid or expired verification link"
	case errors.Is(err, usecase.ErrUnauthenticated):
		status, message = http.StatusUnauthorized, "Invalid refresh token"
	case errors.Is(err, usecase.ErrUserNotFound):
		status, message = http.StatusNotFound, "User not found"
	default:
		h.logger.Error().
			Err(err).
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg(serverMsg)
	}

	utilities.WriteJSON(w, status, payload.ErrorResponse{Message: message})
}

// bind decodes the body into req, normalizes it and validates it.
func (h *authHTTPHandler) bind(r *http.Request, req interface{ Normalize() }) error {
	if err := utilities.DecodeJSON(r, req); err != nil {
		return &validator.ValidationError{Messages: []string{"Request body must be valid JSON"}}
	}

	req.Normalize()

	return h.validator.Struct(req)
}
