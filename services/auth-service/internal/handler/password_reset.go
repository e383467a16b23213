package handler

import (
	"net/http"

	"github.com/vasapolrittideah/storefront-api/services/auth-service/internal/payload"
	"github.com/vasapolrittideah/storefront-api/shared/utilities"
)

func (h *authHTTPHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req payload.ForgotPasswordRequest
	if err := h.bind(r, &req); err != nil {
		h.writeError(w, r, err, "Server error")
		return
	}

	if err := h.passwordResetUsecase.RequestPasswordReset(r.Context(), req.Email); err != nil {
		h.writeError(w, r, err, "Server error")
		return
	}

	utilities.WriteJSON(w, http.StatusOK, payload.MessageResponse{Message: "Password reset email sent"})
}

func (h *authHTTPHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req payload.ResetPasswordRequest
	if err := h.bind(r, &req); err != nil {
		h.writeError(w, r, err, "Server error during password reset")
		return
	}

	if err := h.passwordResetUsecase.ResetPassword(r.Context(), req.Email, req.Token, req.NewPassword); err != nil {
		h.writeError(w, r, err, "Server error during password reset")
		return
	}

	utilities.WriteJSON(w, http.StatusOK, payload.MessageResponse{
		Message: "Password reset successful. You can now log in.",
	})
}
