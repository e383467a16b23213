package handler

import (
	"net/http"

	"github.com/vasapolrittideah/storefront-api/services/auth-service/internal/model"
	"github.com/vasapolrittideah/storefront-api/services/auth-service/internal/payload"
	"github.com/vasapolrittideah/storefront-api/services/auth-service/internal/usecase"
	"github.com/vasapolrittideah/storefront-api/shared/utilities"
)

func (h *authHTTPHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req payload.RegisterRequest
	if err := h.bind(r, &req); err != nil {
		h.writeError(w, r, err, "Server error during registration")
		return
	}

	user, err := h.authUsecase.Register(r.Context(), usecase.RegisterParams{
		Name:     req.Name,
		Email:    req.Email,
		Number:   req.Number,
		Password: req.Password,
	})
	if err != nil {
		h.writeError(w, r, err, "Server error during registration")
		return
	}

	utilities.WriteJSON(w, http.StatusCreated, payload.RegisterResponse{
		Message: "Account created successfully! You can now log in.",
		Email:   user.Email,
	})
}

func (h *authHTTPHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req payload.LoginRequest
	if err := h.bind(r, &req); err != nil {
		h.writeError(w, r, err, "Server error during login")
		return
	}

	result, err := h.authUsecase.Login(r.Context(), usecase.LoginParams{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.writeError(w, r, err, "Server error during login")
		return
	}

	utilities.WriteJSON(w, http.StatusOK, payload.LoginResponse{
		Message: "OTP sent to your email",
		Email:   result.Email,
		OTP:     result.Code,
	})
}

func (h *authHTTPHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req payload.VerifyOTPRequest
	if err := h.bind(r, &req); err != nil {
		h.writeError(w, r, err, "Server error during OTP verification")
		return
	}

	result, err := h.authUsecase.VerifyOTP(r.Context(), usecase.VerifyOTPParams{
		Email: req.Email,
		Code:  req.OTP,
	})
	if err != nil {
		h.writeError(w, r, err, "Server error during OTP verification")
		return
	}

	utilities.WriteJSON(w, http.StatusOK, sessionResponse("OTP verified successfully", result))
}

func (h *authHTTPHandler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var req payload.ResendOTPRequest
	if err := h.bind(r, &req); err != nil {
		h.writeError(w, r, err, "Server error while resending OTP")
		return
	}

	result, err := h.authUsecase.ResendOTP(r.Context(), req.Email)
	if err != nil {
		h.writeError(w, r, err, "Server error while resending OTP")
		return
	}

	utilities.WriteJSON(w, http.StatusOK, payload.LoginResponse{
		Message: "New OTP sent to your email",
		Email:   result.Email,
		OTPID:   result.OTPID,
		OTP:     result.Code,
	})
}

func (h *authHTTPHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req payload.RefreshTokenRequest
	if err := utilities.DecodeJSON(r, &req); err != nil || req.RefreshToken == "" {
		utilities.WriteJSON(w, http.StatusUnauthorized, payload.ErrorResponse{Message: "Refresh token is required"})
		return
	}

	result, err := h.authUsecase.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.writeError(w, r, err, "Server error during token refresh")
		return
	}

	utilities.WriteJSON(w, http.StatusOK, sessionResponse("Tokens refreshed successfully", result))
}

func (h *authHTTPHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		utilities.WriteJSON(w, http.StatusUnauthorized, payload.ErrorResponse{Message: "User not authenticated"})
		return
	}

	var req payload.LogoutRequest
	if err := utilities.DecodeJSON(r, &req); err != nil {
		utilities.WriteJSON(w, http.StatusBadRequest, payload.ErrorResponse{Message: "Request body must be valid JSON"})
		return
	}

	if err := h.authUsecase.Logout(r.Context(), claims.UserID, req.RefreshToken); err != nil {
		h.writeError(w, r, err, "Server error during logout")
		return
	}

	utilities.WriteJSON(w, http.StatusOK, payload.MessageResponse{Message: "Logged out successfully"})
}

func (h *authHTTPHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		utilities.WriteJSON(w, http.StatusUnauthorized, payload.ErrorResponse{Message: "User not authenticated"})
		return
	}

	user, err := h.authUsecase.GetProfile(r.Context(), claims.UserID)
	if err != nil {
		h.writeError(w, r, err, "Server error")
		return
	}

	utilities.WriteJSON(w, http.StatusOK, payload.ProfileResponse{User: profile(user)})
}

func (h *authHTTPHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		utilities.WriteJSON(w, http.StatusUnauthorized, payload.ErrorResponse{Message: "User not authenticated"})
		return
	}

	var req payload.UpdateProfileRequest
	if err := h.bind(r, &req); err != nil {
		h.writeError(w, r, err, "Server error during profile update")
		return
	}

	user, err := h.authUsecase.UpdateProfile(r.Context(), claims.UserID, usecase.UpdateProfileParams{
		Name:   req.Name,
		Number: req.Number,
	})
	if err != nil {
		h.writeError(w, r, err, "Server error during profile update")
		return
	}

	utilities.WriteJSON(w, http.StatusOK, payload.ProfileResponse{
		Message: "Profile updated successfully",
		User:    profile(user),
	})
}

func (h *authHTTPHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	if _, err := h.authUsecase.VerifyEmail(r.Context(), r.URL.Query().Get("token")); err != nil {
		h.writeError(w, r, err, "Server error during email verification")
		return
	}

	utilities.WriteJSON(w, http.StatusOK, payload.MessageResponse{Message: "Email verified successfully"})
}

func sessionResponse(message string, result *usecase.SessionResult) payload.SessionResponse {
	return payload.SessionResponse{
		Message:      message,
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
		User:         publicUser(result.User),
	}
}

func publicUser(user *model.User) payload.User {
	return payload.User{
		ID:     user.ID.Hex(),
		Name:   user.Name,
		Email:  user.Email,
		Phone:  user.ContactNumber(),
		Number: user.Number,
		Role:   string(user.Role),
	}
}

func profile(user *model.User) payload.User {
	u := publicUser(user)
	u.LastLogin = user.LastLogin
	return u
}
