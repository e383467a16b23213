package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/storefront-api/services/auth-service/internal/usecase"
	"github.com/vasapolrittideah/storefront-api/shared/utilities"
	"github.com/vasapolrittideah/storefront-api/shared/validator"
)

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker func(ctx context.Context) error

type authHTTPHandler struct {
	authUsecase          usecase.AuthUsecase
	passwordResetUsecase usecase.PasswordResetUsecase
	validator            *validator.Validator
	logger               *zerolog.Logger
}

// Options holds the pieces the router needs beyond the usecases.
type Options struct {
	// RateLimit wraps the endpoints that issue or check passcodes and reset tokens.
	RateLimit func(http.Handler) http.Handler
	Health    HealthChecker
}

// NewRouter builds the HTTP router of the auth service.
func NewRouter(
	authUsecase usecase.AuthUsecase,
	passwordResetUsecase usecase.PasswordResetUsecase,
	tokens usecase.TokenIssuer,
	v *validator.Validator,
	logger *zerolog.Logger,
	opts Options,
) http.Handler {
	h := &authHTTPHandler{
		authUsecase:          authUsecase,
		passwordResetUsecase: passwordResetUsecase,
		validator:            v,
		logger:               logger,
	}

	limited := opts.RateLimit
	if limited == nil {
		limited = func(next http.Handler) http.Handler { return next }
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", healthz(opts.Health))

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Get("/verify-email", h.VerifyEmail)
		r.Post("/refresh-token", h.RefreshToken)
		r.Post("/reset-password", h.ResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(limited)
			r.Post("/login", h.Login)
			r.Post("/verify-otp", h.VerifyOTP)
			r.Post("/resend-otp", h.ResendOTP)
			r.Post("/forgot-password", h.RequestPasswordReset)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAccessToken(tokens))
			r.Post("/logout", h.Logout)
			r.Get("/profile", h.GetProfile)
			r.Put("/profile", h.UpdateProfile)
		})
	})

	return r
}

func healthz(check HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			if err := check(ctx); err != nil {
				utilities.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}

		utilities.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
