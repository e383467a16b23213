package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/storefront-api/services/auth-service/internal/payload"
	"github.com/vasapolrittideah/storefront-api/services/auth-service/internal/usecase"
	authtypes "github.com/vasapolrittideah/storefront-api/services/auth-service/pkg/types"
	"github.com/vasapolrittideah/storefront-api/shared/utilities"
)

type contextKey struct{}

var userClaimsKey = contextKey{}

// requireAccessToken rejects requests without a valid bearer access token and
// stores its claims in the request context.
func requireAccessToken(tokens usecase.TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := utilities.BearerToken(r)
			if err != nil {
				utilities.WriteJSON(w, http.StatusUnauthorized, payload.ErrorResponse{Message: "access token is required"})
				return
			}

			claims, err := tokens.VerifyAccessToken(raw)
			if err != nil {
				utilities.WriteJSON(w, http.StatusUnauthorized, payload.ErrorResponse{Message: "invalid or expired access token"})
				return
			}

			ctx := context.WithValue(r.Context(), userClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func claimsFromContext(ctx context.Context) (*authtypes.AccessClaims, bool) {
	claims, ok := ctx.Value(userClaimsKey).(*authtypes.AccessClaims)
	return claims, ok
}

func accessLog(logger *zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("http request")
		})
	}
}
