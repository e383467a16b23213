package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClaims struct {
	UserID string `json:"id"`
	jwt.RegisteredClaims
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestJWTAuthenticator_RoundTrip(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	a := NewJWTAuthenticator("storefront", "auth", WithClock(fixedClock(now)))

	token, err := a.GenerateToken(testClaims{
		UserID:           "abc",
		RegisteredClaims: a.RegisteredClaims("abc", "jti-1", time.Hour),
	}, "secret")
	require.NoError(t, err)

	claims := &testClaims{}
	_, err = a.ValidateTokenWithClaims(token, "secret", claims)
	require.NoError(t, err)

	assert.Equal(t, "abc", claims.UserID)
	assert.Equal(t, "abc", claims.Subject)
	assert.Equal(t, "jti-1", claims.ID)
	assert.Equal(t, "auth", claims.Issuer)
	assert.Equal(t, jwt.ClaimStrings{"storefront"}, claims.Audience)
}

func TestJWTAuthenticator_Failures(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	issuer := NewJWTAuthenticator("storefront", "auth", WithClock(fixedClock(now)))

	token, err := issuer.GenerateToken(issuer.RegisteredClaims("abc", "", time.Hour), "secret")
	require.NoError(t, err)

	noExpiry, err := issuer.GenerateToken(jwt.RegisteredClaims{
		Issuer:   "auth",
		Audience: jwt.ClaimStrings{"storefront"},
	}, "secret")
	require.NoError(t, err)

	tests := []struct {
		name    string
		auth    JWTAuthenticator
		token   string
		secret  string
		wantErr error
	}{
		{
			name:    "expired",
			auth:    NewJWTAuthenticator("storefront", "auth", WithClock(fixedClock(now.Add(time.Hour)))),
			token:   token,
			secret:  "secret",
			wantErr: ErrTokenExpired,
		},
		{
			name:    "wrong secret",
			auth:    issuer,
			token:   token,
			secret:  "other",
			wantErr: ErrInvalidToken,
		},
		{
			name:    "wrong audience",
			auth:    NewJWTAuthenticator("admin", "auth", WithClock(fixedClock(now))),
			token:   token,
			secret:  "secret",
			wantErr: ErrInvalidToken,
		},
		{
			name:    "wrong issuer",
			auth:    NewJWTAuthenticator("storefront", "other", WithClock(fixedClock(now))),
			token:   token,
			secret:  "secret",
			wantErr: ErrInvalidToken,
		},
		{
			name:    "missing expiry",
			auth:    issuer,
			token:   noExpiry,
			secret:  "secret",
			wantErr: ErrInvalidToken,
		},
		{
			name:    "malformed",
			auth:    issuer,
			token:   "not.a.token",
			secret:  "secret",
			wantErr: ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.auth.ValidateTokenWithClaims(tt.token, tt.secret, &jwt.RegisteredClaims{})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestJWTAuthenticator_RejectsOtherAlgorithms(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	a := NewJWTAuthenticator("storefront", "auth", WithClock(fixedClock(now)))

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, a.RegisteredClaims("abc", "", time.Hour)).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = a.ValidateTokenWithClaims(unsigned, "secret", &jwt.RegisteredClaims{})
	assert.ErrorIs(t, err, ErrInvalidToken)
}
