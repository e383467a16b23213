package types

import (
	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims is the claim set of a short-lived access token.
type AccessClaims struct {
	UserID string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Number string `json:"number"`
	jwt.RegisteredClaims
}

// RefreshClaims is the claim set of a long-lived refresh token. The JTI in
// RegisteredClaims.ID keeps tokens minted in the same second distinct.
type RefreshClaims struct {
	UserID string `json:"id"`
	jwt.RegisteredClaims
}

// Tokens is an access and refresh token pair.
type Tokens struct {
	AccessToken  string
	RefreshToken string
}
