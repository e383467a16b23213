package usecase

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/vasapolrittideah/storefront-api/services/auth-service/internal/config"
	"github.com/vasapolrittideah/storefront-api/services/auth-service/internal/model"
	authtypes "github.com/vasapolrittideah/storefront-api/services/auth-service/pkg/types"
	"github.com/vasapolrittideah/storefront-api/shared/auth"
)

var ErrInvalidSignature = errors.New("invalid token signature")

// TokenIssuer signs and verifies access and refresh tokens. It holds no state
// besides its configuration.
type TokenIssuer interface {
	IssueAccessToken(user *model.User) (string, error)
	IssueRefreshToken(user *model.User) (string, error)
	IssueTokens(user *model.User) (*authtypes.Tokens, error)
	VerifyAccessToken(token string) (*authtypes.AccessClaims, error)
	VerifyRefreshToken(token string) (*authtypes.RefreshClaims, error)
}

type tokenIssuer struct {
	jwtAuth  auth.JWTAuthenticator
	tokenCfg config.TokenConfig
}

// NewTokenIssuer creates a TokenIssuer using the secrets and lifetimes in tokenCfg.
func NewTokenIssuer(jwtAuth auth.JWTAuthenticator, tokenCfg config.TokenConfig) TokenIssuer {
	return &tokenIssuer{
		jwtAuth:  jwtAuth,
		tokenCfg: tokenCfg,
	}
}

func (i *tokenIssuer) IssueAccessToken(user *model.User) (string, error) {
	userID := user.ID.Hex()
	claims := authtypes.AccessClaims{
		UserID:           userID,
		Name:             user.Name,
		Email:            user.Email,
		Role:             string(user.Role),
		Number:           user.Number,
		RegisteredClaims: i.jwtAuth.RegisteredClaims(userID, "", i.tokenCfg.AccessTokenExpiresIn),
	}

	return i.jwtAuth.GenerateToken(claims, i.tokenCfg.AccessTokenSecret)
}

func (i *tokenIssuer) IssueRefreshToken(user *model.User) (string, error) {
	userID := user.ID.Hex()
	claims := authtypes.RefreshClaims{
		UserID:           userID,
		RegisteredClaims: i.jwtAuth.RegisteredClaims(userID, uuid.NewString(), i.tokenCfg.RefreshTokenExpiresIn),
	}

	return i.jwtAuth.GenerateToken(claims, i.tokenCfg.RefreshTokenSecret)
}

func (i *tokenIssuer) IssueTokens(user *model.User) (*authtypes.Tokens, error) {
	accessToken, err := i.IssueAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	refreshToken, err := i.IssueRefreshToken(user)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	return &authtypes.Tokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func (i *tokenIssuer) VerifyAccessToken(token string) (*authtypes.AccessClaims, error) {
	claims := &authtypes.AccessClaims{}
	if _, err := i.jwtAuth.ValidateTokenWithClaims(token, i.tokenCfg.AccessTokenSecret, claims); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing id claim", ErrInvalidSignature)
	}

	return claims, nil
}

func (i *tokenIssuer) VerifyRefreshToken(token string) (*authtypes.RefreshClaims, error) {
	claims := &authtypes.RefreshClaims{}
	if _, err := i.jwtAuth.ValidateTokenWithClaims(token, i.tokenCfg.RefreshTokenSecret, claims); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing id claim", ErrInvalidSignature)
	}

	return claims, nil
}
