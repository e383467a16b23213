package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/storefront-api/services/auth-service/internal/config"
	"github.com/vasapolrittideah/storefront-api/shared/mailer"
)

var ErrInvalidOrExpiredResetToken = errors.New("invalid or expired reset token")

// PasswordResetUsecase defines the business logic for password reset operations.
type PasswordResetUsecase interface {
	// RequestPasswordReset issues a reset token for email and mails it to the user.
	RequestPasswordReset(ctx context.Context, email string) error

	// ResetPassword sets newPassword when token is the current, unexpired reset token for email.
	ResetPassword(ctx context.Context, email, token, newPassword string) error
}

type passwordResetUsecase struct {
	credentials    CredentialStore
	notifier       Notifier
	authServiceCfg *config.AuthServiceConfig
	logger         *zerolog.Logger
}

// NewPasswordResetUsecase creates a new instance of PasswordResetUsecase.
func NewPasswordResetUsecase(
	credentials CredentialStore,
	notifier Notifier,
	authServiceCfg *config.AuthServiceConfig,
	logger *zerolog.Logger,
) PasswordResetUsecase {
	return &passwordResetUsecase{
		credentials:    credentials,
		notifier:       notifier,
		authServiceCfg: authServiceCfg,
		logger:         logger,
	}
}

func (u *passwordResetUsecase) RequestPasswordReset(ctx context.Context, email string) error {
	user, token, err := u.credentials.BeginPasswordReset(ctx, email)
	if err != nil {
		return err
	}

	data := passwordResetEmailData{
		Name:     displayName(user.Name),
		Token:    token,
		ValidFor: humanDuration(u.authServiceCfg.Token.PasswordResetExpiresIn),
	}
	if base := strings.TrimRight(u.authServiceCfg.AppPasswordResetURL, "/"); base != "" {
		data.Link = fmt.Sprintf("%s?token=%s&email=%s", base, url.QueryEscape(token), url.QueryEscape(user.Email))
	}

	htmlBody, err := renderTemplate(passwordResetEmailTemplate, data)
	if err != nil {
		u.logger.Warn().Err(err).Msg("failed to render password reset email")
		return nil
	}

	u.notifier.Enqueue(mailer.Email{
		To:       []string{user.Email},
		Subject:  "Password reset request",
		HTMLBody: htmlBody,
	})

	return nil
}

func (u *passwordResetUsecase) ResetPassword(ctx context.Context, email, token, newPassword string) error {
	return u.credentials.CompletePasswordReset(ctx, email, token, newPassword)
}
