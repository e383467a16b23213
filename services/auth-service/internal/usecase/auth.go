package usecase

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/storefront-api/services/auth-service/internal/config"
	"github.com/vasapolrittideah/storefront-api/services/auth-service/internal/model"
	authtypes "github.com/vasapolrittideah/storefront-api/services/auth-service/pkg/types"
	"github.com/vasapolrittideah/storefront-api/shared/mailer"
)

var ErrUnauthenticated = errors.New("unauthenticated")

// Notifier queues an email for best-effort delivery. It never reports
// delivery failures to the caller.
type Notifier interface {
	Enqueue(email mailer.Email)
}

// AuthUsecase drives the session lifecycle: register, password login, OTP
// challenge, token issuance, refresh rotation and logout.
type AuthUsecase interface {
	Register(ctx context.Context, params RegisterParams) (*model.User, error)
	Login(ctx context.Context, params LoginParams) (*ChallengeResult, error)
	VerifyOTP(ctx context.Context, params VerifyOTPParams) (*SessionResult, error)
	ResendOTP(ctx context.Context, email string) (*ChallengeResult, error)
	Refresh(ctx context.Context, refreshToken string) (*SessionResult, error)
	Logout(ctx context.Context, userID, refreshToken string) error
	GetProfile(ctx context.Context, userID string) (*model.User, error)
	UpdateProfile(ctx context.Context, userID string, params UpdateProfileParams) (*model.User, error)
	VerifyEmail(ctx context.Context, token string) (*model.User, error)
}

// LoginParams defines the parameters for user login.
type LoginParams struct {
	Email    string
	Password string
}

// VerifyOTPParams defines the parameters for completing a login.
type VerifyOTPParams struct {
	Email string
	Code  string
}

// ChallengeResult is returned once a passcode has been issued. Code is only
// populated outside production.
type ChallengeResult struct {
	Email string
	OTPID string
	Code  string
}

// SessionResult is returned when a token pair has been issued.
type SessionResult struct {
	Tokens *authtypes.Tokens
	User   *model.User
}

type authUsecase struct {
	credentials    CredentialStore
	otps           OTPUsecase
	tokens         TokenIssuer
	notifier       Notifier
	authServiceCfg *config.AuthServiceConfig
	logger         *zerolog.Logger
}

func NewAuthUsecase(
	credentials CredentialStore,
	otps OTPUsecase,
	tokens TokenIssuer,
	notifier Notifier,
	authServiceCfg *config.AuthServiceConfig,
	logger *zerolog.Logger,
) AuthUsecase {
	return &authUsecase{
		credentials:    credentials,
		otps:           otps,
		tokens:         tokens,
		notifier:       notifier,
		authServiceCfg: authServiceCfg,
		logger:         logger,
	}
}

func (u *authUsecase) Register(ctx context.Context, params RegisterParams) (*model.User, error) {
	user, verificationToken, err := u.credentials.Register(ctx, params)
	if err != nil {
		return nil, err
	}

	link := fmt.Sprintf("%s/auth/verify-email?token=%s", u.authServiceCfg.AppBaseURL, url.QueryEscape(verificationToken))
	u.sendEmail(user.Email, "Verify your email", verificationEmailTemplate, verificationEmailData{
		Name: displayName(user.Name),
		Link: link,
	})

	return user, nil
}

func (u *authUsecase) Login(ctx context.Context, params LoginParams) (*ChallengeResult, error) {
	user, err := u.credentials.Authenticate(ctx, params.Email, params.Password)
	if err != nil {
		return nil, err
	}

	return u.challenge(ctx, user, false)
}

func (u *authUsecase) ResendOTP(ctx context.Context, email string) (*ChallengeResult, error) {
	user, err := u.credentials.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	return u.challenge(ctx, user, true)
}

func (u *authUsecase) VerifyOTP(ctx context.Context, params VerifyOTPParams) (*SessionResult, error) {
	user, err := u.credentials.GetUserByEmail(ctx, params.Email)
	if err != nil {
		return nil, err
	}

	if err := u.otps.Verify(ctx, user.Email, params.Code); err != nil {
		return nil, err
	}

	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	tokens, err := u.tokens.IssueTokens(user)
	if err != nil {
		return nil, err
	}

	if err := u.credentials.AddRefreshToken(ctx, user, tokens.RefreshToken); err != nil {
		return nil, err
	}

	if err := u.credentials.RecordLogin(ctx, user); err != nil {
		return nil, err
	}

	return &SessionResult{Tokens: tokens, User: user}, nil
}

func (u *authUsecase) Refresh(ctx context.Context, refreshToken string) (*SessionResult, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: refresh token is required", ErrUnauthenticated)
	}

	claims, err := u.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	user, err := u.credentials.GetActiveUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
		}
		return nil, err
	}

	tokens, err := u.tokens.IssueTokens(user)
	if err != nil {
		return nil, err
	}

	// The swap only succeeds while the old token is still in the collection,
	// so a token that was rotated out or revoked cannot be replayed.
	if err := u.credentials.RotateRefreshToken(ctx, user, refreshToken, tokens.RefreshToken); err != nil {
		return nil, err
	}

	return &SessionResult{Tokens: tokens, User: user}, nil
}

func (u *authUsecase) Logout(ctx context.Context, userID, refreshToken string) error {
	if userID == "" {
		return ErrUnauthenticated
	}

	return u.credentials.Revoke(ctx, userID, refreshToken)
}

func (u *authUsecase) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	return u.credentials.GetActiveUser(ctx, userID)
}

func (u *authUsecase) UpdateProfile(
	ctx context.Context,
	userID string,
	params UpdateProfileParams,
) (*model.User, error) {
	return u.credentials.UpdateProfile(ctx, userID, params)
}

func (u *authUsecase) VerifyEmail(ctx context.Context, token string) (*model.User, error) {
	return u.credentials.VerifyEmail(ctx, token)
}

func (u *authUsecase) challenge(ctx context.Context, user *model.User, resend bool) (*ChallengeResult, error) {
	validity := u.authServiceCfg.OTP.LoginExpiresIn
	if resend {
		validity = u.authServiceCfg.OTP.ResendExpiresIn
	}

	otp, err := u.otps.Issue(ctx, user.Email, validity, resend)
	if err != nil {
		return nil, err
	}

	u.sendEmail(user.Email, "Your OTP Code", otpEmailTemplate, otpEmailData{
		Name:     displayName(user.Name),
		Code:     otp.Code,
		Resend:   resend,
		ValidFor: humanDuration(validity),
	})

	result := &ChallengeResult{
		Email: user.Email,
		OTPID: otp.ID.Hex(),
	}
	if !u.authServiceCfg.IsProduction() {
		result.Code = otp.Code
	}

	return result, nil
}

// sendEmail renders and queues an email. Failures are logged and never
// change the outcome of the calling operation.
func (u *authUsecase) sendEmail(to, subject string, tmpl *template.Template, data any) {
	body, err := renderTemplate(tmpl, data)
	if err != nil {
		u.logger.Warn().Err(err).Str("subject", subject).Msg("failed to render email")
		return
	}

	u.notifier.Enqueue(mailer.Email{
		To:       []string{to},
		Subject:  subject,
		HTMLBody: body,
	})
}
