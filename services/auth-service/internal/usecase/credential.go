package usecase

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/vasapolrittideah/storefront-api/services/auth-service/internal/config"
	"github.com/vasapolrittideah/storefront-api/services/auth-service/internal/model"
	"github.com/vasapolrittideah/storefront-api/services/auth-service/internal/repository"
)

var (
	ErrUserAlreadyExists        = errors.New("user with this email already exists")
	ErrInvalidCredentials       = errors.New("invalid email or password")
	ErrUserNotFound             = errors.New("user not found")
	ErrInvalidVerificationToken = errors.New("invalid or expired verification token")
)

// PasswordHasher hashes passwords one way and verifies them against a stored hash.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
}

// CredentialStore enforces the rules around persisted user credentials.
type CredentialStore interface {
	// Register creates an account and returns it with the plaintext email
	// verification token.
	Register(ctx context.Context, params RegisterParams) (*model.User, string, error)
	Authenticate(ctx context.Context, email, password string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetActiveUser(ctx context.Context, id string) (*model.User, error)
	RecordLogin(ctx context.Context, user *model.User) error
	UpdateProfile(ctx context.Context, id string, params UpdateProfileParams) (*model.User, error)

	AddRefreshToken(ctx context.Context, user *model.User, token string) error
	RotateRefreshToken(ctx context.Context, user *model.User, oldToken, newToken string) error
	// Revoke removes token, or every refresh token when token is empty.
	Revoke(ctx context.Context, userID, token string) error

	// BeginPasswordReset stores a hashed reset token and returns the plaintext.
	BeginPasswordReset(ctx context.Context, email string) (*model.User, string, error)
	CompletePasswordReset(ctx context.Context, email, token, newPassword string) error

	VerifyEmail(ctx context.Context, token string) (*model.User, error)
	SeedAdmin(ctx context.Context) (bool, error)
}

// RegisterParams defines the parameters for user registration.
type RegisterParams struct {
	Name     string
	Email    string
	Number   string
	Password string
}

// UpdateProfileParams defines the parameters for a profile update. Empty
// fields keep their current value.
type UpdateProfileParams struct {
	Name   string
	Number string
}

type credentialStore struct {
	userRepo       repository.UserRepository
	hasher         PasswordHasher
	authServiceCfg *config.AuthServiceConfig
	now            func() time.Time
}

func NewCredentialStore(
	userRepo repository.UserRepository,
	hasher PasswordHasher,
	authServiceCfg *config.AuthServiceConfig,
	now func() time.Time,
) CredentialStore {
	if now == nil {
		now = time.Now
	}

	return &credentialStore{
		userRepo:       userRepo,
		hasher:         hasher,
		authServiceCfg: authServiceCfg,
		now:            now,
	}
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *credentialStore) Register(ctx context.Context, params RegisterParams) (*model.User, string, error) {
	email := NormalizeEmail(params.Email)

	if _, err := s.userRepo.GetUserByEmail(ctx, email); err == nil {
		return nil, "", ErrUserAlreadyExists
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, "", err
	}

	passwordHash, err := s.hasher.Hash(params.Password)
	if err != nil {
		return nil, "", err
	}

	verificationToken, err := generateSecureToken(20)
	if err != nil {
		return nil, "", err
	}
	verificationHash := hashToken(verificationToken)

	role := model.RoleUser
	if adminEmail := NormalizeEmail(s.authServiceCfg.AdminEmail); adminEmail != "" && adminEmail == email {
		role = model.RoleAdmin
	}

	user, err := s.userRepo.CreateUser(ctx, &model.User{
		Name:              strings.TrimSpace(params.Name),
		Email:             email,
		Number:            strings.TrimSpace(params.Number),
		PasswordHash:      passwordHash,
		Role:              role,
		IsActive:          true,
		IsVerified:        true,
		RefreshTokens:     []model.RefreshTokenEntry{},
		VerificationToken: &verificationHash,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, "", ErrUserAlreadyExists
		}

		return nil, "", err
	}

	return user, verificationToken, nil
}

func (s *credentialStore) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.userRepo.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrInvalidCredentials
		}

		return nil, err
	}

	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	if ok, err := s.hasher.Verify(password, user.PasswordHash); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

func (s *credentialStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := s.userRepo.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}

		return nil, err
	}

	return user, nil
}

func (s *credentialStore) GetActiveUser(ctx context.Context, id string) (*model.User, error) {
	user, err := s.userRepo.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) || errors.Is(err, bson.ErrInvalidHex) {
			return nil, ErrUserNotFound
		}

		return nil, err
	}

	if !user.IsActive {
		return nil, ErrUserNotFound
	}

	return user, nil
}

func (s *credentialStore) RecordLogin(ctx context.Context, user *model.User) error {
	now := s.now()
	if _, err := s.userRepo.UpdateUser(ctx, user.ID.Hex(), repository.UpdateUserParams{
		LastLogin: &now,
		LastSeen:  &now,
	}); err != nil {
		return err
	}

	user.LastLogin = &now
	user.LastSeen = &now

	return nil
}

func (s *credentialStore) UpdateProfile(
	ctx context.Context,
	id string,
	params UpdateProfileParams,
) (*model.User, error) {
	if _, err := s.GetActiveUser(ctx, id); err != nil {
		return nil, err
	}

	update := repository.UpdateUserParams{}
	if name := strings.TrimSpace(params.Name); name != "" {
		update.Name = &name
	}
	if number := strings.TrimSpace(params.Number); number != "" {
		update.Number = &number
	}
	if update.Name == nil && update.Number == nil {
		return s.GetActiveUser(ctx, id)
	}

	user, err := s.userRepo.UpdateUser(ctx, id, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrUserAlreadyExists
		}

		return nil, err
	}

	return user, nil
}

func (s *credentialStore) AddRefreshToken(ctx context.Context, user *model.User, token string) error {
	return s.userRepo.AddRefreshToken(ctx, user.ID.Hex(), model.RefreshTokenEntry{
		Token:     token,
		CreatedAt: s.now(),
	}, s.authServiceCfg.Token.MaxRefreshTokens)
}

func (s *credentialStore) RotateRefreshToken(ctx context.Context, user *model.User, oldToken, newToken string) error {
	rotated, err := s.userRepo.RotateRefreshToken(ctx, user.ID.Hex(), oldToken, model.RefreshTokenEntry{
		Token:     newToken,
		CreatedAt: s.now(),
	}, s.authServiceCfg.Token.MaxRefreshTokens)
	if err != nil {
		return err
	}
	if !rotated {
		return ErrUnauthenticated
	}

	return nil
}

func (s *credentialStore) Revoke(ctx context.Context, userID, token string) error {
	var err error
	if token != "" {
		err = s.userRepo.RemoveRefreshToken(ctx, userID, token)
	} else {
		err = s.userRepo.ClearRefreshTokens(ctx, userID)
	}

	if errors.Is(err, bson.ErrInvalidHex) {
		return ErrUnauthenticated
	}

	return err
}

func (s *credentialStore) BeginPasswordReset(ctx context.Context, email string) (*model.User, string, error) {
	user, err := s.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, "", err
	}

	token, err := generateSecureToken(20)
	if err != nil {
		return nil, "", err
	}

	expiresAt := s.now().Add(s.authServiceCfg.Token.PasswordResetExpiresIn)
	if err := s.userRepo.SetPasswordResetToken(ctx, user.ID.Hex(), hashToken(token), expiresAt); err != nil {
		return nil, "", err
	}

	return user, token, nil
}

func (s *credentialStore) CompletePasswordReset(ctx context.Context, email, token, newPassword string) error {
	user, err := s.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}

	if user.ResetPasswordToken == nil || user.ResetPasswordExpires == nil {
		return ErrInvalidOrExpiredResetToken
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	reset, err := s.userRepo.ResetPassword(ctx, user.Email, hashToken(token), passwordHash, s.now())
	if err != nil {
		return err
	}
	if !reset {
		return ErrInvalidOrExpiredResetToken
	}

	return nil
}

func (s *credentialStore) VerifyEmail(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, ErrInvalidVerificationToken
	}

	user, err := s.userRepo.VerifyEmail(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrInvalidVerificationToken
		}

		return nil, err
	}

	return user, nil
}

func (s *credentialStore) SeedAdmin(ctx context.Context) (bool, error) {
	email := NormalizeEmail(s.authServiceCfg.AdminEmail)
	if email == "" {
		return false, nil
	}

	return s.userRepo.PromoteToAdmin(ctx, email)
}

// generateSecureToken returns n random bytes hex encoded.
func generateSecureToken(n int) (string, error) {
	bytes := make([]byte, n)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// hashToken returns the sha256 hex digest stored in place of a plaintext token.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
