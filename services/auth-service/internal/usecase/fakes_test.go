package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/matthewhartstonge/argon2"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/vasapolrittideah/storefront-api/services/auth-service/internal/config"
	"github.com/vasapolrittideah/storefront-api/services/auth-service/internal/model"
	"github.com/vasapolrittideah/storefront-api/services/auth-service/internal/repository"
	"github.com/vasapolrittideah/storefront-api/shared/auth"
	"github.com/vasapolrittideah/storefront-api/shared/mailer"
	"github.com/vasapolrittideah/storefront-api/shared/security"
)

var duplicateKeyError = mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// memUserRepository keeps users in memory and applies every mutation under one
// lock, matching the single-document atomicity of the mongo repository.
type memUserRepository struct {
	mu    sync.Mutex
	users map[bson.ObjectID]*model.User
}

func newMemUserRepository() *memUserRepository {
	return &memUserRepository{users: map[bson.ObjectID]*model.User{}}
}

func cloneUser(u *model.User) *model.User {
	c := *u
	c.RefreshTokens = append([]model.RefreshTokenEntry{}, u.RefreshTokens...)
	return &c
}

func (r *memUserRepository) byID(id string) (*model.User, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	user, ok := r.users[objectID]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return user, nil
}

func (r *memUserRepository) byEmail(email string) *model.User {
	for _, user := range r.users {
		if user.Email == email {
			return user
		}
	}
	return nil
}

// stored returns a copy of the persisted user with the given email.
func (r *memUserRepository) stored(email string) *model.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user := r.byEmail(email); user != nil {
		return cloneUser(user)
	}
	return nil
}

func (r *memUserRepository) modify(email string, fn func(*model.User)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user := r.byEmail(email); user != nil {
		fn(user)
	}
}

func (r *memUserRepository) CreateUser(_ context.Context, user *model.User) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Email == user.Email || existing.Number == user.Number {
			return nil, duplicateKeyError
		}
	}

	user.ID = bson.NewObjectID()
	if user.RefreshTokens == nil {
		user.RefreshTokens = []model.RefreshTokenEntry{}
	}
	r.users[user.ID] = cloneUser(user)

	return user, nil
}

func (r *memUserRepository) GetUser(_ context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, err := r.byID(id)
	if err != nil {
		return nil, err
	}
	return cloneUser(user), nil
}

func (r *memUserRepository) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user := r.byEmail(email); user != nil {
		return cloneUser(user), nil
	}
	return nil, mongo.ErrNoDocuments
}

func (r *memUserRepository) UpdateUser(
	_ context.Context,
	id string,
	params repository.UpdateUserParams,
) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, err := r.byID(id)
	if err != nil {
		return nil, err
	}

	if params.Number != nil {
		for _, other := range r.users {
			if other.ID != user.ID && other.Number == *params.Number {
				return nil, duplicateKeyError
			}
		}
		user.Number = *params.Number
	}
	if params.Name != nil {
		user.Name = *params.Name
	}
	if params.PasswordHash != nil {
		user.PasswordHash = *params.PasswordHash
	}
	if params.LastLogin != nil {
		t := *params.LastLogin
		user.LastLogin = &t
	}
	if params.LastSeen != nil {
		t := *params.LastSeen
		user.LastSeen = &t
	}

	return cloneUser(user), nil
}

func (r *memUserRepository) PromoteToAdmin(_ context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user := r.byEmail(email)
	if user == nil || user.Role == model.RoleAdmin {
		return false, nil
	}
	user.Role = model.RoleAdmin
	return true, nil
}

func keepNewest(entries []model.RefreshTokenEntry, limit int) []model.RefreshTokenEntry {
	if len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return append([]model.RefreshTokenEntry{}, entries...)
}

func (r *memUserRepository) AddRefreshToken(
	_ context.Context,
	id string,
	entry model.RefreshTokenEntry,
	limit int,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, err := r.byID(id)
	if err != nil {
		return err
	}
	user.RefreshTokens = keepNewest(append(user.RefreshTokens, entry), limit)
	return nil
}

func (r *memUserRepository) RotateRefreshToken(
	_ context.Context,
	id, oldToken string,
	entry model.RefreshTokenEntry,
	limit int,
) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, err := r.byID(id)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return false, nil
		}
		return false, err
	}
	if !user.HasRefreshToken(oldToken) {
		return false, nil
	}

	remaining := make([]model.RefreshTokenEntry, 0, len(user.RefreshTokens))
	for _, e := range user.RefreshTokens {
		if e.Token != oldToken {
			remaining = append(remaining, e)
		}
	}
	user.RefreshTokens = keepNewest(append(remaining, entry), limit)
	return true, nil
}

func (r *memUserRepository) RemoveRefreshToken(_ context.Context, id, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, err := r.byID(id)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil
		}
		return err
	}

	remaining := make([]model.RefreshTokenEntry, 0, len(user.RefreshTokens))
	for _, e := range user.RefreshTokens {
		if e.Token != token {
			remaining = append(remaining, e)
		}
	}
	user.RefreshTokens = remaining
	return nil
}

func (r *memUserRepository) ClearRefreshTokens(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, err := r.byID(id)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil
		}
		return err
	}
	user.RefreshTokens = []model.RefreshTokenEntry{}
	return nil
}

func (r *memUserRepository) SetPasswordResetToken(
	_ context.Context,
	id, tokenHash string,
	expiresAt time.Time,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, err := r.byID(id)
	if err != nil {
		return err
	}
	user.ResetPasswordToken = &tokenHash
	user.ResetPasswordExpires = &expiresAt
	return nil
}

func (r *memUserRepository) ResetPassword(
	_ context.Context,
	email, tokenHash, passwordHash string,
	now time.Time,
) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user := r.byEmail(email)
	if user == nil || user.ResetPasswordToken == nil || user.ResetPasswordExpires == nil {
		return false, nil
	}
	if *user.ResetPasswordToken != tokenHash || !user.ResetPasswordExpires.After(now) {
		return false, nil
	}

	user.PasswordHash = passwordHash
	user.ResetPasswordToken = nil
	user.ResetPasswordExpires = nil
	return true, nil
}

func (r *memUserRepository) VerifyEmail(_ context.Context, tokenHash string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, user := range r.users {
		if user.VerificationToken != nil && *user.VerificationToken == tokenHash {
			user.IsVerified = true
			user.VerificationToken = nil
			return cloneUser(user), nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

type memOTPRepository struct {
	mu   sync.Mutex
	otps []*model.OTP
}

func (r *memOTPRepository) CreateOTP(_ context.Context, otp *model.OTP) (*model.OTP, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	otp.ID = bson.NewObjectID()
	otp.Used = false
	stored := *otp
	r.otps = append(r.otps, &stored)
	return otp, nil
}

func (r *memOTPRepository) GetLatestUnused(_ context.Context, email, code string) (*model.OTP, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var latest *model.OTP
	for _, otp := range r.otps {
		if otp.Email != email || otp.Code != code || otp.Used {
			continue
		}
		if latest == nil || !otp.CreatedAt.Before(latest.CreatedAt) {
			latest = otp
		}
	}
	if latest == nil {
		return nil, mongo.ErrNoDocuments
	}

	found := *latest
	return &found, nil
}

func (r *memOTPRepository) MarkUsed(_ context.Context, id bson.ObjectID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, otp := range r.otps {
		if otp.ID == id && !otp.Used {
			otp.Used = true
			return true, nil
		}
	}
	return false, nil
}

func (r *memOTPRepository) all() []model.OTP {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.OTP, 0, len(r.otps))
	for _, otp := range r.otps {
		out = append(out, *otp)
	}
	return out
}

type recordingNotifier struct {
	mu     sync.Mutex
	emails []mailer.Email
}

func (n *recordingNotifier) Enqueue(email mailer.Email) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.emails = append(n.emails, email)
}

func (n *recordingNotifier) sent() []mailer.Email {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]mailer.Email{}, n.emails...)
}

func testConfig() *config.AuthServiceConfig {
	return &config.AuthServiceConfig{
		Environment:         "test",
		AdminEmail:          "owner@shop.test",
		AppBaseURL:          "http://localhost:8080",
		AppPasswordResetURL: "https://shop.test/reset-password",
		Token: config.TokenConfig{
			Issuer:                 "storefront-test",
			AccessTokenSecret:      "access-secret",
			AccessTokenExpiresIn:   24 * time.Hour,
			RefreshTokenSecret:     "refresh-secret",
			RefreshTokenExpiresIn:  30 * 24 * time.Hour,
			PasswordResetExpiresIn: time.Hour,
			MaxRefreshTokens:       5,
		},
		OTP: config.OTPConfig{
			LoginExpiresIn:  2 * time.Minute,
			ResendExpiresIn: 5 * time.Minute,
		},
	}
}

func testHasher() *security.PasswordHasher {
	cfg := argon2.DefaultConfig()
	cfg.TimeCost = 1
	cfg.MemoryCost = 8 * 1024
	cfg.Parallelism = 1
	return security.NewPasswordHasher(cfg)
}

type testEnv struct {
	cfg      *config.AuthServiceConfig
	clock    *testClock
	users    *memUserRepository
	otpRepo  *memOTPRepository
	notifier *recordingNotifier

	credentials CredentialStore
	tokens      TokenIssuer
	auth        AuthUsecase
	reset       PasswordResetUsecase
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		cfg:      testConfig(),
		clock:    newTestClock(),
		users:    newMemUserRepository(),
		otpRepo:  &memOTPRepository{},
		notifier: &recordingNotifier{},
	}

	logger := zerolog.Nop()
	jwtAuth := auth.NewJWTAuthenticator("storefront", env.cfg.Token.Issuer, auth.WithClock(env.clock.Now))

	env.tokens = NewTokenIssuer(jwtAuth, env.cfg.Token)
	env.credentials = NewCredentialStore(env.users, testHasher(), env.cfg, env.clock.Now)
	env.auth = NewAuthUsecase(
		env.credentials,
		NewOTPUsecase(env.otpRepo, env.clock.Now),
		env.tokens,
		env.notifier,
		env.cfg,
		&logger,
	)
	env.reset = NewPasswordResetUsecase(env.credentials, env.notifier, env.cfg, &logger)

	return env
}
