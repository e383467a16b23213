package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/vasapolrittideah/storefront-api/services/auth-service/internal/model"
	"github.com/vasapolrittideah/storefront-api/services/auth-service/internal/repository"
)

var (
	ErrInvalidOrExpiredOTP = errors.New("invalid or expired otp")
	ErrOTPNotFound         = fmt.Errorf("%w: invalid otp", ErrInvalidOrExpiredOTP)
	ErrOTPExpired          = fmt.Errorf("%w: otp expired", ErrInvalidOrExpiredOTP)
)

var otpSpace = big.NewInt(1_000_000)

// OTPUsecase issues and verifies single-use numeric passcodes.
type OTPUsecase interface {
	// Issue creates a passcode for email valid for validity. Earlier
	// passcodes for the same email are left untouched.
	Issue(ctx context.Context, email string, validity time.Duration, resend bool) (*model.OTP, error)

	// Verify consumes the newest unused passcode matching email and code.
	Verify(ctx context.Context, email, code string) error
}

type otpUsecase struct {
	otpRepo repository.OTPRepository
	now     func() time.Time
}

func NewOTPUsecase(otpRepo repository.OTPRepository, now func() time.Time) OTPUsecase {
	if now == nil {
		now = time.Now
	}

	return &otpUsecase{
		otpRepo: otpRepo,
		now:     now,
	}
}

func (u *otpUsecase) Issue(ctx context.Context, email string, validity time.Duration, resend bool) (*model.OTP, error) {
	code, err := generateOTPCode()
	if err != nil {
		return nil, err
	}

	now := u.now()
	return u.otpRepo.CreateOTP(ctx, &model.OTP{
		Email:     email,
		Code:      code,
		ExpiresAt: now.Add(validity),
		Resend:    resend,
		CreatedAt: now,
	})
}

func (u *otpUsecase) Verify(ctx context.Context, email, code string) error {
	otp, err := u.otpRepo.GetLatestUnused(ctx, email, code)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrOTPNotFound
		}
		return err
	}

	// Expiry does not consume the passcode.
	if otp.Expired(u.now()) {
		return ErrOTPExpired
	}

	marked, err := u.otpRepo.MarkUsed(ctx, otp.ID)
	if err != nil {
		return err
	}
	if !marked {
		// A concurrent verification consumed it first.
		return ErrOTPNotFound
	}

	return nil
}

// generateOTPCode returns a uniformly random code in 000000-999999.
func generateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, otpSpace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
