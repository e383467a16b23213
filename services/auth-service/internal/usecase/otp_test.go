package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasapolrittideah/storefront-api/services/auth-service/internal/model"
)

func TestGenerateOTPCode(t *testing.T) {
	for range 200 {
		code, err := generateOTPCode()
		require.NoError(t, err)
		assert.Regexp(t, `^[0-9]{6}$`, code)
	}
}

func TestOTPUsecase_NewestUnusedWins(t *testing.T) {
	clock := newTestClock()
	repo := &memOTPRepository{}
	otps := NewOTPUsecase(repo, clock.Now)
	ctx := context.Background()

	first, err := otps.Issue(ctx, "asha@x.com", time.Minute, false)
	require.NoError(t, err)

	clock.Advance(30 * time.Second)
	dup, err := repo.CreateOTP(ctx, &model.OTP{
		Email:     "asha@x.com",
		Code:      first.Code,
		ExpiresAt: clock.Now().Add(time.Minute),
		CreatedAt: clock.Now(),
	})
	require.NoError(t, err)

	require.NoError(t, otps.Verify(ctx, "asha@x.com", first.Code))

	for _, otp := range repo.all() {
		assert.Equal(t, otp.ID == dup.ID, otp.Used)
	}
}

func TestOTPUsecase_WrongEmail(t *testing.T) {
	clock := newTestClock()
	otps := NewOTPUsecase(&memOTPRepository{}, clock.Now)
	ctx := context.Background()

	otp, err := otps.Issue(ctx, "asha@x.com", time.Minute, false)
	require.NoError(t, err)

	assert.ErrorIs(t, otps.Verify(ctx, "ravi@x.com", otp.Code), ErrOTPNotFound)
}

func TestHumanDuration(t *testing.T) {
	assert.Equal(t, "2 minutes", humanDuration(2*time.Minute))
	assert.Equal(t, "1 hour", humanDuration(time.Hour))
	assert.Equal(t, "1m30s", humanDuration(90*time.Second))
}
