package service

import (
	"context"
	"testing"
	"time"

	"github.com/bazaarhq/bazaar/internal/config"
	apperrors "github.com/bazaarhq/bazaar/internal/errors"
	"github.com/bazaarhq/bazaar/internal/otp"
	"github.com/bazaarhq/bazaar/internal/store/db"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOTPService(t *testing.T, cfg config.OTPConfig) (*OTPs, *otp.MemoryStore, *recordingNotifier) {
	t.Helper()
	user := &db.User{ID: uuid.New(), Username: "alice", Email: "alice@example.com"}
	kv := otp.NewMemoryStore()
	notifier := &recordingNotifier{}
	svc := NewOTPService(newFakeUserStore(user), kv, notifier, cfg)
	svc.generate = func() (string, error) { return "042137", nil }
	return svc, kv, notifier
}

func Test_OTPService_Request(t *testing.T) {
	testCases := []struct {
		name        string
		username    string
		expectErrIs error
		expectKind  error
	}{
		{name: "Success", username: "alice"},
		{name: "Error - missing username", username: "", expectErrIs: apperrors.ErrMissingUsername, expectKind: apperrors.ErrValidation},
		{name: "Error - unknown user", username: "bob", expectErrIs: apperrors.ErrUserNotFound, expectKind: apperrors.ErrNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			svc, kv, notifier := newOTPService(t, config.OTPConfig{TTL: 5 * time.Minute, Cooldown: time.Minute})

			// when
			err := svc.Request(context.Background(), tc.username)

			// then
			if tc.expectErrIs != nil {
				require.ErrorIs(t, err, tc.expectErrIs)
				assert.ErrorIs(t, err, tc.expectKind)
				assert.Empty(t, notifier.all())
				return
			}
			require.NoError(t, err)
			stored, err := kv.Get(context.Background(), "otp:alice")
			require.NoError(t, err)
			assert.NotEqual(t, "042137", stored, "the code must be stored hashed")
			assert.Equal(t, []notification{{kind: "otp", email: "alice@example.com", code: "042137"}}, notifier.all())
		})
	}
}

func Test_OTPService_Request_Cooldown(t *testing.T) {
	// given
	svc, _, notifier := newOTPService(t, config.OTPConfig{TTL: 5 * time.Minute, Cooldown: time.Minute})
	ctx := context.Background()
	require.NoError(t, svc.Request(ctx, "alice"))

	// when
	err := svc.Request(ctx, "alice")

	// then
	assert.ErrorIs(t, err, apperrors.ErrOTPCooldown)
	assert.ErrorIs(t, err, apperrors.ErrRateLimited)
	assert.Len(t, notifier.all(), 1)
}

func Test_OTPService_Verify(t *testing.T) {
	testCases := []struct {
		name        string
		username    string
		code        string
		expectErrIs error
	}{
		{name: "Success", username: "alice", code: "042137"},
		{name: "Error - wrong code", username: "alice", code: "000000", expectErrIs: apperrors.ErrInvalidOTP},
		{name: "Error - no code issued", username: "bob", code: "042137", expectErrIs: apperrors.ErrInvalidOTP},
		{name: "Error - missing code", username: "alice", code: "", expectErrIs: apperrors.ErrMissingOTP},
		{name: "Error - missing username", username: "", code: "042137", expectErrIs: apperrors.ErrMissingOTP},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			svc, _, _ := newOTPService(t, config.OTPConfig{TTL: 5 * time.Minute})
			ctx := context.Background()
			require.NoError(t, svc.Request(ctx, "alice"))

			// when
			err := svc.Verify(ctx, tc.username, tc.code)

			// then
			if tc.expectErrIs != nil {
				assert.ErrorIs(t, err, tc.expectErrIs)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func Test_OTPService_Verify_ConsumesCode(t *testing.T) {
	// given
	svc, _, _ := newOTPService(t, config.OTPConfig{TTL: 5 * time.Minute})
	ctx := context.Background()
	require.NoError(t, svc.Request(ctx, "alice"))
	require.NoError(t, svc.Verify(ctx, "alice", "042137"))

	// when
	err := svc.Verify(ctx, "alice", "042137")

	// then
	assert.ErrorIs(t, err, apperrors.ErrInvalidOTP)
}

func Test_OTPService_Verify_DiscardsCodeAfterMaxAttempts(t *testing.T) {
	// given
	svc, kv, _ := newOTPService(t, config.OTPConfig{TTL: 5 * time.Minute, MaxAttempts: 3})
	ctx := context.Background()
	require.NoError(t, svc.Request(ctx, "alice"))
	for range 3 {
		require.ErrorIs(t, svc.Verify(ctx, "alice", "000000"), apperrors.ErrInvalidOTP)
	}

	// when
	err := svc.Verify(ctx, "alice", "042137")

	// then
	assert.ErrorIs(t, err, apperrors.ErrInvalidOTP)
	_, getErr := kv.Get(ctx, otpKeyPrefix+"alice")
	assert.ErrorIs(t, getErr, otp.ErrKeyNotFound)
}

func Test_OTPService_Verify_CorrectCodeBelowLimitResetsAttempts(t *testing.T) {
	// given
	svc, kv, _ := newOTPService(t, config.OTPConfig{TTL: 5 * time.Minute, MaxAttempts: 3})
	ctx := context.Background()
	require.NoError(t, svc.Request(ctx, "alice"))
	for range 2 {
		require.ErrorIs(t, svc.Verify(ctx, "alice", "000000"), apperrors.ErrInvalidOTP)
	}

	// when
	err := svc.Verify(ctx, "alice", "042137")

	// then
	require.NoError(t, err)
	_, getErr := kv.Get(ctx, attemptsKeyPrefix+"alice")
	assert.ErrorIs(t, getErr, otp.ErrKeyNotFound)
}

func Test_OTPService_Request_ResetsAttempts(t *testing.T) {
	// given
	svc, _, _ := newOTPService(t, config.OTPConfig{TTL: 5 * time.Minute, MaxAttempts: 2})
	ctx := context.Background()
	require.NoError(t, svc.Request(ctx, "alice"))
	require.ErrorIs(t, svc.Verify(ctx, "alice", "000000"), apperrors.ErrInvalidOTP)

	// when
	require.NoError(t, svc.Request(ctx, "alice"))
	require.ErrorIs(t, svc.Verify(ctx, "alice", "000000"), apperrors.ErrInvalidOTP)
	err := svc.Verify(ctx, "alice", "042137")

	// then
	assert.NoError(t, err)
}

func Test_generateCode(t *testing.T) {
	for range 50 {
		code, err := generateCode()
		require.NoError(t, err)
		assert.Regexp(t, `^\d{6}$`, code)
	}
}
