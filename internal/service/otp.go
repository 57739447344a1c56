package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/bazaarhq/bazaar/internal/config"
	apperrors "github.com/bazaarhq/bazaar/internal/errors"
	"github.com/bazaarhq/bazaar/internal/notify"
	"github.com/bazaarhq/bazaar/internal/otp"
	"github.com/bazaarhq/bazaar/internal/store"
	"golang.org/x/crypto/bcrypt"
)

const (
	otpKeyPrefix      = "otp:"
	cooldownKeyPrefix = "otp-cooldown:"
	attemptsKeyPrefix = "otp-attempts:"
	otpDigits         = 6

	defaultOTPMaxAttempts = 5
)

// OTPService issues and checks one-time codes sent to the user's email.
type OTPService interface {
	// Request generates a code for username and sends it through the notifier.
	// Returns ErrMissingUsername, ErrUserNotFound or ErrOTPCooldown.
	Request(ctx context.Context, username string) error

	// Verify consumes the code. Returns ErrMissingOTP or ErrInvalidOTP.
	// Too many wrong codes discard the issued one.
	Verify(ctx context.Context, username, code string) error
}

var _ OTPService = (*OTPs)(nil)

type OTPs struct {
	users    store.UserStore
	kv       otp.Store
	notifier notify.Notifier
	cfg      config.OTPConfig
	now      func() time.Time
	generate func() (string, error)
}

func NewOTPService(users store.UserStore, kv otp.Store, notifier notify.Notifier, cfg config.OTPConfig) *OTPs {
	return &OTPs{
		users:    users,
		kv:       kv,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
		generate: generateCode,
	}
}

func (s *OTPs) Request(ctx context.Context, username string) error {
	if username == "" {
		return apperrors.ErrMissingUsername
	}
	user, err := s.users.FindUserByUsername(ctx, username)
	if err != nil {
		return err
	}
	if s.cfg.Cooldown > 0 {
		ok, err := s.kv.PutIfAbsent(ctx, cooldownKeyPrefix+username, "1", s.cfg.Cooldown)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.ErrOTPCooldown
		}
	}

	code, err := s.generate()
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash otp: %w", err)
	}
	if err := s.kv.Put(ctx, otpKeyPrefix+username, string(hash), s.cfg.TTL); err != nil {
		return err
	}
	if err := s.kv.Delete(ctx, attemptsKeyPrefix+username); err != nil {
		return err
	}
	slog.InfoContext(ctx, "OTP issued", "username", username)
	s.notifier.NotifyOTP(ctx, username, user.Email, code, s.now().Add(s.cfg.TTL))
	return nil
}

func (s *OTPs) Verify(ctx context.Context, username, code string) error {
	if username == "" || code == "" {
		return apperrors.ErrMissingOTP
	}
	hash, err := s.kv.Get(ctx, otpKeyPrefix+username)
	if errors.Is(err, otp.ErrKeyNotFound) {
		return apperrors.ErrInvalidOTP
	}
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)); err != nil {
		return s.recordMiss(ctx, username)
	}
	if err := s.kv.Delete(ctx, otpKeyPrefix+username); err != nil {
		return err
	}
	return s.kv.Delete(ctx, attemptsKeyPrefix+username)
}

func (s *OTPs) recordMiss(ctx context.Context, username string) error {
	attempts, err := s.kv.Incr(ctx, attemptsKeyPrefix+username, s.cfg.TTL)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "OTP mismatch", "username", username, "attempts", attempts)
	if attempts < int64(s.maxAttempts()) {
		return apperrors.ErrInvalidOTP
	}
	slog.WarnContext(ctx, "OTP discarded after too many wrong attempts", "username", username)
	if err := s.kv.Delete(ctx, otpKeyPrefix+username); err != nil {
		return err
	}
	if err := s.kv.Delete(ctx, attemptsKeyPrefix+username); err != nil {
		return err
	}
	return apperrors.ErrInvalidOTP
}

func (s *OTPs) maxAttempts() int {
	if s.cfg.MaxAttempts > 0 {
		return s.cfg.MaxAttempts
	}
	return defaultOTPMaxAttempts
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", otpDigits, n.Int64()), nil
}
