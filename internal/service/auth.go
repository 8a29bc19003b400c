// Package service provides the authentication and ledger business logic,
// delegating persistence to an AccountRepository.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/okulov/fincore/internal/models"
)

// AccountRepository defines the persistence operations required by the
// services. Implementations own exclusive access to the persisted store;
// Update is the only mutation boundary and must persist the full mapping
// atomically before returning.
type AccountRepository interface {
	// Account returns the named account or an error wrapping
	// models.ErrUnknownAccount.
	Account(ctx context.Context, username string) (models.Account, error)
	// Accounts returns a snapshot of the full account mapping.
	Accounts(ctx context.Context) (map[string]models.Account, error)
	// Update applies fn to the mapping and persists it; if fn fails,
	// nothing changes.
	Update(ctx context.Context, fn func(map[string]*models.Account) error) error
}

// CodeVerifier validates one-time codes and formats enrollment URIs.
type CodeVerifier interface {
	// Verify reports whether code is currently valid for seed.
	Verify(seed, code string) bool
	// ProvisioningURI returns the otpauth:// enrollment URI for a seed.
	ProvisioningURI(account, seed string) string
}

// AuthService authenticates users with a password and a one-time code,
// producing an explicit Session principal.
type AuthService struct {
	repo  AccountRepository
	codes CodeVerifier
	log   *zap.Logger
}

// NewAuthService constructs an AuthService using the provided repository
// and code verifier.
func NewAuthService(repo AccountRepository, codes CodeVerifier, log *zap.Logger) *AuthService {
	return &AuthService{repo: repo, codes: codes, log: log}
}

// Login validates the password and then the one-time code for username,
// reading the account fresh from the store. An unknown username and a wrong
// password both yield models.ErrInvalidCredentials; only after the password
// matches is the code checked, failing with models.ErrInvalidOTP. Login
// never mutates the store. On success it returns a Session carrying a fresh
// token, the username, and the account's role.
func (s *AuthService) Login(ctx context.Context, username, password, code string) (models.Session, error) {
	acc, err := s.repo.Account(ctx, username)
	if err != nil {
		if errors.Is(err, models.ErrUnknownAccount) {
			s.log.Debug("login for unknown account", zap.String("username", username))
			return models.Session{}, models.ErrInvalidCredentials
		}
		return models.Session{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		s.log.Debug("password mismatch", zap.String("username", username))
		return models.Session{}, models.ErrInvalidCredentials
	}

	if !s.codes.Verify(acc.OTPSeed, code) {
		s.log.Debug("otp verification failed", zap.String("username", username))
		return models.Session{}, models.ErrInvalidOTP
	}

	session := models.Session{
		Token:    uuid.NewString(),
		Username: username,
		Role:     acc.Role,
	}
	s.log.Info("login successful",
		zap.String("username", username),
		zap.String("role", string(acc.Role)))
	return session, nil
}

// ProvisioningURI returns the enrollment URI for the named account's OTP
// seed, for the caller to render as a scannable code.
func (s *AuthService) ProvisioningURI(ctx context.Context, username string) (string, error) {
	acc, err := s.repo.Account(ctx, username)
	if err != nil {
		return "", err
	}
	if acc.OTPSeed == "" {
		return "", fmt.Errorf("%s has no otp seed: %w", username, models.ErrUnknownAccount)
	}
	return s.codes.ProvisioningURI(username, acc.OTPSeed), nil
}
