// Package repository provides persistence implementations for the account
// store. The store is the single source of truth: every mutation goes
// through Update, which persists the whole mapping before it becomes
// visible to readers.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/okulov/fincore/internal/models"
	"github.com/okulov/fincore/internal/otp"
)

// seedAccount describes one demo account materialized on first start.
type seedAccount struct {
	Username string
	Password string
	Role     models.Role
	Balance  int64
}

// defaultSeed is the fixed demo account set.
var defaultSeed = []seedAccount{
	{Username: "customer1", Password: "secure123", Role: models.RoleCustomer, Balance: 1500},
	{Username: "customer2", Password: "wallet321", Role: models.RoleCustomer, Balance: 3200},
	{Username: "admin1", Password: "adminpass", Role: models.RoleAdmin},
}

// FileAccountRepository keeps the account mapping in memory, mirrored to a
// single pretty-printed JSON file. A store-wide mutex serializes every
// load-mutate-save cycle; saves go through a temp file and rename so a
// reader never observes a half-written store.
type FileAccountRepository struct {
	path            string
	reseedOnCorrupt bool
	log             *zap.Logger

	mu       sync.Mutex
	accounts map[string]models.Account
}

// FileOption configures a FileAccountRepository.
type FileOption func(*FileAccountRepository)

// WithReseedOnCorrupt makes open discard an unparseable store file and
// reseed the demo accounts instead of failing. The discarded data is lost;
// this is an explicit operator decision, never the default.
func WithReseedOnCorrupt() FileOption {
	return func(r *FileAccountRepository) { r.reseedOnCorrupt = true }
}

// WithLogger sets the logger used for recovery and backfill events.
func WithLogger(log *zap.Logger) FileOption {
	return func(r *FileAccountRepository) { r.log = log }
}

// NewFileAccountRepository opens the store at path, seeding the demo
// accounts if the file is missing or empty and backfilling OTP seeds on
// entries that lack one. An unparseable file yields an error wrapping
// models.ErrStoreCorrupt unless WithReseedOnCorrupt was given.
func NewFileAccountRepository(path string, opts ...FileOption) (*FileAccountRepository, error) {
	r := &FileAccountRepository{path: path, log: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.open(); err != nil {
		return nil, err
	}
	return r, nil
}

// open loads the persisted mapping, applying the seed and backfill rules.
func (r *FileAccountRepository) open() error {
	data, err := os.ReadFile(r.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return r.seed()
	case err != nil:
		return fmt.Errorf("read store %s: %w", r.path, err)
	case len(data) == 0:
		return r.seed()
	}

	accounts := make(map[string]models.Account)
	if err := json.Unmarshal(data, &accounts); err != nil {
		if !r.reseedOnCorrupt {
			return fmt.Errorf("parse store %s: %v: %w", r.path, err, models.ErrStoreCorrupt)
		}
		r.log.Warn("discarding corrupt account store and reseeding demo accounts",
			zap.String("path", r.path), zap.Error(err))
		return r.seed()
	}

	// Backfill OTP seeds missed by older store files; other fields are
	// left untouched.
	patched := false
	for username, acc := range accounts {
		if acc.OTPSeed != "" {
			continue
		}
		seed, err := otp.NewSeed()
		if err != nil {
			return err
		}
		acc.OTPSeed = seed
		accounts[username] = acc
		patched = true
		r.log.Info("backfilled otp seed", zap.String("username", username))
	}

	r.accounts = accounts
	if patched {
		return r.save()
	}
	return nil
}

// seed materializes the demo accounts with bcrypt password hashes and fresh
// OTP seeds, then persists them.
func (r *FileAccountRepository) seed() error {
	accounts := make(map[string]models.Account, len(defaultSeed))
	for _, s := range defaultSeed {
		hash, err := bcrypt.GenerateFromPassword([]byte(s.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash seed password: %w", err)
		}
		seed, err := otp.NewSeed()
		if err != nil {
			return err
		}
		accounts[s.Username] = models.Account{
			PasswordHash: string(hash),
			Role:         s.Role,
			Balance:      s.Balance,
			OTPSeed:      seed,
		}
	}
	r.accounts = accounts
	return r.save()
}

// save writes the full mapping to a temp file and renames it over the store
// path. The caller must hold mu (or be the only reference, as during open).
func (r *FileAccountRepository) save() error {
	data, err := json.MarshalIndent(r.accounts, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write store: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replace store: %w", err)
	}
	return nil
}

// Account returns a copy of the named account, or an error wrapping
// models.ErrUnknownAccount.
func (r *FileAccountRepository) Account(ctx context.Context, username string) (models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[username]
	if !ok {
		return models.Account{}, fmt.Errorf("%s: %w", username, models.ErrUnknownAccount)
	}
	acc.Username = username
	return acc, nil
}

// Accounts returns a snapshot copy of the full mapping.
func (r *FileAccountRepository) Accounts(ctx context.Context) (map[string]models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]models.Account, len(r.accounts))
	for username, acc := range r.accounts {
		acc.Username = username
		out[username] = acc
	}
	return out, nil
}

// Update applies fn to a copy of the mapping under the store mutex. If fn
// succeeds the copy is persisted and swapped in; if fn or the save fails
// the visible state is unchanged. This is the only mutation boundary.
func (r *FileAccountRepository) Update(ctx context.Context, fn func(map[string]*models.Account) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	scratch := make(map[string]*models.Account, len(r.accounts))
	for username, acc := range r.accounts {
		cp := acc
		cp.Username = username
		scratch[username] = &cp
	}

	if err := fn(scratch); err != nil {
		return err
	}

	next := make(map[string]models.Account, len(scratch))
	for username, acc := range scratch {
		cp := *acc
		cp.Username = ""
		next[username] = cp
	}

	prev := r.accounts
	r.accounts = next
	if err := r.save(); err != nil {
		r.accounts = prev
		return err
	}
	return nil
}
