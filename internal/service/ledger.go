package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/okulov/fincore/internal/authz"
	"github.com/okulov/fincore/internal/models"
)

const (
	// MinTransferAmount is the smallest transferable amount.
	MinTransferAmount = 1
	// MaxTransferAmount is the policy cap on a single transfer.
	MaxTransferAmount = 10000

	// pendingAmountMin/Max bound the synthetic pending-request amount.
	pendingAmountMin = 5000
	pendingAmountMax = 10000
)

// LedgerService applies balance-mutating operations. Every successful
// mutation is a debit/credit pair inside one repository Update, so the sum
// of customer balances is preserved and a failed operation changes nothing.
type LedgerService struct {
	repo AccountRepository
	log  *zap.Logger
}

// NewLedgerService constructs a LedgerService using the provided repository.
func NewLedgerService(repo AccountRepository, log *zap.Logger) *LedgerService {
	return &LedgerService{repo: repo, log: log}
}

// Balance returns the session account's own balance.
func (s *LedgerService) Balance(ctx context.Context, session models.Session) (int64, error) {
	if err := authz.Authorize(session, authz.OpViewOwnBalance); err != nil {
		return 0, err
	}
	acc, err := s.repo.Account(ctx, session.Username)
	if err != nil {
		return 0, err
	}
	return acc.Balance, nil
}

// AllBalances returns the balance of every customer account.
func (s *LedgerService) AllBalances(ctx context.Context, session models.Session) (map[string]int64, error) {
	if err := authz.Authorize(session, authz.OpViewAllBalances); err != nil {
		return nil, err
	}
	accounts, err := s.repo.Accounts(ctx)
	if err != nil {
		return nil, err
	}
	balances := make(map[string]int64)
	for username, acc := range accounts {
		if acc.IsCustomer() {
			balances[username] = acc.Balance
		}
	}
	return balances, nil
}

// Recipients returns the customer accounts the session may transfer to,
// sorted by username.
func (s *LedgerService) Recipients(ctx context.Context, session models.Session) ([]string, error) {
	if err := authz.Authorize(session, authz.OpTransferFunds); err != nil {
		return nil, err
	}
	accounts, err := s.repo.Accounts(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for username, acc := range accounts {
		if acc.IsCustomer() && username != session.Username {
			out = append(out, username)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Transfer moves amount from the session's own account to the named
// customer account and persists the result. A failed transfer leaves both
// balances unchanged.
func (s *LedgerService) Transfer(ctx context.Context, session models.Session, to string, amount int64) error {
	if err := authz.Authorize(session, authz.OpTransferFunds); err != nil {
		return err
	}
	if err := s.apply(ctx, session.Username, to, amount); err != nil {
		return err
	}
	s.log.Info("transfer applied",
		zap.String("from", session.Username),
		zap.String("to", to),
		zap.Int64("amount", amount))
	return nil
}

// Approve applies a pending transfer request under the same validation and
// atomicity rules as Transfer.
func (s *LedgerService) Approve(ctx context.Context, session models.Session, req models.TransferRequest) error {
	if err := authz.Authorize(session, authz.OpApproveTransfer); err != nil {
		return err
	}
	if err := s.apply(ctx, req.From, req.To, req.Amount); err != nil {
		return err
	}
	s.log.Info("transfer request approved",
		zap.String("request_id", req.ID),
		zap.String("from", req.From),
		zap.String("to", req.To),
		zap.Int64("amount", req.Amount))
	return nil
}

// Reject acknowledges a pending transfer request without touching any
// balance.
func (s *LedgerService) Reject(ctx context.Context, session models.Session, req models.TransferRequest) error {
	if err := authz.Authorize(session, authz.OpRejectTransfer); err != nil {
		return err
	}
	s.log.Info("transfer request rejected",
		zap.String("request_id", req.ID),
		zap.String("from", req.From),
		zap.String("to", req.To),
		zap.Int64("amount", req.Amount))
	return nil
}

// PendingRequest synthesizes a large-transfer request between the two
// lowest-named customer accounts, with a uniformly random amount in
// [5000, 10000]. A new request is produced on every call; a persisted
// request queue would replace this generator.
func (s *LedgerService) PendingRequest(ctx context.Context) (models.TransferRequest, error) {
	accounts, err := s.repo.Accounts(ctx)
	if err != nil {
		return models.TransferRequest{}, err
	}
	var customers []string
	for username, acc := range accounts {
		if acc.IsCustomer() {
			customers = append(customers, username)
		}
	}
	if len(customers) < 2 {
		return models.TransferRequest{}, fmt.Errorf("need at least two customer accounts: %w", models.ErrUnknownAccount)
	}
	sort.Strings(customers)

	return models.TransferRequest{
		ID:     uuid.NewString(),
		From:   customers[0],
		To:     customers[1],
		Amount: pendingAmountMin + rand.Int64N(pendingAmountMax-pendingAmountMin+1),
	}, nil
}

// apply validates and performs the debit/credit pair inside one repository
// Update. Validation order: amount range, distinct accounts, existence,
// customer role, then funds.
func (s *LedgerService) apply(ctx context.Context, from, to string, amount int64) error {
	if amount < MinTransferAmount || amount > MaxTransferAmount {
		return fmt.Errorf("amount %d: %w", amount, models.ErrInvalidAmount)
	}
	if from == to {
		return fmt.Errorf("%s: %w", from, models.ErrSameAccount)
	}
	return s.repo.Update(ctx, func(accounts map[string]*models.Account) error {
		src, ok := accounts[from]
		if !ok {
			return fmt.Errorf("%s: %w", from, models.ErrUnknownAccount)
		}
		dst, ok := accounts[to]
		if !ok {
			return fmt.Errorf("%s: %w", to, models.ErrUnknownAccount)
		}
		if !src.IsCustomer() {
			return fmt.Errorf("%s: %w", from, models.ErrNotCustomer)
		}
		if !dst.IsCustomer() {
			return fmt.Errorf("%s: %w", to, models.ErrNotCustomer)
		}
		if src.Balance < amount {
			return fmt.Errorf("%s has %d, need %d: %w", from, src.Balance, amount, models.ErrInsufficientFunds)
		}
		src.Balance -= amount
		dst.Balance += amount
		return nil
	})
}
