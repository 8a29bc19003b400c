package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/okulov/fincore/internal/models"
)

// memRepo is an in-memory AccountRepository that mimics the store contract:
// Update applies fn to a scratch copy and swaps it in only on success, and
// counts the resulting saves.
type memRepo struct {
	accounts map[string]models.Account
	saves    int
}

func newMemRepo() *memRepo {
	return &memRepo{accounts: map[string]models.Account{
		"customer1": {PasswordHash: "h1", Role: models.RoleCustomer, Balance: 1500, OTPSeed: "S1"},
		"customer2": {PasswordHash: "h2", Role: models.RoleCustomer, Balance: 3200, OTPSeed: "S2"},
		"admin1":    {PasswordHash: "h3", Role: models.RoleAdmin, OTPSeed: "S3"},
	}}
}

func (m *memRepo) Account(ctx context.Context, username string) (models.Account, error) {
	acc, ok := m.accounts[username]
	if !ok {
		return models.Account{}, models.ErrUnknownAccount
	}
	acc.Username = username
	return acc, nil
}

func (m *memRepo) Accounts(ctx context.Context) (map[string]models.Account, error) {
	out := make(map[string]models.Account, len(m.accounts))
	for username, acc := range m.accounts {
		acc.Username = username
		out[username] = acc
	}
	return out, nil
}

func (m *memRepo) Update(ctx context.Context, fn func(map[string]*models.Account) error) error {
	scratch := make(map[string]*models.Account, len(m.accounts))
	for username, acc := range m.accounts {
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
	m.accounts = next
	m.saves++
	return nil
}

// customerTotal sums all customer balances, for conservation checks.
func (m *memRepo) customerTotal() int64 {
	var total int64
	for _, acc := range m.accounts {
		if acc.IsCustomer() {
			total += acc.Balance
		}
	}
	return total
}

var (
	customerSession = models.Session{Token: "t1", Username: "customer1", Role: models.RoleCustomer}
	adminSession    = models.Session{Token: "t2", Username: "admin1", Role: models.RoleAdmin}
)

func TestTransfer_Success(t *testing.T) {
	repo := newMemRepo()
	svc := NewLedgerService(repo, zap.NewNop())

	if err := svc.Transfer(context.Background(), customerSession, "customer2", 500); err != nil {
		t.Fatalf("Transfer returned error: %v", err)
	}
	if got := repo.accounts["customer1"].Balance; got != 1000 {
		t.Errorf("customer1 balance = %d; want 1000", got)
	}
	if got := repo.accounts["customer2"].Balance; got != 3700 {
		t.Errorf("customer2 balance = %d; want 3700", got)
	}
	if repo.saves != 1 {
		t.Errorf("saves = %d; want 1 (every mutation persists)", repo.saves)
	}
}

func TestTransfer_InsufficientFunds(t *testing.T) {
	repo := newMemRepo()
	svc := NewLedgerService(repo, zap.NewNop())

	err := svc.Transfer(context.Background(), customerSession, "customer2", 2000)
	if !errors.Is(err, models.ErrInsufficientFunds) {
		t.Fatalf("Transfer error = %v; want ErrInsufficientFunds", err)
	}
	if got := repo.accounts["customer1"].Balance; got != 1500 {
		t.Errorf("customer1 balance = %d; want 1500 (unchanged)", got)
	}
	if got := repo.accounts["customer2"].Balance; got != 3200 {
		t.Errorf("customer2 balance = %d; want 3200 (unchanged)", got)
	}
	if repo.saves != 0 {
		t.Errorf("saves = %d; want 0 (failed transfer must not persist)", repo.saves)
	}
}

func TestTransfer_Validation(t *testing.T) {
	tests := []struct {
		name    string
		to      string
		amount  int64
		wantErr error
	}{
		{"zero amount", "customer2", 0, models.ErrInvalidAmount},
		{"negative amount", "customer2", -5, models.ErrInvalidAmount},
		{"above cap", "customer2", 10001, models.ErrInvalidAmount},
		{"self transfer", "customer1", 100, models.ErrSameAccount},
		{"unknown recipient", "ghost", 100, models.ErrUnknownAccount},
		{"admin recipient", "admin1", 100, models.ErrNotCustomer},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := newMemRepo()
			svc := NewLedgerService(repo, zap.NewNop())

			err := svc.Transfer(context.Background(), customerSession, tc.to, tc.amount)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("Transfer error = %v; want %v", err, tc.wantErr)
			}
			if repo.saves != 0 {
				t.Errorf("saves = %d; want 0", repo.saves)
			}
		})
	}
}

func TestTransfer_DeniedForAdmin(t *testing.T) {
	repo := newMemRepo()
	svc := NewLedgerService(repo, zap.NewNop())

	err := svc.Transfer(context.Background(), adminSession, "customer2", 100)
	if !errors.Is(err, models.ErrUnauthorized) {
		t.Fatalf("Transfer error = %v; want ErrUnauthorized", err)
	}
}

func TestConservation_AcrossTransfersAndApprovals(t *testing.T) {
	repo := newMemRepo()
	svc := NewLedgerService(repo, zap.NewNop())
	ctx := context.Background()

	before := repo.customerTotal()

	if err := svc.Transfer(ctx, customerSession, "customer2", 300); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	req := models.TransferRequest{ID: "r1", From: "customer2", To: "customer1", Amount: 2500}
	if err := svc.Approve(ctx, adminSession, req); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if err := svc.Transfer(ctx, customerSession, "customer2", 1200); err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	if after := repo.customerTotal(); after != before {
		t.Errorf("customer total = %d; want %d (conservation)", after, before)
	}
}

func TestApprove(t *testing.T) {
	repo := newMemRepo()
	svc := NewLedgerService(repo, zap.NewNop())
	ctx := context.Background()

	req := models.TransferRequest{ID: "r1", From: "customer1", To: "customer2", Amount: 1400}
	if err := svc.Approve(ctx, adminSession, req); err != nil {
		t.Fatalf("Approve returned error: %v", err)
	}
	if got := repo.accounts["customer1"].Balance; got != 100 {
		t.Errorf("customer1 balance = %d; want 100", got)
	}

	// Approval is subject to the same funds check.
	again := models.TransferRequest{ID: "r2", From: "customer1", To: "customer2", Amount: 5000}
	if err := svc.Approve(ctx, adminSession, again); !errors.Is(err, models.ErrInsufficientFunds) {
		t.Fatalf("Approve error = %v; want ErrInsufficientFunds", err)
	}

	// Customers cannot approve.
	if err := svc.Approve(ctx, customerSession, req); !errors.Is(err, models.ErrUnauthorized) {
		t.Fatalf("Approve error = %v; want ErrUnauthorized", err)
	}
}

func TestReject_NoMutation(t *testing.T) {
	repo := newMemRepo()
	svc := NewLedgerService(repo, zap.NewNop())

	req := models.TransferRequest{ID: "r1", From: "customer1", To: "customer2", Amount: 6000}
	if err := svc.Reject(context.Background(), adminSession, req); err != nil {
		t.Fatalf("Reject returned error: %v", err)
	}
	if repo.saves != 0 {
		t.Errorf("saves = %d; want 0 (reject is an acknowledgment only)", repo.saves)
	}
	if got := repo.accounts["customer1"].Balance; got != 1500 {
		t.Errorf("customer1 balance = %d; want 1500", got)
	}

	if err := svc.Reject(context.Background(), customerSession, req); !errors.Is(err, models.ErrUnauthorized) {
		t.Fatalf("Reject error = %v; want ErrUnauthorized", err)
	}
}

func TestBalance(t *testing.T) {
	repo := newMemRepo()
	svc := NewLedgerService(repo, zap.NewNop())

	balance, err := svc.Balance(context.Background(), customerSession)
	if err != nil {
		t.Fatalf("Balance returned error: %v", err)
	}
	if balance != 1500 {
		t.Errorf("balance = %d; want 1500", balance)
	}

	if _, err := svc.Balance(context.Background(), adminSession); !errors.Is(err, models.ErrUnauthorized) {
		t.Fatalf("Balance error = %v; want ErrUnauthorized", err)
	}
}

func TestAllBalances(t *testing.T) {
	repo := newMemRepo()
	svc := NewLedgerService(repo, zap.NewNop())

	balances, err := svc.AllBalances(context.Background(), adminSession)
	if err != nil {
		t.Fatalf("AllBalances returned error: %v", err)
	}
	if len(balances) != 2 {
		t.Fatalf("got %d balances; want 2 (customers only)", len(balances))
	}
	if balances["customer1"] != 1500 || balances["customer2"] != 3200 {
		t.Errorf("balances = %v; want customer1:1500 customer2:3200", balances)
	}

	if _, err := svc.AllBalances(context.Background(), customerSession); !errors.Is(err, models.ErrUnauthorized) {
		t.Fatalf("AllBalances error = %v; want ErrUnauthorized", err)
	}
}

func TestRecipients(t *testing.T) {
	repo := newMemRepo()
	svc := NewLedgerService(repo, zap.NewNop())

	recipients, err := svc.Recipients(context.Background(), customerSession)
	if err != nil {
		t.Fatalf("Recipients returned error: %v", err)
	}
	if len(recipients) != 1 || recipients[0] != "customer2" {
		t.Errorf("recipients = %v; want [customer2]", recipients)
	}
}

func TestPendingRequest(t *testing.T) {
	repo := newMemRepo()
	svc := NewLedgerService(repo, zap.NewNop())
	ctx := context.Background()

	req, err := svc.PendingRequest(ctx)
	if err != nil {
		t.Fatalf("PendingRequest returned error: %v", err)
	}
	if req.ID == "" {
		t.Error("request ID is empty")
	}
	if req.From != "customer1" || req.To != "customer2" {
		t.Errorf("request route = %s -> %s; want customer1 -> customer2", req.From, req.To)
	}
	if req.Amount < 5000 || req.Amount > 10000 {
		t.Errorf("request amount = %d; want within [5000, 10000]", req.Amount)
	}

	// Regenerated per view with a fresh identity.
	other, err := svc.PendingRequest(ctx)
	if err != nil {
		t.Fatalf("PendingRequest returned error: %v", err)
	}
	if other.ID == req.ID {
		t.Error("consecutive requests share an ID; want fresh identity per view")
	}
}

func TestPendingRequest_NeedsTwoCustomers(t *testing.T) {
	repo := &memRepo{accounts: map[string]models.Account{
		"customer1": {Role: models.RoleCustomer, Balance: 1500},
		"admin1":    {Role: models.RoleAdmin},
	}}
	svc := NewLedgerService(repo, zap.NewNop())

	if _, err := svc.PendingRequest(context.Background()); err == nil {
		t.Fatal("PendingRequest succeeded with a single customer; want error")
	}
}
