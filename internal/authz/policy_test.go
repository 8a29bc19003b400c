package authz

import (
	"errors"
	"testing"

	"github.com/okulov/fincore/internal/models"
)

func TestAllowed(t *testing.T) {
	tests := []struct {
		role models.Role
		op   Operation
		want bool
	}{
		{models.RoleCustomer, OpViewOwnBalance, true},
		{models.RoleCustomer, OpTransferFunds, true},
		{models.RoleCustomer, OpViewAllBalances, false},
		{models.RoleCustomer, OpApproveTransfer, false},
		{models.RoleCustomer, OpRejectTransfer, false},
		{models.RoleAdmin, OpViewAllBalances, true},
		{models.RoleAdmin, OpApproveTransfer, true},
		{models.RoleAdmin, OpRejectTransfer, true},
		{models.RoleAdmin, OpViewOwnBalance, false},
		{models.RoleAdmin, OpTransferFunds, false},
		{models.Role("Unknown"), OpViewOwnBalance, false},
	}

	for _, tc := range tests {
		if got := Allowed(tc.role, tc.op); got != tc.want {
			t.Errorf("Allowed(%s, %s) = %v; want %v", tc.role, tc.op, got, tc.want)
		}
	}
}

func TestAuthorize(t *testing.T) {
	customer := models.Session{Token: "t1", Username: "customer1", Role: models.RoleCustomer}
	admin := models.Session{Token: "t2", Username: "admin1", Role: models.RoleAdmin}

	if err := Authorize(customer, OpTransferFunds); err != nil {
		t.Errorf("customer transfer should be allowed, got %v", err)
	}
	if err := Authorize(admin, OpApproveTransfer); err != nil {
		t.Errorf("admin approve should be allowed, got %v", err)
	}

	err := Authorize(customer, OpApproveTransfer)
	if !errors.Is(err, models.ErrUnauthorized) {
		t.Errorf("customer approve error = %v; want ErrUnauthorized", err)
	}
	err = Authorize(admin, OpTransferFunds)
	if !errors.Is(err, models.ErrUnauthorized) {
		t.Errorf("admin transfer error = %v; want ErrUnauthorized", err)
	}
}

func TestAuthorize_Unauthenticated(t *testing.T) {
	err := Authorize(models.Session{}, OpViewOwnBalance)
	if !errors.Is(err, models.ErrUnauthorized) {
		t.Errorf("empty session error = %v; want ErrUnauthorized", err)
	}
}
