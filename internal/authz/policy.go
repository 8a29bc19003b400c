// Package authz implements role-based access control: permissions are
// granted to roles, never to individual accounts.
package authz

import (
	"fmt"

	"github.com/okulov/fincore/internal/models"
)

// Operation names an action a session may request.
type Operation string

const (
	// OpViewOwnBalance reads the balance of the session's own account.
	OpViewOwnBalance Operation = "view_own_balance"
	// OpTransferFunds moves funds from the session's account to another customer.
	OpTransferFunds Operation = "transfer_funds"
	// OpViewAllBalances lists the balances of every customer account.
	OpViewAllBalances Operation = "view_all_balances"
	// OpApproveTransfer applies a pending transfer request.
	OpApproveTransfer Operation = "approve_transfer"
	// OpRejectTransfer acknowledges a pending transfer request without applying it.
	OpRejectTransfer Operation = "reject_transfer"
)

// rolePermissions is the fixed role → operation-set policy table.
var rolePermissions = map[models.Role]map[Operation]bool{
	models.RoleCustomer: {
		OpViewOwnBalance: true,
		OpTransferFunds:  true,
	},
	models.RoleAdmin: {
		OpViewAllBalances: true,
		OpApproveTransfer: true,
		OpRejectTransfer:  true,
	},
}

// Allowed reports whether the role's permission set contains op.
func Allowed(role models.Role, op Operation) bool {
	return rolePermissions[role][op]
}

// Authorize checks op against the session role. It returns an error wrapping
// models.ErrUnauthorized for unauthenticated sessions and for any operation
// outside the role's set; denial never panics.
func Authorize(session models.Session, op Operation) error {
	if !session.Authenticated() {
		return fmt.Errorf("%s: %w", op, models.ErrUnauthorized)
	}
	if !Allowed(session.Role, op) {
		return fmt.Errorf("%s: role %s: %w", op, session.Role, models.ErrUnauthorized)
	}
	return nil
}
