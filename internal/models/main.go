// Package models defines the core data structures for accounts, sessions,
// and transfer requests.
package models

// Role identifies the access level of an account.
type Role string

const (
	// RoleCustomer may view its own balance and transfer funds.
	RoleCustomer Role = "Customer"
	// RoleAdmin may view all balances and approve or reject transfers.
	RoleAdmin Role = "Admin"
)

// Account represents a stored user account. The username is the map key in
// the persisted store and is carried here for convenience only.
type Account struct {
	// Username is the unique login name of the account.
	Username string `json:"-"`
	// PasswordHash is the bcrypt hash of the account password.
	PasswordHash string `json:"password_hash"`
	// Role is the access level of the account.
	Role Role `json:"role"`
	// Balance is the account balance in whole currency units.
	// It is meaningful for Customer accounts only.
	Balance int64 `json:"balance,omitempty"`
	// OTPSeed is the base32-encoded TOTP secret. Generated once per
	// account and never changed afterwards.
	OTPSeed string `json:"otp_seed,omitempty"`
}

// IsCustomer reports whether the account holds a ledger balance.
func (a Account) IsCustomer() bool {
	return a.Role == RoleCustomer
}

// Session is an authenticated principal produced by a successful login.
// It is an explicit value passed to every authorized operation; there is
// no ambient session state. Sessions live until the process ends or the
// caller discards them.
type Session struct {
	// Token uniquely identifies this session.
	Token string `json:"token"`
	// Username is the authenticated account name.
	Username string `json:"username"`
	// Role is the account role at the moment of login.
	Role Role `json:"role"`
}

// Authenticated reports whether the session was produced by a login.
func (s Session) Authenticated() bool {
	return s.Token != ""
}

// TransferRequest describes a transfer awaiting admin approval.
type TransferRequest struct {
	// ID uniquely identifies the request.
	ID string `json:"id"`
	// From is the username of the debited Customer account.
	From string `json:"from"`
	// To is the username of the credited Customer account.
	To string `json:"to"`
	// Amount is the transfer amount in whole currency units.
	Amount int64 `json:"amount"`
}
