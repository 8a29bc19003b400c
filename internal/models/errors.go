package models

import "errors"

// Domain errors. Handlers at the UI boundary translate these into
// user-visible rejection messages; none of them is fatal.
var (
	// ErrInvalidCredentials covers both an unknown username and a wrong
	// password. The two cases are deliberately indistinguishable to avoid
	// username enumeration.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrInvalidOTP means the submitted one-time code did not match any
	// code within the accepted drift window.
	ErrInvalidOTP = errors.New("one-time code invalid or expired")

	// ErrUnauthorized means the session role does not permit the operation.
	ErrUnauthorized = errors.New("operation not permitted")

	// ErrInsufficientFunds means the debited account balance is smaller
	// than the transfer amount.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrUnknownAccount means the named account does not exist.
	ErrUnknownAccount = errors.New("account not found")

	// ErrNotCustomer means a ledger operation referenced an account that
	// holds no balance.
	ErrNotCustomer = errors.New("account is not a customer account")

	// ErrSameAccount means sender and recipient are the same account.
	ErrSameAccount = errors.New("sender and recipient must differ")

	// ErrInvalidAmount means the amount is outside the permitted range.
	ErrInvalidAmount = errors.New("amount out of range")

	// ErrStoreCorrupt means the persisted account store could not be
	// parsed. Recovery by reseeding is an explicit opt-in, never silent.
	ErrStoreCorrupt = errors.New("account store is corrupt")
)
