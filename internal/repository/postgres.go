package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/okulov/fincore/internal/models"
	"github.com/okulov/fincore/internal/otp"
)

// PostgresAccountRepository implements the account store on a PostgreSQL
// database. Update keeps the load-mutate-save contract of the file store:
// the full mapping is read inside one transaction with the rows locked,
// mutated in memory, and written back before commit.
type PostgresAccountRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresAccountRepository creates a new PostgresAccountRepository with
// the given database connection. db must be a valid *sql.DB connected to a
// PostgreSQL instance.
func NewPostgresAccountRepository(db *sql.DB) *PostgresAccountRepository {
	return &PostgresAccountRepository{DB: db}
}

// EnsureSeed provisions the demo accounts when the accounts table is empty
// and backfills OTP seeds on rows that lack one, mirroring the file store's
// open semantics.
func (r *PostgresAccountRepository) EnsureSeed(ctx context.Context) error {
	var count int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&count); err != nil {
		return fmt.Errorf("count accounts: %w", err)
	}

	if count == 0 {
		for _, s := range defaultSeed {
			hash, err := bcrypt.GenerateFromPassword([]byte(s.Password), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("hash seed password: %w", err)
			}
			seed, err := otp.NewSeed()
			if err != nil {
				return err
			}
			_, err = r.DB.ExecContext(
				ctx,
				`INSERT INTO accounts (username, password_hash, role, balance, otp_seed)
				 VALUES ($1, $2, $3, $4, $5) ON CONFLICT DO NOTHING`,
				s.Username, string(hash), string(s.Role), s.Balance, seed,
			)
			if err != nil {
				return fmt.Errorf("seed account %s: %w", s.Username, err)
			}
		}
		return nil
	}

	rows, err := r.DB.QueryContext(ctx, `SELECT username FROM accounts WHERE otp_seed = ''`)
	if err != nil {
		return fmt.Errorf("find accounts without otp seed: %w", err)
	}
	defer rows.Close()

	var missing []string
	for rows.Next() {
		var username string
		if err := rows.Scan(&username); err != nil {
			return err
		}
		missing = append(missing, username)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, username := range missing {
		seed, err := otp.NewSeed()
		if err != nil {
			return err
		}
		_, err = r.DB.ExecContext(
			ctx,
			`UPDATE accounts SET otp_seed = $1 WHERE username = $2 AND otp_seed = ''`,
			seed, username,
		)
		if err != nil {
			return fmt.Errorf("backfill otp seed for %s: %w", username, err)
		}
	}
	return nil
}

// Account fetches a single account by username. Returns an error wrapping
// models.ErrUnknownAccount if no row exists.
func (r *PostgresAccountRepository) Account(ctx context.Context, username string) (models.Account, error) {
	var acc models.Account
	err := r.DB.QueryRowContext(
		ctx,
		`SELECT password_hash, role, balance, otp_seed FROM accounts WHERE username = $1`,
		username,
	).Scan(&acc.PasswordHash, &acc.Role, &acc.Balance, &acc.OTPSeed)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, fmt.Errorf("%s: %w", username, models.ErrUnknownAccount)
	}
	if err != nil {
		return models.Account{}, err
	}
	acc.Username = username
	return acc, nil
}

// Accounts retrieves the full account mapping.
func (r *PostgresAccountRepository) Accounts(ctx context.Context) (map[string]models.Account, error) {
	return r.selectAll(ctx, r.DB.QueryContext)
}

// Update runs fn against the full mapping inside one transaction. All rows
// are locked for the duration, fn mutates the in-memory copy, and every row
// is written back before commit; any error rolls the transaction back.
func (r *PostgresAccountRepository) Update(ctx context.Context, fn func(map[string]*models.Account) error) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	accounts, err := r.selectAllForUpdate(ctx, tx)
	if err != nil {
		return err
	}

	scratch := make(map[string]*models.Account, len(accounts))
	for username, acc := range accounts {
		cp := acc
		scratch[username] = &cp
	}

	if err := fn(scratch); err != nil {
		return err
	}

	for username, acc := range scratch {
		_, err := tx.ExecContext(
			ctx,
			`INSERT INTO accounts (username, password_hash, role, balance, otp_seed)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (username) DO UPDATE
			 SET password_hash = EXCLUDED.password_hash,
			     role = EXCLUDED.role,
			     balance = EXCLUDED.balance,
			     otp_seed = EXCLUDED.otp_seed`,
			username, acc.PasswordHash, string(acc.Role), acc.Balance, acc.OTPSeed,
		)
		if err != nil {
			return fmt.Errorf("write account %s: %w", username, err)
		}
	}

	return tx.Commit()
}

// queryer matches QueryContext on both *sql.DB and *sql.Tx.
type queryer func(ctx context.Context, query string, args ...any) (*sql.Rows, error)

func (r *PostgresAccountRepository) selectAll(ctx context.Context, query queryer) (map[string]models.Account, error) {
	rows, err := query(ctx, `SELECT username, password_hash, role, balance, otp_seed FROM accounts`)
	if err != nil {
		return nil, fmt.Errorf("select accounts: %w", err)
	}
	defer rows.Close()
	return scanAccounts(rows)
}

func (r *PostgresAccountRepository) selectAllForUpdate(ctx context.Context, tx *sql.Tx) (map[string]models.Account, error) {
	rows, err := tx.QueryContext(ctx, `SELECT username, password_hash, role, balance, otp_seed FROM accounts FOR UPDATE`)
	if err != nil {
		return nil, fmt.Errorf("select accounts for update: %w", err)
	}
	defer rows.Close()
	return scanAccounts(rows)
}

func scanAccounts(rows *sql.Rows) (map[string]models.Account, error) {
	accounts := make(map[string]models.Account)
	for rows.Next() {
		var (
			username string
			acc      models.Account
		)
		if err := rows.Scan(&username, &acc.PasswordHash, &acc.Role, &acc.Balance, &acc.OTPSeed); err != nil {
			return nil, err
		}
		acc.Username = username
		accounts[username] = acc
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return accounts, nil
}
