// Package postgresrepo implements accounts.Repo on top of database/sql with
// the pgx stdlib driver.
package postgresrepo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"github.com/tasklane/identity/accounts"
)

var _ accounts.Repo = (*PostgresRepo)(nil)

type PostgresRepo struct {
	db *sql.DB
}

func New(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Create(ctx context.Context, account *accounts.Account) error {
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	if account.Tier == "" {
		account.Tier = accounts.TierStandard
	}
	if account.VerificationStatus == "" {
		account.VerificationStatus = accounts.VerificationUnverified
	}

	query := `INSERT INTO accounts
		(id, email, password_hash, email_verified, verification_status, mfa_enabled, tier, image_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())`

	_, err := r.db.ExecContext(ctx, query,
		account.ID, account.Email, account.PasswordHash, account.EmailVerified,
		string(account.VerificationStatus), account.MFAEnabled, string(account.Tier), account.ImageRef)
	if err != nil {
		return pkgerrors.Wrap(err, "[PostgresRepo.Create] insert account")
	}
	return nil
}

const accountColumns = `id, email, password_hash, email_verified, verification_status,
	mfa_enabled, tier, image_ref, created_at, last_login`

func (r *PostgresRepo) GetByEmail(ctx context.Context, email string) (*accounts.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	return r.scanAccount(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepo) GetByID(ctx context.Context, id string) (*accounts.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.scanAccount(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepo) scanAccount(row *sql.Row) (*accounts.Account, error) {
	var account accounts.Account
	var tier, status string
	var lastLogin sql.NullTime
	err := row.Scan(&account.ID, &account.Email, &account.PasswordHash, &account.EmailVerified,
		&status, &account.MFAEnabled, &tier, &account.ImageRef, &account.CreatedAt, &lastLogin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, accounts.NotFoundErr
		}
		return nil, pkgerrors.Wrap(err, "[PostgresRepo.scanAccount] scan")
	}

	parsedTier, err := accounts.ParseTier(tier)
	if err != nil {
		// A row with an unknown tier must never gain capabilities.
		parsedTier = accounts.TierStandard
	}
	account.Tier = parsedTier
	account.VerificationStatus = accounts.VerificationStatus(status)
	if lastLogin.Valid {
		account.LastLogin = lastLogin.Time
	}
	return &account, nil
}

// SetVerified is idempotent: rerunning the update on an already-verified row
// changes nothing and reports success.
func (r *PostgresRepo) SetVerified(ctx context.Context, id string) error {
	query := `UPDATE accounts
		SET email_verified = TRUE, verification_status = $2
		WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, string(accounts.VerificationVerified))
	if err != nil {
		return pkgerrors.Wrap(err, "[PostgresRepo.SetVerified] update account")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return pkgerrors.Wrap(err, "[PostgresRepo.SetVerified] rows affected")
	}
	if n == 0 {
		return accounts.NotFoundErr
	}
	return nil
}

func (r *PostgresRepo) SetLastLogin(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE accounts SET last_login = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, at); err != nil {
		return pkgerrors.Wrap(err, "[PostgresRepo.SetLastLogin] update account")
	}
	return nil
}

func (r *PostgresRepo) UpdateImageRef(ctx context.Context, id, imageRef string) error {
	query := `UPDATE accounts SET image_ref = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, imageRef); err != nil {
		return pkgerrors.Wrap(err, "[PostgresRepo.UpdateImageRef] update account")
	}
	return nil
}
