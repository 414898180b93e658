package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"aquanova-auth/internal/domain"
)

// AccountRepository define el contrato de persistencia para cuentas (Credential Store).
// Las búsquedas devuelven pgx.ErrNoRows cuando la cuenta no existe.
type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) error
	GetByID(ctx context.Context, id string) (domain.Account, error)
	GetByEmail(ctx context.Context, email string) (domain.Account, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	UpdatePasswordHash(ctx context.Context, email, passwordHash string) error
}

// PgAccountRepository implementa AccountRepository usando pgx.
type PgAccountRepository struct {
	pool DBTX
}

func NewPgAccountRepository(pool DBTX) *PgAccountRepository {
	return &PgAccountRepository{pool: pool}
}

const accountColumns = `id, name, email, password_hash, email_verified, created_at, last_login_at`

func (r *PgAccountRepository) Create(ctx context.Context, account domain.Account) error {
	const query = `
		INSERT INTO accounts (id, name, email, password_hash, email_verified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.pool.Exec(ctx, query,
		account.ID,
		account.Name,
		account.Email,
		account.PasswordHash,
		account.EmailVerified,
		account.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return domain.ErrAccountExists
		}
		return oops.Code("ACCOUNT_CREATE_FAILED").With("email", account.Email).Wrap(err)
	}
	return nil
}

func (r *PgAccountRepository) GetByID(ctx context.Context, id string) (domain.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *PgAccountRepository) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	return r.getOne(ctx, query, email)
}

func (r *PgAccountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM accounts WHERE email = $1)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, email).Scan(&exists); err != nil {
		return false, oops.Code("ACCOUNT_EXISTS_FAILED").With("email", email).Wrap(err)
	}
	return exists, nil
}

func (r *PgAccountRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE accounts SET last_login_at = $2 WHERE id = $1`
	if _, err := r.pool.Exec(ctx, query, id, at); err != nil {
		return oops.Code("ACCOUNT_LAST_LOGIN_FAILED").With("account_id", id).Wrap(err)
	}
	return nil
}

func (r *PgAccountRepository) UpdatePasswordHash(ctx context.Context, email, passwordHash string) error {
	const query = `UPDATE accounts SET password_hash = $2 WHERE email = $1`
	tag, err := r.pool.Exec(ctx, query, email, passwordHash)
	if err != nil {
		return oops.Code("ACCOUNT_PASSWORD_UPDATE_FAILED").With("email", email).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgAccountRepository) getOne(ctx context.Context, query string, arg any) (domain.Account, error) {
	var a domain.Account
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&a.ID,
		&a.Name,
		&a.Email,
		&a.PasswordHash,
		&a.EmailVerified,
		&a.CreatedAt,
		&a.LastLoginAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Account{}, err
	}
	if err != nil {
		return domain.Account{}, oops.Code("ACCOUNT_GET_FAILED").Wrap(err)
	}
	return a, nil
}
