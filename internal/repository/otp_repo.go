package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"aquanova-auth/internal/domain"
)

// PgOTPRepository implementa OTPStore sobre la tabla otp_verifications.
type PgOTPRepository struct {
	pool DBTX
	now  func() time.Time
}

func NewPgOTPRepository(pool DBTX) *PgOTPRepository {
	return &PgOTPRepository{
		pool: pool,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Put borra los registros previos e inserta el nuevo dentro de una transaccion.
// El advisory lock por email serializa solicitudes concurrentes para el mismo email.
func (r *PgOTPRepository) Put(ctx context.Context, email, code string, ttl time.Duration) (domain.OTPRecord, error) {
	now := r.now()
	rec := domain.OTPRecord{
		ID:        newOTPID(now),
		Email:     email,
		Code:      code,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.OTPRecord{}, oops.Code("OTP_PUT_FAILED").With("operation", "begin").Wrap(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, email); err != nil {
		return domain.OTPRecord{}, oops.Code("OTP_PUT_FAILED").With("operation", "lock").Wrap(err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM otp_verifications WHERE email = $1`, email); err != nil {
		return domain.OTPRecord{}, oops.Code("OTP_PUT_FAILED").With("operation", "supersede").Wrap(err)
	}
	const insert = `
		INSERT INTO otp_verifications (id, email, code, expires_at, verified, created_at)
		VALUES ($1, $2, $3, $4, FALSE, $5)
	`
	if _, err := tx.Exec(ctx, insert, rec.ID, rec.Email, rec.Code, rec.ExpiresAt, rec.CreatedAt); err != nil {
		return domain.OTPRecord{}, oops.Code("OTP_PUT_FAILED").With("operation", "insert").Wrap(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.OTPRecord{}, oops.Code("OTP_PUT_FAILED").With("operation", "commit").Wrap(err)
	}
	return rec, nil
}

const otpSelect = `
	SELECT id, email, code, expires_at, verified, created_at
	FROM otp_verifications
	WHERE email = $1 AND code = $2`

func (r *PgOTPRepository) FindLatestUnverified(ctx context.Context, email, code string) (domain.OTPRecord, bool, error) {
	return r.findLatest(ctx, otpSelect+` AND verified = FALSE ORDER BY created_at DESC LIMIT 1`, email, code)
}

func (r *PgOTPRepository) FindLatestVerified(ctx context.Context, email, code string) (domain.OTPRecord, bool, error) {
	return r.findLatest(ctx, otpSelect+` AND verified = TRUE ORDER BY created_at DESC LIMIT 1`, email, code)
}

func (r *PgOTPRepository) FindLatestAny(ctx context.Context, email, code string) (domain.OTPRecord, bool, error) {
	return r.findLatest(ctx, otpSelect+` ORDER BY created_at DESC LIMIT 1`, email, code)
}

func (r *PgOTPRepository) findLatest(ctx context.Context, query, email, code string) (domain.OTPRecord, bool, error) {
	var rec domain.OTPRecord
	err := r.pool.QueryRow(ctx, query, email, code).Scan(
		&rec.ID,
		&rec.Email,
		&rec.Code,
		&rec.ExpiresAt,
		&rec.Verified,
		&rec.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.OTPRecord{}, false, nil
	}
	if err != nil {
		return domain.OTPRecord{}, false, oops.Code("OTP_FIND_FAILED").With("email", email).Wrap(err)
	}
	return rec, true, nil
}

func (r *PgOTPRepository) MarkVerified(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, `UPDATE otp_verifications SET verified = TRUE WHERE id = $1`, id); err != nil {
		return oops.Code("OTP_MARK_VERIFIED_FAILED").With("otp_id", id).Wrap(err)
	}
	return nil
}

func (r *PgOTPRepository) DeleteAll(ctx context.Context, email string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM otp_verifications WHERE email = $1`, email); err != nil {
		return oops.Code("OTP_DELETE_FAILED").With("email", email).Wrap(err)
	}
	return nil
}
