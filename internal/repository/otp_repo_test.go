package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var otpCols = []string{"id", "email", "code", "expires_at", "verified", "created_at"}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestPgOTPRepository_PutSupersedesInTransaction(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
		WithArgs("a@x.com").
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectExec(`DELETE FROM otp_verifications WHERE email = \$1`).
		WithArgs("a@x.com").
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec(`INSERT INTO otp_verifications`).
		WithArgs(pgxmock.AnyArg(), "a@x.com", "012345", now.Add(10*time.Minute), now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	repo := NewPgOTPRepository(mock)
	repo.now = fixedClock(now)

	rec, err := repo.Put(context.Background(), "a@x.com", "012345", 10*time.Minute)
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "012345", rec.Code)
	assert.False(t, rec.Verified)
	assert.True(t, rec.ExpiresAt.Equal(now.Add(10*time.Minute)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgOTPRepository_PutRollsBackOnInsertFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
		WithArgs("a@x.com").
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectExec(`DELETE FROM otp_verifications`).
		WithArgs("a@x.com").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`INSERT INTO otp_verifications`).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err = NewPgOTPRepository(mock).Put(context.Background(), "a@x.com", "123456", time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgOTPRepository_FindLatest(t *testing.T) {
	created := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	expires := created.Add(10 * time.Minute)

	tests := []struct {
		name      string
		pattern   string
		find      func(r *PgOTPRepository) (bool, error)
		rows      *pgxmock.Rows
		wantFound bool
	}{
		{
			name:    "unverified found",
			pattern: `verified = FALSE ORDER BY created_at DESC LIMIT 1`,
			find: func(r *PgOTPRepository) (bool, error) {
				_, ok, err := r.FindLatestUnverified(context.Background(), "a@x.com", "123456")
				return ok, err
			},
			rows:      pgxmock.NewRows(otpCols).AddRow("01J", "a@x.com", "123456", expires, false, created),
			wantFound: true,
		},
		{
			name:    "verified missing",
			pattern: `verified = TRUE ORDER BY created_at DESC LIMIT 1`,
			find: func(r *PgOTPRepository) (bool, error) {
				_, ok, err := r.FindLatestVerified(context.Background(), "a@x.com", "123456")
				return ok, err
			},
			rows:      pgxmock.NewRows(otpCols),
			wantFound: false,
		},
		{
			name:    "any found",
			pattern: `code = \$2 ORDER BY created_at DESC LIMIT 1`,
			find: func(r *PgOTPRepository) (bool, error) {
				_, ok, err := r.FindLatestAny(context.Background(), "a@x.com", "123456")
				return ok, err
			},
			rows:      pgxmock.NewRows(otpCols).AddRow("01J", "a@x.com", "123456", expires, true, created),
			wantFound: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			mock.ExpectQuery(tt.pattern).
				WithArgs("a@x.com", "123456").
				WillReturnRows(tt.rows)

			found, err := tt.find(NewPgOTPRepository(mock))
			require.NoError(t, err)
			assert.Equal(t, tt.wantFound, found)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPgOTPRepository_FindLatestStorageError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`FROM otp_verifications`).
		WillReturnError(errors.New("connection reset"))

	_, found, err := NewPgOTPRepository(mock).FindLatestAny(context.Background(), "a@x.com", "123456")
	require.Error(t, err)
	assert.False(t, found)
}

func TestPgOTPRepository_MarkVerifiedAndDeleteAll(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`UPDATE otp_verifications SET verified = TRUE WHERE id = \$1`).
		WithArgs("01J").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`DELETE FROM otp_verifications WHERE email = \$1`).
		WithArgs("a@x.com").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	repo := NewPgOTPRepository(mock)
	require.NoError(t, repo.MarkVerified(context.Background(), "01J"))
	require.NoError(t, repo.DeleteAll(context.Background(), "a@x.com"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
