package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"asr-auth/internal/db"
	"asr-auth/internal/user/domain"

	"github.com/jackc/pgx/v5/pgconn"
	pkgerrors "github.com/pkg/errors"
)

const uniqueViolation = "23505"

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user repository that uses the given db for persistence.
func NewPostgresRepository(conn *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// GetByUsername returns the user with the given username, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var (
		u         domain.User
		status    string
		expiresAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, status, failed_attempts, credentials_expire_at, created_at, updated_at
		 FROM users WHERE username = $1`, username).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &status, &u.FailedAttempts, &expiresAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(err, "select user")
	}
	u.Status = domain.UserStatus(status)
	if expiresAt.Valid {
		t := expiresAt.Time
		u.CredentialsExpireAt = &t
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT authority FROM user_authorities WHERE user_id = $1 ORDER BY authority`, u.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "select authorities")
	}
	defer rows.Close()
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, pkgerrors.Wrap(err, "scan authority")
		}
		u.Authorities = append(u.Authorities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, pkgerrors.Wrap(err, "iterate authorities")
	}
	return &u, nil
}

// Create persists the user and its authorities in one transaction. The user must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	var expiresAt sql.NullTime
	if u.CredentialsExpireAt != nil {
		expiresAt = sql.NullTime{Time: *u.CredentialsExpireAt, Valid: true}
	}
	return db.InTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO users (id, username, password_hash, status, failed_attempts, credentials_expire_at, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			u.ID, u.Username, u.PasswordHash, string(u.Status), u.FailedAttempts, expiresAt, u.CreatedAt, u.UpdatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return ErrUsernameTaken
			}
			return pkgerrors.Wrap(err, "insert user")
		}
		for _, a := range u.Authorities {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO user_authorities (user_id, authority) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
				u.ID, a); err != nil {
				return pkgerrors.Wrap(err, "insert authority")
			}
		}
		return nil
	})
}

// RecordFailedLogin increments failed_attempts and flips status to locked when threshold is reached.
// A missing user is not an error and reports not locked.
func (r *PostgresRepository) RecordFailedLogin(ctx context.Context, username string, threshold int) (bool, error) {
	var status string
	err := r.db.QueryRowContext(ctx,
		`UPDATE users
		 SET failed_attempts = failed_attempts + 1,
		     status = CASE WHEN $2 > 0 AND failed_attempts + 1 >= $2 AND status = 'active' THEN 'locked' ELSE status END,
		     updated_at = $3
		 WHERE username = $1
		 RETURNING status`, username, threshold, time.Now().UTC()).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, pkgerrors.Wrap(err, "record failed login")
	}
	return domain.UserStatus(status) == domain.UserStatusLocked, nil
}

// ResetFailedLogins sets failed_attempts back to zero.
func (r *PostgresRepository) ResetFailedLogins(ctx context.Context, username string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET failed_attempts = 0, updated_at = $2 WHERE username = $1 AND failed_attempts <> 0`,
		username, time.Now().UTC())
	return pkgerrors.Wrap(err, "reset failed logins")
}

// SetStatus updates the account status and clears the failed-attempt counter.
func (r *PostgresRepository) SetStatus(ctx context.Context, username string, status domain.UserStatus) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET status = $2, failed_attempts = 0, updated_at = $3 WHERE username = $1`,
		username, string(status), time.Now().UTC())
	return pkgerrors.Wrap(err, "set user status")
}
