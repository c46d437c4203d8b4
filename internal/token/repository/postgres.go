package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"asr-auth/internal/db"
	"asr-auth/internal/token/domain"

	"github.com/jackc/pgx/v5/pgconn"
	pkgerrors "github.com/pkg/errors"
)

const tokenColumns = `id, username, token, session_key, expired_date, created_at`

// PostgresStore keeps token records in the json_tokens table.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgresStore returns a token store that uses the given db for persistence.
func NewPostgresStore(conn *sql.DB) *PostgresStore {
	return &PostgresStore{db: conn, now: time.Now}
}

// Replace locks the user's current row, deletes it and inserts t in one transaction.
// When another process inserts a row for the same user after the lock found none, the upsert
// overwrites it, so the later login wins and the table still holds one row per user.
// A clash on the token digest itself yields ErrTokenConflict.
func (s *PostgresStore) Replace(ctx context.Context, t *domain.Token) (*domain.Token, error) {
	if err := validate(t, s.now()); err != nil {
		return nil, err
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now().UTC()
	}
	var previous *domain.Token
	err := db.InTx(ctx, s.db, func(tx *sql.Tx) error {
		prev, err := scanToken(tx.QueryRowContext(ctx,
			`SELECT `+tokenColumns+` FROM json_tokens WHERE username = $1 FOR UPDATE`, t.Username))
		if err != nil {
			return pkgerrors.Wrap(err, "lock token")
		}
		previous = prev
		if prev != nil {
			if _, err := tx.ExecContext(ctx, `DELETE FROM json_tokens WHERE username = $1`, t.Username); err != nil {
				return pkgerrors.Wrap(err, "delete previous token")
			}
		}
		err = tx.QueryRowContext(ctx,
			`INSERT INTO json_tokens (username, token, session_key, expired_date, created_at)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (username) DO UPDATE SET token = EXCLUDED.token, session_key = EXCLUDED.session_key,
			   expired_date = EXCLUDED.expired_date, created_at = EXCLUDED.created_at
			 RETURNING id`,
			t.Username, t.Token, t.SessionKey, t.ExpiresAt, t.CreatedAt).Scan(&t.ID)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return ErrTokenConflict
			}
			return pkgerrors.Wrap(err, "insert token")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return previous, nil
}

// GetByToken returns the record for the token digest, or nil if not found.
func (s *PostgresStore) GetByToken(ctx context.Context, token string) (*domain.Token, error) {
	t, err := scanToken(s.db.QueryRowContext(ctx,
		`SELECT `+tokenColumns+` FROM json_tokens WHERE token = $1`, token))
	return t, pkgerrors.Wrap(err, "select token")
}

// GetByUsername returns the user's record, or nil if not found.
func (s *PostgresStore) GetByUsername(ctx context.Context, username string) (*domain.Token, error) {
	t, err := scanToken(s.db.QueryRowContext(ctx,
		`SELECT `+tokenColumns+` FROM json_tokens WHERE username = $1`, username))
	return t, pkgerrors.Wrap(err, "select token by username")
}

func (s *PostgresStore) DeleteByUsername(ctx context.Context, username string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM json_tokens WHERE username = $1`, username)
	return pkgerrors.Wrap(err, "delete token by username")
}

func (s *PostgresStore) DeleteByToken(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM json_tokens WHERE token = $1`, token)
	return pkgerrors.Wrap(err, "delete token")
}

func (s *PostgresStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM json_tokens WHERE expired_date <= $1`, now)
	if err != nil {
		return 0, pkgerrors.Wrap(err, "delete expired tokens")
	}
	n, err := res.RowsAffected()
	return n, pkgerrors.Wrap(err, "rows affected")
}

// scanToken returns (nil, nil) for sql.ErrNoRows.
func scanToken(row *sql.Row) (*domain.Token, error) {
	var t domain.Token
	err := row.Scan(&t.ID, &t.Username, &t.Token, &t.SessionKey, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}
