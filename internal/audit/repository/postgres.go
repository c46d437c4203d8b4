package repository

import (
	"context"
	"database/sql"

	"asr-auth/internal/audit/domain"

	"github.com/pkg/errors"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit log repository that uses the given db for persistence.
func NewPostgresRepository(conn *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// Create persists the audit log. The audit log must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_logs (id, username, action, resource, ip, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.Username, a.Action, a.Resource, a.IP, a.Metadata, a.CreatedAt)
	return errors.Wrap(err, "insert audit log")
}

func (r *PostgresRepository) ListByUsername(ctx context.Context, username string, limit int) ([]*domain.AuditLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, username, action, resource, ip, metadata, created_at FROM audit_logs
		 WHERE $1 = '' OR username = $1
		 ORDER BY created_at DESC LIMIT $2`, username, limit)
	if err != nil {
		return nil, errors.Wrap(err, "select audit logs")
	}
	defer rows.Close()
	var out []*domain.AuditLog
	for rows.Next() {
		var a domain.AuditLog
		if err := rows.Scan(&a.ID, &a.Username, &a.Action, &a.Resource, &a.IP, &a.Metadata, &a.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan audit log")
		}
		out = append(out, &a)
	}
	return out, errors.Wrap(rows.Err(), "iterate audit logs")
}
