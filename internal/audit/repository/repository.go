package repository

import (
	"context"

	"asr-auth/internal/audit/domain"
)

// Repository defines persistence for audit logs.
type Repository interface {
	Create(ctx context.Context, a *domain.AuditLog) error
	// ListByUsername returns the newest entries first; an empty username lists every user.
	ListByUsername(ctx context.Context, username string, limit int) ([]*domain.AuditLog, error)
}
