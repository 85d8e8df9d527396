package repository

import (
	"context"

	"github.com/andressep95/session-service/internal/domain"
	"github.com/google/uuid"
)

// SessionRepository persists wellness sessions. Lookups of a missing id return
// domain.ErrNotFound; driver failures come back as domain store errors.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error)
	// ListByOwner returns every session of ownerID, most recently updated first.
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Session, error)
	// ListPublished returns published sessions, newest first.
	ListPublished(ctx context.Context, limit, offset int) ([]*domain.Session, error)
	CountPublished(ctx context.Context) (int, error)
	Update(ctx context.Context, session *domain.Session) error
	Delete(ctx context.Context, id uuid.UUID) error
}
