package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/andressep95/session-service/internal/domain"
	"github.com/andressep95/session-service/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const sessionColumns = `id, owner_id, title, tags, config_url, status, created_at, updated_at`

type sessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new SQL session repository
func NewSessionRepository(db *sqlx.DB) repository.SessionRepository {
	return &sessionRepository{db: db}
}

// Create inserts a new session
func (r *sessionRepository) Create(ctx context.Context, session *domain.Session) error {
	query := `
		INSERT INTO sessions (` + sessionColumns + `)
		VALUES (:id, :owner_id, :title, :tags, :config_url, :status, :created_at, :updated_at)`

	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return domain.StoreError("failed to create session", err)
	}

	return nil
}

// GetByID retrieves a session by its ID
func (r *sessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	query := r.db.Rebind(`SELECT ` + sessionColumns + ` FROM sessions WHERE id = ?`)

	var session domain.Session
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.StoreError("failed to get session by id", err)
	}

	return normalize(&session), nil
}

// ListByOwner retrieves every session of one owner, most recently updated first
func (r *sessionRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Session, error) {
	query := r.db.Rebind(`
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE owner_id = ?
		ORDER BY updated_at DESC, id DESC`)

	sessions := []*domain.Session{}
	if err := r.db.SelectContext(ctx, &sessions, query, ownerID); err != nil {
		return nil, domain.StoreError("failed to list sessions by owner", err)
	}

	for _, s := range sessions {
		normalize(s)
	}
	return sessions, nil
}

// ListPublished retrieves one page of published sessions, newest first
func (r *sessionRepository) ListPublished(ctx context.Context, limit, offset int) ([]*domain.Session, error) {
	query := r.db.Rebind(`
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE status = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`)

	sessions := []*domain.Session{}
	if err := r.db.SelectContext(ctx, &sessions, query, domain.SessionStatusPublished, limit, offset); err != nil {
		return nil, domain.StoreError("failed to list published sessions", err)
	}

	for _, s := range sessions {
		normalize(s)
	}
	return sessions, nil
}

// CountPublished returns the number of published sessions
func (r *sessionRepository) CountPublished(ctx context.Context) (int, error) {
	query := r.db.Rebind(`SELECT COUNT(*) FROM sessions WHERE status = ?`)

	var total int
	if err := r.db.GetContext(ctx, &total, query, domain.SessionStatusPublished); err != nil {
		return 0, domain.StoreError("failed to count published sessions", err)
	}
	return total, nil
}

// Update overwrites the mutable fields of an existing session. Last write wins.
func (r *sessionRepository) Update(ctx context.Context, session *domain.Session) error {
	query := `
		UPDATE sessions
		SET title = :title,
			tags = :tags,
			config_url = :config_url,
			status = :status,
			updated_at = :updated_at
		WHERE id = :id`

	result, err := r.db.NamedExecContext(ctx, query, session)
	if err != nil {
		return domain.StoreError("failed to update session", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return domain.StoreError("failed to get rows affected", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// Delete removes a session permanently
func (r *sessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := r.db.Rebind(`DELETE FROM sessions WHERE id = ?`)

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return domain.StoreError("failed to delete session", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return domain.StoreError("failed to get rows affected", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// normalize puts timestamps in UTC; drivers hand them back in their own zone.
func normalize(s *domain.Session) *domain.Session {
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	if s.Tags == nil {
		s.Tags = domain.Tags{}
	}
	return s
}
