package service

import (
	"context"
	"strings"
	"time"

	"github.com/andressep95/session-service/internal/domain"
	"github.com/andressep95/session-service/internal/metrics"
	"github.com/andressep95/session-service/internal/repository"
	"github.com/andressep95/session-service/pkg/validator"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// DraftInput carries the editable fields of a session in canonical form:
// tags are already a list, whatever shape the client sent.
type DraftInput struct {
	Title     string   `json:"title" validate:"required,max=200"`
	Tags      []string `json:"tags" validate:"dive,max=50"`
	ConfigURL string   `json:"json_file_url" validate:"required,httpurl"`
}

// PublishedPage is one page of the public listing. Page numbers are 1-based.
type PublishedPage struct {
	Items      []*domain.Session
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

func (p PublishedPage) HasNext() bool { return p.Page < p.TotalPages }
func (p PublishedPage) HasPrev() bool { return p.Page > 1 }

// SessionService is the draft/publish state machine. Every owner-scoped
// operation loads the record first (NotFound), then checks ownership
// (Forbidden), then mutates.
type SessionService struct {
	sessions  repository.SessionRepository
	validator *validator.Validator
	clock     clockwork.Clock
	log       logrus.FieldLogger
}

func NewSessionService(sessions repository.SessionRepository, v *validator.Validator, clock clockwork.Clock, log logrus.FieldLogger) *SessionService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &SessionService{
		sessions:  sessions,
		validator: v,
		clock:     clock,
		log:       log,
	}
}

// CreateDraft validates the fields and persists a new draft owned by owner.
func (s *SessionService) CreateDraft(ctx context.Context, owner uuid.UUID, in DraftInput) (session *domain.Session, err error) {
	defer observe("create_draft", &err)

	in, err = s.clean(in)
	if err != nil {
		return nil, err
	}

	now := s.now()
	session = &domain.Session{
		ID:        uuid.New(),
		OwnerID:   owner,
		Title:     in.Title,
		Tags:      in.Tags,
		ConfigURL: in.ConfigURL,
		Status:    domain.SessionStatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"session_id": session.ID, "owner_id": owner}).Info("Draft created")
	return session, nil
}

// UpdateDraft overwrites title, tags and config URL. Published sessions may be
// edited too; their status is left alone.
func (s *SessionService) UpdateDraft(ctx context.Context, owner, id uuid.UUID, in DraftInput) (session *domain.Session, err error) {
	defer observe("update_draft", &err)

	session, err = s.loadOwned(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	in, err = s.clean(in)
	if err != nil {
		return nil, err
	}

	session.Title = in.Title
	session.Tags = in.Tags
	session.ConfigURL = in.ConfigURL
	s.touch(session)

	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"session_id": session.ID, "status": session.Status}).Debug("Draft updated")
	return session, nil
}

// SaveDraft creates when id is nil and updates otherwise. created reports which.
func (s *SessionService) SaveDraft(ctx context.Context, owner uuid.UUID, id *uuid.UUID, in DraftInput) (session *domain.Session, created bool, err error) {
	if id == nil {
		session, err = s.CreateDraft(ctx, owner, in)
		return session, err == nil, err
	}
	session, err = s.UpdateDraft(ctx, owner, *id, in)
	return session, false, err
}

// Publish flips a draft to published. Publishing a published session succeeds
// without writing.
func (s *SessionService) Publish(ctx context.Context, owner, id uuid.UUID) (session *domain.Session, err error) {
	defer observe("publish", &err)

	session, err = s.loadOwned(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	if session.IsPublished() {
		return session, nil
	}

	session.Status = domain.SessionStatusPublished
	s.touch(session)

	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"session_id": session.ID, "owner_id": owner}).Info("Session published")
	return session, nil
}

// Delete removes the session permanently.
func (s *SessionService) Delete(ctx context.Context, owner, id uuid.UUID) (err error) {
	defer observe("delete", &err)

	if _, err = s.loadOwned(ctx, owner, id); err != nil {
		return err
	}

	if err = s.sessions.Delete(ctx, id); err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{"session_id": id, "owner_id": owner}).Info("Session deleted")
	return nil
}

// Get returns one session to its owner.
func (s *SessionService) Get(ctx context.Context, owner, id uuid.UUID) (session *domain.Session, err error) {
	defer observe("get", &err)
	return s.loadOwned(ctx, owner, id)
}

// ListPublished needs no caller identity. A page past the end yields no items
// but still reports the total.
func (s *SessionService) ListPublished(ctx context.Context, page, pageSize int) (result *PublishedPage, err error) {
	defer observe("list_published", &err)

	if pageSize <= 0 {
		return nil, domain.ValidationError(domain.FieldError{Field: "limit", Message: "limit must be greater than 0"})
	}
	if page < 1 {
		page = 1
	}

	total, err := s.sessions.CountPublished(ctx)
	if err != nil {
		return nil, err
	}

	result = &PublishedPage{
		Items:      []*domain.Session{},
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	}

	offset := (page - 1) * pageSize
	if offset >= total {
		return result, nil
	}

	result.Items, err = s.sessions.ListPublished(ctx, pageSize, offset)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListOwned partitions the caller's sessions by status, each most recently
// updated first.
func (s *SessionService) ListOwned(ctx context.Context, owner uuid.UUID) (owned *domain.OwnedSessions, err error) {
	defer observe("list_owned", &err)

	all, err := s.sessions.ListByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}

	owned = &domain.OwnedSessions{
		Drafts:    []*domain.Session{},
		Published: []*domain.Session{},
	}
	for _, session := range all {
		if session.IsPublished() {
			owned.Published = append(owned.Published, session)
		} else {
			owned.Drafts = append(owned.Drafts, session)
		}
	}
	return owned, nil
}

// loadOwned checks existence before ownership, so a stranger probing an id
// learns whether it exists (404 vs 403).
func (s *SessionService) loadOwned(ctx context.Context, owner, id uuid.UUID) (*domain.Session, error) {
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(owner, session); err != nil {
		s.log.WithFields(logrus.Fields{"session_id": id, "caller_id": owner}).Warn("Ownership check failed")
		return nil, err
	}
	return session, nil
}

func authorize(caller uuid.UUID, session *domain.Session) error {
	if !session.OwnedBy(caller) {
		return domain.ErrForbidden
	}
	return nil
}

// clean trims the input, drops blank tags and validates what is left.
func (s *SessionService) clean(in DraftInput) (DraftInput, error) {
	out := DraftInput{
		Title:     strings.TrimSpace(in.Title),
		Tags:      NormalizeTags(in.Tags),
		ConfigURL: strings.TrimSpace(in.ConfigURL),
	}

	if err := validateInput(s.validator, out); err != nil {
		return DraftInput{}, err
	}
	return out, nil
}

// NormalizeTags trims every tag and drops the empty ones, keeping order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

// touch refreshes updated_at without ever moving it backwards.
func (s *SessionService) touch(session *domain.Session) {
	now := s.now()
	if now.Before(session.UpdatedAt) {
		return
	}
	session.UpdatedAt = now
}

// now is truncated to the precision Postgres keeps.
func (s *SessionService) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Microsecond)
}

func observe(op string, err *error) {
	result := "ok"
	if *err != nil {
		result = string(domain.KindOf(*err))
		if result == "" {
			result = "error"
		}
	}
	metrics.SessionOperationsTotal.WithLabelValues(op, result).Inc()
}
