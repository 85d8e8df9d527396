package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type SessionStatus string

const (
	SessionStatusDraft     SessionStatus = "draft"
	SessionStatusPublished SessionStatus = "published"
)

// Session is a wellness session authored by a single owner. ConfigURL points at
// the JSON configuration file; the file itself is never fetched.
type Session struct {
	ID        uuid.UUID     `json:"id" db:"id"`
	OwnerID   uuid.UUID     `json:"user_id" db:"owner_id"`
	Title     string        `json:"title" db:"title"`
	Tags      Tags          `json:"tags" db:"tags"`
	ConfigURL string        `json:"json_file_url" db:"config_url"`
	Status    SessionStatus `json:"status" db:"status"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt time.Time     `json:"updated_at" db:"updated_at"`
}

func (s *Session) IsPublished() bool {
	return s.Status == SessionStatusPublished
}

// OwnedBy reports whether userID is the session owner.
func (s *Session) OwnedBy(userID uuid.UUID) bool {
	return s.OwnerID == userID
}

// OwnedSessions partitions the caller's sessions by status.
type OwnedSessions struct {
	Drafts    []*Session `json:"drafts"`
	Published []*Session `json:"published"`
}

func (o OwnedSessions) Total() int {
	return len(o.Drafts) + len(o.Published)
}

// Tags is stored as a JSON array so the same column works on Postgres and SQLite.
type Tags []string

func (t Tags) Value() (driver.Value, error) {
	if t == nil {
		t = Tags{}
	}
	b, err := json.Marshal([]string(t))
	if err != nil {
		return nil, fmt.Errorf("failed to encode tags: %w", err)
	}
	return string(b), nil
}

func (t *Tags) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*t = Tags{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("unsupported tags column type %T", src)
	}

	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("failed to decode tags: %w", err)
	}
	if out == nil {
		out = []string{}
	}
	*t = out
	return nil
}
