package handler

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/andressep95/session-service/internal/domain"
	"github.com/andressep95/session-service/internal/handler/middleware"
	"github.com/andressep95/session-service/internal/service"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	defaultPage  = 1
	defaultLimit = 10
)

type SessionHandler struct {
	sessions *service.SessionService
	log      logrus.FieldLogger
}

func NewSessionHandler(sessions *service.SessionService, log logrus.FieldLogger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		log:      log,
	}
}

// TagList accepts either a JSON array of strings or a single comma-joined string.
type TagList []string

func (t *TagList) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*t = nil
		return nil
	}

	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		*t = service.NormalizeTags(list)
		return nil
	}

	var joined string
	if err := json.Unmarshal(b, &joined); err != nil {
		return errors.New("tags must be an array of strings or a comma-separated string")
	}
	*t = service.NormalizeTags(strings.Split(joined, ","))
	return nil
}

// SaveDraftRequest is the body of POST /my-sessions/save-draft. config_url is
// accepted as an alias for json_file_url.
type SaveDraftRequest struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Tags        TagList `json:"tags"`
	JSONFileURL string  `json:"json_file_url"`
	ConfigURL   string  `json:"config_url"`
}

type PublishRequest struct {
	ID string `json:"id"`
}

type Pagination struct {
	CurrentPage   int  `json:"current_page"`
	TotalPages    int  `json:"total_pages"`
	TotalSessions int  `json:"total_sessions"`
	HasNext       bool `json:"has_next"`
	HasPrev       bool `json:"has_prev"`
}

// ListPublished returns published sessions, newest first
// GET /api/sessions?page=1&limit=10
func (h *SessionHandler) ListPublished(c *fiber.Ctx) error {
	page := c.QueryInt("page", defaultPage)
	limit := c.QueryInt("limit", defaultLimit)

	result, err := h.sessions.ListPublished(c.UserContext(), page, limit)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return success(c, "Published sessions retrieved successfully", fiber.Map{
		"sessions": result.Items,
		"pagination": Pagination{
			CurrentPage:   result.Page,
			TotalPages:    result.TotalPages,
			TotalSessions: result.Total,
			HasNext:       result.HasNext(),
			HasPrev:       result.HasPrev(),
		},
	})
}

// MySessions lists the caller's drafts and published sessions
// GET /api/sessions/my-sessions
func (h *SessionHandler) MySessions(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return failure(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	owned, err := h.sessions.ListOwned(c.UserContext(), userID)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return success(c, "User sessions retrieved successfully", fiber.Map{
		"drafts":    owned.Drafts,
		"published": owned.Published,
		"total":     owned.Total(),
	})
}

// GetMySession fetches one of the caller's sessions
// GET /api/sessions/my-sessions/:id
func (h *SessionHandler) GetMySession(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return failure(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	id, err := parseSessionID(c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}

	session, err := h.sessions.Get(c.UserContext(), userID, id)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return success(c, "Session retrieved successfully", fiber.Map{"session": session})
}

// SaveDraft creates a draft, or updates one when the body carries an id
// POST /api/sessions/my-sessions/save-draft
func (h *SessionHandler) SaveDraft(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return failure(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var req SaveDraftRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	var id *uuid.UUID
	if strings.TrimSpace(req.ID) != "" {
		parsed, err := parseSessionID(req.ID)
		if err != nil {
			return respondError(c, h.log, err)
		}
		id = &parsed
	}

	configURL := req.JSONFileURL
	if configURL == "" {
		configURL = req.ConfigURL
	}

	session, created, err := h.sessions.SaveDraft(c.UserContext(), userID, id, service.DraftInput{
		Title:     req.Title,
		Tags:      req.Tags,
		ConfigURL: configURL,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}

	message := "Draft updated successfully"
	if created {
		message = "Draft saved successfully"
	}
	return success(c, message, fiber.Map{"session": session})
}

// Publish makes a draft publicly visible
// POST /api/sessions/my-sessions/publish
func (h *SessionHandler) Publish(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return failure(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var req PublishRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}
	if strings.TrimSpace(req.ID) == "" {
		return respondError(c, h.log, domain.ValidationError(domain.FieldError{Field: "id", Message: "Session ID is required"}))
	}

	id, err := parseSessionID(req.ID)
	if err != nil {
		return respondError(c, h.log, err)
	}

	session, err := h.sessions.Publish(c.UserContext(), userID, id)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return success(c, "Session published successfully", fiber.Map{"session": session})
}

// Delete removes one of the caller's sessions
// DELETE /api/sessions/my-sessions/:id
func (h *SessionHandler) Delete(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return failure(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	id, err := parseSessionID(c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}

	if err := h.sessions.Delete(c.UserContext(), userID, id); err != nil {
		return respondError(c, h.log, err)
	}

	return success(c, "Session deleted successfully", nil)
}

func parseSessionID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, domain.ValidationError(domain.FieldError{Field: "id", Message: "id must be a valid UUID"})
	}
	return id, nil
}
