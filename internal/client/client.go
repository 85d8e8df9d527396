// Package client talks to the session API over HTTP. It is the saver behind
// the draftsync editing surface.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/andressep95/session-service/internal/autosave"
	"github.com/andressep95/session-service/internal/domain"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const defaultTimeout = 10 * time.Second

// APIError is a non-2xx response decoded from the common envelope.
type APIError struct {
	StatusCode int
	Message    string
	Fields     []domain.FieldError
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// Kind maps the status code back onto the server's error kinds.
func (e *APIError) Kind() domain.ErrorKind {
	switch e.StatusCode {
	case http.StatusBadRequest:
		return domain.KindValidation
	case http.StatusUnauthorized:
		return domain.KindUnauthenticated
	case http.StatusForbidden:
		return domain.KindForbidden
	case http.StatusNotFound:
		return domain.KindNotFound
	case http.StatusConflict:
		return domain.KindConflict
	default:
		return domain.KindStore
	}
}

type Client struct {
	baseURL string
	http    *http.Client
	log     logrus.FieldLogger

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Client) { c.log = log }
}

// New returns a client for baseURL, e.g. http://localhost:5001/api.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		log:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authData struct {
	Token *domain.AccessToken `json:"token"`
	User  *domain.User        `json:"user"`
}

// Login exchanges credentials for a token and keeps it for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (*domain.AccessToken, error) {
	return c.authenticate(ctx, "/auth/login", email, password)
}

// Register creates an account and keeps the returned token.
func (c *Client) Register(ctx context.Context, email, password string) (*domain.AccessToken, error) {
	return c.authenticate(ctx, "/auth/register", email, password)
}

func (c *Client) authenticate(ctx context.Context, path, email, password string) (*domain.AccessToken, error) {
	var data authData
	if err := c.do(ctx, http.MethodPost, path, credentials{Email: email, Password: password}, &data); err != nil {
		return nil, err
	}
	if data.Token == nil || data.Token.Token == "" {
		return nil, fmt.Errorf("failed to authenticate: response carried no token")
	}
	c.SetToken(data.Token.Token)
	return data.Token, nil
}

type saveDraftRequest struct {
	ID          string   `json:"id,omitempty"`
	Title       string   `json:"title"`
	Tags        []string `json:"tags"`
	JSONFileURL string   `json:"json_file_url"`
}

type sessionData struct {
	Session *domain.Session `json:"session"`
}

// SaveDraft creates the draft when id is nil and updates it otherwise,
// returning the id the server persisted it under.
func (c *Client) SaveDraft(ctx context.Context, id *uuid.UUID, snap autosave.Snapshot) (uuid.UUID, error) {
	req := saveDraftRequest{
		Title:       snap.Title,
		Tags:        snap.Tags,
		JSONFileURL: snap.ConfigURL,
	}
	if req.Tags == nil {
		req.Tags = []string{}
	}
	if id != nil {
		req.ID = id.String()
	}

	var data sessionData
	if err := c.do(ctx, http.MethodPost, "/sessions/my-sessions/save-draft", req, &data); err != nil {
		return uuid.Nil, err
	}
	if data.Session == nil {
		return uuid.Nil, fmt.Errorf("failed to save draft: response carried no session")
	}
	return data.Session.ID, nil
}

func (c *Client) Publish(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	var data sessionData
	if err := c.do(ctx, http.MethodPost, "/sessions/my-sessions/publish", map[string]string{"id": id.String()}, &data); err != nil {
		return nil, err
	}
	return data.Session, nil
}

func (c *Client) GetSession(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	var data sessionData
	if err := c.do(ctx, http.MethodGet, "/sessions/my-sessions/"+id.String(), nil, &data); err != nil {
		return nil, err
	}
	return data.Session, nil
}

type envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Data    json.RawMessage     `json:"data"`
	Errors  []domain.FieldError `json:"errors"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.log.WithFields(logrus.Fields{
		"method":  method,
		"path":    path,
		"status":  resp.StatusCode,
		"latency": time.Since(start).String(),
	}).Debug("API call")

	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&env); err != nil {
		if resp.StatusCode >= 300 {
			return &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode >= 300 || !env.Success {
		return &APIError{StatusCode: resp.StatusCode, Message: env.Message, Fields: env.Errors}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return nil
}
