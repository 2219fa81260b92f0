package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/accessdesk/accessdesk/internal/rbac"
)

const (
	codeElevatedRoleRequired = "ELEVATED_ROLE_REQUIRED"
	defaultTimeout           = 30 * time.Second
)

// APIError is a failure envelope returned by the server.
type APIError struct {
	Status  int
	Code    string
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%d %s)", e.Message, e.Status, e.Code)
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.Status)
}

// Client talks to the AccessDesk API and keeps the permission cache in step
// with what the server says.
type Client struct {
	baseURL string
	http    *http.Client
	cache   *PermissionCache
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New returns a client for the API at baseURL.
func New(baseURL string, cache *PermissionCache, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		cache:   cache,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Cache exposes the permission cache.
func (c *Client) Cache() *PermissionCache {
	return c.cache
}

type userPayload struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type rolePayload struct {
	ID          *int64      `json:"id"`
	Name        string      `json:"name"`
	Permissions rbac.Matrix `json:"permissions"`
}

type loginPayload struct {
	User         userPayload `json:"user"`
	Role         rolePayload `json:"role"`
	Token        string      `json:"token"`
	RefreshToken string      `json:"refreshToken"`
	ExpiresAt    time.Time   `json:"expiresAt"`
}

func (p loginPayload) session() *Session {
	return &Session{
		UserID:       p.User.ID,
		Name:         p.User.Name,
		Email:        p.User.Email,
		AccessToken:  p.Token,
		RefreshToken: p.RefreshToken,
		ExpiresAt:    p.ExpiresAt,
		RoleID:       p.Role.ID,
		RoleName:     p.Role.Name,
		Permissions:  p.Role.Permissions,
	}
}

// Login exchanges credentials for a session and caches it.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var out loginPayload
	body := map[string]string{"email": email, "password": password}
	if err := c.send(ctx, http.MethodPost, "/auth/login", "", body, &out); err != nil {
		return nil, err
	}
	return c.store(out)
}

// Refresh rotates the refresh token and re-caches the permission matrix.
func (c *Client) Refresh(ctx context.Context) (*Session, error) {
	session, err := c.cache.Session()
	if err != nil {
		return nil, err
	}
	if session.RefreshToken == "" {
		return nil, ErrNoSession
	}
	var out loginPayload
	body := map[string]string{"refreshToken": session.RefreshToken}
	if err := c.send(ctx, http.MethodPost, "/auth/refresh", "", body, &out); err != nil {
		if isUnauthenticated(err) {
			return nil, c.reauthenticate()
		}
		return nil, err
	}
	return c.store(out)
}

// Logout revokes the refresh token and clears the cache even when the server
// cannot be reached.
func (c *Client) Logout(ctx context.Context) error {
	session, err := c.cache.Session()
	if err != nil {
		return c.cache.Clear()
	}
	body := map[string]string{"refreshToken": session.RefreshToken}
	callErr := c.Do(ctx, http.MethodPost, "/auth/logout", body, nil)
	if errors.Is(callErr, ErrReauthenticate) {
		callErr = nil
	}
	return errors.Join(callErr, c.cache.Clear())
}

// Profile is the caller as the server currently sees them.
type Profile struct {
	User userPayload `json:"user"`
	Role rolePayload `json:"role"`
}

// Me fetches the caller's profile and updates the cached matrix with it.
func (c *Client) Me(ctx context.Context) (*Profile, error) {
	var out Profile
	if err := c.Do(ctx, http.MethodGet, "/auth/me", nil, &out); err != nil {
		return nil, err
	}
	if err := c.cache.updatePermissions(out.Role.ID, out.Role.Name, out.Role.Permissions); err != nil {
		return nil, err
	}
	return &out, nil
}

// Do performs an authenticated request and decodes the envelope data into out.
// A 401, or a 403 demanding an elevated role, clears the cache and returns
// ErrReauthenticate.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	session, err := c.cache.Session()
	if err != nil {
		return err
	}
	err = c.send(ctx, method, path, session.AccessToken, body, out)
	var apiErr *APIError
	if errors.As(err, &apiErr) && rejectsSession(apiErr) {
		return c.reauthenticate()
	}
	return err
}

func (c *Client) store(out loginPayload) (*Session, error) {
	session := out.session()
	if err := c.cache.Set(session); err != nil {
		return nil, fmt.Errorf("cache session: %w", err)
	}
	return session, nil
}

func (c *Client) reauthenticate() error {
	if err := c.cache.Clear(); err != nil {
		return errors.Join(ErrReauthenticate, err)
	}
	return ErrReauthenticate
}

func rejectsSession(err *APIError) bool {
	return err.Status == http.StatusUnauthorized ||
		(err.Status == http.StatusForbidden && err.Code == codeElevatedRoleRequired)
}

func isUnauthenticated(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Code    string            `json:"code"`
	Errors  map[string]string `json:"errors"`
}

func (c *Client) send(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	if resp.StatusCode >= http.StatusBadRequest || !env.Success {
		return &APIError{Status: resp.StatusCode, Code: env.Code, Message: env.Message, Fields: env.Errors}
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
