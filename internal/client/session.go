// Package client is the Go client for the AccessDesk API. It keeps the
// caller's session and permission matrix on disk so UI and CLI decisions can be
// made without a round trip. The server re-checks every privileged request.
package client

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/accessdesk/accessdesk/internal/rbac"
)

var (
	// ErrNoSession is returned when no usable session is stored.
	ErrNoSession = errors.New("client: not logged in")
	// ErrReauthenticate is returned when the server rejected the session and
	// the local cache was cleared.
	ErrReauthenticate = errors.New("client: session rejected, log in again")
)

// Session is what the client remembers after a login.
type Session struct {
	UserID       int64       `json:"userId"`
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken,omitempty"`
	ExpiresAt    time.Time   `json:"expiresAt"`
	RoleID       *int64      `json:"roleId"`
	RoleName     string      `json:"roleName"`
	Permissions  rbac.Matrix `json:"permissions"`
}

// Validate reports whether the session can be trusted for permission checks.
func (s *Session) Validate() error {
	if s == nil {
		return errors.New("session is empty")
	}
	if strings.TrimSpace(s.AccessToken) == "" {
		return errors.New("access token missing")
	}
	if s.Permissions == nil {
		return errors.New("permission matrix missing")
	}
	for resource, actions := range s.Permissions {
		if strings.TrimSpace(resource) == "" {
			return errors.New("permission matrix has an empty resource")
		}
		if actions == nil {
			return fmt.Errorf("permission matrix has no actions for %q", resource)
		}
		for action := range actions {
			if strings.TrimSpace(action) == "" {
				return fmt.Errorf("permission matrix has an empty action under %q", resource)
			}
		}
	}
	return nil
}

// Expired reports whether the access token has passed its expiry.
func (s *Session) Expired(now time.Time) bool {
	return s == nil || (!s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt))
}

func (s *Session) clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	if s.RoleID != nil {
		id := *s.RoleID
		cp.RoleID = &id
	}
	cp.Permissions = make(rbac.Matrix, len(s.Permissions))
	for resource, actions := range s.Permissions {
		inner := make(map[string]bool, len(actions))
		for action, allowed := range actions {
			inner[action] = allowed
		}
		cp.Permissions[resource] = inner
	}
	return &cp
}
