package client

import (
	"errors"
	"sync"

	"github.com/accessdesk/accessdesk/internal/rbac"
)

// PermissionCache answers permission questions from the last known session.
// It fails closed: with no session everything is denied.
type PermissionCache struct {
	mu      sync.RWMutex
	store   Store
	session *Session
}

// NewPermissionCache builds an empty cache backed by store. store may be nil
// for an in-memory cache.
func NewPermissionCache(store Store) *PermissionCache {
	return &PermissionCache{store: store}
}

// Load reads the stored session. When nothing usable is stored the cache is
// left empty and ErrNoSession is returned.
func (c *PermissionCache) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = nil
	if c.store == nil {
		return ErrNoSession
	}
	session, err := c.store.Load()
	if err != nil {
		return err
	}
	c.session = session
	return nil
}

// Set replaces the session and persists it.
func (c *PermissionCache) Set(session *Session) error {
	if err := session.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = session.clone()
	if c.store != nil {
		return c.store.Save(c.session)
	}
	return nil
}

// Clear forgets the session in memory and on disk.
func (c *PermissionCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = nil
	if c.store != nil {
		return c.store.Delete()
	}
	return nil
}

// Session returns a copy of the current session.
func (c *PermissionCache) Session() (*Session, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return nil, ErrNoSession
	}
	return c.session.clone(), nil
}

// HasPermission reports whether the cached matrix grants action on resource.
func (c *PermissionCache) HasPermission(resource, action string) bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return false
	}
	return c.session.Permissions.Allows(resource, action)
}

// Matrix returns a copy of the cached matrix, or nil when empty.
func (c *PermissionCache) Matrix() rbac.Matrix {
	session, err := c.Session()
	if err != nil {
		return nil
	}
	return session.Permissions
}

func (c *PermissionCache) updatePermissions(roleID *int64, roleName string, matrix rbac.Matrix) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ErrNoSession
	}
	next := c.session.clone()
	next.RoleID = roleID
	next.RoleName = roleName
	next.Permissions = matrix
	if err := next.Validate(); err != nil {
		return errors.Join(ErrNoSession, err)
	}
	c.session = next
	if c.store != nil {
		return c.store.Save(next)
	}
	return nil
}
