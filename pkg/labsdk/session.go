package labsdk

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aussiebroadwan/labdesk/pkg/slogx"
)

// Session is the single source of truth for who is logged in and what they
// may do. The permission set is always derived from the profile's role and
// is never set on its own.
type Session struct {
	client *Client
	store  TokenStore

	mu          sync.RWMutex
	token       string
	profile     *UserProfile
	permissions []string
	permSet     map[string]bool // Derived from permissions for fast lookup

	clock func() time.Time
}

// NewSession creates the session for client and attaches it, so every call
// the client makes carries the session token. A token persisted in store is
// restored; a JWT whose expiry has already passed is discarded instead, and
// so is a token the store cannot read.
// A nil store keeps the token in memory only.
func NewSession(ctx context.Context, client *Client, store TokenStore) (*Session, error) {
	if store == nil {
		store = NewMemoryTokenStore("")
	}

	s := &Session{
		client:  client,
		store:   store,
		permSet: map[string]bool{},
		clock:   time.Now,
	}

	token, err := store.Load()
	if err != nil {
		// An unreadable saved token is the same as none; logging in again
		// replaces it.
		slogx.FromContext(ctx).Warn("discarding unreadable saved token", "err", err)
		if err := store.Clear(); err != nil {
			slogx.FromContext(ctx).Warn("failed to clear unreadable token", "err", err)
		}
		token = ""
	}

	if token != "" && tokenExpired(token, s.now()) {
		slogx.FromContext(ctx).Info("discarding expired token")
		if err := store.Clear(); err != nil {
			return nil, fmt.Errorf("failed to clear expired token: %w", err)
		}
		token = ""
	}
	s.token = token

	client.session = s
	return s, nil
}

// tokenExpired reports whether token is a JWT with an exp claim at or before
// now. Opaque tokens never count as expired; the backend decides.
func tokenExpired(token string, now time.Time) bool {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}

// Token returns the current auth token, or "".
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// IsAuthenticated reports whether a token is held.
func (s *Session) IsAuthenticated() bool {
	return s.Token() != ""
}

// Profile returns a copy of the loaded profile, or nil.
func (s *Session) Profile() *UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile.clone()
}

// HasProfile reports whether a profile is loaded.
func (s *Session) HasProfile() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile != nil
}

// Role returns the loaded profile's role, or "".
func (s *Session) Role() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return ""
	}
	return s.profile.Role
}

func (s *Session) IsAdmin() bool   { return s.Role() == RoleAdmin }
func (s *Session) IsTeacher() bool { return s.Role() == RoleTeacher }
func (s *Session) IsStudent() bool { return s.Role() == RoleStudent }

// GetUserPermissions returns a copy of the current permissions in role table
// order. Empty when no profile is loaded or the role is unknown.
func (s *Session) GetUserPermissions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	perms := slices.Clone(s.permissions)
	if perms == nil {
		return []string{}
	}
	return perms
}

// HasPermission returns true if the session holds the permission.
func (s *Session) HasPermission(permission string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.permSet[permission]
}

// HasRole returns true if the loaded profile's role is any of roles.
func (s *Session) HasRole(roles ...string) bool {
	role := s.Role()
	if role == "" {
		return false
	}
	return slices.Contains(roles, role)
}

// setProfileLocked stores p and recomputes the permissions. Caller must hold
// the write lock.
func (s *Session) setProfileLocked(p *UserProfile) {
	s.profile = p

	role := ""
	if p != nil {
		role = p.Role
	}
	s.permissions = PermissionsForRole(role)
	s.permSet = permissionSet(role)
}

// clear drops all in-memory state and the persisted token.
func (s *Session) clear() error {
	s.mu.Lock()
	s.token = ""
	s.setProfileLocked(nil)
	s.mu.Unlock()

	return s.store.Clear()
}

func (s *Session) now() time.Time {
	if s.clock == nil {
		return time.Now()
	}
	return s.clock()
}
