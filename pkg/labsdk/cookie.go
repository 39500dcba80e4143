package labsdk

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	// CookieName is the name of the persisted token cookie.
	CookieName = "token"
	// CookieTTL is how long a persisted token survives.
	CookieTTL = 7 * 24 * time.Hour
)

// TokenStore persists the auth token between runs. Only the token is ever
// persisted; the profile is always fetched again.
type TokenStore interface {
	// Load returns the stored token, or "" when there is none or it expired.
	Load() (string, error)
	Save(token string, expires time.Time) error
	Clear() error
}

// FileCookieStore keeps the token as a single Set-Cookie line in a file.
type FileCookieStore struct {
	Path string

	clock func() time.Time
}

// NewFileCookieStore returns a store backed by path. The file and its parent
// directory are created on first Save.
func NewFileCookieStore(path string) *FileCookieStore {
	return &FileCookieStore{Path: path, clock: time.Now}
}

// Load implements TokenStore.
func (s *FileCookieStore) Load() (string, error) {
	raw, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read cookie file: %w", err)
	}

	line := strings.TrimSpace(string(raw))
	if line == "" {
		return "", nil
	}

	cookie, err := http.ParseSetCookie(line)
	if err != nil {
		return "", fmt.Errorf("parse cookie file: %w", err)
	}
	if cookie.Name != CookieName {
		return "", nil
	}
	if !cookie.Expires.IsZero() && !s.now().Before(cookie.Expires) {
		return "", nil
	}
	return cookie.Value, nil
}

// Save implements TokenStore.
func (s *FileCookieStore) Save(token string, expires time.Time) error {
	cookie := &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
	}
	if err := cookie.Valid(); err != nil {
		return fmt.Errorf("invalid token cookie: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return fmt.Errorf("create cookie dir: %w", err)
	}
	if err := os.WriteFile(s.Path, []byte(cookie.String()+"\n"), 0o600); err != nil {
		return fmt.Errorf("write cookie file: %w", err)
	}
	return nil
}

// Clear implements TokenStore.
func (s *FileCookieStore) Clear() error {
	if err := os.Remove(s.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove cookie file: %w", err)
	}
	return nil
}

func (s *FileCookieStore) now() time.Time {
	if s.clock == nil {
		return time.Now()
	}
	return s.clock()
}

// MemoryTokenStore is an in-process TokenStore.
type MemoryTokenStore struct {
	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewMemoryTokenStore returns a store pre-loaded with token, which never
// expires. An empty token gives an empty store.
func NewMemoryTokenStore(token string) *MemoryTokenStore {
	return &MemoryTokenStore{token: token}
}

// Load implements TokenStore.
func (s *MemoryTokenStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.expires.IsZero() && !time.Now().Before(s.expires) {
		return "", nil
	}
	return s.token, nil
}

// Save implements TokenStore.
func (s *MemoryTokenStore) Save(token string, expires time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
	s.expires = expires
	return nil
}

// Clear implements TokenStore.
func (s *MemoryTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	s.expires = time.Time{}
	return nil
}

// Expires reports the expiry of the stored token; zero when unset.
func (s *MemoryTokenStore) Expires() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expires
}
