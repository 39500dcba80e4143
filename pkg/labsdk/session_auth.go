package labsdk

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aussiebroadwan/labdesk/pkg/slogx"
)

// Accepted login response fields, checked in order. The backend has shipped
// more than one shape; the first non-empty field wins.
var (
	loginTokenFields   = []string{"token", "access_token"}
	loginProfileFields = []string{"user", "profile"}
)

// Login authenticates with the backend and stores the token and profile.
// Failures have already been shown to the user by the pipeline.
func (s *Session) Login(ctx context.Context, creds Credentials) (*Result, error) {
	log := slogx.FromContext(ctx)

	result, err := s.client.Post(ctx, PathLogin, creds)
	if err != nil {
		log.Info("login rejected", "username", creds.Username, "err", err)
		return nil, err
	}

	token, profile, err := parseLogin(result.Data)
	if err != nil {
		s.client.notifier().Error(msgProfileUnreadable)
		return nil, err
	}

	s.mu.Lock()
	s.token = token
	s.setProfileLocked(profile)
	s.mu.Unlock()

	if token != "" {
		if err := s.store.Save(token, s.now().Add(CookieTTL)); err != nil {
			log.Warn("failed to persist token", "err", err)
		}
	}

	log.Info("logged in", "username", profile.Username, "role", profile.Role)
	s.client.notifier().Success(msgLoginSucceeded)
	return result, nil
}

// parseLogin pulls the token and profile out of a login payload.
func parseLogin(data json.RawMessage) (string, *UserProfile, error) {
	fields := map[string]json.RawMessage{}
	if !isNull(data) {
		if err := json.Unmarshal(data, &fields); err != nil {
			return "", nil, fmt.Errorf("failed to decode login data: %w", err)
		}
	}

	var token string
	for _, name := range loginTokenFields {
		if token = scalarString(fields[name]); token != "" {
			break
		}
	}

	profileRaw := data
	for _, name := range loginProfileFields {
		if raw, ok := fields[name]; ok && !isNull(raw) {
			profileRaw = raw
			break
		}
	}

	profile := &UserProfile{}
	if isNull(profileRaw) {
		profile.setFields(nil)
		return token, profile, nil
	}
	if err := json.Unmarshal(profileRaw, profile); err != nil {
		return "", nil, fmt.Errorf("failed to decode login profile: %w", err)
	}
	return token, profile, nil
}

// Logout tells the backend, then clears the token, profile, permissions and
// persisted cookie whether or not the backend call succeeded.
func (s *Session) Logout(ctx context.Context) {
	log := slogx.FromContext(ctx)

	if _, err := s.client.Post(ctx, PathLogout, nil); err != nil {
		log.Warn("logout call failed", "err", err)
	}

	if err := s.clear(); err != nil {
		log.Warn("failed to remove persisted token", "err", err)
	}

	log.Info("logged out")
	s.client.notifier().Success(msgLoggedOut)
}

// GetUserInfo fetches the current profile. Any failure is treated as an
// invalid session: the session is logged out and the error returned.
func (s *Session) GetUserInfo(ctx context.Context) (*UserProfile, error) {
	profile, err := s.fetchProfile(ctx)
	if err != nil {
		s.Logout(ctx)
		return nil, err
	}

	s.mu.Lock()
	s.setProfileLocked(profile)
	s.mu.Unlock()

	return profile.clone(), nil
}

func (s *Session) fetchProfile(ctx context.Context) (*UserProfile, error) {
	result, err := s.client.Get(ctx, PathProfile, nil)
	if err != nil {
		return nil, err
	}
	if isNull(result.Data) {
		return nil, ErrNoProfile
	}

	profile := &UserProfile{}
	if err := result.Decode(profile); err != nil {
		return nil, fmt.Errorf("%s: %w", msgProfileUnreadable, err)
	}
	return profile, nil
}

// CheckLoginStatus loads the profile when a token was restored without one.
// Failures are logged, not returned.
func (s *Session) CheckLoginStatus(ctx context.Context) {
	if !s.IsAuthenticated() || s.HasProfile() {
		return
	}
	if _, err := s.GetUserInfo(ctx); err != nil {
		slogx.FromContext(ctx).Warn("check login status failed", "err", err)
	}
}

// UpdateProfile merges patch into the loaded profile locally and recomputes
// the permissions. Use SaveProfile to also update the backend.
func (s *Session) UpdateProfile(patch map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.profile == nil {
		return ErrNoProfile
	}
	merged, err := s.profile.merge(patch)
	if err != nil {
		return fmt.Errorf("failed to merge profile: %w", err)
	}
	s.setProfileLocked(merged)
	return nil
}

// SaveProfile sends patch to the backend and stores the profile it returns.
// When the backend returns no profile the patch is merged locally.
func (s *Session) SaveProfile(ctx context.Context, patch map[string]any) (*UserProfile, error) {
	result, err := s.client.Put(ctx, PathProfile, patch)
	if err != nil {
		return nil, err
	}

	if isNull(result.Data) {
		if err := s.UpdateProfile(patch); err != nil {
			return nil, err
		}
		return s.Profile(), nil
	}

	profile := &UserProfile{}
	if err := result.Decode(profile); err != nil {
		return nil, fmt.Errorf("%s: %w", msgProfileUnreadable, err)
	}

	s.mu.Lock()
	s.setProfileLocked(profile)
	s.mu.Unlock()

	s.client.notifier().Success(firstNonEmpty(result.Message, msgProfileSaved))
	return profile.clone(), nil
}

// Register creates a new account. It does not log in.
func (s *Session) Register(ctx context.Context, req RegisterRequest) (*Result, error) {
	return s.client.Post(ctx, PathRegister, req)
}

// ChangePassword changes the logged-in user's password.
func (s *Session) ChangePassword(ctx context.Context, req ChangePasswordRequest) error {
	_, err := s.client.Put(ctx, PathChangePassword, req)
	return err
}
