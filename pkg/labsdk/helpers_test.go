package labsdk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// recordingUI implements every UI port and records what it was asked to do.
type recordingUI struct {
	mu        sync.Mutex
	successes []string
	errors    []string
	started   int
	done      int
	prompts   []Prompt
	replaced  []string

	// confirm, when set, answers prompts. Defaults to confirming.
	confirm func(ctx context.Context, p Prompt) (bool, error)
}

func (u *recordingUI) Success(msg string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.successes = append(u.successes, msg)
}

func (u *recordingUI) Error(msg string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.errors = append(u.errors, msg)
}

func (u *recordingUI) Start() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.started++
}

func (u *recordingUI) Done() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.done++
}

func (u *recordingUI) Confirm(ctx context.Context, p Prompt) (bool, error) {
	u.mu.Lock()
	u.prompts = append(u.prompts, p)
	confirm := u.confirm
	u.mu.Unlock()

	if confirm != nil {
		return confirm(ctx, p)
	}
	return true, nil
}

func (u *recordingUI) Replace(_ context.Context, path string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.replaced = append(u.replaced, path)
	return nil
}

func (u *recordingUI) Errors() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.errors...)
}

func (u *recordingUI) Successes() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.successes...)
}

func (u *recordingUI) Prompts() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.prompts)
}

func (u *recordingUI) Replaced() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.replaced...)
}

func (u *recordingUI) Progress() (started, done int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.started, u.done
}

// newTestClient starts a fake backend serving mux under /api and returns a
// client wired to a recording UI.
func newTestClient(t *testing.T, mux *http.ServeMux) (*Client, *recordingUI, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(http.StripPrefix("/api", mux))
	t.Cleanup(srv.Close)

	ui := &recordingUI{}
	client := NewClient(srv.URL + "/api")
	client.Notifier = ui
	client.Progress = ui
	client.Prompter = ui
	client.Navigator = ui

	return client, ui, srv
}

// newTestSession attaches a session with an in-memory token store.
func newTestSession(t *testing.T, client *Client, token string) (*Session, *MemoryTokenStore) {
	t.Helper()

	store := NewMemoryTokenStore(token)
	session, err := NewSession(context.Background(), client, store)
	require.NoError(t, err)
	return session, store
}

// seedProfile installs a profile directly, as a completed login would.
func seedProfile(t *testing.T, s *Session, fields map[string]any) {
	t.Helper()

	profile, err := (&UserProfile{}).merge(fields)
	require.NoError(t, err)

	s.mu.Lock()
	s.setProfileLocked(profile)
	s.mu.Unlock()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func okEnvelope(data any) map[string]any {
	return map[string]any{"success": true, "message": "ok", "data": data}
}
