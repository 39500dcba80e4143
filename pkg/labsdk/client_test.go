package labsdk

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClient_OutboundDecoration(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var seen []*http.Request
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Clone(context.Background()))
		mu.Unlock()
		writeJSON(w, http.StatusOK, okEnvelope(nil))
	})

	last := func() *http.Request {
		mu.Lock()
		defer mu.Unlock()
		return seen[len(seen)-1]
	}

	client, _, _ := newTestClient(t, mux)
	ctx := context.Background()

	t.Run("no bearer header without a token", func(t *testing.T) {
		_, err := client.Get(ctx, "/laboratories", nil)
		require.NoError(t, err)
		require.Empty(t, last().Header.Get("Authorization"))
		require.NotEmpty(t, last().Header.Get("X-Request-ID"))
	})

	t.Run("bearer header with a token", func(t *testing.T) {
		newTestSession(t, client, "tok-123")

		_, err := client.Get(ctx, "/laboratories", nil)
		require.NoError(t, err)
		require.Equal(t, "Bearer tok-123", last().Header.Get("Authorization"))
	})

	t.Run("reads carry the cache buster and keep caller params", func(t *testing.T) {
		_, err := client.Get(ctx, "/laboratories", ListParams{Page: 2, Search: "chem"}.Values())
		require.NoError(t, err)

		q := last().URL.Query()
		require.Equal(t, "2", q.Get("page"))
		require.Equal(t, "chem", q.Get("search"))
		require.NotEmpty(t, q.Get(cacheBustParam))
	})

	t.Run("writes carry no cache buster and send JSON", func(t *testing.T) {
		_, err := client.Post(ctx, "/laboratories", map[string]string{"name": "Lab A"})
		require.NoError(t, err)

		req := last()
		require.Empty(t, req.URL.Query().Get(cacheBustParam))
		require.Equal(t, "application/json;charset=UTF-8", req.Header.Get("Content-Type"))
	})

	t.Run("patch sends JSON to the item path", func(t *testing.T) {
		result, err := client.Patch(ctx, "/laboratories/3", map[string]string{"status": "maintenance"})
		require.NoError(t, err)
		require.Equal(t, 200, result.Code)

		req := last()
		require.Equal(t, http.MethodPatch, req.Method)
		require.Equal(t, "/laboratories/3", req.URL.Path)
		require.Empty(t, req.URL.Query().Get(cacheBustParam))
		require.Equal(t, "application/json;charset=UTF-8", req.Header.Get("Content-Type"))
	})
}

func TestClient_CacheBusterStrictlyIncreases(t *testing.T) {
	t.Parallel()

	frozen := time.UnixMilli(1_700_000_000_000)
	client := NewClient("http://backend.invalid/api")
	client.clock = func() time.Time { return frozen }

	prev := client.cacheBuster()
	require.Equal(t, frozen.UnixMilli(), prev)
	for range 100 {
		next := client.cacheBuster()
		require.Greater(t, next, prev)
		prev = next
	}

	t.Run("concurrent stamps are unique", func(t *testing.T) {
		var wg sync.WaitGroup
		stamps := make(chan int64, 200)
		for range 200 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				stamps <- client.cacheBuster()
			}()
		}
		wg.Wait()
		close(stamps)

		seen := map[int64]bool{}
		for s := range stamps {
			require.False(t, seen[s], "duplicate stamp %d", s)
			seen[s] = true
		}
	})
}

func TestClient_StatusClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
		notice string
	}{
		{"400 with message", http.StatusBadRequest, `{"message":"date is required"}`, "date is required"},
		{"400 without message", http.StatusBadRequest, ``, msgInvalidParams},
		{"403", http.StatusForbidden, `{"message":"ignored"}`, msgForbidden},
		{"404", http.StatusNotFound, ``, msgNotFound},
		{"500", http.StatusInternalServerError, ``, msgInternalError},
		{"502", http.StatusBadGateway, ``, msgBadGateway},
		{"503", http.StatusServiceUnavailable, ``, msgUnavailable},
		{"504", http.StatusGatewayTimeout, ``, msgGatewayTimeout},
		{"409 with message", http.StatusConflict, `{"message":"email already in use"}`, "email already in use"},
		{"418 without message", http.StatusTeapot, `not json`, "request failed (418)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mux := http.NewServeMux()
			mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			client, ui, _ := newTestClient(t, mux)

			_, err := client.Get(context.Background(), "/equipment", nil)
			require.Error(t, err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			require.Equal(t, KindHTTP, apiErr.Kind)
			require.Equal(t, tt.status, apiErr.StatusCode)
			require.Equal(t, tt.notice, apiErr.Notice)
			require.Equal(t, []string{tt.notice}, ui.Errors())
			require.Zero(t, ui.Prompts())

			started, done := ui.Progress()
			require.Equal(t, 1, started)
			require.Equal(t, 1, done)
		})
	}
}

func TestClient_UnauthorizedRouting(t *testing.T) {
	t.Parallel()

	unauthorized := func(message string) *http.ServeMux {
		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			body := map[string]any{"success": false}
			if message != "" {
				body["message"] = message
			}
			writeJSON(w, http.StatusUnauthorized, body)
		})
		return mux
	}

	t.Run("login shows the backend message and never prompts", func(t *testing.T) {
		t.Parallel()

		client, ui, _ := newTestClient(t, unauthorized("wrong password"))
		_, err := client.Post(context.Background(), PathLogin, Credentials{Username: "a", Password: "b"})
		require.Equal(t, http.StatusUnauthorized, StatusCode(err))
		require.NoError(t, client.WaitRecovery(context.Background()))

		require.Equal(t, []string{"wrong password"}, ui.Errors())
		require.Zero(t, ui.Prompts())
		require.Empty(t, ui.Replaced())
	})

	t.Run("login without a message shows the credentials notice", func(t *testing.T) {
		t.Parallel()

		client, ui, _ := newTestClient(t, unauthorized(""))
		_, err := client.Post(context.Background(), PathLogin, Credentials{})
		require.Error(t, err)
		require.Equal(t, []string{msgBadCredentials}, ui.Errors())
	})

	t.Run("logout is silent", func(t *testing.T) {
		t.Parallel()

		client, ui, _ := newTestClient(t, unauthorized("token expired"))
		_, err := client.Post(context.Background(), PathLogout, nil)
		require.Equal(t, http.StatusUnauthorized, StatusCode(err))

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		require.Empty(t, apiErr.Notice)

		require.NoError(t, client.WaitRecovery(context.Background()))
		require.Empty(t, ui.Errors())
		require.Zero(t, ui.Prompts())
	})

	t.Run("any other path starts recovery", func(t *testing.T) {
		t.Parallel()

		client, ui, _ := newTestClient(t, unauthorized("token expired"))
		_, err := client.Get(context.Background(), "/reservations/my", nil)
		require.Equal(t, http.StatusUnauthorized, StatusCode(err))
		require.NoError(t, client.WaitRecovery(context.Background()))

		require.Equal(t, 1, ui.Prompts())
		require.Equal(t, []string{LoginRoute}, ui.Replaced())
	})
}

func TestClient_BusinessFailureIsNotified(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"code": "ERROR", "message": "stock too low"})
	})
	client, ui, _ := newTestClient(t, mux)

	_, err := client.Post(context.Background(), "/consumables/1/use", UseRequest{Quantity: 5})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, KindBusiness, apiErr.Kind)
	require.Equal(t, http.StatusOK, apiErr.StatusCode)
	require.Equal(t, []string{"stock too low"}, ui.Errors())
}

func TestClient_TransportFailures(t *testing.T) {
	t.Parallel()

	t.Run("timeout", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		})
		client, ui, _ := newTestClient(t, mux)
		t.Cleanup(func() { close(release) })
		client.HTTPClient.Timeout = 50 * time.Millisecond

		_, err := client.Get(context.Background(), "/laboratories", nil)
		require.True(t, IsKind(err, KindTimeout), "got %v", err)
		require.Equal(t, []string{msgTimeout}, ui.Errors())

		started, done := ui.Progress()
		require.Equal(t, started, done)
	})

	t.Run("unreachable backend", func(t *testing.T) {
		t.Parallel()

		client, ui, srv := newTestClient(t, http.NewServeMux())
		srv.Close()

		_, err := client.Get(context.Background(), "/laboratories", nil)
		require.True(t, IsKind(err, KindNetwork), "got %v", err)
		require.Equal(t, []string{msgNetwork}, ui.Errors())
	})

	t.Run("canceled context", func(t *testing.T) {
		t.Parallel()

		client, ui, _ := newTestClient(t, http.NewServeMux())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := client.Get(ctx, "/laboratories", nil)
		require.True(t, IsKind(err, KindUnknown), "got %v", err)
		require.Equal(t, []string{msgTryLater}, ui.Errors())
	})
}

func TestClient_Download(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /consumables/usage/export", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", "attachment; filename=consumable_usage.csv")
		// Looks like a failure envelope; must not be interpreted.
		_, _ = io.WriteString(w, `{"success":false,"message":"not an envelope"}`)
	})
	client, ui, _ := newTestClient(t, mux)

	resp, err := client.Download(context.Background(), "/consumables/usage/export", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, `{"success":false,"message":"not an envelope"}`, string(body))
	require.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
	require.Empty(t, ui.Errors())
}

func TestClient_Upload(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload/avatar", func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"message": err.Error()})
			return
		}
		defer file.Close()
		content, _ := io.ReadAll(file)
		writeJSON(w, http.StatusOK, okEnvelope(map[string]any{
			"url":  "/avatars/" + header.Filename,
			"size": strconv.Itoa(len(content)),
			"note": r.FormValue("note"),
		}))
	})
	client, _, _ := newTestClient(t, mux)

	result, err := client.Upload(context.Background(), PathAvatarUpload, "file", "me.png",
		strings.NewReader("png-bytes"), map[string]string{"note": "hi"})
	require.NoError(t, err)
	require.JSONEq(t, `{"url":"/avatars/me.png","size":"9","note":"hi"}`, string(result.Data))

	url, err := client.UploadAvatar(context.Background(), "me.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	require.Equal(t, "/avatars/me.png", url)
}

func TestAPIError_Error(t *testing.T) {
	t.Parallel()

	require.Equal(t, "http error (status 404): resource not found",
		(&APIError{Kind: KindHTTP, StatusCode: 404, Notice: msgNotFound}).Error())
	require.Equal(t, "http error (status 401): Unauthorized",
		(&APIError{Kind: KindHTTP, StatusCode: 401}).Error())
	require.Equal(t, "network error: request failed",
		(&APIError{Kind: KindNetwork}).Error())

	inner := errors.New("dial tcp: refused")
	require.ErrorIs(t, &APIError{Kind: KindNetwork, Err: inner}, inner)
}
