package console

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/labdesk/pkg/labsdk"
)

func newScreens(t *testing.T, mux *http.ServeMux, token string) (*Screens, *bytes.Buffer) {
	t.Helper()

	mux.HandleFunc("GET /api/auth/profile", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":{"id":1,"username":"sam","name":"Sam","role":"student"}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := labsdk.NewClient(srv.URL + "/api")
	session, err := labsdk.NewSession(context.Background(), client, labsdk.NewMemoryTokenStore(token))
	require.NoError(t, err)

	var out bytes.Buffer
	return &Screens{Client: client, Session: session, Out: &out, PageSize: 5}, &out
}

func TestScreens_LaboratoryList(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		query string
	)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/laboratories", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		query = r.URL.Query().Get("page_size") + "/" + r.URL.Query().Get("page")
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":{"list":[
			{"id":1,"name":"Chemistry A","location":"B1-101","capacity":30,"status":"active"},
			{"id":2,"name":"Physics","location":"B2-204","capacity":24,"status":"maintenance"}
		],"total":12,"page":1}}`))
	})

	s, out := newScreens(t, mux, "tok")
	require.NoError(t, s.Map()["LaboratoryList"](context.Background(), Match{}))

	text := out.String()
	require.Contains(t, text, "ID")
	require.Contains(t, text, "Chemistry A")
	require.Contains(t, text, "B2-204")
	require.Contains(t, text, "page 1, 2 of 12 records")

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, "5/1", query)
}

func TestScreens_EmptyList(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/users", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":[]}`))
	})

	s, out := newScreens(t, mux, "tok")
	require.NoError(t, s.users(context.Background(), Match{}))
	require.Equal(t, "(no records)\n", out.String())
}

func TestScreens_StudentReservationsUseOwnList(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/reservations/my", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":[{"id":9,"laboratory_name":"Physics","reservation_date":"2026-10-20","start_time":"09:00","end_time":"11:00","status":"pending"}]}`))
	})
	mux.HandleFunc("GET /api/reservations", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	s, out := newScreens(t, mux, "tok")
	_, err := s.Session.GetUserInfo(context.Background())
	require.NoError(t, err)
	require.True(t, s.Session.IsStudent())

	require.NoError(t, s.reservations(context.Background(), Match{}))
	require.Contains(t, out.String(), "09:00-11:00")
	require.Contains(t, out.String(), "1 records")
}

func TestScreens_Calendar(t *testing.T) {
	t.Parallel()

	var (
		mu       sync.Mutex
		from, to string
	)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/reservations/calendar", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		from, to = r.URL.Query().Get("start_date"), r.URL.Query().Get("end_date")
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":[]}`))
	})

	s, out := newScreens(t, mux, "tok")
	s.clock = func() time.Time { return time.Date(2026, time.February, 14, 10, 0, 0, 0, time.UTC) }

	require.NoError(t, s.calendar(context.Background(), Match{}))
	require.Equal(t, "February 2026\n(no records)\n", out.String())

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, "2026-02-01", from)
	require.Equal(t, "2026-02-28", to)
}

func TestScreens_Static(t *testing.T) {
	t.Parallel()

	s, out := newScreens(t, http.NewServeMux(), "")

	require.NoError(t, s.notFound(context.Background(), Match{Path: "/nowhere"}))
	require.NoError(t, s.formOnly(context.Background(), Match{Meta: Meta{Title: "New Laboratory"}}))
	require.NoError(t, s.dashboard(context.Background(), Match{}))

	require.Equal(t,
		"page not found: /nowhere\n"+
			"New Laboratory needs a form and is not available in the console.\n"+
			"Welcome.\n",
		out.String())
}

func TestRenderJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, renderJSON(&buf, []byte(`{"total":3,"pending":1}`)))
	require.Equal(t, "{\n  \"total\": 3,\n  \"pending\": 1\n}\n", buf.String())

	buf.Reset()
	require.NoError(t, renderJSON(&buf, nil))
	require.Equal(t, "(no data)\n", buf.String())

	require.Error(t, renderJSON(&buf, []byte(`{`)))
}
