package console

import (
	"errors"
	"path"
	"slices"
	"strings"

	"github.com/aussiebroadwan/labdesk/pkg/labsdk"
)

// Well-known routes.
const (
	RouteLogin    = labsdk.LoginRoute
	RouteRegister = "/register"
	RouteHome     = "/"
)

// TitleSuffix is appended to every screen title.
const TitleSuffix = "University Lab Reservation & Equipment Management"

// ErrRedirectLoop is returned when resolving a path follows too many
// redirects.
var ErrRedirectLoop = errors.New("console: too many redirects")

// Meta is the per-route guard configuration. Children inherit their parent's
// meta; any field a child sets overrides the parent's.
type Meta struct {
	Title string

	// RequiresAuth defaults to true when nil.
	RequiresAuth *bool

	// Roles, when non-empty, lists the only roles allowed in.
	Roles []string
}

// Route is one entry of the route tree. Child paths are relative to their
// parent; "*" matches anything and is tried last.
type Route struct {
	Path     string
	Name     string
	Redirect string
	Meta     Meta
	Children []Route
}

// Match is a resolved navigation target.
type Match struct {
	// Path is the cleaned path that was resolved.
	Path     string
	Name     string
	Redirect string
	Params   map[string]string
	Meta     Meta
}

// RequiresAuth reports the effective auth requirement.
func (m Match) RequiresAuth() bool {
	return m.Meta.RequiresAuth == nil || *m.Meta.RequiresAuth
}

// Title returns the full screen title, or "" when the route has none.
func (m Match) Title() string {
	if m.Meta.Title == "" {
		return ""
	}
	return m.Meta.Title + " - " + TitleSuffix
}

type entry struct {
	pattern  string
	segments []string
	catchAll bool
	name     string
	redirect string
	meta     Meta
}

// Table is a flattened, immutable route tree.
type Table struct {
	entries []entry
}

// NewTable flattens routes. Parents are matchable in their own right, which
// is how a parent's Redirect takes effect.
func NewTable(routes []Route) *Table {
	t := &Table{}
	for _, r := range routes {
		t.add("/", Meta{}, r)
	}

	// Catch-alls go last so they never shadow a real route.
	slices.SortStableFunc(t.entries, func(a, b entry) int {
		switch {
		case a.catchAll == b.catchAll:
			return 0
		case a.catchAll:
			return 1
		default:
			return -1
		}
	})
	return t
}

func (t *Table) add(parent string, inherited Meta, r Route) {
	full := r.Path
	if !strings.HasPrefix(full, "/") && full != "*" {
		full = path.Join(parent, full)
	}

	meta := mergeMeta(inherited, r.Meta)
	e := entry{
		pattern:  full,
		name:     r.Name,
		redirect: r.Redirect,
		meta:     meta,
	}
	if full == "*" {
		e.catchAll = true
	} else {
		e.segments = splitPath(full)
	}
	t.entries = append(t.entries, e)

	for _, child := range r.Children {
		t.add(full, meta, child)
	}
}

func mergeMeta(parent, child Meta) Meta {
	merged := parent
	if child.Title != "" {
		merged.Title = child.Title
	}
	if child.RequiresAuth != nil {
		merged.RequiresAuth = child.RequiresAuth
	}
	if child.Roles != nil {
		merged.Roles = slices.Clone(child.Roles)
	}
	return merged
}

// Resolve finds the route for p. It never fails: unknown paths resolve to
// the catch-all route when there is one, else to an empty Match.
func (t *Table) Resolve(p string) Match {
	clean := cleanPath(p)
	segs := splitPath(clean)

	for _, e := range t.entries {
		if e.catchAll {
			return Match{Path: clean, Name: e.name, Redirect: e.redirect, Meta: e.meta}
		}
		if params, ok := matchSegments(e.segments, segs); ok {
			return Match{Path: clean, Name: e.name, Redirect: e.redirect, Params: params, Meta: e.meta}
		}
	}
	return Match{Path: clean}
}

// Patterns lists every concrete route pattern in table order.
func (t *Table) Patterns() []string {
	patterns := make([]string, 0, len(t.entries))
	for _, e := range t.entries {
		if e.catchAll || e.redirect != "" {
			continue
		}
		patterns = append(patterns, e.pattern)
	}
	return patterns
}

// Lookup returns the route registered under pattern, with its inherited
// meta. Params are not filled in.
func (t *Table) Lookup(pattern string) (Match, bool) {
	for _, e := range t.entries {
		if e.pattern == pattern {
			return Match{Path: e.pattern, Name: e.name, Redirect: e.redirect, Meta: e.meta}, true
		}
	}
	return Match{}, false
}

func matchSegments(pattern, segs []string) (map[string]string, bool) {
	if len(pattern) != len(segs) {
		return nil, false
	}

	var params map[string]string
	for i, p := range pattern {
		if name, ok := strings.CutPrefix(p, ":"); ok {
			if params == nil {
				params = map[string]string{}
			}
			params[name] = segs[i]
			continue
		}
		if p != segs[i] {
			return nil, false
		}
	}
	return params, true
}

func cleanPath(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

func splitPath(p string) []string {
	trimmed := strings.Trim(p, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func requiresAuth(b bool) *bool {
	return &b
}

var (
	staffOnly = []string{labsdk.RoleAdmin, labsdk.RoleTeacher}
	adminOnly = []string{labsdk.RoleAdmin}
)

// DefaultRoutes is the console's route tree.
func DefaultRoutes() []Route {
	return []Route{
		{Path: RouteLogin, Name: "Login", Meta: Meta{Title: "Login", RequiresAuth: requiresAuth(false)}},
		{Path: RouteRegister, Name: "Register", Meta: Meta{Title: "Register", RequiresAuth: requiresAuth(false)}},
		{
			Path:     RouteHome,
			Redirect: "/dashboard",
			Meta:     Meta{RequiresAuth: requiresAuth(true)},
			Children: []Route{
				{Path: "dashboard", Name: "Dashboard", Meta: Meta{Title: "Dashboard"}},
				{
					Path: "laboratory", Name: "Laboratory", Redirect: "/laboratory/list",
					Meta: Meta{Title: "Laboratories", Roles: staffOnly},
					Children: []Route{
						{Path: "list", Name: "LaboratoryList", Meta: Meta{Title: "Laboratory List"}},
						{Path: "create", Name: "LaboratoryCreate", Meta: Meta{Title: "New Laboratory", Roles: adminOnly}},
						{Path: "edit/:id", Name: "LaboratoryEdit", Meta: Meta{Title: "Edit Laboratory", Roles: adminOnly}},
					},
				},
				{
					Path: "equipment", Name: "Equipment", Redirect: "/equipment/list",
					Meta: Meta{Title: "Equipment", Roles: staffOnly},
					Children: []Route{
						{Path: "list", Name: "EquipmentList", Meta: Meta{Title: "Equipment List"}},
						{Path: "create", Name: "EquipmentCreate", Meta: Meta{Title: "New Equipment", Roles: adminOnly}},
						{Path: "maintenance", Name: "EquipmentMaintenance", Meta: Meta{Title: "Equipment Maintenance", Roles: staffOnly}},
					},
				},
				{
					Path: "reservation", Name: "Reservation", Redirect: "/reservation/list",
					Meta: Meta{Title: "Reservations"},
					Children: []Route{
						{Path: "list", Name: "ReservationList", Meta: Meta{Title: "Reservation List"}},
						{Path: "create", Name: "ReservationCreate", Meta: Meta{Title: "New Reservation"}},
						{Path: "calendar", Name: "ReservationCalendar", Meta: Meta{Title: "Reservation Calendar"}},
						{Path: "approval", Name: "ReservationApproval", Meta: Meta{Title: "Reservation Approval", Roles: staffOnly}},
					},
				},
				{
					Path: "consumable", Name: "Consumable", Redirect: "/consumable/list",
					Meta: Meta{Title: "Consumables", Roles: staffOnly},
					Children: []Route{
						{Path: "list", Name: "ConsumableList", Meta: Meta{Title: "Consumable List"}},
						{Path: "create", Name: "ConsumableCreate", Meta: Meta{Title: "New Consumable", Roles: adminOnly}},
						{Path: "usage", Name: "ConsumableUsage", Meta: Meta{Title: "Usage Records"}},
					},
				},
				{
					Path: "course", Name: "Course", Redirect: "/course/list",
					Meta: Meta{Title: "Courses", Roles: staffOnly},
					Children: []Route{
						{Path: "list", Name: "CourseList", Meta: Meta{Title: "Course List"}},
						{Path: "create", Name: "CourseCreate", Meta: Meta{Title: "New Course", Roles: staffOnly}},
					},
				},
				{
					Path: "user", Name: "User", Redirect: "/user/list",
					Meta: Meta{Title: "Users", Roles: adminOnly},
					Children: []Route{
						{Path: "list", Name: "UserList", Meta: Meta{Title: "User List"}},
						{Path: "create", Name: "UserCreate", Meta: Meta{Title: "New User"}},
					},
				},
				{
					Path: "statistics", Name: "Statistics", Redirect: "/statistics/overview",
					Meta: Meta{Title: "Statistics", Roles: staffOnly},
					Children: []Route{
						{Path: "overview", Name: "StatisticsOverview", Meta: Meta{Title: "Overview"}},
						{Path: "reservation", Name: "StatisticsReservation", Meta: Meta{Title: "Reservation Statistics"}},
						{Path: "equipment", Name: "StatisticsEquipment", Meta: Meta{Title: "Equipment Statistics"}},
					},
				},
				{Path: "profile", Name: "Profile", Meta: Meta{Title: "Profile"}},
				{Path: "settings", Name: "Settings", Meta: Meta{Title: "Settings", Roles: adminOnly}},
			},
		},
		{Path: "*", Name: "NotFound", Meta: Meta{Title: "Page Not Found"}},
	}
}
