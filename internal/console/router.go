package console

import (
	"context"
	"fmt"
	"sync"

	"github.com/aussiebroadwan/labdesk/pkg/slogx"
)

// maxRedirects bounds one navigation's redirect chain.
const maxRedirects = 10

// Screen renders a committed route.
type Screen func(ctx context.Context, m Match) error

// Router resolves paths, runs the guard and renders screens. Navigations are
// serialised; Replace may be called from any goroutine.
type Router struct {
	table   *Table
	guard   *Guard
	screens map[string]Screen

	navMu   sync.Mutex // Held for a whole navigation
	mu      sync.Mutex // Guards current and history
	current string
	history []string
}

// NewRouter creates a router over table. Routes without a screen commit
// without rendering anything.
func NewRouter(table *Table, guard *Guard, screens map[string]Screen) *Router {
	return &Router{
		table:   table,
		guard:   guard,
		screens: screens,
	}
}

// Table returns the route table.
func (r *Router) Table() *Table {
	return r.table
}

// Current returns the committed route path, or "" before the first
// navigation.
func (r *Router) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Navigate moves to path, recording the current route so Back can return.
// It returns the path finally committed.
func (r *Router) Navigate(ctx context.Context, path string) (string, error) {
	return r.navigate(ctx, path, true)
}

// Replace moves to path without recording history. It implements
// labsdk.Navigator.
func (r *Router) Replace(ctx context.Context, path string) error {
	_, err := r.navigate(ctx, path, false)
	return err
}

// Back returns to the previous route, if any.
func (r *Router) Back(ctx context.Context) (string, error) {
	r.mu.Lock()
	if len(r.history) == 0 {
		r.mu.Unlock()
		return r.Current(), nil
	}
	prev := r.history[len(r.history)-1]
	r.history = r.history[:len(r.history)-1]
	r.mu.Unlock()

	return r.navigate(ctx, prev, false)
}

func (r *Router) navigate(ctx context.Context, path string, push bool) (string, error) {
	r.navMu.Lock()
	defer r.navMu.Unlock()

	from := r.Current()
	target := path

	for hop := 0; ; hop++ {
		if hop > maxRedirects {
			return "", fmt.Errorf("navigate to %s: %w", path, ErrRedirectLoop)
		}

		m := r.table.Resolve(target)
		if m.Redirect != "" {
			target = m.Redirect
			continue
		}

		if d := r.guard.Check(ctx, from, m); !d.Allowed() {
			target = d.Redirect
			continue
		}

		r.commit(m.Path, push)
		slogx.FromContext(ctx).Debug("navigated", "from", from, "to", m.Path, "route", m.Name)

		screen, ok := r.screens[m.Name]
		if !ok {
			return m.Path, nil
		}
		return m.Path, screen(ctx, m)
	}
}

func (r *Router) commit(path string, push bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if push && r.current != "" && r.current != path {
		r.history = append(r.history, r.current)
	}
	r.current = path
}
