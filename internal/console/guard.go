package console

import (
	"context"
	"slices"

	"github.com/aussiebroadwan/labdesk/pkg/labsdk"
	"github.com/aussiebroadwan/labdesk/pkg/slogx"
)

const msgPageForbidden = "you do not have permission to access this page"

// TitleSetter shows the title of the screen being entered.
type TitleSetter interface {
	SetTitle(title string)
}

// Decision is the guard's verdict on one navigation.
type Decision struct {
	// Redirect, when set, replaces the navigation target.
	Redirect string
}

// Allowed reports whether the navigation may commit as requested.
func (d Decision) Allowed() bool {
	return d.Redirect == ""
}

// Guard gates every navigation on the session's state.
type Guard struct {
	Session  *labsdk.Session
	Notifier labsdk.Notifier
	Progress labsdk.Progress
	Titles   TitleSetter
}

// Check decides whether navigating from one route to another may proceed.
func (g *Guard) Check(ctx context.Context, from string, to Match) Decision {
	if g.Progress != nil {
		g.Progress.Start()
		defer g.Progress.Done()
	}
	log := slogx.FromContext(ctx).With("from", from, "to", to.Path)

	// The verdict uses the authentication state from before the profile
	// fetch, even if that fetch fails and logs the session out.
	authenticated := g.Session.IsAuthenticated()
	if authenticated && !g.Session.HasProfile() {
		if _, err := g.Session.GetUserInfo(ctx); err != nil {
			log.Debug("profile fetch during navigation failed", "err", err)
		}
	}
	role := g.Session.Role()

	if title := to.Title(); title != "" && g.Titles != nil {
		g.Titles.SetTitle(title)
	}

	if to.RequiresAuth() && !authenticated {
		log.Debug("navigation requires login")
		return Decision{Redirect: RouteLogin}
	}

	if authenticated && (to.Path == RouteLogin || to.Path == RouteRegister) {
		return Decision{Redirect: RouteHome}
	}

	if len(to.Meta.Roles) > 0 && !slices.Contains(to.Meta.Roles, role) {
		log.Info("navigation denied", "role", role, "allowed", to.Meta.Roles)
		if g.Notifier != nil {
			g.Notifier.Error(msgPageForbidden)
		}
		return Decision{Redirect: RouteHome}
	}

	return Decision{}
}
