package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/aussiebroadwan/labdesk/internal/console"
	"github.com/aussiebroadwan/labdesk/pkg/labsdk"
	"github.com/aussiebroadwan/labdesk/pkg/slogx"
)

// errQuit ends the command loop.
var errQuit = errors.New("quit")

// errUsage marks a malformed command line.
var errUsage = errors.New("usage")

type command struct {
	usage string
	help  string
	run   func(ctx context.Context, args []string) error
}

func (a *Application) initCommands() {
	a.commands = map[string]command{
		"help":     {"help", "list commands", a.cmdHelp},
		"quit":     {"quit", "leave the console", a.cmdQuit},
		"exit":     {"exit", "leave the console", a.cmdQuit},
		"login":    {"login <username> <password>", "log in", a.cmdLogin},
		"logout":   {"logout", "log out and forget the saved session", a.cmdLogout},
		"register": {"register <username> <password> <name> [email]", "create an account", a.cmdRegister},
		"whoami":   {"whoami", "show the logged-in user", a.cmdWhoami},
		"passwd":   {"passwd <old> <new>", "change your password", a.cmdPasswd},
		"go":       {"go <path>", "open a screen", a.cmdGo},
		"back":     {"back", "return to the previous screen", a.cmdBack},
		"refresh":  {"refresh", "render the current screen again", a.cmdRefresh},
		"routes":   {"routes", "list the screens you can open", a.cmdRoutes},
		"approve":  {"approve <reservation-id>", "approve a pending reservation", a.cmdApprove},
		"reject":   {"reject <reservation-id>", "reject a pending reservation", a.cmdReject},
		"export":   {"export [file]", "save consumable usage as CSV", a.cmdExport},
	}
}

// exec runs one command line.
func (a *Application) exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	name, args := strings.ToLower(fields[0]), fields[1:]

	cmd, ok := a.commands[name]
	if !ok {
		return fmt.Errorf("unknown command %q, try help", name)
	}

	err := cmd.run(slogx.With(ctx, "cmd", name), args)
	if errors.Is(err, errUsage) {
		return fmt.Errorf("usage: %s", cmd.usage)
	}
	return err
}

func (a *Application) out() *tabwriter.Writer {
	return tabwriter.NewWriter(a.ui.Writer(), 0, 4, 2, ' ', 0)
}

func (a *Application) cmdHelp(context.Context, []string) error {
	names := make([]string, 0, len(a.commands))
	for name := range a.commands {
		names = append(names, name)
	}
	slices.Sort(names)

	tw := a.out()
	for _, name := range names {
		fmt.Fprintf(tw, "%s\t%s\n", a.commands[name].usage, a.commands[name].help)
	}
	return tw.Flush()
}

func (a *Application) cmdQuit(context.Context, []string) error {
	return errQuit
}

// ============================================================================
// Account
// ============================================================================

func (a *Application) cmdLogin(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	if _, err := a.session.Login(ctx, labsdk.Credentials{Username: args[0], Password: args[1]}); err != nil {
		return err
	}
	_, err := a.router.Navigate(ctx, console.RouteHome)
	return err
}

func (a *Application) cmdLogout(ctx context.Context, _ []string) error {
	a.session.Logout(ctx)
	_, err := a.router.Navigate(ctx, console.RouteLogin)
	return err
}

func (a *Application) cmdRegister(ctx context.Context, args []string) error {
	if len(args) < 3 || len(args) > 4 {
		return errUsage
	}
	req := labsdk.RegisterRequest{Username: args[0], Password: args[1], Name: args[2]}
	if len(args) == 4 {
		req.Email = args[3]
	}

	if _, err := a.session.Register(ctx, req); err != nil {
		return err
	}
	a.ui.Success("account created, you can log in now")
	return nil
}

func (a *Application) cmdWhoami(ctx context.Context, _ []string) error {
	if !a.session.IsAuthenticated() {
		return errors.New("not logged in")
	}

	p := a.session.Profile()
	if p == nil {
		var err error
		if p, err = a.session.GetUserInfo(ctx); err != nil {
			return err
		}
	}

	tw := a.out()
	fmt.Fprintf(tw, "username\t%s\n", p.Username)
	fmt.Fprintf(tw, "name\t%s\n", p.Name)
	fmt.Fprintf(tw, "role\t%s\n", p.Role)
	fmt.Fprintf(tw, "permissions\t%s\n", strings.Join(a.session.GetUserPermissions(), ", "))
	return tw.Flush()
}

func (a *Application) cmdPasswd(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	err := a.session.ChangePassword(ctx, labsdk.ChangePasswordRequest{OldPassword: args[0], NewPassword: args[1]})
	if err != nil {
		return err
	}
	a.ui.Success("password changed")
	return nil
}

// ============================================================================
// Navigation
// ============================================================================

func (a *Application) cmdGo(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	_, err := a.router.Navigate(ctx, args[0])
	return err
}

func (a *Application) cmdBack(ctx context.Context, _ []string) error {
	_, err := a.router.Back(ctx)
	return err
}

func (a *Application) cmdRefresh(ctx context.Context, _ []string) error {
	current := a.router.Current()
	if current == "" {
		current = console.RouteHome
	}
	return a.router.Replace(ctx, current)
}

// cmdRoutes lists the screens the current user may open.
func (a *Application) cmdRoutes(context.Context, []string) error {
	table := a.router.Table()
	authenticated := a.session.IsAuthenticated()
	role := a.session.Role()

	tw := a.out()
	for _, pattern := range table.Patterns() {
		m, _ := table.Lookup(pattern)
		if m.RequiresAuth() && !authenticated {
			continue
		}
		if len(m.Meta.Roles) > 0 && !slices.Contains(m.Meta.Roles, role) {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\n", pattern, m.Meta.Title)
	}
	return tw.Flush()
}

// ============================================================================
// Actions
// ============================================================================

func parseID(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, errUsage
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", args[0])
	}
	return id, nil
}

func (a *Application) cmdApprove(ctx context.Context, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	if err := a.client.Reservations().Approve(ctx, id); err != nil {
		return err
	}
	a.ui.Success(fmt.Sprintf("reservation %d approved", id))
	return nil
}

func (a *Application) cmdReject(ctx context.Context, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	if err := a.client.Reservations().Reject(ctx, id); err != nil {
		return err
	}
	a.ui.Success(fmt.Sprintf("reservation %d rejected", id))
	return nil
}

// cmdExport saves the usage report. Without a file argument it uses the
// name the backend suggests.
func (a *Application) cmdExport(ctx context.Context, args []string) error {
	if len(args) > 1 {
		return errUsage
	}

	var buf bytes.Buffer
	suggested, err := a.client.Consumables().ExportUsage(ctx, &buf)
	if err != nil {
		return err
	}

	target := "consumable_usage.csv"
	switch {
	case len(args) == 1:
		target = args[0]
	case suggested != "":
		target = filepath.Base(suggested)
	}
	if err := os.WriteFile(target, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("save export file: %w", err)
	}

	a.ui.Success("usage exported to " + target)
	return nil
}
