package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aussiebroadwan/labdesk/internal/console"
	"github.com/aussiebroadwan/labdesk/internal/term"
	"github.com/aussiebroadwan/labdesk/pkg/httpx"
	"github.com/aussiebroadwan/labdesk/pkg/labsdk"
	"github.com/aussiebroadwan/labdesk/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application is the console client with all its dependencies.
type Application struct {
	cfg     Config
	logger  *slog.Logger
	logFile io.Closer

	ui      *term.UI
	client  *labsdk.Client
	session *labsdk.Session
	router  *console.Router

	commands map[string]command
}

// streams are the application's terminal and log destinations.
type streams struct {
	in  io.Reader
	out io.Writer
	log io.Writer
}

// New creates an Application on the process's stdin and stdout.
func New(cfg Config) (*Application, error) {
	s := streams{in: os.Stdin, out: os.Stdout}

	var logFile *os.File
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		logFile = f
		s.log = f
	}

	app, err := newApplication(cfg, s)
	if err != nil {
		if logFile != nil {
			_ = logFile.Close()
		}
		return nil, err
	}
	if logFile != nil {
		app.logFile = logFile
	}
	return app, nil
}

func newApplication(cfg Config, s streams) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "labdesk",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
			Output:  s.log,
		}),
	}

	app.ui = term.New(s.in, s.out)
	app.ui.Verbose = cfg.Verbose

	app.initClient()

	ctx := slogx.WithContext(context.Background(), app.logger)
	session, err := labsdk.NewSession(ctx, app.client, labsdk.NewFileCookieStore(cfg.CookieFile))
	if err != nil {
		return nil, fmt.Errorf("failed to restore session: %w", err)
	}
	app.session = session

	app.initRouter()
	app.initCommands()

	return app, nil
}

// initClient builds the request pipeline. Outbound requests are stamped with
// a request id, logged, then rate limited per backend host.
func (a *Application) initClient() {
	a.client = labsdk.NewClient(a.cfg.APIURL)
	a.client.HTTPClient = &http.Client{
		Timeout: a.cfg.HTTPTimeout,
		Transport: httpx.Chain(http.DefaultTransport,
			httpx.RequestID(),
			slogx.Transport(a.logger),
			httpx.RateLimit(a.cfg.RateLimit, httpx.HostKeyExtractor),
		),
	}

	a.client.Notifier = a.ui
	a.client.Progress = a.ui
	a.client.Prompter = a.ui
}

func (a *Application) initRouter() {
	screens := &console.Screens{
		Client:   a.client,
		Session:  a.session,
		Out:      a.ui.Writer(),
		PageSize: a.cfg.PageSize,
	}
	guard := &console.Guard{
		Session:  a.session,
		Notifier: a.ui,
		Progress: a.ui,
		Titles:   a.ui,
	}

	a.router = console.NewRouter(console.NewTable(console.DefaultRoutes()), guard, screens.Map())
	a.client.Navigator = a.router
}

// Run starts the console and blocks until the user quits, input ends or the
// process is signalled.
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer a.close()

	return a.run(ctx)
}

func (a *Application) run(ctx context.Context) error {
	ctx = slogx.WithContext(ctx, a.logger)
	a.logger.Info("starting labdesk", "api_url", a.cfg.APIURL, "cookie_file", a.cfg.CookieFile)

	// A saved token the backend no longer accepts starts recovery here,
	// before the command loop competes for input.
	a.session.CheckLoginStatus(ctx)
	if err := a.client.WaitRecovery(ctx); err != nil {
		return nil
	}
	if _, err := a.router.Navigate(ctx, console.RouteHome); err != nil {
		a.report(ctx, err)
	}

	for {
		a.ui.Prompt()
		line, err := a.ui.ReadLine(ctx)
		switch {
		case errors.Is(err, term.ErrClosed), ctx.Err() != nil:
			a.logger.Info("shutting down")
			return nil
		case err != nil:
			return err
		case line == "":
			continue
		}

		err = a.exec(ctx, line)

		// A command that hit an expired session leaves the recovery flow
		// running; it owns the terminal until it finishes.
		if waitErr := a.client.WaitRecovery(ctx); waitErr != nil {
			return nil
		}

		if errors.Is(err, errQuit) {
			a.logger.Info("shutting down")
			return nil
		}
		if err != nil {
			a.report(ctx, err)
		}
	}
}

// report shows a command failure unless the pipeline already did.
func (a *Application) report(ctx context.Context, err error) {
	var apiErr *labsdk.APIError
	if errors.As(err, &apiErr) {
		slogx.FromContext(ctx).Debug("command failed", "err", err)
		return
	}
	a.ui.Error(err.Error())
}

func (a *Application) close() {
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}
