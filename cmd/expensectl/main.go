// Command expensectl is a terminal front end for the expense tracker API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/google/subcommands"

	"github.com/expensetrack/expensetrack/internal/client"
	"github.com/expensetrack/expensetrack/internal/config"
	"github.com/expensetrack/expensetrack/internal/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	top := flag.NewFlagSet(path.Base(os.Args[0]), flag.ContinueOnError)
	top.SetOutput(stderr)
	verbose := top.Bool("v", false, "log client activity to stderr")

	commander := subcommands.NewCommander(top, "expensectl")
	commander.Output = stdout
	commander.Error = stderr
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	for _, c := range commands {
		commander.Register(c.cmd, c.group)
	}

	if err := top.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return int(subcommands.ExitSuccess)
		}
		return int(subcommands.ExitUsageError)
	}

	cfg, err := config.LoadCLI()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return int(subcommands.ExitFailure)
	}

	a, err := newApp(cfg, stdin, stdout, stderr, *verbose)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return int(subcommands.ExitFailure)
	}

	return int(commander.Execute(ctx, a))
}

// app is the per-run wiring shared by every subcommand.
type app struct {
	client  *client.Client
	session *session.Session
	store   *client.FileStore
	logger  *slog.Logger

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func newApp(cfg *config.CLIConfig, stdin io.Reader, stdout, stderr io.Writer, verbose bool) (*app, error) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	store, err := client.OpenFileStore(cfg.CredentialsPath, cfg.AccessTTL, cfg.RefreshTTL)
	if err != nil {
		return nil, err
	}

	a := &app{store: store, logger: logger, stdin: stdin, stdout: stdout, stderr: stderr}
	a.client = client.New(cfg.APIURL, store,
		client.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		client.WithLogger(logger),
		client.WithSessionExpiredHandler(func(err error) { a.session.Expire(err) }),
	)
	a.session = session.New(a.client, store, logger)
	return a, nil
}

// enter restores the session and applies the route guard for a command.
// It returns false when the command must not run.
func (a *app) enter(ctx context.Context, route session.RouteKind) bool {
	if err := a.session.Restore(ctx); err != nil {
		a.logger.Debug("restore failed", "error", err)
	}

	snap := a.session.Snapshot()
	switch decision := session.Guard(snap, route); decision {
	case session.Render:
		return true
	case session.RedirectLogin:
		if snap.Expired {
			fmt.Fprintf(a.stderr, "Session expired, please log in again (%s).\n", decision.Location(snap))
		} else {
			fmt.Fprintln(a.stderr, "Not signed in. Run `expensectl login` first.")
		}
	case session.RedirectHome:
		fmt.Fprintf(a.stderr, "Already signed in as %s. Run `expensectl logout` first.\n", snap.User.Username)
	default:
		fmt.Fprintln(a.stderr, "Session is still loading, try again.")
	}
	return false
}

// fail reports err and, when the session ended underneath the command, tells
// the user to log in again.
func (a *app) fail(err error) subcommands.ExitStatus {
	if snap := a.session.Snapshot(); snap.Expired {
		fmt.Fprintf(a.stderr, "Session expired, please log in again (%s).\n", client.LoginPath(true))
		return subcommands.ExitFailure
	}
	fmt.Fprintf(a.stderr, "Error: %s\n", describe(err))
	return subcommands.ExitFailure
}

// describe renders an error the way a user should read it.
func describe(err error) string {
	var apiErr *client.APIError
	var transportErr *client.TransportError
	switch {
	case errors.As(err, &apiErr):
		switch apiErr.Kind() {
		case client.KindValidation, client.KindConflict:
			return apiErr.Message
		case client.KindAuthorization:
			if client.IsForbidden(apiErr) {
				return "not allowed: " + apiErr.Message
			}
			return apiErr.Message
		case client.KindNotFound:
			return "not found"
		default:
			return "the server failed to handle the request"
		}
	case errors.As(err, &transportErr):
		return "cannot reach the server"
	default:
		return err.Error()
	}
}

// appFrom pulls the app out of the arguments handed to Execute.
func appFrom(args []interface{}) *app {
	return args[0].(*app)
}
