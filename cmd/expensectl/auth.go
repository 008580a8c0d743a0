package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/subcommands"
	"golang.org/x/term"

	"github.com/expensetrack/expensetrack/internal/handler/dto"
	"github.com/expensetrack/expensetrack/internal/session"
)

type registerCmd struct {
	username string
	email    string
	password string
}

func (*registerCmd) Name() string     { return "register" }
func (*registerCmd) Synopsis() string { return "create an account and sign in" }
func (*registerCmd) Usage() string {
	return `expensectl register -username <name> -email <email> [-password <password>]

  Creates an account. The password is prompted for when omitted.
`
}

func (c *registerCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.username, "username", "", "Display name (at least 3 characters).")
	f.StringVar(&c.email, "email", "", "Email address used to sign in.")
	f.StringVar(&c.password, "password", "", "Password (6 to 18 characters). Prompted when omitted.")
}

func (c *registerCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)
	if !a.enter(ctx, session.RouteAuthOnly) {
		return subcommands.ExitFailure
	}

	password, err := a.password(c.password)
	if err != nil {
		return a.fail(err)
	}

	resp, err := a.client.Register(ctx, dto.RegisterRequest{Username: c.username, Email: c.email, Password: password})
	if err != nil {
		return a.fail(err)
	}
	if err := a.session.Login(resp.Tokens(), resp.User); err != nil {
		return a.fail(err)
	}

	fmt.Fprintf(a.stdout, "Welcome, %s.\n", resp.User.Username)
	return subcommands.ExitSuccess
}

type loginCmd struct {
	email    string
	password string
}

func (*loginCmd) Name() string     { return "login" }
func (*loginCmd) Synopsis() string { return "sign in" }
func (*loginCmd) Usage() string {
	return `expensectl login -email <email> [-password <password>]

  Signs in and stores the token pair in the credentials file.
`
}

func (c *loginCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.email, "email", "", "Email address.")
	f.StringVar(&c.password, "password", "", "Password. Prompted when omitted.")
}

func (c *loginCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)
	if !a.enter(ctx, session.RouteAuthOnly) {
		return subcommands.ExitFailure
	}
	if c.email == "" {
		fmt.Fprintln(a.stderr, "Error: -email is required")
		return subcommands.ExitUsageError
	}

	password, err := a.password(c.password)
	if err != nil {
		return a.fail(err)
	}

	resp, err := a.client.Login(ctx, c.email, password)
	if err != nil {
		return a.fail(err)
	}
	if err := a.session.Login(resp.Tokens(), resp.User); err != nil {
		return a.fail(err)
	}

	fmt.Fprintf(a.stdout, "Signed in as %s.\n", resp.User.Username)
	return subcommands.ExitSuccess
}

type logoutCmd struct{}

func (*logoutCmd) Name() string             { return "logout" }
func (*logoutCmd) Synopsis() string         { return "sign out and forget stored tokens" }
func (*logoutCmd) Usage() string            { return "expensectl logout\n" }
func (*logoutCmd) SetFlags(_ *flag.FlagSet) {}

func (*logoutCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)
	if err := a.session.Logout(ctx); err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Fprintln(a.stdout, "Signed out.")
	return subcommands.ExitSuccess
}

type whoamiCmd struct{}

func (*whoamiCmd) Name() string             { return "whoami" }
func (*whoamiCmd) Synopsis() string         { return "show the signed-in user" }
func (*whoamiCmd) Usage() string            { return "expensectl whoami\n" }
func (*whoamiCmd) SetFlags(_ *flag.FlagSet) {}

func (*whoamiCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)
	if !a.enter(ctx, session.RouteProtected) {
		return subcommands.ExitFailure
	}
	user := a.session.Snapshot().User
	fmt.Fprintf(a.stdout, "%s <%s>\n", user.Username, user.Email)
	return subcommands.ExitSuccess
}

type profileCmd struct {
	username string
	email    string
}

func (*profileCmd) Name() string     { return "profile" }
func (*profileCmd) Synopsis() string { return "change username or email" }
func (*profileCmd) Usage() string {
	return `expensectl profile [-username <name>] [-email <email>]

  Omitted fields keep their current value.
`
}

func (c *profileCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.username, "username", "", "New username.")
	f.StringVar(&c.email, "email", "", "New email address.")
}

func (c *profileCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)
	if !a.enter(ctx, session.RouteProtected) {
		return subcommands.ExitFailure
	}

	current := a.session.Snapshot().User
	req := dto.UpdateProfileRequest{Username: current.Username, Email: current.Email}
	if c.username != "" {
		req.Username = c.username
	}
	if c.email != "" {
		req.Email = c.email
	}

	user, err := a.client.UpdateProfile(ctx, req)
	if err != nil {
		return a.fail(err)
	}
	fmt.Fprintf(a.stdout, "Profile updated: %s <%s>\n", user.Username, user.Email)
	return subcommands.ExitSuccess
}

// password returns the flag value or prompts for one.
func (a *app) password(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}

	fmt.Fprint(a.stderr, "Password: ")
	password, err := readPassword(a.stdin)
	fmt.Fprintln(a.stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if strings.TrimSpace(password) == "" {
		return "", errors.New("password cannot be empty")
	}
	return password, nil
}

func readPassword(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	// Pipes and tests.
	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
