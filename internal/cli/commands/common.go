package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/term"

	"github.com/nidhal-dev/authfront/internal/app"
	"github.com/nidhal-dev/authfront/internal/cli/routeselect"
	"github.com/nidhal-dev/authfront/internal/client"
	"github.com/nidhal-dev/authfront/internal/router"
)

// Env carries the process dependencies commands use. Tests swap them out.
type Env struct {
	// Open builds the client runtime. Commands close it when done.
	Open func(ctx context.Context) (*app.App, error)

	// Password reads a secret for the given label
	Password func(label string) (string, error)

	// SelectRoute asks the user to pick a route name
	SelectRoute func(a *app.App) (string, error)
}

// DefaultEnv returns the production dependencies around open
func DefaultEnv(open func(ctx context.Context) (*app.App, error)) *Env {
	return &Env{
		Open:     open,
		Password: promptPassword,
		SelectRoute: func(a *app.App) (string, error) {
			return routeselect.PromptRoute(a.Router, a.Sessions.Snapshot())
		},
	}
}

// withApp opens the runtime, runs fn and closes it
func (e *Env) withApp(ctx context.Context, fn func(a *app.App) error) error {
	a, err := e.Open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(a)
}

// enter navigates to a route and fails if a guard redirected elsewhere
func enter(ctx context.Context, a *app.App, name string) error {
	loc, err := a.Router.Push(ctx, router.Location{Name: name})
	if err != nil {
		return err
	}
	if loc.Name != name {
		return fmt.Errorf("%s is not available for this session (redirected to %s)", name, loc.Name)
	}
	return nil
}

// explain turns a forced logout into guidance for the user
func explain(err error) error {
	if errors.Is(err, client.ErrSessionExpired) {
		return fmt.Errorf("%w\nRun 'authfront login' to start a new session", client.ErrSessionExpired)
	}
	return err
}

// promptPassword reads a password from the terminal without echo
func promptPassword(label string) (string, error) {
	if !term.IsTerminal(int(syscall.Stdin)) {
		return "", fmt.Errorf("%s is required in non-interactive mode", label)
	}

	fmt.Fprintf(os.Stderr, "%s: ", label)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(bytePassword), nil
}

// resolvePassword returns the flag value, then the env var, then prompts
func (e *Env) resolvePassword(value, envKey, label string) (string, error) {
	if value != "" {
		return value, nil
	}
	if v := os.Getenv(envKey); v != "" {
		return v, nil
	}
	return e.Password(label)
}
