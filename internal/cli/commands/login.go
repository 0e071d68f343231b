package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nidhal-dev/authfront/internal/app"
	"github.com/nidhal-dev/authfront/internal/router"
)

// NewLoginCmd creates the login command
func NewLoginCmd(env *Env) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.runLogin(cmd, email, password)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set AUTHFRONT_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set AUTHFRONT_PASSWORD, will prompt if not provided)")

	return cmd
}

func (e *Env) runLogin(cmd *cobra.Command, email, password string) error {
	if email == "" {
		email = os.Getenv("AUTHFRONT_EMAIL")
	}
	if email == "" {
		return fmt.Errorf("email is required (use --email flag or AUTHFRONT_EMAIL env var)")
	}

	ctx := cmd.Context()
	return e.withApp(ctx, func(a *app.App) error {
		if err := enter(ctx, a, router.RouteLogin); err != nil {
			return fmt.Errorf("already logged in; run 'authfront logout' first")
		}

		password, err := e.resolvePassword(password, "AUTHFRONT_PASSWORD", "Password")
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Logging in to %s...\n", a.Client.BaseURL())

		landing, err := a.Login(ctx, email, password)
		if err != nil {
			return err
		}

		s := a.Sessions.Snapshot()
		fmt.Fprintln(out, "✓ Login successful!")
		fmt.Fprintf(out, "  User: %s\n", email)
		fmt.Fprintf(out, "  Role: %s\n", s.Role)
		fmt.Fprintf(out, "  Page: %s\n", landing)
		return nil
	})
}

// NewLogoutCmd creates the logout command
func NewLogoutCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session and forget its tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return env.withApp(ctx, func(a *app.App) error {
				if err := a.Logout(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "✓ Logged out")
				return nil
			})
		},
	}
}

