package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nidhal-dev/authfront/internal/app"
	"github.com/nidhal-dev/authfront/internal/client"
	"github.com/nidhal-dev/authfront/internal/router"
	"github.com/nidhal-dev/authfront/internal/session"
)

// NewSignupCmd creates the signup command
func NewSignupCmd(env *Env) *cobra.Command {
	var req client.RegisterRequest
	var role string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Email == "" || req.FirstName == "" || req.LastName == "" {
				return fmt.Errorf("--email, --first-name and --last-name are required")
			}
			if role != "" {
				r, err := session.ParseRole(role)
				if err != nil {
					return err
				}
				req.Role = string(r)
			}

			ctx := cmd.Context()
			return env.withApp(ctx, func(a *app.App) error {
				if err := enter(ctx, a, router.RouteSignup); err != nil {
					return err
				}

				var err error
				if req.Password, err = env.resolvePassword(req.Password, "AUTHFRONT_PASSWORD", "Password"); err != nil {
					return err
				}
				if req.ConfirmPassword == "" {
					if req.ConfirmPassword, err = env.Password("Confirm password"); err != nil {
						return err
					}
				}

				msg, err := a.Client.Register(ctx, req)
				if err != nil {
					return fmt.Errorf("signup failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ %s\nCheck your inbox for the activation link.\n", msg)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&req.FirstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&req.LastName, "last-name", "", "Last name")
	cmd.Flags().StringVar(&req.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&req.Password, "password", "", "Password (or set AUTHFRONT_PASSWORD, will prompt if not provided)")
	cmd.Flags().StringVar(&req.ConfirmPassword, "confirm-password", "", "Password confirmation (will prompt if not provided)")
	cmd.Flags().StringVar(&role, "role", "", "Requested role (user or admin)")

	return cmd
}

// NewActivateCmd creates the activate command
func NewActivateCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "activate <token>",
		Short: "Activate an account from the token in its activation link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return env.withApp(ctx, func(a *app.App) error {
				if err := a.Client.EnableUser(ctx, args[0]); err != nil {
					return fmt.Errorf("activation failed: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "✓ Account activated. Run 'authfront login' to log in.")
				return nil
			})
		},
	}
}

// NewForgotPasswordCmd creates the forgot-password command
func NewForgotPasswordCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "forgot-password <email>",
		Short: "Request a password reset link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return env.withApp(ctx, func(a *app.App) error {
				if err := enter(ctx, a, router.RouteForgottenPassword); err != nil {
					return err
				}
				msg, err := a.Client.ForgotPassword(ctx, args[0])
				if err != nil {
					return fmt.Errorf("password reset request failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ %s\n", msg)
				return nil
			})
		},
	}
}

// NewResetPasswordCmd creates the reset-password command
func NewResetPasswordCmd(env *Env) *cobra.Command {
	var token, password, confirm string

	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password from a reset link token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				return fmt.Errorf("--token is required")
			}

			ctx := cmd.Context()
			return env.withApp(ctx, func(a *app.App) error {
				if err := enter(ctx, a, router.RouteResetPassword); err != nil {
					return err
				}

				var err error
				if password, err = env.resolvePassword(password, "AUTHFRONT_PASSWORD", "New password"); err != nil {
					return err
				}
				if confirm == "" {
					if confirm, err = env.Password("Confirm new password"); err != nil {
						return err
					}
				}

				msg, err := a.Client.ResetPassword(ctx, token, password, confirm)
				if err != nil {
					return fmt.Errorf("password reset failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ %s\n", msg)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Token from the reset link")
	cmd.Flags().StringVar(&password, "password", "", "New password (or set AUTHFRONT_PASSWORD, will prompt if not provided)")
	cmd.Flags().StringVar(&confirm, "confirm-password", "", "New password confirmation (will prompt if not provided)")

	return cmd
}
