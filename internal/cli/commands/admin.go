package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nidhal-dev/authfront/internal/app"
	"github.com/nidhal-dev/authfront/internal/client"
	"github.com/nidhal-dev/authfront/internal/router"
)

// NewAdminCmd creates the admin command group. Every subcommand first
// navigates to the admin page, so the admin guard decides who may run it.
func NewAdminCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage user accounts (admins only)",
	}

	list := func(use, short string, fetch func(c *client.Client, ctx context.Context) ([]client.User, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return env.asAdmin(cmd, func(ctx context.Context, a *app.App) error {
					users, err := fetch(a.Client, ctx)
					if err != nil {
						return err
					}
					printUsers(cmd.OutOrStdout(), users)
					return nil
				})
			},
		}
	}

	action := func(use, short string, run func(c *client.Client, ctx context.Context, email string) (string, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <email>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return env.asAdmin(cmd, func(ctx context.Context, a *app.App) error {
					msg, err := run(a.Client, ctx, args[0])
					if err != nil {
						return err
					}
					if msg == "" {
						msg = "done"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "✓ %s\n", msg)
					return nil
				})
			},
		}
	}

	cmd.AddCommand(
		list("users", "List all accounts", (*client.Client).ListUsers),
		list("locked", "List locked accounts", (*client.Client).ListLockedUsers),
		list("unlocked", "List unlocked accounts", (*client.Client).ListUnlockedUsers),
		action("lock", "Lock an account", (*client.Client).LockUser),
		action("unlock", "Unlock an account", (*client.Client).UnlockUser),
		action("delete", "Delete an account", (*client.Client).DeleteUser),
	)

	return cmd
}

func (e *Env) asAdmin(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	return e.withApp(ctx, func(a *app.App) error {
		if err := enter(ctx, a, router.RouteAdmin); err != nil {
			return err
		}
		return explain(fn(ctx, a))
	})
}

func printUsers(out io.Writer, users []client.User) {
	if len(users) == 0 {
		fmt.Fprintln(out, "No users found.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "EMAIL\tNAME\tROLE\tENABLED\tLOCKED")
	fmt.Fprintln(w, "─────\t────\t────\t───────\t──────")

	for _, u := range users {
		fmt.Fprintf(w, "%s\t%s %s\t%s\t%s\t%s\n",
			u.Email, u.FirstName, u.LastName, u.Role, yesNo(u.Enabled), yesNo(!u.AccountNonLocked))
	}
	w.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
