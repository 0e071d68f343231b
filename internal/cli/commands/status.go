package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nidhal-dev/authfront/internal/app"
	"github.com/nidhal-dev/authfront/internal/auth"
)

// NewStatusCmd creates the status command
func NewStatusCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return env.withApp(ctx, func(a *app.App) error {
				out := cmd.OutOrStdout()
				s := a.Sessions.Snapshot()

				fmt.Fprintf(out, "API:     %s\n", a.Client.BaseURL())
				fmt.Fprintf(out, "Session: %s\n", s)

				pair, err := a.Tokens.Pair(ctx)
				if err != nil {
					return err
				}
				if pair.AccessToken == "" {
					fmt.Fprintln(out, "Access token: none")
				} else {
					fmt.Fprintf(out, "Access token: %s\n", describeToken(pair.AccessToken, time.Now()))
				}
				if pair.RefreshToken == "" {
					fmt.Fprintln(out, "Refresh token: none")
				} else {
					fmt.Fprintln(out, "Refresh token: stored")
				}
				return nil
			})
		},
	}
}

func describeToken(token string, now time.Time) string {
	claims, err := auth.ParseAccessToken(token)
	if err != nil {
		return "stored (unreadable)"
	}
	left, ok := claims.ExpiresIn(now)
	switch {
	case !ok:
		return "stored"
	case left <= 0:
		return fmt.Sprintf("expired %s ago (refreshed on next request)", (-left).Round(time.Second))
	default:
		return fmt.Sprintf("valid for %s", left.Round(time.Second))
	}
}
