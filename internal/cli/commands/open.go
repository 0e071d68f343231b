package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nidhal-dev/authfront/internal/app"
	"github.com/nidhal-dev/authfront/internal/router"
)

// NewOpenCmd creates the open command, which runs a navigation through the
// route guards and reports where it lands
func NewOpenCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "open [route]",
		Short: "Navigate to a page by name or path",
		Long: `Navigate to a page by name (admin) or path (/user?tab=1).

Without an argument, pick the page from a list.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return env.withApp(ctx, func(a *app.App) error {
				target := ""
				if len(args) == 1 {
					target = args[0]
				} else {
					name, err := env.SelectRoute(a)
					if err != nil {
						return err
					}
					target = name
				}

				to, err := router.ParseLocation(target)
				if err != nil {
					return fmt.Errorf("invalid location %q: %w", target, err)
				}

				got, err := a.Router.Push(ctx, to)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if requested, _, err := a.Router.Match(to); err == nil && requested.Name != got.Name {
					fmt.Fprintf(out, "%s → redirected to %s (%s)\n", requested.Name, got.Name, got)
					return nil
				}
				fmt.Fprintf(out, "%s (%s)\n", got.Name, got)
				return nil
			})
		},
	}
}
