package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nidhal-dev/authfront/internal/app"
)

// NewRequestCmd creates the request command
func NewRequestCmd(env *Env) *cobra.Command {
	var data, contentType string

	cmd := &cobra.Command{
		Use:   "request <method> <path>",
		Short: "Send an authenticated request to the API",
		Long: `Send a request relative to the API root with the stored access token.
An expired access token is refreshed and the request retried once.`,
		Example: `  authfront request GET home/user
  authfront request POST admin/lock-user/bob@example.com`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return env.withApp(ctx, func(a *app.App) error {
				var body io.Reader
				if data != "" {
					body = strings.NewReader(data)
				}

				resp, err := a.Client.Request(ctx, strings.ToUpper(args[0]), args[1], body, contentType)
				if err != nil {
					return explain(err)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s", resp.Body)
				if len(resp.Body) > 0 && resp.Body[len(resp.Body)-1] != '\n' {
					fmt.Fprintln(out)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&data, "data", "d", "", "Request body")
	cmd.Flags().StringVar(&contentType, "content-type", "application/json", "Content-Type of the request body")

	return cmd
}
