package commands

import (
	"context"

	"github.com/spf13/cobra"

	"tableflip.dev/perch/pkg/app"
	"tableflip.dev/perch/pkg/commands/options"
	"tableflip.dev/perch/pkg/runner/logout"
)

func addLogout(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "sign out and clear the local session",
		Example: `
perch logout
`,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx := context.Background()
			svc, err := app.Setup(ctx)
			if err != nil {
				return err
			}
			l := logout.Logout{Service: svc}
			return output.HandleError(l.Do(ctx))
		},
	}
	options.AddOutputArg(cmd, output)

	topLevel.AddCommand(cmd)
}
