package commands

import (
	"context"

	"github.com/spf13/cobra"

	"tableflip.dev/perch/pkg/app"
	"tableflip.dev/perch/pkg/commands/options"
	"tableflip.dev/perch/pkg/runner/login"
)

func addLogin(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "sign in through the browser",
		Example: `
perch login
`,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx := context.Background()
			svc, err := app.Setup(ctx)
			if err != nil {
				return err
			}
			l := login.Login{Service: svc}
			return output.HandleError(l.Do(ctx))
		},
	}
	options.AddOutputArg(cmd, output)

	topLevel.AddCommand(cmd)
}
