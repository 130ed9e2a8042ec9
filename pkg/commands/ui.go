package commands

import (
	"context"

	"github.com/spf13/cobra"

	"tableflip.dev/perch/pkg/app"
	"tableflip.dev/perch/pkg/runner/ui"
)

func addUI(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "ui",
		Short: "open the floating widget interface",
		Example: `
perch ui
`,
		ValidArgs: []string{},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, err := app.Setup(ctx)
			if err != nil {
				return err
			}
			i := ui.UI{Service: svc}
			return i.Do(ctx)
		},
	}

	topLevel.AddCommand(cmd)
}
