package commands

import (
	"context"

	"github.com/spf13/cobra"

	"tableflip.dev/perch/pkg/api"
	"tableflip.dev/perch/pkg/app"
	"tableflip.dev/perch/pkg/commands/options"
	syncrunner "tableflip.dev/perch/pkg/runner/sync"
)

func addSync(topLevel *cobra.Command) {
	so := &options.SyncOptions{}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "trigger a backend sync cycle",
		Example: `
perch sync
perch sync --scores --force
`,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx := context.Background()
			svc, err := app.Setup(ctx)
			if err != nil {
				return err
			}
			kind := api.SyncSourceIngestion
			if so.Scores {
				kind = api.SyncRICURecalculation
			}
			s := syncrunner.Sync{Kind: kind, Force: so.Force, Service: svc}
			return output.HandleError(s.Do(ctx))
		},
	}
	options.AddSyncArgs(cmd, so)
	options.AddOutputArg(cmd, output)

	topLevel.AddCommand(cmd)
}
