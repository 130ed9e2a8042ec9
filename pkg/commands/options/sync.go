package options

import (
	"github.com/spf13/cobra"
)

// SyncOptions captures the sync trigger flags.
type SyncOptions struct {
	Scores bool
	Force  bool
}

func AddSyncArgs(cmd *cobra.Command, o *SyncOptions) {
	cmd.Flags().BoolVar(&o.Scores, "scores", false,
		Wrap80("Recalculate priority scores instead of re-ingesting sources."))
	cmd.Flags().BoolVar(&o.Force, "force", false,
		"Bypass the sync cooldown.")
}
