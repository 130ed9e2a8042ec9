package commands

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"tableflip.dev/perch/pkg/runner/handleurl"
	"tableflip.dev/perch/pkg/session"
)

// addHandleURL registers the hidden command the OS custom-scheme handler
// invokes with the deep-link URL.
func addHandleURL(topLevel *cobra.Command) {
	raw := ""

	cmd := &cobra.Command{
		Use:    "handle-url",
		Hidden: true,
		Short:  "handle a perch:// deep link",
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("requires the deep-link url")
			}
			raw = args[0]

			return nil
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := session.LoadConfig()
			if err != nil {
				return err
			}
			store, err := session.Load(cfg)
			if err != nil {
				return err
			}
			h := handleurl.HandleURL{Raw: raw, Store: store}
			return h.Do(context.Background())
		},
	}

	topLevel.AddCommand(cmd)
}
