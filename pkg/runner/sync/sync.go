// Package sync provides the runner that kicks backend sync queues.
package sync

import (
	"context"
	"errors"
	"fmt"

	"tableflip.dev/perch/pkg/api"
	"tableflip.dev/perch/pkg/app"
)

// Sync triggers one backend sync cycle.
type Sync struct {
	Kind    api.SyncKind
	Force   bool
	Service *app.Service
}

// Do requests the sync and reports whether it was actually sent.
func (n *Sync) Do(ctx context.Context) error {
	if n.Service == nil {
		return errors.New("can not sync, no service")
	}
	sent, err := n.Service.TriggerSync(ctx, n.Kind, n.Force)
	if err != nil {
		return err
	}
	if !sent {
		fmt.Printf("%s sync skipped (cooldown)\n", n.Kind)
		return nil
	}
	fmt.Printf("%s sync triggered\n", n.Kind)
	return nil
}
