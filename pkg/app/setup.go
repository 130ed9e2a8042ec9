package app

import (
	"context"
	"fmt"

	"tableflip.dev/perch/pkg/api"
	"tableflip.dev/perch/pkg/auth"
	"tableflip.dev/perch/pkg/session"
	"tableflip.dev/perch/pkg/sleep"
)

// Setup builds the full service from config: session store, remote client,
// auth controller, and sync trigger. The persisted session is re-verified
// before the service is returned.
func Setup(ctx context.Context) (*Service, error) {
	cfg, err := session.LoadConfig()
	if err != nil {
		return nil, err
	}
	store, err := session.Load(cfg)
	if err != nil {
		return nil, err
	}

	client := api.New(cfg.ServerURL())
	ctrl := auth.New(store, client, cfg.LoginURL())
	client.SetTokenSource(ctrl)

	if err := ctrl.Init(ctx); err != nil {
		return nil, fmt.Errorf("app: restore session: %w", err)
	}

	return &Service{
		Auth:   ctrl,
		Remote: client,
		Sync:   api.NewSyncTrigger(client),
		Store:  store,
		Sleep:  sleep.NewTimer(),
	}, nil
}
