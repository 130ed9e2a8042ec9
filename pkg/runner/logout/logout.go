// Package logout provides the runner that ends the current session.
package logout

import (
	"context"
	"errors"
	"fmt"

	"tableflip.dev/perch/pkg/app"
)

// Logout revokes the session remotely and clears local state.
type Logout struct {
	Service *app.Service
}

// Do executes the logout. Local state is cleared even when the remote call
// fails.
func (l *Logout) Do(ctx context.Context) error {
	if l.Service == nil {
		return errors.New("can not logout, no service")
	}
	l.Service.Auth.Logout(ctx)
	fmt.Println("signed out")
	return nil
}
