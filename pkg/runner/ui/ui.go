// Package ui provides the runner that opens the widget interface.
package ui

import (
	"context"
	"errors"

	"tableflip.dev/perch/pkg/app"
	teaui "tableflip.dev/perch/pkg/tui/app"
)

// UI opens the anchor/panel interface.
type UI struct {
	Service *app.Service
}

// Do runs the Bubble Tea program until the user quits.
func (u *UI) Do(ctx context.Context) error {
	if u.Service == nil {
		return errors.New("can not open ui, no service")
	}
	return teaui.Run(u.Service)
}
