// Package handleurl provides the runner invoked by the OS custom-scheme
// handler. It is a second short-lived process: it parses the deep link and
// hands the completion off through the session store, where the running
// instance's watcher picks it up.
package handleurl

import (
	"context"
	"errors"

	"tableflip.dev/perch/pkg/deeplink"
	"tableflip.dev/perch/pkg/session"
)

// HandleURL writes a deep-link completion into the handoff entry.
type HandleURL struct {
	Raw   string
	Store session.Store
}

// Do parses the URL and persists the handoff entry. A later deep link
// overwrites an unconsumed earlier one.
func (n *HandleURL) Do(ctx context.Context) error {
	if n.Store == nil {
		return errors.New("can not handle url, no store")
	}
	comp, err := deeplink.Parse(n.Raw)
	if err != nil {
		return err
	}
	encoded, err := deeplink.Encode(comp)
	if err != nil {
		return err
	}
	return n.Store.Set(session.KeyDeepLink, encoded)
}
