// Package login provides the runner that drives a browser login from the
// command line.
package login

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"

	"tableflip.dev/perch/pkg/app"
	"tableflip.dev/perch/pkg/auth"
	"tableflip.dev/perch/pkg/session"
)

// Login opens the browser login page and waits for the deep-link completion
// to come back through the session store.
type Login struct {
	Service *app.Service
	Timeout time.Duration
}

// Do starts a login and blocks until it completes, fails, or times out.
func (l *Login) Do(ctx context.Context) error {
	if l.Service == nil {
		return errors.New("can not login, no service")
	}
	if l.Service.Auth.State() == auth.StateAuthenticated {
		fmt.Println("already signed in")
		return nil
	}
	timeout := l.Timeout
	if timeout == 0 {
		timeout = auth.DefaultLoginTimeout
	}

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	events, err := l.Service.Watch(watchCtx)
	if err != nil {
		return err
	}

	url, err := l.Service.Auth.Login(ctx)
	if err != nil {
		return err
	}
	fmt.Println("complete the login in your browser:")
	_, _ = fmt.Fprintln(color.Output, "  "+color.New(color.Bold).Sprint(url))

	// A completion handed off before the watcher started is picked up here.
	if done, err := l.Service.ReplayDeepLink(ctx); done {
		return l.report(err)
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return errors.New("login timed out")
		case ev, ok := <-events:
			if !ok {
				return errors.New("session watcher stopped")
			}
			if ev.Key != session.KeyDeepLink {
				continue
			}
			done, err := l.Service.ReplayDeepLink(ctx)
			if !done && err == nil {
				continue
			}
			return l.report(err)
		}
	}
}

func (l *Login) report(err error) error {
	if err != nil {
		return err
	}
	name := ""
	if u := l.Service.Auth.User(); u != nil {
		name = u.Name
	}
	fmt.Printf("signed in as %s\n", name)
	return nil
}
