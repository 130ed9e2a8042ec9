// Package session persists the token pair, the cached user profile, and the
// auth state string as four key-value entries scoped to the app. It holds no
// business logic: invariants between the keys belong to the auth controller,
// never to storage.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/peterbourgon/diskv/v3"
)

// The four session keys, plus the deep-link handoff entry written by the
// short-lived custom-scheme handler invocation and consumed by the running
// app's watcher.
const (
	KeyAccessToken  = "access-token"
	KeyRefreshToken = "refresh-token"
	KeyUser         = "user"
	KeyAuthState    = "auth-state"
	KeyDeepLink     = "deeplink"
)

// ErrNotFound is returned by Get for an absent key.
var ErrNotFound = errors.New("session: key not found")

// Store is the persistence contract for session state.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
	Clear() error
	Watch(ctx context.Context) (<-chan Event, error)
}

// Load creates a Store backed by diskv using the provided config.
func Load(cfg Config) (Store, error) {
	if cfg == nil {
		var err error
		cfg, err = LoadConfig()
		if err != nil {
			return nil, err
		}
	}

	basePath := cfg.BasePath()
	return &store{d: diskv.New(diskv.Options{
		BasePath:     basePath,
		Transform:    func(string) []string { return nil },
		CacheSizeMax: 64 * 1024,
	}), basePath: basePath}, nil
}

type store struct {
	d        *diskv.Diskv
	basePath string
}

func (s *store) Get(key string) (string, error) {
	val, err := s.d.Read(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("session: read %s: %w", key, err)
	}
	return string(val), nil
}

func (s *store) Set(key, value string) error {
	if key == "" {
		return errors.New("session: key required")
	}
	if err := s.d.Write(key, []byte(value)); err != nil {
		return fmt.Errorf("session: write %s: %w", key, err)
	}
	return nil
}

func (s *store) Delete(key string) error {
	if !s.d.Has(key) {
		return nil
	}
	if err := s.d.Erase(key); err != nil {
		return fmt.Errorf("session: erase %s: %w", key, err)
	}
	return nil
}

// Clear removes the four session keys. The deep-link handoff entry is left
// alone so a completion arriving mid-clear is not lost.
func (s *store) Clear() error {
	for _, key := range []string{KeyAccessToken, KeyRefreshToken, KeyUser, KeyAuthState} {
		if err := s.Delete(key); err != nil {
			return err
		}
	}
	return nil
}
