package auth

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/tcide/internal/foundation/errors"
)

// Store keeps the raw token in a file readable only by its owner.
type Store struct {
	path string
}

// NewStore returns a store backed by path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the token file location.
func (s *Store) Path() string { return s.path }

// Save writes token, replacing any stored one.
func (s *Store) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to create token directory").
			WithContext("path", s.path).
			Build()
	}
	if err := os.WriteFile(s.path, []byte(strings.TrimSpace(token)+"\n"), 0o600); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to store token").
			WithContext("path", s.path).
			Build()
	}
	return nil
}

// Load returns the stored token, or "" when none is stored.
func (s *Store) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryFileSystem, "failed to read stored token").
			WithContext("path", s.path).
			Build()
	}
	return strings.TrimSpace(string(data)), nil
}

// Clear removes the stored token.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to remove stored token").
			WithContext("path", s.path).
			Build()
	}
	return nil
}

// Provider hands out a usable token. A token in the environment variable
// wins over the stored one.
type Provider struct {
	store  *Store
	envVar string
	getenv func(string) string
	now    func() time.Time
}

// NewProvider returns a provider reading envVar first, then store.
func NewProvider(store *Store, envVar string) *Provider {
	return &Provider{store: store, envVar: envVar, getenv: os.Getenv, now: time.Now}
}

// ValidToken returns the current token with its decoded identity. Missing,
// undecodable and expired tokens are auth errors.
func (p *Provider) ValidToken(ctx context.Context) (string, Identity, error) {
	if err := ctx.Err(); err != nil {
		return "", Identity{}, err
	}

	token := ""
	if p.envVar != "" {
		token = strings.TrimSpace(p.getenv(p.envVar))
	}
	if token == "" && p.store != nil {
		stored, err := p.store.Load()
		if err != nil {
			return "", Identity{}, err
		}
		token = stored
	}
	if token == "" {
		return "", Identity{}, ErrNotLoggedIn
	}

	id, err := Decode(token)
	if err != nil {
		return "", Identity{}, err
	}
	if id.Expired(p.now()) {
		return "", Identity{}, ErrTokenExpired.WithContext("expired_at", id.ExpiresAt.Format(time.RFC3339))
	}
	return token, id, nil
}
