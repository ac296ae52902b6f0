// Package credstore persists the session token and the cached user profile so
// that a session survives process restarts.
package credstore

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/atinyakov/GophShelf/internal/models"
)

// Keys under which the credentials are persisted. They are stored
// independently so a damaged profile never hides a valid token.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

// Backend is a durable string key/value store.
type Backend interface {
	// Get returns the value stored under key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores all values; it is all-or-nothing where the backend allows it.
	Set(ctx context.Context, values map[string]string) error
	// Delete removes the keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
}

// Store is the credential store used by the session controller. Failures of
// the backend never escape Load and Clear: they are logged and degrade to
// "no credentials".
type Store struct {
	backend Backend
	log     *zap.Logger
}

// New wraps a backend. A nil logger is replaced with a no-op logger.
func New(backend Backend, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{backend: backend, log: log}
}

// Save persists the token and profile together.
func (s *Store) Save(ctx context.Context, token string, profile *models.UserProfile) error {
	values := map[string]string{KeyToken: token}
	if profile != nil {
		b, err := json.Marshal(profile)
		if err != nil {
			return fmt.Errorf("encode profile: %w", err)
		}
		values[KeyUser] = string(b)
	}

	if err := s.backend.Set(ctx, values); err != nil {
		s.log.Warn("failed to save credentials", zap.Error(err))
		return fmt.Errorf("save credentials: %w", err)
	}
	if profile == nil {
		// a stale profile must not outlive the token it belonged to
		if err := s.backend.Delete(ctx, KeyUser); err != nil {
			s.log.Warn("failed to drop stale profile", zap.Error(err))
		}
	}
	return nil
}

// Load returns the saved credentials, or false when there is no token or the
// backend cannot be read.
func (s *Store) Load(ctx context.Context) (models.Credentials, bool) {
	token, ok, err := s.backend.Get(ctx, KeyToken)
	if err != nil {
		s.log.Warn("failed to load token", zap.Error(err))
		return models.Credentials{}, false
	}
	if !ok || token == "" {
		return models.Credentials{}, false
	}

	creds := models.Credentials{Token: token}
	raw, ok, err := s.backend.Get(ctx, KeyUser)
	switch {
	case err != nil:
		s.log.Warn("failed to load profile", zap.Error(err))
	case ok:
		var p models.UserProfile
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			s.log.Warn("discarding unreadable profile", zap.Error(err))
		} else {
			creds.Profile = &p
		}
	}
	return creds, true
}

// Clear removes both token and profile.
func (s *Store) Clear(ctx context.Context) {
	if err := s.backend.Delete(ctx, KeyToken, KeyUser); err != nil {
		s.log.Warn("failed to clear credentials", zap.Error(err))
	}
}
