// Package session owns the client's single session: whether a user is signed
// in, with which token, and the transitions between those states.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/atinyakov/GophShelf/internal/client/api"
	"github.com/atinyakov/GophShelf/internal/models"
)

// State of the session.
type State int

const (
	// Absent: nobody is signed in.
	Absent State = iota
	// Pending: a login or signup is in flight.
	Pending
	// Authenticated: a token is held. It may not have been verified yet.
	Authenticated
)

func (s State) String() string {
	switch s {
	case Absent:
		return "absent"
	case Pending:
		return "pending"
	case Authenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	// ErrAlreadyAuthenticated is returned by Login/Signup while a session is held.
	ErrAlreadyAuthenticated = errors.New("session: already authenticated")
	// ErrPending is returned by Login/Signup while another one is in flight.
	ErrPending = errors.New("session: login in progress")
	// ErrSuperseded is returned by a login that resolved after the session
	// had already moved on (logout, or a change made by another process).
	ErrSuperseded = errors.New("session: login superseded")
)

// Authenticator is the remote authentication collaborator.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (api.AuthResult, error)
	Signup(ctx context.Context, name, email, password string) (api.AuthResult, error)
	Me(ctx context.Context, token string) (models.UserProfile, error)
}

// CredentialStore persists the token and profile across restarts.
type CredentialStore interface {
	Save(ctx context.Context, token string, profile *models.UserProfile) error
	Load(ctx context.Context) (models.Credentials, bool)
	Clear(ctx context.Context)
}

// Controller is the one session of the process. Pass it by reference to
// whatever needs the session; it is safe for concurrent use.
type Controller struct {
	store CredentialStore
	auth  Authenticator
	log   *zap.Logger

	mu      sync.RWMutex
	state   State
	token   string
	profile *models.UserProfile
	// epoch changes on every transition so a late login result cannot
	// override a logout that happened meanwhile.
	epoch uint64
}

// New derives the initial state from the credential store: a stored token
// makes the session Authenticated right away, without asking the server.
func New(ctx context.Context, store CredentialStore, auth Authenticator, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Controller{store: store, auth: auth, log: log}
	if creds, ok := store.Load(ctx); ok {
		c.state = Authenticated
		c.token = creds.Token
		c.profile = creds.Profile
		log.Info("session restored from credential store")
	}
	return c
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Token returns the bearer token, or "" unless Authenticated.
func (c *Controller) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state != Authenticated {
		return ""
	}
	return c.token
}

// Profile returns a copy of the cached profile, nil when unknown.
func (c *Controller) Profile() *models.UserProfile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.profile == nil {
		return nil
	}
	p := *c.profile
	return &p
}

// Login authenticates with email and password. On failure the session stays
// Absent and the error, an *api.Error, is returned unchanged.
func (c *Controller) Login(ctx context.Context, email, password string) error {
	return c.authenticate(ctx, "login", func() (api.AuthResult, error) {
		return c.auth.Login(ctx, email, password)
	})
}

// Signup registers an account and signs it in with the returned token.
func (c *Controller) Signup(ctx context.Context, name, email, password string) error {
	return c.authenticate(ctx, "signup", func() (api.AuthResult, error) {
		return c.auth.Signup(ctx, name, email, password)
	})
}

func (c *Controller) authenticate(ctx context.Context, op string, call func() (api.AuthResult, error)) error {
	c.mu.Lock()
	switch c.state {
	case Authenticated:
		c.mu.Unlock()
		return ErrAlreadyAuthenticated
	case Pending:
		c.mu.Unlock()
		return ErrPending
	}
	c.state = Pending
	c.epoch++
	epoch := c.epoch
	c.mu.Unlock()

	res, err := call()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		// logged out or reloaded while in flight; that transition wins
		if err != nil {
			return err
		}
		return ErrSuperseded
	}
	if err != nil {
		c.state = Absent
		c.log.Info(op+" failed", zap.Error(err))
		return err
	}

	profile := res.User
	if err := c.store.Save(ctx, res.Token, &profile); err != nil {
		// the session still works for this process, it just won't survive a restart
		c.log.Warn("session not persisted", zap.Error(err))
	}
	c.state = Authenticated
	c.token = res.Token
	c.profile = &profile
	c.epoch++
	c.log.Info(op+" succeeded", zap.String("user_id", profile.ID))
	return nil
}

// Logout clears the credential store and returns to Absent. It never fails.
func (c *Controller) Logout(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Clear(ctx)
	c.reset()
	c.log.Info("logged out")
}

func (c *Controller) reset() {
	c.state = Absent
	c.token = ""
	c.profile = nil
	c.epoch++
}

// Reconcile ends the session when err says the token was rejected. It
// reports whether it did. A rejection of a token that has since been
// replaced leaves the newer session alone.
func (c *Controller) Reconcile(ctx context.Context, err error) bool {
	var apiErr *api.Error
	if !errors.Is(err, api.ErrAuthorizationExpired) || !errors.As(err, &apiErr) {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if apiErr.Token != "" && apiErr.Token != c.token {
		c.log.Debug("ignoring rejection of a replaced token")
		return false
	}
	c.log.Info("token rejected by server, ending session")
	c.store.Clear(ctx)
	c.reset()
	return true
}

// RefreshProfile asks the server who owns the current token and caches the
// answer. A rejected token ends the session.
func (c *Controller) RefreshProfile(ctx context.Context) error {
	c.mu.RLock()
	token, state, epoch := c.token, c.state, c.epoch
	c.mu.RUnlock()
	if state != Authenticated {
		return &api.Error{Kind: api.KindNoToken}
	}

	profile, err := c.auth.Me(ctx, token)
	if err != nil {
		c.Reconcile(ctx, err)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return nil
	}
	c.profile = &profile
	if err := c.store.Save(ctx, token, &profile); err != nil {
		c.log.Warn("profile not persisted", zap.Error(err))
	}
	return nil
}

// Reload re-derives the session from the credential store after someone
// else changed it (another client process sharing the store). A login in
// flight is left alone.
func (c *Controller) Reload(ctx context.Context) {
	creds, ok := c.store.Load(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Pending {
		return
	}
	switch {
	case !ok && c.state == Authenticated:
		c.reset()
		c.log.Info("session ended elsewhere")
	case ok && (c.state == Absent || creds.Token != c.token):
		c.state = Authenticated
		c.token = creds.Token
		c.profile = creds.Profile
		c.epoch++
		c.log.Info("session changed elsewhere")
	case ok && creds.Profile != nil:
		c.profile = creds.Profile
	}
}
