// Package session holds the authenticated identity for the running
// client. The session is constructed explicitly and injected into its
// consumers; there is no package-level singleton.
package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"tutorlink/internal/models"
)

// Identity is the authenticated user plus their credentials.
type Identity struct {
	User    models.User
	Access  string
	Refresh string
}

// Session is the injectable session context. Lifecycle: Restore on
// startup, Establish on login, Invalidate on logout or on an
// authorization failure from the service.
type Session struct {
	mu          sync.Mutex
	identity    *Identity
	invalidated bool

	store    Store
	onExpire []func()
	logger   zerolog.Logger
}

func New(store Store, logger zerolog.Logger) *Session {
	return &Session{store: store, logger: logger}
}

// OnExpire registers a callback run when the session is torn down
// (logout or authorization failure). Callbacks run at most once per
// established session, even when several requests fail concurrently.
func (s *Session) OnExpire(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onExpire = append(s.onExpire, fn)
}

// Restore loads the persisted identity, if any.
func (s *Session) Restore(ctx context.Context) error {
	id, err := s.store.Load(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if id != nil {
		s.identity = id
		s.invalidated = false
		s.logger.Info().Str("email", id.User.Email).Str("role", string(id.User.Role)).
			Msg("session restored")
	}
	return nil
}

// Establish stores a freshly authenticated identity.
func (s *Session) Establish(ctx context.Context, id Identity) error {
	if err := s.store.Save(ctx, &id); err != nil {
		return err
	}

	s.mu.Lock()
	s.identity = &id
	s.invalidated = false
	s.mu.Unlock()
	return nil
}

// Identity returns the current identity and whether one exists.
func (s *Session) Identity() (Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return Identity{}, false
	}
	return *s.identity, true
}

// Role returns the current role; empty when unauthenticated.
func (s *Session) Role() models.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return ""
	}
	return s.identity.User.Role
}

// AccessToken implements api.TokenSource.
func (s *Session) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return ""
	}
	return s.identity.Access
}

// Logout tears the session down explicitly.
func (s *Session) Logout(ctx context.Context) error {
	s.teardown(ctx, "logout")
	return nil
}

// Invalidate tears the session down after the service rejected the
// credential. Safe to call from concurrent request failures; only the
// first call per established session runs the teardown.
func (s *Session) Invalidate(ctx context.Context) {
	s.teardown(ctx, "authorization failure")
}

func (s *Session) teardown(ctx context.Context, reason string) {
	s.mu.Lock()
	if s.invalidated || s.identity == nil {
		s.mu.Unlock()
		return
	}
	s.invalidated = true
	s.identity = nil
	callbacks := append([]func(){}, s.onExpire...)
	s.mu.Unlock()

	if err := s.store.Clear(ctx); err != nil {
		s.logger.Error().Err(err).Msg("clear persisted session")
	}
	s.logger.Info().Str("reason", reason).Msg("session cleared")

	for _, fn := range callbacks {
		fn()
	}
}
