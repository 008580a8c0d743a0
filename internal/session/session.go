// Package session tracks who is signed in on the client side and decides
// where a shell should route the user.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/expensetrack/expensetrack/internal/client"
	"github.com/expensetrack/expensetrack/internal/model"
)

// State is the lifecycle position of a Session.
type State int

const (
	StateLoading State = iota
	StateAuthenticated
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// API is the part of the request client a Session needs.
type API interface {
	Me(ctx context.Context) (*model.PublicUser, error)
	Logout(ctx context.Context, refreshToken string) error
}

var _ API = (*client.Client)(nil)

// Snapshot is a consistent view of the session at one moment.
type Snapshot struct {
	State   State
	User    *model.PublicUser
	Expired bool
}

// Authenticated reports whether a user is signed in.
func (s Snapshot) Authenticated() bool { return s.State == StateAuthenticated }

// Session owns the signed-in user and the persisted token pair.
type Session struct {
	api    API
	store  client.TokenStore
	logger *slog.Logger

	mu      sync.RWMutex
	state   State
	user    *model.PublicUser
	expired bool
	subs    map[chan Snapshot]struct{}
}

// New returns a Session in the loading state.
func New(api API, store client.TokenStore, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Session{
		api:    api,
		store:  store,
		logger: logger.With("component", "session"),
		state:  StateLoading,
		subs:   make(map[chan Snapshot]struct{}),
	}
}

// Restore probes the server with the stored credentials. Without any stored
// token it resolves to anonymous without touching the network. The returned
// error is the probe failure, if any; the session is anonymous either way.
func (s *Session) Restore(ctx context.Context) error {
	_, hasAccess := s.store.AccessToken()
	_, hasRefresh := s.store.RefreshToken()
	if !hasAccess && !hasRefresh {
		s.transition(StateAnonymous, nil, s.isExpired())
		return nil
	}

	user, err := s.api.Me(ctx)
	if err != nil {
		s.logger.Debug("session restore failed", "error", err)
		s.transition(StateAnonymous, nil, s.isExpired() || errors.Is(err, client.ErrSessionExpired))
		return fmt.Errorf("restore session: %w", err)
	}

	s.transition(StateAuthenticated, user, false)
	return nil
}

// Login persists the token pair and marks user as signed in.
func (s *Session) Login(pair model.TokenPair, user model.PublicUser) error {
	if err := s.store.SetTokens(pair); err != nil {
		return fmt.Errorf("persist tokens: %w", err)
	}
	s.transition(StateAuthenticated, &user, false)
	return nil
}

// Logout asks the server to invalidate the session, then forgets it locally
// regardless of the outcome. Only a failure to clear local tokens is returned.
func (s *Session) Logout(ctx context.Context) error {
	if refresh, ok := s.store.RefreshToken(); ok {
		if err := s.api.Logout(ctx, refresh); err != nil {
			s.logger.Warn("server logout failed", "error", err)
		}
	}

	err := s.store.Clear()
	s.transition(StateAnonymous, nil, false)
	if err != nil {
		return fmt.Errorf("clear tokens: %w", err)
	}
	return nil
}

// Expire ends the session after an unrecoverable refresh failure. It is meant
// to be installed with client.WithSessionExpiredHandler.
func (s *Session) Expire(cause error) {
	s.logger.Info("session expired", "error", cause)
	if err := s.store.Clear(); err != nil {
		s.logger.Warn("clear tokens after expiry", "error", err)
	}
	s.transition(StateAnonymous, nil, true)
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Subscribe delivers every later state change on the returned channel. The
// channel holds one value; a slow reader only ever sees the latest snapshot.
// Call cancel to stop delivery and close the channel.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, ch)
			s.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (s *Session) isExpired() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expired
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{State: s.state, Expired: s.expired}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	return snap
}

func (s *Session) transition(state State, user *model.PublicUser, expired bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.state
	s.state = state
	s.user = user
	s.expired = expired
	if from != state {
		s.logger.Debug("session state changed", "from", from.String(), "to", state.String())
	}

	snap := s.snapshotLocked()
	for ch := range s.subs {
		// Publishers hold mu, so after draining there is room for the send.
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}
