package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expensetrack/expensetrack/internal/client"
	"github.com/expensetrack/expensetrack/internal/model"
)

type fakeAPI struct {
	user      *model.PublicUser
	meErr     error
	logoutErr error

	meCalls       int
	loggedOutWith []string
}

func (f *fakeAPI) Me(context.Context) (*model.PublicUser, error) {
	f.meCalls++
	if f.meErr != nil {
		return nil, f.meErr
	}
	return f.user, nil
}

func (f *fakeAPI) Logout(_ context.Context, refreshToken string) error {
	f.loggedOutWith = append(f.loggedOutWith, refreshToken)
	return f.logoutErr
}

func alice() model.PublicUser {
	return model.PublicUser{ID: uuid.New(), Username: "alice", Email: "alice@example.com"}
}

func seeded(t *testing.T) *client.MemoryStore {
	t.Helper()
	store := client.NewMemoryStore(time.Hour, 24*time.Hour)
	require.NoError(t, store.SetTokens(model.TokenPair{AccessToken: "at_1", RefreshToken: "rt_1"}))
	return store
}

func TestSession_StartsLoading(t *testing.T) {
	s := New(&fakeAPI{}, client.NewMemoryStore(0, 0), nil)
	assert.Equal(t, StateLoading, s.Snapshot().State)
}

func TestRestore(t *testing.T) {
	t.Run("no tokens resolves anonymous offline", func(t *testing.T) {
		api := &fakeAPI{}
		s := New(api, client.NewMemoryStore(0, 0), nil)

		require.NoError(t, s.Restore(context.Background()))
		assert.Equal(t, StateAnonymous, s.Snapshot().State)
		assert.Zero(t, api.meCalls)
	})

	t.Run("probe success authenticates", func(t *testing.T) {
		u := alice()
		api := &fakeAPI{user: &u}
		s := New(api, seeded(t), nil)

		require.NoError(t, s.Restore(context.Background()))
		snap := s.Snapshot()
		assert.Equal(t, StateAuthenticated, snap.State)
		require.NotNil(t, snap.User)
		assert.Equal(t, "alice", snap.User.Username)
		assert.Equal(t, 1, api.meCalls)
	})

	t.Run("probe failure is anonymous", func(t *testing.T) {
		api := &fakeAPI{meErr: &client.TransportError{Method: "GET", Path: client.PathMe, Err: errors.New("refused")}}
		s := New(api, seeded(t), nil)

		err := s.Restore(context.Background())
		require.Error(t, err)
		snap := s.Snapshot()
		assert.Equal(t, StateAnonymous, snap.State)
		assert.Nil(t, snap.User)
		assert.False(t, snap.Expired)
	})

	t.Run("expired session is marked", func(t *testing.T) {
		api := &fakeAPI{meErr: client.ErrSessionExpired}
		s := New(api, seeded(t), nil)

		require.Error(t, s.Restore(context.Background()))
		assert.True(t, s.Snapshot().Expired)
	})
}

func TestSession_LoginPersistsTokens(t *testing.T) {
	store := client.NewMemoryStore(time.Hour, 24*time.Hour)
	s := New(&fakeAPI{}, store, nil)

	require.NoError(t, s.Login(model.TokenPair{AccessToken: "at_new", RefreshToken: "rt_new"}, alice()))

	snap := s.Snapshot()
	assert.Equal(t, StateAuthenticated, snap.State)
	assert.Equal(t, "alice", snap.User.Username)

	access, ok := store.AccessToken()
	assert.True(t, ok)
	assert.Equal(t, "at_new", access)
	refresh, ok := store.RefreshToken()
	assert.True(t, ok)
	assert.Equal(t, "rt_new", refresh)
}

func TestSession_Logout(t *testing.T) {
	for _, tc := range []struct {
		name      string
		logoutErr error
	}{
		{name: "server accepts"},
		{name: "server fails", logoutErr: errors.New("boom")},
	} {
		t.Run(tc.name, func(t *testing.T) {
			store := seeded(t)
			api := &fakeAPI{logoutErr: tc.logoutErr}
			s := New(api, store, nil)
			require.NoError(t, s.Login(model.TokenPair{AccessToken: "at_1", RefreshToken: "rt_1"}, alice()))

			require.NoError(t, s.Logout(context.Background()))

			assert.Equal(t, []string{"rt_1"}, api.loggedOutWith)
			snap := s.Snapshot()
			assert.Equal(t, StateAnonymous, snap.State)
			assert.Nil(t, snap.User)
			assert.False(t, snap.Expired)
			_, ok := store.RefreshToken()
			assert.False(t, ok)
		})
	}
}

func TestSession_LogoutWithoutRefreshTokenSkipsServer(t *testing.T) {
	api := &fakeAPI{}
	s := New(api, client.NewMemoryStore(0, 0), nil)

	require.NoError(t, s.Logout(context.Background()))
	assert.Empty(t, api.loggedOutWith)
	assert.Equal(t, StateAnonymous, s.Snapshot().State)
}

func TestSession_Expire(t *testing.T) {
	store := seeded(t)
	s := New(&fakeAPI{}, store, nil)
	require.NoError(t, s.Login(model.TokenPair{AccessToken: "at_1", RefreshToken: "rt_1"}, alice()))

	s.Expire(client.ErrSessionExpired)

	snap := s.Snapshot()
	assert.Equal(t, StateAnonymous, snap.State)
	assert.True(t, snap.Expired)
	_, ok := store.AccessToken()
	assert.False(t, ok)
	assert.Equal(t, "/login?sessionExpired=true", Guard(snap, RouteProtected).Location(snap))

	require.NoError(t, s.Login(model.TokenPair{AccessToken: "at_2", RefreshToken: "rt_2"}, alice()))
	assert.False(t, s.Snapshot().Expired, "a fresh login clears the marker")
}

func TestSession_SubscribeLatestWins(t *testing.T) {
	s := New(&fakeAPI{}, client.NewMemoryStore(0, 0), nil)
	updates, cancel := s.Subscribe()

	require.NoError(t, s.Login(model.TokenPair{AccessToken: "at", RefreshToken: "rt"}, alice()))
	s.Expire(client.ErrSessionExpired)

	select {
	case snap := <-updates:
		assert.Equal(t, StateAnonymous, snap.State)
		assert.True(t, snap.Expired)
	default:
		t.Fatal("expected a pending update")
	}

	select {
	case snap := <-updates:
		t.Fatalf("unexpected extra update %+v", snap)
	default:
	}

	cancel()
	cancel()
	_, open := <-updates
	assert.False(t, open)

	require.NoError(t, s.Logout(context.Background()), "publishing after cancel must not panic")
}

func TestSnapshot_IsACopy(t *testing.T) {
	s := New(&fakeAPI{}, client.NewMemoryStore(0, 0), nil)
	require.NoError(t, s.Login(model.TokenPair{AccessToken: "at", RefreshToken: "rt"}, alice()))

	snap := s.Snapshot()
	snap.User.Username = "mallory"
	assert.Equal(t, "alice", s.Snapshot().User.Username)
}
