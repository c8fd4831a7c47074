package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yoockh/texttalk/internal/logger"
	"github.com/yoockh/texttalk/internal/models"
	"github.com/yoockh/texttalk/internal/utils"
)

func TestSessionManager_RestoreExistingSession(t *testing.T) {
	t.Parallel()
	p := newFakeIdentity(sessionFor("user-1", "a@example.com"))
	m := NewSessionManager(p, logger.Discard())

	m.Restore(context.Background())

	require.NotNil(t, m.Current())
	assert.Equal(t, "user-1", m.Current().ID)
	assert.Equal(t, "token-user-1", m.AccessToken())
}

func TestSessionManager_RestoreNoSession(t *testing.T) {
	t.Parallel()
	m := NewSessionManager(newFakeIdentity(nil), logger.Discard())

	m.Restore(context.Background())

	assert.Nil(t, m.Current())
	assert.Empty(t, m.AccessToken())
}

func TestSessionManager_RestoreErrorLeavesAnonymous(t *testing.T) {
	t.Parallel()
	p := newFakeIdentity(nil)
	p.CurrentSessionFunc = func(ctx context.Context) (*models.AuthSession, error) {
		return nil, errors.New("network down")
	}
	m := NewSessionManager(p, logger.Discard())

	m.Restore(context.Background())

	assert.Nil(t, m.Current())
}

func TestSessionManager_EventDuringRestoreWins(t *testing.T) {
	t.Parallel()
	entered := make(chan struct{})
	release := make(chan struct{})
	p := newFakeIdentity(nil)
	p.CurrentSessionFunc = func(ctx context.Context) (*models.AuthSession, error) {
		close(entered)
		<-release
		return sessionFor("stale", "old@example.com"), nil
	}
	m := NewSessionManager(p, logger.Discard())
	m.Subscribe()

	done := make(chan struct{})
	go func() {
		m.Restore(context.Background())
		close(done)
	}()
	<-entered
	p.emit(models.SessionEvent{Type: models.EventSignedIn, Session: sessionFor("fresh", "new@example.com")})
	close(release)
	<-done

	require.NotNil(t, m.Current())
	assert.Equal(t, "fresh", m.Current().ID)
}

func TestSessionManager_SignedOutEventClearsIdentity(t *testing.T) {
	t.Parallel()
	p := newFakeIdentity(sessionFor("user-1", "a@example.com"))
	m := NewSessionManager(p, logger.Discard())
	m.Subscribe()
	m.Restore(context.Background())
	require.NotNil(t, m.Current())

	p.emit(models.SessionEvent{Type: models.EventSignedOut, Session: sessionFor("user-1", "a@example.com")})

	assert.Nil(t, m.Current())
}

func TestSessionManager_SubscribeIsIdempotent(t *testing.T) {
	t.Parallel()
	p := newFakeIdentity(nil)
	m := NewSessionManager(p, logger.Discard())

	m.Subscribe()
	m.Subscribe()
	assert.Equal(t, 1, p.listenerCount())

	m.Unsubscribe()
	assert.Equal(t, 0, p.listenerCount())
	m.Unsubscribe()
}

func TestSessionManager_SignIn(t *testing.T) {
	t.Parallel()
	p := newFakeIdentity(nil)
	m := NewSessionManager(p, logger.Discard())

	var mu sync.Mutex
	var changes [][2]*models.User
	m.Watch(func(prev, next *models.User) {
		mu.Lock()
		changes = append(changes, [2]*models.User{prev, next})
		mu.Unlock()
	})

	u, err := m.SignIn(context.Background(), "a@example.com", "secret")

	require.NoError(t, err)
	assert.Equal(t, "user-1", u.ID)
	assert.Equal(t, "user-1", m.Current().ID)
	require.Len(t, changes, 1)
	assert.Nil(t, changes[0][0])
	assert.Equal(t, "user-1", changes[0][1].ID)
}

func TestSessionManager_ProviderErrorMessageIsVerbatim(t *testing.T) {
	t.Parallel()
	p := newFakeIdentity(nil)
	p.SignInFunc = func(ctx context.Context, email, password string) (*models.AuthSession, error) {
		return nil, errors.New("Invalid login credentials")
	}
	p.SignUpFunc = func(ctx context.Context, email, password string) (*models.AuthSession, error) {
		return nil, utils.E(utils.CodeUnauthorized, "Auth.SignUp", "User already registered", utils.ErrAuthProvider)
	}
	m := NewSessionManager(p, logger.Discard())

	_, err := m.SignIn(context.Background(), "a@example.com", "wrong")
	assert.ErrorIs(t, err, utils.ErrAuthProvider)
	assert.Equal(t, "Invalid login credentials", utils.Message(err, ""))

	_, err = m.SignUp(context.Background(), "a@example.com", "secret")
	assert.ErrorIs(t, err, utils.ErrAuthProvider)
	assert.Equal(t, "User already registered", utils.Message(err, ""))

	assert.Nil(t, m.Current())
}

func TestSessionManager_SignOutAlwaysClears(t *testing.T) {
	t.Parallel()
	p := newFakeIdentity(sessionFor("user-1", "a@example.com"))
	p.SignOutFunc = func(ctx context.Context) error { return errors.New("session not found") }
	m := NewSessionManager(p, logger.Discard())
	m.Restore(context.Background())

	m.SignOut(context.Background())
	assert.Nil(t, m.Current())

	m.SignOut(context.Background())
	assert.Nil(t, m.Current())
	assert.Equal(t, 2, p.signOuts)
}

func TestSessionManager_CloseIgnoresLateEvents(t *testing.T) {
	t.Parallel()
	p := newFakeIdentity(nil)
	m := NewSessionManager(p, logger.Discard())
	m.Subscribe()

	var fn func(models.SessionEvent)
	p.mu.Lock()
	for _, l := range p.listeners {
		fn = l
	}
	p.mu.Unlock()

	m.Close()
	assert.Equal(t, 0, p.listenerCount())

	fn(models.SessionEvent{Type: models.EventSignedIn, Session: sessionFor("user-1", "a@example.com")})
	assert.Nil(t, m.Current())
}

func TestSessionManager_CurrentReturnsCopy(t *testing.T) {
	t.Parallel()
	m := NewSessionManager(newFakeIdentity(sessionFor("user-1", "a@example.com")), logger.Discard())
	m.Restore(context.Background())

	u := m.Current()
	u.ID = "someone-else"

	assert.Equal(t, "user-1", m.Current().ID)
}
