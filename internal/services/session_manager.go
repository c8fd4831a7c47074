package services

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/texttalk/internal/models"
	"github.com/yoockh/texttalk/internal/utils"
)

// IdentityWatcher is called after every identity change with the previous
// and the new identity (either may be nil).
type IdentityWatcher func(prev, next *models.User)

// SessionManager owns the current identity of one client. The provider's
// change stream is authoritative once subscribed; Restore only fills the
// slot if no change event arrived while it was running.
type SessionManager struct {
	provider IdentityProvider
	log      *logrus.Entry

	mu       sync.Mutex
	session  *models.AuthSession
	version  uint64
	closed   bool
	watchers map[int]IdentityWatcher
	nextID   int

	subMu sync.Mutex
	sub   Subscription
}

func NewSessionManager(provider IdentityProvider, l *logrus.Logger) *SessionManager {
	if l == nil {
		l = logrus.New()
	}
	return &SessionManager{
		provider: provider,
		log:      l.WithField("component", "session"),
		watchers: map[int]IdentityWatcher{},
	}
}

// Current returns the most recently known identity, or nil.
func (m *SessionManager) Current() *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil || m.session.User == nil {
		return nil
	}
	u := *m.session.User
	return &u
}

// AccessToken returns the bearer token of the current session, or "".
func (m *SessionManager) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return ""
	}
	return m.session.AccessToken
}

// Restore asks the provider for an existing session. Errors are logged and
// leave the client unauthenticated.
func (m *SessionManager) Restore(ctx context.Context) {
	const op = "SessionManager.Restore"

	m.mu.Lock()
	start := m.version
	m.mu.Unlock()

	sess, err := m.provider.CurrentSession(ctx)
	if err != nil {
		m.log.WithError(err).WithField("op", op).Warn("restore session failed")
		return
	}

	m.mu.Lock()
	if m.closed || m.version != start {
		m.mu.Unlock()
		m.log.WithField("op", op).Debug("restore superseded by session event")
		return
	}
	prev, next := m.setLocked(sess)
	m.mu.Unlock()

	m.notify(prev, next)
}

// Subscribe registers for provider change events. Calling it again while
// subscribed is a no-op.
func (m *SessionManager) Subscribe() {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	if m.sub != nil {
		return
	}
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return
	}
	m.sub = m.provider.OnSessionChange(m.handleEvent)
}

// Unsubscribe releases the provider subscription.
func (m *SessionManager) Unsubscribe() {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	if m.sub == nil {
		return
	}
	m.sub.Unsubscribe()
	m.sub = nil
}

func (m *SessionManager) handleEvent(ev models.SessionEvent) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	sess := ev.Session
	if ev.Type == models.EventSignedOut {
		sess = nil
	}
	prev, next := m.setLocked(sess)
	m.mu.Unlock()

	m.log.WithField("event", ev.Type).Debug("session event")
	m.notify(prev, next)
}

func (m *SessionManager) SignIn(ctx context.Context, email, password string) (*models.User, error) {
	const op = "SessionManager.SignIn"
	sess, err := m.provider.SignIn(ctx, email, password)
	return m.afterAuth(op, sess, err)
}

func (m *SessionManager) SignUp(ctx context.Context, email, password string) (*models.User, error) {
	const op = "SessionManager.SignUp"
	sess, err := m.provider.SignUp(ctx, email, password)
	return m.afterAuth(op, sess, err)
}

func (m *SessionManager) afterAuth(op string, sess *models.AuthSession, err error) (*models.User, error) {
	if err != nil {
		msg := utils.Message(err, err.Error())
		if !errors.Is(err, utils.ErrAuthProvider) {
			err = errors.Join(utils.ErrAuthProvider, err)
		}
		return nil, &utils.AppError{
			Code:    utils.CodeUnauthorized,
			Op:      op,
			Message: msg,
			Err:     err,
		}
	}
	if sess == nil || sess.User == nil {
		return nil, utils.E(utils.CodeBadGateway, op, "identity provider returned no user", utils.ErrAuthProvider)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, utils.E(utils.CodeUnavailable, op, "session closed", utils.ErrClosed)
	}
	prev, next := m.setLocked(sess)
	m.mu.Unlock()

	m.notify(prev, next)
	u := *sess.User
	return &u, nil
}

// SignOut asks the provider to end the session and clears the identity
// whatever the provider answers.
func (m *SessionManager) SignOut(ctx context.Context) {
	const op = "SessionManager.SignOut"

	if err := m.provider.SignOut(ctx); err != nil {
		m.log.WithError(err).WithField("op", op).Warn("provider sign-out failed")
	}

	m.mu.Lock()
	prev, next := m.setLocked(nil)
	m.mu.Unlock()

	m.notify(prev, next)
}

// Watch registers fn for identity changes and returns its cancel func.
func (m *SessionManager) Watch(fn IdentityWatcher) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.watchers[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.watchers, id)
	}
}

// Close releases the subscription; later events and restore results are ignored.
func (m *SessionManager) Close() {
	m.mu.Lock()
	m.closed = true
	m.watchers = map[int]IdentityWatcher{}
	m.mu.Unlock()

	m.Unsubscribe()
}

func (m *SessionManager) setLocked(sess *models.AuthSession) (prev, next *models.User) {
	if m.session != nil && m.session.User != nil {
		p := *m.session.User
		prev = &p
	}
	m.session = sess
	m.version++
	if sess != nil && sess.User != nil {
		n := *sess.User
		next = &n
	}
	return prev, next
}

func (m *SessionManager) notify(prev, next *models.User) {
	m.mu.Lock()
	ws := make([]IdentityWatcher, 0, len(m.watchers))
	for _, w := range m.watchers {
		ws = append(ws, w)
	}
	m.mu.Unlock()

	for _, w := range ws {
		w(prev, next)
	}
}
