package services

import (
	"context"
	"sync"
	"time"

	"github.com/yoockh/texttalk/internal/models"
)

var (
	_ ConversionBackend = &conversionBackendMock{}
	_ OwnedRecordRepo   = &ownedRecordRepoMock{}
	_ IdentityProvider  = &fakeIdentity{}
)

type conversionBackendMock struct {
	ConvertFunc func(ctx context.Context, req ConversionRequest) (*models.ConversionResult, error)

	calls struct {
		Convert []struct {
			Ctx context.Context
			Req ConversionRequest
		}
	}
	lockConvert sync.RWMutex
}

func (mock *conversionBackendMock) Convert(ctx context.Context, req ConversionRequest) (*models.ConversionResult, error) {
	if mock.ConvertFunc == nil {
		panic("conversionBackendMock.ConvertFunc: method is nil but ConversionBackend.Convert was just called")
	}
	callInfo := struct {
		Ctx context.Context
		Req ConversionRequest
	}{Ctx: ctx, Req: req}
	mock.lockConvert.Lock()
	mock.calls.Convert = append(mock.calls.Convert, callInfo)
	mock.lockConvert.Unlock()
	return mock.ConvertFunc(ctx, req)
}

func (mock *conversionBackendMock) ConvertCalls() []struct {
	Ctx context.Context
	Req ConversionRequest
} {
	mock.lockConvert.RLock()
	calls := mock.calls.Convert
	mock.lockConvert.RUnlock()
	return calls
}

type ownedRecordRepoMock struct {
	ListByOwnerFunc func(ctx context.Context, ownerID string) ([]models.Conversion, error)
	DeleteOwnedFunc func(ctx context.Context, ownerID, id string) error

	calls struct {
		ListByOwner []struct {
			OwnerID string
		}
		DeleteOwned []struct {
			OwnerID string
			ID      string
		}
	}
	lockListByOwner sync.RWMutex
	lockDeleteOwned sync.RWMutex
}

func (mock *ownedRecordRepoMock) ListByOwner(ctx context.Context, ownerID string) ([]models.Conversion, error) {
	if mock.ListByOwnerFunc == nil {
		panic("ownedRecordRepoMock.ListByOwnerFunc: method is nil but OwnedRecordRepo.ListByOwner was just called")
	}
	mock.lockListByOwner.Lock()
	mock.calls.ListByOwner = append(mock.calls.ListByOwner, struct{ OwnerID string }{ownerID})
	mock.lockListByOwner.Unlock()
	return mock.ListByOwnerFunc(ctx, ownerID)
}

func (mock *ownedRecordRepoMock) ListByOwnerCalls() []struct{ OwnerID string } {
	mock.lockListByOwner.RLock()
	calls := mock.calls.ListByOwner
	mock.lockListByOwner.RUnlock()
	return calls
}

func (mock *ownedRecordRepoMock) DeleteOwned(ctx context.Context, ownerID, id string) error {
	if mock.DeleteOwnedFunc == nil {
		panic("ownedRecordRepoMock.DeleteOwnedFunc: method is nil but OwnedRecordRepo.DeleteOwned was just called")
	}
	mock.lockDeleteOwned.Lock()
	mock.calls.DeleteOwned = append(mock.calls.DeleteOwned, struct {
		OwnerID string
		ID      string
	}{ownerID, id})
	mock.lockDeleteOwned.Unlock()
	return mock.DeleteOwnedFunc(ctx, ownerID, id)
}

func (mock *ownedRecordRepoMock) DeleteOwnedCalls() []struct {
	OwnerID string
	ID      string
} {
	mock.lockDeleteOwned.RLock()
	calls := mock.calls.DeleteOwned
	mock.lockDeleteOwned.RUnlock()
	return calls
}

// recordStore adapts an ownedRecordRepoMock to RecordStore with a fixed owner.
type recordStore struct {
	repo  *ownedRecordRepoMock
	owner string
}

func (s recordStore) ListByOwner(ctx context.Context, ownerID string) ([]models.Conversion, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

func (s recordStore) DeleteByID(ctx context.Context, id string) error {
	return s.repo.DeleteOwned(ctx, s.owner, id)
}

// fakeIdentity is an in-memory identity provider whose change stream is
// driven by the test through emit.
type fakeIdentity struct {
	mu        sync.Mutex
	session   *models.AuthSession
	listeners map[int]func(models.SessionEvent)
	nextID    int

	CurrentSessionFunc func(ctx context.Context) (*models.AuthSession, error)
	SignInFunc         func(ctx context.Context, email, password string) (*models.AuthSession, error)
	SignUpFunc         func(ctx context.Context, email, password string) (*models.AuthSession, error)
	SignOutFunc        func(ctx context.Context) error

	signOuts int
}

func newFakeIdentity(sess *models.AuthSession) *fakeIdentity {
	return &fakeIdentity{session: sess, listeners: map[int]func(models.SessionEvent){}}
}

func (f *fakeIdentity) CurrentSession(ctx context.Context) (*models.AuthSession, error) {
	if f.CurrentSessionFunc != nil {
		return f.CurrentSessionFunc(ctx)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session, nil
}

func (f *fakeIdentity) OnSessionChange(fn func(models.SessionEvent)) Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	f.listeners[id] = fn
	return unsubscribeFunc(func() {
		f.mu.Lock()
		delete(f.listeners, id)
		f.mu.Unlock()
	})
}

func (f *fakeIdentity) SignIn(ctx context.Context, email, password string) (*models.AuthSession, error) {
	if f.SignInFunc != nil {
		return f.SignInFunc(ctx, email, password)
	}
	return sessionFor("user-1", email), nil
}

func (f *fakeIdentity) SignUp(ctx context.Context, email, password string) (*models.AuthSession, error) {
	if f.SignUpFunc != nil {
		return f.SignUpFunc(ctx, email, password)
	}
	return sessionFor("user-1", email), nil
}

func (f *fakeIdentity) SignOut(ctx context.Context) error {
	f.mu.Lock()
	f.signOuts++
	f.mu.Unlock()
	if f.SignOutFunc != nil {
		return f.SignOutFunc(ctx)
	}
	return nil
}

func (f *fakeIdentity) emit(ev models.SessionEvent) {
	f.mu.Lock()
	fns := make([]func(models.SessionEvent), 0, len(f.listeners))
	for _, fn := range f.listeners {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (f *fakeIdentity) listenerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners)
}

type unsubscribeFunc func()

func (u unsubscribeFunc) Unsubscribe() { u() }

// staticIdentity is an IdentitySource with a fixed user.
type staticIdentity struct {
	mu    sync.Mutex
	user  *models.User
	token string
}

func (s *staticIdentity) Current() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *staticIdentity) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *staticIdentity) set(u *models.User) {
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
}

func sessionFor(id, email string) *models.AuthSession {
	return &models.AuthSession{
		AccessToken: "token-" + id,
		TokenType:   "bearer",
		ExpiresAt:   time.Now().Add(time.Hour),
		User:        &models.User{ID: id, Email: email},
	}
}

// manualScheduler records scheduled callbacks; fire runs them by hand.
type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

func (s *manualScheduler) schedule(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{d: d, f: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *manualScheduler) timer(i int) *manualTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timers[i]
}

func (s *manualScheduler) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}
