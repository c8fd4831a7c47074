package services

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/texttalk/internal/models"
)

// Workspace is everything one client sees: its identity, the converter,
// its history mirror and its notification.
type Workspace struct {
	ClientID string

	Session       *SessionManager
	Notifications *NotificationState
	Converter     *ConversionController
	History       *HistoryCache
	Views         *ViewRouter

	unwatch func()
	once    sync.Once

	openOnce sync.Once
	opened   chan struct{}

	mu       sync.Mutex
	lastSeen time.Time
}

type WorkspaceDeps struct {
	Identity IdentityProvider
	Backend  ConversionBackend
	Records  OwnedRecordRepo
	Logger   *logrus.Logger

	NotificationOptions []NotificationOption
}

func NewWorkspace(clientID string, d WorkspaceDeps) *Workspace {
	l := d.Logger
	if l == nil {
		l = logrus.New()
	}
	sm := NewSessionManager(d.Identity, l)
	notes := NewNotificationState(d.NotificationOptions...)
	w := &Workspace{
		ClientID:      clientID,
		Session:       sm,
		Notifications: notes,
		Converter:     NewConversionController(sm, d.Backend, notes, l),
		History:       NewHistoryCache(OwnerScopedStore{Repo: d.Records, Identity: sm}, l),
		Views:         NewViewRouter(sm),
		opened:        make(chan struct{}),
		lastSeen:      time.Now(),
	}
	w.unwatch = sm.Watch(w.onIdentityChange)
	return w
}

// Open subscribes to identity changes, then restores any existing session.
// Only the first call does the work.
func (w *Workspace) Open(ctx context.Context) {
	w.openOnce.Do(func() {
		defer close(w.opened)
		w.Session.Subscribe()
		w.Session.Restore(ctx)
	})
}

// WaitOpen blocks until Open has finished or ctx is done.
func (w *Workspace) WaitOpen(ctx context.Context) error {
	select {
	case <-w.opened:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Workspace) onIdentityChange(prev, next *models.User) {
	if next == nil {
		w.History.Reset()
		w.Views.ShowConverter()
		return
	}
	if prev == nil || prev.ID != next.ID {
		w.History.Reset()
	}
}

func (w *Workspace) Touch() {
	w.mu.Lock()
	w.lastSeen = time.Now()
	w.mu.Unlock()
}

func (w *Workspace) idleSince() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSeen
}

// Close releases the identity subscription and abandons in-flight work.
func (w *Workspace) Close() {
	w.once.Do(func() {
		w.unwatch()
		w.Session.Close()
		w.Converter.Close()
		w.History.Close()
		w.Notifications.Close()
	})
}

// IdentityFactory builds the identity provider for one client.
type IdentityFactory func(clientID string) IdentityProvider

// WorkspaceRegistry keeps one open Workspace per client id.
type WorkspaceRegistry struct {
	deps        WorkspaceDeps
	identityFor IdentityFactory
	log         *logrus.Entry

	mu     sync.Mutex
	spaces map[string]*Workspace
}

// NewWorkspaceRegistry builds workspaces from d. When identityFor is
// non-nil it supplies each client's identity provider in place of d.Identity.
func NewWorkspaceRegistry(d WorkspaceDeps, identityFor IdentityFactory) *WorkspaceRegistry {
	l := d.Logger
	if l == nil {
		l = logrus.New()
		d.Logger = l
	}
	return &WorkspaceRegistry{
		deps:        d,
		identityFor: identityFor,
		log:         l.WithField("component", "workspaces"),
		spaces:      map[string]*Workspace{},
	}
}

// Get returns the client's workspace, opening it on first use. Concurrent
// callers for the same client wait until the session restore has finished.
func (r *WorkspaceRegistry) Get(ctx context.Context, clientID string) *Workspace {
	r.mu.Lock()
	if w, ok := r.spaces[clientID]; ok {
		r.mu.Unlock()
		w.Touch()
		if err := w.WaitOpen(ctx); err != nil {
			r.log.WithError(err).WithField("client_id", clientID).Debug("gave up waiting for workspace open")
		}
		return w
	}
	d := r.deps
	if r.identityFor != nil {
		d.Identity = r.identityFor(clientID)
	}
	w := NewWorkspace(clientID, d)
	r.spaces[clientID] = w
	r.mu.Unlock()

	// the restore outlives the request that happened to trigger it
	w.Open(context.WithoutCancel(ctx))
	r.log.WithField("client_id", clientID).Debug("workspace opened")
	return w
}

// Sweep closes workspaces idle for longer than maxIdle.
func (r *WorkspaceRegistry) Sweep(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	r.mu.Lock()
	var stale []*Workspace
	for id, w := range r.spaces {
		if w.idleSince().Before(cutoff) {
			stale = append(stale, w)
			delete(r.spaces, id)
		}
	}
	r.mu.Unlock()

	for _, w := range stale {
		w.Close()
	}
	return len(stale)
}

// Run sweeps idle workspaces until ctx is done.
func (r *WorkspaceRegistry) Run(ctx context.Context, every, maxIdle time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := r.Sweep(maxIdle); n > 0 {
				r.log.WithField("closed", n).Info("idle workspaces closed")
			}
		}
	}
}

func (r *WorkspaceRegistry) Close() {
	r.mu.Lock()
	spaces := r.spaces
	r.spaces = map[string]*Workspace{}
	r.mu.Unlock()

	for _, w := range spaces {
		w.Close()
	}
}
