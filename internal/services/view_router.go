package services

import "sync"

type View string

const (
	ViewAuth      View = "auth"
	ViewConverter View = "converter"
	ViewHistory   View = "history"
)

type ViewRouter struct {
	identity IdentitySource

	mu          sync.Mutex
	showHistory bool
}

func NewViewRouter(identity IdentitySource) *ViewRouter {
	return &ViewRouter{identity: identity}
}

func (r *ViewRouter) Current() View {
	if r.identity.Current() == nil {
		return ViewAuth
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.showHistory {
		return ViewHistory
	}
	return ViewConverter
}

func (r *ViewRouter) ShowHistory() {
	r.mu.Lock()
	r.showHistory = true
	r.mu.Unlock()
}

func (r *ViewRouter) ShowConverter() {
	r.mu.Lock()
	r.showHistory = false
	r.mu.Unlock()
}
