package services

import (
	"context"

	"github.com/yoockh/texttalk/internal/models"
)

// IdentityProvider issues and tracks credentials for one client.
type IdentityProvider interface {
	CurrentSession(ctx context.Context) (*models.AuthSession, error)
	OnSessionChange(fn func(models.SessionEvent)) Subscription
	SignIn(ctx context.Context, email, password string) (*models.AuthSession, error)
	SignUp(ctx context.Context, email, password string) (*models.AuthSession, error)
	SignOut(ctx context.Context) error
}

type Subscription interface {
	Unsubscribe()
}

// ConversionBackend renders text to audio and returns where the audio lives.
type ConversionBackend interface {
	Convert(ctx context.Context, req ConversionRequest) (*models.ConversionResult, error)
}

type ConversionRequest struct {
	Text        string
	UserID      string
	AccessToken string
}

// RecordStore holds per-user conversion records.
type RecordStore interface {
	ListByOwner(ctx context.Context, ownerID string) ([]models.Conversion, error)
	DeleteByID(ctx context.Context, id string) error
}
