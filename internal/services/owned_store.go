package services

import (
	"context"

	"github.com/yoockh/texttalk/internal/models"
	"github.com/yoockh/texttalk/internal/utils"
)

// OwnedRecordRepo deletes only rows that belong to the given owner.
type OwnedRecordRepo interface {
	ListByOwner(ctx context.Context, ownerID string) ([]models.Conversion, error)
	DeleteOwned(ctx context.Context, ownerID, id string) error
}

// OwnerScopedStore is the RecordStore handed to a client's HistoryCache:
// deletes are confined to the records of whoever is signed in.
type OwnerScopedStore struct {
	Repo     OwnedRecordRepo
	Identity IdentitySource
}

func (s OwnerScopedStore) ListByOwner(ctx context.Context, ownerID string) ([]models.Conversion, error) {
	return s.Repo.ListByOwner(ctx, ownerID)
}

func (s OwnerScopedStore) DeleteByID(ctx context.Context, id string) error {
	const op = "OwnerScopedStore.DeleteByID"

	u := s.Identity.Current()
	if u == nil {
		return utils.E(utils.CodeUnauthorized, op, MsgNotAuthenticated, utils.ErrNotAuthenticated)
	}
	return s.Repo.DeleteOwned(ctx, u.ID, id)
}
