package services

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/texttalk/internal/models"
	"github.com/yoockh/texttalk/internal/utils"
)

// HistoryCache mirrors one owner's conversion records. Deletes are applied
// locally before the store confirms them and are never rolled back.
type HistoryCache struct {
	store RecordStore
	log   *logrus.Entry

	life   context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	owner   string
	records []models.Conversion
	loading bool
	gen     uint64
	closed  bool

	// id -> gen at which the store confirmed the delete (pendingDelete
	// until then); a load started at or before that gen may still see the row
	deleted map[string]uint64
}

func NewHistoryCache(store RecordStore, l *logrus.Logger) *HistoryCache {
	if l == nil {
		l = logrus.New()
	}
	life, cancel := context.WithCancel(context.Background())
	return &HistoryCache{
		store:  store,
		log:    l.WithField("component", "history"),
		life:    life,
		cancel:  cancel,
		deleted: map[string]uint64{},
	}
}

// Load replaces the cache with ownerID's records, newest first. On failure
// the cache is left empty. A load overtaken by another Load, Reset or Close
// leaves the cache alone.
func (h *HistoryCache) Load(ctx context.Context, ownerID string) error {
	const op = "HistoryCache.Load"

	if ownerID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "owner_id is required", nil)
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return utils.E(utils.CodeUnavailable, op, "history closed", utils.ErrClosed)
	}
	h.gen++
	gen := h.gen
	h.owner = ownerID
	h.loading = true
	h.mu.Unlock()

	callCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(h.life, cancel)
	rows, err := h.store.ListByOwner(callCtx, ownerID)
	stop()
	cancel()

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return utils.E(utils.CodeUnavailable, op, "history closed", utils.ErrClosed)
	}
	if gen != h.gen {
		h.log.WithFields(logrus.Fields{"op": op, "owner_id": ownerID}).Debug("load superseded")
		return nil
	}
	h.loading = false

	if err != nil {
		h.records = nil
		h.log.WithError(err).WithFields(logrus.Fields{"op": op, "owner_id": ownerID}).Warn("history load failed")
		return utils.E(utils.CodeUnavailable, op, "failed to load history", errors.Join(utils.ErrStoreQuery, err))
	}

	h.records = normalizeRecords(ownerID, rows, h.deletedSinceLocked(gen))
	return nil
}

// deletedSinceLocked returns ids deleted while the load of gen was running
// and forgets older deletions, which that load's snapshot already reflects.
func (h *HistoryCache) deletedSinceLocked(gen uint64) map[string]struct{} {
	out := map[string]struct{}{}
	for id, at := range h.deleted {
		if at >= gen {
			out[id] = struct{}{}
			continue
		}
		delete(h.deleted, id)
	}
	return out
}

func normalizeRecords(ownerID string, rows []models.Conversion, drop map[string]struct{}) []models.Conversion {
	out := make([]models.Conversion, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		if r.UserID != "" && r.UserID != ownerID {
			continue
		}
		if _, gone := drop[r.ID]; gone {
			continue
		}
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Delete drops id from the cache immediately and asks the store to delete
// it in the background. The returned channel yields the store outcome.
func (h *HistoryCache) Delete(ctx context.Context, id string) <-chan error {
	const op = "HistoryCache.Delete"

	done := make(chan error, 1)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		done <- utils.E(utils.CodeUnavailable, op, "history closed", utils.ErrClosed)
		close(done)
		return done
	}
	h.deleted[id] = pendingDelete
	for i, r := range h.records {
		if r.ID == id {
			h.records = append(h.records[:i:i], h.records[i+1:]...)
			break
		}
	}
	h.mu.Unlock()

	callCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(h.life, cancel)

	go func() {
		defer close(done)
		defer cancel()
		defer stop()

		err := h.store.DeleteByID(callCtx, id)
		h.settleDelete(id, err)
		if err != nil {
			h.log.WithError(err).WithFields(logrus.Fields{"op": op, "record_id": id}).Warn("store delete failed; cache not rolled back")
			done <- utils.E(utils.CodeUnavailable, op, "failed to delete record", err)
			return
		}
		done <- nil
	}()

	return done
}

const pendingDelete = ^uint64(0)

func (h *HistoryCache) settleDelete(id string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.deleted[id]; !ok {
		return
	}
	if err != nil {
		delete(h.deleted, id)
		return
	}
	h.deleted[id] = h.gen
}

// Records returns a copy of the cached records.
func (h *HistoryCache) Records() []models.Conversion {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]models.Conversion, len(h.records))
	copy(out, h.records)
	return out
}

func (h *HistoryCache) Owner() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.owner
}

func (h *HistoryCache) Loading() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.loading
}

// Reset empties the cache and invalidates any load in flight.
func (h *HistoryCache) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.gen++
	h.owner = ""
	h.records = nil
	h.loading = false
	h.deleted = map[string]uint64{}
}

func (h *HistoryCache) Close() {
	h.mu.Lock()
	h.closed = true
	h.gen++
	h.loading = false
	h.mu.Unlock()
	h.cancel()
}
