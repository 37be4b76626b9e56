package reconciler

import (
	"context"

	"github.com/pawprint/go-reminder-service/internal/domain"
	"github.com/pawprint/go-reminder-service/internal/ledger"
	"github.com/pawprint/go-reminder-service/internal/metrics"
	"github.com/pawprint/go-reminder-service/internal/osnotify"
	"github.com/pawprint/go-reminder-service/internal/shared/logger"
)

// Reconciler detects and repairs drift between what the ledger believes is
// scheduled and what the scheduler still knows about. It never schedules
// anything itself: its only write is pruning ledger entries whose
// notification id no longer exists.
type Reconciler struct {
	store *ledger.Store
	os    osnotify.Scheduler
	log   *logger.Logger
}

// New creates a reconciler
func New(store *ledger.Store, os osnotify.Scheduler, log *logger.Logger) *Reconciler {
	return &Reconciler{store: store, os: os, log: log}
}

// Run compares the owner's ledger against the scheduler's live set and
// returns the dedup keys of entries the scheduler silently dropped, so
// callers know which logical reminders need rescheduling. An empty ledger
// short-circuits without touching the scheduler.
func (r *Reconciler) Run(ctx context.Context, ownerID string) ([]string, error) {
	entries, err := r.store.ScheduledEntries(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	liveIDs, err := r.os.ListScheduled(ctx)
	if err != nil {
		return nil, err
	}
	live := make(map[string]struct{}, len(liveIDs))
	for _, id := range liveIDs {
		live[id] = struct{}{}
	}

	stillActive := make([]domain.ScheduledEntry, 0, len(entries))
	var missingKeys []string
	for _, e := range entries {
		if _, ok := live[e.NotificationID]; ok {
			stillActive = append(stillActive, e)
			continue
		}
		missingKeys = append(missingKeys, e.DedupKey)
	}

	if len(missingKeys) == 0 {
		return nil, nil
	}

	// The missing entries no longer represent anything real; drop them.
	if err := r.store.SaveScheduledEntries(ctx, ownerID, stillActive); err != nil {
		return nil, err
	}

	metrics.ReconcilerPruned.Add(float64(len(missingKeys)))
	r.log.Info("Pruned ledger entries lost by the scheduler",
		"owner_id", ownerID, "pruned", len(missingKeys), "still_active", len(stillActive))
	return missingKeys, nil
}
