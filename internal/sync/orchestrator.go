package sync

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/pawprint/go-reminder-service/internal/domain"
	"github.com/pawprint/go-reminder-service/internal/intent"
	"github.com/pawprint/go-reminder-service/internal/ledger"
	"github.com/pawprint/go-reminder-service/internal/medsched"
	"github.com/pawprint/go-reminder-service/internal/metrics"
	"github.com/pawprint/go-reminder-service/internal/osnotify"
	"github.com/pawprint/go-reminder-service/internal/reconciler"
	"github.com/pawprint/go-reminder-service/internal/shared/logger"
)

// DefaultCooldown is the minimum interval between effective sync runs for
// one owner. Triggers inside the window collapse into the previous run.
const DefaultCooldown = 30 * time.Second

// DataSource is the read-only application data the sync derives desired
// reminders from.
type DataSource interface {
	Pets(ctx context.Context, ownerID string) ([]domain.Pet, error)
	CompletedRecords(ctx context.Context, petID string) ([]domain.HealthRecord, error)
	Preferences(ctx context.Context, ownerID string) (*domain.NotificationPreferences, error)
	OwnerIDs(ctx context.Context) ([]string, error)
}

// Orchestrator coordinates a full reconciliation-and-reschedule pass:
// reconcile ledger against scheduler truth, recompute vaccine intents, diff
// by dedup key, issue the minimal schedule/cancel set, and keep medication
// reminders rebuilt from their durable definitions. Individual scheduler
// failures are contained; the next eligible trigger is the retry mechanism.
type Orchestrator struct {
	store *ledger.Store
	os    osnotify.Scheduler
	data  DataSource
	recon *reconciler.Reconciler
	log   *logger.Logger

	cooldown time.Duration
	now      func() time.Time

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	runLocks map[string]*sync.Mutex
}

// Option tweaks orchestrator construction
type Option func(*Orchestrator)

// WithCooldown overrides the debounce window; zero or negative disables it
func WithCooldown(d time.Duration) Option {
	return func(o *Orchestrator) { o.cooldown = d }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New creates a sync orchestrator
func New(store *ledger.Store, os osnotify.Scheduler, data DataSource, log *logger.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:    store,
		os:       os,
		data:     data,
		recon:    reconciler.New(store, os, log),
		log:      log,
		cooldown: DefaultCooldown,
		now:      time.Now,
		limiters: make(map[string]*rate.Limiter),
		runLocks: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RequestSync triggers a sync for the owner. Triggers arriving within the
// cooldown window of the previous run are silently dropped; the report
// value says whether a run actually happened. The cooldown slot is claimed
// before any I/O so near-simultaneous triggers cannot both start.
func (o *Orchestrator) RequestSync(ctx context.Context, ownerID string) bool {
	if !o.allow(ownerID) {
		metrics.SyncRuns.WithLabelValues("debounced").Inc()
		o.log.Debug("Sync request collapsed into cooldown window", "owner_id", ownerID)
		return false
	}

	start := o.now()
	o.run(ctx, ownerID)
	metrics.SyncDuration.Observe(o.now().Sub(start).Seconds())
	return true
}

// SyncAll runs a sync for every known owner; used by the periodic sweep
func (o *Orchestrator) SyncAll(ctx context.Context) {
	owners, err := o.data.OwnerIDs(ctx)
	if err != nil {
		o.log.Error("Failed to list owners for periodic sync", "error", err)
		return
	}
	for _, ownerID := range owners {
		o.RequestSync(ctx, ownerID)
	}
}

func (o *Orchestrator) allow(ownerID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	lim, ok := o.limiters[ownerID]
	if !ok {
		every := rate.Inf
		if o.cooldown > 0 {
			every = rate.Every(o.cooldown)
		}
		lim = rate.NewLimiter(every, 1)
		o.limiters[ownerID] = lim
	}
	return lim.Allow()
}

func (o *Orchestrator) runLock(ownerID string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()

	l, ok := o.runLocks[ownerID]
	if !ok {
		l = &sync.Mutex{}
		o.runLocks[ownerID] = l
	}
	return l
}

func (o *Orchestrator) run(ctx context.Context, ownerID string) {
	// One run at a time per owner: every section read-modify-writes the
	// ledger, and interleaved runs could duplicate dedup keys.
	l := o.runLock(ownerID)
	l.Lock()
	defer l.Unlock()

	missingKeys, err := o.recon.Run(ctx, ownerID)
	if err != nil {
		// Drift detection failing is not fatal; proceed as if nothing
		// was reported missing.
		o.log.Error("Reconciliation failed", "error", err, "owner_id", ownerID)
		missingKeys = nil
	}
	missing := make(map[string]struct{}, len(missingKeys))
	for _, k := range missingKeys {
		missing[k] = struct{}{}
	}

	prefs, err := o.data.Preferences(ctx, ownerID)
	if err != nil {
		metrics.SyncRuns.WithLabelValues("failed").Inc()
		o.log.Error("Failed to load notification preferences", "error", err, "owner_id", ownerID)
		return
	}

	failed := false
	if err := o.syncVaccines(ctx, ownerID, prefs, missing); err != nil {
		failed = true
		o.log.Error("Vaccine reminder sync failed", "error", err, "owner_id", ownerID)
	}
	if err := o.syncMedications(ctx, ownerID, prefs, missing); err != nil {
		failed = true
		o.log.Error("Medication reminder sync failed", "error", err, "owner_id", ownerID)
	}

	if failed {
		metrics.SyncRuns.WithLabelValues("failed").Inc()
		return
	}
	metrics.SyncRuns.WithLabelValues("completed").Inc()
}

// syncVaccines settles the ledger's vaccine entries against the desired
// intent set derived from pet data.
func (o *Orchestrator) syncVaccines(ctx context.Context, ownerID string, prefs *domain.NotificationPreferences, missing map[string]struct{}) error {
	if !prefs.VaccineRemindersEnabled {
		return o.sweepVaccines(ctx, ownerID)
	}

	granted, err := o.os.RequestPermission(ctx, ownerID)
	if err != nil {
		o.log.Warn("Permission check failed, skipping vaccine reminders", "error", err, "owner_id", ownerID)
		return nil
	}
	if !granted {
		o.log.Debug("Notifications not permitted, skipping vaccine reminders", "owner_id", ownerID)
		return nil
	}

	pets, err := o.data.Pets(ctx, ownerID)
	if err != nil {
		return err
	}

	now := o.now()
	var desired []domain.VaccineIntent
	for _, pet := range pets {
		records, err := o.data.CompletedRecords(ctx, pet.ID)
		if err != nil {
			// One pet's bad fetch must not starve the others.
			o.log.Warn("Skipping pet for this sync cycle", "error", err, "pet_id", pet.ID)
			continue
		}
		desired = append(desired, intent.BuildVaccineIntents(pet, records, now)...)
	}

	entries, err := o.store.ScheduledEntries(ctx, ownerID)
	if err != nil {
		return err
	}

	existing := make(map[string]domain.ScheduledEntry)
	result := make([]domain.ScheduledEntry, 0, len(entries))
	for _, e := range entries {
		if e.Type == domain.NotificationTypeVaccine {
			existing[e.DedupKey] = e
			continue
		}
		result = append(result, e)
	}

	desiredKeys := make(map[string]struct{}, len(desired))
	for _, in := range desired {
		desiredKeys[in.DedupKey] = struct{}{}
	}

	// Cancel entries whose vaccine is no longer due or was removed.
	var staleIDs []string
	for key, e := range existing {
		if _, ok := desiredKeys[key]; !ok {
			staleIDs = append(staleIDs, e.NotificationID)
		}
	}
	outcomes := osnotify.CancelAll(ctx, o.os, staleIDs)
	if failed := osnotify.FailedCancels(outcomes); failed > 0 {
		metrics.CancelFailures.Add(float64(failed))
		o.log.Warn("Some stale vaccine reminders could not be cancelled",
			"owner_id", ownerID, "attempted", len(outcomes), "failed", failed)
	}

	for _, in := range desired {
		if e, ok := existing[in.DedupKey]; ok {
			if _, lost := missing[in.DedupKey]; !lost {
				// Already live; no scheduler call needed.
				result = append(result, e)
				continue
			}
		}

		content := osnotify.Content{
			Title: in.Title,
			Body:  in.Body,
			Data:  map[string]string{"pet_id": in.PetID, "type": string(domain.NotificationTypeVaccine)},
		}
		id, err := o.os.Schedule(ctx, ownerID, content, osnotify.OneShot(in.TriggerAt))
		if err != nil {
			metrics.ScheduleFailures.WithLabelValues(string(domain.NotificationTypeVaccine)).Inc()
			o.log.Error("Failed to schedule vaccine reminder", "error", err,
				"owner_id", ownerID, "dedup_key", in.DedupKey)
			continue
		}
		metrics.NotificationsScheduled.WithLabelValues(string(domain.NotificationTypeVaccine)).Inc()
		result = append(result, domain.ScheduledEntry{
			NotificationID: id,
			Type:           domain.NotificationTypeVaccine,
			PetID:          in.PetID,
			PetName:        in.PetName,
			ItemName:       in.VaccineName,
			TriggerDate:    in.TriggerAt.Format(time.RFC3339),
			DedupKey:       in.DedupKey,
		})
	}

	return o.store.SaveScheduledEntries(ctx, ownerID, result)
}

// sweepVaccines cancels every vaccine entry; run when the preference is off
func (o *Orchestrator) sweepVaccines(ctx context.Context, ownerID string) error {
	entries, err := o.store.ScheduledEntries(ctx, ownerID)
	if err != nil {
		return err
	}

	var vaccineIDs []string
	kept := make([]domain.ScheduledEntry, 0, len(entries))
	for _, e := range entries {
		if e.Type == domain.NotificationTypeVaccine {
			vaccineIDs = append(vaccineIDs, e.NotificationID)
			continue
		}
		kept = append(kept, e)
	}
	if len(vaccineIDs) == 0 {
		return nil
	}

	outcomes := osnotify.CancelAll(ctx, o.os, vaccineIDs)
	if failed := osnotify.FailedCancels(outcomes); failed > 0 {
		metrics.CancelFailures.Add(float64(failed))
	}
	o.log.Info("Vaccine reminders disabled, swept scheduled entries",
		"owner_id", ownerID, "cancelled", len(vaccineIDs))

	return o.store.SaveScheduledEntries(ctx, ownerID, kept)
}

// syncMedications rebuilds any medication slot whose notification is absent
// or lost, from the durable schedule definitions. Slots that are present
// and live are left untouched; stale slots are only removed through the
// explicit remove path.
func (o *Orchestrator) syncMedications(ctx context.Context, ownerID string, prefs *domain.NotificationPreferences, missing map[string]struct{}) error {
	if !prefs.MedicationRemindersEnabled {
		return nil
	}

	defs, err := o.store.MedSchedules(ctx, ownerID)
	if err != nil {
		return err
	}
	if len(defs) == 0 {
		return nil
	}

	entries, err := o.store.ScheduledEntries(ctx, ownerID)
	if err != nil {
		return err
	}
	present := make(map[string]struct{})
	for _, e := range entries {
		if e.Type == domain.NotificationTypeMedication {
			present[e.DedupKey] = struct{}{}
		}
	}

	rescheduled := 0
	for _, def := range defs {
		for _, t := range def.Times {
			key := domain.MedDedupKey(def.PetID, def.MedicationName, t)
			_, isPresent := present[key]
			_, isMissing := missing[key]
			if isPresent && !isMissing {
				continue
			}

			content := osnotify.Content{
				Title: "Medication reminder",
				Body:  medsched.ReminderBody(def.PetName, def.MedicationName, def.Dosage),
				Data:  map[string]string{"pet_id": def.PetID, "type": string(domain.NotificationTypeMedication)},
			}
			id, err := o.os.Schedule(ctx, ownerID, content, osnotify.DailyAt(t))
			if err != nil {
				metrics.ScheduleFailures.WithLabelValues(string(domain.NotificationTypeMedication)).Inc()
				o.log.Error("Failed to reschedule medication reminder", "error", err,
					"owner_id", ownerID, "dedup_key", key)
				continue
			}
			metrics.NotificationsScheduled.WithLabelValues(string(domain.NotificationTypeMedication)).Inc()
			entries = append(entries, domain.ScheduledEntry{
				NotificationID: id,
				Type:           domain.NotificationTypeMedication,
				PetID:          def.PetID,
				PetName:        def.PetName,
				ItemName:       def.MedicationName,
				TriggerDate:    domain.DailyTriggerDate(t),
				DedupKey:       key,
			})
			// The key is live now; a later definition normalizing to the
			// same name must not schedule it again in this pass.
			present[key] = struct{}{}
			delete(missing, key)
			rescheduled++
		}
	}

	if rescheduled == 0 {
		return nil
	}
	o.log.Info("Rebuilt medication reminders from stored definitions",
		"owner_id", ownerID, "rescheduled", rescheduled)
	return o.store.SaveScheduledEntries(ctx, ownerID, entries)
}
