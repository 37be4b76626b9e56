package reconciler

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/pawprint/go-reminder-service/internal/domain"
	"github.com/pawprint/go-reminder-service/internal/ledger"
	"github.com/pawprint/go-reminder-service/internal/osnotify"
	"github.com/pawprint/go-reminder-service/internal/osnotify/osnotifytest"
	"github.com/pawprint/go-reminder-service/internal/shared/logger"
)

func setup(t *testing.T) (*Reconciler, *ledger.Store, *osnotifytest.Fake) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	store := ledger.NewStore(rdb, logger.NewNop())
	fake := osnotifytest.NewFake()
	return New(store, fake, logger.NewNop()), store, fake
}

func scheduleVaccine(t *testing.T, fake *osnotifytest.Fake, dedupKey string) domain.ScheduledEntry {
	t.Helper()
	id, err := fake.Schedule(context.Background(), "owner-1", osnotify.Content{}, osnotify.DailyAt(domain.ReminderTime{Hour: 9, Minute: 0}))
	if err != nil {
		t.Fatalf("fake schedule: %v", err)
	}
	return domain.ScheduledEntry{
		NotificationID: id,
		Type:           domain.NotificationTypeVaccine,
		PetID:          "p1",
		DedupKey:       dedupKey,
	}
}

func TestEmptyLedgerSkipsSchedulerEntirely(t *testing.T) {
	r, _, fake := setup(t)

	missing, err := r.Run(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if missing != nil {
		t.Errorf("missing = %v, want nil", missing)
	}
	if fake.ListCalls != 0 {
		t.Errorf("ListScheduled called %d times on empty ledger, want 0", fake.ListCalls)
	}
}

func TestPrunesEntriesTheSchedulerLost(t *testing.T) {
	r, store, fake := setup(t)
	ctx := context.Background()

	a := scheduleVaccine(t, fake, "vax_p1_rabies_before")
	b := scheduleVaccine(t, fake, "vax_p1_rabies_day_of")
	c := scheduleVaccine(t, fake, "vax_p1_rabies_after")
	if err := store.SaveScheduledEntries(ctx, "owner-1", []domain.ScheduledEntry{a, b, c}); err != nil {
		t.Fatalf("seed ledger: %v", err)
	}

	// The scheduler silently forgets one of the three.
	fake.Drop(c.NotificationID)

	missing, err := r.Run(ctx, "owner-1")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(missing) != 1 || missing[0] != c.DedupKey {
		t.Errorf("missing = %v, want [%s]", missing, c.DedupKey)
	}

	entries, err := store.ScheduledEntries(ctx, "owner-1")
	if err != nil {
		t.Fatalf("ScheduledEntries() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("ledger holds %d entries after prune, want 2", len(entries))
	}
	for _, e := range entries {
		if e.NotificationID == c.NotificationID {
			t.Errorf("pruned entry %s still present", c.NotificationID)
		}
	}
}

func TestNoDriftMeansNoWriteBack(t *testing.T) {
	r, store, fake := setup(t)
	ctx := context.Background()

	a := scheduleVaccine(t, fake, "vax_p1_rabies_before")
	if err := store.SaveScheduledEntries(ctx, "owner-1", []domain.ScheduledEntry{a}); err != nil {
		t.Fatalf("seed ledger: %v", err)
	}

	missing, err := r.Run(ctx, "owner-1")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if missing != nil {
		t.Errorf("missing = %v, want nil", missing)
	}

	entries, _ := store.ScheduledEntries(ctx, "owner-1")
	if len(entries) != 1 {
		t.Errorf("ledger holds %d entries, want 1", len(entries))
	}
}

func TestReconcilerNeverSchedules(t *testing.T) {
	r, store, fake := setup(t)
	ctx := context.Background()

	a := scheduleVaccine(t, fake, "vax_p1_rabies_before")
	if err := store.SaveScheduledEntries(ctx, "owner-1", []domain.ScheduledEntry{a}); err != nil {
		t.Fatalf("seed ledger: %v", err)
	}
	fake.Drop(a.NotificationID)
	before := fake.ScheduleCalls

	if _, err := r.Run(ctx, "owner-1"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if fake.ScheduleCalls != before {
		t.Errorf("reconciler issued %d schedule calls, want 0", fake.ScheduleCalls-before)
	}
}
