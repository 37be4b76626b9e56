package medsched

import (
	"context"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/pawprint/go-reminder-service/internal/domain"
	"github.com/pawprint/go-reminder-service/internal/ledger"
	"github.com/pawprint/go-reminder-service/internal/osnotify/osnotifytest"
	apperrors "github.com/pawprint/go-reminder-service/internal/shared/errors"
	"github.com/pawprint/go-reminder-service/internal/shared/logger"
)

func setup(t *testing.T) (*Scheduler, *ledger.Store, *osnotifytest.Fake) {
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

func amoxicillinRequest() SaveRequest {
	return SaveRequest{
		OwnerID:        "owner-1",
		PetID:          "p1",
		PetName:        "Fido",
		MedicationName: "Amoxicillin",
		Dosage:         "250mg",
		Times:          []domain.ReminderTime{{Hour: 9, Minute: 0}, {Hour: 21, Minute: 0}},
	}
}

func dedupKeys(entries []domain.ScheduledEntry) map[string]bool {
	keys := make(map[string]bool, len(entries))
	for _, e := range entries {
		keys[e.DedupKey] = true
	}
	return keys
}

func TestSetReminderCreatesExpectedEntries(t *testing.T) {
	s, store, _ := setup(t)
	ctx := context.Background()

	if err := s.SetReminder(ctx, amoxicillinRequest()); err != nil {
		t.Fatalf("SetReminder() error = %v", err)
	}

	entries, err := store.ScheduledEntries(ctx, "owner-1")
	if err != nil {
		t.Fatalf("ScheduledEntries() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}

	keys := dedupKeys(entries)
	if !keys["med_p1_amoxicillin_9:0"] || !keys["med_p1_amoxicillin_21:0"] {
		t.Errorf("unexpected dedup keys: %v", keys)
	}
	for _, e := range entries {
		if e.Type != domain.NotificationTypeMedication {
			t.Errorf("entry type = %s, want medication", e.Type)
		}
		if !strings.HasPrefix(e.TriggerDate, "daily:") {
			t.Errorf("trigger date %q is not a daily descriptor", e.TriggerDate)
		}
	}

	def, err := s.Schedule(ctx, "owner-1", "p1", "Amoxicillin")
	if err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}
	if def.Dosage != "250mg" || len(def.Times) != 2 {
		t.Errorf("stored definition = %+v", def)
	}
}

func TestSetReminderIsIdempotent(t *testing.T) {
	s, store, fake := setup(t)
	ctx := context.Background()

	req := amoxicillinRequest()
	if err := s.SetReminder(ctx, req); err != nil {
		t.Fatalf("first SetReminder() error = %v", err)
	}
	if err := s.SetReminder(ctx, req); err != nil {
		t.Fatalf("second SetReminder() error = %v", err)
	}

	entries, _ := store.ScheduledEntries(ctx, "owner-1")
	if len(entries) != 2 {
		t.Errorf("got %d entries after re-save, want 2 (old slots purged first)", len(entries))
	}
	if fake.PendingCount() != 2 {
		t.Errorf("scheduler holds %d pending notifications, want 2", fake.PendingCount())
	}

	defs, _ := store.MedSchedules(ctx, "owner-1")
	if len(defs) != 1 {
		t.Errorf("got %d definitions, want 1", len(defs))
	}
}

func TestSetReminderReplacesChangedTimes(t *testing.T) {
	s, store, _ := setup(t)
	ctx := context.Background()

	if err := s.SetReminder(ctx, amoxicillinRequest()); err != nil {
		t.Fatalf("SetReminder() error = %v", err)
	}

	changed := amoxicillinRequest()
	changed.Times = []domain.ReminderTime{{Hour: 8, Minute: 30}}
	if err := s.SetReminder(ctx, changed); err != nil {
		t.Fatalf("SetReminder() error = %v", err)
	}

	entries, _ := store.ScheduledEntries(ctx, "owner-1")
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].DedupKey != "med_p1_amoxicillin_8:30" {
		t.Errorf("DedupKey = %q, want med_p1_amoxicillin_8:30", entries[0].DedupKey)
	}
}

func TestRemoveReminderClearsEntriesAndDefinition(t *testing.T) {
	s, store, fake := setup(t)
	ctx := context.Background()

	if err := s.SetReminder(ctx, amoxicillinRequest()); err != nil {
		t.Fatalf("SetReminder() error = %v", err)
	}

	if err := s.RemoveReminder(ctx, "owner-1", "p1", "Amoxicillin"); err != nil {
		t.Fatalf("RemoveReminder() error = %v", err)
	}

	entries, _ := store.ScheduledEntries(ctx, "owner-1")
	if len(entries) != 0 {
		t.Errorf("got %d entries after removal, want 0", len(entries))
	}
	defs, _ := store.MedSchedules(ctx, "owner-1")
	if len(defs) != 0 {
		t.Errorf("got %d definitions after removal, want 0", len(defs))
	}
	if fake.PendingCount() != 0 {
		t.Errorf("scheduler still holds %d pending notifications", fake.PendingCount())
	}

	if _, err := s.Schedule(ctx, "owner-1", "p1", "Amoxicillin"); apperrors.CodeOf(err) != "NOT_FOUND" {
		t.Errorf("Schedule() after removal error = %v, want NOT_FOUND", err)
	}
}

func TestRemoveReminderLeavesOtherMedicationsAlone(t *testing.T) {
	s, store, _ := setup(t)
	ctx := context.Background()

	if err := s.SetReminder(ctx, amoxicillinRequest()); err != nil {
		t.Fatalf("SetReminder() error = %v", err)
	}
	other := amoxicillinRequest()
	other.MedicationName = "Rimadyl"
	other.Times = []domain.ReminderTime{{Hour: 7, Minute: 15}}
	if err := s.SetReminder(ctx, other); err != nil {
		t.Fatalf("SetReminder() error = %v", err)
	}

	if err := s.RemoveReminder(ctx, "owner-1", "p1", "Amoxicillin"); err != nil {
		t.Fatalf("RemoveReminder() error = %v", err)
	}

	entries, _ := store.ScheduledEntries(ctx, "owner-1")
	if len(entries) != 1 || entries[0].DedupKey != "med_p1_rimadyl_7:15" {
		t.Errorf("surviving entries = %+v, want only rimadyl slot", entries)
	}
}

func TestSetReminderPermissionDenied(t *testing.T) {
	s, store, fake := setup(t)
	fake.PermissionGranted = false

	err := s.SetReminder(context.Background(), amoxicillinRequest())
	if apperrors.CodeOf(err) != "PERMISSION_DENIED" {
		t.Fatalf("SetReminder() error = %v, want PERMISSION_DENIED", err)
	}

	entries, _ := store.ScheduledEntries(context.Background(), "owner-1")
	if len(entries) != 0 {
		t.Errorf("entries scheduled despite denied permission: %+v", entries)
	}
}

func TestSetReminderValidation(t *testing.T) {
	s, _, _ := setup(t)

	tests := []struct {
		name   string
		mutate func(*SaveRequest)
	}{
		{name: "missing owner", mutate: func(r *SaveRequest) { r.OwnerID = "" }},
		{name: "missing pet", mutate: func(r *SaveRequest) { r.PetID = "" }},
		{name: "missing medication", mutate: func(r *SaveRequest) { r.MedicationName = "" }},
		{name: "too many times", mutate: func(r *SaveRequest) {
			r.Times = make([]domain.ReminderTime, domain.MaxReminderTimes+1)
		}},
		{name: "invalid hour", mutate: func(r *SaveRequest) {
			r.Times = []domain.ReminderTime{{Hour: 24, Minute: 0}}
		}},
		{name: "duplicate time", mutate: func(r *SaveRequest) {
			r.Times = []domain.ReminderTime{{Hour: 9, Minute: 0}, {Hour: 9, Minute: 0}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := amoxicillinRequest()
			tt.mutate(&req)
			if err := s.SetReminder(context.Background(), req); apperrors.CodeOf(err) != "VALIDATION_ERROR" {
				t.Errorf("SetReminder() error = %v, want VALIDATION_ERROR", err)
			}
		})
	}
}

func TestSetReminderRejectsDuplicateSlots(t *testing.T) {
	s, store, fake := setup(t)
	ctx := context.Background()

	req := amoxicillinRequest()
	req.Times = []domain.ReminderTime{{Hour: 9, Minute: 0}, {Hour: 9, Minute: 0}}

	if err := s.SetReminder(ctx, req); apperrors.CodeOf(err) != "VALIDATION_ERROR" {
		t.Fatalf("SetReminder() error = %v, want VALIDATION_ERROR", err)
	}

	// Nothing may be scheduled or persisted: two entries sharing the dedup
	// key med_p1_amoxicillin_9:0 would double-notify daily.
	if fake.ScheduleCalls != 0 {
		t.Errorf("scheduler called %d times, want 0", fake.ScheduleCalls)
	}
	entries, _ := store.ScheduledEntries(ctx, "owner-1")
	if len(entries) != 0 {
		t.Errorf("got %d entries, want 0", len(entries))
	}
}

func TestSetReminderToleratesScheduleFailures(t *testing.T) {
	s, store, fake := setup(t)
	ctx := context.Background()

	fake.ScheduleErr = context.DeadlineExceeded
	if err := s.SetReminder(ctx, amoxicillinRequest()); err != nil {
		t.Fatalf("SetReminder() error = %v, want nil despite schedule failures", err)
	}

	entries, _ := store.ScheduledEntries(ctx, "owner-1")
	if len(entries) != 0 {
		t.Errorf("got %d entries, want 0 when every schedule call failed", len(entries))
	}

	// The durable definition survives regardless, so a later sync rebuilds.
	defs, _ := store.MedSchedules(ctx, "owner-1")
	if len(defs) != 1 {
		t.Errorf("got %d definitions, want 1", len(defs))
	}
}
