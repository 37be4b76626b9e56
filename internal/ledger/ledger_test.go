package ledger

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/pawprint/go-reminder-service/internal/domain"
	"github.com/pawprint/go-reminder-service/internal/shared/logger"
)

func setupStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return NewStore(rdb, logger.NewNop()), mr
}

func TestScheduledEntriesEmptyWhenAbsent(t *testing.T) {
	store, _ := setupStore(t)

	entries, err := store.ScheduledEntries(context.Background(), "owner-1")
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestScheduledEntriesRoundTrip(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	in := []domain.ScheduledEntry{
		{
			NotificationID: "n-1",
			Type:           domain.NotificationTypeVaccine,
			PetID:          "p1",
			PetName:        "Fido",
			ItemName:       "Rabies",
			TriggerDate:    "2026-09-10T09:00:00Z",
			DedupKey:       "vax_p1_rabies_before",
		},
		{
			NotificationID: "n-2",
			Type:           domain.NotificationTypeMedication,
			PetID:          "p1",
			PetName:        "Fido",
			ItemName:       "Amoxicillin",
			TriggerDate:    "daily:09:00",
			DedupKey:       "med_p1_amoxicillin_9:0",
		},
	}

	require.NoError(t, store.SaveScheduledEntries(ctx, "owner-1", in))

	out, err := store.ScheduledEntries(ctx, "owner-1")
	require.NoError(t, err)
	require.Equal(t, in, out)

	// Other owners are unaffected.
	other, err := store.ScheduledEntries(ctx, "owner-2")
	require.NoError(t, err)
	require.Empty(t, other)
}

func TestScheduledEntriesCorruptPayloadReadsAsEmpty(t *testing.T) {
	store, mr := setupStore(t)

	require.NoError(t, mr.Set("reminders:owner-1:scheduled", "{not valid json"))

	entries, err := store.ScheduledEntries(context.Background(), "owner-1")
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestMedSchedulesCorruptPayloadReadsAsEmpty(t *testing.T) {
	store, mr := setupStore(t)

	require.NoError(t, mr.Set("reminders:owner-1:med_schedules", "[[["))

	defs, err := store.MedSchedules(context.Background(), "owner-1")
	require.NoError(t, err)
	require.Empty(t, defs)
}

func TestUpsertMedScheduleReplacesByPetAndName(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	first := domain.MedSchedule{
		PetID:          "p1",
		PetName:        "Fido",
		MedicationName: "Amoxicillin",
		Dosage:         "250mg",
		Times:          []domain.ReminderTime{{Hour: 9, Minute: 0}},
	}
	require.NoError(t, store.UpsertMedSchedule(ctx, "owner-1", first))

	// Different medication appends.
	second := first
	second.MedicationName = "Rimadyl"
	require.NoError(t, store.UpsertMedSchedule(ctx, "owner-1", second))

	// Same (pet, medication) replaces.
	updated := first
	updated.Times = []domain.ReminderTime{{Hour: 9, Minute: 0}, {Hour: 21, Minute: 0}}
	require.NoError(t, store.UpsertMedSchedule(ctx, "owner-1", updated))

	defs, err := store.MedSchedules(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, defs, 2)

	byName := map[string]domain.MedSchedule{}
	for _, d := range defs {
		byName[d.MedicationName] = d
	}
	require.Len(t, byName["Amoxicillin"].Times, 2)
	require.Len(t, byName["Rimadyl"].Times, 1)
}

func TestRemoveMedSchedule(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	def := domain.MedSchedule{
		PetID:          "p1",
		PetName:        "Fido",
		MedicationName: "Amoxicillin",
		Times:          []domain.ReminderTime{{Hour: 9, Minute: 0}},
	}
	require.NoError(t, store.UpsertMedSchedule(ctx, "owner-1", def))

	require.NoError(t, store.RemoveMedSchedule(ctx, "owner-1", "p1", "Amoxicillin"))

	defs, err := store.MedSchedules(ctx, "owner-1")
	require.NoError(t, err)
	require.Empty(t, defs)

	// Removing again is a no-op.
	require.NoError(t, store.RemoveMedSchedule(ctx, "owner-1", "p1", "Amoxicillin"))
}
