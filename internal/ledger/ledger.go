package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/pawprint/go-reminder-service/internal/domain"
	"github.com/pawprint/go-reminder-service/internal/shared/logger"
)

// Store is the durable reminder ledger. Each owner has two slots: the
// scheduled-notification entries and the medication schedule definitions,
// each held as one serialized collection. Access is whole-collection
// read/replace; callers mutate in memory and write back.
//
// A payload that fails to deserialize reads as an empty collection by
// contract. The system degrades to "no reminders known" instead of failing.
type Store struct {
	rdb *redis.Client
	log *logger.Logger
}

// NewStore creates a ledger store on the given Redis client
func NewStore(rdb *redis.Client, log *logger.Logger) *Store {
	return &Store{rdb: rdb, log: log}
}

func scheduledKey(ownerID string) string {
	return fmt.Sprintf("reminders:%s:scheduled", ownerID)
}

func medSchedulesKey(ownerID string) string {
	return fmt.Sprintf("reminders:%s:med_schedules", ownerID)
}

// ScheduledEntries returns the owner's scheduled-notification ledger.
// Missing or corrupt data reads as empty.
func (s *Store) ScheduledEntries(ctx context.Context, ownerID string) ([]domain.ScheduledEntry, error) {
	key := scheduledKey(ownerID)
	raw, found, err := s.read(ctx, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return []domain.ScheduledEntry{}, nil
	}

	var entries []domain.ScheduledEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		s.log.Warn("Discarding corrupt ledger payload", "key", key, "error", err)
		return []domain.ScheduledEntry{}, nil
	}
	if entries == nil {
		entries = []domain.ScheduledEntry{}
	}
	return entries, nil
}

// SaveScheduledEntries overwrites the owner's scheduled-notification ledger
func (s *Store) SaveScheduledEntries(ctx context.Context, ownerID string, entries []domain.ScheduledEntry) error {
	return s.write(ctx, scheduledKey(ownerID), entries)
}

// MedSchedules returns the owner's medication schedule definitions.
// Missing or corrupt data reads as empty.
func (s *Store) MedSchedules(ctx context.Context, ownerID string) ([]domain.MedSchedule, error) {
	key := medSchedulesKey(ownerID)
	raw, found, err := s.read(ctx, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return []domain.MedSchedule{}, nil
	}

	var defs []domain.MedSchedule
	if err := json.Unmarshal(raw, &defs); err != nil {
		s.log.Warn("Discarding corrupt ledger payload", "key", key, "error", err)
		return []domain.MedSchedule{}, nil
	}
	if defs == nil {
		defs = []domain.MedSchedule{}
	}
	return defs, nil
}

// SaveMedSchedules overwrites the owner's medication schedule definitions
func (s *Store) SaveMedSchedules(ctx context.Context, ownerID string, defs []domain.MedSchedule) error {
	return s.write(ctx, medSchedulesKey(ownerID), defs)
}

// UpsertMedSchedule replaces the definition matching (petID, medicationName)
// or appends a new one
func (s *Store) UpsertMedSchedule(ctx context.Context, ownerID string, def domain.MedSchedule) error {
	defs, err := s.MedSchedules(ctx, ownerID)
	if err != nil {
		return err
	}

	replaced := false
	for i := range defs {
		if defs[i].PetID == def.PetID && defs[i].MedicationName == def.MedicationName {
			defs[i] = def
			replaced = true
			break
		}
	}
	if !replaced {
		defs = append(defs, def)
	}

	return s.SaveMedSchedules(ctx, ownerID, defs)
}

// RemoveMedSchedule filters out the definition matching (petID, medicationName)
func (s *Store) RemoveMedSchedule(ctx context.Context, ownerID, petID, medicationName string) error {
	defs, err := s.MedSchedules(ctx, ownerID)
	if err != nil {
		return err
	}

	kept := defs[:0]
	for _, d := range defs {
		if d.PetID == petID && d.MedicationName == medicationName {
			continue
		}
		kept = append(kept, d)
	}

	return s.SaveMedSchedules(ctx, ownerID, kept)
}

func (s *Store) read(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("ledger read %s: %w", key, err)
	}
	return raw, true, nil
}

func (s *Store) write(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("ledger marshal %s: %w", key, err)
	}
	if err := s.rdb.Set(ctx, key, raw, 0).Err(); err != nil {
		return fmt.Errorf("ledger write %s: %w", key, err)
	}
	return nil
}
