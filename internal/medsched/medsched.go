package medsched

import (
	"context"
	"fmt"
	"strings"

	"github.com/pawprint/go-reminder-service/internal/domain"
	"github.com/pawprint/go-reminder-service/internal/ledger"
	"github.com/pawprint/go-reminder-service/internal/metrics"
	"github.com/pawprint/go-reminder-service/internal/osnotify"
	apperrors "github.com/pawprint/go-reminder-service/internal/shared/errors"
	"github.com/pawprint/go-reminder-service/internal/shared/logger"
)

// Scheduler manages per-medication recurring daily reminders: the explicit,
// user-driven path. Unlike the background sync, failures here propagate so
// the caller can tell the user.
type Scheduler struct {
	store *ledger.Store
	os    osnotify.Scheduler
	log   *logger.Logger
}

// New creates a medication reminder scheduler
func New(store *ledger.Store, os osnotify.Scheduler, log *logger.Logger) *Scheduler {
	return &Scheduler{store: store, os: os, log: log}
}

// SaveRequest describes one medication's intended reminder times
type SaveRequest struct {
	OwnerID        string                `json:"owner_id"`
	PetID          string                `json:"pet_id"`
	PetName        string                `json:"pet_name"`
	MedicationName string                `json:"medication_name"`
	Dosage         string                `json:"dosage"`
	Times          []domain.ReminderTime `json:"times"`
}

func (r SaveRequest) validate() error {
	if r.OwnerID == "" || r.PetID == "" || r.MedicationName == "" {
		return apperrors.NewValidationError("owner_id, pet_id and medication_name are required", nil)
	}
	if len(r.Times) > domain.MaxReminderTimes {
		return apperrors.NewValidationError(
			fmt.Sprintf("at most %d reminder times are allowed", domain.MaxReminderTimes), nil)
	}
	seen := make(map[int]struct{}, len(r.Times))
	for _, t := range r.Times {
		if !t.Valid() {
			return apperrors.NewValidationError(
				fmt.Sprintf("invalid reminder time %d:%d", t.Hour, t.Minute), nil)
		}
		// Repeated slots would collapse onto one dedup key and leave two
		// live ledger entries for it.
		slot := t.Hour*60 + t.Minute
		if _, dup := seen[slot]; dup {
			return apperrors.NewValidationError(
				fmt.Sprintf("duplicate reminder time %d:%d", t.Hour, t.Minute), nil)
		}
		seen[slot] = struct{}{}
	}
	return nil
}

// Schedule returns the stored definition for (petID, medicationName), or a
// not-found error. The lookup is exact on the name as stored.
func (s *Scheduler) Schedule(ctx context.Context, ownerID, petID, medicationName string) (*domain.MedSchedule, error) {
	defs, err := s.store.MedSchedules(ctx, ownerID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load medication schedules", err)
	}
	for i := range defs {
		if defs[i].PetID == petID && defs[i].MedicationName == medicationName {
			return &defs[i], nil
		}
	}
	return nil, apperrors.NewNotFoundError("medication schedule not found", nil)
}

// SetReminder replaces the medication's reminders wholesale: every existing
// time slot is cancelled and the requested set scheduled fresh. Rebuilding
// instead of diffing keeps the operation idempotent, and the slot count is
// capped so the cost stays bounded. The definition is persisted even when
// individual schedule calls fail; the sync pass rebuilds from it later.
func (s *Scheduler) SetReminder(ctx context.Context, req SaveRequest) error {
	if err := req.validate(); err != nil {
		return err
	}

	granted, err := s.os.RequestPermission(ctx, req.OwnerID)
	if err != nil {
		return apperrors.NewInternalError("failed to check notification permission", err)
	}
	if !granted {
		return apperrors.NewPermissionDeniedError("notifications are not enabled for this account", nil)
	}

	entries, err := s.store.ScheduledEntries(ctx, req.OwnerID)
	if err != nil {
		return apperrors.NewInternalError("failed to load scheduled reminders", err)
	}

	kept := s.sweepMedication(ctx, entries, req.PetID, req.MedicationName)

	for _, t := range req.Times {
		content := osnotify.Content{
			Title: "Medication reminder",
			Body:  ReminderBody(req.PetName, req.MedicationName, req.Dosage),
			Data:  map[string]string{"pet_id": req.PetID, "type": string(domain.NotificationTypeMedication)},
		}
		id, err := s.os.Schedule(ctx, req.OwnerID, content, osnotify.DailyAt(t))
		if err != nil {
			// One failed slot must not sink the rest.
			metrics.ScheduleFailures.WithLabelValues(string(domain.NotificationTypeMedication)).Inc()
			s.log.Error("Failed to schedule medication reminder", "error", err,
				"pet_id", req.PetID, "medication", req.MedicationName, "hour", t.Hour, "minute", t.Minute)
			continue
		}
		metrics.NotificationsScheduled.WithLabelValues(string(domain.NotificationTypeMedication)).Inc()
		kept = append(kept, domain.ScheduledEntry{
			NotificationID: id,
			Type:           domain.NotificationTypeMedication,
			PetID:          req.PetID,
			PetName:        req.PetName,
			ItemName:       req.MedicationName,
			TriggerDate:    domain.DailyTriggerDate(t),
			DedupKey:       domain.MedDedupKey(req.PetID, req.MedicationName, t),
		})
	}

	if err := s.store.SaveScheduledEntries(ctx, req.OwnerID, kept); err != nil {
		return apperrors.NewInternalError("failed to persist scheduled reminders", err)
	}

	def := domain.MedSchedule{
		PetID:          req.PetID,
		PetName:        req.PetName,
		MedicationName: req.MedicationName,
		Dosage:         req.Dosage,
		Times:          req.Times,
	}
	if err := s.store.UpsertMedSchedule(ctx, req.OwnerID, def); err != nil {
		return apperrors.NewInternalError("failed to persist medication schedule", err)
	}

	s.log.Info("Saved medication reminder", "owner_id", req.OwnerID,
		"pet_id", req.PetID, "medication", req.MedicationName, "times", len(req.Times))
	return nil
}

// RemoveReminder cancels every scheduled slot for the medication and
// deletes its definition
func (s *Scheduler) RemoveReminder(ctx context.Context, ownerID, petID, medicationName string) error {
	if ownerID == "" || petID == "" || medicationName == "" {
		return apperrors.NewValidationError("owner_id, pet_id and medication_name are required", nil)
	}

	entries, err := s.store.ScheduledEntries(ctx, ownerID)
	if err != nil {
		return apperrors.NewInternalError("failed to load scheduled reminders", err)
	}

	kept := s.sweepMedication(ctx, entries, petID, medicationName)
	if err := s.store.SaveScheduledEntries(ctx, ownerID, kept); err != nil {
		return apperrors.NewInternalError("failed to persist scheduled reminders", err)
	}

	if err := s.store.RemoveMedSchedule(ctx, ownerID, petID, medicationName); err != nil {
		return apperrors.NewInternalError("failed to remove medication schedule", err)
	}

	s.log.Info("Removed medication reminder", "owner_id", ownerID,
		"pet_id", petID, "medication", medicationName)
	return nil
}

// sweepMedication cancels every scheduled entry belonging to the medication,
// tolerating cancellation failures, and returns the remaining entries.
func (s *Scheduler) sweepMedication(ctx context.Context, entries []domain.ScheduledEntry, petID, medicationName string) []domain.ScheduledEntry {
	prefix := domain.MedDedupPrefix(petID, medicationName)

	var staleIDs []string
	kept := make([]domain.ScheduledEntry, 0, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.DedupKey, prefix) {
			staleIDs = append(staleIDs, e.NotificationID)
			continue
		}
		kept = append(kept, e)
	}

	outcomes := osnotify.CancelAll(ctx, s.os, staleIDs)
	if failed := osnotify.FailedCancels(outcomes); failed > 0 {
		metrics.CancelFailures.Add(float64(failed))
		s.log.Warn("Some medication reminders could not be cancelled",
			"pet_id", petID, "medication", medicationName,
			"attempted", len(outcomes), "failed", failed)
	}
	return kept
}

// ReminderBody renders the notification body for a medication slot; the
// sync path uses it to rebuild slots from stored definitions with the same
// text the explicit save produced.
func ReminderBody(petName, medicationName, dosage string) string {
	if dosage != "" {
		return fmt.Sprintf("Time to give %s their %s (%s).", petName, medicationName, dosage)
	}
	return fmt.Sprintf("Time to give %s their %s.", petName, medicationName)
}
