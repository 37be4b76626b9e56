package domain

import (
	"fmt"
	"strings"
)

// NormalizeItemName lowercases and trims a vaccine or medication name so
// that dedup keys are stable across cosmetic differences in source data.
func NormalizeItemName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// VaccineDedupKey builds the deterministic key for one vaccine reminder:
// vax_{petID}_{normalizedName}_{before|day_of|after}
func VaccineDedupKey(petID, vaccineName string, trigger TriggerType) string {
	return fmt.Sprintf("vax_%s_%s_%s", petID, NormalizeItemName(vaccineName), trigger)
}

// MedDedupKey builds the deterministic key for one medication time slot:
// med_{petID}_{normalizedName}_{hour}:{minute}
func MedDedupKey(petID, medicationName string, t ReminderTime) string {
	return fmt.Sprintf("med_%s_%s_%d:%d", petID, NormalizeItemName(medicationName), t.Hour, t.Minute)
}

// MedDedupPrefix matches every time slot of one medication; used for the
// cancellation sweep on save and removal.
func MedDedupPrefix(petID, medicationName string) string {
	return fmt.Sprintf("med_%s_%s_", petID, NormalizeItemName(medicationName))
}

// DailyTriggerDate renders the normalized daily-recurrence descriptor
// stored in a ledger entry's trigger date.
func DailyTriggerDate(t ReminderTime) string {
	return fmt.Sprintf("daily:%02d:%02d", t.Hour, t.Minute)
}
