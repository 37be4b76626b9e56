package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationType distinguishes the two reminder families
type NotificationType string

const (
	NotificationTypeVaccine    NotificationType = "vaccine_reminder"
	NotificationTypeMedication NotificationType = "medication_reminder"
)

// TriggerType classifies a vaccine reminder relative to its due date
type TriggerType string

const (
	TriggerBefore TriggerType = "before"
	TriggerDayOf  TriggerType = "day_of"
	TriggerAfter  TriggerType = "after"
)

// MaxReminderTimes caps the number of daily time slots per medication
const MaxReminderTimes = 6

// ScheduledEntry is one ledger row per notification actually issued to the
// scheduler. The dedup key, not the scheduler-assigned id, identifies the
// logical reminder.
type ScheduledEntry struct {
	NotificationID string           `json:"notification_id"`
	Type           NotificationType `json:"type"`
	PetID          string           `json:"pet_id"`
	PetName        string           `json:"pet_name"`
	ItemName       string           `json:"item_name"`
	TriggerDate    string           `json:"trigger_date"` // RFC3339 one-shot or "daily:HH:MM"
	DedupKey       string           `json:"dedup_key"`
}

// ReminderTime is one daily time slot
type ReminderTime struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// Valid reports whether the slot is a real time of day
func (t ReminderTime) Valid() bool {
	return t.Hour >= 0 && t.Hour <= 23 && t.Minute >= 0 && t.Minute <= 59
}

// MedSchedule is the durable source of truth for a medication's intended
// reminder times, independent of whether scheduling succeeded. It survives
// notification loss and is used to rebuild.
type MedSchedule struct {
	PetID          string         `json:"pet_id"`
	PetName        string         `json:"pet_name"`
	MedicationName string         `json:"medication_name"`
	Dosage         string         `json:"dosage"`
	Times          []ReminderTime `json:"times"`
}

// VaccineIntent is one desired vaccine reminder derived from pet data.
// Computed fresh every sync, never persisted; it materializes into a
// ScheduledEntry only once actually scheduled.
type VaccineIntent struct {
	DedupKey    string
	TriggerType TriggerType
	PetID       string
	PetName     string
	VaccineName string
	TriggerAt   time.Time
	Title       string
	Body        string
}

// Pet is the slice of the external pet entity this service needs
type Pet struct {
	ID      string `json:"id" bson:"_id"`
	OwnerID string `json:"owner_id" bson:"owner_id"`
	Name    string `json:"name" bson:"name"`
}

// VaccineExtraction is one vaccine mention pulled out of an interpreted
// document. Dates arrive as free-ish text from the interpretation pipeline.
type VaccineExtraction struct {
	Name      string `json:"name" bson:"name"`
	DateGiven string `json:"date_given,omitempty" bson:"date_given,omitempty"`
	NextDue   string `json:"next_due,omitempty" bson:"next_due,omitempty"`
}

// RecordStatusCompleted marks a health record whose interpretation finished
const RecordStatusCompleted = "completed"

// HealthRecord is an interpreted veterinary document
type HealthRecord struct {
	ID        primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	PetID     string              `json:"pet_id" bson:"pet_id"`
	Status    string              `json:"status" bson:"status"`
	Vaccines  []VaccineExtraction `json:"vaccines,omitempty" bson:"vaccines,omitempty"`
	CreatedAt time.Time           `json:"created_at" bson:"created_at"`
}
