package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationPreferences holds an owner's reminder toggles
type NotificationPreferences struct {
	ID                         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	OwnerID                    string             `json:"owner_id" bson:"owner_id"`
	VaccineRemindersEnabled    bool               `json:"vaccine_reminders_enabled" bson:"vaccine_reminders_enabled"`
	MedicationRemindersEnabled bool               `json:"medication_reminders_enabled" bson:"medication_reminders_enabled"`
	CreatedAt                  time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt                  time.Time          `json:"updated_at" bson:"updated_at"`
}
