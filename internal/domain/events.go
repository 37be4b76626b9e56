package domain

import "time"

// Event types that trigger a reminder sync for an owner
const (
	EventPetUpdated        = "pet.updated"
	EventRecordInterpreted = "record.interpreted"
	EventAppForeground     = "app.foreground"
)

// Event is a sync trigger published by the pet platform
type Event struct {
	Type      string    `json:"type"`
	OwnerID   string    `json:"owner_id"`
	Timestamp time.Time `json:"timestamp"`
}
