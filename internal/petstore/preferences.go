package petstore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pawprint/go-reminder-service/internal/domain"
	"github.com/pawprint/go-reminder-service/internal/shared/mongodb"
)

const preferencesCollection = "notification_preferences"

// PreferencesRepository handles notification preference data operations
type PreferencesRepository struct {
	client *mongodb.MongoClient
}

// NewPreferencesRepository creates a new preferences repository
func NewPreferencesRepository(client *mongodb.MongoClient) *PreferencesRepository {
	return &PreferencesRepository{client: client}
}

// Get retrieves an owner's preferences. An owner with no stored row gets
// the defaults: both reminder families enabled.
func (r *PreferencesRepository) Get(ctx context.Context, ownerID string) (*domain.NotificationPreferences, error) {
	var prefs domain.NotificationPreferences
	filter := bson.M{"owner_id": ownerID}
	err := r.client.Collection(preferencesCollection).FindOne(ctx, filter).Decode(&prefs)

	if err == mongo.ErrNoDocuments {
		return &domain.NotificationPreferences{
			OwnerID:                    ownerID,
			VaccineRemindersEnabled:    true,
			MedicationRemindersEnabled: true,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	return &prefs, nil
}

// Update upserts an owner's preferences
func (r *PreferencesRepository) Update(ctx context.Context, prefs *domain.NotificationPreferences) error {
	now := time.Now()
	prefs.UpdatedAt = now

	filter := bson.M{"owner_id": prefs.OwnerID}
	update := bson.M{"$set": bson.M{
		"owner_id":                     prefs.OwnerID,
		"vaccine_reminders_enabled":    prefs.VaccineRemindersEnabled,
		"medication_reminders_enabled": prefs.MedicationRemindersEnabled,
		"updated_at":                   prefs.UpdatedAt,
	}, "$setOnInsert": bson.M{
		"created_at": now,
	}}
	opts := options.Update().SetUpsert(true)

	_, err := r.client.Collection(preferencesCollection).UpdateOne(ctx, filter, update, opts)
	return err
}
