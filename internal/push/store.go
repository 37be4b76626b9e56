package push

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pawprint/go-reminder-service/internal/shared/mongodb"
)

const subscriptionsCollection = "push_subscriptions"

// Subscription is one device's web push registration
type Subscription struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	OwnerID    string             `json:"owner_id" bson:"owner_id"`
	Endpoint   string             `json:"endpoint" bson:"endpoint"`
	P256dhKey  string             `json:"p256dh_key" bson:"p256dh_key"`
	AuthKey    string             `json:"auth_key" bson:"auth_key"`
	DeviceName string             `json:"device_name,omitempty" bson:"device_name,omitempty"`
	CreatedAt  time.Time          `json:"created_at" bson:"created_at"`
}

// Store persists push subscriptions
type Store struct {
	client *mongodb.MongoClient
}

// NewStore creates a push subscription store
func NewStore(client *mongodb.MongoClient) *Store {
	return &Store{client: client}
}

// EnsureIndexes creates the owner lookup index
func (s *Store) EnsureIndexes(ctx context.Context) error {
	return s.client.CreateIndexes(ctx, subscriptionsCollection, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "owner_id", Value: 1}},
			Options: options.Index().SetName("owner_idx"),
		},
	})
}

// Create registers a device subscription, replacing any existing row for
// the same endpoint
func (s *Store) Create(ctx context.Context, sub *Subscription) error {
	sub.CreatedAt = time.Now()

	filter := bson.M{"owner_id": sub.OwnerID, "endpoint": sub.Endpoint}
	update := bson.M{"$set": sub}
	opts := options.Update().SetUpsert(true)

	_, err := s.client.Collection(subscriptionsCollection).UpdateOne(ctx, filter, update, opts)
	return err
}

// ListByOwner returns every subscription for the owner
func (s *Store) ListByOwner(ctx context.Context, ownerID string) ([]Subscription, error) {
	cursor, err := s.client.Collection(subscriptionsCollection).Find(ctx, bson.M{"owner_id": ownerID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var subs []Subscription
	if err := cursor.All(ctx, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}

// Delete removes a subscription by endpoint
func (s *Store) Delete(ctx context.Context, ownerID, endpoint string) error {
	_, err := s.client.Collection(subscriptionsCollection).DeleteOne(ctx, bson.M{
		"owner_id": ownerID,
		"endpoint": endpoint,
	})
	return err
}

// HasActiveSubscription reports whether the owner can receive pushes at
// all; this backs the scheduler's permission check.
func (s *Store) HasActiveSubscription(ctx context.Context, ownerID string) (bool, error) {
	count, err := s.client.Collection(subscriptionsCollection).CountDocuments(ctx,
		bson.M{"owner_id": ownerID}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
