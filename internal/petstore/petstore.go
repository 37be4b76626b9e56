package petstore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pawprint/go-reminder-service/internal/domain"
	"github.com/pawprint/go-reminder-service/internal/shared/mongodb"
)

const (
	petsCollection    = "pets"
	recordsCollection = "health_records"
)

// Store reads pet and health-record data. The reminder engine only consumes
// this data; writes happen elsewhere in the platform.
type Store struct {
	client *mongodb.MongoClient
}

// NewStore creates a pet data store
func NewStore(client *mongodb.MongoClient) *Store {
	return &Store{client: client}
}

// EnsureIndexes creates the indexes the reminder queries rely on
func (s *Store) EnsureIndexes(ctx context.Context) error {
	if err := s.client.CreateIndexes(ctx, petsCollection, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "owner_id", Value: 1}},
			Options: options.Index().SetName("owner_idx"),
		},
	}); err != nil {
		return err
	}

	return s.client.CreateIndexes(ctx, recordsCollection, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "pet_id", Value: 1},
				{Key: "status", Value: 1},
			},
			Options: options.Index().SetName("pet_status_idx"),
		},
	})
}

// Pets returns every pet belonging to the owner
func (s *Store) Pets(ctx context.Context, ownerID string) ([]domain.Pet, error) {
	cursor, err := s.client.Collection(petsCollection).Find(ctx, bson.M{"owner_id": ownerID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var pets []domain.Pet
	if err := cursor.All(ctx, &pets); err != nil {
		return nil, err
	}
	return pets, nil
}

// CompletedRecords returns the pet's health records whose interpretation
// has finished; only these carry usable vaccine extractions.
func (s *Store) CompletedRecords(ctx context.Context, petID string) ([]domain.HealthRecord, error) {
	filter := bson.M{
		"pet_id": petID,
		"status": domain.RecordStatusCompleted,
	}
	cursor, err := s.client.Collection(recordsCollection).Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []domain.HealthRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// OwnerIDs returns every distinct owner that has at least one pet; the
// periodic sweep syncs each of them.
func (s *Store) OwnerIDs(ctx context.Context) ([]string, error) {
	raw, err := s.client.Collection(petsCollection).Distinct(ctx, "owner_id", bson.M{})
	if err != nil {
		return nil, err
	}

	owners := make([]string, 0, len(raw))
	for _, v := range raw {
		if id, ok := v.(string); ok && id != "" {
			owners = append(owners, id)
		}
	}
	return owners, nil
}
