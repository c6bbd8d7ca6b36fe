package database

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	config "github.com/phillip/pawshome-go/config"
	models "github.com/phillip/pawshome-go/models"
)

// Connect opens the process-wide client and pings the primary.
func Connect(ctx context.Context, cfg *config.Config) (*mongo.Client, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1).SetStrict(true)
	opts := options.Client().
		ApplyURI(cfg.MongoURI).
		SetServerAPIOptions(serverAPI).
		SetTimeout(cfg.RequestTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

func Disconnect(ctx context.Context, client *mongo.Client) error {
	if client == nil {
		return nil
	}
	return client.Disconnect(ctx)
}

// Indexes lists every index the service relies on, per collection.
func Indexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		models.CampaignCollection: {
			{Keys: bson.D{{Key: "creator", Value: 1}}},
			{Keys: bson.D{{Key: "contributions.donor", Value: 1}}},
			{Keys: bson.D{{Key: "isPaused", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		models.PetCollection: {
			{Keys: bson.D{{Key: "owner", Value: 1}}},
			{Keys: bson.D{{Key: "adopted", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		models.AdoptionCollection: {
			{Keys: bson.D{{Key: "adopter", Value: 1}}},
			{Keys: bson.D{{Key: "petOwner", Value: 1}}},
		},
		models.UserCollection: {
			{Keys: bson.D{{Key: "uid", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
}

// EnsureIndexes creates missing indexes. Existing ones are left alone.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for collection, specs := range Indexes() {
		if _, err := db.Collection(collection).Indexes().CreateMany(ctx, specs); err != nil {
			return fmt.Errorf("ensure indexes on %s: %w", collection, err)
		}
	}
	return nil
}
