// Package repo implements the data persistence layer for domain records,
// backed by MongoDB. This file contains connection bootstrapping and index
// creation. The unique indexes declared here are load-bearing: they are the
// concurrency guard for the global link cache (first writer wins) and the
// atomic insert-if-absent primitive behind the message deduplication gate.
package repo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names. Part of the deployment contract: downstream consumers
// read global_links and users directly.
const (
	CollGlobalLinks       = "global_links"
	CollUsers             = "users"
	CollProcessedMessages = "processed_messages"
	CollJobs              = "jobs"
)

// jobTTL bounds how long job status records are retained. Polling clients
// only care about recent runs.
const jobTTL = 24 * time.Hour

// Connect opens a MongoDB client, verifies the connection with a ping, and
// returns the handle for the named database.
func Connect(ctx context.Context, uri, dbName string) (*mongo.Client, *mongo.Database, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, err
	}
	return client, client.Database(dbName), nil
}

// EnsureIndexes creates the indexes the repo functions rely on. Safe to call
// on every startup; Mongo treats re-creation of an identical index as a no-op.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	// Global cache: one document per link, geospatial coverage of locations.
	_, err := db.Collection(CollGlobalLinks).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "link", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "locations.geo_location", Value: "2dsphere"}}},
	})
	if err != nil {
		return err
	}

	// Users: one document per phone number.
	_, err = db.Collection(CollUsers).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "phoneNo", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "locations.geo_location", Value: "2dsphere"}}},
		{Keys: bson.D{{Key: "links.url", Value: 1}}},
	})
	if err != nil {
		return err
	}

	// Dedup gate: the unique key makes MarkProcessed an atomic reserve.
	_, err = db.Collection(CollProcessedMessages).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "key", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}

	// Job status: unique id plus TTL-based expiry.
	_, err = db.Collection(CollJobs).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "job_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "created_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(jobTTL / time.Second))},
	})
	return err
}
