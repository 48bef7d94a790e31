// Package repo – global link cache.
//
// The global_links collection is a write-once-then-append-metadata cache:
// the locations payload is immutable after the first successful insert, and
// later hits only bump processed_count. The unique index on link makes
// concurrent first-time inserts resolve to a single winner.
package repo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/headstart/go-poi-backend/internal/domain"
)

// GetGlobalLink returns the cache entry for link, or ErrNotFound.
func GetGlobalLink(ctx context.Context, db *mongo.Database, link string) (*domain.GlobalLink, error) {
	var rec domain.GlobalLink
	err := db.Collection(CollGlobalLinks).FindOne(ctx, bson.M{"link": link}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// SaveGlobalLink inserts a new cache entry with processed_count = 1. An
// empty locations slice is stored as an empty array (not null) so the entry
// still counts as processed. Returns ErrDuplicate when another writer got
// there first.
func SaveGlobalLink(ctx context.Context, db *mongo.Database, link string, author *string, locations []domain.Location) error {
	if locations == nil {
		locations = []domain.Location{}
	}
	rec := domain.GlobalLink{
		Link:           link,
		Author:         author,
		Locations:      locations,
		ProcessedAt:    time.Now().UTC(),
		ProcessedCount: 1,
	}
	_, err := db.Collection(CollGlobalLinks).InsertOne(ctx, rec)
	return mapWriteErr(err)
}

// IncrementProcessedCount bumps the hit counter for link. Best effort: a
// lost update under concurrent increments is acceptable, and a missing
// record is not an error.
func IncrementProcessedCount(ctx context.Context, db *mongo.Database, link string) error {
	_, err := db.Collection(CollGlobalLinks).UpdateOne(ctx,
		bson.M{"link": link},
		bson.M{"$inc": bson.M{"processed_count": 1}},
	)
	return err
}
