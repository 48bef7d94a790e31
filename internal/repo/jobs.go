// Package repo – pipeline job status records.
//
// Every accepted inbound message gets a job record that moves from running
// to a terminal done/failed state. The TTL index in db.go expires old
// records; polling clients only see recent runs.
package repo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/headstart/go-poi-backend/internal/domain"
)

// CreateJob inserts a running job record for the given link and user.
func CreateJob(ctx context.Context, db *mongo.Database, id, link, phoneNo string) error {
	now := time.Now().UTC()
	rec := domain.Job{
		ID:        id,
		Link:      link,
		PhoneNo:   phoneNo,
		Status:    domain.JobRunning,
		Locations: []domain.Location{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := db.Collection(CollJobs).InsertOne(ctx, rec)
	return mapWriteErr(err)
}

// CompleteJob marks the job done and attaches the produced locations.
func CompleteJob(ctx context.Context, db *mongo.Database, id string, locations []domain.Location, author *string, cacheHit bool) error {
	if locations == nil {
		locations = []domain.Location{}
	}
	_, err := db.Collection(CollJobs).UpdateOne(ctx,
		bson.M{"job_id": id},
		bson.M{"$set": bson.M{
			"status":     domain.JobDone,
			"locations":  locations,
			"author":     author,
			"cache_hit":  cacheHit,
			"updated_at": time.Now().UTC(),
		}},
	)
	return err
}

// FailJob marks the job failed with a terminal reason.
func FailJob(ctx context.Context, db *mongo.Database, id, reason string) error {
	_, err := db.Collection(CollJobs).UpdateOne(ctx,
		bson.M{"job_id": id},
		bson.M{"$set": bson.M{
			"status":     domain.JobFailed,
			"error":      reason,
			"updated_at": time.Now().UTC(),
		}},
	)
	return err
}

// GetJob returns the job record for id, or ErrNotFound.
func GetJob(ctx context.Context, db *mongo.Database, id string) (*domain.Job, error) {
	var rec domain.Job
	err := db.Collection(CollJobs).FindOne(ctx, bson.M{"job_id": id}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
