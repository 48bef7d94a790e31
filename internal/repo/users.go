// Package repo – per-user accumulation records.
//
// Users are keyed by phone number. Links behave as a set; locations are
// append-only. AddLinkToUser folds the original check-then-append into a
// single filtered update so a same-user duplicate submission cannot append
// the link twice.
package repo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/headstart/go-poi-backend/internal/domain"
)

// GetUser returns the user for phoneNo, or ErrNotFound.
func GetUser(ctx context.Context, db *mongo.Database, phoneNo string) (*domain.User, error) {
	var rec domain.User
	err := db.Collection(CollUsers).FindOne(ctx, bson.M{"phoneNo": phoneNo}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateUser inserts a fresh user record with empty links and locations.
// Returns ErrDuplicate when the phone number is already registered; callers
// treat that as already-created.
func CreateUser(ctx context.Context, db *mongo.Database, name, phoneNo string) error {
	now := time.Now().UTC()
	rec := domain.User{
		Name:      name,
		PhoneNo:   phoneNo,
		Links:     []domain.UserLink{},
		Locations: []domain.UserLocation{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := db.Collection(CollUsers).InsertOne(ctx, rec)
	return mapWriteErr(err)
}

// AddLinkToUser appends link to the user's links unless it is already
// present. The "not already present" condition lives in the update filter,
// so concurrent duplicate submissions cannot both append.
func AddLinkToUser(ctx context.Context, db *mongo.Database, phoneNo, link string) error {
	now := time.Now().UTC()
	_, err := db.Collection(CollUsers).UpdateOne(ctx,
		bson.M{"phoneNo": phoneNo, "links.url": bson.M{"$ne": link}},
		bson.M{
			"$push": bson.M{"links": domain.UserLink{URL: link, AddedAt: now}},
			"$set":  bson.M{"updated_at": now},
		},
	)
	return err
}

// AddLocationsToUser appends the given locations, each tagged with the
// source link and the append time. The caller is responsible for filtering
// out sentinel-coordinate entries first; the store does not filter.
func AddLocationsToUser(ctx context.Context, db *mongo.Database, phoneNo string, locations []domain.Location, sourceLink string) error {
	if len(locations) == 0 {
		return nil
	}
	now := time.Now().UTC()
	tagged := make([]domain.UserLocation, 0, len(locations))
	for _, loc := range locations {
		tagged = append(tagged, domain.UserLocation{
			Location:   loc,
			SourceLink: sourceLink,
			AddedAt:    now,
		})
	}
	_, err := db.Collection(CollUsers).UpdateOne(ctx,
		bson.M{"phoneNo": phoneNo},
		bson.M{
			"$push": bson.M{"locations": bson.M{"$each": tagged}},
			"$set":  bson.M{"updated_at": now},
		},
	)
	return err
}

// SetLocationTGID fills the catalog id on every stored copy of a POI for
// one user. Used by the catalog backfill pass; extraction always writes
// tgid as null.
func SetLocationTGID(ctx context.Context, db *mongo.Database, phoneNo, poiName, tgid string) error {
	_, err := db.Collection(CollUsers).UpdateOne(ctx,
		bson.M{"phoneNo": phoneNo},
		bson.M{"$set": bson.M{
			"locations.$[loc].tgid": tgid,
			"updated_at":            time.Now().UTC(),
		}},
		options.Update().SetArrayFilters(options.ArrayFilters{
			Filters: []interface{}{bson.M{"loc.poi_name": poiName, "loc.tgid": nil}},
		}),
	)
	return err
}
