// Package repo – message deduplication gate.
//
// MarkProcessed is an atomic insert-if-absent on the unique message key:
// the first delivery reserves the key and every redelivery gets
// ErrDuplicate. This collapses the original check-then-act pair into one
// call, closing the window between them.
package repo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/headstart/go-poi-backend/internal/domain"
)

// MarkProcessed records that processing has started for the message with
// the given key. Returns ErrDuplicate when the key is already reserved.
func MarkProcessed(ctx context.Context, db *mongo.Database, key, phoneNo, text string) error {
	rec := domain.ProcessedMessage{
		Key:        key,
		PhoneNo:    phoneNo,
		Text:       text,
		ReceivedAt: time.Now().UTC(),
	}
	_, err := db.Collection(CollProcessedMessages).InsertOne(ctx, rec)
	return mapWriteErr(err)
}
