package repo

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
)

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate indicates a unique-key violation: the record already exists.
// For the global cache and the dedup gate this is an expected outcome, not
// a failure.
var ErrDuplicate = errors.New("duplicate")

// mapWriteErr converts driver duplicate-key errors to ErrDuplicate and
// passes everything else through.
func mapWriteErr(err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}
