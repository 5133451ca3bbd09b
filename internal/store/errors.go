package store

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Failure taxonomy surfaced to callers. The store never retries on its own,
// retry policy belongs to the caller.
var (
	// ErrStorageUnavailable backing medium not initialized or I/O failure.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrNotFound referenced record is absent.
	ErrNotFound = errors.New("record not found")

	// ErrConstraintViolation a uniqueness or validation rule was broken
	// before any partial write happened.
	ErrConstraintViolation = errors.New("constraint violation")
)

// wrapDBErr maps a gorm error to the store taxonomy.
func wrapDBErr(err error, context string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.Wrap(ErrNotFound, context)
	}
	return errors.Wrapf(ErrStorageUnavailable, "%s: %v", context, err)
}
