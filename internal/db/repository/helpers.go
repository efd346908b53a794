// Package repository implements domain repository interfaces using SQLite.
package repository

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"datashelf/internal/domain"
)

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// nextModified returns a last_modified timestamp that is strictly
// non-decreasing relative to prev, even on clocks with coarse resolution.
func nextModified(prev time.Time) time.Time {
	now := time.Now().UTC()
	if !now.After(prev) {
		return prev.Add(time.Millisecond)
	}
	return now
}

func mapDBError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.NotFoundError{Message: "resource not found"}
	}
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		switch {
		case serr.ExtendedCode == sqlite3.ErrConstraintUnique,
			serr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey:
			return &domain.ConflictError{Message: "resource already exists"}
		case serr.Code == sqlite3.ErrBusy, serr.Code == sqlite3.ErrLocked:
			return domain.ErrStoreUnavailable(err, "store busy")
		}
	}
	// Fallback for drivers that flatten error codes into text.
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return &domain.ConflictError{Message: "resource already exists"}
	}
	return err
}
