package repo

import (
	"database/sql"
	"errors"
	"time"
)

// Repo is the SQLite persistence layer. Mutations that must be atomic with
// event emission take an explicit *sql.Tx owned by the caller.
type Repo struct {
	DB *sql.DB
}

var (
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict means the row was modified since the aggregate was
	// loaded. Callers retry by reloading.
	ErrVersionConflict = errors.New("version conflict")
)

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

func parseTimePtr(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
