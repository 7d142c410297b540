package engine

import (
	"context"
	"database/sql"
	"time"

	"taskboard/internal/events"
	"taskboard/internal/repo"
)

// Engine hosts the application operations. Each operation loads an
// aggregate, mutates it through its own methods, then persists the state
// change and its pending events in one transaction.
type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Now    func() time.Time
}

func New(db *sql.DB) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// ListEvents pages the audit log newest-first.
func (e Engine) ListEvents(ctx context.Context, limit int, cursor int64, f repo.EventFilters) ([]repo.Event, error) {
	return e.Repo.LatestEvents(ctx, limit, cursor, f)
}
