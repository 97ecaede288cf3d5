package ops

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/hpungsan/bssh/internal/connection"
	"github.com/hpungsan/bssh/internal/db"
	"github.com/hpungsan/bssh/internal/errors"
)

// StatsOutput summarizes the connection store.
type StatsOutput struct {
	TotalConnections int                     `json:"total_connections"`
	MostRecent       *connection.Connection  `json:"most_recent,omitempty"`
	Recent           []connection.Connection `json:"recent"`
	Tags             []db.TagCount           `json:"tags"`
	Sessions         db.SessionTotals        `json:"sessions"`
}

// Stats returns totals, recently used connections, tag counts and session totals.
func Stats(ctx context.Context, database *sql.DB) (*StatsOutput, error) {
	total, err := db.CountConnections(ctx, database)
	if err != nil {
		return nil, err
	}

	recent, err := db.RecentConnections(ctx, database, StatsRecentLimit)
	if err != nil {
		return nil, err
	}

	tags, err := db.TagCounts(ctx, database)
	if err != nil {
		return nil, err
	}
	if tags == nil {
		tags = []db.TagCount{}
	}

	sessions, err := db.CountSessions(ctx, database)
	if err != nil {
		return nil, err
	}

	out := &StatsOutput{
		TotalConnections: total,
		Recent:           recent,
		Tags:             tags,
		Sessions:         sessions,
	}
	if len(recent) > 0 {
		first := recent[0]
		out.MostRecent = &first
	}
	return out, nil
}

// HistoryInput contains parameters for the History operation.
type HistoryInput struct {
	Connection *string // substring of the connection name, or its id
	Days       int     // only sessions started within the last N days; 0 = all
	FailedOnly bool
	Limit      int // default: 20, max: 500
	Now        time.Time
}

// HistoryOutput contains the result of the History operation.
type HistoryOutput struct {
	Sessions []connection.Session `json:"sessions"`
	Limit    int                  `json:"limit"`
}

// History lists past sessions, newest first.
func History(ctx context.Context, database *sql.DB, input HistoryInput) (*HistoryOutput, error) {
	if input.Days < 0 {
		return nil, errors.NewInvalidRequest("days must not be negative")
	}

	limit := input.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	filters := db.SessionFilters{
		FailedOnly: input.FailedOnly,
		Limit:      limit,
	}
	if input.Connection != nil {
		name := strings.TrimSpace(*input.Connection)
		if name != "" {
			filters.Connection = &name
		}
	}
	if input.Days > 0 {
		now := input.Now
		if now.IsZero() {
			now = time.Now()
		}
		since := now.Add(-time.Duration(input.Days) * 24 * time.Hour).Unix()
		filters.Since = &since
	}

	sessions, err := db.ListSessions(ctx, database, filters)
	if err != nil {
		return nil, err
	}

	return &HistoryOutput{Sessions: sessions, Limit: limit}, nil
}
