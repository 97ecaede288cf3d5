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

// ListInput contains parameters for the List operation.
type ListInput struct {
	Tag        *string // optional exact tag filter (case-insensitive)
	RecentOnly bool    // only connections that have been used
	Limit      int     // 0 = no limit
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Items []connection.Connection `json:"items"`
	Total int                     `json:"total"`
	Sort  string                  `json:"sort"`
}

// List returns stored connections in native order (most recently used first).
func List(ctx context.Context, database *sql.DB, input ListInput) (*ListOutput, error) {
	if input.Limit < 0 {
		return nil, errors.NewInvalidRequest("limit must not be negative")
	}

	var filters db.ListFilters
	if input.Tag != nil {
		tag := strings.TrimSpace(*input.Tag)
		if tag != "" {
			filters.Tag = &tag
		}
	}
	filters.RecentOnly = input.RecentOnly
	filters.Limit = input.Limit

	items, err := db.ListConnections(ctx, database, filters)
	if err != nil {
		return nil, err
	}

	total, err := db.CountConnections(ctx, database)
	if err != nil {
		return nil, err
	}

	// Ensure we return an empty array rather than nil
	if items == nil {
		items = []connection.Connection{}
	}

	return &ListOutput{
		Items: items,
		Total: total,
		Sort:  "last_used_desc",
	}, nil
}

// TouchInput contains parameters for the Touch operation.
type TouchInput struct {
	ID string
	At time.Time // zero = now
}

// Touch records that a connection was just used.
func Touch(ctx context.Context, database *sql.DB, input TouchInput) error {
	if strings.TrimSpace(input.ID) == "" {
		return errors.NewInvalidRequest("id is required")
	}
	at := input.At
	if at.IsZero() {
		at = time.Now()
	}
	return db.TouchConnection(ctx, database, input.ID, at.Unix())
}
