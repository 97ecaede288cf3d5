package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/bssh/internal/db"
	"github.com/hpungsan/bssh/internal/errors"
)

// RemoveInput contains parameters for the Remove operation.
type RemoveInput struct {
	Target string // id or exact name
}

// RemoveOutput contains the result of the Remove operation.
type RemoveOutput struct {
	Removed         bool   `json:"removed"`
	ID              string `json:"id"`
	Name            string `json:"name"`
	SessionsRemoved int    `json:"sessions_removed"`
}

// Remove hard-deletes a connection together with its session history.
func Remove(ctx context.Context, database *sql.DB, input RemoveInput) (*RemoveOutput, error) {
	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer tx.Rollback() //nolint:errcheck

	c, err := db.FindConnection(ctx, tx, input.Target)
	if err != nil {
		return nil, err
	}

	sessions, err := db.DeleteSessionsForConnection(ctx, tx, c.ID)
	if err != nil {
		return nil, err
	}
	if err := db.DeleteConnection(ctx, tx, c.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewInternal(err)
	}

	return &RemoveOutput{
		Removed:         true,
		ID:              c.ID,
		Name:            c.Name,
		SessionsRemoved: sessions,
	}, nil
}
