package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/bssh/internal/config"
	"github.com/hpungsan/bssh/internal/connection"
	"github.com/hpungsan/bssh/internal/db"
)

// ShowInput contains parameters for the Show operation.
type ShowInput struct {
	Target string // id or exact name
}

// ShowOutput contains the result of the Show operation.
type ShowOutput struct {
	connection.Connection        // embedded (copy, not pointer)
	Command               string `json:"command"`
}

// Show retrieves a connection by id or exact name.
func Show(ctx context.Context, database *sql.DB, cfg *config.Config, input ShowInput) (*ShowOutput, error) {
	c, err := db.FindConnection(ctx, database, input.Target)
	if err != nil {
		return nil, err
	}
	return Describe(cfg, c), nil
}

// Describe renders an already resolved connection the way Show does.
func Describe(cfg *config.Config, c *connection.Connection) *ShowOutput {
	binary := ""
	if cfg != nil {
		binary = cfg.SSHBinary
	}
	return &ShowOutput{
		Connection: *c,
		Command:    connection.Command(c, binary),
	}
}
