package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/bssh/internal/connection"
	"github.com/hpungsan/bssh/internal/db"
	"github.com/hpungsan/bssh/internal/errors"
)

// EditInput contains parameters for the Edit operation.
type EditInput struct {
	// Addressing: id or exact name
	Target string

	// Editable fields (nil = don't change)
	Name        *string
	Host        *string
	User        *string
	Port        *int
	UseKerberos *bool
	Bastion     *string
	NoBastion   bool
	BastionUser *string
	KeyPath     *string // empty string clears the key
	AddTags     []string
	RemoveTags  []string
}

// EditOutput contains the result of the Edit operation.
type EditOutput struct {
	ID         string                `json:"id"`
	Connection connection.Connection `json:"connection"`
}

func (in *EditInput) empty() bool {
	return in.Name == nil && in.Host == nil && in.User == nil && in.Port == nil &&
		in.UseKerberos == nil && in.Bastion == nil && !in.NoBastion &&
		in.BastionUser == nil && in.KeyPath == nil &&
		len(in.AddTags) == 0 && len(in.RemoveTags) == 0
}

// Edit modifies an existing connection.
func Edit(ctx context.Context, database *sql.DB, input EditInput) (*EditOutput, error) {
	if input.empty() {
		return nil, errors.NewInvalidRequest("at least one editable field must be provided")
	}
	if input.NoBastion && input.Bastion != nil {
		return nil, errors.NewInvalidRequest("bastion and no_bastion are mutually exclusive")
	}

	c, err := db.FindConnection(ctx, database, input.Target)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name, err := validateName(*input.Name)
		if err != nil {
			return nil, err
		}
		exists, err := db.CheckNameExists(ctx, database, name, c.ID)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, errors.NewNameAlreadyExists(name)
		}
		c.Name = name
	}

	if input.Host != nil {
		host, err := validateHost(*input.Host)
		if err != nil {
			return nil, err
		}
		c.Host = host
	}

	if input.User != nil {
		u := cleanOptionalString(input.User)
		if u == nil {
			return nil, errors.NewInvalidRequest("user must not be empty")
		}
		c.User = *u
	}

	if input.Port != nil {
		if err := validatePort(*input.Port); err != nil {
			return nil, err
		}
		c.Port = *input.Port
	}

	if input.UseKerberos != nil {
		c.UseKerberos = *input.UseKerberos
	}

	switch {
	case input.NoBastion:
		c.Bastion = nil
		c.BastionUser = nil
	case input.Bastion != nil:
		c.Bastion = cleanOptionalString(input.Bastion)
	}
	if input.BastionUser != nil && !input.NoBastion {
		c.BastionUser = cleanOptionalString(input.BastionUser)
	}

	if input.KeyPath != nil {
		c.KeyPath = cleanOptionalString(input.KeyPath)
	}

	if len(input.AddTags) > 0 || len(input.RemoveTags) > 0 {
		tags := append(append([]string{}, c.Tags...), input.AddTags...)
		c.Tags = connection.RemoveTags(connection.NormalizeTags(tags), input.RemoveTags)
	}

	if err := db.UpdateConnection(ctx, database, c); err != nil {
		if err == db.ErrUniqueConstraint {
			return nil, errors.NewNameAlreadyExists(c.Name)
		}
		return nil, err
	}

	return &EditOutput{ID: c.ID, Connection: *c}, nil
}
