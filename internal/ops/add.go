package ops

import (
	"context"
	"database/sql"
	"time"

	"github.com/hpungsan/bssh/internal/config"
	"github.com/hpungsan/bssh/internal/connection"
	"github.com/hpungsan/bssh/internal/db"
	"github.com/hpungsan/bssh/internal/errors"
)

// AddInput contains parameters for the Add operation.
type AddInput struct {
	Name        string  // required
	Host        string  // required
	User        *string // default: cfg.DefaultUser
	Port        *int    // default: cfg.DefaultPort
	Bastion     *string // default: cfg.DefaultBastion
	NoBastion   bool    // ignore any bastion, including the configured default
	BastionUser *string // default: cfg.DefaultBastionUser
	UseKerberos *bool   // default: cfg.UseKerberosByDefault when a bastion is set, else false
	KeyPath     *string
	Tags        []string
}

// AddOutput contains the result of the Add operation.
type AddOutput struct {
	ID         string                `json:"id"`
	Connection connection.Connection `json:"connection"`
}

// Add creates a new connection profile.
func Add(ctx context.Context, database *sql.DB, cfg *config.Config, input AddInput) (*AddOutput, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	name, err := validateName(input.Name)
	if err != nil {
		return nil, err
	}
	host, err := validateHost(input.Host)
	if err != nil {
		return nil, err
	}

	user := cfg.DefaultUser
	if u := cleanOptionalString(input.User); u != nil {
		user = *u
	}

	port := cfg.DefaultPort
	if input.Port != nil {
		port = *input.Port
	}
	if err := validatePort(port); err != nil {
		return nil, err
	}

	var bastion, bastionUser *string
	if !input.NoBastion {
		bastion = cleanOptionalString(input.Bastion)
		if bastion == nil && cfg.DefaultBastion != "" {
			b := cfg.DefaultBastion
			bastion = &b
		}
		if bastion != nil {
			bastionUser = cleanOptionalString(input.BastionUser)
			if bastionUser == nil && cfg.DefaultBastionUser != "" {
				bu := cfg.DefaultBastionUser
				bastionUser = &bu
			}
		}
	}

	kerberos := bastion != nil && cfg.UseKerberosByDefault
	if input.UseKerberos != nil {
		kerberos = *input.UseKerberos
	}

	exists, err := db.CheckNameExists(ctx, database, name, "")
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.NewNameAlreadyExists(name)
	}

	id, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	c := connection.Connection{
		ID:          id,
		Name:        name,
		Host:        host,
		User:        user,
		Port:        port,
		Bastion:     bastion,
		BastionUser: bastionUser,
		UseKerberos: kerberos,
		KeyPath:     cleanOptionalString(input.KeyPath),
		Tags:        connection.NormalizeTags(input.Tags),
		CreatedAt:   time.Now().Unix(),
	}

	if err := db.InsertConnection(ctx, database, &c); err != nil {
		// Lost a race with a concurrent insert of the same name.
		if err == db.ErrUniqueConstraint {
			return nil, errors.NewNameAlreadyExists(name)
		}
		return nil, err
	}

	return &AddOutput{ID: id, Connection: c}, nil
}
