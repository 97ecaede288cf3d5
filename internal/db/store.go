package db

import (
	"context"
	"database/sql"

	"github.com/hpungsan/bssh/internal/connection"
	"github.com/hpungsan/bssh/internal/discovery"
	"github.com/hpungsan/bssh/internal/errors"
)

// Store adapts the connection queries to discovery.Store.
type Store struct {
	db *sql.DB
}

var _ discovery.Store = (*Store)(nil)

// NewStore wraps an initialized database handle.
func NewStore(database *sql.DB) *Store {
	return &Store{db: database}
}

// FindExact resolves key as an id, then as a case-insensitive name.
func (s *Store) FindExact(ctx context.Context, key string) (*connection.Connection, error) {
	return FindConnection(ctx, s.db, key)
}

// SearchByField runs a substring search over name or host.
func (s *Store) SearchByField(ctx context.Context, query string, field discovery.Field, limit int) ([]connection.Connection, error) {
	switch field {
	case discovery.FieldName:
		return SearchByColumn(ctx, s.db, query, ColumnName, limit)
	case discovery.FieldHost:
		return SearchByColumn(ctx, s.db, query, ColumnHost, limit)
	default:
		return nil, errors.NewInvalidRequest("unsupported search field: " + string(field))
	}
}

// ScanAll streams every connection in native order.
func (s *Store) ScanAll(ctx context.Context, visit func(connection.Connection) bool) error {
	return ScanConnections(ctx, s.db, visit)
}

// SearchTags runs a substring search over tags.
func (s *Store) SearchTags(ctx context.Context, query string, limit int) ([]connection.Connection, error) {
	return SearchTags(ctx, s.db, query, limit)
}

// RecentRecords returns used connections, most recent first.
func (s *Store) RecentRecords(ctx context.Context, limit int) ([]connection.Connection, error) {
	return RecentConnections(ctx, s.db, limit)
}
