package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/hpungsan/bssh/internal/connection"
	"github.com/hpungsan/bssh/internal/errors"
)

// ErrUniqueConstraint is returned when an insert or update violates a UNIQUE constraint.
var ErrUniqueConstraint = &errors.BsshError{
	Code:    "UNIQUE_CONSTRAINT",
	Status:  409,
	Message: "unique constraint violation",
}

// Querier is the subset of *sql.DB and *sql.Tx used by the query helpers.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const connectionColumns = `
	id, name, name_norm, host, user_name, port, bastion, bastion_user,
	use_kerberos, key_path, tags_json, created_at, last_used_at`

// nativeOrder is the store's default ordering: most recently used first,
// never-used last, then by name.
const nativeOrder = ` ORDER BY (last_used_at IS NULL), last_used_at DESC, name_norm ASC`

// InsertConnection stores a new connection.
func InsertConnection(ctx context.Context, q Querier, c *connection.Connection) error {
	tagsJSON, err := toTagsJSON(c.Tags)
	if err != nil {
		return errors.NewInternal(err)
	}

	query := `
		INSERT INTO connections (` + connectionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = q.ExecContext(ctx, query,
		c.ID, c.Name, connection.Normalize(c.Name), c.Host, c.User, c.Port,
		toNullString(c.Bastion), toNullString(c.BastionUser),
		c.UseKerberos, toNullString(c.KeyPath), tagsJSON,
		c.CreatedAt, toNullInt64(c.LastUsedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}

	return nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// SQLite returns "UNIQUE constraint failed: ..." for unique violations
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// GetConnectionByID retrieves a connection by its ULID.
func GetConnectionByID(ctx context.Context, q Querier, id string) (*connection.Connection, error) {
	row := q.QueryRowContext(ctx, `SELECT `+connectionColumns+` FROM connections WHERE id = ?`, id)
	c, err := scanConnection(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return c, nil
}

// GetConnectionByName retrieves a connection by name (case-insensitive).
func GetConnectionByName(ctx context.Context, q Querier, name string) (*connection.Connection, error) {
	row := q.QueryRowContext(ctx, `SELECT `+connectionColumns+` FROM connections WHERE name_norm = ?`, connection.Normalize(name))
	c, err := scanConnection(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(name)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return c, nil
}

// FindConnection resolves key as an exact id first, then as an exact name.
func FindConnection(ctx context.Context, q Querier, key string) (*connection.Connection, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errors.NewInvalidRequest("connection name or id is required")
	}
	c, err := GetConnectionByID(ctx, q, key)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}
	c, err = GetConnectionByName(ctx, q, key)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.NewNotFound(key)
		}
		return nil, err
	}
	return c, nil
}

// CheckNameExists checks if a connection with the given name exists,
// ignoring the connection identified by exceptID (pass "" to check all).
func CheckNameExists(ctx context.Context, q Querier, name, exceptID string) (bool, error) {
	var exists int
	err := q.QueryRowContext(ctx,
		`SELECT 1 FROM connections WHERE name_norm = ? AND id != ? LIMIT 1`,
		connection.Normalize(name), exceptID,
	).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return true, nil
}

// UpdateConnection rewrites every mutable field of an existing connection.
// Does NOT change: id, created_at
func UpdateConnection(ctx context.Context, q Querier, c *connection.Connection) error {
	tagsJSON, err := toTagsJSON(c.Tags)
	if err != nil {
		return errors.NewInternal(err)
	}

	query := `
		UPDATE connections
		SET name = ?, name_norm = ?, host = ?, user_name = ?, port = ?,
			bastion = ?, bastion_user = ?, use_kerberos = ?, key_path = ?,
			tags_json = ?, last_used_at = ?
		WHERE id = ?
	`

	result, err := q.ExecContext(ctx, query,
		c.Name, connection.Normalize(c.Name), c.Host, c.User, c.Port,
		toNullString(c.Bastion), toNullString(c.BastionUser), c.UseKerberos,
		toNullString(c.KeyPath), tagsJSON, toNullInt64(c.LastUsedAt),
		c.ID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}

	return requireAffected(result, c.ID)
}

// TouchConnection sets last_used_at for the connection.
func TouchConnection(ctx context.Context, q Querier, id string, at int64) error {
	result, err := q.ExecContext(ctx, `UPDATE connections SET last_used_at = ? WHERE id = ?`, at, id)
	if err != nil {
		return errors.NewInternal(err)
	}
	return requireAffected(result, id)
}

// DeleteConnection hard-deletes a connection row.
func DeleteConnection(ctx context.Context, q Querier, id string) error {
	result, err := q.ExecContext(ctx, `DELETE FROM connections WHERE id = ?`, id)
	if err != nil {
		return errors.NewInternal(err)
	}
	return requireAffected(result, id)
}

// ListFilters narrows ListConnections.
type ListFilters struct {
	Tag        *string // exact tag, case-insensitive
	RecentOnly bool    // only connections that have been used
	Limit      int     // 0 = unlimited
}

// ListConnections returns connections in native order.
func ListConnections(ctx context.Context, q Querier, filters ListFilters) ([]connection.Connection, error) {
	var (
		where []string
		args  []any
	)
	if filters.Tag != nil {
		where = append(where, `EXISTS (SELECT 1 FROM json_each(connections.tags_json) je WHERE ulower(je.value) = ?)`)
		args = append(args, connection.Normalize(*filters.Tag))
	}
	if filters.RecentOnly {
		where = append(where, `last_used_at IS NOT NULL`)
	}

	query := `SELECT ` + connectionColumns + ` FROM connections`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += nativeOrder
	if filters.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filters.Limit)
	}

	return queryConnections(ctx, q, query, args...)
}

// CountConnections returns the number of stored connections.
func CountConnections(ctx context.Context, q Querier) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM connections`).Scan(&n); err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}

// SearchColumn names a connection column that supports substring search.
type SearchColumn string

const (
	ColumnName SearchColumn = "name"
	ColumnHost SearchColumn = "host"
)

// SearchByColumn returns connections whose column contains query
// (case-insensitive substring, LIKE wildcards in query are literal).
func SearchByColumn(ctx context.Context, q Querier, query string, column SearchColumn, limit int) ([]connection.Connection, error) {
	var col string
	switch column {
	case ColumnName:
		col = "name_norm"
	case ColumnHost:
		col = "ulower(host)"
	default:
		return nil, errors.NewInvalidRequest("unsupported search field: " + string(column))
	}

	sqlQuery := `SELECT ` + connectionColumns + ` FROM connections
		WHERE ` + col + ` LIKE ? ESCAPE '\'` + nativeOrder + ` LIMIT ?`
	return queryConnections(ctx, q, sqlQuery, likePattern(query), limit)
}

// SearchTags returns connections where any tag contains query (case-insensitive).
func SearchTags(ctx context.Context, q Querier, query string, limit int) ([]connection.Connection, error) {
	sqlQuery := `SELECT ` + connectionColumns + ` FROM connections
		WHERE EXISTS (
			SELECT 1 FROM json_each(connections.tags_json) je
			WHERE ulower(je.value) LIKE ? ESCAPE '\'
		)` + nativeOrder + ` LIMIT ?`
	return queryConnections(ctx, q, sqlQuery, likePattern(query), limit)
}

// RecentConnections returns used connections, most recent first.
func RecentConnections(ctx context.Context, q Querier, limit int) ([]connection.Connection, error) {
	return ListConnections(ctx, q, ListFilters{RecentOnly: true, Limit: limit})
}

// ScanConnections streams every connection in native order to visit.
// Returning false from visit stops the scan early.
func ScanConnections(ctx context.Context, q Querier, visit func(connection.Connection) bool) error {
	rows, err := q.QueryContext(ctx, `SELECT `+connectionColumns+` FROM connections`+nativeOrder)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return errors.NewInternal(err)
		}
		if !visit(*c) {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// TagCount is one row of the tag histogram.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// TagCounts returns how many connections carry each tag, most common first.
func TagCounts(ctx context.Context, q Querier) ([]TagCount, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT je.value, COUNT(*) AS n
		FROM connections, json_each(connections.tags_json) je
		GROUP BY je.value
		ORDER BY n DESC, je.value ASC
	`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var counts []TagCount
	for rows.Next() {
		var tc TagCount
		if err := rows.Scan(&tc.Tag, &tc.Count); err != nil {
			return nil, errors.NewInternal(err)
		}
		counts = append(counts, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return counts, nil
}

// StreamConnections returns a cursor over all connections for export.
// Caller must close the returned rows and use ScanConnectionFromRows.
func StreamConnections(ctx context.Context, q Querier) (*sql.Rows, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+connectionColumns+` FROM connections ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return rows, nil
}

// ScanConnectionFromRows scans the current row of a StreamConnections cursor.
func ScanConnectionFromRows(rows *sql.Rows) (*connection.Connection, error) {
	return scanConnection(rows)
}

func queryConnections(ctx context.Context, q Querier, query string, args ...any) ([]connection.Connection, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	result := make([]connection.Connection, 0)
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		result = append(result, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return result, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanConnection scans a single row into a Connection.
func scanConnection(row rowScanner) (*connection.Connection, error) {
	var (
		c           connection.Connection
		nameNorm    string
		bastion     sql.NullString
		bastionUser sql.NullString
		keyPath     sql.NullString
		tagsJSON    sql.NullString
		lastUsedAt  sql.NullInt64
	)

	err := row.Scan(
		&c.ID, &c.Name, &nameNorm, &c.Host, &c.User, &c.Port,
		&bastion, &bastionUser, &c.UseKerberos, &keyPath, &tagsJSON,
		&c.CreatedAt, &lastUsedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Bastion = fromNullString(bastion)
	c.BastionUser = fromNullString(bastionUser)
	c.KeyPath = fromNullString(keyPath)
	if lastUsedAt.Valid {
		c.LastUsedAt = &lastUsedAt.Int64
	}

	c.Tags = []string{}
	if tagsJSON.Valid && tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &c.Tags); err != nil {
			return nil, err
		}
	}

	return &c, nil
}

// likePattern lowercases s, escapes LIKE wildcards, and wraps it for substring matching.
func likePattern(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return "%" + s + "%"
}

func requireAffected(result sql.Result, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound(id)
	}
	return nil
}

func toTagsJSON(tags []string) (sql.NullString, error) {
	if len(tags) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// toNullString converts a *string to sql.NullString.
func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// fromNullString converts a sql.NullString to *string.
func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func toNullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
