package db

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hpungsan/bssh/internal/connection"
	"github.com/hpungsan/bssh/internal/errors"
)

// InsertSession stores a new session record.
func InsertSession(ctx context.Context, q Querier, s *connection.Session) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO sessions (id, connection_id, started_at, ended_at, status, pid, exit_code, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		s.ID, s.ConnectionID, s.StartedAt, toNullInt64(s.EndedAt), string(s.Status),
		toNullInt(s.PID), toNullInt(s.ExitCode), toNullString(s.Error),
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// UpdateSession persists the lifecycle fields of a session.
func UpdateSession(ctx context.Context, q Querier, s *connection.Session) error {
	result, err := q.ExecContext(ctx, `
		UPDATE sessions
		SET ended_at = ?, status = ?, pid = ?, exit_code = ?, error = ?
		WHERE id = ?
	`,
		toNullInt64(s.EndedAt), string(s.Status), toNullInt(s.PID),
		toNullInt(s.ExitCode), toNullString(s.Error), s.ID,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return requireAffected(result, s.ID)
}

// DeleteSessionsForConnection removes every session of a connection.
func DeleteSessionsForConnection(ctx context.Context, q Querier, connectionID string) (int, error) {
	result, err := q.ExecContext(ctx, `DELETE FROM sessions WHERE connection_id = ?`, connectionID)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return int(n), nil
}

// SessionFilters narrows ListSessions.
type SessionFilters struct {
	Connection *string // substring of connection name, or exact connection id
	Since      *int64  // started_at >= Since
	FailedOnly bool    // status error or non-zero exit code
	Limit      int
}

// failedPredicate selects sessions that errored or exited non-zero.
const failedPredicate = `(s.status = 'error' OR (s.exit_code IS NOT NULL AND s.exit_code != 0))`

// ListSessions returns sessions joined with their connection name, newest first.
func ListSessions(ctx context.Context, q Querier, filters SessionFilters) ([]connection.Session, error) {
	var (
		where []string
		args  []any
	)
	if filters.Connection != nil {
		where = append(where, `(c.name_norm LIKE ? ESCAPE '\' OR c.id = ?)`)
		args = append(args, likePattern(*filters.Connection), *filters.Connection)
	}
	if filters.Since != nil {
		where = append(where, `s.started_at >= ?`)
		args = append(args, *filters.Since)
	}
	if filters.FailedOnly {
		where = append(where, failedPredicate)
	}

	query := `
		SELECT s.id, s.connection_id, c.name, s.started_at, s.ended_at,
			s.status, s.pid, s.exit_code, s.error
		FROM sessions s
		JOIN connections c ON s.connection_id = c.id`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY s.started_at DESC, s.id DESC LIMIT ?`
	args = append(args, filters.Limit)

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	result := make([]connection.Session, 0)
	for rows.Next() {
		var (
			s        connection.Session
			status   string
			endedAt  sql.NullInt64
			pid      sql.NullInt64
			exitCode sql.NullInt64
			errMsg   sql.NullString
		)
		if err := rows.Scan(&s.ID, &s.ConnectionID, &s.ConnectionName, &s.StartedAt,
			&endedAt, &status, &pid, &exitCode, &errMsg); err != nil {
			return nil, errors.NewInternal(err)
		}
		s.Status = connection.SessionStatus(status)
		if endedAt.Valid {
			s.EndedAt = &endedAt.Int64
		}
		s.PID = fromNullInt(pid)
		s.ExitCode = fromNullInt(exitCode)
		s.Error = fromNullString(errMsg)
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return result, nil
}

// SessionTotals summarizes the sessions table.
type SessionTotals struct {
	Total  int `json:"total"`
	Active int `json:"active"`
	Failed int `json:"failed"`
}

// CountSessions returns session totals.
func CountSessions(ctx context.Context, q Querier) (SessionTotals, error) {
	var totals SessionTotals
	err := q.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN s.status IN ('starting', 'active') THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN `+failedPredicate+` THEN 1 ELSE 0 END), 0)
		FROM sessions s
	`).Scan(&totals.Total, &totals.Active, &totals.Failed)
	if err != nil {
		return SessionTotals{}, errors.NewInternal(err)
	}
	return totals, nil
}

func toNullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func fromNullInt(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
