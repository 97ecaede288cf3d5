package discovery

import (
	"context"
	"slices"
	"strings"

	"github.com/hpungsan/bssh/internal/connection"
	"github.com/hpungsan/bssh/internal/errors"
)

// fakeStore is an in-memory Store. Records are kept in native order.
type fakeStore struct {
	records []connection.Connection

	// per-lookup failures
	nameErr, hostErr, scanErr, tagErr, recentErr error
}

func newFakeStore(records ...connection.Connection) *fakeStore {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b connection.Connection) int {
		switch {
		case a.LastUsedAt != nil && b.LastUsedAt == nil:
			return -1
		case a.LastUsedAt == nil && b.LastUsedAt != nil:
			return 1
		case a.LastUsedAt != nil && *a.LastUsedAt != *b.LastUsedAt:
			if *a.LastUsedAt > *b.LastUsedAt {
				return -1
			}
			return 1
		}
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return &fakeStore{records: sorted}
}

func (f *fakeStore) FindExact(_ context.Context, key string) (*connection.Connection, error) {
	for i := range f.records {
		if f.records[i].ID == key || strings.EqualFold(f.records[i].Name, key) {
			c := f.records[i]
			return &c, nil
		}
	}
	return nil, errors.NewNotFound(key)
}

func (f *fakeStore) SearchByField(_ context.Context, query string, field Field, limit int) ([]connection.Connection, error) {
	if field == FieldName && f.nameErr != nil {
		return nil, f.nameErr
	}
	if field == FieldHost && f.hostErr != nil {
		return nil, f.hostErr
	}
	return f.filter(limit, func(c connection.Connection) bool {
		value := c.Name
		if field == FieldHost {
			value = c.Host
		}
		return strings.Contains(strings.ToLower(value), strings.ToLower(query))
	}), nil
}

func (f *fakeStore) ScanAll(_ context.Context, visit func(connection.Connection) bool) error {
	if f.scanErr != nil {
		return f.scanErr
	}
	for _, c := range f.records {
		if !visit(c) {
			return nil
		}
	}
	return nil
}

func (f *fakeStore) SearchTags(_ context.Context, query string, limit int) ([]connection.Connection, error) {
	if f.tagErr != nil {
		return nil, f.tagErr
	}
	return f.filter(limit, func(c connection.Connection) bool {
		for _, t := range c.Tags {
			if strings.Contains(strings.ToLower(t), strings.ToLower(query)) {
				return true
			}
		}
		return false
	}), nil
}

func (f *fakeStore) RecentRecords(_ context.Context, limit int) ([]connection.Connection, error) {
	if f.recentErr != nil {
		return nil, f.recentErr
	}
	return f.filter(limit, func(c connection.Connection) bool { return c.LastUsedAt != nil }), nil
}

func (f *fakeStore) filter(limit int, keep func(connection.Connection) bool) []connection.Connection {
	out := make([]connection.Connection, 0)
	for _, c := range f.records {
		if len(out) >= limit {
			break
		}
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}
