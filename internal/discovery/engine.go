package discovery

import (
	"context"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hpungsan/bssh/internal/connection"
	"github.com/hpungsan/bssh/internal/errors"
)

// Field selects the column used by Store.SearchByField.
type Field string

const (
	FieldName Field = "name"
	FieldHost Field = "host"
)

// Store is the record lookup interface the engine consumes.
// List results are in native order: most recently used first, never-used
// last, then by name.
type Store interface {
	// FindExact resolves an id or case-insensitive name. Returns a NOT_FOUND
	// error when nothing matches.
	FindExact(ctx context.Context, key string) (*connection.Connection, error)

	// SearchByField returns records whose field contains query (case-insensitive).
	SearchByField(ctx context.Context, query string, field Field, limit int) ([]connection.Connection, error)

	// ScanAll visits every record in native order until visit returns false.
	ScanAll(ctx context.Context, visit func(connection.Connection) bool) error

	// SearchTags returns records with any tag containing query (case-insensitive).
	SearchTags(ctx context.Context, query string, limit int) ([]connection.Connection, error)

	// RecentRecords returns used records, most recent first.
	RecentRecords(ctx context.Context, limit int) ([]connection.Connection, error)
}

// Candidate is a connection annotated with its relevance for one query.
type Candidate struct {
	connection.Connection
	Score float64 `json:"score"`
}

// Engine produces ranked, deduplicated candidate lists.
type Engine struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for lookup failures and debug traces.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock overrides the time source used for recency scoring.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates an Engine over store.
func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// lookup is one of the independent store queries fanned out per discovery.
type lookup struct {
	name string
	run  func(ctx context.Context) ([]connection.Connection, error)
}

// Discover returns up to limit candidates for query, best first.
// A failed lookup contributes nothing; only when every lookup fails is
// DISCOVERY_UNAVAILABLE returned.
func (e *Engine) Discover(ctx context.Context, query string, limit int) ([]Candidate, error) {
	if limit < 1 {
		return nil, errors.NewInvalidRequest("limit must be at least 1")
	}
	q := strings.ToLower(query)

	lookups := [...]lookup{
		{"name", func(ctx context.Context) ([]connection.Connection, error) {
			return e.store.SearchByField(ctx, q, FieldName, limit)
		}},
		{"pattern", func(ctx context.Context) ([]connection.Connection, error) {
			return e.scanMatches(ctx, q, limit)
		}},
		{"host", func(ctx context.Context) ([]connection.Connection, error) {
			return e.store.SearchByField(ctx, q, FieldHost, limit)
		}},
		{"tag", func(ctx context.Context) ([]connection.Connection, error) {
			return e.store.SearchTags(ctx, q, limit)
		}},
	}

	// Each lookup owns its slot, so the merge below is independent of
	// completion order.
	var (
		results [len(lookups)][]connection.Connection
		failed  [len(lookups)]bool
	)

	g, gctx := errgroup.WithContext(ctx)
	for i, lk := range lookups {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			res, err := lk.run(gctx)
			if err != nil {
				failed[i] = true
				e.logger.Warn("discovery lookup failed",
					zap.String("lookup", lk.name),
					zap.String("query", q),
					zap.Error(err),
				)
				return nil // partial failure is tolerated
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	failures := 0
	for _, f := range failed {
		if f {
			failures++
		}
	}
	if failures == len(lookups) {
		return nil, errors.NewDiscoveryUnavailable(failures)
	}

	now := e.now()
	seen := make(map[string]bool)
	candidates := make([]Candidate, 0)
	for _, res := range results {
		for _, c := range res {
			if seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			candidates = append(candidates, Candidate{Connection: c, Score: Score(c, q, now)})
		}
	}

	slices.SortFunc(candidates, compareCandidates)
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	e.logger.Debug("discovery complete",
		zap.String("query", q),
		zap.Int("limit", limit),
		zap.Int("unique", len(seen)),
		zap.Int("returned", len(candidates)),
		zap.Int("failed_lookups", failures),
	)

	return candidates, nil
}

// Recent returns up to limit used connections, most recent first.
func (e *Engine) Recent(ctx context.Context, limit int) ([]connection.Connection, error) {
	if limit < 1 {
		return nil, errors.NewInvalidRequest("limit must be at least 1")
	}
	return e.store.RecentRecords(ctx, limit)
}

// FindExact passes through to the store.
func (e *Engine) FindExact(ctx context.Context, key string) (*connection.Connection, error) {
	return e.store.FindExact(ctx, key)
}

// scanMatches walks the full store, keeping records whose name satisfies a
// matcher strategy, and stops after limit matches.
func (e *Engine) scanMatches(ctx context.Context, q string, limit int) ([]connection.Connection, error) {
	matched := make([]connection.Connection, 0, limit)
	err := e.store.ScanAll(ctx, func(c connection.Connection) bool {
		if Matches(q, c.Name) {
			matched = append(matched, c)
		}
		return len(matched) < limit
	})
	if err != nil {
		return nil, err
	}
	return matched, nil
}

// compareCandidates orders by score desc, then the store's native order.
func compareCandidates(a, b Candidate) int {
	if a.Score != b.Score {
		if a.Score > b.Score {
			return -1
		}
		return 1
	}
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
	if c := strings.Compare(connection.Normalize(a.Name), connection.Normalize(b.Name)); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}
