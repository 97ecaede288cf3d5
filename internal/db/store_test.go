package db

import (
	"context"
	"testing"
	"time"

	"github.com/hpungsan/bssh/internal/connection"
	"github.com/hpungsan/bssh/internal/discovery"
	"github.com/hpungsan/bssh/internal/errors"
)

func TestStore_Discover(t *testing.T) {
	ctx := context.Background()
	database := setupDB(t)

	now := time.Unix(1_700_000_000, 0)
	web := newTestConnection("01D001", "web-01", "10.0.0.1")
	web.LastUsedAt = int64Ptr(now.Add(-time.Hour).Unix())
	pde := newTestConnection("01D002", "prod-db-east", "10.0.0.2")
	pde.Tags = []string{"database"}
	mustInsert(t, database, web, pde)

	engine := discovery.NewEngine(NewStore(database), discovery.WithClock(func() time.Time { return now }))

	tests := []struct {
		query string
		want  string
	}{
		{"web01", "web-01"},
		{"web_01", "web-01"},
		{"pde", "prod-db-east"},
		{"datab", "prod-db-east"},
		{"10.0.0.2", "prod-db-east"},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := engine.Discover(ctx, tt.query, 10)
			if err != nil {
				t.Fatalf("Discover failed: %v", err)
			}
			if len(got) == 0 || got[0].Name != tt.want {
				t.Errorf("Discover(%q) top = %v, want %s", tt.query, got, tt.want)
			}
		})
	}
}

func TestStore_FindExactAndRecent(t *testing.T) {
	ctx := context.Background()
	database := setupDB(t)
	used := newTestConnection("01F001", "used", "a")
	used.LastUsedAt = int64Ptr(10)
	mustInsert(t, database, used, newTestConnection("01F002", "unused", "b"))

	store := NewStore(database)

	c, err := store.FindExact(ctx, "USED")
	if err != nil || c.ID != "01F001" {
		t.Errorf("FindExact = %v, %v", c, err)
	}
	if _, err := store.FindExact(ctx, "use"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("FindExact(partial) error = %v, want NOT_FOUND", err)
	}

	recent, err := store.RecentRecords(ctx, 5)
	if err != nil {
		t.Fatalf("RecentRecords failed: %v", err)
	}
	if len(recent) != 1 || recent[0].Name != "used" {
		t.Errorf("RecentRecords = %v", names(recent))
	}

	var scanned []connection.Connection
	if err := store.ScanAll(ctx, func(c connection.Connection) bool {
		scanned = append(scanned, c)
		return true
	}); err != nil {
		t.Fatalf("ScanAll failed: %v", err)
	}
	if want := []string{"used", "unused"}; !equalStrings(names(scanned), want) {
		t.Errorf("ScanAll order = %v, want %v", names(scanned), want)
	}

	if _, err := store.SearchByField(ctx, "x", discovery.Field("user"), 5); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("SearchByField(bad field) error = %v, want INVALID_REQUEST", err)
	}
}

func TestStore_NonASCIICaseFolding(t *testing.T) {
	ctx := context.Background()
	database := setupDB(t)

	c := newTestConnection("01U001", "Serveur-Été", "SRV.ÉCOLE.example")
	c.Tags = []string{"Équipe"}
	mustInsert(t, database, c, newTestConnection("01U002", "other", "10.0.0.9"))

	engine := discovery.NewEngine(NewStore(database))
	for _, query := range []string{"équipe", "ÉQUIPE", "école", "ÉCOLE", "été"} {
		t.Run(query, func(t *testing.T) {
			got, err := engine.Discover(ctx, query, 10)
			if err != nil {
				t.Fatalf("Discover failed: %v", err)
			}
			if len(got) != 1 || got[0].ID != "01U001" {
				t.Errorf("Discover(%q) = %v, want [Serveur-Été]", query, got)
			}
		})
	}

	tagged, err := SearchTags(ctx, database, "équipe", 10)
	if err != nil {
		t.Fatalf("SearchTags failed: %v", err)
	}
	if want := []string{"Serveur-Été"}; !equalStrings(names(tagged), want) {
		t.Errorf("SearchTags = %v, want %v", names(tagged), want)
	}

	hosts, err := SearchByColumn(ctx, database, "école", ColumnHost, 10)
	if err != nil {
		t.Fatalf("SearchByColumn failed: %v", err)
	}
	if want := []string{"Serveur-Été"}; !equalStrings(names(hosts), want) {
		t.Errorf("SearchByColumn(host) = %v, want %v", names(hosts), want)
	}

	listed, err := ListConnections(ctx, database, ListFilters{Tag: stringPtr("ÉQUIPE")})
	if err != nil {
		t.Fatalf("ListConnections failed: %v", err)
	}
	if want := []string{"Serveur-Été"}; !equalStrings(names(listed), want) {
		t.Errorf("ListConnections(tag) = %v, want %v", names(listed), want)
	}
}
