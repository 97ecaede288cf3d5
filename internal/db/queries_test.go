package db

import (
	"context"
	"database/sql"
	"testing"

	"github.com/hpungsan/bssh/internal/connection"
	"github.com/hpungsan/bssh/internal/errors"
)

// newTestConnection creates a connection with default values for testing.
func newTestConnection(id, name, host string) *connection.Connection {
	return &connection.Connection{
		ID:        id,
		Name:      name,
		Host:      host,
		User:      "admin",
		Port:      22,
		Tags:      []string{},
		CreatedAt: 1000,
	}
}

// stringPtr returns a pointer to the given string.
func stringPtr(s string) *string {
	return &s
}

func int64Ptr(v int64) *int64 {
	return &v
}

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func mustInsert(t *testing.T, database *sql.DB, conns ...*connection.Connection) {
	t.Helper()
	for _, c := range conns {
		if err := InsertConnection(context.Background(), database, c); err != nil {
			t.Fatalf("InsertConnection(%s) failed: %v", c.Name, err)
		}
	}
}

func names(conns []connection.Connection) []string {
	out := make([]string, len(conns))
	for i, c := range conns {
		out[i] = c.Name
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestInsertAndGetByID(t *testing.T) {
	ctx := context.Background()
	database := setupDB(t)

	c := newTestConnection("01CONN001", "Prod-DB", "10.0.0.5")
	c.Port = 2222
	c.Bastion = stringPtr("jump.example.com")
	c.BastionUser = stringPtr("ops")
	c.UseKerberos = true
	c.KeyPath = stringPtr("/home/admin/.ssh/id_ed25519")
	c.Tags = []string{"prod", "db"}
	c.LastUsedAt = int64Ptr(2000)
	mustInsert(t, database, c)

	got, err := GetConnectionByID(ctx, database, "01CONN001")
	if err != nil {
		t.Fatalf("GetConnectionByID failed: %v", err)
	}

	if got.Name != "Prod-DB" || got.Host != "10.0.0.5" || got.User != "admin" || got.Port != 2222 {
		t.Errorf("basic fields = %+v", got)
	}
	if got.Bastion == nil || *got.Bastion != "jump.example.com" {
		t.Errorf("Bastion = %v", got.Bastion)
	}
	if got.BastionUser == nil || *got.BastionUser != "ops" {
		t.Errorf("BastionUser = %v", got.BastionUser)
	}
	if !got.UseKerberos {
		t.Error("UseKerberos = false, want true")
	}
	if got.KeyPath == nil || *got.KeyPath != "/home/admin/.ssh/id_ed25519" {
		t.Errorf("KeyPath = %v", got.KeyPath)
	}
	if !equalStrings(got.Tags, []string{"prod", "db"}) {
		t.Errorf("Tags = %v", got.Tags)
	}
	if got.LastUsedAt == nil || *got.LastUsedAt != 2000 {
		t.Errorf("LastUsedAt = %v, want 2000", got.LastUsedAt)
	}
}

func TestInsert_EmptyOptionalFields(t *testing.T) {
	ctx := context.Background()
	database := setupDB(t)
	mustInsert(t, database, newTestConnection("01CONN001", "web", "web.local"))

	got, err := GetConnectionByID(ctx, database, "01CONN001")
	if err != nil {
		t.Fatalf("GetConnectionByID failed: %v", err)
	}
	if got.Bastion != nil || got.BastionUser != nil || got.KeyPath != nil || got.LastUsedAt != nil {
		t.Errorf("optional fields should be nil: %+v", got)
	}
	if got.Tags == nil || len(got.Tags) != 0 {
		t.Errorf("Tags = %#v, want empty non-nil slice", got.Tags)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	database := setupDB(t)

	_, err := GetConnectionByID(context.Background(), database, "nope")
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("error = %v, want NOT_FOUND", err)
	}
}

func TestGetByName_CaseInsensitive(t *testing.T) {
	database := setupDB(t)
	mustInsert(t, database, newTestConnection("01CONN001", "Staging-Web", "10.0.1.1"))

	got, err := GetConnectionByName(context.Background(), database, "  staging-WEB ")
	if err != nil {
		t.Fatalf("GetConnectionByName failed: %v", err)
	}
	if got.ID != "01CONN001" {
		t.Errorf("ID = %q, want 01CONN001", got.ID)
	}
}

func TestFindConnection(t *testing.T) {
	ctx := context.Background()
	database := setupDB(t)
	mustInsert(t, database,
		newTestConnection("01CONN001", "alpha", "a.local"),
		newTestConnection("01CONN002", "01CONN001x", "b.local"),
	)

	tests := []struct {
		name     string
		key      string
		wantID   string
		wantCode errors.ErrorCode
	}{
		{"by id", "01CONN001", "01CONN001", ""},
		{"by name", "ALPHA", "01CONN001", ""},
		{"missing", "beta", "", errors.ErrNotFound},
		{"blank", "   ", "", errors.ErrInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindConnection(ctx, database, tt.key)
			if tt.wantCode != "" {
				if !errors.Is(err, tt.wantCode) {
					t.Fatalf("error = %v, want %s", err, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("FindConnection failed: %v", err)
			}
			if got.ID != tt.wantID {
				t.Errorf("ID = %q, want %q", got.ID, tt.wantID)
			}
		})
	}
}

func TestInsert_UniqueConstraint(t *testing.T) {
	database := setupDB(t)
	mustInsert(t, database, newTestConnection("01CONN001", "web", "a"))

	err := InsertConnection(context.Background(), database, newTestConnection("01CONN002", "WEB", "b"))
	if err != ErrUniqueConstraint {
		t.Errorf("error = %v, want ErrUniqueConstraint", err)
	}
}

func TestCheckNameExists(t *testing.T) {
	ctx := context.Background()
	database := setupDB(t)
	mustInsert(t, database, newTestConnection("01CONN001", "web", "a"))

	exists, err := CheckNameExists(ctx, database, "Web", "")
	if err != nil || !exists {
		t.Errorf("CheckNameExists(Web) = %v, %v; want true", exists, err)
	}

	exists, err = CheckNameExists(ctx, database, "web", "01CONN001")
	if err != nil || exists {
		t.Errorf("CheckNameExists excluding self = %v, %v; want false", exists, err)
	}
}

func TestUpdateConnection(t *testing.T) {
	ctx := context.Background()
	database := setupDB(t)
	mustInsert(t, database,
		newTestConnection("01CONN001", "web", "a"),
		newTestConnection("01CONN002", "db", "b"),
	)

	c, err := GetConnectionByID(ctx, database, "01CONN001")
	if err != nil {
		t.Fatalf("GetConnectionByID failed: %v", err)
	}
	c.Name = "web-renamed"
	c.Host = "new.host"
	c.Tags = []string{"edge"}
	c.Bastion = stringPtr("jump")
	if err := UpdateConnection(ctx, database, c); err != nil {
		t.Fatalf("UpdateConnection failed: %v", err)
	}

	got, err := GetConnectionByName(ctx, database, "web-renamed")
	if err != nil {
		t.Fatalf("GetConnectionByName failed: %v", err)
	}
	if got.Host != "new.host" || got.Bastion == nil || !equalStrings(got.Tags, []string{"edge"}) {
		t.Errorf("updated connection = %+v", got)
	}
	if got.CreatedAt != 1000 {
		t.Errorf("CreatedAt changed to %d", got.CreatedAt)
	}

	// Rename onto an existing name
	got.Name = "DB"
	if err := UpdateConnection(ctx, database, got); err != ErrUniqueConstraint {
		t.Errorf("rename collision error = %v, want ErrUniqueConstraint", err)
	}

	missing := newTestConnection("01MISSING", "ghost", "g")
	if err := UpdateConnection(ctx, database, missing); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("update missing error = %v, want NOT_FOUND", err)
	}
}

func TestTouchAndDeleteConnection(t *testing.T) {
	ctx := context.Background()
	database := setupDB(t)
	mustInsert(t, database, newTestConnection("01CONN001", "web", "a"))

	if err := TouchConnection(ctx, database, "01CONN001", 5000); err != nil {
		t.Fatalf("TouchConnection failed: %v", err)
	}
	got, _ := GetConnectionByID(ctx, database, "01CONN001")
	if got.LastUsedAt == nil || *got.LastUsedAt != 5000 {
		t.Errorf("LastUsedAt = %v, want 5000", got.LastUsedAt)
	}

	if err := DeleteConnection(ctx, database, "01CONN001"); err != nil {
		t.Fatalf("DeleteConnection failed: %v", err)
	}
	if err := DeleteConnection(ctx, database, "01CONN001"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("second delete error = %v, want NOT_FOUND", err)
	}
	if err := TouchConnection(ctx, database, "01CONN001", 6000); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("touch deleted error = %v, want NOT_FOUND", err)
	}
}

// seedOrdering inserts connections whose native order is
// recent, older, alpha (never used), beta (never used).
func seedOrdering(t *testing.T, database *sql.DB) {
	t.Helper()
	older := newTestConnection("01ORD002", "older", "10.0.0.2")
	older.LastUsedAt = int64Ptr(1000)
	older.Tags = []string{"Prod", "web"}
	recent := newTestConnection("01ORD001", "recent", "10.0.0.1")
	recent.LastUsedAt = int64Ptr(3000)
	recent.Tags = []string{"staging"}
	beta := newTestConnection("01ORD004", "beta", "beta.example.com")
	beta.Tags = []string{"prod"}
	alpha := newTestConnection("01ORD003", "Alpha", "alpha.example.com")
	mustInsert(t, database, beta, older, alpha, recent)
}

func TestListConnections(t *testing.T) {
	ctx := context.Background()
	database := setupDB(t)
	seedOrdering(t, database)

	tests := []struct {
		name    string
		filters ListFilters
		want    []string
	}{
		{"native order", ListFilters{}, []string{"recent", "older", "Alpha", "beta"}},
		{"tag filter is exact and case-insensitive", ListFilters{Tag: stringPtr("PROD")}, []string{"older", "beta"}},
		{"tag filter does not match substrings", ListFilters{Tag: stringPtr("pro")}, []string{}},
		{"recent only", ListFilters{RecentOnly: true}, []string{"recent", "older"}},
		{"limit", ListFilters{Limit: 3}, []string{"recent", "older", "Alpha"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ListConnections(ctx, database, tt.filters)
			if err != nil {
				t.Fatalf("ListConnections failed: %v", err)
			}
			if !equalStrings(names(got), tt.want) {
				t.Errorf("names = %v, want %v", names(got), tt.want)
			}
		})
	}

	n, err := CountConnections(ctx, database)
	if err != nil || n != 4 {
		t.Errorf("CountConnections = %d, %v; want 4", n, err)
	}
}

func TestSearchByColumn(t *testing.T) {
	ctx := context.Background()
	database := setupDB(t)
	mustInsert(t, database,
		newTestConnection("01S001", "web_01", "10.1.1.1"),
		newTestConnection("01S002", "web101", "10.1.1.2"),
		newTestConnection("01S003", "100%-db", "db.internal"),
	)

	tests := []struct {
		name   string
		query  string
		column SearchColumn
		want   []string
	}{
		{"substring", "web", ColumnName, []string{"web101", "web_01"}},
		{"underscore is literal", "b_0", ColumnName, []string{"web_01"}},
		{"percent is literal", "0%", ColumnName, []string{"100%-db"}},
		{"case-insensitive", "WEB1", ColumnName, []string{"web101"}},
		{"host", "internal", ColumnHost, []string{"100%-db"}},
		{"no match", "zzz", ColumnHost, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SearchByColumn(ctx, database, tt.query, tt.column, 10)
			if err != nil {
				t.Fatalf("SearchByColumn failed: %v", err)
			}
			if !equalStrings(names(got), tt.want) {
				t.Errorf("names = %v, want %v", names(got), tt.want)
			}
		})
	}

	if _, err := SearchByColumn(ctx, database, "x", SearchColumn("user_name"), 10); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("unsupported column error = %v, want INVALID_REQUEST", err)
	}
}

func TestSearchTags(t *testing.T) {
	ctx := context.Background()
	database := setupDB(t)
	seedOrdering(t, database)

	got, err := SearchTags(ctx, database, "PRO", 10)
	if err != nil {
		t.Fatalf("SearchTags failed: %v", err)
	}
	if want := []string{"older", "beta"}; !equalStrings(names(got), want) {
		t.Errorf("names = %v, want %v", names(got), want)
	}

	got, err = SearchTags(ctx, database, "ing", 1)
	if err != nil {
		t.Fatalf("SearchTags failed: %v", err)
	}
	if want := []string{"recent"}; !equalStrings(names(got), want) {
		t.Errorf("names = %v, want %v", names(got), want)
	}
}

func TestRecentConnections(t *testing.T) {
	database := setupDB(t)
	seedOrdering(t, database)

	got, err := RecentConnections(context.Background(), database, 5)
	if err != nil {
		t.Fatalf("RecentConnections failed: %v", err)
	}
	if want := []string{"recent", "older"}; !equalStrings(names(got), want) {
		t.Errorf("names = %v, want %v", names(got), want)
	}
}

func TestScanConnections_StopsEarly(t *testing.T) {
	database := setupDB(t)
	seedOrdering(t, database)

	var seen []string
	err := ScanConnections(context.Background(), database, func(c connection.Connection) bool {
		seen = append(seen, c.Name)
		return len(seen) < 2
	})
	if err != nil {
		t.Fatalf("ScanConnections failed: %v", err)
	}
	if want := []string{"recent", "older"}; !equalStrings(seen, want) {
		t.Errorf("seen = %v, want %v", seen, want)
	}
}

func TestTagCounts(t *testing.T) {
	database := setupDB(t)
	a := newTestConnection("01T001", "a", "a")
	a.Tags = []string{"prod", "web"}
	b := newTestConnection("01T002", "b", "b")
	b.Tags = []string{"prod"}
	c := newTestConnection("01T003", "c", "c")
	mustInsert(t, database, a, b, c)

	got, err := TagCounts(context.Background(), database)
	if err != nil {
		t.Fatalf("TagCounts failed: %v", err)
	}
	want := []TagCount{{"prod", 2}, {"web", 1}}
	if len(got) != len(want) {
		t.Fatalf("TagCounts = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("TagCounts[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestStreamConnections(t *testing.T) {
	ctx := context.Background()
	database := setupDB(t)
	first := newTestConnection("01ST001", "first", "a")
	second := newTestConnection("01ST002", "second", "b")
	second.CreatedAt = 2000
	mustInsert(t, database, second, first)

	rows, err := StreamConnections(ctx, database)
	if err != nil {
		t.Fatalf("StreamConnections failed: %v", err)
	}
	defer rows.Close()

	var got []string
	for rows.Next() {
		c, err := ScanConnectionFromRows(rows)
		if err != nil {
			t.Fatalf("ScanConnectionFromRows failed: %v", err)
		}
		got = append(got, c.Name)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows.Err: %v", err)
	}
	if want := []string{"first", "second"}; !equalStrings(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}
