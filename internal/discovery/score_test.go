package discovery

import (
	"testing"
	"time"

	"github.com/hpungsan/bssh/internal/connection"
)

var testNow = time.Unix(1_700_000_000, 0)

func usedAgo(d time.Duration) *int64 {
	ts := testNow.Add(-d).Unix()
	return &ts
}

func TestScore(t *testing.T) {
	tests := []struct {
		name  string
		conn  connection.Connection
		query string
		want  float64
	}{
		{
			name:  "every signal fires",
			conn:  connection.Connection{Name: "Web", Host: "web.example.com", Tags: []string{"web", "webserver"}},
			query: "web",
			want:  ExactNameBonus + NamePrefixBonus + NameContainsBonus + PatternBonus + HostContainsBonus + TagContainsBonus,
		},
		{
			name:  "prefix without exact",
			conn:  connection.Connection{Name: "web-01", Host: "10.0.0.1"},
			query: "web",
			want:  NamePrefixBonus + NameContainsBonus + PatternBonus,
		},
		{
			name:  "contains only",
			conn:  connection.Connection{Name: "prod-web", Host: "10.0.0.1"},
			query: "web",
			want:  NameContainsBonus + PatternBonus,
		},
		{
			name:  "pattern only",
			conn:  connection.Connection{Name: "prod-db-east", Host: "10.0.0.1"},
			query: "pde",
			want:  PatternBonus,
		},
		{
			name:  "host only",
			conn:  connection.Connection{Name: "alpha", Host: "bastion.corp"},
			query: "corp",
			want:  HostContainsBonus,
		},
		{
			name:  "tag bonus awarded once",
			conn:  connection.Connection{Name: "x", Host: "y", Tags: []string{"prod", "production"}},
			query: "prod",
			want:  TagContainsBonus,
		},
		{
			name:  "query is lowercased",
			conn:  connection.Connection{Name: "db", Host: "h"},
			query: "DB",
			want:  ExactNameBonus + NamePrefixBonus + NameContainsBonus + PatternBonus,
		},
		{
			name:  "empty query scores recency only",
			conn:  connection.Connection{Name: "web", Host: "web", Tags: []string{"web"}, LastUsedAt: usedAgo(time.Hour)},
			query: "",
			want:  RecentDayBonus,
		},
		{
			name:  "no match",
			conn:  connection.Connection{Name: "alpha", Host: "beta"},
			query: "zzz",
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.conn, tt.query, testNow); got != tt.want {
				t.Errorf("Score() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRecencyBonus(t *testing.T) {
	tests := []struct {
		name     string
		lastUsed *int64
		want     float64
	}{
		{"never used", nil, 0},
		{"one hour", usedAgo(time.Hour), RecentDayBonus},
		{"23 hours", usedAgo(23 * time.Hour), RecentDayBonus},
		{"two days", usedAgo(48 * time.Hour), RecentWeekBonus},
		{"ten days", usedAgo(10 * 24 * time.Hour), RecentMonthBonus},
		{"forty days", usedAgo(40 * 24 * time.Hour), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := recencyBonus(tt.lastUsed, testNow); got != tt.want {
				t.Errorf("recencyBonus() = %v, want %v", got, tt.want)
			}
		})
	}
}
