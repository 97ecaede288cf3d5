package discovery

import (
	"strings"
	"time"

	"github.com/hpungsan/bssh/internal/connection"
)

// Relevance bonuses. Scores are additive so independent signals reinforce
// each other.
const (
	ExactNameBonus    = 100.0
	NamePrefixBonus   = 50.0
	NameContainsBonus = 25.0
	PatternBonus      = 15.0
	HostContainsBonus = 15.0
	TagContainsBonus  = 20.0

	RecentDayBonus   = 30.0 // used within 24h
	RecentWeekBonus  = 15.0 // used within 7d
	RecentMonthBonus = 5.0  // used within 30d
)

// Score computes the relevance of c for query at time now.
// An empty query awards only the recency bonus.
func Score(c connection.Connection, query string, now time.Time) float64 {
	q := strings.ToLower(query)
	score := recencyBonus(c.LastUsedAt, now)
	if q == "" {
		return score
	}

	name := strings.ToLower(c.Name)
	if name == q {
		score += ExactNameBonus
	}
	if strings.HasPrefix(name, q) {
		score += NamePrefixBonus
	}
	if strings.Contains(name, q) {
		score += NameContainsBonus
	}
	if Matches(q, name) {
		score += PatternBonus
	}
	if strings.Contains(strings.ToLower(c.Host), q) {
		score += HostContainsBonus
	}
	for _, tag := range c.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			score += TagContainsBonus
			break
		}
	}

	return score
}

func recencyBonus(lastUsedAt *int64, now time.Time) float64 {
	if lastUsedAt == nil {
		return 0
	}
	age := now.Sub(time.Unix(*lastUsedAt, 0))
	switch {
	case age < 24*time.Hour:
		return RecentDayBonus
	case age < 7*24*time.Hour:
		return RecentWeekBonus
	case age < 30*24*time.Hour:
		return RecentMonthBonus
	default:
		return 0
	}
}
