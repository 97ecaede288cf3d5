package connection

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// whitespaceRegex matches one or more whitespace characters
var whitespaceRegex = regexp.MustCompile(`\s+`)

// Normalize trims, lowercases, and collapses internal whitespace.
// Used for name_norm and for case-insensitive tag comparison.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return whitespaceRegex.ReplaceAllString(s, " ")
}

// NormalizeTags trims tags, drops empties, and removes case-insensitive
// duplicates while keeping the first spelling seen.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	result := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := Normalize(t)
		if seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, t)
	}
	return result
}

// RemoveTags returns tags without any entry matching drop (case-insensitive).
func RemoveTags(tags, drop []string) []string {
	if len(drop) == 0 {
		return tags
	}
	skip := make(map[string]bool, len(drop))
	for _, d := range drop {
		skip[Normalize(d)] = true
	}
	result := make([]string, 0, len(tags))
	for _, t := range tags {
		if !skip[Normalize(t)] {
			result = append(result, t)
		}
	}
	return result
}

// FormatAgo renders the time elapsed between ts and now, e.g. "3 hours ago".
func FormatAgo(ts int64, now time.Time) string {
	d := now.Sub(time.Unix(ts, 0))
	switch {
	case d >= 24*time.Hour:
		return plural(int(d/(24*time.Hour)), "day")
	case d >= time.Hour:
		return plural(int(d/time.Hour), "hour")
	case d >= time.Minute:
		return plural(int(d/time.Minute), "minute")
	default:
		return "just now"
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
