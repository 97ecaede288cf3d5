package discovery

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Strategy identifies one supplementary fuzzy-matching rule.
type Strategy int

const (
	// MultiWord matches when every whitespace-separated query token is a substring of the name.
	MultiWord Strategy = iota + 1
	// NormalizedSeparator ignores '-', '_' and '.' on both sides.
	NormalizedSeparator
	// Acronym matches against the first letters of the name's words.
	Acronym
	// AlnumPrefix matches the start of the name with punctuation removed.
	AlnumPrefix
)

// strategies is the fixed evaluation order.
var strategies = [...]Strategy{MultiWord, NormalizedSeparator, Acronym, AlnumPrefix}

func (s Strategy) String() string {
	switch s {
	case MultiWord:
		return "multi_word"
	case NormalizedSeparator:
		return "normalized_separator"
	case Acronym:
		return "acronym"
	case AlnumPrefix:
		return "alnum_prefix"
	default:
		return "none"
	}
}

// Matches reports whether any strategy matches query against name.
// Comparison is case-insensitive.
func Matches(query, name string) bool {
	_, ok := MatchStrategy(query, name)
	return ok
}

// MatchStrategy returns the first strategy, in evaluation order, that matches.
func MatchStrategy(query, name string) (Strategy, bool) {
	q := strings.ToLower(query)
	n := strings.ToLower(name)
	for _, s := range strategies {
		if s.match(q, n) {
			return s, true
		}
	}
	return 0, false
}

// match evaluates one strategy against already-lowercased inputs.
func (s Strategy) match(q, n string) bool {
	switch s {
	case MultiWord:
		tokens := strings.Fields(q)
		if len(tokens) < 2 {
			return false
		}
		for _, tok := range tokens {
			if !strings.Contains(n, tok) {
				return false
			}
		}
		return true

	case NormalizedSeparator:
		return strings.Contains(stripSeparators(n), stripSeparators(q))

	case Acronym:
		if utf8.RuneCountInString(q) < 2 || !strings.ContainsAny(n, "-_ ") {
			return false
		}
		return strings.Contains(acronym(n), q)

	case AlnumPrefix:
		if utf8.RuneCountInString(q) < 2 {
			return false
		}
		return strings.HasPrefix(alnumOnly(n), q)
	}
	return false
}

var separatorReplacer = strings.NewReplacer("-", "", "_", "", ".", "")

func stripSeparators(s string) string {
	return separatorReplacer.Replace(s)
}

func isWordSeparator(r rune) bool {
	return r == '-' || r == '_' || r == ' '
}

// acronym joins the first rune of every non-empty word.
func acronym(s string) string {
	var b strings.Builder
	for _, word := range strings.FieldsFunc(s, isWordSeparator) {
		r, _ := utf8.DecodeRuneInString(word)
		b.WriteRune(r)
	}
	return b.String()
}

func alnumOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}
