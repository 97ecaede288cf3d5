// Package resolve drives the interactive exchange that narrows a fuzzy
// query down to a single connection.
package resolve

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/hpungsan/bssh/internal/connection"
	"github.com/hpungsan/bssh/internal/discovery"
)

const (
	// DefaultLimit is used when a Request carries no limit.
	DefaultLimit = 10
	// DefaultRecentLimit is the size of, and upper bound on, the fallback
	// list shown when nothing matches.
	DefaultRecentLimit = 5
)

// Discoverer is the engine surface the protocol needs.
type Discoverer interface {
	Discover(ctx context.Context, query string, limit int) ([]discovery.Candidate, error)
	Recent(ctx context.Context, limit int) ([]connection.Connection, error)
}

// Status is the terminal state of a Resolve call.
type Status int

const (
	Cancelled Status = iota
	Resolved
)

func (s Status) String() string {
	if s == Resolved {
		return "resolved"
	}
	return "cancelled"
}

// Outcome is the result of a Resolve call. Connection is set only when
// Status is Resolved.
type Outcome struct {
	Status     Status
	Connection *connection.Connection
}

// Request configures one Resolve call.
type Request struct {
	Query string
	Limit int
	// AutoSelectSingle resolves a lone first-round match without asking.
	AutoSelectSingle bool
	// Verb names the action in prompts, e.g. "connect to" or "remove".
	Verb string
}

// Protocol runs disambiguation over a line-oriented input and output.
type Protocol struct {
	engine      Discoverer
	console     *console
	logger      *zap.Logger
	now         func() time.Time
	recentLimit int
}

// Option configures a Protocol.
type Option func(*Protocol)

// WithLogger sets the logger used for debug traces.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Protocol) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithClock overrides the time source used for "last used" rendering.
func WithClock(now func() time.Time) Option {
	return func(p *Protocol) {
		if now != nil {
			p.now = now
		}
	}
}

// WithRecentLimit sets how many recent connections the no-match fallback
// offers. Values above DefaultRecentLimit are capped.
func WithRecentLimit(n int) Option {
	return func(p *Protocol) {
		if n > 0 {
			p.recentLimit = min(n, DefaultRecentLimit)
		}
	}
}

// New creates a Protocol reading answers from in and writing prompts to out.
func New(engine Discoverer, in io.Reader, out io.Writer, opts ...Option) *Protocol {
	p := &Protocol{
		engine:      engine,
		console:     newConsole(in, out),
		logger:      zap.NewNop(),
		now:         time.Now,
		recentLimit: DefaultRecentLimit,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type state int

const (
	stateStart state = iota
	stateConfirmSingle
	stateChooseMany
	stateNoMatch
	stateResolved
	stateCancelled
)

// choiceKind classifies one answer to the selection prompt.
type choiceKind int

const (
	choiceSelected choiceKind = iota
	choiceSearchAgain
	choiceQuit
)

// Resolve runs the exchange until a connection is chosen or the user gives up.
// Cancellation is reported through Outcome, not as an error; I/O failures
// return an error wrapping ErrIO.
func (p *Protocol) Resolve(ctx context.Context, req Request) (Outcome, error) {
	limit := req.Limit
	if limit < 1 {
		limit = DefaultLimit
	}
	verb := strings.TrimSpace(req.Verb)
	if verb == "" {
		verb = "select"
	}

	var (
		st         = stateStart
		query      = req.Query
		revised    bool // current round came from "search again"
		candidates []connection.Connection
		listed     bool // candidates were already printed by the fallback
		label      string
		chosen     *connection.Connection
	)

	for {
		switch st {
		case stateStart:
			found, err := p.engine.Discover(ctx, strings.ToLower(query), limit)
			if err != nil {
				return Outcome{}, err
			}
			candidates = make([]connection.Connection, len(found))
			for i := range found {
				candidates[i] = found[i].Connection
			}
			listed = false
			label = "Select connection to " + verb

			switch {
			case len(candidates) == 0:
				st = stateNoMatch
			case revised:
				st = stateChooseMany
			case len(candidates) == 1 && req.AutoSelectSingle:
				chosen = &candidates[0]
				p.console.printf("Found match: %s (%s)\n", chosen.Name, chosen.Host)
				st = stateResolved
			case len(candidates) == 1:
				st = stateConfirmSingle
			default:
				st = stateChooseMany
			}
			p.logger.Debug("resolve round",
				zap.String("query", query),
				zap.Int("candidates", len(candidates)),
				zap.Bool("revised", revised),
			)

		case stateNoMatch:
			p.console.printf("No connections found matching '%s'\n", query)
			p.console.printf("\nTip: Use 'bssh list' to see all connections or 'bssh add' to create a new one.\n")
			recent, err := p.engine.Recent(ctx, p.recentLimit)
			if err != nil {
				return Outcome{}, err
			}
			if len(recent) == 0 {
				p.console.printf("No recent connections found.\n")
				st = stateCancelled
				break
			}
			p.console.printf("\nRecent connections:\n")
			for i := range recent {
				p.console.printf("  %d. %s%s\n", i+1, recent[i].Name, p.lastUsedSuffix(recent[i], " (last: %s)"))
			}
			candidates = recent
			listed = true
			label = "Select recent connection to " + verb
			st = stateChooseMany

		case stateConfirmSingle:
			only := &candidates[0]
			p.console.printf("Found one similar connection:\n")
			p.printCandidate(only, 1)
			answer, err := p.console.prompt(fmt.Sprintf("%s this connection? [Y/n]: ", capitalizeFirst(verb)))
			if err != nil {
				return Outcome{}, err
			}
			switch strings.ToLower(answer) {
			case "", "y", "yes":
				chosen = only
				st = stateResolved
			default:
				p.console.printf("Operation cancelled.\n")
				st = stateCancelled
			}

		case stateChooseMany:
			if !listed {
				p.console.printf("Found %d similar connections for '%s':\n\n", len(candidates), query)
				for i := range candidates {
					p.printCandidate(&candidates[i], i+1)
				}
				listed = true
			}
			kind, index, newQuery, err := p.choose(label, len(candidates))
			if err != nil {
				return Outcome{}, err
			}
			switch kind {
			case choiceSelected:
				chosen = &candidates[index]
				st = stateResolved
			case choiceSearchAgain:
				// Only the new query survives into the next round.
				query = newQuery
				candidates = nil
				revised = true
				p.console.printf("\n")
				st = stateStart
			case choiceQuit:
				p.console.printf("Operation cancelled.\n")
				st = stateCancelled
			}

		case stateResolved:
			if err := p.console.flushErr(); err != nil {
				return Outcome{}, err
			}
			p.logger.Debug("resolve finished", zap.String("status", Resolved.String()), zap.String("connection", chosen.Name))
			return Outcome{Status: Resolved, Connection: chosen}, nil

		case stateCancelled:
			if err := p.console.flushErr(); err != nil {
				return Outcome{}, err
			}
			p.logger.Debug("resolve finished", zap.String("status", Cancelled.String()))
			return Outcome{Status: Cancelled}, nil
		}
	}
}

// choose prompts until the answer is a valid index, a search-again request
// with a non-empty term, or quit. Invalid answers re-prompt without limit.
func (p *Protocol) choose(label string, n int) (choiceKind, int, string, error) {
	for {
		answer, err := p.console.prompt(fmt.Sprintf("%s [1-%d, 's' to search again, 'q' to quit]: ", label, n))
		if err != nil {
			return 0, 0, "", err
		}
		answer = strings.ToLower(answer)

		switch answer {
		case "q", "quit":
			return choiceQuit, 0, "", nil
		case "s", "search", "search again":
			term, err := p.console.prompt("Enter new search term: ")
			if err != nil {
				return 0, 0, "", err
			}
			if term == "" {
				p.console.printf("Empty search term. Please try again.\n")
				continue
			}
			return choiceSearchAgain, 0, term, nil
		}

		index, err := strconv.Atoi(answer)
		if err != nil {
			p.console.printf("Invalid input. Please enter a number, 's' to search again, or 'q' to quit.\n")
			continue
		}
		if index < 1 || index > n {
			p.console.printf("Invalid selection. Please enter a number between 1 and %d.\n", n)
			continue
		}
		return choiceSelected, index - 1, "", nil
	}
}

// Confirm asks a yes/no question. An empty answer returns defaultYes.
func (p *Protocol) Confirm(question string, defaultYes bool) (bool, error) {
	answer, err := p.console.prompt(question)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "":
		return defaultYes, nil
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func (p *Protocol) printCandidate(c *connection.Connection, index int) {
	tags := "none"
	if len(c.Tags) > 0 {
		tags = strings.Join(c.Tags, ", ")
	}
	p.console.printf("  %d. %s (%s)\n", index, c.Name, c.Host)
	p.console.printf("     Tags: %s%s\n", tags, p.lastUsedSuffix(*c, " (last used: %s)"))
}

func (p *Protocol) lastUsedSuffix(c connection.Connection, format string) string {
	if c.LastUsedAt == nil {
		return ""
	}
	return fmt.Sprintf(format, connection.FormatAgo(*c.LastUsedAt, p.now()))
}

func capitalizeFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
