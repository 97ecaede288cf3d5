// Package launch starts ssh for a resolved connection and records the
// session it produces.
package launch

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hpungsan/bssh/internal/config"
	"github.com/hpungsan/bssh/internal/connection"
	"github.com/hpungsan/bssh/internal/db"
	"github.com/hpungsan/bssh/internal/ops"
)

// ErrKerberos is returned when no Kerberos ticket exists and kinit fails.
var ErrKerberos = stderrors.New("kerberos ticket unavailable")

// Overrides adjust a connection for a single launch without persisting.
type Overrides struct {
	User        *string
	Port        *int
	UseKerberos *bool
	Bastion     *string
	NoBastion   bool
	BastionUser *string
	KeyPath     *string
}

// Apply returns a copy of c with the overrides applied.
func (o Overrides) Apply(c connection.Connection) connection.Connection {
	if o.User != nil && strings.TrimSpace(*o.User) != "" {
		c.User = strings.TrimSpace(*o.User)
	}
	if o.Port != nil {
		c.Port = *o.Port
	}
	if o.UseKerberos != nil {
		c.UseKerberos = *o.UseKerberos
	}
	switch {
	case o.NoBastion:
		c.Bastion = nil
		c.BastionUser = nil
	case o.Bastion != nil && strings.TrimSpace(*o.Bastion) != "":
		b := strings.TrimSpace(*o.Bastion)
		c.Bastion = &b
	}
	if o.BastionUser != nil && !o.NoBastion {
		bu := strings.TrimSpace(*o.BastionUser)
		c.BastionUser = &bu
	}
	if o.KeyPath != nil {
		k := strings.TrimSpace(*o.KeyPath)
		c.KeyPath = &k
	}
	return c
}

// Result describes a finished launch.
type Result struct {
	SessionID string `json:"session_id,omitempty"`
	Command   string `json:"command"`
	ExitCode  int    `json:"exit_code"`
}

// Launcher runs ssh for stored connections.
type Launcher struct {
	database *sql.DB
	cfg      *config.Config
	runner   Runner
	logger   *zap.Logger
	now      func() time.Time
}

// Option configures a Launcher.
type Option func(*Launcher)

// WithRunner replaces the process runner.
func WithRunner(r Runner) Option {
	return func(l *Launcher) {
		if r != nil {
			l.runner = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Launcher) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Launcher) {
		if now != nil {
			l.now = now
		}
	}
}

// New creates a Launcher backed by database.
func New(database *sql.DB, cfg *config.Config, opts ...Option) *Launcher {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	l := &Launcher{
		database: database,
		cfg:      cfg,
		runner:   NewExecRunner(),
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Connect launches ssh for c and blocks until it exits.
//
// A connection with an empty ID is an ad-hoc target: it is launched but
// neither touched nor recorded. Failures to record a session are logged and
// never prevent the launch.
func (l *Launcher) Connect(ctx context.Context, c *connection.Connection, o Overrides) (*Result, error) {
	eff := o.Apply(*c)
	if eff.Bastion == nil && eff.Port < 1 {
		return nil, fmt.Errorf("invalid port %d", eff.Port)
	}

	logger := l.logger.With(zap.String("connection", c.Name), zap.String("host", eff.Host))
	stored := c.ID != ""

	if eff.UseKerberos {
		if err := l.ensureTicket(ctx, logger); err != nil {
			return nil, err
		}
	}

	if stored {
		if err := ops.Touch(ctx, l.database, ops.TouchInput{ID: c.ID, At: l.now()}); err != nil {
			logger.Warn("failed to update last used", zap.Error(err))
		}
	}

	binary := l.cfg.SSHBinary
	if binary == "" {
		binary = "ssh"
	}
	args := connection.SSHArgs(&eff)
	result := &Result{Command: connection.Command(&eff, binary)}

	var session *connection.Session
	if stored {
		session = l.beginSession(ctx, logger, c)
		if session != nil {
			result.SessionID = session.ID
		}
	}

	logger.Info("launching ssh", zap.Strings("args", args))
	proc, err := l.runner.Start(ctx, binary, args...)
	if err != nil {
		l.finishSession(ctx, logger, session, func(s *connection.Session) {
			s.MarkError(err.Error(), l.now().Unix())
		})
		return nil, fmt.Errorf("start %s: %w", binary, err)
	}

	l.finishSession(ctx, logger, session, func(s *connection.Session) {
		s.MarkActive(proc.PID())
	})

	code, waitErr := proc.Wait()
	if waitErr != nil {
		l.finishSession(ctx, logger, session, func(s *connection.Session) {
			s.MarkError(waitErr.Error(), l.now().Unix())
		})
		return nil, fmt.Errorf("wait for %s: %w", binary, waitErr)
	}

	l.finishSession(ctx, logger, session, func(s *connection.Session) {
		s.MarkTerminated(code, l.now().Unix())
	})
	logger.Info("ssh exited", zap.Int("exit_code", code))

	result.ExitCode = code
	return result, nil
}

// ensureTicket checks for a Kerberos ticket and runs kinit -f when none exists.
func (l *Launcher) ensureTicket(ctx context.Context, logger *zap.Logger) error {
	if err := l.runner.Run(ctx, "klist", "-s"); err == nil {
		return nil
	}
	logger.Info("no valid kerberos ticket, running kinit")
	if err := l.runner.Run(ctx, "kinit", "-f"); err != nil {
		return fmt.Errorf("%w: %w", ErrKerberos, err)
	}
	return nil
}

func (l *Launcher) beginSession(ctx context.Context, logger *zap.Logger, c *connection.Connection) *connection.Session {
	id, err := ops.NewID()
	if err != nil {
		logger.Warn("failed to allocate session id", zap.Error(err))
		return nil
	}
	s := &connection.Session{
		ID:             id,
		ConnectionID:   c.ID,
		ConnectionName: c.Name,
		StartedAt:      l.now().Unix(),
		Status:         connection.SessionStarting,
	}
	if err := db.InsertSession(ctx, l.database, s); err != nil {
		logger.Warn("failed to record session", zap.Error(err))
		return nil
	}
	return s
}

func (l *Launcher) finishSession(ctx context.Context, logger *zap.Logger, s *connection.Session, mutate func(*connection.Session)) {
	if s == nil {
		return
	}
	mutate(s)
	// The launch context may already be cancelled; the record still needs writing.
	if err := db.UpdateSession(context.WithoutCancel(ctx), l.database, s); err != nil {
		logger.Warn("failed to update session", zap.String("session", s.ID), zap.Error(err))
	}
}
