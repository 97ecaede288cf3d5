package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/hpungsan/bssh/internal/config"
	"github.com/hpungsan/bssh/internal/connection"
	"github.com/hpungsan/bssh/internal/db"
	"github.com/hpungsan/bssh/internal/discovery"
	"github.com/hpungsan/bssh/internal/errors"
	"github.com/hpungsan/bssh/internal/launch"
	"github.com/hpungsan/bssh/internal/logging"
	"github.com/hpungsan/bssh/internal/mcp"
	"github.com/hpungsan/bssh/internal/ops"
	"github.com/hpungsan/bssh/internal/resolve"
)

// appEnv carries the dependencies shared by every command.
type appEnv struct {
	db      *sql.DB
	cfg     *config.Config
	baseDir string // empty disables the log file

	logger *zap.Logger
	runner launch.Runner // nil uses os/exec
	now    func() time.Time
}

func (e *appEnv) clock() time.Time {
	if e.now != nil {
		return e.now()
	}
	return time.Now()
}

func (e *appEnv) engine() *discovery.Engine {
	return discovery.NewEngine(db.NewStore(e.db), discovery.WithLogger(e.logger))
}

// protocol builds a disambiguation session over the app's streams. One
// session must serve a whole command so buffered input is not lost.
func (e *appEnv) protocol(c *cli.Context) *resolve.Protocol {
	return resolve.New(e.engine(), c.App.Reader, c.App.Writer,
		resolve.WithLogger(e.logger),
		resolve.WithRecentLimit(e.cfg.RecentLimit),
		resolve.WithClock(e.clock),
	)
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(env *appEnv) *cli.App {
	if env.logger == nil {
		env.logger = zap.NewNop()
	}
	app := &cli.App{
		Name:                 "bssh",
		Usage:                "Fuzzy SSH connection manager",
		Version:              Version,
		EnableBashCompletion: true,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"V"}, Usage: "Log at debug level"},
		},
		Before: func(c *cli.Context) error {
			if env.baseDir == "" || env.cfg == nil {
				return nil
			}
			logger, err := logging.New(env.baseDir, env.cfg.LogLevel, c.Bool("verbose"))
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			env.logger = logger
			return nil
		},
		After: func(_ *cli.Context) error {
			_ = env.logger.Sync()
			return nil
		},
		Commands: []*cli.Command{
			connectCmd(env),
			addCmd(env),
			listCmd(env),
			showCmd(env),
			editCmd(env),
			removeCmd(env),
			statsCmd(env),
			historyCmd(env),
			importCmd(env),
			exportCmd(env),
			configCmd(env),
			mcpCmd(env),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// overrideFlags are shared by connect, add and edit.
func overrideFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "user", Aliases: []string{"u"}, Usage: "Remote login"},
		&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Target port"},
		&cli.BoolFlag{Name: "kerberos", Aliases: []string{"k"}, Usage: "Forward Kerberos credentials (--kerberos=false to disable)"},
		&cli.StringFlag{Name: "bastion", Aliases: []string{"b"}, Usage: "Jump host"},
		&cli.BoolFlag{Name: "no-bastion", Usage: "Connect directly, ignoring any bastion"},
		&cli.StringFlag{Name: "bastion-user", Usage: "Login on the jump host"},
		&cli.StringFlag{Name: "key", Aliases: []string{"i"}, Usage: "Identity file path"},
	}
}

func optString(c *cli.Context, name string) *string {
	if !c.IsSet(name) {
		return nil
	}
	v := c.String(name)
	return &v
}

func optInt(c *cli.Context, name string) *int {
	if !c.IsSet(name) {
		return nil
	}
	v := c.Int(name)
	return &v
}

func optBool(c *cli.Context, name string) *bool {
	if !c.IsSet(name) {
		return nil
	}
	v := c.Bool(name)
	return &v
}

// query joins the positional arguments so multi-word searches need no quoting.
func query(c *cli.Context) string {
	return strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
}

// resolveTarget looks the target up exactly, then falls back to interactive
// disambiguation. A nil connection with a nil error means the user cancelled.
func resolveTarget(c *cli.Context, env *appEnv, p *resolve.Protocol, target, verb string, autoSelect bool) (*connection.Connection, error) {
	if target != "" {
		exact, err := env.engine().FindExact(c.Context, target)
		if err == nil {
			return exact, nil
		}
		if !errors.Is(err, errors.ErrNotFound) {
			return nil, err
		}
		env.logger.Debug("no exact match, starting discovery", zap.String("query", target))
	}

	out, err := p.Resolve(c.Context, resolve.Request{
		Query:            target,
		Limit:            env.cfg.SearchLimit,
		AutoSelectSingle: autoSelect,
		Verb:             verb,
	})
	if err != nil {
		return nil, err
	}
	if out.Status != resolve.Resolved {
		return nil, nil
	}
	return out.Connection, nil
}

// connectCmd creates the connect command.
func connectCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "connect",
		Aliases:   []string{"c"},
		Usage:     "Connect to a stored connection, searching fuzzily when needed",
		ArgsUsage: "<query>",
		Flags: append(overrideFlags(),
			&cli.BoolFlag{Name: "direct", Aliases: []string{"d"}, Usage: "Treat the target as [user@]host and skip the store"},
		),
		Action: func(c *cli.Context) error {
			target := query(c)

			var conn *connection.Connection
			if c.Bool("direct") {
				adhoc, err := directConnection(env.cfg, target)
				if err != nil {
					return outputError(err)
				}
				conn = adhoc
			} else {
				resolved, err := resolveTarget(c, env, env.protocol(c), target, "connect to", true)
				if err != nil {
					return outputError(err)
				}
				if resolved == nil {
					return nil
				}
				conn = resolved
			}

			overrides := launch.Overrides{
				User:        optString(c, "user"),
				Port:        optInt(c, "port"),
				UseKerberos: optBool(c, "kerberos"),
				Bastion:     optString(c, "bastion"),
				NoBastion:   c.Bool("no-bastion"),
				BastionUser: optString(c, "bastion-user"),
				KeyPath:     optString(c, "key"),
			}

			opts := []launch.Option{launch.WithLogger(env.logger)}
			if env.runner != nil {
				opts = append(opts, launch.WithRunner(env.runner))
			}
			if env.now != nil {
				opts = append(opts, launch.WithClock(env.now))
			}

			fmt.Fprintf(c.App.Writer, "Connecting to %s...\n", conn.Name)
			result, err := launch.New(env.db, env.cfg, opts...).Connect(c.Context, conn, overrides)
			if err != nil {
				return outputError(err)
			}
			if result.ExitCode != 0 {
				return cli.Exit("", result.ExitCode)
			}
			return nil
		},
	}
}

// directConnection builds an unsaved connection from "[user@]host".
func directConnection(cfg *config.Config, target string) (*connection.Connection, error) {
	if target == "" {
		return nil, errors.NewInvalidRequest("host is required with --direct")
	}
	user := cfg.DefaultUser
	host := target
	if u, h, ok := strings.Cut(target, "@"); ok {
		user, host = u, h
	}
	if user == "" || host == "" || strings.ContainsAny(host, " \t") {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid direct target %q", target))
	}
	port := cfg.DefaultPort
	if port == 0 {
		port = 22
	}
	return &connection.Connection{Name: target, Host: host, User: user, Port: port}, nil
}

// addCmd creates the add command.
func addCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Store a new connection",
		ArgsUsage: "<name> <host>",
		Flags: append(overrideFlags(),
			&cli.StringFlag{Name: "tags", Aliases: []string{"t"}, Usage: "Comma-separated tags"},
			&cli.BoolFlag{Name: "json", Usage: "Print JSON"},
		),
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return outputError(errors.NewInvalidRequest("usage: bssh add <name> <host>"))
			}

			output, err := ops.Add(c.Context, env.db, env.cfg, ops.AddInput{
				Name:        c.Args().Get(0),
				Host:        c.Args().Get(1),
				User:        optString(c, "user"),
				Port:        optInt(c, "port"),
				Bastion:     optString(c, "bastion"),
				NoBastion:   c.Bool("no-bastion"),
				BastionUser: optString(c, "bastion-user"),
				UseKerberos: optBool(c, "kerberos"),
				KeyPath:     optString(c, "key"),
				Tags:        parseTags(c.String("tags")),
			})
			if err != nil {
				return outputError(err)
			}
			env.logger.Info("connection added", zap.String("id", output.ID), zap.String("name", output.Connection.Name))

			if c.Bool("json") {
				return outputJSON(c.App.Writer, output)
			}
			fmt.Fprintf(c.App.Writer, "Added connection '%s' (%s)\n", output.Connection.Name, output.ID)
			fmt.Fprintf(c.App.Writer, "  %s\n", connection.Command(&output.Connection, env.cfg.SSHBinary))
			return nil
		},
	}
}

// listCmd creates the list command.
func listCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List stored connections, most recently used first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "tag", Aliases: []string{"t"}, Usage: "Filter by tag"},
			&cli.BoolFlag{Name: "recent", Aliases: []string{"r"}, Usage: "Only connections that have been used"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Maximum items (0 = all)"},
			&cli.BoolFlag{Name: "json", Usage: "Print JSON"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.List(c.Context, env.db, ops.ListInput{
				Tag:        optString(c, "tag"),
				RecentOnly: c.Bool("recent"),
				Limit:      c.Int("limit"),
			})
			if err != nil {
				return outputError(err)
			}

			if c.Bool("json") {
				return outputJSON(c.App.Writer, output)
			}
			if len(output.Items) == 0 {
				fmt.Fprintln(c.App.Writer, "No connections found.")
				return nil
			}

			tw := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tTARGET\tBASTION\tTAGS\tLAST USED")
			for i := range output.Items {
				item := &output.Items[i]
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					item.Name, address(item), bastionLabel(item), tagsLabel(item.Tags), lastUsed(item, env.clock()))
			}
			if err := tw.Flush(); err != nil {
				return outputError(errors.NewInternal(err))
			}
			if output.Total > len(output.Items) {
				fmt.Fprintf(c.App.Writer, "\nShowing %d of %d connections.\n", len(output.Items), output.Total)
			}
			return nil
		},
	}
}

// showCmd creates the show command.
func showCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show a connection's details",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Print JSON"},
		},
		Action: func(c *cli.Context) error {
			conn, err := resolveTarget(c, env, env.protocol(c), query(c), "show", true)
			if err != nil {
				return outputError(err)
			}
			if conn == nil {
				return nil
			}

			output := ops.Describe(env.cfg, conn)
			if c.Bool("json") {
				return outputJSON(c.App.Writer, output)
			}

			w := c.App.Writer
			fmt.Fprintf(w, "Name:       %s\n", conn.Name)
			fmt.Fprintf(w, "ID:         %s\n", conn.ID)
			fmt.Fprintf(w, "Host:       %s\n", conn.Host)
			fmt.Fprintf(w, "User:       %s\n", conn.User)
			fmt.Fprintf(w, "Port:       %d\n", conn.Port)
			fmt.Fprintf(w, "Bastion:    %s\n", bastionLabel(conn))
			fmt.Fprintf(w, "Kerberos:   %t\n", conn.UseKerberos)
			if conn.KeyPath != nil && *conn.KeyPath != "" {
				fmt.Fprintf(w, "Key:        %s\n", *conn.KeyPath)
			}
			fmt.Fprintf(w, "Tags:       %s\n", tagsLabel(conn.Tags))
			fmt.Fprintf(w, "Created:    %s\n", time.Unix(conn.CreatedAt, 0).Format("2006-01-02 15:04"))
			fmt.Fprintf(w, "Last used:  %s\n", lastUsed(conn, env.clock()))
			fmt.Fprintf(w, "Command:    %s\n", output.Command)
			return nil
		},
	}
}

// editCmd creates the edit command.
func editCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "edit",
		Usage:     "Change fields of a stored connection",
		ArgsUsage: "<query>",
		Flags: append(overrideFlags(),
			&cli.StringFlag{Name: "name", Usage: "New name"},
			&cli.StringFlag{Name: "host", Usage: "New host"},
			&cli.StringFlag{Name: "add-tags", Usage: "Comma-separated tags to add"},
			&cli.StringFlag{Name: "remove-tags", Usage: "Comma-separated tags to remove"},
			&cli.BoolFlag{Name: "json", Usage: "Print JSON"},
		),
		Action: func(c *cli.Context) error {
			input := ops.EditInput{
				Name:        optString(c, "name"),
				Host:        optString(c, "host"),
				User:        optString(c, "user"),
				Port:        optInt(c, "port"),
				UseKerberos: optBool(c, "kerberos"),
				Bastion:     optString(c, "bastion"),
				NoBastion:   c.Bool("no-bastion"),
				BastionUser: optString(c, "bastion-user"),
				KeyPath:     optString(c, "key"),
				AddTags:     parseTags(c.String("add-tags")),
				RemoveTags:  parseTags(c.String("remove-tags")),
			}

			conn, err := resolveTarget(c, env, env.protocol(c), query(c), "edit", false)
			if err != nil {
				return outputError(err)
			}
			if conn == nil {
				return nil
			}
			input.Target = conn.ID

			output, err := ops.Edit(c.Context, env.db, input)
			if err != nil {
				return outputError(err)
			}

			if c.Bool("json") {
				return outputJSON(c.App.Writer, output)
			}
			fmt.Fprintf(c.App.Writer, "Updated connection '%s'\n", output.Connection.Name)
			fmt.Fprintf(c.App.Writer, "  %s\n", connection.Command(&output.Connection, env.cfg.SSHBinary))
			return nil
		},
	}
}

// removeCmd creates the remove command.
func removeCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "remove",
		Aliases:   []string{"rm"},
		Usage:     "Delete a connection and its session history",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "Skip the confirmation prompt"},
		},
		Action: func(c *cli.Context) error {
			p := env.protocol(c)
			conn, err := resolveTarget(c, env, p, query(c), "remove", false)
			if err != nil {
				return outputError(err)
			}
			if conn == nil {
				return nil
			}

			if !c.Bool("force") {
				ok, err := p.Confirm(fmt.Sprintf("Remove connection '%s' (%s)? [y/N]: ", conn.Name, address(conn)), false)
				if err != nil {
					return outputError(err)
				}
				if !ok {
					fmt.Fprintln(c.App.Writer, "Operation cancelled.")
					return nil
				}
			}

			output, err := ops.Remove(c.Context, env.db, ops.RemoveInput{Target: conn.ID})
			if err != nil {
				return outputError(err)
			}
			env.logger.Info("connection removed", zap.String("id", output.ID), zap.Int("sessions", output.SessionsRemoved))
			fmt.Fprintf(c.App.Writer, "Removed connection '%s'\n", output.Name)
			return nil
		},
	}
}

// statsCmd creates the stats command.
func statsCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show connection and session statistics",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Print JSON"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Stats(c.Context, env.db)
			if err != nil {
				return outputError(err)
			}
			if c.Bool("json") {
				return outputJSON(c.App.Writer, output)
			}

			w := c.App.Writer
			now := env.clock()
			fmt.Fprintf(w, "Connections: %d\n", output.TotalConnections)
			if output.MostRecent != nil {
				fmt.Fprintf(w, "Most recent: %s (%s)\n", output.MostRecent.Name, lastUsed(output.MostRecent, now))
			}
			fmt.Fprintf(w, "Sessions:    %d total, %d active, %d failed\n",
				output.Sessions.Total, output.Sessions.Active, output.Sessions.Failed)

			if len(output.Tags) > 0 {
				fmt.Fprintln(w, "\nTags:")
				for _, tc := range output.Tags {
					fmt.Fprintf(w, "  %-20s %d\n", tc.Tag, tc.Count)
				}
			}
			if len(output.Recent) > 0 {
				fmt.Fprintln(w, "\nRecently used:")
				for i := range output.Recent {
					fmt.Fprintf(w, "  %d. %s (%s)\n", i+1, output.Recent[i].Name, lastUsed(&output.Recent[i], now))
				}
			}
			return nil
		},
	}
}

// historyCmd creates the history command.
func historyCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List past ssh sessions, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "connection", Aliases: []string{"c"}, Usage: "Connection id or name substring"},
			&cli.IntFlag{Name: "days", Aliases: []string{"d"}, Usage: "Only the last N days"},
			&cli.BoolFlag{Name: "failed", Usage: "Only failed sessions"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: ops.DefaultHistoryLimit, Usage: "Maximum sessions"},
			&cli.BoolFlag{Name: "json", Usage: "Print JSON"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.History(c.Context, env.db, ops.HistoryInput{
				Connection: optString(c, "connection"),
				Days:       c.Int("days"),
				FailedOnly: c.Bool("failed"),
				Limit:      c.Int("limit"),
				Now:        env.clock(),
			})
			if err != nil {
				return outputError(err)
			}
			if c.Bool("json") {
				return outputJSON(c.App.Writer, output)
			}
			if len(output.Sessions) == 0 {
				fmt.Fprintln(c.App.Writer, "No sessions found.")
				return nil
			}

			tw := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "STARTED\tCONNECTION\tSTATUS\tEXIT\tDURATION")
			for i := range output.Sessions {
				s := &output.Sessions[i]
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					time.Unix(s.StartedAt, 0).Format("2006-01-02 15:04"),
					s.ConnectionName, s.Status, exitLabel(s), durationLabel(s))
			}
			if err := tw.Flush(); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// importCmd creates the import command.
func importCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import connections from a bssh export or an OpenSSH config",
		ArgsUsage: "[path]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "ssh-config", Usage: "Read an OpenSSH config file (default ~/.ssh/config)"},
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "error", Usage: "Collision mode: error|skip|replace"},
			&cli.BoolFlag{Name: "no-bastion", Usage: "Do not apply the default bastion to imported hosts"},
		},
		Action: func(c *cli.Context) error {
			path := c.Args().First()

			var (
				output *ops.ImportOutput
				err    error
			)
			if c.Bool("ssh-config") {
				output, err = ops.ImportSSHConfig(c.Context, env.db, env.cfg, ops.ImportSSHConfigInput{
					Path:      path,
					NoBastion: c.Bool("no-bastion"),
				})
			} else {
				if path == "" {
					return outputError(errors.NewInvalidRequest("path is required (or use --ssh-config)"))
				}
				output, err = ops.Import(c.Context, env.db, env.cfg, ops.ImportInput{
					Path: path,
					Mode: ops.ImportMode(c.String("mode")),
				})
			}
			if err != nil {
				return outputError(err)
			}
			env.logger.Info("import finished", zap.Int("imported", output.Imported), zap.Int("skipped", output.Skipped))
			return outputJSON(c.App.Writer, output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export connections to a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Usage: "Output path (default ~/.bssh/exports/<tag|all>-<timestamp>.jsonl)"},
			&cli.StringFlag{Name: "tag", Aliases: []string{"t"}, Usage: "Only connections carrying this tag"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Export(c.Context, env.db, env.cfg, ops.ExportInput{
				Path: c.String("path"),
				Tag:  optString(c, "tag"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// configCmd creates the config command.
func configCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Show or change settings",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Print the effective configuration",
				Action: func(c *cli.Context) error {
					return outputJSON(c.App.Writer, env.cfg)
				},
			},
			{
				Name:      "set",
				Usage:     "Change one setting",
				ArgsUsage: "<key> <value>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 2 {
						return outputError(errors.NewInvalidRequest("usage: bssh config set <key> <value>"))
					}
					key, value := c.Args().Get(0), c.Args().Get(1)
					if err := env.cfg.Set(key, value); err != nil {
						return outputError(errors.NewInvalidRequest(err.Error()))
					}
					if err := config.Save(env.baseDir, env.cfg); err != nil {
						return outputError(errors.NewInternal(err))
					}
					fmt.Fprintf(c.App.Writer, "Set %s = %s\n", key, value)
					return nil
				},
			},
		},
	}
}

// mcpCmd creates the mcp command.
func mcpCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve connection tools over MCP (stdio)",
		Action: func(_ *cli.Context) error {
			if unknown := mcp.ValidateDisabledTools(env.cfg.DisabledTools); len(unknown) > 0 {
				env.logger.Warn("unknown tools in disabled_tools", zap.Strings("tools", unknown))
			}
			if err := mcp.Run(env.db, env.cfg, Version, env.logger); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// Helper functions

// outputJSON writes v to w as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var bErr *errors.BsshError
	if errors.As(err, &bErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", bErr.Code, bErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// parseTags splits a comma-separated string into a slice of tags.
func parseTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func address(c *connection.Connection) string {
	return c.User + "@" + c.Host + ":" + strconv.Itoa(c.Port)
}

func bastionLabel(c *connection.Connection) string {
	if c.Bastion == nil || *c.Bastion == "" {
		return "-"
	}
	return c.EffectiveBastionUser() + "@" + *c.Bastion
}

func tagsLabel(tags []string) string {
	if len(tags) == 0 {
		return "-"
	}
	return strings.Join(tags, ",")
}

func lastUsed(c *connection.Connection, now time.Time) string {
	if c.LastUsedAt == nil {
		return "never"
	}
	return connection.FormatAgo(*c.LastUsedAt, now)
}

func exitLabel(s *connection.Session) string {
	if s.ExitCode == nil {
		return "-"
	}
	return strconv.Itoa(*s.ExitCode)
}

func durationLabel(s *connection.Session) string {
	if s.EndedAt == nil {
		return "-"
	}
	return (time.Duration(*s.EndedAt-s.StartedAt) * time.Second).String()
}
