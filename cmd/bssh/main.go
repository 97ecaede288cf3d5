package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/hpungsan/bssh/internal/config"
	"github.com/hpungsan/bssh/internal/db"
	"github.com/hpungsan/bssh/internal/errors"
	"github.com/hpungsan/bssh/internal/logging"
	"github.com/hpungsan/bssh/internal/mcp"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands and aliases.
var cliCommands = map[string]bool{
	"connect": true, "c": true,
	"add": true, "list": true, "ls": true, "show": true, "edit": true,
	"remove": true, "rm": true,
	"stats": true, "history": true,
	"import": true, "export": true, "config": true, "mcp": true,
	"help": true, "h": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode(args []string) bool {
	for _, arg := range args[1:] {
		if arg == "--verbose" || arg == "-V" {
			continue
		}
		if cliCommands[arg] {
			return true
		}
		return isHelpOrVersion([]string{args[0], arg})
	}
	return false
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion(args []string) bool {
	if len(args) < 2 {
		return false
	}
	switch args[1] {
	case "--help", "-h", "--version", "-v", "help", "--generate-bash-completion":
		return true
	}
	return false
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   _                _
  | |__  ___ ___| |__
  | '_ \/ __/ __| '_ \
  | |_) \__ \__ \ | | |
  |_.__/|___/___/_| |_|

  Fuzzy SSH connection manager

  Usage: bssh <command> [options]
         bssh connect <query>
         bssh --help

  MCP server mode requires piped input.`)
}

// exit reports err on stderr and terminates with its exit code.
func exit(err error) {
	code := 1
	if ec, ok := err.(cli.ExitCoder); ok {
		code = ec.ExitCode()
		if msg := ec.Error(); msg != "" {
			fmt.Fprintln(os.Stderr, msg)
		}
	} else {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	os.Exit(code)
}

func main() {
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Help and version need no database.
	if isHelpOrVersion(os.Args) {
		if err := newCLIApp(&appEnv{}).Run(os.Args); err != nil {
			exit(err)
		}
		return
	}

	if err := run(os.Args); err != nil {
		exit(err)
	}
}

func run(args []string) error {
	baseDir, err := config.BaseDir()
	if err != nil {
		return err
	}

	cfg, err := config.Load(baseDir)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	database, err := db.Init(baseDir)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()
	db.ConfigurePool(database, cfg)

	if isCLIMode(args) {
		return newCLIApp(&appEnv{db: database, cfg: cfg, baseDir: baseDir}).Run(args)
	}

	// Unknown argument on a terminal: don't start the MCP server.
	if len(args) >= 2 && isTerminal() {
		return cli.Exit(fmt.Sprintf("[%s] unknown command %q\nRun 'bssh --help' for usage.", errors.ErrInvalidRequest, args[1]), 1)
	}

	logger, err := logging.New(baseDir, cfg.LogLevel, false)
	if err != nil {
		return fmt.Errorf("failed to open log: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := mcp.Run(database, cfg, Version, logger); err != nil {
		logger.Error("mcp server stopped", zap.Error(err))
		return err
	}
	return nil
}
