package ops

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hpungsan/bssh/internal/config"
	"github.com/hpungsan/bssh/internal/errors"
)

// ImportedTag is attached to every connection created from an OpenSSH config.
const ImportedTag = "imported"

// SSHHost is one concrete Host block of an OpenSSH client config.
type SSHHost struct {
	Alias        string
	HostName     string
	User         string
	Port         int
	IdentityFile string
	ProxyJump    string
}

// ParseSSHConfig extracts Host blocks from an OpenSSH client config. Patterns
// containing wildcards or negations are skipped, and a block listing several
// aliases yields one SSHHost per alias. Match blocks end the current Host.
func ParseSSHConfig(r io.Reader) ([]SSHHost, error) {
	var (
		hosts   []SSHHost
		current []SSHHost // aliases of the open Host block
	)
	flush := func() {
		hosts = append(hosts, current...)
		current = nil
	}

	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value := splitDirective(line)
		switch strings.ToLower(key) {
		case "host":
			flush()
			for _, alias := range strings.Fields(value) {
				if strings.ContainsAny(alias, "*?!") {
					continue
				}
				current = append(current, SSHHost{Alias: alias})
			}
		case "match":
			flush()
		case "hostname":
			setAll(current, func(h *SSHHost) { h.HostName = value })
		case "user":
			setAll(current, func(h *SSHHost) { h.User = value })
		case "port":
			port, err := strconv.Atoi(value)
			if err != nil || port < 1 || port > MaxPort {
				return nil, fmt.Errorf("line %d: invalid port %q", lineNum, value)
			}
			setAll(current, func(h *SSHHost) { h.Port = port })
		case "identityfile":
			setAll(current, func(h *SSHHost) {
				if h.IdentityFile == "" {
					h.IdentityFile = value
				}
			})
		case "proxyjump":
			setAll(current, func(h *SSHHost) { h.ProxyJump = value })
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()
	return hosts, nil
}

// splitDirective splits "Key value" or "Key=value" and strips quotes.
func splitDirective(line string) (string, string) {
	idx := strings.IndexAny(line, " \t=")
	if idx < 0 {
		return line, ""
	}
	key := line[:idx]
	value := strings.TrimLeft(line[idx:], " \t=")
	return key, strings.Trim(strings.TrimSpace(value), `"`)
}

func setAll(hosts []SSHHost, fn func(*SSHHost)) {
	for i := range hosts {
		fn(&hosts[i])
	}
}

// parseJump splits a ProxyJump value into user and host. Only the first hop
// of a chain is used, and "none" disables the jump.
func parseJump(value string) (user, host string) {
	first := strings.TrimSpace(strings.Split(value, ",")[0])
	if first == "" || strings.EqualFold(first, "none") {
		return "", ""
	}
	if at := strings.LastIndex(first, "@"); at >= 0 {
		user, first = first[:at], first[at+1:]
	}
	// Drop an explicit port; bastion hops always use 22.
	if h, _, ok := strings.Cut(first, ":"); ok {
		first = h
	}
	return user, first
}

// ImportSSHConfigInput contains parameters for ImportSSHConfig.
type ImportSSHConfigInput struct {
	Path      string // default: ~/.ssh/config
	NoBastion bool   // do not apply the configured default bastion
}

// ImportSSHConfig creates a connection for every concrete Host in an OpenSSH
// config. Hosts whose alias is already a connection name are skipped.
func ImportSSHConfig(ctx context.Context, database *sql.DB, cfg *config.Config, input ImportSSHConfigInput) (*ImportOutput, error) {
	path := input.Path
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, errors.NewInternal(fmt.Errorf("failed to get home directory: %w", err))
		}
		path = filepath.Join(home, ".ssh", "config")
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewFileNotFound(path)
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open ssh config: %w", err))
	}
	defer file.Close()

	hosts, err := ParseSSHConfig(file)
	if err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid ssh config: %v", err))
	}

	out := &ImportOutput{Errors: []ImportError{}}
	for _, h := range hosts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		in := AddInput{
			Name:      h.Alias,
			Host:      h.Alias,
			NoBastion: input.NoBastion,
			Tags:      []string{ImportedTag},
		}
		if h.HostName != "" {
			in.Host = h.HostName
		}
		if h.User != "" {
			in.User = &h.User
		}
		if h.Port != 0 {
			in.Port = &h.Port
		}
		if h.IdentityFile != "" {
			in.KeyPath = &h.IdentityFile
		}
		if jumpUser, jumpHost := parseJump(h.ProxyJump); jumpHost != "" && !input.NoBastion {
			in.Bastion = &jumpHost
			if jumpUser != "" {
				in.BastionUser = &jumpUser
			}
		}

		if _, err := Add(ctx, database, cfg, in); err != nil {
			if errors.Is(err, errors.ErrNameAlreadyExists) {
				out.Skipped++
				continue
			}
			if errors.Is(err, errors.ErrInvalidRequest) {
				out.Errors = append(out.Errors, ImportError{
					Name:    h.Alias,
					Code:    string(errors.ErrInvalidRequest),
					Message: err.Error(),
				})
				out.Skipped++
				continue
			}
			return nil, err
		}
		out.Imported++
	}

	return out, nil
}
