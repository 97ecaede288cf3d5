package ops

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hpungsan/bssh/internal/config"
	"github.com/hpungsan/bssh/internal/connection"
	"github.com/hpungsan/bssh/internal/db"
	"github.com/hpungsan/bssh/internal/errors"
)

// ImportMode controls collision behavior during import.
type ImportMode string

const (
	ImportModeError   ImportMode = "error"   // fail on any collision (atomic)
	ImportModeSkip    ImportMode = "skip"    // keep existing, skip the incoming record
	ImportModeReplace ImportMode = "replace" // overwrite existing
)

// maxImportLine bounds a single JSONL line.
const maxImportLine = 1 << 20

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path string     // required
	Mode ImportMode // default: error
}

// ImportOutput contains the result of an import.
type ImportOutput struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Errors   []ImportError `json:"errors"`
}

// ImportError describes one record that could not be imported.
type ImportError struct {
	Line    int    `json:"line,omitempty"`
	ID      string `json:"id,omitempty"`
	Name    string `json:"name,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// importRecord is one parsed export line.
type importRecord struct {
	line int
	conn connection.Connection
}

// Import loads connections from a bssh JSONL export.
func Import(ctx context.Context, database *sql.DB, cfg *config.Config, input ImportInput) (*ImportOutput, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if input.Mode == "" {
		input.Mode = ImportModeError
	}
	switch input.Mode {
	case ImportModeError, ImportModeSkip, ImportModeReplace:
	default:
		return nil, errors.NewInvalidRequest("mode must be one of: error, skip, replace")
	}

	if err := ValidatePath(input.Path, PathCheckRead, cfg); err != nil {
		return nil, err
	}

	file, err := openFileNoFollowRead(input.Path)
	if err != nil {
		if errors.Is(err, errors.ErrInvalidRequest) || errors.Is(err, errors.ErrFileNotFound) {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	records, parseErrors := parseExportFile(file, cfg, time.Now().Unix())

	if input.Mode == ImportModeError {
		if len(parseErrors) > 0 {
			return &ImportOutput{Errors: parseErrors}, nil
		}
		return importAtomic(ctx, database, records)
	}
	return importLenient(ctx, database, records, parseErrors, input.Mode)
}

// parseExportFile reads an export, skipping the header and filling defaults
// for fields older exports may lack.
func parseExportFile(r io.Reader, cfg *config.Config, now int64) ([]importRecord, []ImportError) {
	var (
		records     []importRecord
		parseErrors []ImportError
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxImportLine)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		var header ExportHeader
		if err := json.Unmarshal(line, &header); err == nil && header.BsshExport {
			continue
		}

		var c connection.Connection
		if err := json.Unmarshal(line, &c); err != nil {
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				Code:    "PARSE_ERROR",
				Message: fmt.Sprintf("invalid JSON: %v", err),
			})
			continue
		}

		if err := prepareImported(&c, cfg, now); err != nil {
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				ID:      c.ID,
				Name:    c.Name,
				Code:    "INVALID_RECORD",
				Message: err.Error(),
			})
			continue
		}
		records = append(records, importRecord{line: lineNum, conn: c})
	}

	if err := scanner.Err(); err != nil {
		parseErrors = append(parseErrors, ImportError{
			Line:    lineNum + 1,
			Code:    "READ_ERROR",
			Message: fmt.Sprintf("failed to read file: %v", err),
		})
	}

	return records, parseErrors
}

// prepareImported validates an incoming record and fills missing fields.
func prepareImported(c *connection.Connection, cfg *config.Config, now int64) error {
	name, err := validateName(c.Name)
	if err != nil {
		return err
	}
	c.Name = name

	host, err := validateHost(c.Host)
	if err != nil {
		return err
	}
	c.Host = host

	if strings.TrimSpace(c.User) == "" {
		c.User = cfg.DefaultUser
	}
	if c.Port == 0 {
		c.Port = cfg.DefaultPort
	}
	if err := validatePort(c.Port); err != nil {
		return err
	}

	if strings.TrimSpace(c.ID) == "" {
		id, err := generateULID()
		if err != nil {
			return err
		}
		c.ID = id
	}
	if c.CreatedAt == 0 {
		c.CreatedAt = now
	}
	c.Bastion = cleanOptionalString(c.Bastion)
	c.BastionUser = cleanOptionalString(c.BastionUser)
	c.KeyPath = cleanOptionalString(c.KeyPath)
	c.Tags = connection.NormalizeTags(c.Tags)
	return nil
}

// importAtomic inserts every record in one transaction and stops at the
// first collision without writing anything.
func importAtomic(ctx context.Context, database *sql.DB, records []importRecord) (*ImportOutput, error) {
	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, rec := range records {
		c := rec.conn
		collision, err := findCollision(ctx, tx, &c)
		if err != nil {
			return nil, err
		}
		if collision != nil {
			collision.Line = rec.line
			return &ImportOutput{Errors: []ImportError{*collision}}, nil
		}
		if err := db.InsertConnection(ctx, tx, &c); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewInternal(err)
	}

	return &ImportOutput{Imported: len(records), Errors: []ImportError{}}, nil
}

// findCollision reports an id or name clash with a stored connection.
func findCollision(ctx context.Context, q db.Querier, c *connection.Connection) (*ImportError, error) {
	if _, err := db.GetConnectionByID(ctx, q, c.ID); err == nil {
		return &ImportError{
			ID:      c.ID,
			Name:    c.Name,
			Code:    "ID_COLLISION",
			Message: fmt.Sprintf("connection with id %q already exists", c.ID),
		}, nil
	} else if !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}

	exists, err := db.CheckNameExists(ctx, q, c.Name, "")
	if err != nil {
		return nil, err
	}
	if exists {
		return &ImportError{
			ID:      c.ID,
			Name:    c.Name,
			Code:    string(errors.ErrNameAlreadyExists),
			Message: fmt.Sprintf("connection with name %q already exists", c.Name),
		}, nil
	}
	return nil, nil
}

// importLenient handles skip and replace modes record by record.
func importLenient(ctx context.Context, database *sql.DB, records []importRecord, parseErrors []ImportError, mode ImportMode) (*ImportOutput, error) {
	out := &ImportOutput{Errors: []ImportError{}}
	out.Errors = append(out.Errors, parseErrors...)
	out.Skipped = len(parseErrors)

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c := rec.conn

		byID, err := db.GetConnectionByID(ctx, database, c.ID)
		if err != nil && !errors.Is(err, errors.ErrNotFound) {
			return nil, err
		}
		byName, err := db.GetConnectionByName(ctx, database, c.Name)
		if err != nil && !errors.Is(err, errors.ErrNotFound) {
			return nil, err
		}

		if byID == nil && byName == nil {
			if err := db.InsertConnection(ctx, database, &c); err != nil {
				return nil, err
			}
			out.Imported++
			continue
		}

		if mode == ImportModeSkip {
			out.Skipped++
			continue
		}

		if byID != nil && byName != nil && byID.ID != byName.ID {
			out.Errors = append(out.Errors, ImportError{
				Line:    rec.line,
				ID:      c.ID,
				Name:    c.Name,
				Code:    "AMBIGUOUS_COLLISION",
				Message: fmt.Sprintf("id %q matches one connection but name %q matches another", c.ID, c.Name),
			})
			out.Skipped++
			continue
		}

		if byID == nil {
			// Name clash under a different id: keep the stored id.
			c.ID = byName.ID
		}
		if err := db.UpdateConnection(ctx, database, &c); err != nil {
			return nil, err
		}
		out.Imported++
	}

	return out, nil
}
