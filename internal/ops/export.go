package ops

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/hpungsan/bssh/internal/config"
	"github.com/hpungsan/bssh/internal/connection"
	"github.com/hpungsan/bssh/internal/db"
	"github.com/hpungsan/bssh/internal/errors"
)

// ExportSchemaVersion is written into the header line of every export.
const ExportSchemaVersion = "1.0"

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Path string  // optional, default: <data dir>/exports/<tag|all>-<timestamp>.jsonl
	Tag  *string // optional exact tag filter
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Count      int    `json:"count"`
	ExportedAt int64  `json:"exported_at"`
}

// ExportHeader is the first line of a JSONL export file.
type ExportHeader struct {
	BsshExport    bool   `json:"_bssh_export"`
	SchemaVersion string `json:"schema_version"`
	ExportedAt    int64  `json:"exported_at"`
}

// Export writes connections to a JSONL file, one connection per line after
// the header. A failed export leaves any earlier file at the path untouched.
func Export(ctx context.Context, database *sql.DB, cfg *config.Config, input ExportInput) (*ExportOutput, error) {
	now := time.Now()
	exportedAt := now.Unix()

	var tag string
	if input.Tag != nil {
		tag = connection.Normalize(*input.Tag)
	}

	exportPath := input.Path
	if exportPath == "" {
		var err error
		exportPath, err = defaultExportPath(tag, now)
		if err != nil {
			return nil, err
		}
	}

	if err := ValidatePath(exportPath, PathCheckWrite, cfg); err != nil {
		return nil, err
	}

	count := 0
	err := writeAtomic(exportPath, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		if err := enc.Encode(ExportHeader{
			BsshExport:    true,
			SchemaVersion: ExportSchemaVersion,
			ExportedAt:    exportedAt,
		}); err != nil {
			return errors.NewInternal(err)
		}

		rows, err := db.StreamConnections(ctx, database)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			c, err := db.ScanConnectionFromRows(rows)
			if err != nil {
				return errors.NewInternal(err)
			}
			if tag != "" && !c.HasTag(tag) {
				continue
			}
			if err := enc.Encode(c); err != nil {
				return errors.NewInternal(err)
			}
			count++
		}
		if err := rows.Err(); err != nil {
			return errors.NewInternal(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &ExportOutput{
		Path:       exportPath,
		Count:      count,
		ExportedAt: exportedAt,
	}, nil
}

// defaultExportPath builds <exports dir>/<tag|all>-<timestamp>.jsonl.
func defaultExportPath(tag string, now time.Time) (string, error) {
	dir, err := DefaultExportsDir()
	if err != nil {
		return "", err
	}
	name := "all"
	if tag != "" {
		name = SanitizeForFilename(tag)
	}
	filename := fmt.Sprintf("%s-%s.jsonl", name, now.Format("2006-01-02T150405"))
	return filepath.Join(dir, filename), nil
}
