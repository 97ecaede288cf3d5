package ops

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hpungsan/bssh/internal/db"
	"github.com/hpungsan/bssh/internal/errors"
)

// writeExport writes lines into <base>/exports/name and returns the path.
func writeExport(t *testing.T, base, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(base, ExportsDirName, name)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

const importHeader = `{"_bssh_export":true,"schema_version":"1.0","exported_at":1700000000}`

func TestImport_ModeError(t *testing.T) {
	database, base := setupTestDB(t)
	ctx := context.Background()
	cfg := testConfig()

	path := writeExport(t, base, "in.jsonl",
		importHeader,
		`{"id":"01IMPORT0000000000000000A1","name":"web","host":"10.0.0.1","user":"deploy","port":2222,"tags":["prod","Prod"],"created_at":100}`,
		`{"name":"db","host":"10.0.0.2"}`,
	)

	out, err := Import(ctx, database, cfg, ImportInput{Path: path})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if out.Imported != 2 || len(out.Errors) != 0 {
		t.Fatalf("unexpected output: %+v", out)
	}

	web, err := db.GetConnectionByID(ctx, database, "01IMPORT0000000000000000A1")
	if err != nil {
		t.Fatalf("GetConnectionByID failed: %v", err)
	}
	if web.User != "deploy" || web.Port != 2222 || web.CreatedAt != 100 || len(web.Tags) != 1 {
		t.Errorf("unexpected web: %+v", web)
	}

	dbc, err := db.GetConnectionByName(ctx, database, "db")
	if err != nil {
		t.Fatalf("GetConnectionByName failed: %v", err)
	}
	if dbc.ID == "" || dbc.User != "admin" || dbc.Port != 22 || dbc.CreatedAt == 0 {
		t.Errorf("defaults not applied: %+v", dbc)
	}
}

func TestImport_ModeErrorIsAtomic(t *testing.T) {
	database, base := setupTestDB(t)
	ctx := context.Background()
	cfg := testConfig()
	mustAdd(t, database, cfg, AddInput{Name: "existing", Host: "h"})

	path := writeExport(t, base, "in.jsonl",
		importHeader,
		`{"name":"fresh","host":"h"}`,
		`{"name":"EXISTING","host":"h"}`,
	)

	out, err := Import(ctx, database, cfg, ImportInput{Path: path, Mode: ImportModeError})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if out.Imported != 0 || len(out.Errors) != 1 {
		t.Fatalf("unexpected output: %+v", out)
	}
	if out.Errors[0].Code != string(errors.ErrNameAlreadyExists) || out.Errors[0].Line != 3 {
		t.Errorf("unexpected error entry: %+v", out.Errors[0])
	}
	if _, err := db.GetConnectionByName(ctx, database, "fresh"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("fresh was committed despite the collision: %v", err)
	}
}

func TestImport_ModeErrorParseFailure(t *testing.T) {
	database, base := setupTestDB(t)
	path := writeExport(t, base, "in.jsonl",
		importHeader,
		`{"name":"ok","host":"h"}`,
		`{not json`,
		`{"name":"nohost"}`,
	)

	out, err := Import(context.Background(), database, testConfig(), ImportInput{Path: path})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if out.Imported != 0 || len(out.Errors) != 2 {
		t.Fatalf("unexpected output: %+v", out)
	}
	if out.Errors[0].Code != "PARSE_ERROR" || out.Errors[0].Line != 3 {
		t.Errorf("unexpected first error: %+v", out.Errors[0])
	}
	if out.Errors[1].Code != "INVALID_RECORD" || out.Errors[1].Line != 4 {
		t.Errorf("unexpected second error: %+v", out.Errors[1])
	}
}

func TestImport_ModeSkip(t *testing.T) {
	database, base := setupTestDB(t)
	ctx := context.Background()
	cfg := testConfig()
	mustAdd(t, database, cfg, AddInput{Name: "web", Host: "old"})

	path := writeExport(t, base, "in.jsonl",
		importHeader,
		`{"name":"web","host":"new"}`,
		`{"name":"db","host":"h"}`,
		`garbage`,
	)

	out, err := Import(ctx, database, cfg, ImportInput{Path: path, Mode: ImportModeSkip})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if out.Imported != 1 || out.Skipped != 2 || len(out.Errors) != 1 {
		t.Fatalf("unexpected output: %+v", out)
	}

	web, err := db.GetConnectionByName(ctx, database, "web")
	if err != nil {
		t.Fatalf("GetConnectionByName failed: %v", err)
	}
	if web.Host != "old" {
		t.Errorf("web.Host = %q, want old", web.Host)
	}
}

func TestImport_ModeReplace(t *testing.T) {
	database, base := setupTestDB(t)
	ctx := context.Background()
	cfg := testConfig()
	existing := mustAdd(t, database, cfg, AddInput{Name: "web", Host: "old"})
	other := mustAdd(t, database, cfg, AddInput{Name: "db", Host: "old"})

	path := writeExport(t, base, "in.jsonl",
		importHeader,
		`{"id":"01IMPORT0000000000000000B1","name":"WEB","host":"new"}`,
		`{"id":"`+existing.ID+`","name":"db","host":"x"}`,
		`{"name":"cache","host":"h"}`,
	)

	out, err := Import(ctx, database, cfg, ImportInput{Path: path, Mode: ImportModeReplace})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if out.Imported != 2 || out.Skipped != 1 || len(out.Errors) != 1 {
		t.Fatalf("unexpected output: %+v", out)
	}
	if out.Errors[0].Code != "AMBIGUOUS_COLLISION" {
		t.Errorf("unexpected error: %+v", out.Errors[0])
	}

	web, err := db.GetConnectionByID(ctx, database, existing.ID)
	if err != nil {
		t.Fatalf("GetConnectionByID failed: %v", err)
	}
	if web.Host != "new" || web.Name != "WEB" {
		t.Errorf("web not replaced in place: %+v", web)
	}
	dbc, err := db.GetConnectionByID(ctx, database, other.ID)
	if err != nil {
		t.Fatalf("GetConnectionByID failed: %v", err)
	}
	if dbc.Host != "old" {
		t.Errorf("db should be untouched, got host %q", dbc.Host)
	}
}

func TestImport_Validation(t *testing.T) {
	database, base := setupTestDB(t)
	ctx := context.Background()
	cfg := testConfig()

	if _, err := Import(ctx, database, cfg, ImportInput{Path: "x.jsonl", Mode: "rename"}); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("bad mode error = %v, want INVALID_REQUEST", err)
	}
	if _, err := Import(ctx, database, cfg, ImportInput{}); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("missing path error = %v, want INVALID_REQUEST", err)
	}
	missing := filepath.Join(base, ExportsDirName, "missing.jsonl")
	if _, err := Import(ctx, database, cfg, ImportInput{Path: missing}); !errors.Is(err, errors.ErrFileNotFound) {
		t.Errorf("missing file error = %v, want FILE_NOT_FOUND", err)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	database, _ := setupTestDB(t)
	ctx := context.Background()
	cfg := testConfig()
	mustAdd(t, database, cfg, AddInput{Name: "web", Host: "h1", Tags: []string{"prod"}, KeyPath: stringPtr("~/.ssh/w")})
	mustAdd(t, database, cfg, AddInput{Name: "db", Host: "h2", Bastion: stringPtr("jump"), UseKerberos: boolPtr(true)})

	exported, err := Export(ctx, database, cfg, ExportInput{})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	fresh, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	defer fresh.Close()

	out, err := Import(ctx, fresh, cfg, ImportInput{Path: exported.Path})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if out.Imported != 2 {
		t.Fatalf("Imported = %d, want 2 (%+v)", out.Imported, out.Errors)
	}

	for _, name := range []string{"web", "db"} {
		want, err := db.GetConnectionByName(ctx, database, name)
		if err != nil {
			t.Fatalf("source %s: %v", name, err)
		}
		got, err := db.GetConnectionByName(ctx, fresh, name)
		if err != nil {
			t.Fatalf("imported %s: %v", name, err)
		}
		if got.ID != want.ID || got.Host != want.Host || got.UseKerberos != want.UseKerberos {
			t.Errorf("%s differs after round trip: got %+v want %+v", name, got, want)
		}
	}
}
