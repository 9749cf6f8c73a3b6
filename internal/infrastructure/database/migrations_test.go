package database

import (
	"context"
	"io/fs"
	"testing"
	"testing/fstest"
	"time"
)

// testMigrations is a two-step schema used to exercise the runner.
var testMigrations = fstest.MapFS{
	"20261001_090000_create_doors.up.sql": {Data: []byte(
		`CREATE TABLE test_doors (id TEXT PRIMARY KEY, status TEXT NOT NULL);`)},
	"20261001_090000_create_doors.down.sql": {Data: []byte(
		`DROP TABLE test_doors;`)},
	"20261002_090000_add_pin.up.sql": {Data: []byte(
		`ALTER TABLE test_doors ADD COLUMN pin INTEGER;`)},
	"20261002_090000_add_pin.down.sql": {Data: []byte(
		`ALTER TABLE test_doors DROP COLUMN pin;`)},
	"README.md": {Data: []byte("ignored")},
}

// useMigrations swaps the package-level migration source for the duration of a test.
func useMigrations(t *testing.T, fsys fs.FS) {
	t.Helper()
	origFS, origDir := MigrationsFS, MigrationsDir
	t.Cleanup(func() {
		MigrationsFS, MigrationsDir = origFS, origDir
	})
	MigrationsFS = fsys
	MigrationsDir = "."
}

func TestMigrate(t *testing.T) {
	useMigrations(t, testMigrations)
	db := openTestDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	if _, err := db.ExecContext(ctx,
		"INSERT INTO test_doors (id, status, pin) VALUES (?, ?, ?)", "chapa_principal", "cerrada", 26,
	); err != nil {
		t.Fatalf("insert after migrate: %v", err)
	}

	applied, pending, err := db.GetMigrationStatus(ctx)
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(applied) != 2 {
		t.Errorf("applied = %d, want 2", len(applied))
	}
	if len(pending) != 0 {
		t.Errorf("pending = %d, want 0", len(pending))
	}
	if applied[0].Version != "20261001_090000" {
		t.Errorf("applied[0].Version = %q, want oldest first", applied[0].Version)
	}

	// Running again should be idempotent
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

func TestGetMigrationStatus_Pending(t *testing.T) {
	useMigrations(t, fstest.MapFS{
		"20261001_090000_create_doors.up.sql": {Data: []byte(
			`CREATE TABLE test_doors (id TEXT PRIMARY KEY);`)},
	})
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	// A newer binary ships one more migration.
	useMigrations(t, testMigrations)

	applied, pending, err := db.GetMigrationStatus(ctx)
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(applied) != 1 || len(pending) != 1 {
		t.Fatalf("applied=%d pending=%d, want 1 and 1", len(applied), len(pending))
	}
	if pending[0].Name != "add_pin" {
		t.Errorf("pending[0].Name = %q, want add_pin", pending[0].Name)
	}
	if applied[0].AppliedAt.IsZero() {
		t.Error("applied[0].AppliedAt is zero")
	}
}

func TestMigrateNoMigrations(t *testing.T) {
	useMigrations(t, nil)
	db := openTestDB(t)

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() with no migrations error = %v", err)
	}
}

func TestMigrateBadSQL(t *testing.T) {
	useMigrations(t, fstest.MapFS{
		"20261001_090000_good.up.sql":   {Data: []byte(`CREATE TABLE good (id INTEGER);`)},
		"20261002_090000_broken.up.sql": {Data: []byte(`CREATE TABLE broken (`)},
	})
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err == nil {
		t.Fatal("Migrate() error = nil, want error for broken SQL")
	}

	applied, _, err := db.GetMigrationStatus(ctx)
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(applied) != 1 {
		t.Errorf("applied = %d, want 1 (earlier migration stays committed)", len(applied))
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		wantVersion string
		wantOk      bool
	}{
		{name: "valid up migration", filename: "20261015_120000_relay_journal.up.sql", wantVersion: "20261015_120000", wantOk: true},
		{name: "down migration skipped", filename: "20261015_120000_relay_journal.down.sql"},
		{name: "not sql file", filename: "readme.txt"},
		{name: "missing direction", filename: "20261015_120000_relay_journal.sql"},
		{name: "invalid format", filename: "invalid.up.sql"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, ok := parseMigrationFilename(tt.filename)
			if ok != tt.wantOk {
				t.Errorf("ok = %v, want %v", ok, tt.wantOk)
			}
			if ok && version != tt.wantVersion {
				t.Errorf("version = %v, want %v", version, tt.wantVersion)
			}
		})
	}
}

func TestExtractMigrationName(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"20261015_120000_relay_journal.up.sql", "relay_journal"},
		{"20261016_080000_add_status_index.up.sql", "add_status_index"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if got := extractMigrationName(tt.filename); got != tt.want {
				t.Errorf("extractMigrationName(%q) = %q, want %q", tt.filename, got, tt.want)
			}
		})
	}
}
