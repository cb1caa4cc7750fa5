package store

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"testing"

	"github.com/johnyfernandes/shlf-sync/config"
	"github.com/johnyfernandes/shlf-sync/log"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

const latestSchemaFileName = "LATEST_SCHEMA.sql"

// Initialize the logger and config
func init() {
	config.Opts = config.GetDefaultOptions()
	log.Logger = log.NewLogger()
}

//go:embed db/migration
var migrationFS embed.FS

func newTestStore(t *testing.T, name string) *Store {
	t.Helper()

	dir := os.TempDir() + "/shlf-sync-test"
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.Mkdir(dir, 0755); err != nil {
			t.Fatalf("Failed to create test directory: %v", err)
		}
	}

	filename := fmt.Sprintf("%s/%s.db", dir, name)
	os.Remove(filename)
	db, err := sql.Open("sqlite", filename)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
		os.Remove(filename)
	})

	if err := applyLatestSchema(db); err != nil {
		t.Fatalf("Failed to apply schema: %v", err)
	}
	return NewStore(db)
}

func applyLatestSchema(db *sql.DB) error {
	latestSchemaPath := fmt.Sprintf("db/migration/%s", latestSchemaFileName)
	buf, err := migrationFS.ReadFile(latestSchemaPath)
	if err != nil {
		return errors.Wrapf(err, "Failed to read latest schema file: %q", latestSchemaPath)
	}

	stmt := string(buf)
	if err := execute(stmt, db); err != nil {
		return errors.Wrapf(err, "Failed to apply latest schema: %s", stmt)
	}
	return nil
}

func execute(stmt string, d *sql.DB) error {
	tx, err := d.Begin()
	if err != nil {
		return err
	}

	if _, err := tx.Exec(stmt); err != nil {
		tx.Rollback()
		return errors.Wrap(err, "failed to execute statement")
	}

	return tx.Commit()
}
