package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"slices"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/johnyfernandes/shlf-sync/config"
	"github.com/johnyfernandes/shlf-sync/version"
)

type DB struct {
	*sql.DB
}

func NewDB(path string) (*DB, error) {
	if path == "" {
		return nil, errors.New("Database path is required")
	}

	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	return &DB{d}, nil
}

func (d *DB) Close() error {
	return d.DB.Close()
}

//go:embed migration
var migrationFS embed.FS

const latestSchemaFileName = "LATEST_SCHEMA.sql"

// Migrate applies the latest schema to the database.
func (d *DB) Migrate(ctx context.Context) error {
	currentVersion := version.GetCurrentVersion()
	if _, err := os.Stat(config.Opts.DSN); err != nil {
		// If the db file does not exist, create a new one with latest schema
		if errors.Is(err, os.ErrNotExist) {
			if err := d.applyLatestSchema(ctx); err != nil {
				return errors.Wrap(err, "failed to apply latest schema")
			}
			if _, err := d.UpsertMigrationHistory(ctx, &UpsertMigrationHistory{
				Version: currentVersion,
			}); err != nil {
				return errors.Wrap(err, "failed to upsert migration history")
			}
		} else {
			return errors.Wrap(err, "failed to check database file")
		}
		return nil
	}

	// If db file exist, check need to migrate or not
	migrationHistoryList, err := d.FindMigrationHistoryList(ctx, &FindMigrationHistory{})
	if err != nil {
		return errors.Wrap(err, "failed to find migration history list")
	}

	// If no migration history, apply latest schema
	if len(migrationHistoryList) == 0 {
		if err := d.applyLatestSchema(ctx); err != nil {
			return errors.Wrap(err, "failed to apply latest schema")
		}
		if _, err := d.UpsertMigrationHistory(ctx, &UpsertMigrationHistory{
			Version: currentVersion,
		}); err != nil {
			return errors.Wrap(err, "failed to upsert migration history")
		}
		return nil
	}

	migrationHistoryVersionList := []string{}
	for _, migrationHistory := range migrationHistoryList {
		migrationHistoryVersionList = append(migrationHistoryVersionList, migrationHistory.Version)
	}
	// Sort and get the latest version
	version.SortVersion(migrationHistoryVersionList)
	latestMigrationHistoryVersion := migrationHistoryVersionList[len(migrationHistoryVersionList)-1]

	if version.IsVersionGreaterThan(version.GetSchemaVersion(currentVersion), latestMigrationHistoryVersion) {
		minorVersionList := getMinorVersionList()
		// Backup the raw database file before migration
		rawBytes, err := os.ReadFile(config.Opts.DSN)
		if err != nil {
			return errors.Wrap(err, "failed to read raw database file")
		}
		backupDBFilePath := fmt.Sprintf("%s/shlf-sync_%s_%d_backup.db", config.Opts.Data, currentVersion, time.Now().Unix())
		if err := os.WriteFile(backupDBFilePath, rawBytes, 0644); err != nil {
			return errors.Wrap(err, "failed to write backup database file")
		}

		for _, minorVersion := range minorVersionList {
			// Patch releases don't carry schema changes
			normalizedVersion := minorVersion + ".0"
			if version.IsVersionGreaterThan(normalizedVersion, latestMigrationHistoryVersion) && version.IsVersionGreaterOrEqualThan(currentVersion, normalizedVersion) {
				if err := d.applyMigrationForMinorVersion(ctx, minorVersion); err != nil {
					return errors.Wrap(err, "failed to apply minor version migration")
				}
			}
		}

		// Remove the created backup db file after migrate succeed.
		if err := os.Remove(backupDBFilePath); err != nil {
			fmt.Printf("Failed to remove temp database file, err: %v", err)
		}
	}
	return nil
}

func (d *DB) applyLatestSchema(ctx context.Context) error {
	latestSchemaPath := fmt.Sprintf("migration/%s", latestSchemaFileName)
	buf, err := migrationFS.ReadFile(latestSchemaPath)
	if err != nil {
		return errors.Wrapf(err, "failed to read latest schema file: %q", latestSchemaPath)
	}

	stmt := string(buf)
	if err := d.execute(ctx, stmt); err != nil {
		return errors.Wrapf(err, "failed to apply latest schema: %s", stmt)
	}
	return nil
}

func (d *DB) applyMigrationForMinorVersion(ctx context.Context, minorVersion string) error {
	filenames, err := fs.Glob(migrationFS, fmt.Sprintf("migration/%s/*.sql", minorVersion))
	if err != nil {
		return errors.Wrapf(err, "Failed to find migration files for version %s", minorVersion)
	}

	// Migration files are applied in name order:
	// 10001_example.sql, 10002_example.sql, ...
	slices.Sort(filenames)

	for _, filename := range filenames {
		buf, err := migrationFS.ReadFile(filename)
		if err != nil {
			return errors.Wrapf(err, "Failed to read migration file: %q", filename)
		}
		stmt := string(buf)
		if err := d.execute(ctx, stmt); err != nil {
			return errors.Wrapf(err, "Failed to apply migration: %s", stmt)
		}
	}

	// Upsert the newest version to migration_history.
	newVersion := minorVersion + ".0"
	if _, err := d.UpsertMigrationHistory(ctx, &UpsertMigrationHistory{
		Version: newVersion,
	}); err != nil {
		return errors.Wrapf(err, "Failed to upsert migration history for version %s", newVersion)
	}

	return nil
}

// execute runs a single SQL statement within a transaction.
func (d *DB) execute(ctx context.Context, stmt string) error {
	tx, err := d.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return errors.Wrap(err, "failed to execute statement")
	}

	return tx.Commit()
}

// minorDirRegexp is a regular expression for minor version directory.
var minorDirRegexp = regexp.MustCompile(`^migration/[0-9]+\.[0-9]+$`)

func getMinorVersionList() []string {
	minorVersionList := []string{}

	if err := fs.WalkDir(migrationFS, "migration", func(path string, file fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if file.IsDir() && minorDirRegexp.MatchString(path) {
			minorVersionList = append(minorVersionList, file.Name())
		}

		return nil
	}); err != nil {
		panic(err)
	}

	version.SortVersion(minorVersionList)

	return minorVersionList
}
