package archive

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/sweeney/air-quality/internal/logger"
)

// SchemaVersion is bumped on every incompatible table change.
const SchemaVersion = 1

const (
	createTablesSQL = `
	   CREATE TABLE IF NOT EXISTS schema_versions (
	       version     INTEGER PRIMARY KEY,
	       applied_at  TEXT NOT NULL
	   );
	   CREATE TABLE IF NOT EXISTS samples (
	       id          INTEGER PRIMARY KEY AUTOINCREMENT,
	       timestamp   TEXT NOT NULL,
	       elapsed_ms  INTEGER NOT NULL CHECK (typeof(elapsed_ms) = 'integer'),
	       reading     INTEGER NOT NULL CHECK (reading BETWEEN 0 AND 1023),
	       fan_on      INTEGER NOT NULL CHECK (fan_on IN (0, 1))
	   );`

	insertSampleSQL = `
    INSERT INTO samples (timestamp, elapsed_ms, reading, fan_on)
    VALUES (?, ?, ?, ?)`
)

// ErrSchemaMismatch is returned when an existing archive was written by an
// incompatible version.
var ErrSchemaMismatch = errors.New("archive schema version mismatch")

// initSchema creates the tables if needed and checks the recorded version.
func initSchema(db *sql.DB) error {
	version, err := schemaVersion(db)
	if err != nil {
		return err
	}
	if version != 0 && version != SchemaVersion {
		return fmt.Errorf("%w: found %d, want %d", ErrSchemaMismatch, version, SchemaVersion)
	}
	if version == SchemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
				logger.Debug().Err(err).Msg("schema rollback failed")
			}
		}
	}()

	if _, err := tx.Exec(createTablesSQL); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	if _, err := tx.Exec(`
        INSERT INTO schema_versions (version, applied_at)
        VALUES (?, datetime('now'))
    `, SchemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	committed = true

	logger.Info().Int("version", SchemaVersion).Msg("archive schema initialized")
	return nil
}

// schemaVersion returns 0 for a fresh database.
func schemaVersion(db *sql.DB) (int, error) {
	var exists bool
	err := db.QueryRow(`
        SELECT EXISTS (
            SELECT 1 FROM sqlite_master
            WHERE type='table' AND name='schema_versions'
        )
    `).Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("check schema table: %w", err)
	}
	if !exists {
		return 0, nil
	}

	var version int
	err = db.QueryRow(`
        SELECT version
        FROM schema_versions
        ORDER BY version DESC
        LIMIT 1
    `).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}
