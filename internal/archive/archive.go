// Package archive mirrors accepted samples into a SQLite database for
// querying. The CSV log stays authoritative; archive failures are reported
// to the caller, which only logs them.
package archive

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sweeney/air-quality/internal/csvlog"
	"github.com/sweeney/air-quality/internal/logger"
	"github.com/sweeney/air-quality/internal/logic"
)

const defaultDirPerm = 0o755

// Row is one archived sample.
type Row struct {
	ID      int64
	Time    time.Time
	Elapsed time.Duration
	Reading int
	FanOn   bool
}

// Archive is an open sample database.
type Archive struct {
	db     *sql.DB
	insert *sql.Stmt
	path   string

	mu     sync.Mutex
	closed bool
}

// Open opens or creates the archive at path.
func Open(path string) (*Archive, error) {
	if path == "" {
		return nil, fmt.Errorf("open archive: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), defaultDirPerm); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal=WAL&_busy_timeout=2000")
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	// One writer; sqlite serializes anyway.
	db.SetMaxOpenConns(1)

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	insert, err := db.Prepare(insertSampleSQL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare insert: %w", err)
	}

	logger.Info().Str("path", path).Int("schema_version", SchemaVersion).Msg("archive opened")
	return &Archive{db: db, insert: insert, path: path}, nil
}

// Record inserts one sample taken at wall-clock time at.
func (a *Archive) Record(s logic.Sample, at time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return fmt.Errorf("record sample: %w", os.ErrClosed)
	}

	fan := 0
	if s.FanOn {
		fan = 1
	}
	if _, err := a.insert.Exec(at.Format(csvlog.TimeLayout), s.Elapsed.Milliseconds(), s.Reading, fan); err != nil {
		return fmt.Errorf("record sample: %w", err)
	}
	return nil
}

// Recent returns up to limit samples, oldest first.
func (a *Archive) Recent(limit int) ([]Row, error) {
	rows, err := a.db.Query(`
        SELECT id, timestamp, elapsed_ms, reading, fan_on
        FROM (SELECT * FROM samples ORDER BY id DESC LIMIT ?)
        ORDER BY id ASC
    `, limit)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var (
			r         Row
			ts        string
			elapsedMs int64
			fan       int
		)
		if err := rows.Scan(&r.ID, &ts, &elapsedMs, &r.Reading, &fan); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		t, err := time.ParseInLocation(csvlog.TimeLayout, ts, time.Local)
		if err != nil {
			return nil, fmt.Errorf("parse timestamp %q: %w", ts, err)
		}
		r.Time = t
		r.Elapsed = time.Duration(elapsedMs) * time.Millisecond
		r.FanOn = fan == 1
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count returns the number of archived samples.
func (a *Archive) Count() (int, error) {
	var n int
	if err := a.db.QueryRow(`SELECT COUNT(*) FROM samples`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count samples: %w", err)
	}
	return n, nil
}

// Close checkpoints the WAL and closes the database. Later calls are no-ops.
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true

	a.insert.Close()
	if _, err := a.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		logger.Debug().Err(err).Msg("archive checkpoint failed")
	}
	if err := a.db.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}
	logger.Info().Str("path", a.path).Msg("archive closed")
	return nil
}
