package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/infostats/internal/model"
)

// FileName is the database file name inside the database directory.
const FileName = "infostats.db"

// ErrRunNotFound is returned when no run matches a lookup.
var ErrRunNotFound = errors.New("run not found")

// RunDB stores runs in a SQLite database.
type RunDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures RunDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the run database in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*RunDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &RunDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if err := rdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return rdb, nil
}

// Close closes the database connection.
func (rdb *RunDB) Close() error {
	return rdb.db.Close()
}

// Path returns the database file path.
func (rdb *RunDB) Path() string {
	return rdb.dbPath
}

func (rdb *RunDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		window_start TEXT NOT NULL,
		window_end TEXT NOT NULL,
		row_count INTEGER NOT NULL,
		families INTEGER NOT NULL DEFAULT 0,
		fetch_failures INTEGER NOT NULL DEFAULT 0,
		digest TEXT,
		archive_path TEXT,
		published INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		run_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_runs_window_end ON runs(window_end);
	`
	_, err := rdb.db.ExecContext(context.Background(), schema)
	return err
}

// RunMetadata is a run without its rows, for listing history.
type RunMetadata struct {
	ID            string
	StartedAt     time.Time
	FinishedAt    time.Time
	WindowStart   string
	WindowEnd     string
	RowCount      int
	Families      int
	FetchFailures int
	Digest        string
	ArchivePath   string
	Published     bool
	Error         string
}

// SaveRun stores run, replacing an earlier save of the same ID.
func (rdb *RunDB) SaveRun(ctx context.Context, run *model.Run) error {
	runJSON, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to serialize run: %w", err)
	}

	query := `
	INSERT INTO runs (id, started_at, finished_at, window_start, window_end, row_count,
		families, fetch_failures, digest, archive_path, published, error, run_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		finished_at = excluded.finished_at,
		row_count = excluded.row_count,
		families = excluded.families,
		fetch_failures = excluded.fetch_failures,
		digest = excluded.digest,
		archive_path = excluded.archive_path,
		published = excluded.published,
		error = excluded.error,
		run_json = excluded.run_json
	`
	_, err = rdb.db.ExecContext(ctx, query,
		run.ID,
		formatTimestamp(run.StartedAt),
		formatTimestamp(run.FinishedAt),
		run.Window.StartAt(),
		run.Window.EndAt(),
		len(run.Rows),
		len(run.Families),
		run.FetchFailures,
		run.Digest,
		run.ArchivePath,
		run.Published,
		run.ErrorMessage,
		string(runJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// GetRun returns the run with id.
func (rdb *RunDB) GetRun(ctx context.Context, id string) (*model.Run, error) {
	return rdb.queryRun(ctx, `SELECT run_json FROM runs WHERE id = ?`, id)
}

// GetLatestRun returns the most recently started run.
func (rdb *RunDB) GetLatestRun(ctx context.Context) (*model.Run, error) {
	return rdb.queryRun(ctx, `SELECT run_json FROM runs ORDER BY started_at DESC LIMIT 1`)
}

// PreviousRun returns the latest successful run started before run.
func (rdb *RunDB) PreviousRun(ctx context.Context, run *model.Run) (*model.Run, error) {
	return rdb.queryRun(ctx, `
	SELECT run_json FROM runs
	WHERE started_at < ? AND id != ? AND (error IS NULL OR error = '')
	ORDER BY started_at DESC
	LIMIT 1
	`, formatTimestamp(run.StartedAt), run.ID)
}

func (rdb *RunDB) queryRun(ctx context.Context, query string, args ...any) (*model.Run, error) {
	var runJSON string
	err := rdb.db.QueryRowContext(ctx, query, args...).Scan(&runJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var run model.Run
	if err := json.Unmarshal([]byte(runJSON), &run); err != nil {
		return nil, fmt.Errorf("failed to parse run: %w", err)
	}
	if run.Raw == nil {
		run.Raw = make(map[string][]model.MetricRecord)
	}
	return &run, nil
}

// ListRuns returns run metadata, newest first. A limit of 0 or less
// returns every run.
func (rdb *RunDB) ListRuns(ctx context.Context, limit int) ([]RunMetadata, error) {
	query := `
	SELECT id, started_at, finished_at, window_start, window_end, row_count,
		families, fetch_failures, digest, archive_path, published, error
	FROM runs
	ORDER BY started_at DESC
	`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := rdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var results []RunMetadata
	for rows.Next() {
		var (
			meta                      RunMetadata
			started                   string
			finished, digest, archive sql.NullString
			errMsg                    sql.NullString
		)
		if err := rows.Scan(
			&meta.ID,
			&started,
			&finished,
			&meta.WindowStart,
			&meta.WindowEnd,
			&meta.RowCount,
			&meta.Families,
			&meta.FetchFailures,
			&digest,
			&archive,
			&meta.Published,
			&errMsg,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		meta.StartedAt = parseTimestamp(started)
		meta.FinishedAt = parseTimestamp(finished.String)
		meta.Digest = digest.String
		meta.ArchivePath = archive.String
		meta.Error = errMsg.String
		results = append(results, meta)
	}
	return results, rows.Err()
}

// formatTimestamp formats t so that string order is time order.
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z")
}

// timestampFormats contains the timestamp formats the runs table may hold.
var timestampFormats = []string{
	"2006-01-02T15:04:05.000000000Z",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	time.RFC3339,
	time.RFC3339Nano,
}

// parseTimestamp tries each known format and returns the zero time if
// none matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
