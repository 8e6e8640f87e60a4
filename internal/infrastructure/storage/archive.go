package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"healthbrief/internal/domain"
	"healthbrief/internal/ports"
)

const dateLayout = "2006-01-02"

// SQLiteArchive persists generated newsletters and per-run statistics in a
// local SQLite database.
type SQLiteArchive struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.Archive = (*SQLiteArchive)(nil)

// Open initializes or connects to the archive database, creating parent
// directories and tables as needed.
func Open(path string) (*SQLiteArchive, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create archive dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	archive := &SQLiteArchive{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Question).RunWith(db),
	}
	if err := archive.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return archive, nil
}

func (a *SQLiteArchive) migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS newsletters (
            date TEXT PRIMARY KEY,
            source TEXT NOT NULL,
            body TEXT NOT NULL,
            created_at TEXT NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS run_stats (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            run_at TEXT NOT NULL,
            fetched INTEGER NOT NULL,
            after_dedup INTEGER NOT NULL,
            scored INTEGER NOT NULL,
            included INTEGER NOT NULL,
            delivered INTEGER NOT NULL,
            errors_json TEXT NOT NULL DEFAULT '[]'
        )`,
	}
	for _, stmt := range statements {
		if _, err := a.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate archive: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (a *SQLiteArchive) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}

// SaveNewsletter upserts the newsletter generated on the given date. A
// rerun on the same day replaces the earlier body.
func (a *SQLiteArchive) SaveNewsletter(ctx context.Context, date time.Time, doc domain.Document) error {
	day := date.UTC().Format(dateLayout)
	now := time.Now().UTC().Format(time.RFC3339Nano)

	query, args, err := a.builder.
		Insert("newsletters").
		Columns("date", "source", "body", "created_at").
		Values(day, string(doc.Source), doc.Body, now).
		Suffix("ON CONFLICT (date) DO UPDATE SET source = excluded.source, body = excluded.body, created_at = excluded.created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build newsletter insert: %w", err)
	}

	if _, err := a.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save newsletter: %w", err)
	}
	return nil
}

// Newsletter loads the archived newsletter for a date, or nil when absent.
func (a *SQLiteArchive) Newsletter(ctx context.Context, date time.Time) (*domain.Document, error) {
	query, args, err := a.builder.
		Select("source", "body").
		From("newsletters").
		Where(sq.Eq{"date": date.UTC().Format(dateLayout)}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build newsletter select: %w", err)
	}

	var (
		source string
		body   string
	)
	row := a.db.QueryRowContext(ctx, query, args...)
	if err := row.Scan(&source, &body); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("load newsletter: %w", err)
	}

	return &domain.Document{Body: body, Source: domain.DocumentSource(source)}, nil
}

// SaveStats appends one run record.
func (a *SQLiteArchive) SaveStats(ctx context.Context, stats domain.RunStats) error {
	errorsJSON, err := json.Marshal(stats.Errors)
	if err != nil {
		return fmt.Errorf("marshal run errors: %w", err)
	}
	if stats.Errors == nil {
		errorsJSON = []byte("[]")
	}

	query, args, err := a.builder.
		Insert("run_stats").
		Columns("run_at", "fetched", "after_dedup", "scored", "included", "delivered", "errors_json").
		Values(
			stats.RunAt.UTC().Format(time.RFC3339Nano),
			stats.Fetched,
			stats.AfterDedup,
			stats.Scored,
			stats.Included,
			boolToInt(stats.Delivered),
			string(errorsJSON),
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build stats insert: %w", err)
	}

	if _, err := a.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save run stats: %w", err)
	}
	return nil
}

// RecentStats returns up to limit run records, newest first.
func (a *SQLiteArchive) RecentStats(ctx context.Context, limit int) ([]domain.RunStats, error) {
	if limit <= 0 {
		limit = 10
	}

	query, args, err := a.builder.
		Select("run_at", "fetched", "after_dedup", "scored", "included", "delivered", "errors_json").
		From("run_stats").
		OrderBy("run_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build stats select: %w", err)
	}

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query run stats: %w", err)
	}
	defer rows.Close()

	var records []domain.RunStats
	for rows.Next() {
		var (
			runAtRaw   string
			delivered  int
			errorsJSON string
			stats      domain.RunStats
		)
		if err := rows.Scan(&runAtRaw, &stats.Fetched, &stats.AfterDedup, &stats.Scored, &stats.Included, &delivered, &errorsJSON); err != nil {
			return nil, fmt.Errorf("scan run stats: %w", err)
		}
		if runAt, parseErr := time.Parse(time.RFC3339Nano, runAtRaw); parseErr == nil {
			stats.RunAt = runAt
		}
		stats.Delivered = delivered != 0
		if err := json.Unmarshal([]byte(errorsJSON), &stats.Errors); err != nil {
			return nil, fmt.Errorf("decode run errors: %w", err)
		}
		records = append(records, stats)
	}
	return records, rows.Err()
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
