package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/me/mandelzoom/internal/logging"
	"github.com/me/mandelzoom/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns a Store.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	if dbPath == ":memory:" {
		// Every connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logging.Component(logger, "store"),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

// timeLayout is fixed width so that created_at sorts chronologically as
// text. RFC3339Nano drops trailing zeros and would not.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const runColumns = `id, state, planner, scheduler, workers, frames, width, height, max_iterations,
	jobs, executed, duration_ns, output, format, palette, error, created_at, completed_at`

func (s *SQLiteStore) CreateRun(ctx context.Context, run *model.Run) error {
	s.logger.Debug("sql", "op", "insert", "table", "runs", "id", run.ID)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (`+runColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, string(run.State), run.Planner, run.Scheduler, run.Workers,
		run.Frames, run.Width, run.Height, run.MaxIterations,
		run.Jobs, run.Executed, int64(run.Duration),
		run.Output, run.Format, run.Palette, run.Error,
		run.CreatedAt.UTC().Format(timeLayout), formatTime(run.CompletedAt),
	)
	return err
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*model.Run, error) {
	s.logger.Debug("sql", "op", "select", "table", "runs", "id", id)

	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return run, err
}

func (s *SQLiteStore) ListRuns(ctx context.Context, opts model.ListOptions) ([]*model.Run, int, error) {
	s.logger.Debug("sql", "op", "list", "table", "runs", "limit", opts.Limit, "offset", opts.Offset)
	opts.Clamp()

	whereSQL := ""
	var args []any
	if opts.State != "" {
		whereSQL = " WHERE state = ?"
		args = append(args, string(opts.State))
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs`+whereSQL+` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		append(args, opts.Limit, opts.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var runs []*model.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, 0, err
		}
		runs = append(runs, run)
	}
	return runs, total, rows.Err()
}

func (s *SQLiteStore) UpdateRun(ctx context.Context, run *model.Run) error {
	s.logger.Debug("sql", "op", "update", "table", "runs", "id", run.ID, "state", run.State)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx, `SELECT state FROM runs WHERE id = ?`, run.ID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("run %s not found", run.ID)
	}
	if err != nil {
		return err
	}
	// A finished run is immutable, even when the state is unchanged.
	from := model.RunState(current)
	if from.IsTerminal() || (from != run.State && !from.CanTransitionTo(run.State)) {
		return &model.InvalidTransitionError{ID: run.ID, From: from, To: run.State}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE runs SET state=?, workers=?, jobs=?, executed=?, duration_ns=?, error=?, completed_at=? WHERE id=?`,
		string(run.State), run.Workers, run.Jobs, run.Executed, int64(run.Duration),
		run.Error, formatTime(run.CompletedAt), run.ID,
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*model.Run, error) {
	var run model.Run
	var state, createdAt string
	var durationNS int64
	var completedAt *string

	if err := row.Scan(&run.ID, &state, &run.Planner, &run.Scheduler, &run.Workers,
		&run.Frames, &run.Width, &run.Height, &run.MaxIterations,
		&run.Jobs, &run.Executed, &durationNS,
		&run.Output, &run.Format, &run.Palette, &run.Error,
		&createdAt, &completedAt); err != nil {
		return nil, err
	}

	run.State = model.RunState(state)
	run.Duration = time.Duration(durationNS)
	run.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	if completedAt != nil {
		t, _ := time.Parse(time.RFC3339Nano, *completedAt)
		run.CompletedAt = &t
	}
	return &run, nil
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(timeLayout)
	return &s
}
