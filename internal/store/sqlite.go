package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"creator-scout-go/internal/types"
)

//go:embed migrations/sqlite/*.sql
var sqliteMigrations embed.FS

// SQLite is the default single-node document store.
type SQLite struct {
	conn *sql.DB
	log  *logrus.Entry
	now  func() time.Time
}

func NewSQLite(dbPath string, log *logrus.Entry) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}

	s := &SQLite{conn: conn, log: log.WithField("component", "store"), now: time.Now}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	entries, err := sqliteMigrations.ReadDir("migrations/sqlite")
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || s.isMigrationApplied(name) {
			continue
		}
		content, err := sqliteMigrations.ReadFile("migrations/sqlite/" + name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		if _, err := s.conn.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", name, err)
		}
		if _, err := s.conn.Exec("INSERT INTO _migrations (name) VALUES (?)", name); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", name, err)
		}
		s.log.WithField("name", name).Info("applied migration")
	}
	return nil
}

func (s *SQLite) isMigrationApplied(name string) bool {
	var exists int
	if err := s.conn.QueryRow("SELECT 1 FROM sqlite_master WHERE type='table' AND name='_migrations'").Scan(&exists); err != nil {
		return false
	}
	var applied int
	err := s.conn.QueryRow("SELECT 1 FROM _migrations WHERE name = ?", name).Scan(&applied)
	return err == nil && applied == 1
}

func (s *SQLite) Close() error {
	return s.conn.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func scanSQLiteJob(row rowScanner) (*types.Job, error) {
	var (
		r                  jobRow
		createdAt, updated string
	)
	if err := row.Scan(r.dest(&createdAt, &updated)...); err != nil {
		return nil, err
	}
	var err error
	if r.job.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if r.job.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return r.finish()
}

func (s *SQLite) CreateJob(ctx context.Context, job *types.Job) error {
	args, err := insertArgs(job)
	if err != nil {
		return err
	}
	args = append(args, formatTime(job.CreatedAt), formatTime(job.UpdatedAt))
	_, err = s.conn.ExecContext(ctx, `INSERT INTO jobs (`+jobColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`, args...)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (s *SQLite) GetJob(ctx context.Context, id string) (*types.Job, error) {
	job, err := scanSQLiteJob(s.conn.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query job: %w", err)
	}
	return job, nil
}

func (s *SQLite) ListJobs(ctx context.Context, limit int) ([]types.Job, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.conn.QueryContext(ctx, `SELECT `+jobColumns+` FROM jobs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()
	var out []types.Job
	for rows.Next() {
		job, err := scanSQLiteJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, *job)
	}
	return out, rows.Err()
}

const sqliteUpdate = `UPDATE jobs SET
	status = COALESCE(?, status),
	creator_status = COALESCE(?, creator_status),
	content_status = COALESCE(?, content_status),
	total_count = COALESCE(?, total_count),
	filtered_count = COALESCE(?, filtered_count),
	error_message = COALESCE(?, error_message),
	creator_error = COALESCE(?, creator_error),
	content_error = COALESCE(?, content_error),
	run_id = COALESCE(?, run_id),
	dataset_id = COALESCE(?, dataset_id),
	content_sheet_url = COALESCE(?, content_sheet_url),
	creator_sheet_url = COALESCE(?, creator_sheet_url),
	updated_at = ?
	WHERE id = ?
	RETURNING ` + jobColumns

func (s *SQLite) UpdateJob(ctx context.Context, id string, u types.JobUpdate) (*types.Job, error) {
	args := append(updateArgs(u), formatTime(s.now()), id)
	job, err := scanSQLiteJob(s.conn.QueryRowContext(ctx, sqliteUpdate, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}
	return job, nil
}

func (s *SQLite) DeleteJob(ctx context.Context, id string) error {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) MarkInterrupted(ctx context.Context) (int, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT `+jobColumns+` FROM jobs
		WHERE creator_status = ? OR content_status = ?`, string(types.AgentActive), string(types.AgentActive))
	if err != nil {
		return 0, fmt.Errorf("query active jobs: %w", err)
	}
	var active []*types.Job
	for rows.Next() {
		job, err := scanSQLiteJob(rows)
		if err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan job: %w", err)
		}
		active = append(active, job)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	n := 0
	for _, job := range active {
		if !interrupt(job) {
			continue
		}
		if _, err := s.UpdateJob(ctx, job.ID, fullUpdate(job)); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (s *SQLite) putDocs(ctx context.Context, jobID, kind string, docs [][]byte) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE job_id = ? AND kind = ?`, jobID, kind); err != nil {
		return fmt.Errorf("clear %s documents: %w", kind, err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO documents (job_id, kind, seq, body) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()
	for i, doc := range docs {
		if _, err := stmt.ExecContext(ctx, jobID, kind, i, string(doc)); err != nil {
			return fmt.Errorf("insert %s document: %w", kind, err)
		}
	}
	return tx.Commit()
}

func (s *SQLite) getDocs(ctx context.Context, jobID, kind string) ([][]byte, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT body FROM documents WHERE job_id = ? AND kind = ? ORDER BY seq`, jobID, kind)
	if err != nil {
		return nil, fmt.Errorf("query %s documents: %w", kind, err)
	}
	defer rows.Close()
	var out [][]byte
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		out = append(out, []byte(body))
	}
	return out, rows.Err()
}

func (s *SQLite) SaveItems(ctx context.Context, jobID string, items []*types.EnrichedItem) error {
	return saveDocs(ctx, s, jobID, KindItem, itemsOf(items))
}

func (s *SQLite) SaveProfiles(ctx context.Context, jobID string, profiles []types.AuthorProfile) error {
	return saveDocs(ctx, s, jobID, KindProfile, profiles)
}

func (s *SQLite) SaveContentRecords(ctx context.Context, jobID string, rows []types.ContentRecord) error {
	return saveDocs(ctx, s, jobID, KindContent, rows)
}

func (s *SQLite) SaveCreatorRecords(ctx context.Context, jobID string, rows []types.CreatorRecord) error {
	return saveDocs(ctx, s, jobID, KindCreator, rows)
}

func (s *SQLite) Items(ctx context.Context, jobID string) ([]types.EnrichedItem, error) {
	return loadDocs[types.EnrichedItem](ctx, s, jobID, KindItem)
}

func (s *SQLite) Profiles(ctx context.Context, jobID string) ([]types.AuthorProfile, error) {
	return loadDocs[types.AuthorProfile](ctx, s, jobID, KindProfile)
}

func (s *SQLite) ContentRecords(ctx context.Context, jobID string) ([]types.ContentRecord, error) {
	return loadDocs[types.ContentRecord](ctx, s, jobID, KindContent)
}

func (s *SQLite) CreatorRecords(ctx context.Context, jobID string) ([]types.CreatorRecord, error) {
	return loadDocs[types.CreatorRecord](ctx, s, jobID, KindCreator)
}
