package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"creator-scout-go/internal/types"
)

//go:embed migrations/postgres/*.sql
var postgresMigrations embed.FS

// Postgres is the document store for shared deployments.
type Postgres struct {
	pool *pgxpool.Pool
	log  *logrus.Entry
}

func NewPostgres(ctx context.Context, databaseURL string, log *logrus.Entry) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pg pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping pg: %w", err)
	}
	p := &Postgres{pool: pool, log: log.WithField("component", "store")}
	if err := p.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return p, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) migrate(ctx context.Context) error {
	entries, err := postgresMigrations.ReadDir("migrations/postgres")
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}
	if _, err := p.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS _migrations (
		name TEXT PRIMARY KEY, applied_at TIMESTAMPTZ NOT NULL DEFAULT now())`); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			continue
		}
		var applied bool
		if err := p.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM _migrations WHERE name = $1)`, name).Scan(&applied); err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if applied {
			continue
		}
		content, err := postgresMigrations.ReadFile("migrations/postgres/" + name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		if _, err := p.pool.Exec(ctx, string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", name, err)
		}
		if _, err := p.pool.Exec(ctx, `INSERT INTO _migrations (name) VALUES ($1)`, name); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", name, err)
		}
		p.log.WithField("name", name).Info("applied migration")
	}
	return nil
}

func scanPostgresJob(row rowScanner) (*types.Job, error) {
	var r jobRow
	if err := row.Scan(r.dest(&r.job.CreatedAt, &r.job.UpdatedAt)...); err != nil {
		return nil, err
	}
	return r.finish()
}

func (p *Postgres) CreateJob(ctx context.Context, job *types.Job) error {
	args, err := insertArgs(job)
	if err != nil {
		return err
	}
	args = append(args, job.CreatedAt, job.UpdatedAt)
	_, err = p.pool.Exec(ctx, `INSERT INTO jobs (`+jobColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`, args...)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (p *Postgres) GetJob(ctx context.Context, id string) (*types.Job, error) {
	job, err := scanPostgresJob(p.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query job: %w", err)
	}
	return job, nil
}

func (p *Postgres) ListJobs(ctx context.Context, limit int) ([]types.Job, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.pool.Query(ctx, `SELECT `+jobColumns+` FROM jobs ORDER BY created_at DESC, id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()
	var out []types.Job
	for rows.Next() {
		job, err := scanPostgresJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, *job)
	}
	return out, rows.Err()
}

const postgresUpdate = `UPDATE jobs SET
	status = COALESCE($1, status),
	creator_status = COALESCE($2, creator_status),
	content_status = COALESCE($3, content_status),
	total_count = COALESCE($4, total_count),
	filtered_count = COALESCE($5, filtered_count),
	error_message = COALESCE($6, error_message),
	creator_error = COALESCE($7, creator_error),
	content_error = COALESCE($8, content_error),
	run_id = COALESCE($9, run_id),
	dataset_id = COALESCE($10, dataset_id),
	content_sheet_url = COALESCE($11, content_sheet_url),
	creator_sheet_url = COALESCE($12, creator_sheet_url),
	updated_at = $13
	WHERE id = $14
	RETURNING ` + jobColumns

func (p *Postgres) UpdateJob(ctx context.Context, id string, u types.JobUpdate) (*types.Job, error) {
	args := append(updateArgs(u), time.Now().UTC(), id)
	job, err := scanPostgresJob(p.pool.QueryRow(ctx, postgresUpdate, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}
	return job, nil
}

func (p *Postgres) DeleteJob(ctx context.Context, id string) error {
	command, err := p.pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	if command.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) MarkInterrupted(ctx context.Context) (int, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+jobColumns+` FROM jobs
		WHERE creator_status = $1 OR content_status = $1`, string(types.AgentActive))
	if err != nil {
		return 0, fmt.Errorf("query active jobs: %w", err)
	}
	var active []*types.Job
	for rows.Next() {
		job, err := scanPostgresJob(rows)
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
		if _, err := p.UpdateJob(ctx, job.ID, fullUpdate(job)); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (p *Postgres) putDocs(ctx context.Context, jobID, kind string, docs [][]byte) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM documents WHERE job_id = $1 AND kind = $2`, jobID, kind); err != nil {
		return fmt.Errorf("clear %s documents: %w", kind, err)
	}
	batch := &pgx.Batch{}
	for i, doc := range docs {
		batch.Queue(`INSERT INTO documents (job_id, kind, seq, body) VALUES ($1, $2, $3, $4)`, jobID, kind, i, doc)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert %s documents: %w", kind, err)
	}
	return tx.Commit(ctx)
}

func (p *Postgres) getDocs(ctx context.Context, jobID, kind string) ([][]byte, error) {
	rows, err := p.pool.Query(ctx, `SELECT body FROM documents WHERE job_id = $1 AND kind = $2 ORDER BY seq`, jobID, kind)
	if err != nil {
		return nil, fmt.Errorf("query %s documents: %w", kind, err)
	}
	defer rows.Close()
	var out [][]byte
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		out = append(out, body)
	}
	return out, rows.Err()
}

func (p *Postgres) SaveItems(ctx context.Context, jobID string, items []*types.EnrichedItem) error {
	return saveDocs(ctx, p, jobID, KindItem, itemsOf(items))
}

func (p *Postgres) SaveProfiles(ctx context.Context, jobID string, profiles []types.AuthorProfile) error {
	return saveDocs(ctx, p, jobID, KindProfile, profiles)
}

func (p *Postgres) SaveContentRecords(ctx context.Context, jobID string, rows []types.ContentRecord) error {
	return saveDocs(ctx, p, jobID, KindContent, rows)
}

func (p *Postgres) SaveCreatorRecords(ctx context.Context, jobID string, rows []types.CreatorRecord) error {
	return saveDocs(ctx, p, jobID, KindCreator, rows)
}

func (p *Postgres) Items(ctx context.Context, jobID string) ([]types.EnrichedItem, error) {
	return loadDocs[types.EnrichedItem](ctx, p, jobID, KindItem)
}

func (p *Postgres) Profiles(ctx context.Context, jobID string) ([]types.AuthorProfile, error) {
	return loadDocs[types.AuthorProfile](ctx, p, jobID, KindProfile)
}

func (p *Postgres) ContentRecords(ctx context.Context, jobID string) ([]types.ContentRecord, error) {
	return loadDocs[types.ContentRecord](ctx, p, jobID, KindContent)
}

func (p *Postgres) CreatorRecords(ctx context.Context, jobID string) ([]types.CreatorRecord, error) {
	return loadDocs[types.CreatorRecord](ctx, p, jobID, KindCreator)
}
