package store

import (
	"encoding/json"
	"fmt"

	"creator-scout-go/internal/types"
)

const jobColumns = `id, agents, criteria, status, creator_status, content_status,
	total_count, filtered_count, error_message, creator_error, content_error,
	run_id, dataset_id, content_sheet_url, creator_sheet_url, created_at, updated_at`

// rowScanner is satisfied by *sql.Row, *sql.Rows and pgx.Row.
type rowScanner interface {
	Scan(dest ...any) error
}

// jobRow is the column image of a job. Timestamps are scanned by each
// backend in its own representation.
type jobRow struct {
	job      types.Job
	agents   string
	criteria []byte
	creator  string
	content  string
}

func (r *jobRow) dest(createdAt, updatedAt any) []any {
	return []any{
		&r.job.ID, &r.agents, &r.criteria, &r.job.Status, &r.creator, &r.content,
		&r.job.TotalCount, &r.job.FilteredCount, &r.job.ErrorMessage,
		&r.job.CreatorError, &r.job.ContentError, &r.job.RunID, &r.job.DatasetID,
		&r.job.ContentSheetURL, &r.job.CreatorSheetURL, createdAt, updatedAt,
	}
}

func (r *jobRow) finish() (*types.Job, error) {
	if err := json.Unmarshal(r.criteria, &r.job.Criteria); err != nil {
		return nil, fmt.Errorf("decode criteria of job %s: %w", r.job.ID, err)
	}
	r.job.Agents = types.Agents(r.agents)
	r.job.CreatorStatus = types.AgentState(r.creator)
	r.job.ContentStatus = types.AgentState(r.content)
	job := r.job
	return &job, nil
}

// insertArgs returns the values of every column but the timestamps, in
// jobColumns order.
func insertArgs(job *types.Job) ([]any, error) {
	criteria, err := json.Marshal(job.Criteria)
	if err != nil {
		return nil, fmt.Errorf("encode criteria: %w", err)
	}
	return []any{
		job.ID, string(job.Agents), criteria, job.Status,
		string(job.CreatorStatus), string(job.ContentStatus),
		job.TotalCount, job.FilteredCount, job.ErrorMessage,
		job.CreatorError, job.ContentError, job.RunID, job.DatasetID,
		job.ContentSheetURL, job.CreatorSheetURL,
	}, nil
}

func stateArg(s *types.AgentState) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}

// updateArgs lists the targeted fields in the order the UPDATE statements
// use them. Nil pointers bind as NULL and COALESCE keeps the stored value.
func updateArgs(u types.JobUpdate) []any {
	return []any{
		u.Status, stateArg(u.CreatorStatus), stateArg(u.ContentStatus),
		u.TotalCount, u.FilteredCount, u.ErrorMessage, u.CreatorError,
		u.ContentError, u.RunID, u.DatasetID, u.ContentSheetURL, u.CreatorSheetURL,
	}
}

// fullUpdate turns a whole job into a JobUpdate that rewrites every field.
func fullUpdate(job *types.Job) types.JobUpdate {
	return types.JobUpdate{
		Status:          &job.Status,
		CreatorStatus:   &job.CreatorStatus,
		ContentStatus:   &job.ContentStatus,
		TotalCount:      &job.TotalCount,
		FilteredCount:   &job.FilteredCount,
		ErrorMessage:    &job.ErrorMessage,
		CreatorError:    &job.CreatorError,
		ContentError:    &job.ContentError,
		RunID:           &job.RunID,
		DatasetID:       &job.DatasetID,
		ContentSheetURL: &job.ContentSheetURL,
		CreatorSheetURL: &job.CreatorSheetURL,
	}
}
