// Package store persists jobs and the documents each job produces.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"creator-scout-go/internal/types"
)

var ErrNotFound = errors.New("resource not found")

// InterruptedMessage is recorded on jobs that were running when the process
// stopped.
const InterruptedMessage = "interrupted by restart"

// Document kinds stored per job.
const (
	KindItem    = "item"
	KindProfile = "profile"
	KindContent = "content"
	KindCreator = "creator"
)

// Store is the document store behind the pipeline and the API. Save calls
// replace every document of that kind for the job, so re-running a stage
// never duplicates rows.
type Store interface {
	CreateJob(ctx context.Context, job *types.Job) error
	GetJob(ctx context.Context, id string) (*types.Job, error)
	ListJobs(ctx context.Context, limit int) ([]types.Job, error)
	// UpdateJob applies only the fields set in u and returns the result.
	UpdateJob(ctx context.Context, id string, u types.JobUpdate) (*types.Job, error)
	// DeleteJob removes the job and every document keyed by it.
	DeleteJob(ctx context.Context, id string) error
	// MarkInterrupted fails every agent still Active and returns how many
	// jobs were touched.
	MarkInterrupted(ctx context.Context) (int, error)

	SaveItems(ctx context.Context, jobID string, items []*types.EnrichedItem) error
	SaveProfiles(ctx context.Context, jobID string, profiles []types.AuthorProfile) error
	SaveContentRecords(ctx context.Context, jobID string, rows []types.ContentRecord) error
	SaveCreatorRecords(ctx context.Context, jobID string, rows []types.CreatorRecord) error

	Items(ctx context.Context, jobID string) ([]types.EnrichedItem, error)
	Profiles(ctx context.Context, jobID string) ([]types.AuthorProfile, error)
	ContentRecords(ctx context.Context, jobID string) ([]types.ContentRecord, error)
	CreatorRecords(ctx context.Context, jobID string) ([]types.CreatorRecord, error)

	Close() error
}

// interrupt fails the active agents of job and rederives its status. It
// reports whether anything changed.
func interrupt(job *types.Job) bool {
	changed := false
	if job.CreatorStatus == types.AgentActive {
		job.CreatorStatus = types.AgentFailed
		job.CreatorError = InterruptedMessage
		changed = true
	}
	if job.ContentStatus == types.AgentActive {
		job.ContentStatus = types.AgentFailed
		job.ContentError = InterruptedMessage
		changed = true
	}
	if changed {
		job.ErrorMessage = InterruptedMessage
		job.Status = types.DeriveStatus(job.Agents, types.PhaseDone, job.CreatorStatus, job.ContentStatus)
	}
	return changed
}

func encodeAll[T any](docs []T) ([][]byte, error) {
	out := make([][]byte, 0, len(docs))
	for i, d := range docs {
		b, err := json.Marshal(d)
		if err != nil {
			return nil, fmt.Errorf("encode document %d: %w", i, err)
		}
		out = append(out, b)
	}
	return out, nil
}

func decodeAll[T any](raws [][]byte) ([]T, error) {
	out := make([]T, 0, len(raws))
	for i, raw := range raws {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode document %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// docStore is the per-backend primitive the typed methods are built on.
type docStore interface {
	putDocs(ctx context.Context, jobID, kind string, docs [][]byte) error
	getDocs(ctx context.Context, jobID, kind string) ([][]byte, error)
}

func saveDocs[T any](ctx context.Context, s docStore, jobID, kind string, docs []T) error {
	raws, err := encodeAll(docs)
	if err != nil {
		return err
	}
	return s.putDocs(ctx, jobID, kind, raws)
}

func loadDocs[T any](ctx context.Context, s docStore, jobID, kind string) ([]T, error) {
	raws, err := s.getDocs(ctx, jobID, kind)
	if err != nil {
		return nil, err
	}
	return decodeAll[T](raws)
}

// itemsOf dereferences items for storage.
func itemsOf(items []*types.EnrichedItem) []types.EnrichedItem {
	out := make([]types.EnrichedItem, 0, len(items))
	for _, it := range items {
		if it != nil {
			out = append(out, *it)
		}
	}
	return out
}
