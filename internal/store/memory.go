package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"creator-scout-go/internal/types"
)

// Memory keeps everything in process. Used by tests and when no database is
// configured.
type Memory struct {
	mu   sync.RWMutex
	jobs map[string]*types.Job
	docs map[string]map[string][][]byte
	now  func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		jobs: make(map[string]*types.Job),
		docs: make(map[string]map[string][][]byte),
		now:  time.Now,
	}
}

func cloneJob(job *types.Job) *types.Job {
	c := *job
	c.Criteria.Hashtags = append([]string(nil), job.Criteria.Hashtags...)
	c.Criteria.Languages = append([]string(nil), job.Criteria.Languages...)
	c.Criteria.Keywords = append([]string(nil), job.Criteria.Keywords...)
	if job.Criteria.OldestPost != nil {
		t := *job.Criteria.OldestPost
		c.Criteria.OldestPost = &t
	}
	return &c
}

func (m *Memory) CreateJob(_ context.Context, job *types.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = cloneJob(job)
	return nil
}

func (m *Memory) GetJob(_ context.Context, id string) (*types.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneJob(job), nil
}

func (m *Memory) ListJobs(_ context.Context, limit int) ([]types.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		out = append(out, *cloneJob(job))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) UpdateJob(_ context.Context, id string, u types.JobUpdate) (*types.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	u.Apply(job)
	job.UpdatedAt = m.now().UTC()
	return cloneJob(job), nil
}

func (m *Memory) DeleteJob(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[id]; !ok {
		return ErrNotFound
	}
	delete(m.jobs, id)
	delete(m.docs, id)
	return nil
}

func (m *Memory) MarkInterrupted(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, job := range m.jobs {
		if interrupt(job) {
			job.UpdatedAt = m.now().UTC()
			n++
		}
	}
	return n, nil
}

func (m *Memory) putDocs(_ context.Context, jobID, kind string, docs [][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[jobID]; !ok {
		return ErrNotFound
	}
	byKind, ok := m.docs[jobID]
	if !ok {
		byKind = make(map[string][][]byte)
		m.docs[jobID] = byKind
	}
	byKind[kind] = docs
	return nil
}

func (m *Memory) getDocs(_ context.Context, jobID, kind string) ([][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.docs[jobID][kind], nil
}

func (m *Memory) SaveItems(ctx context.Context, jobID string, items []*types.EnrichedItem) error {
	return saveDocs(ctx, m, jobID, KindItem, itemsOf(items))
}

func (m *Memory) SaveProfiles(ctx context.Context, jobID string, profiles []types.AuthorProfile) error {
	return saveDocs(ctx, m, jobID, KindProfile, profiles)
}

func (m *Memory) SaveContentRecords(ctx context.Context, jobID string, rows []types.ContentRecord) error {
	return saveDocs(ctx, m, jobID, KindContent, rows)
}

func (m *Memory) SaveCreatorRecords(ctx context.Context, jobID string, rows []types.CreatorRecord) error {
	return saveDocs(ctx, m, jobID, KindCreator, rows)
}

func (m *Memory) Items(ctx context.Context, jobID string) ([]types.EnrichedItem, error) {
	return loadDocs[types.EnrichedItem](ctx, m, jobID, KindItem)
}

func (m *Memory) Profiles(ctx context.Context, jobID string) ([]types.AuthorProfile, error) {
	return loadDocs[types.AuthorProfile](ctx, m, jobID, KindProfile)
}

func (m *Memory) ContentRecords(ctx context.Context, jobID string) ([]types.ContentRecord, error) {
	return loadDocs[types.ContentRecord](ctx, m, jobID, KindContent)
}

func (m *Memory) CreatorRecords(ctx context.Context, jobID string) ([]types.CreatorRecord, error) {
	return loadDocs[types.CreatorRecord](ctx, m, jobID, KindCreator)
}

func (m *Memory) Close() error { return nil }
