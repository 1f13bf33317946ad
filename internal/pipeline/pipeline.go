// Package pipeline runs campaign jobs: scrape, filter, enrich, classify,
// resolve profiles, assemble datasets and deliver them.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"creator-scout-go/internal/aggregator"
	"creator-scout-go/internal/filter"
	"creator-scout-go/internal/logger"
	"creator-scout-go/internal/metrics"
	"creator-scout-go/internal/scraper"
	"creator-scout-go/internal/store"
	"creator-scout-go/internal/types"
)

type PostFetcher interface {
	FetchPosts(ctx context.Context, c types.Criteria) (*scraper.Result, error)
}

type Geocoder interface {
	Lookup(ctx context.Context, name string) (*filter.Country, error)
}

type Enricher interface {
	EnrichAll(ctx context.Context, items []*types.EnrichedItem)
}

type Categorizer interface {
	CategorizeAll(ctx context.Context, items []*types.EnrichedItem) int
}

type ProfileResolver interface {
	Resolve(ctx context.Context, jobID string, items []*types.EnrichedItem) ([]types.AuthorProfile, error)
}

type Deliverer interface {
	DeliverContent(ctx context.Context, jobID string, rows []types.ContentRecord) (string, error)
	DeliverCreators(ctx context.Context, jobID string, rows []types.CreatorRecord) (string, error)
}

// Deps wires the stage implementations. Geocoder may be nil, in which case a
// country constraint never matches.
type Deps struct {
	Store       store.Store
	Posts       PostFetcher
	Geocoder    Geocoder
	Filter      *filter.Engine
	Enricher    Enricher
	Categorizer Categorizer
	Profiles    ProfileResolver
	Webhooks    Deliverer
}

// Pipeline owns the background job goroutines.
type Pipeline struct {
	deps Deps
	log  *logger.Logger
	now  func() time.Time
	wg   sync.WaitGroup
}

func New(deps Deps, log *logger.Logger) *Pipeline {
	if deps.Filter == nil {
		deps.Filter = filter.New()
	}
	return &Pipeline{deps: deps, log: log, now: time.Now}
}

// Submit validates the criteria, persists a new job with its agents armed
// and starts it in the background. The job outlives ctx.
func (p *Pipeline) Submit(ctx context.Context, c types.Criteria, agents types.Agents) (*types.Job, error) {
	c.Normalize()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if agents == "" {
		agents = types.AgentsBoth
	}
	now := p.now().UTC()
	job := &types.Job{
		ID:            uuid.NewString(),
		Criteria:      c,
		Agents:        agents,
		CreatorStatus: types.AgentNotActive,
		ContentStatus: types.AgentNotActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if agents.Creator() {
		job.CreatorStatus = types.AgentActive
	}
	if agents.Content() {
		job.ContentStatus = types.AgentActive
	}
	job.Status = types.DeriveStatus(agents, types.PhaseQueued, job.CreatorStatus, job.ContentStatus)
	if err := p.deps.Store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	p.log.WithJob(job.ID).WithFields(logrus.Fields{
		"agents":   agents,
		"hashtags": c.Hashtags,
	}).Info("job queued")

	started := *job
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.Run(context.WithoutCancel(ctx), &started)
	}()
	return job, nil
}

// Wait blocks until every submitted job has finished.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

// Run drives one job to a terminal state for every armed agent.
func (p *Pipeline) Run(ctx context.Context, job *types.Job) {
	r := &run{p: p, job: job, log: p.log.WithJob(job.ID)}
	defer func() {
		if rec := recover(); rec != nil {
			r.log.WithField("panic", rec).Error("job panicked")
			r.failArmed(ctx, fmt.Errorf("internal error: %v", rec))
		}
	}()
	r.execute(ctx)
}

type run struct {
	p     *Pipeline
	job   *types.Job
	phase types.Phase
	log   *logrus.Entry
	gone  bool
}

// update applies u through the agent state machines, derives the top-level
// status and persists only the touched fields. r.job changes only once the
// store has accepted the update.
func (r *run) update(ctx context.Context, u types.JobUpdate) error {
	if r.gone {
		return store.ErrNotFound
	}
	if u.CreatorStatus != nil {
		next, err := r.job.CreatorStatus.Next(*u.CreatorStatus)
		if err != nil {
			return err
		}
		u.CreatorStatus = &next
	}
	if u.ContentStatus != nil {
		next, err := r.job.ContentStatus.Next(*u.ContentStatus)
		if err != nil {
			return err
		}
		u.ContentStatus = &next
	}
	next := *r.job
	u.Apply(&next)
	status := types.DeriveStatus(next.Agents, r.phase, next.CreatorStatus, next.ContentStatus)
	u.Status = &status

	updated, err := r.p.deps.Store.UpdateJob(ctx, r.job.ID, u)
	if errors.Is(err, store.ErrNotFound) {
		r.gone = true
		r.log.Warn("job was purged while running")
		return err
	}
	if err != nil {
		r.log.WithError(err).Error("job update failed")
		return err
	}
	r.job = updated
	return nil
}

func (r *run) enter(ctx context.Context, phase types.Phase) {
	r.phase = phase
	_ = r.update(ctx, types.JobUpdate{})
}

func (r *run) live(state types.AgentState) bool {
	return state == types.AgentActive
}

func (r *run) failCreator(ctx context.Context, err error) {
	if !r.job.Agents.Creator() || !r.live(r.job.CreatorStatus) {
		return
	}
	r.log.WithError(err).Error("creator agent failed")
	metrics.IncJob("creator", "failed")
	_ = r.update(ctx, types.JobUpdate{
		CreatorStatus: types.Ptr(types.AgentFailed),
		CreatorError:  types.Ptr(err.Error()),
		ErrorMessage:  types.Ptr(err.Error()),
	})
}

func (r *run) failContent(ctx context.Context, err error) {
	if !r.job.Agents.Content() || !r.live(r.job.ContentStatus) {
		return
	}
	r.log.WithError(err).Error("content agent failed")
	metrics.IncJob("content", "failed")
	_ = r.update(ctx, types.JobUpdate{
		ContentStatus: types.Ptr(types.AgentFailed),
		ContentError:  types.Ptr(err.Error()),
		ErrorMessage:  types.Ptr(err.Error()),
	})
}

// failArmed fails every armed agent that has not finished yet.
func (r *run) failArmed(ctx context.Context, err error) {
	r.phase = types.PhaseDone
	r.failContent(ctx, err)
	r.failCreator(ctx, err)
}

func (r *run) completeContent(ctx context.Context, sheetURL string) {
	if !r.job.Agents.Content() || !r.live(r.job.ContentStatus) {
		return
	}
	metrics.IncJob("content", "completed")
	u := types.JobUpdate{ContentStatus: types.Ptr(types.AgentCompleted)}
	if sheetURL != "" {
		u.ContentSheetURL = &sheetURL
	}
	_ = r.update(ctx, u)
}

func (r *run) completeCreator(ctx context.Context, sheetURL string) {
	if !r.job.Agents.Creator() || !r.live(r.job.CreatorStatus) {
		return
	}
	metrics.IncJob("creator", "completed")
	u := types.JobUpdate{CreatorStatus: types.Ptr(types.AgentCompleted)}
	if sheetURL != "" {
		u.CreatorSheetURL = &sheetURL
	}
	_ = r.update(ctx, u)
}

func (r *run) execute(ctx context.Context) {
	d := r.p.deps
	c := r.job.Criteria
	start := r.p.now()
	r.log.Info("job started")

	r.enter(ctx, types.PhaseContent)
	if r.gone {
		return
	}

	var country *filter.Country
	if c.Country != "" {
		if d.Geocoder == nil {
			r.log.WithField("country", c.Country).Warn("no geocoder configured, country filter matches nothing")
		} else if cc, err := d.Geocoder.Lookup(ctx, c.Country); err != nil {
			r.log.WithError(err).WithField("country", c.Country).Warn("country lookup failed")
		} else {
			country = cc
		}
	}

	res, err := d.Posts.FetchPosts(ctx, c)
	if err != nil {
		r.failArmed(ctx, fmt.Errorf("fetch posts: %w", err))
		return
	}
	_ = r.update(ctx, types.JobUpdate{
		RunID:      types.Ptr(res.RunID),
		DatasetID:  types.Ptr(res.DatasetID),
		TotalCount: types.Ptr(len(res.Items)),
	})
	if r.gone {
		return
	}

	kept := d.Filter.Apply(res.Items, filter.Prepare(c, country))
	metrics.AddFiltered(len(kept), len(res.Items)-len(kept))
	r.log.WithFields(logrus.Fields{"total": len(res.Items), "kept": len(kept)}).Info("posts filtered")
	_ = r.update(ctx, types.JobUpdate{FilteredCount: types.Ptr(len(kept))})
	if r.gone {
		return
	}

	if len(kept) == 0 {
		r.phase = types.PhaseDone
		r.log.Info("no posts matched, completing with empty datasets")
		r.completeContent(ctx, "")
		r.completeCreator(ctx, "")
		return
	}

	items := make([]*types.EnrichedItem, len(kept))
	for i, it := range kept {
		items[i] = &types.EnrichedItem{
			CandidateItem: it,
			JobID:         r.job.ID,
			RunID:         res.RunID,
			DatasetID:     res.DatasetID,
		}
	}

	if d.Enricher != nil {
		d.Enricher.EnrichAll(ctx, items)
	}
	if d.Categorizer != nil {
		n := d.Categorizer.CategorizeAll(ctx, items)
		r.log.WithField("categorized", n).Info("posts categorized")
	}
	if err := d.Store.SaveItems(ctx, r.job.ID, items); err != nil {
		r.failArmed(ctx, fmt.Errorf("save enriched items: %w", err))
		return
	}

	r.enter(ctx, types.PhaseProfile)
	if r.gone {
		return
	}
	profiles, err := d.Profiles.Resolve(ctx, r.job.ID, items)
	if err != nil {
		err = fmt.Errorf("resolve profiles: %w", err)
		if r.job.Agents.Creator() {
			r.failCreator(ctx, err)
		} else {
			r.log.WithError(err).Warn("profile resolution failed")
			_ = r.update(ctx, types.JobUpdate{ErrorMessage: types.Ptr(err.Error())})
		}
		profiles = nil
	} else if err := d.Store.SaveProfiles(ctx, r.job.ID, profiles); err != nil {
		r.failCreator(ctx, fmt.Errorf("save profiles: %w", err))
	}

	content := aggregator.BuildContentRecords(items, profiles)
	r.phase = types.PhaseDone
	r.deliverContent(ctx, content)
	r.deliverCreators(ctx, profiles, content)

	r.log.WithFields(logrus.Fields{
		"status":   r.job.Status,
		"duration": r.p.now().Sub(start).String(),
	}).Info("job finished")
}

func (r *run) deliverContent(ctx context.Context, content []types.ContentRecord) {
	if !r.job.Agents.Content() || !r.live(r.job.ContentStatus) {
		return
	}
	d := r.p.deps
	if err := d.Store.SaveContentRecords(ctx, r.job.ID, content); err != nil {
		r.failContent(ctx, fmt.Errorf("save content records: %w", err))
		return
	}
	url, err := d.Webhooks.DeliverContent(ctx, r.job.ID, content)
	if err != nil {
		r.failContent(ctx, err)
		return
	}
	r.completeContent(ctx, url)
}

func (r *run) deliverCreators(ctx context.Context, profiles []types.AuthorProfile, content []types.ContentRecord) {
	if !r.job.Agents.Creator() || !r.live(r.job.CreatorStatus) {
		return
	}
	d := r.p.deps
	creators := aggregator.BuildCreatorRecords(profiles, content)
	if err := d.Store.SaveCreatorRecords(ctx, r.job.ID, creators); err != nil {
		r.failCreator(ctx, fmt.Errorf("save creator records: %w", err))
		return
	}
	url, err := d.Webhooks.DeliverCreators(ctx, r.job.ID, creators)
	if err != nil {
		r.failCreator(ctx, err)
		return
	}
	r.completeCreator(ctx, url)
}
