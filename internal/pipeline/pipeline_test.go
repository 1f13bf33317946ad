package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"creator-scout-go/internal/extractor"
	"creator-scout-go/internal/logger"
	"creator-scout-go/internal/profile"
	"creator-scout-go/internal/scraper"
	"creator-scout-go/internal/store"
	"creator-scout-go/internal/types"
)

type fakePosts struct {
	items []types.CandidateItem
	err   error
}

func (f *fakePosts) FetchPosts(context.Context, types.Criteria) (*scraper.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &scraper.Result{Items: f.items, RunID: "run-1", DatasetID: "ds-1"}, nil
}

type fakeProfiles struct {
	profiles []types.AuthorProfile
	err      error
}

func (f *fakeProfiles) Resolve(context.Context, string, []*types.EnrichedItem) ([]types.AuthorProfile, error) {
	return f.profiles, f.err
}

type fakeFetcher struct{ posts []types.ProfilePost }

func (f *fakeFetcher) FetchProfiles(context.Context, []string) (*scraper.ProfileResult, error) {
	return &scraper.ProfileResult{Posts: f.posts}, nil
}

type noContacts struct{}

func (noContacts) ExtractContacts(context.Context, string) (extractor.Contacts, error) {
	return extractor.Contacts{}, nil
}

type fakeWebhooks struct {
	mu         sync.Mutex
	contentErr error
	content    [][]types.ContentRecord
	creators   [][]types.CreatorRecord
	order      []string
}

func (f *fakeWebhooks) DeliverContent(_ context.Context, _ string, rows []types.ContentRecord) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.order = append(f.order, "content")
	if f.contentErr != nil {
		return "", f.contentErr
	}
	f.content = append(f.content, rows)
	return "https://sheets/content", nil
}

func (f *fakeWebhooks) DeliverCreators(_ context.Context, _ string, rows []types.CreatorRecord) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.order = append(f.order, "creator")
	f.creators = append(f.creators, rows)
	return "https://sheets/creator", nil
}

type panicEnricher struct{}

func (panicEnricher) EnrichAll(context.Context, []*types.EnrichedItem) { panic("decoder exploded") }

func post(id, handle string, likes, fans int64) types.CandidateItem {
	return types.CandidateItem{
		ID:          id,
		Text:        "caption " + id,
		CreateTime:  time.Now().Add(-time.Hour).Unix(),
		WebVideoURL: "https://tiktok.com/@" + handle + "/video/" + id,
		PlayCount:   likes * 10,
		DiggCount:   likes,
		AuthorMeta:  types.AuthorMeta{Name: handle, Fans: fans},
	}
}

func criteria() types.Criteria {
	return types.Criteria{Hashtags: []string{"food"}, MinLikes: 100}
}

func runJob(t *testing.T, deps Deps, agents types.Agents) (*types.Job, store.Store) {
	t.Helper()
	if deps.Store == nil {
		deps.Store = store.NewMemory()
	}
	p := New(deps, logger.Discard())
	job, err := p.Submit(context.Background(), criteria(), agents)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	p.Wait()
	got, err := deps.Store.GetJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	return got, deps.Store
}

func TestContentAgentEndToEnd(t *testing.T) {
	hooks := &fakeWebhooks{}
	deps := Deps{
		Posts:    &fakePosts{items: []types.CandidateItem{post("1", "alice", 500, 1000)}},
		Profiles: &fakeProfiles{profiles: []types.AuthorProfile{{Handle: "alice", Fans: 1000}}},
		Webhooks: hooks,
	}
	job, st := runJob(t, deps, types.AgentsContent)

	if job.Status != types.StatusCompleted || job.ContentStatus != types.AgentCompleted || job.CreatorStatus != types.AgentNotActive {
		t.Fatalf("job = %+v", job)
	}
	if job.ContentSheetURL != "https://sheets/content" || job.RunID != "run-1" || job.TotalCount != 1 || job.FilteredCount != 1 {
		t.Fatalf("job fields = %+v", job)
	}
	if len(hooks.creators) != 0 {
		t.Fatal("creator webhook called for a content-only job")
	}
	if len(hooks.content) != 1 || len(hooks.content[0]) != 1 {
		t.Fatalf("content deliveries = %v", hooks.content)
	}
	row := hooks.content[0][0]
	if row.Likes != "500" || row.SoundType != "" || row.SpokenScript != "" {
		t.Fatalf("content row = %+v", row)
	}

	stored, err := st.ContentRecords(context.Background(), job.ID)
	if err != nil || len(stored) != 1 {
		t.Fatalf("ContentRecords() = %v, %v", stored, err)
	}
	items, _ := st.Items(context.Background(), job.ID)
	if len(items) != 1 || items[0].JobID != job.ID || items[0].DatasetID != "ds-1" {
		t.Fatalf("Items() = %+v", items)
	}
}

func TestZeroFollowerAuthorExcluded(t *testing.T) {
	hooks := &fakeWebhooks{}
	now := time.Now().Unix()
	fetcher := &fakeFetcher{posts: []types.ProfilePost{
		{ID: "a1", CreateTime: now, DiggCount: 40, CommentCount: 10, AuthorMeta: types.AuthorMeta{Name: "alice", Fans: 1000, Video: 5}},
		{ID: "b1", CreateTime: now, DiggCount: 90, AuthorMeta: types.AuthorMeta{Name: "bob", Fans: 0, Video: 5}},
	}}
	deps := Deps{
		Posts: &fakePosts{items: []types.CandidateItem{
			post("1", "alice", 500, 1000),
			post("2", "bob", 300, 0),
		}},
		Profiles: profile.New(fetcher, noContacts{}, logger.Discard().Entry),
		Webhooks: hooks,
	}
	job, _ := runJob(t, deps, types.AgentsBoth)

	if job.Status != types.StatusCompleted {
		t.Fatalf("status = %s (%s)", job.Status, job.ErrorMessage)
	}
	if len(hooks.order) != 2 || hooks.order[0] != "content" || hooks.order[1] != "creator" {
		t.Fatalf("delivery order = %v", hooks.order)
	}
	creators := hooks.creators[0]
	if len(creators) != 1 || creators[0].CreatorHandle != "@alice" {
		t.Fatalf("creators = %+v", creators)
	}
	if creators[0].EngagementRate != "5.00" {
		t.Fatalf("engagement = %s", creators[0].EngagementRate)
	}
	if len(hooks.content[0]) != 2 {
		t.Fatalf("content rows = %d, want 2", len(hooks.content[0]))
	}
}

func TestFetchFailureFailsArmedAgents(t *testing.T) {
	hooks := &fakeWebhooks{}
	deps := Deps{
		Posts:    &fakePosts{err: &scraper.ProviderError{Type: "failed", Message: "actor crashed"}},
		Profiles: &fakeProfiles{},
		Webhooks: hooks,
	}
	job, _ := runJob(t, deps, types.AgentsBoth)

	if job.Status != types.StatusScrapperFailed || job.CreatorStatus != types.AgentFailed || job.ContentStatus != types.AgentFailed {
		t.Fatalf("job = %+v", job)
	}
	if job.ErrorMessage == "" || job.CreatorError == "" || job.ContentError == "" {
		t.Fatalf("error not recorded: %+v", job)
	}
	if len(hooks.order) != 0 {
		t.Fatalf("webhooks called: %v", hooks.order)
	}
}

func TestProfileFailureOnlyFailsCreator(t *testing.T) {
	hooks := &fakeWebhooks{}
	deps := Deps{
		Posts:    &fakePosts{items: []types.CandidateItem{post("1", "alice", 500, 1000)}},
		Profiles: &fakeProfiles{err: errors.New("profile actor timed out")},
		Webhooks: hooks,
	}
	job, _ := runJob(t, deps, types.AgentsBoth)

	if job.Status != types.StatusProfileFailed || job.CreatorStatus != types.AgentFailed || job.ContentStatus != types.AgentCompleted {
		t.Fatalf("job = %+v", job)
	}
	if len(hooks.content) != 1 || hooks.content[0][0].FollowerCount != "" {
		t.Fatalf("content delivered = %+v", hooks.content)
	}
	if len(hooks.creators) != 0 {
		t.Fatal("creator webhook called after profile failure")
	}
}

func TestContentDeliveryFailureKeepsRecords(t *testing.T) {
	hooks := &fakeWebhooks{contentErr: errors.New("webhook rejected (400)")}
	deps := Deps{
		Posts:    &fakePosts{items: []types.CandidateItem{post("1", "alice", 500, 1000)}},
		Profiles: &fakeProfiles{profiles: []types.AuthorProfile{{Handle: "alice", Fans: 1000}}},
		Webhooks: hooks,
	}
	job, st := runJob(t, deps, types.AgentsBoth)

	if job.Status != types.StatusContentFailed || job.ContentStatus != types.AgentFailed || job.CreatorStatus != types.AgentCompleted {
		t.Fatalf("job = %+v", job)
	}
	if job.ContentError != "webhook rejected (400)" {
		t.Fatalf("ContentError = %q", job.ContentError)
	}
	rows, _ := st.ContentRecords(context.Background(), job.ID)
	if len(rows) != 1 {
		t.Fatalf("persisted content rows = %d, want 1", len(rows))
	}
}

func TestZeroSurvivorsCompleteWithoutWebhook(t *testing.T) {
	hooks := &fakeWebhooks{}
	deps := Deps{
		Posts:    &fakePosts{items: []types.CandidateItem{post("1", "alice", 5, 1000)}},
		Profiles: &fakeProfiles{},
		Webhooks: hooks,
	}
	job, _ := runJob(t, deps, types.AgentsCreator)

	if job.Status != types.StatusCompleted || job.CreatorStatus != types.AgentCompleted || job.ContentStatus != types.AgentNotActive {
		t.Fatalf("job = %+v", job)
	}
	if job.TotalCount != 1 || job.FilteredCount != 0 {
		t.Fatalf("counts = %d/%d", job.TotalCount, job.FilteredCount)
	}
	if len(hooks.order) != 0 {
		t.Fatalf("webhooks called: %v", hooks.order)
	}
}

func TestPanicFailsArmedAgents(t *testing.T) {
	deps := Deps{
		Posts:    &fakePosts{items: []types.CandidateItem{post("1", "alice", 500, 1000)}},
		Enricher: panicEnricher{},
		Profiles: &fakeProfiles{},
		Webhooks: &fakeWebhooks{},
	}
	job, _ := runJob(t, deps, types.AgentsContent)

	if job.Status != types.StatusContentFailed || job.ErrorMessage != "internal error: decoder exploded" {
		t.Fatalf("job = %+v", job)
	}
}

func TestSubmitRejectsInvalidCriteria(t *testing.T) {
	st := store.NewMemory()
	p := New(Deps{Store: st}, logger.Discard())
	_, err := p.Submit(context.Background(), types.Criteria{TimePeriodDays: 9}, types.AgentsBoth)
	if !errors.Is(err, types.ErrInvalidCriteria) {
		t.Fatalf("Submit() error = %v", err)
	}
	jobs, _ := st.ListJobs(context.Background(), 0)
	if len(jobs) != 0 {
		t.Fatalf("job created for invalid criteria: %+v", jobs)
	}
}

type flakyStore struct {
	store.Store
	failures int
}

func (f *flakyStore) UpdateJob(ctx context.Context, id string, u types.JobUpdate) (*types.Job, error) {
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("connection reset")
	}
	return f.Store.UpdateJob(ctx, id, u)
}

func TestFailedUpdateKeepsAgentLive(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	job := &types.Job{
		ID:            "job-flaky",
		Agents:        types.AgentsContent,
		Status:        types.StatusContentActive,
		CreatorStatus: types.AgentNotActive,
		ContentStatus: types.AgentActive,
	}
	if err := mem.CreateJob(ctx, job); err != nil {
		t.Fatal(err)
	}
	st := &flakyStore{Store: mem, failures: 1}
	running := *job
	r := &run{p: New(Deps{Store: st}, logger.Discard()), job: &running, phase: types.PhaseDone, log: logger.Discard().Entry}

	r.completeContent(ctx, "https://sheets/content")
	if r.job.ContentStatus != types.AgentActive || r.job.ContentSheetURL != "" {
		t.Fatalf("in-memory job changed by a rejected update: %+v", r.job)
	}

	r.failContent(ctx, errors.New("delivery aborted"))
	got, err := mem.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ContentStatus != types.AgentFailed || got.Status != types.StatusContentFailed {
		t.Fatalf("stored job = %+v", got)
	}
}
