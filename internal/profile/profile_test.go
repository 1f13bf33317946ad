package profile

import (
	"context"
	"errors"
	"testing"

	"creator-scout-go/internal/extractor"
	"creator-scout-go/internal/logger"
	"creator-scout-go/internal/scraper"
	"creator-scout-go/internal/types"
)

func post(handle string, fans, videos int64, ts int64, likes, comments int64) types.ProfilePost {
	return types.ProfilePost{
		ID:           handle + "-" + string(rune('a'+ts%26)),
		CreateTime:   ts,
		DiggCount:    likes,
		CommentCount: comments,
		AuthorMeta: types.AuthorMeta{
			Name:      handle,
			Fans:      fans,
			Video:     videos,
			Signature: "bio of " + handle,
		},
	}
}

func TestEngagementRate(t *testing.T) {
	if got := EngagementRate(40, 10, 1000); got != 5.00 {
		t.Fatalf("EngagementRate() = %v, want 5.00", got)
	}
	if got := EngagementRate(1, 1, 3); got != 66.67 {
		t.Fatalf("EngagementRate() = %v, want 66.67", got)
	}
	if got := EngagementRate(10, 10, 0); got != 0 {
		t.Fatalf("EngagementRate() = %v, want 0", got)
	}
}

func TestAggregate(t *testing.T) {
	posts := []types.ProfilePost{
		post("alice", 1000, 2, 100, 30, 6),
		post("ghost", 0, 5, 100, 999, 999),
		post("alice", 1000, 2, 300, 50, 14),
		post("bob", 200, 0, 50, 20, 2),
		post("alice", 1000, 2, 200, 40, 10),
	}
	got := Aggregate("job-1", posts)
	if len(got) != 2 {
		t.Fatalf("profiles = %d, want 2 (ghost dropped)", len(got))
	}

	alice := got[0]
	if alice.Handle != "alice" || alice.JobID != "job-1" {
		t.Fatalf("first profile = %+v", alice)
	}
	// window is the two newest posts: likes 50,40 comments 14,10
	if alice.AvgLikes != 45 || alice.AvgComments != 12 {
		t.Fatalf("alice averages = %v/%v", alice.AvgLikes, alice.AvgComments)
	}
	if alice.EngagementRate != 5.7 {
		t.Fatalf("alice engagement = %v, want 5.7", alice.EngagementRate)
	}
	if len(alice.RecentPosts) != 2 || alice.RecentPosts[0].CreateTime != 300 {
		t.Fatalf("alice window = %+v", alice.RecentPosts)
	}
	if alice.LastPostTimestamp != "1970-01-01T00:05:00Z" {
		t.Fatalf("LastPostTimestamp = %q", alice.LastPostTimestamp)
	}

	bob := got[1]
	if bob.AvgLikes != 20 || bob.AvgComments != 2 || bob.EngagementRate != 11 {
		t.Fatalf("bob = %+v", bob)
	}
}

func TestAggregateDropsZeroFollowers(t *testing.T) {
	got := Aggregate("j", []types.ProfilePost{post("nobody", 0, 1, 1, 10, 1)})
	if len(got) != 0 {
		t.Fatalf("profiles = %+v, want none", got)
	}
}

func TestAggregateUndatedPostsLeaveTimestampEmpty(t *testing.T) {
	got := Aggregate("j", []types.ProfilePost{post("carol", 50, 1, 0, 10, 1)})
	if len(got) != 1 {
		t.Fatalf("profiles = %+v, want one", got)
	}
	if got[0].LastPostTimestamp != "" {
		t.Fatalf("LastPostTimestamp = %q, want empty", got[0].LastPostTimestamp)
	}
	if got[0].AvgLikes != 10 {
		t.Fatalf("AvgLikes = %v, want 10", got[0].AvgLikes)
	}
}

type fakeFetcher struct {
	handles []string
	posts   []types.ProfilePost
	err     error
}

func (f *fakeFetcher) FetchProfiles(ctx context.Context, handles []string) (*scraper.ProfileResult, error) {
	f.handles = handles
	if f.err != nil {
		return nil, f.err
	}
	return &scraper.ProfileResult{Posts: f.posts}, nil
}

type fakeContacts struct {
	seen []string
}

func (f *fakeContacts) ExtractContacts(ctx context.Context, bio string) (extractor.Contacts, error) {
	f.seen = append(f.seen, bio)
	if bio == "bio of alice " {
		return extractor.Contacts{}, errors.New("model returned prose")
	}
	return extractor.Contacts{CreatorType: "Food", Email: "b@example.com"}, nil
}

func TestResolve(t *testing.T) {
	items := []*types.EnrichedItem{
		{CandidateItem: types.CandidateItem{ID: "1", AuthorMeta: types.AuthorMeta{Name: "alice"}}},
		{CandidateItem: types.CandidateItem{ID: "2", AuthorMeta: types.AuthorMeta{Name: "bob"}}},
		{CandidateItem: types.CandidateItem{ID: "3", AuthorMeta: types.AuthorMeta{Name: "alice"}}},
	}
	f := &fakeFetcher{posts: []types.ProfilePost{
		post("alice", 1000, 1, 10, 40, 10),
		post("bob", 100, 1, 10, 5, 5),
	}}
	c := &fakeContacts{}
	got, err := New(f, c, logger.Discard().Entry).Resolve(context.Background(), "job", items)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(f.handles) != 2 || f.handles[0] != "alice" || f.handles[1] != "bob" {
		t.Fatalf("fetched handles = %v", f.handles)
	}
	if len(c.seen) != 2 {
		t.Fatalf("contact extraction calls = %d, want 2", len(c.seen))
	}
	if got[0].CreatorType != "" || got[0].EngagementRate != 5 {
		t.Fatalf("alice = %+v", got[0])
	}
	if got[1].CreatorType != "Food" || got[1].Email != "b@example.com" {
		t.Fatalf("bob = %+v", got[1])
	}
}

func TestResolveFetchError(t *testing.T) {
	items := []*types.EnrichedItem{{CandidateItem: types.CandidateItem{AuthorMeta: types.AuthorMeta{Name: "alice"}}}}
	_, err := New(&fakeFetcher{err: errors.New("actor failed")}, &fakeContacts{}, logger.Discard().Entry).
		Resolve(context.Background(), "job", items)
	if err == nil {
		t.Fatal("Resolve() expected error")
	}
}
