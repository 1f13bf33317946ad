package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/sirupsen/logrus"

	"creator-scout-go/internal/metrics"
	"creator-scout-go/internal/types"
)

// Result is what one post search returns.
type Result struct {
	Items     []types.CandidateItem
	RunID     string
	DatasetID string
}

// ProfileResult is what one profile fetch returns.
type ProfileResult struct {
	Posts     []types.ProfilePost
	RunID     string
	DatasetID string
}

// profileResultsPerPage is the recent-post sample requested per account.
const profileResultsPerPage = 10

// TikTok fetches posts and profiles through the clockworks actors.
type TikTok struct {
	client *Client
}

func NewTikTok(c *Client) *TikTok {
	return &TikTok{client: c}
}

// PostInput builds the post-search actor input. Over-fetching by half leaves
// room for the filter to drop items. A time window replaces the likes floor.
func PostInput(c types.Criteria) map[string]any {
	n := float64(c.ResultCount)
	tags := max(len(c.Hashtags), 1)
	in := map[string]any{
		"hashtags":                      c.Hashtags,
		"resultsPerPage":                int(math.Ceil((n + n*0.5) / float64(tags))),
		"shouldDownloadVideos":          false,
		"shouldDownloadCovers":          false,
		"shouldDownloadSubtitles":       false,
		"shouldDownloadSlideshowImages": false,
	}
	switch {
	case c.TimePeriodDays > 0:
		in["oldestPostDateUnified"] = strconv.Itoa(c.TimePeriodDays) + " days"
	case c.OldestPost != nil:
		in["oldestPostDateUnified"] = c.OldestPost.UTC().Format("2006-01-02")
	case c.MinLikes > 0:
		in["leastDiggs"] = c.MinLikes
	}
	if len(c.Keywords) > 0 {
		in["searchQueries"] = c.Keywords
		in["searchSection"] = "/video"
	}
	return in
}

// ProfileInput builds the profile actor input for handles.
func ProfileInput(handles []string) map[string]any {
	return map[string]any{
		"profiles":                      handles,
		"profileScrapeSections":         []string{"videos"},
		"profileSorting":                "latest",
		"excludePinnedPosts":            false,
		"resultsPerPage":                profileResultsPerPage,
		"shouldDownloadAvatars":         false,
		"shouldDownloadCovers":          false,
		"shouldDownloadSlideshowImages": false,
		"shouldDownloadSubtitles":       false,
		"shouldDownloadVideos":          false,
	}
}

func (t *TikTok) FetchPosts(ctx context.Context, c types.Criteria) (*Result, error) {
	run, err := t.client.RunActor(ctx, PostsActor, PostInput(c))
	if err != nil {
		return nil, err
	}
	var items []types.CandidateItem
	if err := decodeItems(run.Items, &items, t.client.log); err != nil {
		return nil, err
	}
	return &Result{Items: items, RunID: run.ID, DatasetID: run.DatasetID}, nil
}

func (t *TikTok) FetchProfiles(ctx context.Context, handles []string) (*ProfileResult, error) {
	if len(handles) == 0 {
		return &ProfileResult{}, nil
	}
	run, err := t.client.RunActor(ctx, ProfilesActor, ProfileInput(handles))
	if err != nil {
		return nil, err
	}
	var posts []types.ProfilePost
	if err := decodeItems(run.Items, &posts, t.client.log); err != nil {
		return nil, err
	}
	return &ProfileResult{Posts: posts, RunID: run.ID, DatasetID: run.DatasetID}, nil
}

// decodeItems reads a dataset. Apify stores per-input failures as items
// carrying an "error" field; those are skipped like rows whose fields do not
// decode. A dataset with no usable row is reported as an error.
func decodeItems[T any](raw json.RawMessage, out *[]T, log *logrus.Entry) error {
	var rows []json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return fmt.Errorf("decode dataset: %w", err)
	}
	var firstErr string
	var decodeErr error
	for i, row := range rows {
		var marker struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(row, &marker) == nil && marker.Error != "" {
			if firstErr == "" {
				firstErr = marker.Error
			}
			metrics.IncScrapedRowSkipped("provider_error")
			continue
		}
		var v T
		if err := json.Unmarshal(row, &v); err != nil {
			log.WithError(err).WithField("row", i).Warn("skipping malformed dataset item")
			metrics.IncScrapedRowSkipped("malformed")
			if decodeErr == nil {
				decodeErr = err
			}
			continue
		}
		*out = append(*out, v)
	}
	if len(*out) > 0 {
		return nil
	}
	if firstErr != "" {
		return &ProviderError{Type: "dataset", Message: firstErr}
	}
	if decodeErr != nil {
		return fmt.Errorf("decode dataset item: %w", decodeErr)
	}
	return nil
}
