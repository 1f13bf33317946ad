package aggregator

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"creator-scout-go/internal/types"
)

func fixture() ([]*types.EnrichedItem, []types.AuthorProfile) {
	ts := time.Date(2025, 7, 4, 23, 30, 0, 0, time.UTC).Unix()
	items := []*types.EnrichedItem{
		{
			CandidateItem: types.CandidateItem{
				ID: "1", Text: "summer salad", CreateTime: ts, WebVideoURL: "https://tiktok.com/@chef/video/1",
				PlayCount: 1234567, DiggCount: 500, CommentCount: 20, ShareCount: 3,
				Hashtags:     []types.Hashtag{{Name: "food"}, {Name: "vegan"}},
				AuthorMeta:   types.AuthorMeta{Name: "Chef"},
				MusicMeta:    &types.MusicMeta{MusicName: "original sound", Trending: true},
				VideoMeta:    types.VideoMeta{Duration: 42, CoverURL: "https://cdn/1.jpg", SubtitleLinks: []types.Subtitle{{Language: "eng-US"}, {Language: "spa-ES"}}},
				LocationMeta: &types.LocationMeta{City: "Austin", CountryCode: "US"},
			},
			AudioType: "Speech,Music", AudioText: "today we cook", AudioLanguage: "English",
			PostCategory: "Food", CTADetected: true, Usable: true,
		},
		{
			CandidateItem: types.CandidateItem{
				ID: "2", CreateTime: ts + 86400, PlayCount: 99, DiggCount: 300, CommentCount: 11, IsAd: true,
				WebVideoURL: "https://tiktok.com/@chef/video/2",
				AuthorMeta:  types.AuthorMeta{Name: "chef"},
			},
		},
		{
			CandidateItem: types.CandidateItem{ID: "3", DiggCount: 7, AuthorMeta: types.AuthorMeta{Name: "stranger"}},
		},
	}
	profiles := []types.AuthorProfile{
		{
			Handle: "chef", NickName: "Chef Ana", ProfileURL: "https://tiktok.com/@chef", Avatar: "https://cdn/a.jpg",
			Fans: 25000, EngagementRate: 3.456, Email: "ana@example.com", CreatorType: "Food",
			Bio: "recipes daily", BioLink: "instagram.com/chefana", Language: "en",
		},
		{Handle: "quiet", Fans: 10},
	}
	return items, profiles
}

func TestBuildContentRecords(t *testing.T) {
	items, profiles := fixture()
	rows := BuildContentRecords(items, profiles)
	if len(rows) != 3 {
		t.Fatalf("rows = %d", len(rows))
	}

	r := rows[0]
	checks := map[string][2]string{
		"UploadDate":      {r.UploadDate, "7/4/2025"},
		"Views":           {r.Views, "1,234,567"},
		"Likes":           {r.Likes, "500"},
		"CaptionLanguage": {r.CaptionLanguage, "eng-US, spa-ES"},
		"Hashtags":        {r.Hashtags, "food vegan"},
		"TrendingSound":   {r.TrendingSound, "Yes"},
		"Duration":        {r.DurationSeconds, "42"},
		"EngagementRate":  {r.EngagementRate, "3.46"},
		"CreatorName":     {r.CreatorName, "Chef Ana"},
		"FollowerCount":   {r.FollowerCount, "25,000"},
		"Location":        {r.Location, "Austin"},
		"CTADetected":     {r.CTADetected, "Yes"},
		"ContentType":     {r.ContentType, "Organic"},
		"SpokenScript":    {r.SpokenScript, "today we cook"},
	}
	for name, c := range checks {
		if c[0] != c[1] {
			t.Errorf("%s = %q, want %q", name, c[0], c[1])
		}
	}

	if rows[1].ContentType != "Ad" || rows[1].CaptionLanguage != "n/a" || rows[1].TrendingSound != "No" {
		t.Errorf("row 2 = %+v", rows[1])
	}
	if rows[2].CreatorName != "" || rows[2].EngagementRate != "" || rows[2].FollowerCount != "" {
		t.Errorf("unmatched row has profile fields: %+v", rows[2])
	}
}

func TestBuildCreatorRecords(t *testing.T) {
	items, profiles := fixture()
	content := BuildContentRecords(items, profiles)
	rows := BuildCreatorRecords(profiles, content)
	if len(rows) != 2 {
		t.Fatalf("rows = %d", len(rows))
	}

	chef := rows[0]
	if chef.CreatorHandle != "@chef" || chef.AverageLikes != "400" || chef.AverageComments != "16" {
		t.Errorf("chef aggregates = %+v", chef)
	}
	if chef.LastPostDate != "7/5/2025" {
		t.Errorf("LastPostDate = %q", chef.LastPostDate)
	}
	if chef.TopVideoLink != "https://tiktok.com/@chef/video/1" || chef.TopVideoViews != "1,234,567" {
		t.Errorf("top video = %q %q", chef.TopVideoLink, chef.TopVideoViews)
	}
	if chef.Contactable != "Yes" || chef.LinkedPlatforms != "Instagram" || chef.Location != "Austin" {
		t.Errorf("chef = %+v", chef)
	}
	if chef.EngagementRate != "3.46" {
		t.Errorf("EngagementRate = %q", chef.EngagementRate)
	}

	quiet := rows[1]
	if quiet.TopVideoViews != "0" || quiet.AverageLikes != "0" || quiet.Contactable != "No" || quiet.EngagementRate != "0.00" {
		t.Errorf("quiet = %+v", quiet)
	}
}

func TestAssemblyIsDeterministic(t *testing.T) {
	render := func() []byte {
		items, profiles := fixture()
		content := BuildContentRecords(items, profiles)
		creators := BuildCreatorRecords(profiles, content)
		b1, _ := json.Marshal(content)
		b2, _ := json.Marshal(creators)
		return append(b1, b2...)
	}
	if a, b := render(), render(); !bytes.Equal(a, b) {
		t.Fatal("assembly output differs between runs")
	}
}

func TestTopVideoTieKeepsFirst(t *testing.T) {
	content := []types.ContentRecord{
		{Handle: "a", VideoLink: "first", ViewCount: 10, Views: "10"},
		{Handle: "a", VideoLink: "second", ViewCount: 10, Views: "10"},
	}
	rows := BuildCreatorRecords([]types.AuthorProfile{{Handle: "a", Fans: 1}}, content)
	if rows[0].TopVideoLink != "first" {
		t.Fatalf("TopVideoLink = %q", rows[0].TopVideoLink)
	}
}

func TestLinkedPlatforms(t *testing.T) {
	got := LinkedPlatforms("https://linktr.ee/me  YouTube.com/@me instagram.com/me")
	if got != "Instagram+YouTube+Linktree" {
		t.Fatalf("LinkedPlatforms() = %q", got)
	}
	if LinkedPlatforms("") != "" {
		t.Fatal("LinkedPlatforms(empty) not empty")
	}
}
