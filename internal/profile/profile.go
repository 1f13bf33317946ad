// Package profile resolves the authors behind enriched posts into profiles
// with engagement metrics and extracted contact details.
package profile

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"creator-scout-go/internal/extractor"
	"creator-scout-go/internal/scraper"
	"creator-scout-go/internal/types"
)

type Fetcher interface {
	FetchProfiles(ctx context.Context, handles []string) (*scraper.ProfileResult, error)
}

type ContactExtractor interface {
	ExtractContacts(ctx context.Context, bio string) (extractor.Contacts, error)
}

type Engine struct {
	fetcher  Fetcher
	contacts ContactExtractor
	log      *logrus.Entry
}

func New(f Fetcher, c ContactExtractor, log *logrus.Entry) *Engine {
	return &Engine{fetcher: f, contacts: c, log: log.WithField("component", "profile")}
}

// Handles returns the distinct author handles of items in first-seen order.
func Handles(items []*types.EnrichedItem) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		h := it.AuthorMeta.Name
		if h == "" {
			continue
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}

// Resolve fetches and scores every distinct author of items. A fetch failure
// is returned; a contact extraction failure only empties that author's
// contact fields.
func (e *Engine) Resolve(ctx context.Context, jobID string, items []*types.EnrichedItem) ([]types.AuthorProfile, error) {
	handles := Handles(items)
	if len(handles) == 0 {
		return nil, nil
	}
	res, err := e.fetcher.FetchProfiles(ctx, handles)
	if err != nil {
		return nil, fmt.Errorf("fetch profiles: %w", err)
	}
	profiles := Aggregate(jobID, res.Posts)
	e.log.WithFields(logrus.Fields{
		"job_id":   jobID,
		"handles":  len(handles),
		"posts":    len(res.Posts),
		"profiles": len(profiles),
	}).Info("profiles aggregated")

	for i := range profiles {
		p := &profiles[i]
		c, err := e.contacts.ExtractContacts(ctx, p.Bio+" "+p.BioLink)
		if err != nil {
			e.log.WithFields(logrus.Fields{
				"job_id": jobID,
				"handle": p.Handle,
				"error":  err.Error(),
			}).Warn("contact extraction failed")
			continue
		}
		p.CreatorType = c.CreatorType
		p.Email = c.Email
		p.Mobile = c.Mobile
		p.OtherContact = c.Other
	}
	return profiles, nil
}

// Aggregate groups profile posts by author and computes the engagement
// metrics. Authors with no followers are dropped. Output follows the order
// in which authors first appear in posts.
func Aggregate(jobID string, posts []types.ProfilePost) []types.AuthorProfile {
	var order []string
	byHandle := make(map[string]*types.AuthorProfile)
	for _, post := range posts {
		a := post.AuthorMeta
		if a.Name == "" || a.Fans <= 0 {
			continue
		}
		p, ok := byHandle[a.Name]
		if !ok {
			p = &types.AuthorProfile{
				JobID:      jobID,
				Handle:     a.Name,
				NickName:   a.NickName,
				ProfileURL: a.ProfileURL,
				Avatar:     a.Avatar,
				Verified:   a.Verified,
				Bio:        a.Signature,
				BioLink:    a.BioLink,
				Region:     a.Region,
				Language:   post.TextLanguage,
				Fans:       a.Fans,
				Following:  a.Following,
				Heart:      a.Heart,
				VideoCount: a.Video,
			}
			byHandle[a.Name] = p
			order = append(order, a.Name)
		}
		p.RecentPosts = append(p.RecentPosts, post)
	}

	out := make([]types.AuthorProfile, 0, len(order))
	for _, h := range order {
		p := byHandle[h]
		score(p)
		out = append(out, *p)
	}
	return out
}

func score(p *types.AuthorProfile) {
	sort.SliceStable(p.RecentPosts, func(i, j int) bool {
		return postTime(p.RecentPosts[i]).After(postTime(p.RecentPosts[j]))
	})
	window := p.RecentPosts
	if p.VideoCount > 0 && int(p.VideoCount) < len(window) {
		window = window[:p.VideoCount]
	}
	p.RecentPosts = window

	var likes, comments float64
	switch len(window) {
	case 0:
	case 1:
		likes = float64(window[0].DiggCount)
		comments = float64(window[0].CommentCount)
	default:
		for _, post := range window {
			likes += float64(post.DiggCount)
			comments += float64(post.CommentCount)
		}
		likes /= float64(len(window))
		comments /= float64(len(window))
	}
	p.AvgLikes = round2(likes)
	p.AvgComments = round2(comments)
	p.EngagementRate = EngagementRate(likes, comments, p.Fans)
	if len(window) > 0 {
		if ts := postTime(window[0]); !ts.IsZero() {
			p.LastPostTimestamp = ts.UTC().Format(time.RFC3339)
		}
	}
}

// EngagementRate is (avgLikes+avgComments)/fans*100 rounded to two decimals,
// zero when fans is not positive.
func EngagementRate(avgLikes, avgComments float64, fans int64) float64 {
	if fans <= 0 {
		return 0
	}
	return round2((avgLikes + avgComments) / float64(fans) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func postTime(p types.ProfilePost) time.Time {
	if p.CreateTime > 0 {
		return time.Unix(p.CreateTime, 0)
	}
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(p.CreateTimeISO)); err == nil {
		return t
	}
	return time.Time{}
}
