// Package categorizer labels enriched posts through the language service in
// fixed-size batches.
package categorizer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"creator-scout-go/internal/extractor"
	"creator-scout-go/internal/metrics"
	"creator-scout-go/internal/types"
)

// BatchSize bounds how many posts go into one classification call.
const BatchSize = 10

type Classifier interface {
	Categorize(ctx context.Context, payload string) ([]extractor.Category, error)
}

type Categorizer struct {
	classifier Classifier
	log        *logrus.Entry
}

func New(c Classifier, log *logrus.Entry) *Categorizer {
	return &Categorizer{classifier: c, log: log.WithField("component", "categorizer")}
}

type postView struct {
	ID         string     `json:"id"`
	Caption    string     `json:"caption"`
	Hashtags   []string   `json:"hashtags"`
	Mentions   []string   `json:"mentions"`
	Music      musicView  `json:"music"`
	Author     authorView `json:"author"`
	Video      videoView  `json:"video"`
	Engagement engagement `json:"engagement"`
}

type musicView struct {
	Name     string `json:"name"`
	Author   string `json:"author"`
	Original bool   `json:"original"`
}

type authorView struct {
	Username string `json:"username"`
	Bio      string `json:"bio"`
	Fans     int64  `json:"fans"`
}

type videoView struct {
	Duration    float64 `json:"duration"`
	IsSlideshow bool    `json:"isSlideshow"`
}

type engagement struct {
	Likes    int64 `json:"likes"`
	Shares   int64 `json:"shares"`
	Comments int64 `json:"comments"`
	Plays    int64 `json:"plays"`
}

func project(it *types.EnrichedItem) postView {
	v := postView{
		ID:       it.ID,
		Caption:  it.Text,
		Hashtags: make([]string, 0, len(it.Hashtags)),
		Mentions: it.Mentions,
		Author: authorView{
			Username: it.AuthorMeta.Name,
			Bio:      it.AuthorMeta.Signature,
			Fans:     it.AuthorMeta.Fans,
		},
		Video: videoView{Duration: it.VideoMeta.Duration, IsSlideshow: it.IsSlideshow},
		Engagement: engagement{
			Likes:    it.DiggCount,
			Shares:   it.ShareCount,
			Comments: it.CommentCount,
			Plays:    it.PlayCount,
		},
	}
	if v.Mentions == nil {
		v.Mentions = []string{}
	}
	for _, h := range it.Hashtags {
		v.Hashtags = append(v.Hashtags, h.Name)
	}
	if it.MusicMeta != nil {
		v.Music = musicView{
			Name:     it.MusicMeta.MusicName,
			Author:   it.MusicMeta.MusicAuthor,
			Original: it.MusicMeta.MusicOriginal,
		}
	}
	return v
}

// Payload renders the compact projection sent for one batch.
func Payload(batch []*types.EnrichedItem) (string, error) {
	views := make([]postView, 0, len(batch))
	for _, it := range batch {
		views = append(views, project(it))
	}
	b, err := json.Marshal(views)
	if err != nil {
		return "", fmt.Errorf("marshal batch: %w", err)
	}
	return string(b), nil
}

// CategorizeAll runs the batches one after another and writes labels back
// onto the matching items. It returns how many items received a category.
// A failed batch is logged and skipped.
func (c *Categorizer) CategorizeAll(ctx context.Context, items []*types.EnrichedItem) int {
	labelled := 0
	for start := 0; start < len(items); start += BatchSize {
		end := min(start+BatchSize, len(items))
		n, err := c.categorizeBatch(ctx, items[start:end])
		if err != nil {
			metrics.IncCategoryBatch("failed")
			c.log.WithFields(logrus.Fields{
				"batch_start": start,
				"batch_size":  end - start,
				"error":       err.Error(),
			}).Warn("category batch failed")
			continue
		}
		metrics.IncCategoryBatch("ok")
		labelled += n
	}
	return labelled
}

func (c *Categorizer) categorizeBatch(ctx context.Context, batch []*types.EnrichedItem) (int, error) {
	payload, err := Payload(batch)
	if err != nil {
		return 0, err
	}
	cats, err := c.classifier.Categorize(ctx, payload)
	if err != nil {
		return 0, err
	}

	byID := make(map[string]*types.EnrichedItem, len(batch))
	for _, it := range batch {
		byID[it.ID] = it
	}
	n := 0
	for _, cat := range cats {
		it, ok := byID[cat.ID]
		if !ok {
			c.log.WithField("item_id", cat.ID).Debug("category for unknown item ignored")
			continue
		}
		it.PostCategory = cat.PostCategory
		it.CTADetected = cat.CTADetected
		it.Usable = cat.Usable
		n++
	}
	return n, nil
}
