// Package filter decides which scraped posts match a campaign brief.
package filter

import (
	"strings"
	"time"

	"creator-scout-go/internal/types"
)

// Country is a resolved geocode result. A nil *Country means the lookup
// failed or was never made.
type Country struct {
	CountryID   string `json:"countryId"`
	CountryCode string `json:"countryCode"`
	CountryName string `json:"countryName"`
}

// Engine evaluates criteria against candidate items. It is safe for
// concurrent use and never errors: malformed fields simply do not match.
type Engine struct {
	now func() time.Time
}

func New() *Engine {
	return &Engine{now: time.Now}
}

// NewWithClock pins "now" for time-window evaluation.
func NewWithClock(now func() time.Time) *Engine {
	return &Engine{now: now}
}

// Prepared is criteria with the language list normalized once per job.
type Prepared struct {
	types.Criteria
	langs    []string
	keywords []string
	country  *Country
}

// Prepare normalizes list criteria and binds the geocode result.
func Prepare(c types.Criteria, country *Country) Prepared {
	kw := make([]string, 0, len(c.Keywords))
	for _, k := range c.Keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			kw = append(kw, k)
		}
	}
	return Prepared{
		Criteria: c,
		langs:    NormalizeLanguages(c.Languages),
		keywords: kw,
		country:  country,
	}
}

// Keep reports whether item satisfies every set criterion.
func (e *Engine) Keep(item types.CandidateItem, p Prepared) bool {
	c := p.Criteria

	if c.MinViews > 0 && item.PlayCount < c.MinViews {
		return false
	}
	if c.MinComments > 0 && item.CommentCount < c.MinComments {
		return false
	}
	if c.MaxVideoSeconds > 0 {
		d := item.VideoMeta.Duration
		if d <= 0 || d > float64(c.MaxVideoSeconds) {
			return false
		}
	}
	if c.MinFollowers > 0 && item.AuthorMeta.Fans < c.MinFollowers {
		return false
	}
	if c.MaxFollowers > 0 && item.AuthorMeta.Fans > c.MaxFollowers {
		return false
	}

	if c.HasTimeWindow() {
		if !e.inWindow(item, c) {
			return false
		}
	} else if c.MinLikes > 0 && item.DiggCount < c.MinLikes {
		return false
	}

	switch c.ContentType {
	case types.ContentOrganic:
		if item.IsAd {
			return false
		}
	case types.ContentAd:
		if !item.IsAd {
			return false
		}
	}

	if len(p.langs) > 0 && !matchLanguage(item.TextLanguage, p.langs) {
		return false
	}

	if c.Country != "" {
		if p.country == nil || item.LocationMeta == nil {
			return false
		}
		if !strings.EqualFold(item.LocationMeta.CountryCode, p.country.CountryCode) || p.country.CountryCode == "" {
			return false
		}
	}

	if len(p.keywords) > 0 && !matchKeywords(item, p.keywords) {
		return false
	}
	return true
}

// Apply returns the items that pass, preserving input order.
func (e *Engine) Apply(items []types.CandidateItem, p Prepared) []types.CandidateItem {
	out := make([]types.CandidateItem, 0, len(items))
	for _, it := range items {
		if e.Keep(it, p) {
			out = append(out, it)
		}
	}
	return out
}

func (e *Engine) inWindow(item types.CandidateItem, c types.Criteria) bool {
	if item.CreateTime <= 0 {
		return false
	}
	created := time.Unix(item.CreateTime, 0)
	if c.TimePeriodDays > 0 {
		switch c.TimePeriodDays {
		case 7, 14, 30:
			cutoff := e.now().AddDate(0, 0, -c.TimePeriodDays)
			if created.Before(cutoff) {
				return false
			}
		}
	}
	if c.OldestPost != nil && created.Before(*c.OldestPost) {
		return false
	}
	return true
}

func matchLanguage(tag string, langs []string) bool {
	if tag == "" {
		return false
	}
	code := NormalizeLanguage(tag)
	if code == "" {
		code = strings.ToLower(tag)
	}
	for _, l := range langs {
		if l == code {
			return true
		}
	}
	return false
}

func matchKeywords(item types.CandidateItem, keywords []string) bool {
	caption := strings.ToLower(item.Text)
	for _, k := range keywords {
		if strings.Contains(caption, k) {
			return true
		}
		for _, h := range item.Hashtags {
			if strings.Contains(strings.ToLower(h.Name), k) {
				return true
			}
		}
	}
	return false
}
