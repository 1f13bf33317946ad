// Package aggregator joins enriched posts with resolved profiles into the
// content and creator datasets. Everything here is pure: the same input
// always renders the same records.
package aggregator

import (
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"creator-scout-go/internal/types"
)

const platform = "TikTok"

var printer = message.NewPrinter(language.English)

// formatCount renders n with thousands separators, e.g. 12345 -> "12,345".
func formatCount(n int64) string {
	return printer.Sprintf("%d", n)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// uploadDate renders a unix timestamp as M/D/YYYY in UTC.
func uploadDate(ts int64) string {
	if ts <= 0 {
		return ""
	}
	t := time.Unix(ts, 0).UTC()
	return strconv.Itoa(int(t.Month())) + "/" + strconv.Itoa(t.Day()) + "/" + strconv.Itoa(t.Year())
}

// matchProfile returns the first profile whose handle or nickname equals
// handle, ignoring case.
func matchProfile(handle string, profiles []types.AuthorProfile) *types.AuthorProfile {
	if handle == "" {
		return nil
	}
	for i := range profiles {
		p := &profiles[i]
		if strings.EqualFold(p.Handle, handle) || (p.NickName != "" && strings.EqualFold(p.NickName, handle)) {
			return p
		}
	}
	return nil
}

// BuildContentRecords renders one row per item. Items without a matching
// profile get empty profile columns.
func BuildContentRecords(items []*types.EnrichedItem, profiles []types.AuthorProfile) []types.ContentRecord {
	out := make([]types.ContentRecord, 0, len(items))
	for _, it := range items {
		out = append(out, contentRecord(it, matchProfile(it.AuthorMeta.Name, profiles)))
	}
	return out
}

func contentRecord(it *types.EnrichedItem, p *types.AuthorProfile) types.ContentRecord {
	r := types.ContentRecord{
		Thumbnail:         it.VideoMeta.CoverURL,
		VideoLink:         it.WebVideoURL,
		Platform:          platform,
		ContentType:       "Organic",
		UploadDate:        uploadDate(it.CreateTime),
		AudioLanguage:     it.AudioLanguage,
		CaptionLanguage:   captionLanguages(it.VideoMeta.SubtitleLinks),
		Caption:           it.Text,
		Hashtags:          hashtags(it.Hashtags),
		TrendingSound:     "No",
		SoundType:         it.AudioType,
		ContentStyle:      it.PostCategory,
		CTADetected:       yesNo(it.CTADetected),
		Views:             formatCount(it.PlayCount),
		Likes:             formatCount(it.DiggCount),
		Comments:          formatCount(it.CommentCount),
		Shares:            formatCount(it.ShareCount),
		UsableForCampaign: yesNo(it.Usable),
		SpokenScript:      it.AudioText,

		Handle:     it.AuthorMeta.Name,
		ViewCount:  it.PlayCount,
		LikeCount:  it.DiggCount,
		ComCount:   it.CommentCount,
		CreateTime: it.CreateTime,
	}
	if it.IsAd {
		r.ContentType = "Ad"
	}
	if it.VideoMeta.Duration > 0 {
		r.DurationSeconds = strconv.FormatFloat(it.VideoMeta.Duration, 'f', -1, 64)
	}
	if m := it.MusicMeta; m != nil {
		r.TrendingSound = yesNo(m.Trending)
		r.SoundName = m.MusicName
	}
	if it.LocationMeta != nil {
		r.Location = it.LocationMeta.City
	}
	if p != nil {
		if p.EngagementRate != 0 {
			r.EngagementRate = strconv.FormatFloat(p.EngagementRate, 'f', 2, 64)
		}
		r.CreatorName = displayName(p)
		r.CreatorProfile = p.ProfileURL
		r.CreatorEmail = p.Email
		if p.Fans > 0 {
			r.FollowerCount = formatCount(p.Fans)
		}
		r.InternalCategory = p.CreatorType
	}
	return r
}

func captionLanguages(subs []types.Subtitle) string {
	langs := make([]string, 0, len(subs))
	for _, s := range subs {
		if s.Language != "" {
			langs = append(langs, s.Language)
		}
	}
	if len(langs) == 0 {
		return "n/a"
	}
	return strings.Join(langs, ", ")
}

func hashtags(tags []types.Hashtag) string {
	names := make([]string, 0, len(tags))
	for _, h := range tags {
		if h.Name != "" {
			names = append(names, h.Name)
		}
	}
	return strings.Join(names, " ")
}

func displayName(p *types.AuthorProfile) string {
	if p.NickName != "" {
		return p.NickName
	}
	return p.Handle
}

// BuildCreatorRecords renders one row per profile with aggregates over that
// creator's content rows.
func BuildCreatorRecords(profiles []types.AuthorProfile, content []types.ContentRecord) []types.CreatorRecord {
	out := make([]types.CreatorRecord, 0, len(profiles))
	for i := range profiles {
		p := &profiles[i]
		var rows []*types.ContentRecord
		for j := range content {
			if strings.EqualFold(content[j].Handle, p.Handle) {
				rows = append(rows, &content[j])
			}
		}
		out = append(out, creatorRecord(p, rows))
	}
	return out
}

func creatorRecord(p *types.AuthorProfile, rows []*types.ContentRecord) types.CreatorRecord {
	r := types.CreatorRecord{
		ProfilePicture:   p.Avatar,
		CreatorName:      displayName(p),
		CreatorHandle:    "@" + p.Handle,
		ProfileLink:      p.ProfileURL,
		Email:            p.Email,
		Phone:            p.Mobile,
		OtherContact:     p.OtherContact,
		Platform:         platform,
		Language:         p.Language,
		FollowerCount:    formatCount(p.Fans),
		EngagementRate:   strconv.FormatFloat(p.EngagementRate, 'f', 2, 64),
		AverageLikes:     "0",
		AverageComments:  "0",
		BioLink:          p.BioLink,
		Contactable:      yesNo(p.Email != "" || p.Mobile != "" || p.OtherContact != ""),
		LinkedPlatforms:  LinkedPlatforms(p.BioLink + " " + p.OtherContact),
		Description:      p.Bio,
		TopVideoViews:    "0",
		InternalCategory: p.CreatorType,
	}
	if len(rows) == 0 {
		return r
	}

	var likes, comments int64
	latest, top := rows[0], rows[0]
	for _, row := range rows {
		likes += row.LikeCount
		comments += row.ComCount
		if row.CreateTime > latest.CreateTime {
			latest = row
		}
		if row.ViewCount > top.ViewCount {
			top = row
		}
		if r.Location == "" {
			r.Location = row.Location
		}
	}
	n := float64(len(rows))
	r.AverageLikes = formatCount(int64(math.Round(float64(likes) / n)))
	r.AverageComments = formatCount(int64(math.Round(float64(comments) / n)))
	r.LastPostDate = latest.UploadDate
	r.TopVideoLink = top.VideoLink
	r.TopVideoViews = top.Views
	return r
}

var platformHosts = []struct {
	name  string
	hosts []string
}{
	{"Instagram", []string{"instagram.com", "instagr.am"}},
	{"YouTube", []string{"youtube.com", "youtu.be"}},
	{"X", []string{"twitter.com", "x.com/"}},
	{"Facebook", []string{"facebook.com", "fb.com"}},
	{"Snapchat", []string{"snapchat.com"}},
	{"Twitch", []string{"twitch.tv"}},
	{"Spotify", []string{"spotify.com"}},
	{"Linktree", []string{"linktr.ee"}},
}

// LinkedPlatforms names the other platforms referenced in text, joined by
// "+" in a fixed order.
func LinkedPlatforms(text string) string {
	text = strings.ToLower(text)
	var found []string
	for _, p := range platformHosts {
		for _, h := range p.hosts {
			if strings.Contains(text, h) {
				found = append(found, p.name)
				break
			}
		}
	}
	return strings.Join(found, "+")
}
