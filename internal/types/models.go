package types

// CandidateItem is one raw post as returned by the scraping provider.
// Fields mirror the provider's JSON so items round-trip into storage untouched.
type CandidateItem struct {
	ID            string        `json:"id"`
	Text          string        `json:"text"`
	TextLanguage  string        `json:"textLanguage,omitempty"`
	CreateTime    int64         `json:"createTime"`
	CreateTimeISO string        `json:"createTimeISO,omitempty"`
	IsAd          bool          `json:"isAd"`
	IsSlideshow   bool          `json:"isSlideshow,omitempty"`
	WebVideoURL   string        `json:"webVideoUrl,omitempty"`
	PlayCount     int64         `json:"playCount"`
	DiggCount     int64         `json:"diggCount"`
	CommentCount  int64         `json:"commentCount"`
	ShareCount    int64         `json:"shareCount"`
	Hashtags      []Hashtag     `json:"hashtags,omitempty"`
	Mentions      []string      `json:"mentions,omitempty"`
	AuthorMeta    AuthorMeta    `json:"authorMeta"`
	MusicMeta     *MusicMeta    `json:"musicMeta,omitempty"`
	VideoMeta     VideoMeta     `json:"videoMeta"`
	LocationMeta  *LocationMeta `json:"locationMeta,omitempty"`
}

type Hashtag struct {
	Name string `json:"name"`
}

type AuthorMeta struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name"`
	NickName   string `json:"nickName,omitempty"`
	ProfileURL string `json:"profileUrl,omitempty"`
	Avatar     string `json:"avatar,omitempty"`
	Verified   bool   `json:"verified,omitempty"`
	Signature  string `json:"signature,omitempty"`
	BioLink    string `json:"bioLink,omitempty"`
	Region     string `json:"region,omitempty"`
	Fans       int64  `json:"fans"`
	Following  int64  `json:"following,omitempty"`
	Heart      int64  `json:"heart,omitempty"`
	Video      int64  `json:"video,omitempty"`
}

type MusicMeta struct {
	MusicName     string `json:"musicName,omitempty"`
	MusicAuthor   string `json:"musicAuthor,omitempty"`
	MusicOriginal bool   `json:"musicOriginal"`
	Trending      bool   `json:"trending,omitempty"`
	PlayURL       string `json:"playUrl,omitempty"`
}

type VideoMeta struct {
	Duration      float64    `json:"duration"`
	CoverURL      string     `json:"coverUrl,omitempty"`
	SubtitleLinks []Subtitle `json:"subtitleLinks,omitempty"`
}

type Subtitle struct {
	Language string `json:"language"`
}

type LocationMeta struct {
	City        string `json:"city,omitempty"`
	CountryCode string `json:"countryCode,omitempty"`
	Address     string `json:"address,omitempty"`
}

// AudioRef is the remote audio track for the post, empty when the post has none.
func (c CandidateItem) AudioRef() string {
	if c.MusicMeta == nil {
		return ""
	}
	return c.MusicMeta.PlayURL
}

// EnrichedItem is a candidate that passed filtering, plus everything the
// enrichment stages attached. Empty enrichment fields mean the step was
// skipped or failed for this item.
type EnrichedItem struct {
	CandidateItem
	JobID         string `json:"jobId"`
	RunID         string `json:"runId,omitempty"`
	DatasetID     string `json:"datasetId,omitempty"`
	AudioType     string `json:"audioType,omitempty"`
	AudioLanguage string `json:"audioLanguage,omitempty"`
	AudioText     string `json:"audioText,omitempty"`
	PostCategory  string `json:"postCategory,omitempty"`
	CTADetected   bool   `json:"ctaDetected,omitempty"`
	Usable        bool   `json:"usableForCampaign,omitempty"`
}

// ProfilePost is one recent post returned by the profile scraper. Every post
// carries the author metadata, which is how profiles are resolved.
type ProfilePost struct {
	ID            string     `json:"id"`
	Text          string     `json:"text,omitempty"`
	CreateTime    int64      `json:"createTime"`
	CreateTimeISO string     `json:"createTimeISO,omitempty"`
	WebVideoURL   string     `json:"webVideoUrl,omitempty"`
	PlayCount     int64      `json:"playCount"`
	DiggCount     int64      `json:"diggCount"`
	CommentCount  int64      `json:"commentCount"`
	ShareCount    int64      `json:"shareCount"`
	AuthorMeta    AuthorMeta `json:"authorMeta"`
	TextLanguage  string     `json:"textLanguage,omitempty"`
}

// AuthorProfile is the resolved account behind one or more enriched items.
type AuthorProfile struct {
	JobID             string        `json:"jobId"`
	Handle            string        `json:"handle"`
	NickName          string        `json:"nickName,omitempty"`
	ProfileURL        string        `json:"profileUrl,omitempty"`
	Avatar            string        `json:"avatar,omitempty"`
	Verified          bool          `json:"verified,omitempty"`
	Bio               string        `json:"bio,omitempty"`
	BioLink           string        `json:"bioLink,omitempty"`
	Region            string        `json:"region,omitempty"`
	Language          string        `json:"language,omitempty"`
	Fans              int64         `json:"fans"`
	Following         int64         `json:"following"`
	Heart             int64         `json:"heart"`
	VideoCount        int64         `json:"videoCount"`
	RecentPosts       []ProfilePost `json:"recentPosts,omitempty"`
	AvgLikes          float64       `json:"avgLikes"`
	AvgComments       float64       `json:"avgComments"`
	EngagementRate    float64       `json:"engagementRate"`
	LastPostTimestamp string        `json:"lastPostTimestamp,omitempty"`
	CreatorType       string        `json:"creatorType,omitempty"`
	Email             string        `json:"email,omitempty"`
	Mobile            string        `json:"mobile,omitempty"`
	OtherContact      string        `json:"otherContact,omitempty"`
}
