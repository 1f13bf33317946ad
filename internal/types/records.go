package types

// ContentRecord is one row of the content dataset. JSON keys are the column
// headers delivered to the content webhook and written to the export sheet.
type ContentRecord struct {
	Thumbnail         string `json:"Thumbnail"`
	VideoLink         string `json:"Video Link"`
	Platform          string `json:"Platform"`
	ContentType       string `json:"Content Type"`
	UploadDate        string `json:"Upload Date"`
	DurationSeconds   string `json:"Video Duration (sec)"`
	AudioLanguage     string `json:"Language (Audio)"`
	CaptionLanguage   string `json:"Language (Caption)"`
	Caption           string `json:"Caption"`
	Hashtags          string `json:"Hashtags"`
	TrendingSound     string `json:"Trending Sound (Yes/No)"`
	SoundName         string `json:"Sound Name"`
	SoundType         string `json:"Sound Type (Talking/Music/etc.)"`
	Location          string `json:"Location (if identifiable)"`
	ContentStyle      string `json:"Content Style (AI)"`
	CTADetected       string `json:"CTA detected? (Yes/No)"`
	EngagementRate    string `json:"Engagement Rate (%)"`
	Views             string `json:"Views"`
	Likes             string `json:"Likes"`
	Comments          string `json:"Comments"`
	Shares            string `json:"Shares"`
	CreatorName       string `json:"Creator Name"`
	CreatorProfile    string `json:"Creator Profile Link"`
	CreatorEmail      string `json:"Creator Email"`
	FollowerCount     string `json:"Follower Count"`
	UsableForCampaign string `json:"Usable for campaign?"`
	InternalCategory  string `json:"Internal Category"`
	SpokenScript      string `json:"Spoken Script"`

	// Join keys for creator aggregation. Not delivered or persisted.
	Handle     string `json:"-"`
	ViewCount  int64  `json:"-"`
	LikeCount  int64  `json:"-"`
	ComCount   int64  `json:"-"`
	CreateTime int64  `json:"-"`
}

// ContentColumns is the export column order of ContentRecord.
var ContentColumns = []string{
	"Thumbnail", "Video Link", "Platform", "Content Type", "Upload Date",
	"Video Duration (sec)", "Language (Audio)", "Language (Caption)", "Caption",
	"Hashtags", "Trending Sound (Yes/No)", "Sound Name",
	"Sound Type (Talking/Music/etc.)", "Location (if identifiable)",
	"Content Style (AI)", "CTA detected? (Yes/No)", "Engagement Rate (%)",
	"Views", "Likes", "Comments", "Shares", "Creator Name",
	"Creator Profile Link", "Creator Email", "Follower Count",
	"Usable for campaign?", "Internal Category", "Spoken Script",
}

// Row returns the cell values in ContentColumns order.
func (r ContentRecord) Row() []string {
	return []string{
		r.Thumbnail, r.VideoLink, r.Platform, r.ContentType, r.UploadDate,
		r.DurationSeconds, r.AudioLanguage, r.CaptionLanguage, r.Caption,
		r.Hashtags, r.TrendingSound, r.SoundName,
		r.SoundType, r.Location,
		r.ContentStyle, r.CTADetected, r.EngagementRate,
		r.Views, r.Likes, r.Comments, r.Shares, r.CreatorName,
		r.CreatorProfile, r.CreatorEmail, r.FollowerCount,
		r.UsableForCampaign, r.InternalCategory, r.SpokenScript,
	}
}

// CreatorRecord is one row of the creator dataset.
type CreatorRecord struct {
	ProfilePicture   string `json:"Profile Picture"`
	CreatorName      string `json:"Creator Name"`
	CreatorHandle    string `json:"Creator Handle"`
	ProfileLink      string `json:"Creator Profile Link"`
	Email            string `json:"Creator Email"`
	Phone            string `json:"Creator Phone Number"`
	OtherContact     string `json:"Creator Other Contact Info"`
	Platform         string `json:"Platform"`
	Location         string `json:"Location"`
	Language         string `json:"Language"`
	FollowerCount    string `json:"Follower Count"`
	EngagementRate   string `json:"Engagement Rate (%)"`
	AverageLikes     string `json:"Average Likes"`
	AverageComments  string `json:"Average Comments"`
	LastPostDate     string `json:"Last Post (Date)"`
	BioLink          string `json:"Link in Bio"`
	Contactable      string `json:"Contactable?"`
	LinkedPlatforms  string `json:"Linked Platforms"`
	Description      string `json:"Profile Description"`
	TopVideoLink     string `json:"Top Video Link"`
	TopVideoViews    string `json:"Top Video Views"`
	InternalCategory string `json:"Category (Internal)"`
}

var CreatorColumns = []string{
	"Profile Picture", "Creator Name", "Creator Handle", "Creator Profile Link",
	"Creator Email", "Creator Phone Number", "Creator Other Contact Info",
	"Platform", "Location", "Language", "Follower Count", "Engagement Rate (%)",
	"Average Likes", "Average Comments", "Last Post (Date)", "Link in Bio",
	"Contactable?", "Linked Platforms", "Profile Description", "Top Video Link",
	"Top Video Views", "Category (Internal)",
}

func (r CreatorRecord) Row() []string {
	return []string{
		r.ProfilePicture, r.CreatorName, r.CreatorHandle, r.ProfileLink,
		r.Email, r.Phone, r.OtherContact,
		r.Platform, r.Location, r.Language, r.FollowerCount, r.EngagementRate,
		r.AverageLikes, r.AverageComments, r.LastPostDate, r.BioLink,
		r.Contactable, r.LinkedPlatforms, r.Description, r.TopVideoLink,
		r.TopVideoViews, r.InternalCategory,
	}
}
