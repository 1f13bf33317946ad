package types

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var ErrInvalidCriteria = errors.New("invalid criteria")

// Agents selects which datasets a job produces.
type Agents string

const (
	AgentsCreator Agents = "creator"
	AgentsContent Agents = "content"
	AgentsBoth    Agents = "both"
)

func ParseAgents(s string) (Agents, error) {
	switch Agents(strings.ToLower(strings.TrimSpace(s))) {
	case AgentsCreator:
		return AgentsCreator, nil
	case AgentsContent:
		return AgentsContent, nil
	case AgentsBoth, "":
		return AgentsBoth, nil
	}
	return "", fmt.Errorf("%w: agents must be creator, content or both, got %q", ErrInvalidCriteria, s)
}

func (a Agents) Creator() bool { return a == AgentsCreator || a == AgentsBoth }
func (a Agents) Content() bool { return a == AgentsContent || a == AgentsBoth }

type ContentType string

const (
	ContentAny     ContentType = ""
	ContentOrganic ContentType = "organic"
	ContentAd      ContentType = "ad"
)

// ParseContentType accepts the brief spellings ("Organic Post", "ads") as well
// as the canonical values.
func ParseContentType(s string) (ContentType, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch {
	case v == "" || v == "any" || v == "all":
		return ContentAny, nil
	case strings.HasPrefix(v, "organic"):
		return ContentOrganic, nil
	case v == "ad" || v == "ads" || strings.HasPrefix(v, "paid"):
		return ContentAd, nil
	}
	return "", fmt.Errorf("%w: unknown content type %q", ErrInvalidCriteria, s)
}

const (
	DefaultResultCount = 10
	MaxResultCount     = 1000
)

// Criteria is the normalized campaign brief. Zero values mean "no constraint".
type Criteria struct {
	Hashtags        []string    `json:"hashtags"`
	ContentType     ContentType `json:"contentType,omitempty"`
	Languages       []string    `json:"languages,omitempty"`
	TimePeriodDays  int         `json:"timePeriodDays,omitempty"`
	OldestPost      *time.Time  `json:"oldestPost,omitempty"`
	MinViews        int64       `json:"minViews,omitempty"`
	MinLikes        int64       `json:"minLikes,omitempty"`
	MinComments     int64       `json:"minComments,omitempty"`
	MaxVideoSeconds int         `json:"maxVideoSeconds,omitempty"`
	MinFollowers    int64       `json:"minFollowers,omitempty"`
	MaxFollowers    int64       `json:"maxFollowers,omitempty"`
	ResultCount     int         `json:"resultCount"`
	Country         string      `json:"country,omitempty"`
	Keywords        []string    `json:"keywords,omitempty"`
}

// HasTimeWindow reports whether a recency constraint is set. A time window
// replaces the likes floor.
func (c Criteria) HasTimeWindow() bool {
	return c.TimePeriodDays > 0 || c.OldestPost != nil
}

// FieldError is one rejected field of a submission.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every rejected field so callers can report them together.
type ValidationError struct {
	Fields []FieldError `json:"errors"`
}

func (v *ValidationError) Error() string {
	parts := make([]string, 0, len(v.Fields))
	for _, f := range v.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "invalid criteria: " + strings.Join(parts, "; ")
}

func (v *ValidationError) Unwrap() error { return ErrInvalidCriteria }

func (v *ValidationError) add(field, msg string) {
	v.Fields = append(v.Fields, FieldError{Field: field, Message: msg})
}

// Normalize trims list fields, strips leading '#' from hashtags and applies
// the default result count.
func (c *Criteria) Normalize() {
	c.Hashtags = cleanList(c.Hashtags, "#")
	c.Languages = cleanList(c.Languages, "")
	c.Keywords = cleanList(c.Keywords, "")
	c.Country = strings.TrimSpace(c.Country)
	if c.ResultCount == 0 {
		c.ResultCount = DefaultResultCount
	}
}

// Validate rejects malformed criteria before any job is created.
func (c Criteria) Validate() error {
	v := &ValidationError{}
	if len(c.Hashtags) == 0 {
		v.add("hashtags", "at least one hashtag is required")
	}
	switch c.TimePeriodDays {
	case 0, 7, 14, 30:
	default:
		v.add("timePeriodDays", "must be 7, 14 or 30")
	}
	if c.ResultCount < 1 || c.ResultCount > MaxResultCount {
		v.add("resultCount", fmt.Sprintf("must be between 1 and %d", MaxResultCount))
	}
	for name, n := range map[string]int64{
		"minViews":        c.MinViews,
		"minLikes":        c.MinLikes,
		"minComments":     c.MinComments,
		"maxVideoSeconds": int64(c.MaxVideoSeconds),
		"minFollowers":    c.MinFollowers,
		"maxFollowers":    c.MaxFollowers,
	} {
		if n < 0 {
			v.add(name, "must not be negative")
		}
	}
	switch c.ContentType {
	case ContentAny, ContentOrganic, ContentAd:
	default:
		v.add("contentType", "must be organic or ad")
	}
	if len(v.Fields) == 0 {
		return nil
	}
	sort.Slice(v.Fields, func(i, j int) bool { return v.Fields[i].Field < v.Fields[j].Field })
	return v
}

func cleanList(in []string, trimPrefix string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if trimPrefix != "" {
			s = strings.TrimSpace(strings.TrimPrefix(s, trimPrefix))
		}
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// SplitList splits a free-text list on commas and whitespace.
func SplitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n' || r == '\t' || r == ' '
	})
}

// Job is the unit of work created per campaign submission.
type Job struct {
	ID              string     `json:"id"`
	Criteria        Criteria   `json:"criteria"`
	Agents          Agents     `json:"agents"`
	Status          string     `json:"status"`
	CreatorStatus   AgentState `json:"creatorStatus"`
	ContentStatus   AgentState `json:"contentStatus"`
	TotalCount      int        `json:"totalCount"`
	FilteredCount   int        `json:"filteredCount"`
	ErrorMessage    string     `json:"errorMessage,omitempty"`
	CreatorError    string     `json:"creatorError,omitempty"`
	ContentError    string     `json:"contentError,omitempty"`
	RunID           string     `json:"runId,omitempty"`
	DatasetID       string     `json:"datasetId,omitempty"`
	ContentSheetURL string     `json:"contentSheetUrl,omitempty"`
	CreatorSheetURL string     `json:"creatorSheetUrl,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// JobUpdate is a targeted field set. Nil fields are left untouched, so two
// agents updating the same job never overwrite each other's fields.
type JobUpdate struct {
	Status          *string
	CreatorStatus   *AgentState
	ContentStatus   *AgentState
	TotalCount      *int
	FilteredCount   *int
	ErrorMessage    *string
	CreatorError    *string
	ContentError    *string
	RunID           *string
	DatasetID       *string
	ContentSheetURL *string
	CreatorSheetURL *string
}

func (u JobUpdate) Empty() bool {
	return u == JobUpdate{}
}

// Apply copies the set fields onto job.
func (u JobUpdate) Apply(job *Job) {
	setStr := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setInt := func(dst *int, src *int) {
		if src != nil {
			*dst = *src
		}
	}
	setStr(&job.Status, u.Status)
	if u.CreatorStatus != nil {
		job.CreatorStatus = *u.CreatorStatus
	}
	if u.ContentStatus != nil {
		job.ContentStatus = *u.ContentStatus
	}
	setInt(&job.TotalCount, u.TotalCount)
	setInt(&job.FilteredCount, u.FilteredCount)
	setStr(&job.ErrorMessage, u.ErrorMessage)
	setStr(&job.CreatorError, u.CreatorError)
	setStr(&job.ContentError, u.ContentError)
	setStr(&job.RunID, u.RunID)
	setStr(&job.DatasetID, u.DatasetID)
	setStr(&job.ContentSheetURL, u.ContentSheetURL)
	setStr(&job.CreatorSheetURL, u.CreatorSheetURL)
}

// Ptr returns a pointer to v, handy for building JobUpdate literals.
func Ptr[T any](v T) *T { return &v }
