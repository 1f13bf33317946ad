package dataset

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/xuri/excelize/v2"

	"creator-scout-go/internal/types"
)

var ErrEmptyBrief = errors.New("no data found in the Excel file")

// Brief columns as they appear in the upload template.
const (
	colHashtags     = "Hashtags"
	colContentType  = "Content_Type"
	colLanguage     = "Language"
	colTimePeriod   = "Time_Period(7,14,30)"
	colMinViews     = "Min_Views"
	colMinLikes     = "Min_Likes"
	colMinComments  = "Min_Comments"
	colVideoLength  = "Video_Length_(sec)"
	colMinFollowers = "Min_Followers"
	colMaxFollowers = "Max_Followers"
	colResults      = "Number_of_Required_Results"
	colCountry      = "country"
	colKeywords     = "Description_Keywords"
)

// headerKeys maps a normalized header prefix to its column. Headers are
// compared after lowercasing and dropping everything but letters, so
// "Time_Period(7,14,30)", "time period" and "Content_Type " all match.
var headerKeys = []struct {
	prefix string
	column string
}{
	{"hashtags", colHashtags},
	{"contenttype", colContentType},
	{"language", colLanguage},
	{"timeperiod", colTimePeriod},
	{"minviews", colMinViews},
	{"minlikes", colMinLikes},
	{"mincomments", colMinComments},
	{"videolength", colVideoLength},
	{"minfollowers", colMinFollowers},
	{"maxfollowers", colMaxFollowers},
	{"numberofrequiredresults", colResults},
	{"country", colCountry},
	{"descriptionkeywords", colKeywords},
}

// criteriaFields names the brief column behind each Criteria.Validate field.
var criteriaFields = map[string]string{
	"hashtags":        colHashtags,
	"contentType":     colContentType,
	"timePeriodDays":  colTimePeriod,
	"minViews":        colMinViews,
	"minLikes":        colMinLikes,
	"minComments":     colMinComments,
	"maxVideoSeconds": colVideoLength,
	"minFollowers":    colMinFollowers,
	"maxFollowers":    colMaxFollowers,
	"resultCount":     colResults,
}

// RowError lists the rejected fields of one sheet row. Row is the 1-based
// spreadsheet row number, so the first data row is 2.
type RowError struct {
	Row    int                `json:"row"`
	Errors []types.FieldError `json:"errors"`
}

// BriefError is returned when any row of a brief is invalid. No row of such
// a brief is accepted.
type BriefError struct {
	Rows []RowError
}

func (e *BriefError) Error() string {
	return fmt.Sprintf("Validation errors in Excel file: %d invalid row(s)", len(e.Rows))
}

func (e *BriefError) Unwrap() error { return types.ErrInvalidCriteria }

func normalizeHeader(h string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(h) {
		if unicode.IsLetter(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func columnFor(header string) string {
	n := normalizeHeader(header)
	if n == "" {
		return ""
	}
	for _, k := range headerKeys {
		if strings.HasPrefix(n, k.prefix) {
			return k.column
		}
	}
	return ""
}

// LoadBrief reads a campaign brief workbook and returns one normalized
// Criteria per data row. Unknown columns are ignored and blank rows skipped.
func LoadBrief(r io.Reader) ([]types.Criteria, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyBrief
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) <= 1 {
		return nil, ErrEmptyBrief
	}

	index := map[string]int{}
	for i, h := range rows[0] {
		if col := columnFor(h); col != "" {
			if _, seen := index[col]; !seen {
				index[col] = i
			}
		}
	}

	var (
		out     []types.Criteria
		invalid []RowError
	)
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		cell := func(col string) string {
			idx, ok := index[col]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}
		c, errs := parseRow(cell)
		if len(errs) > 0 {
			invalid = append(invalid, RowError{Row: i + 2, Errors: errs})
			continue
		}
		out = append(out, c)
	}
	if len(invalid) > 0 {
		return nil, &BriefError{Rows: invalid}
	}
	if len(out) == 0 {
		return nil, ErrEmptyBrief
	}
	return out, nil
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func parseRow(cell func(string) string) (types.Criteria, []types.FieldError) {
	var (
		c    types.Criteria
		errs []types.FieldError
	)
	reject := func(field, msg string) {
		errs = append(errs, types.FieldError{Field: field, Message: msg})
	}
	integer := func(col string) int64 {
		v := cell(col)
		if v == "" {
			return 0
		}
		// Numeric cells can come back as "1000.0" or "1,000".
		v = strings.ReplaceAll(v, ",", "")
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			fv, ferr := strconv.ParseFloat(v, 64)
			if ferr != nil || fv != float64(int64(fv)) {
				reject(col, fmt.Sprintf("%q must be an integer", col))
				return 0
			}
			n = int64(fv)
		}
		if n < 0 {
			reject(col, fmt.Sprintf("%q must be greater than or equal to 0", col))
			return 0
		}
		return n
	}

	c.Hashtags = strings.Split(cell(colHashtags), ",")
	ct, err := types.ParseContentType(cell(colContentType))
	if err != nil {
		reject(colContentType, fmt.Sprintf("%q must be one of [Organic Post, ads]", colContentType))
	} else if ct == types.ContentAny {
		ct = types.ContentOrganic
	}
	c.ContentType = ct
	c.Languages = strings.Split(cell(colLanguage), ",")
	c.TimePeriodDays = int(integer(colTimePeriod))
	c.MinViews = integer(colMinViews)
	c.MinLikes = integer(colMinLikes)
	c.MinComments = integer(colMinComments)
	c.MaxVideoSeconds = int(integer(colVideoLength))
	c.MinFollowers = integer(colMinFollowers)
	c.MaxFollowers = integer(colMaxFollowers)
	c.ResultCount = int(integer(colResults))
	c.Country = cell(colCountry)
	c.Keywords = strings.Split(cell(colKeywords), ",")
	if len(errs) > 0 {
		return c, errs
	}

	c.Normalize()
	var verr *types.ValidationError
	if err := c.Validate(); errors.As(err, &verr) {
		for _, f := range verr.Fields {
			col := criteriaFields[f.Field]
			if col == "" {
				col = f.Field
			}
			reject(col, f.Message)
		}
	}
	return c, errs
}
