package dataset

import (
	"bytes"
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"

	"creator-scout-go/internal/types"
)

func workbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		axis, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, axis, &row); err != nil {
			t.Fatalf("SetSheetRow() error = %v", err)
		}
	}
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}
	return &buf
}

var header = []interface{}{
	"Hashtags", "Content_Type ", "Language", "Time_Period(7,14,30)", "Min_Views",
	"Min_Likes", "Min_Comments", "Video_Length_(sec)", "Min_Followers",
	"Max_Followers", "Number_of_Required_Results", "country", "Description_Keywords", "Notes",
}

func TestLoadBrief(t *testing.T) {
	buf := workbook(t, [][]interface{}{
		header,
		{"#food, travel", "ads", "en, es", 14, 1000, 100, 5, 60, 1000, 50000, 25, "India", "recipe, street food", "ignored"},
		{},
		{"dance", "", "", "", "", "", "", "", "", "", "", "", ""},
	})

	got, err := LoadBrief(buf)
	if err != nil {
		t.Fatalf("LoadBrief() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("LoadBrief() rows = %d, want 2", len(got))
	}

	first := got[0]
	if len(first.Hashtags) != 2 || first.Hashtags[0] != "food" || first.Hashtags[1] != "travel" {
		t.Errorf("Hashtags = %v", first.Hashtags)
	}
	if first.ContentType != types.ContentAd || first.TimePeriodDays != 14 || first.MinViews != 1000 ||
		first.MinLikes != 100 || first.MaxVideoSeconds != 60 || first.MaxFollowers != 50000 || first.ResultCount != 25 {
		t.Errorf("first row = %+v", first)
	}
	if first.Country != "India" || len(first.Keywords) != 2 || first.Keywords[1] != "street food" {
		t.Errorf("country/keywords = %q %v", first.Country, first.Keywords)
	}
	if len(first.Languages) != 2 || first.Languages[1] != "es" {
		t.Errorf("Languages = %v", first.Languages)
	}

	second := got[1]
	if second.ContentType != types.ContentOrganic || second.ResultCount != types.DefaultResultCount || second.MinLikes != 0 {
		t.Errorf("defaults = %+v", second)
	}
}

func TestLoadBriefRejectsWholeUpload(t *testing.T) {
	buf := workbook(t, [][]interface{}{
		header,
		{"food", "Organic Post", "", 7, 0, 0, 0, 0, 0, 0, 10},
		{"", "billboard", "", 9, -1, "lots", 0, 0, 0, 0, 2000},
	})

	got, err := LoadBrief(buf)
	if got != nil {
		t.Fatalf("LoadBrief() returned %d rows alongside an invalid row", len(got))
	}
	var be *BriefError
	if !errors.As(err, &be) {
		t.Fatalf("LoadBrief() error = %v, want *BriefError", err)
	}
	if !errors.Is(err, types.ErrInvalidCriteria) {
		t.Fatalf("BriefError does not unwrap to ErrInvalidCriteria")
	}
	if len(be.Rows) != 1 || be.Rows[0].Row != 3 {
		t.Fatalf("Rows = %+v", be.Rows)
	}
	fields := map[string]bool{}
	for _, f := range be.Rows[0].Errors {
		fields[f.Field] = true
	}
	for _, want := range []string{"Content_Type", "Min_Views", "Min_Likes"} {
		if !fields[want] {
			t.Errorf("missing error for %s in %+v", want, be.Rows[0].Errors)
		}
	}
}

func TestLoadBriefValidatesCriteria(t *testing.T) {
	buf := workbook(t, [][]interface{}{
		header,
		{"", "ads", "", 9, 0, 0, 0, 0, 0, 0, 2000},
	})
	_, err := LoadBrief(buf)
	var be *BriefError
	if !errors.As(err, &be) {
		t.Fatalf("LoadBrief() error = %v", err)
	}
	fields := map[string]bool{}
	for _, f := range be.Rows[0].Errors {
		fields[f.Field] = true
	}
	for _, want := range []string{"Hashtags", "Time_Period(7,14,30)", "Number_of_Required_Results"} {
		if !fields[want] {
			t.Errorf("missing error for %s in %+v", want, be.Rows[0].Errors)
		}
	}
}

func TestLoadBriefEmpty(t *testing.T) {
	if _, err := LoadBrief(workbook(t, [][]interface{}{header})); !errors.Is(err, ErrEmptyBrief) {
		t.Fatalf("LoadBrief(header only) error = %v", err)
	}
	if _, err := LoadBrief(bytes.NewBufferString("not a workbook")); err == nil {
		t.Fatal("LoadBrief(garbage) error = nil")
	}
}

func TestWriteContentSheet(t *testing.T) {
	var buf bytes.Buffer
	records := []types.ContentRecord{{VideoLink: "https://v/1", Likes: "1,200", SpokenScript: "secret"}}
	if err := WriteContentSheet(&buf, records); err != nil {
		t.Fatalf("WriteContentSheet() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()
	if sheets := f.GetSheetList(); len(sheets) != 1 || sheets[0] != ContentSheet {
		t.Fatalf("sheets = %v", sheets)
	}
	rows, err := f.GetRows(ContentSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if len(rows[0]) != len(types.ContentColumns)-1 {
		t.Fatalf("header has %d columns, want %d", len(rows[0]), len(types.ContentColumns)-1)
	}
	for _, h := range rows[0] {
		if h == "Spoken Script" {
			t.Fatal("content sheet includes Spoken Script")
		}
	}
	if rows[1][1] != "https://v/1" {
		t.Errorf("Video Link cell = %q", rows[1][1])
	}
	for _, v := range rows[1] {
		if v == "secret" {
			t.Fatal("spoken script leaked into the sheet")
		}
	}
}

func TestWriteCreatorSheet(t *testing.T) {
	var buf bytes.Buffer
	records := []types.CreatorRecord{{CreatorHandle: "@alice", FollowerCount: "1,000"}, {CreatorHandle: "@bob"}}
	if err := WriteCreatorSheet(&buf, records); err != nil {
		t.Fatalf("WriteCreatorSheet() error = %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := f.GetRows(CreatorSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 || rows[0][2] != "Creator Handle" || rows[2][2] != "@bob" {
		t.Fatalf("rows = %v", rows)
	}
	if ContentFileName("j1") != "Content_Sheet_j1.xlsx" || CreatorFileName("j1") != "Creator_Sheet_j1.xlsx" {
		t.Fatal("unexpected export file names")
	}
}
