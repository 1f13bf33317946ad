package dataset

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"creator-scout-go/internal/types"
)

const (
	ContentSheet = "Content Data"
	CreatorSheet = "Creator Data"
)

// Columns left out of the content export.
var contentExcluded = map[string]bool{"Spoken Script": true}

// ContentFileName and CreatorFileName name the exported workbooks.
func ContentFileName(jobID string) string { return "Content_Sheet_" + jobID + ".xlsx" }
func CreatorFileName(jobID string) string { return "Creator_Sheet_" + jobID + ".xlsx" }

// WriteContentSheet renders content records as a single-sheet workbook.
func WriteContentSheet(w io.Writer, records []types.ContentRecord) error {
	keep := make([]int, 0, len(types.ContentColumns))
	header := make([]string, 0, len(types.ContentColumns))
	for i, col := range types.ContentColumns {
		if contentExcluded[col] {
			continue
		}
		keep = append(keep, i)
		header = append(header, col)
	}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		full := r.Row()
		row := make([]string, len(keep))
		for j, i := range keep {
			row[j] = full[i]
		}
		rows = append(rows, row)
	}
	return writeSheet(w, ContentSheet, header, rows)
}

// WriteCreatorSheet renders creator records as a single-sheet workbook.
func WriteCreatorSheet(w io.Writer, records []types.CreatorRecord) error {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, r.Row())
	}
	return writeSheet(w, CreatorSheet, types.CreatorColumns, rows)
}

func writeSheet(w io.Writer, name string, header []string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(name)
	if err != nil {
		return fmt.Errorf("stream writer: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	if err := sw.SetRow("A1", cells(header, bold)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range rows {
		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(axis, cells(row, 0)); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func cells(values []string, style int) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		if style != 0 {
			out[i] = excelize.Cell{StyleID: style, Value: v}
		} else {
			out[i] = v
		}
	}
	return out
}
