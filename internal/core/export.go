package core

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ExportColumns is the header of every export, in order.
var ExportColumns = func() []string {
	cols := make([]string, len(BuyerFields))
	for i, spec := range BuyerFields {
		cols[i] = spec.Name
	}
	return cols
}()

// TagSeparator joins tags in exported files. The importer splits on it too.
const TagSeparator = "|"

// exportRecord renders b in ExportColumns order. Absent values are "".
func exportRecord(b Buyer) []string {
	out := make([]string, len(ExportColumns))
	for i, col := range ExportColumns {
		switch v := FieldValue(b, col).(type) {
		case nil:
			out[i] = ""
		case string:
			out[i] = v
		case int64:
			out[i] = strconv.FormatInt(v, 10)
		case []string:
			out[i] = strings.Join(v, TagSeparator)
		}
	}
	return out
}

// csvEscapeField quotes s when it holds a comma, a quote or a newline.
func csvEscapeField(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

// WriteCSV writes buyers as CSV. Lines are separated by "\n" with no
// trailing newline.
func WriteCSV(w io.Writer, buyers []Buyer) error {
	var sb strings.Builder
	sb.WriteString(strings.Join(ExportColumns, ","))
	for _, b := range buyers {
		rec := exportRecord(b)
		for i := range rec {
			rec[i] = csvEscapeField(rec[i])
		}
		sb.WriteByte('\n')
		sb.WriteString(strings.Join(rec, ","))
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

const xlsxSheet = "Buyers"

// WriteXLSX writes buyers as a single-sheet workbook with a styled,
// frozen header row. Budgets are written as numbers.
func WriteXLSX(w io.Writer, buyers []Buyer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), xlsxSheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	header := make([]any, len(ExportColumns))
	for i, col := range ExportColumns {
		header[i] = col
	}
	if err := f.SetSheetRow(xlsxSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(ExportColumns), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(xlsxSheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for r, b := range buyers {
		row := make([]any, len(ExportColumns))
		for i, col := range ExportColumns {
			switch v := FieldValue(b, col).(type) {
			case nil:
				row[i] = nil
			case []string:
				row[i] = strings.Join(v, TagSeparator)
			default:
				row[i] = v
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(xlsxSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", r+2, err)
		}
	}

	if err := f.SetPanes(xlsxSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
