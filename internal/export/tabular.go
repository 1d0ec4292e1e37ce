// Package export renders tabular data as CSV or XLSX files.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"lexcorpus/internal/domain"
	"lexcorpus/internal/domain/services"

	"github.com/xuri/excelize/v2"
)

// Content types of the rendered files
const (
	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Table is a header plus rows of cells, each row aligned with Columns.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Select resolves a requested column list against the available ones.
// An empty request selects everything; unknown names are a validation error.
func Select(available, requested []string) ([]string, error) {
	if len(requested) == 0 {
		out := make([]string, len(available))
		copy(out, available)
		return out, nil
	}

	known := make(map[string]bool, len(available))
	for _, name := range available {
		known[name] = true
	}

	var unknown []string
	seen := make(map[string]bool, len(requested))
	selected := make([]string, 0, len(requested))
	for _, name := range requested {
		name = strings.TrimSpace(name)
		if !known[name] {
			unknown = append(unknown, name)
			continue
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		selected = append(selected, name)
	}
	if len(unknown) > 0 {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("unknown export columns: %s", strings.Join(unknown, ", ")),
		}
	}
	return selected, nil
}

// ParseFormat validates an export format; empty means CSV.
func ParseFormat(format string) (services.ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", string(services.FormatCSV):
		return services.FormatCSV, nil
	case string(services.FormatXLSX):
		return services.FormatXLSX, nil
	}
	return "", &domain.ValidationError{Message: fmt.Sprintf("unknown export format %q (expected csv or xlsx)", format)}
}

// Render writes t in the requested format. basename is used for the file name
// and, for XLSX, the sheet name.
func Render(t *Table, format services.ExportFormat, basename string) (*services.ExportFile, error) {
	switch format {
	case services.FormatCSV, "":
		var buf bytes.Buffer
		if err := WriteCSV(&buf, t); err != nil {
			return nil, err
		}
		return &services.ExportFile{
			Filename:    basename + ".csv",
			ContentType: ContentTypeCSV,
			Data:        buf.Bytes(),
		}, nil
	case services.FormatXLSX:
		data, err := WriteXLSX(t, basename)
		if err != nil {
			return nil, err
		}
		return &services.ExportFile{
			Filename:    basename + ".xlsx",
			ContentType: ContentTypeXLSX,
			Data:        data,
		}, nil
	}
	return nil, &domain.ValidationError{Message: fmt.Sprintf("unknown export format %q", format)}
}

// WriteCSV writes a header row followed by the data rows.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range t.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteXLSX renders a single-sheet workbook with a bold header row.
func WriteXLSX(t *Table, sheet string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet = sheetName(sheet)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	header := make([]interface{}, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	if len(t.Columns) > 0 {
		style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return nil, fmt.Errorf("create header style: %w", err)
		}
		last, err := excelize.CoordinatesToCellName(len(t.Columns), 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
			return nil, fmt.Errorf("style header: %w", err)
		}
	}

	for i, row := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

// sheetName trims a name to Excel's 31 character limit and drops the
// characters Excel rejects.
func sheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if name == "" {
		return "Export"
	}
	runes := []rune(name)
	if len(runes) > 31 {
		name = string(runes[:31])
	}
	return name
}
