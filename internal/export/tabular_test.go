package export

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"lexcorpus/internal/domain"
	"lexcorpus/internal/domain/services"

	"github.com/xuri/excelize/v2"
)

func TestSelect(t *testing.T) {
	available := []string{"id", "name", "scope"}

	tests := []struct {
		name      string
		requested []string
		want      []string
		wantErr   bool
	}{
		{name: "empty selects all", requested: nil, want: []string{"id", "name", "scope"}},
		{name: "subset keeps request order", requested: []string{"scope", "id"}, want: []string{"scope", "id"}},
		{name: "duplicates collapse", requested: []string{"id", "id"}, want: []string{"id"}},
		{name: "unknown column", requested: []string{"id", "owner"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Select(available, tt.requested)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat(""); err != nil || f != services.FormatCSV {
		t.Errorf("empty format = %q, %v; want csv", f, err)
	}
	if f, err := ParseFormat("XLSX"); err != nil || f != services.FormatXLSX {
		t.Errorf("XLSX = %q, %v; want xlsx", f, err)
	}
	if _, err := ParseFormat("pdf"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("pdf: expected validation error, got %v", err)
	}
}

func TestRender_CSV(t *testing.T) {
	table := &Table{
		Columns: []string{"name", "note"},
		Rows: [][]string{
			{"Lei 8.245", "locação, urbana"},
			{"Contrato", `aspas "duplas"`},
		},
	}

	file, err := Render(table, services.FormatCSV, "documents")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if file.Filename != "documents.csv" || file.ContentType != ContentTypeCSV {
		t.Errorf("unexpected file metadata: %q %q", file.Filename, file.ContentType)
	}

	want := "name,note\nLei 8.245,\"locação, urbana\"\nContrato,\"aspas \"\"duplas\"\"\"\n"
	if string(file.Data) != want {
		t.Errorf("csv mismatch:\n got: %q\nwant: %q", file.Data, want)
	}
}

func TestRender_XLSX(t *testing.T) {
	table := &Table{
		Columns: []string{"document_name", "Parte"},
		Rows:    [][]string{{"contrato.txt", "Acme Ltda"}},
	}

	file, err := Render(table, services.FormatXLSX, "Review: contratos/2026")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if file.ContentType != ContentTypeXLSX {
		t.Errorf("content type = %q", file.ContentType)
	}

	f, err := excelize.OpenReader(bytes.NewReader(file.Data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet != "Review_ contratos_2026" {
		t.Errorf("sheet name = %q", sheet)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 2 || rows[0][1] != "Parte" || rows[1][1] != "Acme Ltda" {
		t.Errorf("unexpected rows: %v", rows)
	}
}

func TestSheetName(t *testing.T) {
	long := strings.Repeat("x", 40)
	if got := sheetName(long); len(got) != 31 {
		t.Errorf("long name not trimmed: %d", len(got))
	}
	if got := sheetName("  "); got != "Export" {
		t.Errorf("blank name = %q", got)
	}
}
