package services

// ExportFormat is the file format of an export.
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatXLSX ExportFormat = "xlsx"
)

// ExportFile is a rendered export ready to be written to a response.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}
