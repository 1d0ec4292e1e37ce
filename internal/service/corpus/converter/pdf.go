package converter

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// IsPDF reports whether the upload should be inspected as a PDF.
func IsPDF(filename, contentType string) bool {
	return strings.EqualFold(normalizeKey(contentType), "application/pdf") ||
		strings.HasSuffix(strings.ToLower(filename), ".pdf")
}

// PDFPageCount validates a PDF and returns its page count.
// Text is not derived from PDFs here; callers supply it with the upload.
func PDFPageCount(content []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pages, err := api.PageCount(bytes.NewReader(content), conf)
	if err != nil {
		return 0, fmt.Errorf("invalid PDF: %w", err)
	}
	return pages, nil
}
