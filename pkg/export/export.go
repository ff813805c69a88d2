// Package export renders tabular reports such as student transcripts.
package export

import (
	"fmt"
	"strings"
)

// Format is an output encoding.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// ParseFormat accepts "csv" or "pdf" in any case; empty means CSV.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatPDF:
		return FormatPDF, nil
	}
	return "", fmt.Errorf("unsupported export format %q", raw)
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "text/csv; charset=utf-8"
}

// Dataset defines tabular export content. Summary lines are printed under the
// title in PDFs and as trailing label/value rows in CSVs.
type Dataset struct {
	Title   string
	Headers []string
	Rows    []map[string]string
	Summary []SummaryLine
}

// SummaryLine is a label/value pair outside the table.
type SummaryLine struct {
	Label string
	Value string
}

// Renderer encodes a dataset.
type Renderer interface {
	Render(data Dataset) ([]byte, error)
}

// Render encodes data in format f.
func Render(f Format, data Dataset) ([]byte, error) {
	var r Renderer
	switch f {
	case FormatCSV:
		r = NewCSVExporter()
	case FormatPDF:
		r = NewPDFExporter()
	default:
		return nil, fmt.Errorf("unsupported export format %q", f)
	}
	return r.Render(data)
}

// Filename builds a download name from base and f.
func Filename(base string, f Format) string {
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '-'
		}
		return -1
	}, strings.TrimSpace(base))
	if base == "" {
		base = "export"
	}
	return base + "." + string(f)
}
