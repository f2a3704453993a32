package pdftext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/solar-equipment-parser/internal/core/domain"
)

const (
	msgEncrypted  = "The PDF is password-protected and cannot be read"
	msgUnreadable = "The document is not a valid or readable PDF"
)

// Extractor reads the whole document as one unit: text rows on a page are joined
// with a single space and pages with a newline.
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(ctx context.Context, data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = domain.NewPipelineError(domain.ErrExtractionFailed, msgUnreadable, fmt.Errorf("pdf reader panic: %v", r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", classify(err)
	}

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return "", classify(err)
		}
		pages = append(pages, joinRows(rows))
	}

	return strings.TrimSpace(strings.Join(pages, "\n")), nil
}

func joinRows(rows pdf.Rows) string {
	fragments := make([]string, 0, len(rows))
	for _, row := range rows {
		var b strings.Builder
		for _, word := range row.Content {
			b.WriteString(word.S)
		}
		if fragment := strings.TrimSpace(b.String()); fragment != "" {
			fragments = append(fragments, fragment)
		}
	}
	return strings.Join(fragments, " ")
}

func classify(err error) error {
	if errors.Is(err, pdf.ErrInvalidPassword) || strings.Contains(strings.ToLower(err.Error()), "encrypt") {
		return domain.NewPipelineError(domain.ErrExtractionFailed, msgEncrypted, err)
	}
	return domain.NewPipelineError(domain.ErrExtractionFailed, msgUnreadable, err)
}
