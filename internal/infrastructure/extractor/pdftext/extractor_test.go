package pdftext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/kirillkom/solar-equipment-parser/internal/core/domain"
)

// buildPDF writes a minimal PDF with one Helvetica text line per page.
func buildPDF(pages ...string) []byte {
	var buf bytes.Buffer
	offsets := []int{}
	writeObj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	writeObj("<< /Type /Catalog /Pages 2 0 R >>")

	kids := make([]string, 0, len(pages))
	for i := range pages {
		kids = append(kids, fmt.Sprintf("%d 0 R", 4+i*2))
	}
	writeObj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))
	writeObj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")

	for i, text := range pages {
		writeObj(fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>",
			5+i*2,
		))
		stream := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		writeObj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

func TestExtractJoinsPagesWithNewline(t *testing.T) {
	data := buildPDF("Maximum Power 400 W", "Warranty 25 years")

	text, err := New().Extract(context.Background(), data)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !strings.Contains(text, "Maximum Power 400 W") || !strings.Contains(text, "Warranty 25 years") {
		t.Fatalf("unexpected text %q", text)
	}
	if !strings.Contains(text, "\n") {
		t.Fatalf("pages must be separated by a newline, got %q", text)
	}
	if text != strings.TrimSpace(text) {
		t.Fatalf("text must be trimmed")
	}
}

func TestExtractCorruptDocument(t *testing.T) {
	_, err := New().Extract(context.Background(), []byte("%PDF-1.4\nthis is not really a pdf"))
	if !domain.IsKind(err, domain.ErrExtractionFailed) {
		t.Fatalf("expected ExtractionFailed, got %v", err)
	}
	if domain.PublicMessage(err) != msgUnreadable {
		t.Fatalf("unexpected message %q", domain.PublicMessage(err))
	}
}

func TestClassifyEncrypted(t *testing.T) {
	err := classify(errors.New("encrypted PDF: invalid password"))
	if domain.PublicMessage(err) != msgEncrypted {
		t.Fatalf("expected password-protected message, got %q", domain.PublicMessage(err))
	}
}
