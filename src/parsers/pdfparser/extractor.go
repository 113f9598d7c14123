// backend/src/parsers/pdfparser/extractor.go
package pdfparser

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

// extractText pulls the text content out of a PDF, page by page, preserving
// reading order. Returns one string per page.
func extractText(content []byte) (pages []string, err error) {
	// The pdf library panics on some malformed documents.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("PDF library crashed: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	numPages := reader.NumPage()
	if numPages == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}

	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		var lines []string
		for _, row := range rows {
			var parts []string
			for _, word := range row.Content {
				parts = append(parts, word.S)
			}
			line := strings.TrimSpace(strings.Join(parts, " "))
			if line != "" {
				lines = append(lines, line)
			}
		}
		if len(lines) > 0 {
			pages = append(pages, strings.Join(lines, "\n"))
		}
	}
	return pages, nil
}

// isReadableText reports whether extracted pages look like real text rather
// than binary garbage from identity-encoded fonts. A scanned (image-based)
// statement yields no text at all and fails this check.
func isReadableText(pages []string) bool {
	total := 0
	readable := 0
	for _, page := range pages {
		for _, r := range page {
			total++
			if r < 128 && (unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) ||
				strings.ContainsRune(".,-/:;()'\"$%&@#!?+=*", r)) {
				readable++
			}
		}
	}
	if total == 0 {
		return false
	}
	return float64(readable)/float64(total) > 0.6
}
