// backend/src/parsers/parser.go
package parsers

import (
	"errors"
	"io"

	"github.com/statify/backend/src/models"
)

// FileParser turns a raw statement file into normalized transaction rows.
// Implementations declare which file extensions they handle; the factory
// picks the first supporting parser for an upload's declared extension.
type FileParser interface {
	Supports(extension string) bool
	Parse(file io.Reader) ([]models.ParsedTransaction, error)
}

// ErrHeaderNotDetected is returned by the spreadsheet parser when no
// date-bearing header row (and no date-typed first cell) is found within
// the scan window.
var ErrHeaderNotDetected = errors.New("header not detected")

// ErrScannedDocument is returned by the PDF parser when no extractable text
// is found, which usually means the document is image-based/scanned.
var ErrScannedDocument = errors.New("document appears image-based: no extractable text")
