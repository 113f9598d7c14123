// backend/src/parsers/factory_test.go
package parsers

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statify/backend/src/models"
)

type fakeParser struct {
	ext string
}

func (p fakeParser) Supports(extension string) bool { return extension == p.ext }
func (p fakeParser) Parse(io.Reader) ([]models.ParsedTransaction, error) {
	return nil, nil
}

func TestGetParser(t *testing.T) {
	registry := []FileParser{fakeParser{ext: "csv"}, fakeParser{ext: "pdf"}}

	parser, err := GetParser(registry, "pdf")
	require.NoError(t, err)
	assert.True(t, parser.Supports("pdf"))

	_, err = GetParser(registry, "docx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no parser available for extension: docx")
}
