// backend/src/security/validation/file_validation.go
package validation

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/statify/backend/src/logger"
)

// AllowedExtensions is the upload extension allow-list. Anything else is
// rejected before the parsers ever see the file.
var AllowedExtensions = map[string]bool{
	"xlsx": true,
	"xls":  true,
	"pdf":  true,
	"csv":  true,
}

// ValidateFileExtension checks the declared extension against the allow-list.
func ValidateFileExtension(ext string) error {
	if !AllowedExtensions[strings.ToLower(ext)] {
		logger.L.Warn("Disallowed file extension", "extension", ext)
		exts := make([]string, 0, len(AllowedExtensions))
		for e := range AllowedExtensions {
			exts = append(exts, "."+e)
		}
		sort.Strings(exts)
		return fmt.Errorf("file type '.%s' is not supported. Accepted: %s", ext, strings.Join(exts, ", "))
	}
	return nil
}

// expectedContentTypes maps a declared extension to the content types its
// magic bytes may legitimately sniff as. xlsx files are zip containers; xls
// and some spreadsheet exports sniff as generic binary.
var expectedContentTypes = map[string][]string{
	"csv":  {"text/plain", "text/csv", "application/csv", "application/octet-stream"},
	"pdf":  {"application/pdf"},
	"xlsx": {"application/zip", "application/octet-stream"},
	"xls":  {"application/vnd.ms-excel", "application/octet-stream", "application/zip"},
}

// ValidateFileContentByMagicBytes checks the actual file content signature
// against what the declared extension implies. It returns the detected
// content type and an error if the two are inconsistent.
func ValidateFileContentByMagicBytes(file io.ReadSeeker, ext string) (string, error) {
	if file == nil {
		return "", fmt.Errorf("file is nil")
	}

	buffer := make([]byte, 512) // Read first 512 bytes for MIME detection
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read file for content type checking: %w", err)
	}

	// Reset the read pointer so the actual parser can read the full file.
	if _, seekErr := file.Seek(0, io.SeekStart); seekErr != nil {
		return "", fmt.Errorf("failed to reset file read pointer: %w", seekErr)
	}

	detectedContentType := http.DetectContentType(buffer[:n])
	detectedContentType = strings.ToLower(strings.Split(detectedContentType, ";")[0])

	for _, allowed := range expectedContentTypes[strings.ToLower(ext)] {
		if detectedContentType == allowed {
			logger.L.Debug("File content type (magic bytes) validated", "extension", ext, "detectedContentType", detectedContentType)
			return detectedContentType, nil
		}
	}

	logger.L.Warn("File content inconsistent with declared extension", "extension", ext, "detectedContentType", detectedContentType)
	return detectedContentType, fmt.Errorf("detected file content type '%s' is not consistent with a .%s file", detectedContentType, ext)
}
