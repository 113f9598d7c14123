// backend/src/parsers/factory.go
package parsers

import (
	"fmt"
)

// GetParser returns the first registered parser that supports the given
// file extension.
func GetParser(registry []FileParser, extension string) (FileParser, error) {
	for _, p := range registry {
		if p.Supports(extension) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("no parser available for extension: %s", extension)
}
