// backend/src/utils/date_utils.go
package utils

import (
	"fmt"
	"time"
)

const (
	// DateFormatStatement is the dd/mm/yyyy layout used by exported bank statements.
	DateFormatStatement = "02/01/2006"
	// DateFormatISO is the yyyy-mm-dd layout some spreadsheet exports use.
	DateFormatISO = "2006-01-02"
)

// ParseStatementDate parses a date string in either dd/mm/yyyy or yyyy-mm-dd form.
func ParseStatementDate(raw string) (time.Time, error) {
	if t, err := time.Parse(DateFormatStatement, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(DateFormatISO, raw); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized date format: %q", raw)
}
