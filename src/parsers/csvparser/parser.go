// backend/src/parsers/csvparser/parser.go
package csvparser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/statify/backend/src/models"
	"github.com/statify/backend/src/utils"
)

// Parser reads comma-delimited bank statement exports.
//
// Expected layout: Date (dd/mm/yyyy), Description, Withdrawal, Deposit.
// The first row is a header and is always skipped. Rows with fewer than
// four fields are ignored; a row with a bad date or amount aborts the whole
// file. Amount convention: deposit − withdrawal, so credits are positive.
type Parser struct {
	currency string
}

func NewParser(currency string) *Parser {
	return &Parser{currency: currency}
}

func (p *Parser) Supports(extension string) bool {
	return strings.EqualFold(extension, "csv")
}

func (p *Parser) Parse(file io.Reader) ([]models.ParsedTransaction, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV records: %w", err)
	}

	var transactions []models.ParsedTransaction
	for i, record := range records {
		if i == 0 { // header row, always skipped
			continue
		}
		if len(record) < 4 {
			continue
		}

		date, err := time.Parse(utils.DateFormatStatement, strings.TrimSpace(record[0]))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid date %q: %w", i+1, record[0], err)
		}
		description := strings.TrimSpace(record[1])

		withdrawal, err := parseAmount(record[2])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid withdrawal amount %q: %w", i+1, record[2], err)
		}
		deposit, err := parseAmount(record[3])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid deposit amount %q: %w", i+1, record[3], err)
		}

		transactions = append(transactions, models.ParsedTransaction{
			Date:        date,
			Description: description,
			Amount:      deposit.Sub(withdrawal),
			Currency:    p.currency,
		})
	}
	return transactions, nil
}

// parseAmount treats a blank field as zero.
func parseAmount(raw string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(trimmed)
}
