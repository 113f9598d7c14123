// backend/src/parsers/pdfparser/parser.go
package pdfparser

import (
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/statify/backend/src/models"
	"github.com/statify/backend/src/parsers"
)

// txnLinePattern matches one statement line:
//
//	Group 1: date, dd/mm/yy or dd/mm/yyyy
//	Group 2: description (everything up to the amount)
//	Group 3: amount, thousands-separated with two decimals
//	Group 4: optional running balance, discarded
var txnLinePattern = regexp.MustCompile(
	`(\d{2}/\d{2}/(?:\d{2}|\d{4}))\s+(.+?)\s+([\d,]+\.\d{2})(?:\s+([\d,]+\.\d{2}))?`)

// creditKeywords drive the inflow/outflow heuristic: report-style PDFs
// print unsigned amounts, so direction has to come from the narration.
var creditKeywords = []string{
	"DEPOSIT", "INTEREST", "REFUND", "TRANSFER IN", "RECEIVED", "SALARY", "INCOME",
}

// Parser reads free-text bank statement PDFs. Text is extracted in reading
// order and matched line by line; lines that do not look like transactions
// are silently skipped.
type Parser struct {
	currency string
}

func NewParser(currency string) *Parser {
	return &Parser{currency: currency}
}

func (p *Parser) Supports(extension string) bool {
	return strings.EqualFold(extension, "pdf")
}

func (p *Parser) Parse(file io.Reader) ([]models.ParsedTransaction, error) {
	content, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}

	pages, err := extractText(content)
	if err != nil {
		return nil, err
	}
	if !isReadableText(pages) {
		return nil, parsers.ErrScannedDocument
	}

	var lines []string
	for _, page := range pages {
		lines = append(lines, strings.Split(page, "\n")...)
	}
	return p.parseLines(lines), nil
}

// parseLines applies the transaction pattern to each line. Non-matching
// lines (headers, footers, address blocks) are dropped without error.
func (p *Parser) parseLines(lines []string) []models.ParsedTransaction {
	var transactions []models.ParsedTransaction
	for _, line := range lines {
		match := txnLinePattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}

		date, err := parseLineDate(match[1])
		if err != nil {
			continue
		}
		description := strings.TrimSpace(match[2])

		amount, err := decimal.NewFromString(strings.ReplaceAll(match[3], ",", ""))
		if err != nil {
			continue
		}
		if !isCredit(description) {
			amount = amount.Neg()
		}

		transactions = append(transactions, models.ParsedTransaction{
			Date:        date,
			Description: description,
			Amount:      amount,
			Currency:    p.currency,
		})
	}
	return transactions
}

// parseLineDate handles both dd/mm/yy and dd/mm/yyyy; two-digit years are
// interpreted as 20xx.
func parseLineDate(raw string) (time.Time, error) {
	if len(raw) == 8 {
		t, err := time.Parse("02/01/06", raw)
		if err != nil {
			return time.Time{}, err
		}
		// Two-digit years are always 20xx; Go maps 69-99 to 19xx.
		if t.Year() < 2000 {
			t = t.AddDate(100, 0, 0)
		}
		return t, nil
	}
	return time.Parse("02/01/2006", raw)
}

func isCredit(description string) bool {
	upper := strings.ToUpper(description)
	for _, keyword := range creditKeywords {
		if strings.Contains(upper, keyword) {
			return true
		}
	}
	return false
}
