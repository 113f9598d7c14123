// backend/src/parsers/excelparser/parser.go
package excelparser

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/statify/backend/src/logger"
	"github.com/statify/backend/src/models"
	"github.com/statify/backend/src/parsers"
	"github.com/statify/backend/src/utils"
)

// defaultDescription is used when a row has no narration cell.
const defaultDescription = "UNNAMED_TRANSACTION"

// headerScanWindow is how many leading rows are searched for a header.
const headerScanWindow = 15

// headerTokens mark a cell as belonging to the header row. Thai statements
// label the date column "วันที่".
var headerTokens = []string{"date", "วันที่", "txn date"}

// Parser reads tabular spreadsheet statements (KBank / SCB / BBL style).
//
// Expected column layout, detected from the header row:
// Date | Description | Withdrawal (Debit) | Deposit (Credit) | [Balance]
//
// Unlike the CSV parser, malformed rows are skipped with a diagnostic and
// parsing continues. Amount convention: positive = credit, negative = debit.
type Parser struct {
	currency string
}

func NewParser(currency string) *Parser {
	return &Parser{currency: currency}
}

func (p *Parser) Supports(extension string) bool {
	return strings.EqualFold(extension, "xlsx") || strings.EqualFold(extension, "xls")
}

func (p *Parser) Parse(file io.Reader) ([]models.ParsedTransaction, error) {
	workbook, err := excelize.OpenReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer workbook.Close()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("spreadsheet has no sheets")
	}

	// Raw cell values so date cells come through as Excel serial numbers
	// rather than locale-formatted strings.
	rows, err := workbook.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}

	dataStartRow := detectDataStartRow(rows)
	if dataStartRow < 0 {
		return nil, fmt.Errorf("%w: expected columns Date, Description, Withdrawal, Deposit", parsers.ErrHeaderNotDetected)
	}

	logger.L.Info("Excel parser: header detected", "sheet", sheets[0], "dataStartRow", dataStartRow, "totalRows", len(rows))

	var transactions []models.ParsedTransaction
	for r := dataStartRow; r < len(rows); r++ {
		row := rows[r]
		if isBlankRow(row) {
			continue
		}
		txn, err := p.parseRow(row)
		if err != nil {
			logger.L.Warn("Excel parser: skipping row", "row", r+1, "reason", err.Error())
			continue
		}
		if txn != nil {
			transactions = append(transactions, *txn)
		}
	}

	logger.L.Info("Excel parser: parsed transactions", "count", len(transactions))
	return transactions, nil
}

// detectDataStartRow scans the leading rows for a header containing a
// date-like column label. If a row's first cell is itself a valid date
// value, that row is treated as the first data row. Returns -1 when
// neither is found within the window.
func detectDataStartRow(rows [][]string) int {
	limit := headerScanWindow
	if len(rows) < limit {
		limit = len(rows)
	}
	for r := 0; r < limit; r++ {
		for _, cell := range rows[r] {
			lower := strings.ToLower(cell)
			for _, token := range headerTokens {
				if strings.Contains(lower, token) {
					return r + 1 // data starts on next row
				}
			}
		}
		// A genuine date-typed first cell (an Excel date serial) means the
		// sheet has no label row and this row already holds data. String
		// dates do not count here: a text cell is not date-typed.
		if len(rows[r]) > 0 {
			if _, ok := serialDate(rows[r][0]); ok {
				return r
			}
		}
	}
	return -1
}

// parseRow maps one sheet row to a transaction. A nil, nil return means the
// row is a separator/subtotal and is silently dropped.
func (p *Parser) parseRow(row []string) (*models.ParsedTransaction, error) {
	if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
		return nil, nil
	}
	date, ok := cellDate(row[0])
	if !ok {
		return nil, fmt.Errorf("unparseable date cell %q", row[0])
	}

	description := ""
	if len(row) > 1 {
		description = strings.TrimSpace(row[1])
	}
	if description == "" {
		description = defaultDescription
	}

	withdrawal := decimal.Zero
	if len(row) > 2 {
		withdrawal = cellDecimal(row[2])
	}
	// Sheets with only three columns carry a signed amount; treat the
	// missing deposit column as zero.
	deposit := decimal.Zero
	if len(row) > 3 {
		deposit = cellDecimal(row[3])
	}

	amount := deposit.Sub(withdrawal)

	// Rows where both amounts are zero are subtotals or visual separators.
	if amount.IsZero() && withdrawal.IsZero() {
		return nil, nil
	}

	return &models.ParsedTransaction{
		Date:        date,
		Description: description,
		Amount:      amount,
		Currency:    p.currency,
	}, nil
}

// cellDate interprets a raw cell value as a date: an Excel date serial,
// dd/mm/yyyy, or yyyy-mm-dd.
func cellDate(raw string) (time.Time, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, false
	}
	if t, err := utils.ParseStatementDate(trimmed); err == nil {
		return t, true
	}
	return serialDate(trimmed)
}

// serialDate interprets a raw cell value as an Excel date serial.
func serialDate(raw string) (time.Time, bool) {
	trimmed := strings.TrimSpace(raw)
	serial, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return time.Time{}, false
	}
	// Serial 21916 is 1960-01-01; anything smaller is far more likely a
	// plain number than a statement date.
	if serial < 21916 {
		return time.Time{}, false
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// cellDecimal parses an amount cell, tolerating thousands separators and
// whitespace. Garbage and blanks both collapse to zero, mirroring how bank
// sheets pad empty debit/credit columns.
func cellDecimal(raw string) decimal.Decimal {
	cleaned := strings.NewReplacer(",", "", " ", "", " ", "").Replace(strings.TrimSpace(raw))
	if cleaned == "" {
		return decimal.Zero
	}
	value, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return value
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
