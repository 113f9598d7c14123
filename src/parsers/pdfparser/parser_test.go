// backend/src/parsers/pdfparser/parser_test.go
package pdfparser

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLines_StatementPage(t *testing.T) {
	lines := []string{
		"KASIKORNBANK PCL",
		"Statement of Account  Page 1 of 2",
		"",
		"01/03/2024  SALARY DEPOSIT ACME CO  45,000.00  52,340.75",
		"02/03/2024  KFC CENTRAL WORLD  350.50  51,990.25",
		"Total withdrawals this period",
		"15/03/24  TRANSFER IN PROMPTPAY  1,200.00",
	}

	parser := NewParser("THB")
	txns := parser.parseLines(lines)
	require.Len(t, txns, 3)

	// Credit keyword in the narration keeps the amount positive and the
	// trailing running balance is discarded.
	assert.Equal(t, "SALARY DEPOSIT ACME CO", txns[0].Description)
	assert.True(t, txns[0].Amount.Equal(decimal.RequireFromString("45000.00")), "got %s", txns[0].Amount)

	// No credit keyword: unsigned amount becomes a debit.
	assert.True(t, txns[1].Amount.Equal(decimal.RequireFromString("-350.50")), "got %s", txns[1].Amount)

	// Two-digit year maps to 20xx.
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), txns[2].Date)
	assert.True(t, txns[2].Amount.IsPositive())
	assert.Equal(t, "THB", txns[2].Currency)
}

func TestParseLines_TwoDigitYearsAlwaysCurrentCentury(t *testing.T) {
	// Go's "06" layout would map 95 to 1995; statements never predate 2000.
	parser := NewParser("THB")
	txns := parser.parseLines([]string{"01/06/95  REFUND VENDOR  10.00"})
	require.Len(t, txns, 1)
	assert.Equal(t, 2095, txns[0].Date.Year())
}

func TestParseLines_NonMatchingLinesSilentlySkipped(t *testing.T) {
	parser := NewParser("THB")
	txns := parser.parseLines([]string{
		"Dear customer,",
		"Your statement is ready.",
		"123 Sukhumvit Road, Bangkok 10110",
	})
	assert.Empty(t, txns)
}

func TestParseLines_CreditKeywords(t *testing.T) {
	parser := NewParser("THB")
	cases := []struct {
		line   string
		credit bool
	}{
		{"01/03/2024  interest earned q1  55.10", true},
		{"01/03/2024  SALARY MARCH  30,000.00", true},
		{"01/03/2024  PAYMENT RECEIVED INV-42  2,500.00", true},
		{"01/03/2024  ATM WITHDRAWAL  1,000.00", false},
		{"01/03/2024  TRANSFER OUT SAVINGS  5,000.00", false},
	}
	for _, tc := range cases {
		txns := parser.parseLines([]string{tc.line})
		require.Len(t, txns, 1, "line %q should match", tc.line)
		assert.Equal(t, tc.credit, txns[0].Amount.IsPositive(), "line %q", tc.line)
	}
}

func TestIsReadableText(t *testing.T) {
	assert.True(t, isReadableText([]string{"01/03/2024 KFC 350.50", "plain statement text"}))
	assert.False(t, isReadableText([]string{""}))
	assert.False(t, isReadableText(nil))
}

func TestSupports(t *testing.T) {
	parser := NewParser("THB")
	assert.True(t, parser.Supports("pdf"))
	assert.True(t, parser.Supports("PDF"))
	assert.False(t, parser.Supports("csv"))
}
