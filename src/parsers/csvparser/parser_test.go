// backend/src/parsers/csvparser/parser_test.go
package csvparser

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_ValidStatement(t *testing.T) {
	input := strings.Join([]string{
		"Date,Description,Withdrawal,Deposit",
		"01/03/2024,KFC CENTRAL WORLD,350.50,",
		"02/03/2024,SALARY MARCH,,45000.00",
		"03/03/2024,GRAB RIDE,120.00,0",
	}, "\n")

	parser := NewParser("THB")
	txns, err := parser.Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, txns, 3)

	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), txns[0].Date)
	assert.Equal(t, "KFC CENTRAL WORLD", txns[0].Description)
	assert.True(t, txns[0].Amount.Equal(decimal.RequireFromString("-350.50")), "withdrawal should be negative, got %s", txns[0].Amount)
	assert.Equal(t, "THB", txns[0].Currency)

	assert.True(t, txns[1].Amount.Equal(decimal.RequireFromString("45000.00")), "deposit should be positive, got %s", txns[1].Amount)
	assert.True(t, txns[2].Amount.Equal(decimal.RequireFromString("-120.00")))
}

func TestParse_HeaderAlwaysSkipped(t *testing.T) {
	// Even a header that happens to parse as data is dropped.
	input := strings.Join([]string{
		"01/03/2024,NOT A HEADER BUT TREATED AS ONE,10.00,",
		"02/03/2024,REAL ROW,20.00,",
	}, "\n")

	parser := NewParser("THB")
	txns, err := parser.Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, "REAL ROW", txns[0].Description)
}

func TestParse_ShortRowsIgnored(t *testing.T) {
	input := strings.Join([]string{
		"Date,Description,Withdrawal,Deposit",
		"subtotal",
		"01/03/2024,ROW WITH ALL FIELDS,50.00,",
		"02/03/2024,only three fields,1.00",
	}, "\n")

	parser := NewParser("THB")
	txns, err := parser.Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, "ROW WITH ALL FIELDS", txns[0].Description)
}

func TestParse_BadDateAbortsFile(t *testing.T) {
	input := strings.Join([]string{
		"Date,Description,Withdrawal,Deposit",
		"01/03/2024,GOOD ROW,50.00,",
		"2024-03-02,ISO DATE NOT ACCEPTED,10.00,",
	}, "\n")

	parser := NewParser("THB")
	txns, err := parser.Parse(strings.NewReader(input))
	require.Error(t, err)
	assert.Nil(t, txns)
	assert.Contains(t, err.Error(), "invalid date")
}

func TestParse_BadAmountAbortsFile(t *testing.T) {
	input := strings.Join([]string{
		"Date,Description,Withdrawal,Deposit",
		"01/03/2024,GARBAGE AMOUNT,abc,",
	}, "\n")

	parser := NewParser("THB")
	_, err := parser.Parse(strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid withdrawal amount")
}

func TestParse_EmptyFile(t *testing.T) {
	parser := NewParser("THB")
	txns, err := parser.Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, txns)
}

func TestSupports(t *testing.T) {
	parser := NewParser("THB")
	assert.True(t, parser.Supports("csv"))
	assert.True(t, parser.Supports("CSV"))
	assert.False(t, parser.Supports("xlsx"))
}
