package imports

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinSightSaas/api/constants"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{"1234.56", 1234.56, true},
		{"$1,234.56", 1234.56, true},
		{"-45.00", -45.00, true},
		{"(123.45)", -123.45, true},
		{"45.00-", -45.00, true},
		{"$ is not a number", 0, false},
		{"abc", 0, false},
		{"", 0, false},
		{"   ", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseAmount(tt.raw)
		assert.Equal(t, tt.ok, ok, "ParseAmount(%q) ok", tt.raw)
		if tt.ok {
			assert.InDelta(t, tt.want, got, 1e-9, "ParseAmount(%q)", tt.raw)
		}
	}
}

func TestCombineDebitCredit(t *testing.T) {
	got, ok := CombineDebitCredit("45.00", "")
	require.True(t, ok)
	assert.InDelta(t, -45.00, got, 1e-9, "debit comes out negative")

	got, ok = CombineDebitCredit("", "1250.00")
	require.True(t, ok)
	assert.InDelta(t, 1250.00, got, 1e-9, "credit comes out positive")

	got, ok = CombineDebitCredit("100.00", "30.00")
	require.True(t, ok)
	assert.InDelta(t, -70.00, got, 1e-9)

	_, ok = CombineDebitCredit("", "")
	assert.False(t, ok, "both cells empty means no amount")

	_, ok = CombineDebitCredit("junk", "")
	assert.False(t, ok, "unparseable non-empty cell rejects the pair")
}

func TestParseDate(t *testing.T) {
	got, ok := ParseDate("2024-01-15", "2006-01-02")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), got)

	// Value that fails the supplied layout still parses via the fallbacks.
	got, ok = ParseDate("31/01/2024", "01/02/2006")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), got)

	_, ok = ParseDate("not a date", "2006-01-02")
	assert.False(t, ok)

	_, ok = ParseDate("", "")
	assert.False(t, ok)
}

func TestNormalizeDescription(t *testing.T) {
	assert.Equal(t, "COFFEE SHOP", NormalizeDescription("  COFFEE   SHOP  "))
	assert.Equal(t, "a b c", NormalizeDescription("a\tb\n c"))
	assert.Equal(t, "", NormalizeDescription("   "))
}

func TestNormalizeRowDebitCredit(t *testing.T) {
	header := []string{"Date", "Description", "Debit", "Credit"}
	mapping := ColumnMapping{Date: "Date", Description: "Description", Debit: "Debit", Credit: "Credit"}

	txn, errs := NormalizeRow(header, []string{"2024-01-03", "  OFFICE   SUPPLIES ", "45.00", ""}, mapping, "2006-01-02", 1)
	require.Empty(t, errs)
	assert.InDelta(t, -45.00, txn.Amount, 1e-9)
	assert.Equal(t, "OFFICE SUPPLIES", txn.Description)
	assert.Equal(t, "office supplies", txn.NormalizedDescription)
	assert.Nil(t, txn.Balance)

	txn, errs = NormalizeRow(header, []string{"2024-01-05", "CLIENT PAYMENT", "", "1250.00"}, mapping, "2006-01-02", 2)
	require.Empty(t, errs)
	assert.InDelta(t, 1250.00, txn.Amount, 1e-9)
}

func TestNormalizeRowCollectsAllErrors(t *testing.T) {
	header := []string{"Date", "Description", "Amount"}
	mapping := ColumnMapping{Date: "Date", Description: "Description", Amount: "Amount"}

	_, errs := NormalizeRow(header, []string{"bogus", "", "not a number"}, mapping, "2006-01-02", 7)
	assert.Contains(t, errs, constants.ErrRowInvalidDate)
	assert.Contains(t, errs, constants.ErrRowInvalidAmount)
	assert.Contains(t, errs, constants.ErrRowNoDescription)
}

func TestNormalizeRowsPartitionsInput(t *testing.T) {
	header := []string{"Date", "Description", "Amount"}
	mapping := ColumnMapping{Date: "Date", Description: "Description", Amount: "Amount"}
	rows := [][]string{
		{"2024-01-02", "RENT PAYMENT FOR JANUARY", "-2000.00"},
		{"garbage", "BROKEN ROW", "10.00"},
		{"2024-01-04", "CUSTOMER INVOICE 44", "850.00"},
		{"2024-01-05", "", "5.00"},
	}

	txns, rowErrs := NormalizeRows(header, rows, mapping, "2006-01-02")

	assert.Len(t, txns, 2)
	assert.Len(t, rowErrs, 2)
	assert.Equal(t, len(rows), len(txns)+len(rowErrs), "every row lands in exactly one bucket")

	// Row numbers are 1-based over data rows.
	assert.Equal(t, 2, rowErrs[0].RowNumber)
	assert.Equal(t, 4, rowErrs[1].RowNumber)
	assert.Equal(t, 1, txns[0].RowNumber)
	assert.Equal(t, 3, txns[1].RowNumber)
}
