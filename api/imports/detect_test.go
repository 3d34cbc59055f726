package imports

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var debitCreditHeader = []string{"Date", "Description", "Debit", "Credit", "Balance"}

var debitCreditRows = [][]string{
	{"2024-01-02", "ACME CORPORATION INVOICE PAYMENT REFERENCE 1001 NET THIRTY TERMS", "", "1250.00", "5250.00"},
	{"2024-01-03", "OFFICE SUPPLY WAREHOUSE PURCHASE ORDER 88812 PRINTER PAPER CASES", "45.00", "", "5205.00"},
	{"2024-01-04", "PAYROLL DIRECT DEPOSIT RUN JANUARY FIRST HALF ALL EMPLOYEES BATCH", "2100.00", "", "3105.00"},
	{"2024-01-05", "ACME CORPORATION INVOICE PAYMENT REFERENCE 1002 NET THIRTY TERMS", "", "1250.00", "4355.00"},
	{"2024-01-06", "METRO UTILITY COMPANY MONTHLY ELECTRIC AND WATER SERVICE BILLING", "180.50", "", "4174.50"},
}

func TestDetectColumnsDebitCredit(t *testing.T) {
	result := DetectColumns(debitCreditHeader, debitCreditRows, 20)

	date, ok := result.Columns[FieldDate]
	require.True(t, ok, "date column should be detected")
	assert.Equal(t, "Date", date.SourceColumn)
	assert.InDelta(t, 1.0, date.Confidence, 1e-9)
	assert.Equal(t, "2006-01-02", date.Format)

	desc, ok := result.Columns[FieldDescription]
	require.True(t, ok, "description column should be detected")
	assert.Equal(t, "Description", desc.SourceColumn)
	assert.InDelta(t, 1.0, desc.Confidence, 1e-9, "long descriptions saturate confidence")

	debit, ok := result.Columns[FieldDebit]
	require.True(t, ok, "debit column should be detected")
	assert.Equal(t, "Debit", debit.SourceColumn)
	assert.InDelta(t, 0.9, debit.Confidence, 1e-9)

	credit, ok := result.Columns[FieldCredit]
	require.True(t, ok, "credit column should be detected")
	assert.Equal(t, "Credit", credit.SourceColumn)

	balance, ok := result.Columns[FieldBalance]
	require.True(t, ok, "balance column should be detected")
	assert.InDelta(t, 0.8, balance.Confidence, 1e-9)

	_, hasAmount := result.Columns[FieldAmount]
	assert.False(t, hasAmount, "no single amount column in a debit/credit file")

	// (1.0 + 1.0 + 0.9 + 0.9 + 0.8) / 5
	assert.InDelta(t, 0.92, result.DetectionConfidence, 1e-9)
	assert.False(t, result.RequiresManualInput)
	assert.Empty(t, result.UnmappedColumns)

	mapping := result.Mapping()
	assert.Empty(t, mapping.Amount)
	assert.Equal(t, "Debit", mapping.Debit)
	assert.Equal(t, "Credit", mapping.Credit)
	assert.Equal(t, "Balance", mapping.Balance)
}

func TestDetectColumnsSingleAmount(t *testing.T) {
	header := []string{"date", "details", "amount", "notes"}
	rows := [][]string{
		{"01/02/2024", "COFFEE SHOP DOWNTOWN LOCATION CARD PURCHASE", "-4.50", "ok"},
		{"01/03/2024", "CLIENT RETAINER WIRE TRANSFER RECEIVED JAN", "2500.00", "ok"},
		{"01/04/2024", "MONTHLY SOFTWARE SUBSCRIPTION AUTO RENEWAL", "-29.99", "ok"},
	}

	result := DetectColumns(header, rows, 20)

	amount, ok := result.Columns[FieldAmount]
	require.True(t, ok, "amount column should be detected")
	assert.Equal(t, "amount", amount.SourceColumn)
	assert.InDelta(t, 0.85, amount.Confidence, 1e-9)

	date, ok := result.Columns[FieldDate]
	require.True(t, ok)
	assert.Equal(t, "01/02/2006", date.Format, "first matching pattern names the layout")

	assert.Contains(t, result.UnmappedColumns, "notes", "short text column stays unmapped")

	mapping := result.Mapping()
	assert.Equal(t, "amount", mapping.Amount)
	assert.Empty(t, mapping.Debit)
	assert.Empty(t, mapping.Credit)
}

func TestDetectColumnsDeterministic(t *testing.T) {
	first := DetectColumns(debitCreditHeader, debitCreditRows, 20)
	second := DetectColumns(debitCreditHeader, debitCreditRows, 20)
	assert.Equal(t, first, second)
}

func TestDetectColumnsWeakDateColumnStillDetected(t *testing.T) {
	header := []string{"When", "Memo", "Amount"}
	rows := [][]string{
		{"2024-01-02", "VENDOR PAYMENT FOR JANUARY SERVICES", "-10.00"},
		{"2024-01-03", "MONTHLY PAYROLL TRANSFER BATCH RUN", "-20.00"},
		{"pending", "OFFICE LEASE PAYMENT DOWNTOWN UNIT", "-30.00"},
		{"2024-01-05", "CLIENT INVOICE SETTLEMENT RECEIVED", "40.00"},
		{"pending", "QUARTERLY INSURANCE PREMIUM CHARGE", "-50.00"},
	}

	result := DetectColumns(header, rows, 20)

	date, ok := result.Columns[FieldDate]
	require.True(t, ok, "a partially parseable date column is still the best candidate")
	assert.Equal(t, "When", date.SourceColumn)
	assert.InDelta(t, 0.6, date.Confidence, 1e-9)
	assert.True(t, result.RequiresManualInput, "the weak match drags overall confidence below the threshold")
}

func TestDetectColumnsDescriptionWithAtypicalFirstValue(t *testing.T) {
	header := []string{"Date", "Memo", "Amount"}
	rows := [][]string{
		{"2024-01-02", "1500.00", "-10.00"},
		{"2024-01-03", "LONG VENDOR PAYMENT DESCRIPTION TEXT", "-20.00"},
		{"2024-01-04", "ANOTHER LONG VENDOR DESCRIPTION LINE", "-30.00"},
	}

	result := DetectColumns(header, rows, 20)

	desc, ok := result.Columns[FieldDescription]
	require.True(t, ok, "mean length decides, not the first sampled value")
	assert.Equal(t, "Memo", desc.SourceColumn)
}

func TestDetectColumnsNothingDetectable(t *testing.T) {
	header := []string{"a", "b"}
	rows := [][]string{{"x", "y"}, {"z", "w"}}

	result := DetectColumns(header, rows, 20)

	assert.Empty(t, result.Columns)
	assert.Equal(t, 0.0, result.DetectionConfidence)
	assert.True(t, result.RequiresManualInput)
	assert.ElementsMatch(t, []string{"a", "b"}, result.UnmappedColumns)
}
