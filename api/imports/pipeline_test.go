package imports

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessRowsPartitionsEveryRow(t *testing.T) {
	header := []string{"Date", "Description", "Amount"}
	mapping := ColumnMapping{Date: "Date", Description: "Description", Amount: "Amount"}
	rows := [][]string{
		{"2024-01-02", "RENT PAYMENT JANUARY", "-2000.00"},
		{"2024-01-03", "ALREADY IMPORTED ROW", "100.00"},
		{"not a date", "BROKEN ROW", "10.00"},
		{"2024-01-05", "CUSTOMER INVOICE 44", "850.00"},
	}

	var inserted []CanonicalTransaction
	counts, err := processRows(header, rows, mapping, "2006-01-02",
		func(txn CanonicalTransaction) (bool, error) {
			return txn.NormalizedDescription == "already imported row", nil
		},
		func(txn CanonicalTransaction) error {
			inserted = append(inserted, txn)
			return nil
		},
	)

	require.NoError(t, err)
	assert.Equal(t, 2, counts.Processed)
	assert.Equal(t, 1, counts.Duplicates)
	assert.Equal(t, 1, counts.Errors)
	assert.Equal(t, len(rows), counts.Processed+counts.Duplicates+counts.Errors)
	assert.Len(t, inserted, 2)
	assert.Equal(t, "rent payment january", inserted[0].NormalizedDescription)
}

func TestProcessRowsStopsOnInsertFailure(t *testing.T) {
	header := []string{"Date", "Description", "Amount"}
	mapping := ColumnMapping{Date: "Date", Description: "Description", Amount: "Amount"}
	rows := [][]string{
		{"2024-01-02", "FIRST ROW FINE", "10.00"},
		{"2024-01-03", "SECOND ROW BLOWS UP", "20.00"},
		{"2024-01-04", "NEVER REACHED", "30.00"},
	}

	boom := errors.New("connection reset")
	calls := 0
	counts, err := processRows(header, rows, mapping, "2006-01-02",
		func(CanonicalTransaction) (bool, error) { return false, nil },
		func(CanonicalTransaction) error {
			calls++
			if calls == 2 {
				return boom
			}
			return nil
		},
	)

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, counts.Processed, "rows before the failure keep their counts")
	assert.Equal(t, 2, calls, "processing stops at the failing row")
}

func TestProcessRowsDuplicateCheckFailure(t *testing.T) {
	header := []string{"Date", "Description", "Amount"}
	mapping := ColumnMapping{Date: "Date", Description: "Description", Amount: "Amount"}
	rows := [][]string{{"2024-01-02", "ONLY ROW", "10.00"}}

	boom := errors.New("query timeout")
	_, err := processRows(header, rows, mapping, "2006-01-02",
		func(CanonicalTransaction) (bool, error) { return false, boom },
		func(CanonicalTransaction) error { return nil },
	)
	assert.ErrorIs(t, err, boom)
}
