package imports

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"FinSightSaas/api/constants"
)

// dateLayouts is the fallback order tried when the detected layout fails.
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"01-02-2006",
	"02/01/2006",
	"02-01-2006",
}

// ParseAmount converts a raw cell into a signed float. It strips currency
// symbols and thousands separators, honors parenthesized and trailing-minus
// negatives, and never fails with anything but ok=false.
func ParseAmount(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")

	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = s[1 : len(s)-1]
		neg = true
	}
	if strings.HasSuffix(s, "-") {
		s = "-" + s[:len(s)-1]
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	if neg {
		d = d.Neg()
	}
	f, _ := d.Float64()
	return f, true
}

// CombineDebitCredit folds a debit/credit column pair into a single signed
// amount: credit minus debit, so deposits come out positive. Both cells
// empty means the row has no amount at all.
func CombineDebitCredit(debit, credit string) (float64, bool) {
	debit = strings.TrimSpace(debit)
	credit = strings.TrimSpace(credit)
	if debit == "" && credit == "" {
		return 0, false
	}
	d := decimal.Zero
	c := decimal.Zero
	if debit != "" {
		v, ok := ParseAmount(debit)
		if !ok {
			return 0, false
		}
		d = decimal.NewFromFloat(v)
	}
	if credit != "" {
		v, ok := ParseAmount(credit)
		if !ok {
			return 0, false
		}
		c = decimal.NewFromFloat(v)
	}
	f, _ := c.Sub(d).Float64()
	return f, true
}

// ParseDate tries the caller-supplied layout first, then each fixed layout
// in order. Total: garbage returns ok=false, never an error.
func ParseDate(raw, layout string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	if layout != "" {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// NormalizeDescription collapses runs of whitespace. The lowercase variant
// used for duplicate keys is derived separately.
func NormalizeDescription(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

// cellFor returns the raw cell backing a canonical field, empty when the
// mapping has no source column or the row is short.
func cellFor(header []string, row []string, source string) string {
	if source == "" {
		return ""
	}
	for i, name := range header {
		if name == source {
			if i < len(row) {
				return row[i]
			}
			return ""
		}
	}
	return ""
}

// NormalizeRow converts one raw row into a canonical transaction. The
// returned error strings are user-facing and a non-empty list means the
// row is rejected.
func NormalizeRow(header []string, row []string, mapping ColumnMapping, dateLayout string, rowNumber int) (CanonicalTransaction, []string) {
	var errs []string

	txnDate, dateOK := ParseDate(cellFor(header, row, mapping.Date), dateLayout)
	if !dateOK {
		errs = append(errs, constants.ErrRowInvalidDate)
	}

	var amount float64
	var amountOK bool
	if mapping.Amount != "" {
		amount, amountOK = ParseAmount(cellFor(header, row, mapping.Amount))
	} else if mapping.Debit != "" || mapping.Credit != "" {
		amount, amountOK = CombineDebitCredit(
			cellFor(header, row, mapping.Debit),
			cellFor(header, row, mapping.Credit),
		)
	}
	if !amountOK {
		errs = append(errs, constants.ErrRowInvalidAmount)
	}

	desc := NormalizeDescription(cellFor(header, row, mapping.Description))
	if desc == "" {
		errs = append(errs, constants.ErrRowNoDescription)
	}

	if len(errs) > 0 {
		return CanonicalTransaction{RowNumber: rowNumber}, errs
	}

	txn := CanonicalTransaction{
		TransactionDate:       txnDate,
		Amount:                amount,
		Description:           desc,
		NormalizedDescription: strings.ToLower(desc),
		RowNumber:             rowNumber,
	}
	if b, ok := ParseAmount(cellFor(header, row, mapping.Balance)); ok {
		txn.Balance = &b
	}
	return txn, nil
}

// NormalizeRows applies NormalizeRow over a full row set. Rejected rows are
// excluded from the canonical output and reported in the error list; the
// two slices always partition the input.
func NormalizeRows(header []string, rows [][]string, mapping ColumnMapping, dateLayout string) ([]CanonicalTransaction, []RowError) {
	txns := make([]CanonicalTransaction, 0, len(rows))
	var rowErrs []RowError
	for i, row := range rows {
		// Row numbers are 1-based over data rows, header excluded.
		txn, errs := NormalizeRow(header, row, mapping, dateLayout, i+1)
		if len(errs) > 0 {
			rowErrs = append(rowErrs, RowError{RowNumber: i + 1, Errors: errs})
			continue
		}
		txns = append(txns, txn)
	}
	return txns, rowErrs
}
