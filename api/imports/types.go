package imports

import (
	"encoding/json"
	"time"
)

// Import lifecycle states. failed is reachable from any non-terminal state.
const (
	StatusPending      = "pending"
	StatusProcessing   = "processing"
	StatusPreviewReady = "preview_ready"
	StatusConfirmed    = "confirmed"
	StatusFailed       = "failed"
)

// Canonical field names used by detection and mapping.
const (
	FieldDate        = "date"
	FieldDescription = "description"
	FieldAmount      = "amount"
	FieldDebit       = "debit"
	FieldCredit      = "credit"
	FieldBalance     = "balance"
)

// ColumnMapping names the source column backing each canonical field.
// Either Amount is set, or Debit and Credit are both set; when a file
// carries both schemes the single amount column wins.
type ColumnMapping struct {
	Date        string `json:"date,omitempty"`
	Description string `json:"description,omitempty"`
	Amount      string `json:"amount,omitempty"`
	Debit       string `json:"debit,omitempty"`
	Credit      string `json:"credit,omitempty"`
	Balance     string `json:"balance,omitempty"`
}

// FieldDetection is the per-field outcome of column detection.
type FieldDetection struct {
	SourceColumn string  `json:"source_column"`
	Confidence   float64 `json:"confidence"`
	Format       string  `json:"format,omitempty"` // date field only
}

// DetectionResult is immutable once computed for a given file.
type DetectionResult struct {
	Columns             map[string]FieldDetection `json:"columns"`
	UnmappedColumns     []string                  `json:"unmapped_columns"`
	DetectionConfidence float64                   `json:"detection_confidence"`
	RequiresManualInput bool                      `json:"requires_manual_input"`
}

// Mapping derives the column mapping from the detected fields. Amount takes
// precedence over a debit/credit pair when both schemes were detected.
func (d DetectionResult) Mapping() ColumnMapping {
	m := ColumnMapping{}
	if f, ok := d.Columns[FieldDate]; ok {
		m.Date = f.SourceColumn
	}
	if f, ok := d.Columns[FieldDescription]; ok {
		m.Description = f.SourceColumn
	}
	if f, ok := d.Columns[FieldAmount]; ok {
		m.Amount = f.SourceColumn
	} else {
		if f, ok := d.Columns[FieldDebit]; ok {
			m.Debit = f.SourceColumn
		}
		if f, ok := d.Columns[FieldCredit]; ok {
			m.Credit = f.SourceColumn
		}
	}
	if f, ok := d.Columns[FieldBalance]; ok {
		m.Balance = f.SourceColumn
	}
	return m
}

// DateFormat returns the detected date layout, empty when no date column
// was found.
func (d DetectionResult) DateFormat() string {
	if f, ok := d.Columns[FieldDate]; ok {
		return f.Format
	}
	return ""
}

// CanonicalTransaction is the normalized record independent of the source
// CSV layout. Positive amounts are inflows, negative are outflows.
type CanonicalTransaction struct {
	TransactionDate       time.Time `json:"transaction_date"`
	Amount                float64   `json:"amount"`
	Description           string    `json:"description"`
	NormalizedDescription string    `json:"normalized_description"`
	Balance               *float64  `json:"balance,omitempty"`
	RowNumber             int       `json:"row_number"`
}

// RowError records why a source row was rejected during normalization.
type RowError struct {
	RowNumber int      `json:"row_number"`
	Errors    []string `json:"errors"`
}

// ImportRecord mirrors one row of the imports table.
type ImportRecord struct {
	ID                  string          `json:"id"`
	OwnerID             string          `json:"owner_id"`
	Filename            string          `json:"filename"`
	FileSize            int64           `json:"file_size"`
	Status              string          `json:"status"`
	ColumnMapping       *ColumnMapping  `json:"column_mapping,omitempty"`
	DetectedColumns     json.RawMessage `json:"detected_columns,omitempty"`
	DetectionConfidence *float64        `json:"detection_confidence,omitempty"`
	TotalRows           int             `json:"total_rows"`
	ProcessedRows       int             `json:"processed_rows"`
	DuplicateRows       int             `json:"duplicate_rows"`
	ErrorRows           int             `json:"error_rows"`
	ErrorMessage        *string         `json:"error_message,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}
