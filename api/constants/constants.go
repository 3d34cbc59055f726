package constants

// Common error messages
const (
	ErrInvalidJSON        = "invalid json or missing fields"
	ErrOwnerIDRequired    = "owner_id required"
	ErrDB                 = "DB error"
	ErrInvalidRequestBody = "Invalid request body"
	ErrMethodNotAllowed   = "Method Not Allowed"
	ErrImportNotFound     = "Import not found"
	ErrAlertNotFound      = "Alert not found or not active"
	ErrNotPreviewReady    = "Import is not ready for confirmation"
	ErrOnlyCSV            = "Only CSV files are supported"
	ErrFileTooLarge       = "File too large. Maximum size is 10MB"
)

// Row-level validation messages emitted by the normalizer
const (
	ErrRowInvalidDate   = "Invalid or missing date"
	ErrRowInvalidAmount = "Invalid or missing amount"
	ErrRowNoDescription = "Missing description"
)

// Content Types
const (
	ContentTypeJSON = "application/json"
	ContentTypeText = "Content-Type"
)

// Date formats
const (
	DateTimeFormat = "2006-01-02 15:04:05"
	DateFormat     = "2006-01-02"
)
