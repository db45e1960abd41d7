package constants

// ============================================================================
// REQUEST ERRORS
// ============================================================================

const (
	ErrMethodNotAllowed = "Method Not Allowed"
	ErrInvalidJSON      = "Invalid JSON"
	ErrNoFileUploaded   = "No file uploaded. Send the workbook in the 'file' form field"
	ErrFileTooLarge     = "Uploaded file is too large"
	ErrDealsNotArray    = "deals must be an array"
	ErrAssignNotArray   = "account_assignments must be an array"
	ErrChangesNotArray  = "changes must be an array"
)

// ============================================================================
// PIPELINE ERRORS
// ============================================================================

const (
	ErrParseFailed   = "Failed to parse Excel file"
	ErrPreviewFailed = "Failed to load existing deals for preview"
	ErrApplyPanicked = "Apply failed unexpectedly"
	ErrHistoryFailed = "Failed to load apply history"
)

// ============================================================================
// GATEWAY ERRORS
// ============================================================================

const (
	ErrBadProxyTarget = "Bad target URL"
	ErrRouteNotFound  = "404 - Route not found"
)
