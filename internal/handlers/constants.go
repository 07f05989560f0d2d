package handlers

// Common error message constants shared across handlers
const (
	ErrMsgInvalidRequestBody = "Invalid request body"
	ErrMsgInvalidReportID    = "Invalid report ID"
	ErrMsgUnauthorized       = "Unauthorized"
)
