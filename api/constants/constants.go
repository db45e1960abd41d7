package constants

// Content Types
const (
	ContentTypeJSON = "application/json"
	ContentTypeText = "Content-Type"
)

// Form fields
const (
	FormFieldFile = "file"
)
