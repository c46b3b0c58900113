package errors

// Error represents an API error
// @Description Standardized API error response
type Error struct {
	Message string `json:"message" example:"Document not found"`
	Error   int    `json:"error" example:"404"`
	Code    string `json:"code,omitempty" example:"DOCUMENT_NOT_FOUND"`
}
