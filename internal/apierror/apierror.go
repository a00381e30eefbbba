package apierror

// APIError is the uniform error envelope returned by all endpoints.
type APIError struct {
	Message string            `json:"error"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

func New(message string) *APIError {
	return &APIError{Message: message}
}

// NewValidation builds an error carrying per-field validation messages.
func NewValidation(fields map[string]string) *APIError {
	return &APIError{Message: "validation failed", Fields: fields}
}
