package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodePrecondition      = "PRECONDITION_FAILED"
	ErrCodeDimensionMismatch = "DIMENSION_MISMATCH"
	ErrCodeGateway           = "GATEWAY_ERROR"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeInternalError     = "INTERNAL_ERROR"
)

// Precondition errors: caught before any index or model call is issued.
var (
	ErrMissingEmbedder = NewDomainError(ErrCodePrecondition, "vector search requested without an embedder")
	ErrMixedDimensions = NewDomainError(ErrCodePrecondition, "knowledgebases use different embedding dimensions")
)

// Not found errors
var (
	ErrKnowledgebaseNotFound = NewDomainError(ErrCodeNotFound, "knowledgebase not found")
	ErrTenantNotFound        = NewDomainError(ErrCodeNotFound, "tenant not found")
	ErrAPIKeyNotFound        = NewDomainError(ErrCodeNotFound, "api key not found")
	ErrAdminTenantNotFound   = NewDomainError(ErrCodeNotFound, "no administrative tenant configured")
)

// Authorization errors
var (
	ErrAPIKeyRevoked = NewDomainError(ErrCodeUnauthorized, "api key has been revoked")
	ErrInvalidAPIKey = NewDomainError(ErrCodeUnauthorized, "invalid api key")
)

// NewDimensionMismatch builds the fatal error raised when a query vector and
// a candidate embedding disagree on dimension. The request is aborted; the
// engine never truncates either side.
func NewDimensionMismatch(want, got int) *DomainError {
	return NewDomainError(ErrCodeDimensionMismatch,
		fmt.Sprintf("embedding dimension mismatch: query %d vs candidate %d", want, got))
}

// NewGatewayError wraps an index backend failure with the query that caused
// it, so upstream self-correction loops can see both.
func NewGatewayError(query string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeGateway, fmt.Sprintf("index query failed: %s", query), err)
}
