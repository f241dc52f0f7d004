package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrValidation          = NewDomainError("VALIDATION_ERROR", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState        = NewDomainError("INVALID_STATE_TRANSITION", "Operation not allowed in current state")
	ErrOverReceipt         = NewDomainError("OVER_RECEIPT", "Received quantity would exceed ordered quantity")
	ErrInvalidLocation     = NewDomainError("INVALID_LOCATION", "Exactly one of warehouse or shop must be set")
)

// IsDomainError returns the DomainError if err is one, nil otherwise
func IsDomainError(err error) *DomainError {
	if de, ok := err.(*DomainError); ok {
		return de
	}
	return nil
}
