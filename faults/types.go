package faults

import "errors"

type ErrorCategory string

const (
	ValidationError ErrorCategory = "ValidationError"
	NotFoundError   ErrorCategory = "NotFoundError"
	ConflictError   ErrorCategory = "ConflictError"
	AuthError       ErrorCategory = "AuthError"
	TransportError  ErrorCategory = "TransportError"
	// ContractError marks structural misuse of the engine: a required link
	// relation is missing, an attribute is registered both as singleton and
	// collection, or an untracked resource is synchronised.
	ContractError ErrorCategory = "ContractError"
	InternalError ErrorCategory = "InternalError"
)

// MissingInterfaceMessage is reported when a resource lacks the link relation
// an operation needs.
const MissingInterfaceMessage = "The resource doesn't support the required interface"

type TypedError struct {
	Category ErrorCategory
	Message  string
	Cause    error
}

func (e *TypedError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Message != "" && e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return string(e.Category)
}

func (e *TypedError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func NewTypedError(category ErrorCategory, message string, cause error) *TypedError {
	return &TypedError{
		Category: category,
		Message:  message,
		Cause:    cause,
	}
}

func IsCategory(err error, category ErrorCategory) bool {
	if err == nil {
		return false
	}

	var typedErr *TypedError
	if !errors.As(err, &typedErr) {
		return false
	}
	return typedErr.Category == category
}

// CategoryOf returns the category of the first typed error in the chain.
func CategoryOf(err error) (ErrorCategory, bool) {
	var typedErr *TypedError
	if !errors.As(err, &typedErr) {
		return "", false
	}
	return typedErr.Category, true
}

// IsFatal reports whether err belongs to the structural class that must abort
// a synchronisation tree instead of degrading to best-effort state.
func IsFatal(err error) bool {
	return IsCategory(err, ContractError) || IsCategory(err, InternalError)
}

func Contract(message string) *TypedError {
	return NewTypedError(ContractError, message, nil)
}

func MissingInterface(rel string) *TypedError {
	if rel == "" {
		return NewTypedError(ContractError, MissingInterfaceMessage, nil)
	}
	return NewTypedError(ContractError, MissingInterfaceMessage+" ("+rel+")", nil)
}
