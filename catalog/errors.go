package catalog

import (
	"errors"
	"fmt"
)

// Error codes carried by ActionError.
const (
	CodeNotFound    = "NOT_FOUND"
	CodeValidation  = "VALIDATION_ERROR"
	CodeExecution   = "EXECUTION_ERROR"
	CodeForbidden   = "FORBIDDEN"
	CodeUnavailable = "UNAVAILABLE"
	CodeTimeout     = "TIMEOUT"
)

var (
	// ErrSealed is returned by Register once the catalog has been sealed.
	ErrSealed = errors.New("catalog is sealed")
	// ErrInvalidAction is returned for actions failing the presence checks.
	ErrInvalidAction = errors.New("invalid action")
)

// ActionError represents errors that occur while resolving, validating or
// executing an action.
type ActionError struct {
	Action  string `json:"action"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e *ActionError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("action error [%s] in %s: %s", e.Code, e.Action, e.Message)
	}
	return fmt.Sprintf("action error in %s: %s", e.Action, e.Message)
}

// NewActionError creates a new ActionError with the specified details.
func NewActionError(action, message, code string) *ActionError {
	return &ActionError{
		Action:  action,
		Message: message,
		Code:    code,
	}
}

// CodeOf extracts the ActionError code from err, or "" when err is not one.
func CodeOf(err error) string {
	var ae *ActionError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}
