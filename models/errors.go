package models

import "fmt"

// Render error codes.
const (
	ErrCodeTimeout      = "RENDER_TIMEOUT"
	ErrCodeNavigation   = "NAVIGATION_FAILED"
	ErrCodeBrowserCrash = "BROWSER_CRASH"
	ErrCodeOverloaded   = "OVERLOADED"
)

// RenderError reports that a page could not be rendered: the browser could
// not be acquired or launched, navigation failed, or the deadline passed.
// It supports error wrapping via Unwrap.
type RenderError struct {
	Code    string
	URL     string
	Message string
	Err     error // wrapped original error
}

func (e *RenderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// NewRenderError creates a new RenderError.
func NewRenderError(code, targetURL, message string, err error) *RenderError {
	return &RenderError{Code: code, URL: targetURL, Message: message, Err: err}
}

// ValidationError reports a missing or malformed request parameter.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
