package printing

import "fmt"

// Render failure codes
const (
	ErrCodeInvalidInput   = "INVALID_INPUT"
	ErrCodeRenderFailed   = "RENDER_FAILED"
	ErrCodeWorkbookFailed = "WORKBOOK_FAILED"
)

// RenderError is returned when an invoice PDF or overdue workbook cannot be produced.
type RenderError struct {
	Code    string
	Message string
	Cause   error
}

func NewRenderError(code, message string, cause error) *RenderError {
	return &RenderError{Code: code, Message: message, Cause: cause}
}

func (e *RenderError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *RenderError) Unwrap() error { return e.Cause }
