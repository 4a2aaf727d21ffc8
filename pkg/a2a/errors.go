package a2a

import "fmt"

// JSON-RPC 2.0 error codes binding on every agent. Codes in the application
// range are agent-defined and surfaced to callers untouched.
const (
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	// Application error range, inclusive.
	CodeApplicationMin = -32099
	CodeApplicationMax = -32000
)

// Error is a JSON-RPC error object. It implements the error interface so
// agent dispatchers can return it directly.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// NewError creates an Error with the given code and message.
func NewError(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewMethodNotFound creates the standard error for an unknown method.
func NewMethodNotFound(method string) *Error {
	return &Error{Code: CodeMethodNotFound, Message: fmt.Sprintf("method not found: %s", method)}
}

// NewInvalidParams creates the standard error for malformed params.
func NewInvalidParams(detail string) *Error {
	return &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid params: %s", detail)}
}

// NewApplicationError creates an error in the agent-defined range. Codes
// outside the range are clamped to CodeApplicationMax.
func NewApplicationError(code int, message string) *Error {
	if code < CodeApplicationMin || code > CodeApplicationMax {
		code = CodeApplicationMax
	}
	return &Error{Code: code, Message: message}
}
