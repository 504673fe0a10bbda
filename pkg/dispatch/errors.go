package dispatch

import "fmt"

type ErrorKind int

const (
	KindNone ErrorKind = iota
	// No token is registered for the application handle.
	KindAppNotAssigned
	// No slot could be obtained, or the transport cancelled the slot.
	KindOperationCancelled
	// Transport-level failure: connection, file I/O, missing sink.
	KindClientError
	// Non-2xx response, carried opaquely.
	KindServerError
	// The caller used an API in a way it does not support.
	KindStructuralMisuse
)

func (k ErrorKind) String() string {
	switch k {
	case KindAppNotAssigned:
		return "app not assigned"
	case KindOperationCancelled:
		return "operation cancelled"
	case KindClientError:
		return "client error"
	case KindServerError:
		return "server error"
	case KindStructuralMisuse:
		return "structural misuse"
	}
	return "none"
}

const (
	CodeAppNotAssigned     = -117
	CodeOperationCancelled = -118
	CodeStructuralMisuse   = -119

	CodeConnection = -1
	CodeFileIO     = -2
	CodeNoFirmware = -3
)

// Error is the single error type reported through results and tasks.
type Error struct {
	Kind    ErrorKind
	Code    int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s (%d)", e.Kind, e.Code)
	}
	return fmt.Sprintf("%s (%d): %s", e.Kind, e.Code, e.Message)
}

// Is matches any *Error of the same kind, so errors.Is(err,
// ErrServerError) holds for every server error regardless of status.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrAppNotAssigned     = &Error{Kind: KindAppNotAssigned, Code: CodeAppNotAssigned, Message: "app was not assigned"}
	ErrOperationCancelled = &Error{Kind: KindOperationCancelled, Code: CodeOperationCancelled, Message: "operation was cancelled"}
	ErrClientError        = &Error{Kind: KindClientError}
	ErrServerError        = &Error{Kind: KindServerError}
	ErrStructuralMisuse   = &Error{Kind: KindStructuralMisuse, Code: CodeStructuralMisuse}
)

func ClientError(code int, msg string) *Error {
	return &Error{Kind: KindClientError, Code: code, Message: msg}
}

// ServerError carries the HTTP status and the raw response body.
func ServerError(status int, body string) *Error {
	return &Error{Kind: KindServerError, Code: status, Message: body}
}

func StructuralMisuse(msg string) *Error {
	return &Error{Kind: KindStructuralMisuse, Code: CodeStructuralMisuse, Message: msg}
}

func appNotAssigned() *Error {
	e := *ErrAppNotAssigned
	return &e
}

func operationCancelled(msg string) *Error {
	return &Error{Kind: KindOperationCancelled, Code: CodeOperationCancelled, Message: msg}
}
