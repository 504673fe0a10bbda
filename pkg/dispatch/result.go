package dispatch

import "net/http"

// Progress tracks bytes moved for file-backed operations.
type Progress struct {
	Total int64
	Done  int64
	// OTA is set on download progress for firmware operations.
	OTA bool
}

// Result is the outcome of one operation. When the caller supplies it with
// WithResult the transport updates it in place as the operation advances.
type Result struct {
	UID string

	Status  int
	Header  http.Header
	Payload string

	// Available is set once a successful response has been recorded.
	Available bool

	ErrorAvailable bool
	LastError      *Error

	Download Progress
	Upload   Progress
}

// OK reports whether no error has been recorded.
func (r *Result) OK() bool {
	return r.LastError == nil
}

// Err returns the recorded error, or nil.
func (r *Result) Err() error {
	if r.LastError == nil {
		return nil
	}
	return r.LastError
}

func (r *Result) setError(err *Error) {
	r.ErrorAvailable = true
	r.LastError = err
}
