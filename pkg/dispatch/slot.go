package dispatch

import (
	"net/http"

	"github.com/serverlessresearch/gcrest/pkg/auth"
	"github.com/serverlessresearch/gcrest/pkg/request"
)

// SlotOptions size and type the slot requested from a transport.
type SlotOptions struct {
	Upload   bool
	Download bool
	OTA      bool
	Async    bool
	Token    auth.Token
}

// SlotRequest is the request half of a slot, filled in by the dispatcher
// and the transport's bind calls.
type SlotRequest struct {
	Host   string
	Path   string
	Query  string
	Method request.Method
	Token  auth.Token

	Payload       string
	File          request.File
	ContentType   string
	ContentLength int64
	Base64        bool
	OTA           bool
}

// Response is what a transport hands back when a slot completes.
type Response struct {
	Status int
	Header http.Header
	Body   string
}

// Slot is one unit of in-flight state inside a transport. Transports create
// slots with NewSlot and report progress and completion through its methods;
// the dispatcher owns the binding between slot, result and task.
type Slot struct {
	ID      uint64
	Options SlotOptions
	Request SlotRequest

	// Set by the dispatcher for file-backed and OTA operations.
	Upload   bool
	Download bool

	result *Result
	task   *Task
	done   bool
}

func NewSlot(id uint64, opts SlotOptions) *Slot {
	return &Slot{ID: id, Options: opts, Request: SlotRequest{Base64: true}}
}

// Result returns the result bound to this slot, or nil before binding.
func (s *Slot) Result() *Result {
	return s.result
}

// Done reports whether the slot reached a terminal state and can be reaped.
func (s *Slot) Done() bool {
	return s.done
}

func (s *Slot) ReportDownload(done, total int64) {
	if s.result == nil {
		return
	}
	s.result.Download.Done = done
	s.result.Download.Total = total
}

func (s *Slot) ReportUpload(done, total int64) {
	if s.result == nil {
		return
	}
	s.result.Upload.Done = done
	s.result.Upload.Total = total
}

// Finish records the response and settles the owning task. err is nil on
// success. Only the first call has any effect.
func (s *Slot) Finish(resp Response, err *Error) {
	if s.done {
		return
	}
	s.done = true

	if r := s.result; r != nil {
		r.Status = resp.Status
		r.Header = resp.Header
		r.Payload = resp.Body
		if err != nil {
			r.setError(err)
		} else {
			r.Available = true
		}
	}

	if s.task != nil {
		state := StateCompleted
		if err != nil {
			state = StateFailed
		}
		s.task.settle(state, err)
	}
}

// Cancel settles the slot as cancelled, e.g. on transport shutdown.
func (s *Slot) Cancel() {
	if s.done {
		return
	}
	s.done = true

	err := operationCancelled("cancelled by transport")
	if s.result != nil {
		s.result.setError(err)
	}
	if s.task != nil {
		s.task.settle(StateCancelled, err)
	}
}

// release marks a slot the dispatcher gave up on before sending, so the
// transport reaps it without running it.
func (s *Slot) release() {
	s.done = true
	s.task = nil
}

// Transport is the capacity-bounded client the dispatcher drives. All calls
// happen on the dispatcher's goroutine.
type Transport interface {
	// AcquireSlot returns false when the pool is exhausted or closed.
	AcquireSlot(opts SlotOptions) (*Slot, bool)
	BindRequest(s *Slot, host, path, query string, method request.Method, opts SlotOptions)
	SetFileContentLength(s *Slot) error
	SetContentType(s *Slot, mime string)
	SetContentLength(s *Slot, n int64)
	// Pump advances live slots. With advance false it only collects
	// outcomes of exchanges already started.
	Pump(advance bool)
	ReapCompleted()
}

// TokenSource yields the token registered for an application handle.
type TokenSource interface {
	Token(app auth.App) (auth.Token, bool)
}
