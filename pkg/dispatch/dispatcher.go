// Asynchronous request dispatch.
//
// The Dispatcher turns a request.Descriptor into exactly one slot on a
// shared Transport and reports the outcome through a Task. Everything runs
// on one cooperative loop: Dispatch schedules, Loop (or Task.Await) pumps
// the transport, and the transport settles slots from inside Pump. Neither
// the Dispatcher nor its Tasks are safe for concurrent use.
package dispatch

import (
	"time"

	"github.com/google/uuid"
	"github.com/serverlessresearch/gcrest/pkg/auth"
	"github.com/serverlessresearch/gcrest/pkg/request"
	"github.com/sirupsen/logrus"
)

const defaultPumpInterval = 5 * time.Millisecond

type Dispatcher struct {
	transport    Transport
	tokens       TokenSource
	log          logrus.FieldLogger
	pumpInterval time.Duration

	live map[*Task]struct{}
}

type Option func(*Dispatcher)

func WithLogger(log logrus.FieldLogger) Option {
	return func(d *Dispatcher) {
		d.log = log
	}
}

// WithPumpInterval sets how long Task.Await sleeps between loop ticks.
func WithPumpInterval(interval time.Duration) Option {
	return func(d *Dispatcher) {
		if interval > 0 {
			d.pumpInterval = interval
		}
	}
}

func New(transport Transport, tokens TokenSource, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		transport:    transport,
		tokens:       tokens,
		pumpInterval: defaultPumpInterval,
		live:         make(map[*Task]struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.log == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		d.log = l
	}
	d.log = d.log.WithField("module", "dispatch")
	return d
}

type callOptions struct {
	uid      string
	result   *Result
	callback func(*Result)
	async    *bool
}

// CallOption selects how a single Dispatch reports its outcome.
type CallOption func(*callOptions)

// WithUID sets the correlation id copied into the result. A random uuid is
// used otherwise.
func WithUID(uid string) CallOption {
	return func(c *callOptions) {
		c.uid = uid
	}
}

// WithResult binds a caller-owned result that is updated in place.
func WithResult(r *Result) CallOption {
	return func(c *callOptions) {
		c.result = r
	}
}

// WithCallback registers fn to run once with the final result. It cannot
// be combined with WithResult.
func WithCallback(fn func(*Result)) CallOption {
	return func(c *callOptions) {
		c.callback = fn
	}
}

// Async overrides whether the first pump after scheduling starts the
// exchange. By default only result and callback calls do.
func Async(async bool) CallOption {
	return func(c *callOptions) {
		c.async = &async
	}
}

// Dispatch schedules desc on behalf of app. It never blocks on the network
// and never returns a nil Task; failures are reported through the Task.
func (d *Dispatcher) Dispatch(app auth.App, desc *request.Descriptor, opts ...CallOption) *Task {
	var call callOptions
	for _, opt := range opts {
		opt(&call)
	}

	t := &Task{d: d, uid: call.uid, name: desc.Name, result: call.result}
	if t.uid == "" {
		t.uid = uuid.New().String()
	}
	if t.result == nil {
		t.result = &Result{}
	}
	t.result.UID = t.uid
	if call.callback != nil {
		t.then = append(t.then, call.callback)
	}
	log := d.log.WithFields(logrus.Fields{"uid": t.uid, "op": desc.Name})

	// The token is checked before anything else about the call.
	tok, ok := d.tokens.Token(app)
	if !ok {
		return t.fail(log, appNotAssigned())
	}

	if call.result != nil && call.callback != nil {
		return t.fail(log, StructuralMisuse("a call takes either a result or a callback, not both"))
	}

	async := call.result != nil || call.callback != nil
	if call.async != nil {
		async = *call.async
	}

	path, root := desc.Resolve(tok.ProjectID)
	payload := desc.ResolvePayload(root)

	fileBacked := desc.File != nil || desc.OTA
	slotOpts := SlotOptions{
		Upload:   fileBacked && desc.Method.Sends(),
		Download: fileBacked && desc.Method == request.MethodGet,
		OTA:      desc.OTA,
		Async:    async,
		Token:    tok,
	}

	t.state = StateSlotRequested
	slot, ok := d.transport.AcquireSlot(slotOpts)
	if !ok || slot == nil {
		return t.fail(log, operationCancelled("no slot available"))
	}
	t.state = StateSlotAcquired
	t.slot = slot
	slot.task = t
	slot.result = t.result

	d.transport.BindRequest(slot, desc.Host, request.EscapeExtras(path), request.EscapeExtras(desc.Query.Encode()), desc.Method, slotOpts)

	if desc.File != nil {
		slot.Request.File = desc.File
		slot.Request.Base64 = false
		if desc.MimeType != "" {
			d.transport.SetContentType(slot, desc.MimeType)
		}
		if err := d.transport.SetFileContentLength(slot); err != nil {
			slot.release()
			return t.fail(log, ClientError(CodeFileIO, err.Error()))
		}
	} else if payload != "" {
		slot.Request.Payload = payload
		d.transport.SetContentLength(slot, int64(len(payload)))
	}

	if fileBacked {
		slot.Download = slotOpts.Download
		slot.Upload = slotOpts.Upload
	}

	if desc.OTA {
		slot.Request.OTA = true
		slot.Request.Base64 = false
		t.result.Download.OTA = true
	}

	t.state = StateSending
	d.live[t] = struct{}{}
	log.WithField("method", desc.Method).Debugf("sending %s", path)

	d.transport.Pump(async)
	d.transport.ReapCompleted()

	if !t.Done() {
		t.state = StateAwaitingCompletion
	}
	return t
}

// Loop runs one cooperative tick: advance every live slot, then reap the
// completed ones.
func (d *Dispatcher) Loop() {
	d.transport.Pump(true)
	d.transport.ReapCompleted()
}

// Pending counts tasks handed to the transport and not yet settled.
func (d *Dispatcher) Pending() int {
	return len(d.live)
}
