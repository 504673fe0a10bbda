// HTTP transport for the dispatcher.
//
// A Client is a capacity-bounded pool of slots. The dispatcher drives it from
// one goroutine through the dispatch.Transport methods; each started slot
// runs its HTTP exchange on a worker goroutine that never touches the slot.
// Workers publish progress through atomics and hand back one outcome on a
// channel, which Pump applies to the slot on the driving goroutine.
package transport

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/serverlessresearch/gcrest/pkg/dispatch"
	"github.com/serverlessresearch/gcrest/pkg/request"
	"github.com/sirupsen/logrus"
	"github.com/zyedidia/generic"
	"github.com/zyedidia/generic/btree"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const instrumentationName = "github.com/serverlessresearch/gcrest/pkg/transport"

type outcome struct {
	resp dispatch.Response
	err  *dispatch.Error
}

type entry struct {
	slot    *dispatch.Slot
	started bool
	outcome chan outcome

	upTotal   int64
	sent      atomic.Int64
	received  atomic.Int64
	downTotal atomic.Int64
}

type Client struct {
	cfg     Config
	log     logrus.FieldLogger
	http    *http.Client
	limiter *rate.Limiter
	tracer  trace.Tracer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	seq    uint64
	slots  *btree.Tree[uint64, *entry]
	closed bool
}

var _ dispatch.Transport = (*Client)(nil)

func New(cfg Config) *Client {
	cfg = cfg.withDefaults()

	log := cfg.Logger
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		log = l
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		cfg:     cfg,
		log:     log.WithField("module", "transport"),
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		tracer:  tp.Tracer(instrumentationName),
		ctx:     ctx,
		cancel:  cancel,
		slots:   btree.New[uint64, *entry](generic.Less[uint64]),
	}
}

// Live counts slots that have not reached a terminal state.
func (c *Client) Live() int {
	n := 0
	c.slots.Each(func(_ uint64, e *entry) {
		if !e.slot.Done() {
			n++
		}
	})
	return n
}

func (c *Client) AcquireSlot(opts dispatch.SlotOptions) (*dispatch.Slot, bool) {
	if c.closed {
		return nil, false
	}
	if c.Live() >= c.cfg.Capacity {
		c.log.Debugf("slot pool exhausted at %d", c.cfg.Capacity)
		return nil, false
	}
	c.seq++
	s := dispatch.NewSlot(c.seq, opts)
	c.slots.Put(c.seq, &entry{slot: s, outcome: make(chan outcome, 1)})
	return s, true
}

func (c *Client) BindRequest(s *dispatch.Slot, host, path, query string, method request.Method, opts dispatch.SlotOptions) {
	s.Request.Host = host
	s.Request.Path = path
	s.Request.Query = query
	s.Request.Method = method
	s.Request.Token = opts.Token
}

// SetFileContentLength sizes the upload source. Download slots have nothing
// to size since their file is created when the response arrives.
func (c *Client) SetFileContentLength(s *dispatch.Slot) error {
	if !s.Options.Upload {
		return nil
	}
	if s.Request.File == nil {
		return errors.New("No file bound to slot")
	}
	n, err := s.Request.File.Size()
	if err != nil {
		return err
	}
	s.Request.ContentLength = n
	return nil
}

func (c *Client) SetContentType(s *dispatch.Slot, mime string) {
	s.Request.ContentType = mime
}

func (c *Client) SetContentLength(s *dispatch.Slot, n int64) {
	s.Request.ContentLength = n
}

// snapshot copies the live entries in sequence order. Applying an outcome
// runs user callbacks, which may acquire new slots, so the tree is never
// iterated while slots are being finished.
func (c *Client) snapshot() []*entry {
	entries := make([]*entry, 0, c.slots.Size())
	c.slots.Each(func(_ uint64, e *entry) {
		entries = append(entries, e)
	})
	return entries
}

// Pump collects finished exchanges and, with advance set, starts the slots
// that are bound but not yet running.
func (c *Client) Pump(advance bool) {
	for _, e := range c.snapshot() {
		if e.slot.Done() {
			continue
		}
		if !e.started {
			if advance && !c.closed {
				c.start(e)
			}
			continue
		}
		c.collect(e)
	}
}

func (c *Client) collect(e *entry) {
	s := e.slot
	select {
	case o := <-e.outcome:
		c.report(e)
		if o.err != nil {
			c.log.WithFields(logrus.Fields{"slot": s.ID, "code": o.err.Code}).Warnf("%s %s%s failed: %s", s.Request.Method, s.Request.Host, s.Request.Path, o.err.Kind)
		}
		s.Finish(o.resp, o.err)
	default:
		c.report(e)
	}
}

func (c *Client) report(e *entry) {
	s := e.slot
	if s.Upload {
		s.ReportUpload(e.sent.Load(), e.upTotal)
	}
	if s.Download {
		s.ReportDownload(e.received.Load(), e.downTotal.Load())
	}
}

func (c *Client) start(e *entry) {
	s := e.slot
	e.started = true

	x := exchange{
		id:          s.ID,
		method:      s.Request.Method,
		host:        s.Request.Host,
		url:         c.baseURL(s.Request.Host) + s.Request.Path + s.Request.Query,
		token:       s.Request.Token.AccessToken,
		payload:     s.Request.Payload,
		contentType: s.Request.ContentType,
		length:      s.Request.ContentLength,
		download:    s.Download,
	}
	if s.Upload {
		x.source = s.Request.File
		e.upTotal = s.Request.ContentLength
	}
	if s.Download {
		if s.Request.OTA {
			if c.cfg.Firmware == nil {
				s.Finish(dispatch.Response{}, dispatch.ClientError(dispatch.CodeNoFirmware, "no firmware sink configured"))
				return
			}
			x.sink = c.cfg.Firmware
		} else if f := s.Request.File; f != nil {
			x.sink = func(int64) (io.WriteCloser, error) { return f.Create() }
		}
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		e.outcome <- c.run(x, e)
	}()
}

func (c *Client) baseURL(host string) string {
	if base, ok := c.cfg.Endpoints[host]; ok && base != "" {
		return strings.TrimSuffix(base, "/")
	}
	return "https://" + host
}

// ReapCompleted drops every slot that finished or was cancelled.
func (c *Client) ReapCompleted() {
	var done []uint64
	c.slots.Each(func(id uint64, e *entry) {
		if e.slot.Done() {
			done = append(done, id)
		}
	})
	for _, id := range done {
		c.slots.Remove(id)
	}
}

// Close cancels every live slot, waits for running exchanges to stop and
// refuses further acquisition. The returned error lists the slots that were
// cancelled.
func (c *Client) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.cancel()

	var result *multierror.Error
	for _, e := range c.snapshot() {
		if e.slot.Done() {
			continue
		}
		req := e.slot.Request
		e.slot.Cancel()
		result = multierror.Append(result, errors.Errorf("slot %d (%s %s%s) cancelled", e.slot.ID, req.Method, req.Host, req.Path))
	}
	c.wg.Wait()
	c.ReapCompleted()
	c.http.CloseIdleConnections()
	return result.ErrorOrNil()
}
