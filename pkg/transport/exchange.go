package transport

import (
	"context"
	"io"
	"io/ioutil"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/serverlessresearch/gcrest/pkg/dispatch"
	"github.com/serverlessresearch/gcrest/pkg/request"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const baseBackoff = 100 * time.Millisecond

// exchange is the worker's private copy of a slot's request.
type exchange struct {
	id          uint64
	method      request.Method
	host        string
	url         string
	token       string
	payload     string
	contentType string
	length      int64

	source   request.File
	download bool
	sink     FirmwareSink
}

type countingReader struct {
	r io.Reader
	n *atomic.Int64
}

func (c countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	return n, err
}

func (c *Client) run(x exchange, e *entry) outcome {
	ctx, span := c.tracer.Start(c.ctx, "gcrest "+x.method.String(),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", x.method.String()),
			attribute.String("server.address", x.host),
			attribute.Int64("gcrest.slot", int64(x.id)),
		),
	)
	defer span.End()

	o := c.roundTrip(ctx, x, e)
	if o.resp.Status != 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", o.resp.Status))
	}
	if o.err != nil {
		span.RecordError(o.err)
		span.SetStatus(codes.Error, o.err.Kind.String())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	return o
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// roundTrip runs the request with rate limiting and retries, backing off
// 100ms, 200ms, 400ms and so on between attempts.
func (c *Client) roundTrip(ctx context.Context, x exchange, e *entry) outcome {
	log := c.log.WithFields(logrus.Fields{"slot": x.id, "host": x.host})

	var last outcome
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * baseBackoff
			log.Infof("Retrying %s after %s (attempt %d): %s", x.method, backoff, attempt+1, last.err)
			select {
			case <-ctx.Done():
				return cancelled(ctx)
			case <-time.After(backoff):
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return cancelled(ctx)
		}

		o, retry := c.attempt(ctx, x, e)
		if !retry {
			return o
		}
		last = o
	}
	return last
}

func cancelled(ctx context.Context) outcome {
	msg := "exchange cancelled"
	if err := ctx.Err(); err != nil {
		msg = err.Error()
	}
	return outcome{err: dispatch.ClientError(dispatch.CodeConnection, msg)}
}

// attempt performs one HTTP round trip. retry reports whether the failure
// is transient.
func (c *Client) attempt(ctx context.Context, x exchange, e *entry) (o outcome, retry bool) {
	var body io.Reader
	switch {
	case x.source != nil:
		r, err := x.source.Open()
		if err != nil {
			return outcome{err: dispatch.ClientError(dispatch.CodeFileIO, err.Error())}, false
		}
		defer r.Close()
		e.sent.Store(0)
		body = countingReader{r, &e.sent}
	case x.payload != "":
		body = strings.NewReader(x.payload)
	}

	req, err := http.NewRequestWithContext(ctx, x.method.String(), x.url, body)
	if err != nil {
		return outcome{err: dispatch.ClientError(dispatch.CodeConnection, err.Error())}, false
	}
	if body != nil {
		req.ContentLength = x.length
		contentType := x.contentType
		if contentType == "" {
			contentType = "application/json"
		}
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	if x.token != "" {
		req.Header.Set("Authorization", "Bearer "+x.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return cancelled(ctx), false
		}
		return outcome{err: dispatch.ClientError(dispatch.CodeConnection, err.Error())}, true
	}
	defer resp.Body.Close()

	result := dispatch.Response{Status: resp.StatusCode, Header: resp.Header}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := ioutil.ReadAll(resp.Body)
		result.Body = string(raw)
		return outcome{resp: result, err: dispatch.ServerError(resp.StatusCode, result.Body)}, retryable(resp.StatusCode)
	}

	if x.download {
		return c.receive(x, e, resp, result), false
	}
	raw, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return outcome{resp: result, err: dispatch.ClientError(dispatch.CodeConnection, err.Error())}, false
	}
	result.Body = string(raw)
	return outcome{resp: result}, false
}

// receive streams a successful download into its sink.
func (c *Client) receive(x exchange, e *entry, resp *http.Response, result dispatch.Response) outcome {
	if x.sink == nil {
		return outcome{resp: result, err: dispatch.ClientError(dispatch.CodeFileIO, "no download destination")}
	}
	e.downTotal.Store(resp.ContentLength)
	w, err := x.sink(resp.ContentLength)
	if err != nil {
		return outcome{resp: result, err: dispatch.ClientError(dispatch.CodeFileIO, err.Error())}
	}
	_, copyErr := io.Copy(w, countingReader{resp.Body, &e.received})
	closeErr := w.Close()
	switch {
	case copyErr != nil:
		return outcome{resp: result, err: dispatch.ClientError(dispatch.CodeConnection, copyErr.Error())}
	case closeErr != nil:
		return outcome{resp: result, err: dispatch.ClientError(dispatch.CodeFileIO, closeErr.Error())}
	}
	return outcome{resp: result}
}
