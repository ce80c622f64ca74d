package delivery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

const maxResponseBody = 1024 // 1KB cap on response body storage

// UserAgent is sent on every outbound request.
const UserAgent = "Hookgate/1.0"

// Result holds the outcome of a single HTTP attempt.
type Result struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	LatencyMs  int64

	// Err is a *TransportError or *DestinationError; nil on 2xx.
	Err error
}

// Status classifies the result for the ledger.
func (r Result) Status() AttemptStatus {
	var te *TransportError
	switch {
	case r.Err == nil:
		return AttemptSuccess
	case errors.As(r.Err, &te) && te.Timeout:
		return AttemptTimeout
	default:
		return AttemptFailed
	}
}

// Sender performs outbound HTTP POSTs.
type Sender struct {
	client *http.Client
}

// NewSender creates a sender with the given per-request timeout.
func NewSender(timeout time.Duration) *Sender {
	return &Sender{client: &http.Client{Timeout: timeout}}
}

// NewSenderWithClient uses an existing client, e.g. one with custom transport.
func NewSenderWithClient(client *http.Client) *Sender {
	return &Sender{client: client}
}

// Send POSTs body to url with headers.
func (s *Sender) Send(ctx context.Context, url string, body []byte, headers http.Header) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{Err: &TransportError{Destination: url, Err: fmt.Errorf("create request: %w", err)}}
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	start := time.Now()
	resp, err := s.client.Do(req) //nolint:gosec // destination URLs are tenant configuration.
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return Result{
			LatencyMs: latency,
			Err:       &TransportError{Destination: url, Timeout: isTimeout(err), Err: err},
		}
	}
	defer resp.Body.Close()

	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	res := Result{
		StatusCode: resp.StatusCode,
		Body:       string(respBody),
		Headers:    flatten(resp.Header),
		LatencyMs:  latency,
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		res.Err = &DestinationError{Destination: url, StatusCode: resp.StatusCode}
	} else if readErr != nil {
		res.Err = &TransportError{Destination: url, Timeout: isTimeout(readErr), Err: fmt.Errorf("read response: %w", readErr)}
	}
	return res
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func flatten(h http.Header) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for k := range h {
		out[k] = h.Get(k)
	}
	return out
}
