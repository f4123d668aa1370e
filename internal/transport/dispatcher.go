// Package transport posts user text to the agent endpoint and hands the reply
// to a Sink, either record by record (streaming) or all at once (single-shot).
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Credentials are the session hooks run around each request.
type Credentials interface {
	AttachCredential(h http.Header)
	ObserveResponse(h http.Header)
	ObserveStatus(code int)
}

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Code   int
	Reason string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API Error: %d %s", e.Code, e.Reason)
}

// IsUnauthorized reports whether err is a 401 StatusError.
func IsUnauthorized(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusUnauthorized
}

type sendRequest struct {
	Message string `json:"message"`
}

type Option func(*Dispatcher)

func WithHTTPClient(c *http.Client) Option {
	return func(d *Dispatcher) {
		d.client = c
	}
}

func WithMode(m Mode) Option {
	return func(d *Dispatcher) {
		d.mode = m
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithMaxMalformed aborts a stream after n consecutive malformed records.
func WithMaxMalformed(n int) Option {
	return func(d *Dispatcher) {
		d.maxMalformed = n
	}
}

type Dispatcher struct {
	client       *http.Client
	url          string
	mode         Mode
	creds        Credentials
	maxMalformed int
	logger       zerolog.Logger
}

func NewDispatcher(url string, creds Credentials, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		client: &http.Client{},
		url:    url,
		mode:   Streaming,
		creds:  creds,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) Mode() Mode {
	return d.mode
}

// Send performs one request. A nil error means the body was fully consumed;
// any error means the send failed and sink may have seen partial output.
func (d *Dispatcher) Send(ctx context.Context, text string, sink Sink) error {
	body, err := json.Marshal(sendRequest{Message: text})
	if err != nil {
		return errors.Wrap(err, "marshaling request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "creating request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/x-ndjson, application/json")
	d.creds.AttachCredential(req.Header)

	resp, err := d.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "sending request")
	}
	defer resp.Body.Close()

	d.creds.ObserveResponse(resp.Header)
	d.creds.ObserveStatus(resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		d.logger.Warn().
			Int("status", resp.StatusCode).
			Str("body", strings.TrimSpace(string(snippet))).
			Msg("agent endpoint returned an error status")
		return &StatusError{Code: resp.StatusCode, Reason: reasonPhrase(resp)}
	}

	mode := d.mode
	if mode == Auto {
		mode = detectMode(resp)
	}
	logger := d.logger.With().Str("mode", mode.String()).Logger()
	logger.Debug().Int("status", resp.StatusCode).Msg("response started")

	return d.handlerFor(mode, logger).handle(ctx, resp, sink)
}

func (d *Dispatcher) handlerFor(mode Mode, logger zerolog.Logger) responseHandler {
	if mode == SingleShot {
		return singleShotHandler{logger: logger}
	}
	return streamingHandler{logger: logger, maxMalformed: d.maxMalformed}
}

// reasonPhrase prefers the server's own reason text over the canonical one.
func reasonPhrase(resp *http.Response) string {
	prefix := fmt.Sprintf("%d ", resp.StatusCode)
	if reason := strings.TrimPrefix(resp.Status, prefix); reason != resp.Status && reason != "" {
		return reason
	}
	return http.StatusText(resp.StatusCode)
}
