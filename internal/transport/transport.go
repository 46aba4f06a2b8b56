// Package transport delivers signed requests to the vault over HTTP.
// Network failures never surface as Go errors: they become a synthetic
// {code:"500"} envelope so callers handle one result shape.
package transport

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/Project-Sylos/Stash/internal/request"
	"github.com/Project-Sylos/Stash/internal/types"
)

const (
	// RequestIDHeader carries a per-request uuid for correlating client and server logs
	RequestIDHeader = "X-Request-Id"

	// maxEnvelopeSize bounds how much of a JSON reply is read into memory
	maxEnvelopeSize = 32 << 20
)

// Transport sends requests built by request.Builder. It is safe for concurrent use.
type Transport struct {
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// Option customizes a Transport
type Option func(*Transport)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(t *Transport) {
		t.client = c
	}
}

// WithTimeout sets the whole-request timeout; 0 disables it.
// The current HTTP client is copied first, so a client passed to
// WithHTTPClient (http.DefaultClient included) is never modified.
func WithTimeout(d time.Duration) Option {
	return func(t *Transport) {
		c := *t.client
		c.Timeout = d
		t.client = &c
	}
}

// WithRateLimit caps outbound requests at perSecond with the given burst.
// A non-positive rate disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(t *Transport) {
		if perSecond <= 0 {
			t.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithLogger sets the structured logger
func WithLogger(l *slog.Logger) Option {
	return func(t *Transport) {
		t.logger = l
	}
}

// New creates a Transport with a 60 second timeout and no rate limit
func New(opts ...Option) *Transport {
	t := &Transport{
		client: &http.Client{Timeout: 60 * time.Second},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Send POSTs the request body as JSON and decodes the response envelope
func (t *Transport) Send(ctx context.Context, req *request.Request) (*types.Response, error) {
	payload, err := req.JSON()
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode request")
	}

	resp, fault := t.do(ctx, req, bytes.NewReader(payload), "application/json")
	if fault != nil {
		return fault, nil
	}
	defer resp.Body.Close()

	return t.readEnvelope(req, resp), nil
}

func (t *Transport) do(ctx context.Context, req *request.Request, body io.Reader, contentType string) (*http.Response, *types.Response) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, t.fault(req, err)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, body)
	if err != nil {
		return nil, t.fault(req, err)
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set(RequestIDHeader, requestID)

	t.logger.Debug("sending vault request",
		"op", req.Op.String(),
		"url", req.URL,
		"request_id", requestID,
		"api_timestamp", req.Timestamp)

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, t.fault(req, err)
	}
	return resp, nil
}

func (t *Transport) fault(req *request.Request, err error) *types.Response {
	t.logger.Warn("vault request failed", "op", req.Op.String(), "url", req.URL, "error", err)
	return types.TransportFault(err)
}

// readEnvelope decodes a reply. Non-200 statuses without an envelope body keep
// the status as the code and the raw body as the message.
func (t *Transport) readEnvelope(req *request.Request, resp *http.Response) *types.Response {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxEnvelopeSize))
	if err != nil {
		return t.fault(req, err)
	}

	env, err := types.DecodeResponse(body)
	switch {
	case err == nil:
	case resp.StatusCode != http.StatusOK:
		env = types.StatusResponse(resp.StatusCode, string(body))
	default:
		env = types.NewResponse(types.CodeServerError, "malformed response envelope: "+err.Error())
	}

	t.logger.Debug("vault response",
		"op", req.Op.String(),
		"status", resp.StatusCode,
		"code", string(env.Code),
		"message", env.Message)
	return env
}
