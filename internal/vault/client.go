// Package vault is the STASH vault client: one method per vault operation,
// each validating its input, signing a fresh request and dispatching it.
//
// Server-side failures come back as decoded envelopes with a non-200 Code.
// A non-nil error means the call was never sent or could not be assembled.
package vault

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/Project-Sylos/Stash/internal/auth"
	"github.com/Project-Sylos/Stash/internal/config"
	"github.com/Project-Sylos/Stash/internal/journal"
	"github.com/Project-Sylos/Stash/internal/params"
	"github.com/Project-Sylos/Stash/internal/request"
	"github.com/Project-Sylos/Stash/internal/transport"
	"github.com/Project-Sylos/Stash/internal/types"
	"github.com/Project-Sylos/Stash/internal/validate"
)

// Client talks to one vault with one set of credentials. It is safe for concurrent use.
type Client struct {
	builder   *request.Builder
	transport *transport.Transport
	journal   *journal.Journal
	logger    *slog.Logger

	builderOpts []request.Option
	ownsJournal bool
}

// Option customizes a Client
type Option func(*Client)

// WithTransport replaces the default transport
func WithTransport(t *transport.Transport) Option {
	return func(c *Client) {
		c.transport = t
	}
}

// WithJournal records every dispatched request in j. The caller keeps ownership of j.
func WithJournal(j *journal.Journal) Option {
	return func(c *Client) {
		c.journal = j
	}
}

// WithLogger sets the structured logger
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithRequestOptions passes options to the request builder, e.g. request.WithClock
func WithRequestOptions(opts ...request.Option) Option {
	return func(c *Client) {
		c.builderOpts = append(c.builderOpts, opts...)
	}
}

// New creates a client for the vault at baseURL
func New(creds auth.Credentials, baseURL string, opts ...Option) (*Client, error) {
	c := &Client{logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	if c.transport == nil {
		c.transport = transport.New(transport.WithLogger(c.logger))
	}

	b, err := request.NewBuilder(creds, baseURL, c.builderOpts...)
	if err != nil {
		return nil, err
	}
	c.builder = b
	return c, nil
}

// NewFromConfig creates a client from a validated configuration. When the
// config names a journal path the client opens and owns that journal.
func NewFromConfig(cfg *types.Config, opts ...Option) (*Client, error) {
	creds, err := config.Credentials(cfg)
	if err != nil {
		return nil, err
	}

	level := slog.LevelInfo
	if cfg.Client.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	base := []Option{
		WithLogger(logger),
		WithTransport(transport.New(
			transport.WithLogger(logger),
			transport.WithTimeout(config.Timeout(cfg)),
			transport.WithRateLimit(cfg.Client.RateLimit, cfg.Client.RateBurst),
		)),
	}

	var j *journal.Journal
	if cfg.Client.JournalPath != "" {
		j, err = journal.Open(cfg.Client.JournalPath)
		if err != nil {
			return nil, err
		}
		base = append(base, WithJournal(j))
	}

	c, err := New(creds, cfg.Vault.BaseURL, append(base, opts...)...)
	if err != nil {
		if j != nil {
			j.Close()
		}
		return nil, err
	}
	c.ownsJournal = j != nil && c.journal == j
	return c, nil
}

// Close releases the journal when the client opened it
func (c *Client) Close() error {
	if c.ownsJournal {
		return c.journal.Close()
	}
	return nil
}

// Credentials returns the credentials requests are signed with
func (c *Client) Credentials() auth.Credentials {
	return c.builder.Credentials()
}

// BaseURL returns the vault base URL
func (c *Client) BaseURL() string {
	return c.builder.BaseURL()
}

// Journal returns the configured journal, or nil
func (c *Client) Journal() *journal.Journal {
	return c.journal
}

// Do dispatches any JSON operation by enum. Read and write need files and go
// through GetFile and PutFile instead.
func (c *Client) Do(ctx context.Context, op validate.Operation, p *params.Params) (*types.Response, error) {
	switch op {
	case validate.OpRead, validate.OpReadVersion:
		return nil, errors.Errorf("%s downloads a file; use GetFile or ReadVersion", op)
	case validate.OpWrite:
		return nil, errors.Errorf("%s uploads a file; use PutFile", op)
	}
	endpoint := request.Endpoint(op)
	if endpoint == "" {
		return nil, errors.Errorf("operation %s has no endpoint", op)
	}
	return c.send(ctx, op, endpoint, p)
}

func (c *Client) send(ctx context.Context, op validate.Operation, endpoint string, p *params.Params) (*types.Response, error) {
	req, err := c.builder.BuildAt(op, endpoint, p)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	resp, err := c.transport.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	c.record(req, resp, time.Since(start))
	return resp, nil
}

func (c *Client) upload(ctx context.Context, op validate.Operation, p *params.Params, path string) (*types.Response, error) {
	req, err := c.builder.Build(op, p)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	resp, err := c.transport.Upload(ctx, req, path)
	if err != nil {
		return nil, err
	}
	c.record(req, resp, time.Since(start))
	return resp, nil
}

func (c *Client) download(ctx context.Context, op validate.Operation, p *params.Params, path string) (*types.Response, error) {
	req, err := c.builder.Build(op, p)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	resp, err := c.transport.Download(ctx, req, path)
	if err != nil {
		return nil, err
	}
	c.record(req, resp, time.Since(start))
	return resp, nil
}

// record is best effort: a journal failure never fails the vault call
func (c *Client) record(req *request.Request, resp *types.Response, d time.Duration) {
	if c.journal == nil {
		return
	}
	_, err := c.journal.Record(journal.Entry{
		Operation:    req.Op.String(),
		URL:          req.URL,
		APITimestamp: req.Timestamp,
		Code:         string(resp.Code),
		Message:      resp.Detail(),
		Duration:     d,
	})
	if err != nil {
		c.logger.Error("Fail to record request", "op", req.Op.String(), "error", err)
	}
}
