// Package request assembles validated, timestamped and signed vault requests.
// A Request is built for a single send and is never modified afterwards.
package request

import (
	"time"

	"github.com/pkg/errors"

	"github.com/Project-Sylos/Stash/internal/auth"
	"github.com/Project-Sylos/Stash/internal/params"
	"github.com/Project-Sylos/Stash/internal/validate"
)

// Request is one signed call to the vault
type Request struct {
	Op        validate.Operation
	URL       string
	Version   string
	ID        string
	Timestamp int64
	Signature string

	params *params.Params
}

// Params returns a copy of the operation params (without protocol fields)
func (r *Request) Params() *params.Params {
	return r.params.Clone()
}

// Body returns the outbound bag: url, api_version, api_id, api_timestamp,
// api_signature, then the operation params in the order they were supplied.
func (r *Request) Body() *params.Params {
	body := params.New().
		Set(auth.FieldURL, r.URL).
		Set(auth.FieldVersion, r.Version).
		Set(auth.FieldID, r.ID).
		Set(auth.FieldTimestamp, r.Timestamp).
		Set(auth.FieldSignature, r.Signature)
	return body.Merge(r.params)
}

// JSON returns the compact JSON encoding of Body
func (r *Request) JSON() ([]byte, error) {
	return r.Body().MarshalJSON()
}

// Builder turns operation params into signed Requests for one set of credentials.
// It holds no per-call state and is safe for concurrent use.
type Builder struct {
	creds   auth.Credentials
	baseURL string
	now     func() time.Time
}

// Option customizes a Builder
type Option func(*Builder)

// WithClock replaces time.Now as the timestamp source
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		b.now = now
	}
}

// NewBuilder creates a Builder for creds against baseURL
func NewBuilder(creds auth.Credentials, baseURL string, opts ...Option) (*Builder, error) {
	if baseURL == "" {
		return nil, errors.New("invalid URL: base URL must not be empty")
	}
	if creds.ID() == "" {
		return nil, errors.New("credentials are not initialized")
	}
	b := &Builder{creds: creds, baseURL: baseURL, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Credentials returns the credentials requests are signed with
func (b *Builder) Credentials() auth.Credentials {
	return b.creds
}

// BaseURL returns the vault base address
func (b *Builder) BaseURL() string {
	return b.baseURL
}

// Build validates p for op, stamps the current time and signs the request
// against the operation's standard endpoint.
func (b *Builder) Build(op validate.Operation, p *params.Params) (*Request, error) {
	endpoint := Endpoint(op)
	if endpoint == "" {
		return nil, errors.Errorf("operation %s has no endpoint", op)
	}
	return b.BuildAt(op, endpoint, p)
}

// BuildAt is Build with an explicit relative endpoint
func (b *Builder) BuildAt(op validate.Operation, endpoint string, p *params.Params) (*Request, error) {
	if err := validate.Params(op, p); err != nil {
		return nil, err
	}

	own := p.Clone()
	own.Delete(auth.FieldSignature)

	req := &Request{
		Op:        op,
		URL:       JoinURL(b.baseURL, endpoint),
		Version:   b.creds.Version(),
		ID:        b.creds.ID(),
		Timestamp: b.now().Unix(),
		params:    own,
	}

	bag := auth.SigningBag(auth.Fields{
		URL:       req.URL,
		Version:   req.Version,
		ID:        req.ID,
		Timestamp: req.Timestamp,
	}, own)

	sig, err := auth.SignBag(b.creds.Profile().Canonicalization, bag, b.creds.Secret())
	if err != nil {
		return nil, err
	}
	req.Signature = sig
	return req, nil
}
