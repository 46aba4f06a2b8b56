package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Project-Sylos/Stash/internal/params"
)

// Config represents the complete configuration for a Stash client and stub
type Config struct {
	Vault  VaultConfig  `json:"vault"`
	Client ClientConfig `json:"client"`
	Stub   StubConfig   `json:"stub"`
}

// VaultConfig represents the vault account and deployment profile
type VaultConfig struct {
	BaseURL          string `json:"base_url"`
	APIID            string `json:"api_id"`
	APIPw            string `json:"api_pw"`
	Version          string `json:"version"`
	IDFormat         string `json:"id_format"`
	Canonicalization string `json:"canonicalization"`
}

// ClientConfig represents transport and journaling behaviour
type ClientConfig struct {
	TimeoutSeconds int     `json:"timeout_seconds"`
	RateLimit      float64 `json:"rate_limit"` // requests per second, 0 disables
	RateBurst      int     `json:"rate_burst"`
	JournalPath    string  `json:"journal_path"` // empty disables the journal
	Verbose        bool    `json:"verbose"`
}

// StubConfig represents the local verifying vault stub
type StubConfig struct {
	Host           string `json:"host"`
	Port           int    `json:"port"`
	MaxSkewSeconds int    `json:"max_skew_seconds"`

	// Account the stub serves; its api_id and api_pw come from the vault section
	AccountUsername string `json:"account_username"`
	AccountPassword string `json:"account_password"`
}

// Response codes used by the vault
const (
	CodeOK           Code = "200"
	CodeBadRequest   Code = "400"
	CodeUnauthorized Code = "401"
	CodeForbidden    Code = "403"
	CodeNotFound     Code = "404"
	CodeServerError  Code = "500"
)

// Code is a response status code. The vault sends it as either a string or a number.
type Code string

// UnmarshalJSON accepts "200", 200 and null
func (c *Code) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*c = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*c = Code(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("code must be a string or number: %w", err)
	}
	*c = Code(n.String())
	return nil
}

// Int returns the numeric value of the code, or 0 when it is not numeric
func (c Code) Int() int {
	n, err := strconv.Atoi(string(c))
	if err != nil {
		return 0
	}
	return n
}

// ErrorDetail is the error object carried by non-200 envelopes
type ErrorDetail struct {
	ErrorCode            Code   `json:"errorCode"`
	ExtendedErrorMessage string `json:"extendedErrorMessage"`
}

// Response is the decoded vault response envelope.
// Fields other than code, message and error are kept in Extra, in wire order.
type Response struct {
	Code    Code
	Message string
	Error   *ErrorDetail
	Extra   *params.Params
}

// NewResponse creates an envelope with the given code and message
func NewResponse(code Code, message string) *Response {
	return &Response{Code: code, Message: message, Extra: params.New()}
}

// NewErrorResponse creates an envelope carrying an error detail with the same code
func NewErrorResponse(code Code, message, extended string) *Response {
	r := NewResponse(code, message)
	r.Error = &ErrorDetail{ErrorCode: code, ExtendedErrorMessage: extended}
	return r
}

// TransportFault wraps a local network failure in a 500 envelope
func TransportFault(err error) *Response {
	return NewResponse(CodeServerError, err.Error())
}

// StatusResponse wraps a non-envelope HTTP reply in an envelope carrying the status
func StatusResponse(status int, body string) *Response {
	return NewResponse(Code(strconv.Itoa(status)), body)
}

// DecodeResponse parses an envelope. A body that is not a JSON object, or that
// carries no code, is reported as an error.
func DecodeResponse(data []byte) (*Response, error) {
	var r Response
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	if r.Code == "" {
		return nil, fmt.Errorf("response envelope has no code")
	}
	return &r, nil
}

// OK reports whether the envelope carries code 200
func (r *Response) OK() bool {
	return r != nil && r.Code == CodeOK
}

// Set stores an extra field and returns r for chaining
func (r *Response) Set(key string, value any) *Response {
	if r.Extra == nil {
		r.Extra = params.New()
	}
	r.Extra.Set(key, value)
	return r
}

// Get returns an extra field
func (r *Response) Get(key string) (any, bool) {
	return r.Extra.Get(key)
}

// Str returns an extra field as a string
func (r *Response) Str(key string) string {
	return r.Extra.Str(key)
}

// Int returns an extra field as an integer
func (r *Response) Int(key string) (int64, bool) {
	return r.Extra.Int(key)
}

// Bool reports whether an extra field holds a true value ("1", true, non-zero)
func (r *Response) Bool(key string) bool {
	return !r.Extra.IsEmpty(key)
}

// Decode unmarshals an extra field into dst
func (r *Response) Decode(key string, dst any) error {
	v, ok := r.Get(key)
	if !ok {
		return fmt.Errorf("response has no field %q", key)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

// Detail returns the extended error message if present, otherwise the message
func (r *Response) Detail() string {
	if r.Error != nil && r.Error.ExtendedErrorMessage != "" {
		return r.Error.ExtendedErrorMessage
	}
	return r.Message
}

func (r *Response) String() string {
	if r == nil {
		return "<nil response>"
	}
	return fmt.Sprintf("%s %s", r.Code, r.Detail())
}

// UnmarshalJSON decodes the envelope keeping unknown fields in order
func (r *Response) UnmarshalJSON(data []byte) error {
	var bag params.Params
	if err := json.Unmarshal(data, &bag); err != nil {
		return err
	}

	out := Response{Extra: params.New()}
	for _, k := range bag.Keys() {
		v, _ := bag.Get(k)
		switch k {
		case "code":
			code, _ := params.Scalar(v)
			out.Code = Code(code)
		case "message":
			out.Message, _ = v.(string)
		case "error":
			detail, err := decodeDetail(v)
			if err != nil {
				return err
			}
			out.Error = detail
		default:
			out.Extra.Set(k, v)
		}
	}
	*r = out
	return nil
}

// MarshalJSON encodes code, message and error first, then the extra fields
func (r *Response) MarshalJSON() ([]byte, error) {
	bag := params.New().
		Set("code", string(r.Code)).
		Set("message", r.Message)
	if r.Error != nil {
		bag.Set("error", params.New().
			Set("errorCode", string(r.Error.ErrorCode)).
			Set("extendedErrorMessage", r.Error.ExtendedErrorMessage))
	}
	return bag.Merge(r.Extra).MarshalJSON()
}

func decodeDetail(v any) (*ErrorDetail, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		return &ErrorDetail{ExtendedErrorMessage: t}, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var d ErrorDetail
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("invalid error detail: %w", err)
	}
	return &d, nil
}
