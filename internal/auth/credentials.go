package auth

import (
	"encoding/json"
	"fmt"
	"net/mail"
	"net/url"
	"strconv"
	"strings"

	"github.com/Project-Sylos/Stash/internal/params"
)

const (
	DefaultVersion  = "1.0"
	IDLength        = 32
	MinSecretLength = 32
	// SignatureLength is the hex length of an HMAC-SHA-256 digest.
	SignatureLength = 64
)

// IDFormat selects which account identifiers a deployment accepts
type IDFormat string

const (
	IDFormatHex   IDFormat = "hex"
	IDFormatEmail IDFormat = "email"
)

// Canonicalization selects how a request is serialized before signing.
// Signing and verification must use the same strategy.
type Canonicalization string

const (
	CanonicalURLEncoded Canonicalization = "urlencoded"
	CanonicalJSON       Canonicalization = "json"
)

// Profile describes one deployment of the vault API
type Profile struct {
	IDFormat         IDFormat         `json:"id_format"`
	Canonicalization Canonicalization `json:"canonicalization"`
	Version          string           `json:"version"`
}

// DefaultProfile returns the hex-id, url-encoded, version 1.0 profile
func DefaultProfile() Profile {
	return Profile{
		IDFormat:         IDFormatHex,
		Canonicalization: CanonicalURLEncoded,
		Version:          DefaultVersion,
	}
}

// Validate checks that every profile field names a known option
func (p Profile) Validate() error {
	switch p.IDFormat {
	case IDFormatHex, IDFormatEmail:
	default:
		return newFieldError("id_format", "unknown id format %q", p.IDFormat)
	}
	switch p.Canonicalization {
	case CanonicalURLEncoded, CanonicalJSON:
	default:
		return newFieldError("canonicalization", "unknown canonicalization %q", p.Canonicalization)
	}
	if p.Version == "" {
		return newFieldError("version", "must not be empty")
	}
	return nil
}

// Credentials holds the account identifier and shared secret for a session.
// The value is read-only; use WithID/WithSecret to derive a changed copy.
type Credentials struct {
	id      string
	secret  string
	profile Profile
}

// NewCredentials validates id and secret against the profile
func NewCredentials(id, secret string, profile Profile) (Credentials, error) {
	if err := profile.Validate(); err != nil {
		return Credentials{}, err
	}
	if err := ValidateID(id, profile.IDFormat); err != nil {
		return Credentials{}, err
	}
	if err := ValidateSecret(secret); err != nil {
		return Credentials{}, err
	}
	return Credentials{id: id, secret: secret, profile: profile}, nil
}

// ID returns the account identifier
func (c Credentials) ID() string { return c.id }

// Secret returns the shared secret. It is never sent on the wire.
func (c Credentials) Secret() string { return c.secret }

// Profile returns the deployment profile
func (c Credentials) Profile() Profile { return c.profile }

// Version returns the protocol version stamped on requests
func (c Credentials) Version() string { return c.profile.Version }

// WithID returns a copy using a different identifier
func (c Credentials) WithID(id string) (Credentials, error) {
	return NewCredentials(id, c.secret, c.profile)
}

// WithSecret returns a copy using a different secret
func (c Credentials) WithSecret(secret string) (Credentials, error) {
	return NewCredentials(c.id, secret, c.profile)
}

func (c Credentials) String() string {
	return fmt.Sprintf("STASH credentials - Version: %s ID: %s", c.profile.Version, c.id)
}

// ValidateID checks an account identifier for the given format
func ValidateID(id string, format IDFormat) error {
	if format == IDFormatEmail && strings.Contains(id, "@") {
		if _, err := mail.ParseAddress(id); err != nil {
			return newFieldError("api_id", "not a valid email address")
		}
		return nil
	}
	if len(id) != IDLength {
		return newFieldError("api_id", "must be %d characters in length", IDLength)
	}
	if !isHex(id) {
		return newFieldError("api_id", "has invalid characters, only a-f and 0-9 are allowed")
	}
	return nil
}

// ValidateSecret checks the shared secret length and character set
func ValidateSecret(secret string) error {
	if len(secret) < MinSecretLength {
		return newFieldError("api_pw", "must be at least %d characters in length", MinSecretLength)
	}
	for _, r := range secret {
		if !isAlnum(r) {
			return newFieldError("api_pw", "has invalid characters, only a-z, A-Z, and 0-9 are allowed")
		}
	}
	return nil
}

// ValidateField checks one named request field against its syntax rules.
// Unknown field names are accepted.
func ValidateField(profile Profile, name string, value any) error {
	switch name {
	case "api_id":
		s, ok := value.(string)
		if !ok {
			return newFieldError(name, "must be a string")
		}
		return ValidateID(s, profile.IDFormat)
	case "api_pw":
		s, ok := value.(string)
		if !ok {
			return newFieldError(name, "must be a string")
		}
		return ValidateSecret(s)
	case "api_signature":
		s, ok := value.(string)
		if !ok || len(s) != SignatureLength {
			return newFieldError(name, "must be %d characters in length", SignatureLength)
		}
		if !isHex(s) {
			return newFieldError(name, "has invalid characters, only a-f and 0-9 are allowed")
		}
	case "api_timestamp":
		var ts int64
		switch t := value.(type) {
		case int:
			ts = int64(t)
		case int64:
			ts = t
		case json.Number:
			n, err := strconv.ParseInt(t.String(), 10, 64)
			if err != nil {
				return newFieldError(name, "must be an integer value")
			}
			ts = n
		default:
			return newFieldError(name, "must be an integer value")
		}
		if ts < 1 {
			return newFieldError(name, "must be greater than 0")
		}
	case "api_version":
		if s, _ := value.(string); s != profile.Version {
			return newFieldError(name, "does not match API version %s", profile.Version)
		}
	case "url":
		s, ok := value.(string)
		if !ok {
			return newFieldError(name, "must be a valid URL")
		}
		u, err := url.Parse(s)
		if err != nil || u.Host == "" {
			return newFieldError(name, "must be a valid URL - including https")
		}
		if u.Scheme != "https" {
			return newFieldError(name, "must start with https")
		}
	case "params":
		if _, ok := value.(*params.Params); !ok {
			return newFieldError(name, "must be a parameter bag")
		}
	}
	return nil
}

func isHex(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

func isAlnum(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
