package auth

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/Project-Sylos/Stash/internal/params"
)

// Wire names of the signed request fields
const (
	FieldURL       = "url"
	FieldVersion   = "api_version"
	FieldID        = "api_id"
	FieldTimestamp = "api_timestamp"
	FieldSignature = "api_signature"
)

// Fields are the protocol fields that precede the caller params in a signed request
type Fields struct {
	URL       string
	Version   string
	ID        string
	Timestamp int64
}

// SigningBag lays out {url, api_version, api_id, api_timestamp} followed by p.
// A caller param reusing a protocol name replaces its value in place.
func SigningBag(f Fields, p *params.Params) *params.Params {
	bag := params.New()
	if f.URL != "" {
		bag.Set(FieldURL, f.URL)
	}
	if f.Version != "" {
		bag.Set(FieldVersion, f.Version)
	}
	if f.ID != "" {
		bag.Set(FieldID, f.ID)
	}
	if f.Timestamp > 0 {
		bag.Set(FieldTimestamp, f.Timestamp)
	}
	return bag.Merge(p)
}

// Canonical serializes bag with the given strategy after dropping any api_signature
func Canonical(strategy Canonicalization, bag *params.Params) ([]byte, error) {
	clean := bag.Clone()
	clean.Delete(FieldSignature)

	switch strategy {
	case CanonicalURLEncoded:
		return []byte(BuildQuery(clean)), nil
	case CanonicalJSON:
		b, err := clean.MarshalJSON()
		if err != nil {
			return nil, errors.Wrap(err, "failed to encode canonical JSON")
		}
		return b, nil
	}
	return nil, errors.Errorf("unknown canonicalization %q", strategy)
}

// BuildQuery renders bag as key=value pairs joined by '&'.
// Lists expand to key[0]=a&key[1]=b, nested bags to key[sub]=v, nil values are skipped.
func BuildQuery(bag *params.Params) string {
	parts := make([]string, 0, bag.Len())
	for _, k := range bag.Keys() {
		v, _ := bag.Get(k)
		appendQuery(&parts, queryEscape(k), v)
	}
	return strings.Join(parts, "&")
}

func appendQuery(parts *[]string, prefix string, v any) {
	switch t := v.(type) {
	case nil:
		return
	case *params.Params:
		for _, k := range t.Keys() {
			sub, _ := t.Get(k)
			appendQuery(parts, prefix+"%5B"+queryEscape(k)+"%5D", sub)
		}
	case []string:
		for i, s := range t {
			appendQuery(parts, indexKey(prefix, i), s)
		}
	case []any:
		for i, e := range t {
			appendQuery(parts, indexKey(prefix, i), e)
		}
	case []int:
		for i, n := range t {
			appendQuery(parts, indexKey(prefix, i), n)
		}
	case []int64:
		for i, n := range t {
			appendQuery(parts, indexKey(prefix, i), n)
		}
	default:
		s, ok := params.Scalar(t)
		if !ok {
			return
		}
		*parts = append(*parts, prefix+"="+queryEscape(s))
	}
}

func indexKey(prefix string, i int) string {
	return prefix + "%5B" + strconv.Itoa(i) + "%5D"
}

// queryEscape matches RFC 1738 form encoding: space is '+', '~' is escaped
func queryEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "~", "%7E")
}
