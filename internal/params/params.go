package params

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Params is an insertion-ordered parameter bag.
// Request signing depends on the order keys were added, so Params never sorts.
// A nil *Params behaves like an empty bag for every read method.
type Params struct {
	keys   []string
	values map[string]any
}

// New creates an empty parameter bag
func New() *Params {
	return &Params{values: make(map[string]any)}
}

// Of builds a parameter bag from alternating key/value arguments
func Of(kv ...any) *Params {
	if len(kv)%2 != 0 {
		panic("params.Of requires an even number of arguments")
	}

	p := New()
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("params.Of key at position %d is %T, not string", i, kv[i]))
		}
		p.Set(key, kv[i+1])
	}
	return p
}

// Set stores value under key. An existing key keeps its position.
func (p *Params) Set(key string, value any) *Params {
	if p.values == nil {
		p.values = make(map[string]any)
	}
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
	return p
}

// Get returns the raw value stored under key
func (p *Params) Get(key string) (any, bool) {
	if p == nil || p.values == nil {
		return nil, false
	}
	v, ok := p.values[key]
	return v, ok
}

// Has reports whether key is present (even with a nil value)
func (p *Params) Has(key string) bool {
	_, ok := p.Get(key)
	return ok
}

// Delete removes key, preserving the order of the remaining keys
func (p *Params) Delete(key string) {
	if p == nil || p.values == nil {
		return
	}
	if _, ok := p.values[key]; !ok {
		return
	}
	delete(p.values, key)
	for i, k := range p.keys {
		if k == key {
			p.keys = append(p.keys[:i:i], p.keys[i+1:]...)
			break
		}
	}
}

// Keys returns a copy of the keys in insertion order
func (p *Params) Keys() []string {
	if p == nil {
		return nil
	}
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

// Len returns the number of keys
func (p *Params) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

// Clone returns a shallow copy
func (p *Params) Clone() *Params {
	out := New()
	if p == nil {
		return out
	}
	for _, k := range p.keys {
		out.Set(k, p.values[k])
	}
	return out
}

// Merge returns a new bag holding p followed by others.
// Later values replace earlier ones but the first position of a key wins.
func (p *Params) Merge(others ...*Params) *Params {
	out := p.Clone()
	for _, o := range others {
		if o == nil {
			continue
		}
		for _, k := range o.keys {
			out.Set(k, o.values[k])
		}
	}
	return out
}

// Str returns the scalar value under key rendered as a string.
// Missing keys, nil values and non-scalar values return "".
func (p *Params) Str(key string) string {
	v, ok := p.Get(key)
	if !ok {
		return ""
	}
	s, _ := Scalar(v)
	return s
}

// Int returns the value under key as an integer.
// Numeric strings are accepted; anything non-numeric reports false.
func (p *Params) Int(key string) (int64, bool) {
	v, ok := p.Get(key)
	if !ok || v == nil {
		return 0, false
	}
	return ToInt(v)
}

// ListLen returns the number of elements of a list value, or 0 when key is not a list
func (p *Params) ListLen(key string) int {
	v, ok := p.Get(key)
	if !ok {
		return 0
	}
	switch l := v.(type) {
	case []string:
		return len(l)
	case []any:
		return len(l)
	case []int:
		return len(l)
	case []int64:
		return len(l)
	}
	return 0
}

// Strings returns a list value as strings; scalar elements are converted
func (p *Params) Strings(key string) []string {
	v, ok := p.Get(key)
	if !ok {
		return nil
	}
	switch l := v.(type) {
	case []string:
		out := make([]string, len(l))
		copy(out, l)
		return out
	case []any:
		out := make([]string, 0, len(l))
		for _, e := range l {
			s, _ := Scalar(e)
			out = append(out, s)
		}
		return out
	}
	return nil
}

// IsEmpty reports whether the value under key is missing or "empty":
// nil, "", "0", zero numbers, false, or a zero-length list or bag.
func (p *Params) IsEmpty(key string) bool {
	v, ok := p.Get(key)
	if !ok || v == nil {
		return true
	}
	switch t := v.(type) {
	case string:
		return t == "" || t == "0"
	case bool:
		return !t
	case *Params:
		return t.Len() == 0
	case []string, []any, []int, []int64:
		return p.ListLen(key) == 0
	}
	if n, ok := ToInt(v); ok {
		if n != 0 {
			return false
		}
		if f, isFloat := toFloat(v); isFloat {
			return f == 0
		}
		return true
	}
	return false
}

// Scalar renders a scalar value the way the wire format expects.
// Booleans become "1"/"0". The second result is false for non-scalar values.
func Scalar(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", true
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case bool:
		if t {
			return "1", true
		}
		return "0", true
	case int:
		return strconv.Itoa(t), true
	case int8:
		return strconv.FormatInt(int64(t), 10), true
	case int16:
		return strconv.FormatInt(int64(t), 10), true
	case int32:
		return strconv.FormatInt(int64(t), 10), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case uint:
		return strconv.FormatUint(uint64(t), 10), true
	case uint8:
		return strconv.FormatUint(uint64(t), 10), true
	case uint16:
		return strconv.FormatUint(uint64(t), 10), true
	case uint32:
		return strconv.FormatUint(uint64(t), 10), true
	case uint64:
		return strconv.FormatUint(t, 10), true
	case float32:
		return formatFloat(float64(t), 32), true
	case float64:
		return formatFloat(t, 64), true
	}
	return "", false
}

// formatFloat renders f exactly as encoding/json writes it, so a value signed
// by the client canonicalizes to the same text after a trip through the body.
func formatFloat(f float64, bits int) string {
	format := byte('f')
	if abs := math.Abs(f); abs != 0 {
		if bits == 64 && (abs < 1e-6 || abs >= 1e21) ||
			bits == 32 && (float32(abs) < 1e-6 || float32(abs) >= 1e21) {
			format = 'e'
		}
	}
	b := strconv.AppendFloat(nil, f, format, -1, bits)
	if format == 'e' {
		// e-07 becomes e-7
		if n := len(b); n >= 4 && b[n-4] == 'e' && b[n-3] == '-' && b[n-2] == '0' {
			b[n-2] = b[n-1]
			b = b[:n-1]
		}
	}
	return string(b)
}

// ToInt converts integer kinds, integral floats, booleans, json.Number and numeric
// strings to int64. Fractional values and values outside the int64 range report false.
func ToInt(v any) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int8:
		return int64(t), true
	case int16:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case uint8:
		return int64(t), true
	case uint16:
		return int64(t), true
	case uint32:
		return int64(t), true
	case uint:
		return fromUint(uint64(t))
	case uint64:
		return fromUint(t)
	case float32:
		return fromFloat(float64(t))
	case float64:
		return fromFloat(t)
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case json.Number:
		return parseIntString(t.String())
	case string:
		return parseIntString(t)
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float32:
		return float64(t), true
	case float64:
		return t, true
	}
	return 0, false
}

func parseIntString(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return fromFloat(f)
	}
	return 0, false
}

func fromUint(u uint64) (int64, bool) {
	if u > math.MaxInt64 {
		return 0, false
	}
	return int64(u), true
}

func fromFloat(f float64) (int64, bool) {
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// MarshalJSON encodes the bag as a JSON object in insertion order.
// HTML characters and forward slashes are left unescaped when it is called
// directly. json.Marshal re-escapes HTML characters in its output, so callers
// that need the exact text use MarshalJSON or an Encoder with SetEscapeHTML(false).
func (p *Params) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if p != nil {
		for i, k := range p.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeValue(&buf, k); err != nil {
				return nil, err
			}
			buf.WriteByte(':')
			if err := encodeValue(&buf, p.values[k]); err != nil {
				return nil, fmt.Errorf("failed to encode param %q: %w", k, err)
			}
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func encodeValue(buf *bytes.Buffer, v any) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}

// UnmarshalJSON decodes a JSON object keeping key order.
// Nested objects become *Params, arrays []any and numbers json.Number.
func (p *Params) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("params: expected JSON object, got %v", tok)
	}

	decoded, err := decodeObject(dec)
	if err != nil {
		return err
	}
	*p = *decoded
	return nil
}

func decodeObject(dec *json.Decoder) (*Params, error) {
	out := New()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("params: expected object key, got %v", tok)
		}
		val, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		out.Set(key, val)
	}
	// closing '}'
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(dec)
		case '[':
			list := make([]any, 0)
			for dec.More() {
				v, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				list = append(list, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return list, nil
		}
		return nil, fmt.Errorf("params: unexpected delimiter %v", t)
	default:
		return t, nil
	}
}
