package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/pkg/errors"

	"github.com/Project-Sylos/Stash/internal/params"
)

var requiredFields = []string{FieldURL, FieldVersion, FieldID, FieldTimestamp}

// Sign computes the lowercase hex HMAC-SHA-256 of canonical keyed by secret
func Sign(canonical []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(canonical)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignBag checks the required protocol fields, canonicalizes bag and signs it
func SignBag(strategy Canonicalization, bag *params.Params, secret string) (string, error) {
	for _, field := range requiredFields {
		if missing(bag, field) {
			return "", errors.WithStack(&SignatureError{Field: field})
		}
	}

	canonical, err := Canonical(strategy, bag)
	if err != nil {
		return "", err
	}
	return Sign(canonical, secret), nil
}

// Verify recomputes the signature of bag and compares it with the api_signature it carries
func Verify(strategy Canonicalization, bag *params.Params, secret string) (bool, error) {
	got := bag.Str(FieldSignature)
	if got == "" {
		return false, errors.WithStack(&SignatureError{Field: FieldSignature})
	}

	want, err := SignBag(strategy, bag, secret)
	if err != nil {
		return false, err
	}
	return hmac.Equal([]byte(want), []byte(got)), nil
}

func missing(bag *params.Params, field string) bool {
	if field == FieldTimestamp {
		ts, ok := bag.Int(field)
		return !ok || ts <= 0
	}
	return bag.Str(field) == ""
}
