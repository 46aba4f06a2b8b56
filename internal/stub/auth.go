package stub

import (
	"crypto/hmac"
	"strings"
	"time"

	"github.com/Project-Sylos/Stash/internal/auth"
	"github.com/Project-Sylos/Stash/internal/filekey"
	"github.com/Project-Sylos/Stash/internal/params"
	"github.com/Project-Sylos/Stash/internal/types"
)

// Envelope texts the vault uses for authentication failures
const (
	MsgInvalidID        = "Invalid ID or Request Signature"
	MsgInvalidSignature = "Invalid Message Authentication Signature"
	MsgInvalidTimestamp = "Invalid or Timestamp Exceeded"
	MsgInvalidFileKey   = "Invalid fileKey"
)

// Account is one API identity the stub accepts, together with the vault
// account it belongs to
type Account struct {
	Credentials auth.Credentials
	Username    string
	Password    string
}

// FileKey returns the fileKey a client sends for this account: the account
// password encrypted with the API secret, hex encoded
func (a Account) FileKey() (string, error) {
	return filekey.Encrypt(a.Credentials.Secret(), a.Password, true)
}

// checkFileKey reports whether key decrypts to the account password
func (a Account) checkFileKey(key string) bool {
	pw, err := filekey.Decrypt(a.Credentials.Secret(), key, true)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(pw), []byte(a.Password))
}

type authenticator struct {
	accounts map[string]Account
	maxSkew  time.Duration
	now      func() time.Time
}

// authenticate checks a request body in the order the vault does: known id,
// api version, fresh timestamp, then signature. requestPath must be the tail
// of the signed url.
func (a *authenticator) authenticate(body *params.Params, requestPath string) (*Account, *types.Response) {
	acct, ok := a.accounts[body.Str(auth.FieldID)]
	if !ok {
		return nil, types.NewErrorResponse(types.CodeUnauthorized, "Unauthorized", MsgInvalidID)
	}
	profile := acct.Credentials.Profile()

	version, _ := body.Get(auth.FieldVersion)
	if err := auth.ValidateField(profile, auth.FieldVersion, version); err != nil {
		return nil, types.NewErrorResponse(types.CodeBadRequest, "Bad Request", err.Error())
	}

	stamp, _ := body.Get(auth.FieldTimestamp)
	if err := auth.ValidateField(profile, auth.FieldTimestamp, stamp); err != nil {
		return nil, types.NewErrorResponse(types.CodeBadRequest, "Bad Request", MsgInvalidTimestamp)
	}
	ts, _ := body.Int(auth.FieldTimestamp)
	skew := a.now().Sub(time.Unix(ts, 0))
	if skew < 0 {
		skew = -skew
	}
	if skew > a.maxSkew {
		return nil, types.NewErrorResponse(types.CodeBadRequest, "Bad Request", MsgInvalidTimestamp)
	}

	if !strings.HasSuffix(strings.TrimRight(body.Str(auth.FieldURL), "/"), strings.TrimRight(requestPath, "/")) {
		return nil, types.NewErrorResponse(types.CodeUnauthorized, "Unauthorized", MsgInvalidID)
	}

	signature, _ := body.Get(auth.FieldSignature)
	if err := auth.ValidateField(profile, auth.FieldSignature, signature); err != nil {
		return nil, types.NewErrorResponse(types.CodeUnauthorized, "Unauthorized", MsgInvalidSignature)
	}

	valid, err := auth.Verify(profile.Canonicalization, body, acct.Credentials.Secret())
	if err != nil || !valid {
		return nil, types.NewErrorResponse(types.CodeUnauthorized, "Unauthorized", MsgInvalidSignature)
	}
	return &acct, nil
}
