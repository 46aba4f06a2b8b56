package request

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/Project-Sylos/Stash/internal/auth"
	"github.com/Project-Sylos/Stash/internal/params"
	"github.com/Project-Sylos/Stash/internal/validate"
)

const (
	testID     = "0123456789abcdef0123456789abcdef"
	testSecret = "abcdefghijABCDEFGHIJ0123456789klmnopqrst"
	testBase   = "https://vault.example.com/"
)

var hexSig = regexp.MustCompile(`^[0-9a-f]{64}$`)

func newTestBuilder(t *testing.T, strategy auth.Canonicalization, now time.Time) *Builder {
	t.Helper()
	profile := auth.DefaultProfile()
	profile.Canonicalization = strategy
	creds, err := auth.NewCredentials(testID, testSecret, profile)
	if err != nil {
		t.Fatalf("NewCredentials: %v", err)
	}
	b, err := NewBuilder(creds, testBase, WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	return b
}

func TestBuildListFolders(t *testing.T) {
	b := newTestBuilder(t, auth.CanonicalURLEncoded, time.Unix(1700000000, 0))

	req, err := b.Build(validate.OpListFolders, params.Of("folderId", 0, "outputType", 1))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !hexSig.MatchString(req.Signature) {
		t.Errorf("signature %q is not 64 lowercase hex characters", req.Signature)
	}
	if req.Timestamp <= 0 {
		t.Errorf("expected positive timestamp, got %d", req.Timestamp)
	}
	if req.URL != "https://vault.example.com/api2/file/listfolders" {
		t.Errorf("unexpected url %q", req.URL)
	}
	if req.ID != testID || req.Version != auth.DefaultVersion {
		t.Errorf("unexpected id/version %q/%q", req.ID, req.Version)
	}
}

func TestBuildIsDeterministicForSameClock(t *testing.T) {
	for _, strategy := range []auth.Canonicalization{auth.CanonicalURLEncoded, auth.CanonicalJSON} {
		t.Run(string(strategy), func(t *testing.T) {
			now := time.Unix(1700000000, 0)
			p := params.Of("fileId", 9, "destFileName", "x y/z.txt", "destFolderId", 5)

			a, err := newTestBuilder(t, strategy, now).Build(validate.OpCopy, p)
			if err != nil {
				t.Fatal(err)
			}
			c, err := newTestBuilder(t, strategy, now).Build(validate.OpCopy, p)
			if err != nil {
				t.Fatal(err)
			}
			if a.Signature != c.Signature {
				t.Errorf("signatures differ: %s vs %s", a.Signature, c.Signature)
			}
		})
	}
}

func TestBuildSignatureMatchesVerify(t *testing.T) {
	for _, strategy := range []auth.Canonicalization{auth.CanonicalURLEncoded, auth.CanonicalJSON} {
		t.Run(string(strategy), func(t *testing.T) {
			b := newTestBuilder(t, strategy, time.Unix(1700000000, 0))
			req, err := b.Build(validate.OpMove, params.Of("fileId", 3, "destFolderNames", []string{"My Home", "a b"}))
			if err != nil {
				t.Fatal(err)
			}

			// decode the wire body the way a server would
			raw, err := req.JSON()
			if err != nil {
				t.Fatal(err)
			}
			var got params.Params
			if err := json.Unmarshal(raw, &got); err != nil {
				t.Fatal(err)
			}
			ok, err := auth.Verify(strategy, &got, testSecret)
			if err != nil {
				t.Fatal(err)
			}
			if !ok {
				t.Error("signature from Build did not verify against the wire body")
			}
		})
	}
}

func TestBuildStripsStaleSignature(t *testing.T) {
	now := time.Unix(1700000000, 0)
	clean, err := newTestBuilder(t, auth.CanonicalURLEncoded, now).Build(validate.OpDelete, params.Of("fileId", 3))
	if err != nil {
		t.Fatal(err)
	}
	stale, err := newTestBuilder(t, auth.CanonicalURLEncoded, now).Build(validate.OpDelete,
		params.Of("fileId", 3, "api_signature", strings.Repeat("0", 64)))
	if err != nil {
		t.Fatal(err)
	}
	if clean.Signature != stale.Signature {
		t.Error("a stale api_signature param changed the signature")
	}
	if stale.Params().Has(auth.FieldSignature) {
		t.Error("request params still carry the stale signature")
	}
}

func TestBuildFreshTimestampPerCall(t *testing.T) {
	tick := int64(1700000000)
	profile := auth.DefaultProfile()
	creds, err := auth.NewCredentials(testID, testSecret, profile)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewBuilder(creds, testBase, WithClock(func() time.Time {
		tick++
		return time.Unix(tick, 0)
	}))
	if err != nil {
		t.Fatal(err)
	}

	p := params.Of("fileId", 1)
	first, _ := b.Build(validate.OpGetFileInfo, p)
	second, _ := b.Build(validate.OpGetFileInfo, p)
	if first.Timestamp == second.Timestamp {
		t.Error("expected a new timestamp for each request")
	}
	if first.Signature == second.Signature {
		t.Error("expected a new signature for each request")
	}
}

func TestBuildRejectsInvalidParams(t *testing.T) {
	b := newTestBuilder(t, auth.CanonicalURLEncoded, time.Now())
	_, err := b.Build(validate.OpCopy, params.Of("fileId", 1))
	var verr *validate.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestBodyOrder(t *testing.T) {
	b := newTestBuilder(t, auth.CanonicalJSON, time.Unix(1700000000, 0))
	req, err := b.Build(validate.OpListAll, params.Of("folderId", -1, "search", "report"))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"url", "api_version", "api_id", "api_timestamp", "api_signature", "folderId", "search"}
	got := req.Body().Keys()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("body order %v, want %v", got, want)
	}

	raw, err := req.JSON()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), `"url":"https://vault.example.com/api2/file/listall"`) {
		t.Errorf("url should be encoded without escaped slashes: %s", raw)
	}
}

func TestRequestParamsAreCopied(t *testing.T) {
	b := newTestBuilder(t, auth.CanonicalURLEncoded, time.Now())
	p := params.Of("fileId", 1)
	req, err := b.Build(validate.OpGetFileInfo, p)
	if err != nil {
		t.Fatal(err)
	}
	p.Set("fileId", 2)
	req.Params().Set("fileId", 3)
	if n, _ := req.Params().Int("fileId"); n != 1 {
		t.Errorf("request params changed after build: fileId=%d", n)
	}
}

func TestNewBuilderRejectsEmpty(t *testing.T) {
	if _, err := NewBuilder(auth.Credentials{}, testBase); err == nil {
		t.Error("expected error for zero credentials")
	}
	creds, _ := auth.NewCredentials(testID, testSecret, auth.DefaultProfile())
	if _, err := NewBuilder(creds, ""); err == nil {
		t.Error("expected error for empty base URL")
	}
}

func TestEndpoints(t *testing.T) {
	for _, op := range validate.Operations() {
		if op == validate.OpNone {
			continue
		}
		if Endpoint(op) == "" {
			t.Errorf("operation %s has no endpoint", op)
		}
	}

	op, ok := OperationFor("File", "ListFolders")
	if !ok || op != validate.OpListFolders {
		t.Errorf("OperationFor(file, listfolders) = %s, %v", op, ok)
	}
	if _, ok := OperationFor("auth", "testloopback"); ok {
		t.Error("testloopback should not map to an operation")
	}
	if got := JoinURL("https://h/", "/api2/x"); got != "https://h/api2/x" {
		t.Errorf("JoinURL = %q", got)
	}
}
