package transport

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Project-Sylos/Stash/internal/auth"
	"github.com/Project-Sylos/Stash/internal/params"
	"github.com/Project-Sylos/Stash/internal/request"
	"github.com/Project-Sylos/Stash/internal/types"
	"github.com/Project-Sylos/Stash/internal/validate"
)

const (
	testID     = "0123456789abcdef0123456789abcdef"
	testSecret = "abcdefghijABCDEFGHIJ0123456789klmnopqrst"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func buildRequest(t *testing.T, baseURL string, op validate.Operation, p *params.Params) *request.Request {
	t.Helper()
	creds, err := auth.NewCredentials(testID, testSecret, auth.DefaultProfile())
	if err != nil {
		t.Fatalf("NewCredentials: %v", err)
	}
	b, err := request.NewBuilder(creds, baseURL)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	req, err := b.Build(op, p)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return req
}

func TestWithTimeoutLeavesSharedClientAlone(t *testing.T) {
	shared := &http.Client{Timeout: 5 * time.Second}
	defaultTimeout := http.DefaultClient.Timeout

	tests := []struct {
		name   string
		client *http.Client
		before time.Duration
	}{
		{"caller client", shared, 5 * time.Second},
		{"default client", http.DefaultClient, defaultTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := New(WithHTTPClient(tt.client), WithTimeout(time.Second))
			if tr.client.Timeout != time.Second {
				t.Errorf("transport timeout = %v, want 1s", tr.client.Timeout)
			}
			if tr.client == tt.client {
				t.Error("transport shares the caller's client after WithTimeout")
			}
			if tt.client.Timeout != tt.before {
				t.Errorf("caller's client timeout changed to %v", tt.client.Timeout)
			}
		})
	}
}

func TestSend(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantCode    types.Code
		wantMessage string
	}{
		{"ok envelope", http.StatusOK, `{"code":200,"message":"OK","folderId":7}`, types.CodeOK, "OK"},
		{"error envelope", http.StatusOK,
			`{"code":"401","message":"Unauthorized","error":{"errorCode":"401","extendedErrorMessage":"Invalid ID or Request Signature"}}`,
			types.CodeUnauthorized, "Unauthorized"},
		{"envelope on error status", http.StatusForbidden, `{"code":"403","message":"Forbidden"}`, types.CodeForbidden, "Forbidden"},
		{"plain error status", http.StatusBadGateway, "upstream down", "502", "upstream down"},
		{"malformed ok", http.StatusOK, "<html>", types.CodeServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotCT, gotID string
			var gotBody []byte
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotCT = r.Header.Get("Content-Type")
				gotID = r.Header.Get(RequestIDHeader)
				gotBody, _ = io.ReadAll(r.Body)
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			req := buildRequest(t, srv.URL, validate.OpCreateDirectory, params.Of("folderId", 1))
			resp, err := New(WithLogger(quietLogger())).Send(context.Background(), req)
			if err != nil {
				t.Fatalf("Send: %v", err)
			}
			if resp.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", resp.Code, tt.wantCode)
			}
			if tt.wantMessage != "" && resp.Message != tt.wantMessage {
				t.Errorf("message = %q, want %q", resp.Message, tt.wantMessage)
			}
			if gotCT != "application/json" {
				t.Errorf("content type = %q", gotCT)
			}
			if _, err := uuid.Parse(gotID); err != nil {
				t.Errorf("request id %q is not a uuid", gotID)
			}
			want, _ := req.JSON()
			if string(gotBody) != string(want) {
				t.Errorf("body = %s, want %s", gotBody, want)
			}
		})
	}
}

func TestSendNetworkFault(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	req := buildRequest(t, url, validate.OpGetVaultInfo, nil)
	resp, err := New(WithLogger(quietLogger())).Send(context.Background(), req)
	if err != nil {
		t.Fatalf("network failure must not be a Go error: %v", err)
	}
	if resp.Code != types.CodeServerError || resp.Message == "" {
		t.Errorf("expected synthetic 500 envelope, got %s", resp)
	}
}

func TestSendRateLimited(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		io.WriteString(w, `{"code":"200","message":"OK"}`)
	}))
	defer srv.Close()

	tr := New(WithLogger(quietLogger()), WithRateLimit(1, 1))
	req := buildRequest(t, srv.URL, validate.OpGetVaultInfo, nil)

	if resp, _ := tr.Send(context.Background(), req); !resp.OK() {
		t.Fatalf("first send: %s", resp)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	resp, err := tr.Send(ctx, req)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if resp.Code != types.CodeServerError {
		t.Errorf("expected limiter wait to fail as a fault, got %s", resp)
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Errorf("server hits = %d, want 1", got)
	}
}

func TestUpload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.txt")
	if err := os.WriteFile(path, []byte("quarterly numbers"), 0o644); err != nil {
		t.Fatal(err)
	}

	var gotParams, gotName, gotContent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
			return
		}
		gotParams = r.FormValue("params")
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			return
		}
		defer f.Close()
		gotName = hdr.Filename
		b, _ := io.ReadAll(f)
		gotContent = string(b)
		io.WriteString(w, `{"code":"200","message":"OK","fileId":11,"fileAliasId":12}`)
	}))
	defer srv.Close()

	req := buildRequest(t, srv.URL, validate.OpWrite, params.Of(
		"destFolderNames", []string{"My Home", "Documents"},
		"fileKey", "secret-file-key"))
	resp, err := New(WithLogger(quietLogger())).Upload(context.Background(), req, path)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if !resp.OK() {
		t.Fatalf("unexpected response %s", resp)
	}
	if id, _ := resp.Int("fileId"); id != 11 {
		t.Errorf("fileId = %d", id)
	}
	want, _ := req.JSON()
	if gotParams != string(want) {
		t.Errorf("params field = %s, want %s", gotParams, want)
	}
	if gotName != "report.txt" || gotContent != "quarterly numbers" {
		t.Errorf("file part = %q %q", gotName, gotContent)
	}
}

func TestUploadMissingFile(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	req := buildRequest(t, srv.URL, validate.OpWrite, params.Of(
		"destFolderId", 3, "fileKey", "k"))
	tr := New(WithLogger(quietLogger()))

	for _, path := range []string{"", filepath.Join(t.TempDir(), "absent.bin"), t.TempDir()} {
		if _, err := tr.Upload(context.Background(), req, path); err == nil {
			t.Errorf("Upload(%q) expected error", path)
		}
	}
	if hits != 0 {
		t.Errorf("no request should reach the server, got %d", hits)
	}
}

func TestDownload(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode types.Code
		wantFile bool
	}{
		{"content", http.StatusOK, "plain file bytes", types.CodeOK, true},
		{"json content without error code", http.StatusOK, `{"code":"200","note":"a json document"}`, types.CodeOK, true},
		{"not found envelope", http.StatusOK, `{"code":"404","message":"Not Found"}`, types.CodeNotFound, false},
		{"bad request envelope", http.StatusOK,
			`{"code":400,"message":"Bad Request","error":{"errorCode":400,"extendedErrorMessage":"Invalid or Timestamp Exceeded"}}`,
			types.CodeBadRequest, false},
		{"unauthorized envelope is content", http.StatusOK, `{"code":"401","message":"Unauthorized"}`, types.CodeOK, true},
		{"error status", http.StatusForbidden, `{"code":"403","message":"Forbidden"}`, types.CodeForbidden, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			out := filepath.Join(t.TempDir(), "out.bin")
			req := buildRequest(t, srv.URL, validate.OpRead, params.Of("fileId", 5, "fileKey", "k"))
			resp, err := New(WithLogger(quietLogger())).Download(context.Background(), req, out)
			if err != nil {
				t.Fatalf("Download: %v", err)
			}
			if resp.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", resp.Code, tt.wantCode)
			}

			data, statErr := os.ReadFile(out)
			if tt.wantFile {
				if statErr != nil {
					t.Fatalf("expected output file: %v", statErr)
				}
				if string(data) != tt.body {
					t.Errorf("file content = %q", data)
				}
				if resp.Str("fileName") != out {
					t.Errorf("fileName = %q", resp.Str("fileName"))
				}
			} else if !os.IsNotExist(statErr) {
				t.Errorf("expected output file to be removed, stat err = %v", statErr)
			}
		})
	}
}

func TestDownloadMissingDirectory(t *testing.T) {
	req := buildRequest(t, "http://127.0.0.1:1", validate.OpRead, params.Of("fileId", 5, "fileKey", "k"))
	out := filepath.Join(t.TempDir(), "missing", "out.bin")
	_, err := New(WithLogger(quietLogger())).Download(context.Background(), req, out)
	if err == nil || !strings.Contains(err.Error(), "output directory does not exist") {
		t.Errorf("expected output directory error, got %v", err)
	}
}
