package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/Project-Sylos/Stash/internal/request"
	"github.com/Project-Sylos/Stash/internal/types"
)

// sniffSize is how much of a downloaded file is inspected for an error envelope
const sniffSize = 250

var (
	ErrFileNotFound    = errors.New("a filename must be specified and the file must exist")
	ErrOutputDirectory = errors.New("output directory does not exist")
)

// errorCodes are the envelope codes that mark a download as failed
var errorCodes = map[types.Code]bool{
	types.CodeBadRequest:  true,
	types.CodeForbidden:   true,
	types.CodeNotFound:    true,
	types.CodeServerError: true,
}

// Upload sends the request as multipart/form-data: a "params" field holding the
// signed JSON body and a "file" field holding the content of path.
func (t *Transport) Upload(ctx context.Context, req *request.Request, path string) (*types.Response, error) {
	if path == "" {
		return nil, errors.WithStack(ErrFileNotFound)
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, errors.Wrap(ErrFileNotFound, path)
	}

	payload, err := req.JSON()
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode request")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open upload file")
	}
	defer f.Close()

	// stream the multipart body so large files are not held in memory
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeMultipart(mw, payload, filepath.Base(path), f))
	}()

	resp, fault := t.do(ctx, req, pr, mw.FormDataContentType())
	if fault != nil {
		pr.CloseWithError(errors.New("request aborted"))
		return fault, nil
	}
	defer resp.Body.Close()

	t.logger.Info("uploaded file", "op", req.Op.String(), "file", path, "bytes", info.Size())
	return t.readEnvelope(req, resp), nil
}

func writeMultipart(mw *multipart.Writer, payload []byte, name string, content io.Reader) error {
	if err := mw.WriteField("params", string(payload)); err != nil {
		return err
	}
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, content); err != nil {
		return err
	}
	return mw.Close()
}

// Download streams the response body into path. When the vault answers with an
// error envelope instead of file content, the partial file is removed and the
// envelope returned. On success the result is {code:"200", fileName:path}.
func (t *Transport) Download(ctx context.Context, req *request.Request, path string) (*types.Response, error) {
	if path == "" {
		return nil, errors.New("an output filename must be specified")
	}
	dir := filepath.Dir(path)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil, errors.Wrap(ErrOutputDirectory, dir)
	}

	payload, err := req.JSON()
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode request")
	}

	resp, fault := t.do(ctx, req, bytes.NewReader(payload), "application/json")
	if fault != nil {
		return fault, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return t.readEnvelope(req, resp), nil
	}

	out, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create output file")
	}
	n, copyErr := io.Copy(out, resp.Body)
	closeErr := out.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(path)
		if copyErr == nil {
			copyErr = closeErr
		}
		return t.fault(req, copyErr), nil
	}

	if env := sniffEnvelope(path); env != nil {
		os.Remove(path)
		t.logger.Debug("download returned error envelope", "op", req.Op.String(), "code", string(env.Code))
		return env, nil
	}

	t.logger.Info("downloaded file", "op", req.Op.String(), "file", path, "bytes", n)
	return types.NewResponse(types.CodeOK, "OK").Set("fileName", path), nil
}

// sniffEnvelope reports an error envelope at the head of a downloaded file.
// Any failure while checking leaves the file as valid content.
func sniffEnvelope(path string) *types.Response {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	head := make([]byte, sniffSize)
	n, _ := io.ReadFull(f, head)
	head = bytes.TrimSpace(head[:n])
	if len(head) == 0 || head[0] != '{' || !json.Valid(head) {
		return nil
	}

	env, err := types.DecodeResponse(head)
	if err != nil || !errorCodes[env.Code] {
		return nil
	}
	return env
}
