package stub

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"github.com/Project-Sylos/Stash/internal/params"
	"github.com/Project-Sylos/Stash/internal/request"
	"github.com/Project-Sylos/Stash/internal/types"
	"github.com/Project-Sylos/Stash/internal/validate"
)

const (
	maxBodyBytes   = 1 << 20
	maxUploadBytes = 64 << 20
)

// call is one authenticated, validated request
type call struct {
	acct       *Account
	params     *params.Params
	upload     []byte
	uploadName string
}

type opFunc func(w http.ResponseWriter, c *call)

// Handler serves POST /api2/{group}/{action}
type Handler struct {
	store  *Store
	auth   *authenticator
	logger *slog.Logger
	ops    map[validate.Operation]opFunc
}

func newHandler(store *Store, a *authenticator, logger *slog.Logger) *Handler {
	h := &Handler{store: store, auth: a, logger: logger}
	h.ops = map[validate.Operation]opFunc{
		validate.OpRead:   h.read,
		validate.OpWrite:  h.write,
		validate.OpCopy:   h.copyFile,
		validate.OpMove:   h.moveFile,
		validate.OpRename: h.renameFile,
		validate.OpDelete: h.deleteFile,

		validate.OpListAll:              h.listAll,
		validate.OpListFiles:            h.listFiles,
		validate.OpListSmartFolderFiles: h.listSmartFolderFiles,
		validate.OpListFolders:          h.listFolders,

		validate.OpGetFolderID:     h.getFolderID,
		validate.OpCreateDirectory: h.createDirectory,
		validate.OpRenameDirectory: h.renameDirectory,
		validate.OpMoveDirectory:   h.moveDirectory,
		validate.OpCopyDirectory:   h.copyDirectory,
		validate.OpDeleteDirectory: h.deleteDirectory,

		validate.OpGetFileInfo:   h.getFileInfo,
		validate.OpGetFolderInfo: h.getFolderInfo,
		validate.OpGetSyncInfo:   h.getSyncInfo,
		validate.OpGetVaultInfo:  h.getVaultInfo,

		validate.OpSetFileLock:   h.lock(ptr(true)),
		validate.OpClearFileLock: h.lock(ptr(false)),
		validate.OpGetFileLock:   h.lock(nil),

		validate.OpGetTags:   h.tags(nil),
		validate.OpSetTags:   h.tags(setTags),
		validate.OpAddTag:    h.tags(addTag),
		validate.OpDeleteTag: h.tags(deleteTag),

		validate.OpCheckCredentials:   h.checkCredentials,
		validate.OpCheckCredentialsAD: h.checkCredentialsAD,
		validate.OpIsValidUser:        h.isValidUser,

		validate.OpWebEraseToken: h.webEraseToken,
	}
	return h
}

func ptr(b bool) *bool { return &b }

// sendJSON sends an envelope with the HTTP status matching its code
func (h *Handler) sendJSON(w http.ResponseWriter, resp *types.Response) {
	status := resp.Code.Int()
	if status < 100 || status > 599 {
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("Fail to write response", "error", err)
	}
}

func (h *Handler) sendOK(w http.ResponseWriter, kv ...any) {
	resp := types.NewResponse(types.CodeOK, "OK")
	for i := 0; i+1 < len(kv); i += 2 {
		resp.Set(kv[i].(string), kv[i+1])
	}
	h.sendJSON(w, resp)
}

func (h *Handler) sendError(w http.ResponseWriter, code types.Code, message, extended string) {
	h.sendJSON(w, types.NewErrorResponse(code, message, extended))
}

// sendStoreError maps store failures onto envelopes
func (h *Handler) sendStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errNotFound):
		h.sendError(w, types.CodeNotFound, "Not Found", err.Error())
	case errors.Is(err, errExists), errors.Is(err, errInvalid):
		h.sendError(w, types.CodeBadRequest, "Bad Request", err.Error())
	default:
		h.logger.Error("Fail to serve request", "error", err)
		h.sendError(w, types.CodeServerError, "Internal Server Error", err.Error())
	}
}

// ServeOperation authenticates, validates and dispatches one vault call
func (h *Handler) ServeOperation(w http.ResponseWriter, r *http.Request) {
	group, action := chi.URLParam(r, "group"), chi.URLParam(r, "action")

	c, err := h.parse(r)
	if err != nil {
		h.sendError(w, types.CodeBadRequest, "Bad Request", err.Error())
		return
	}

	acct, failure := h.auth.authenticate(c.params, r.URL.Path)
	if failure != nil {
		h.logger.Info("rejected request", "path", r.URL.Path, "code", string(failure.Code), "reason", failure.Detail())
		h.sendJSON(w, failure)
		return
	}
	c.acct = acct

	if "api2/"+strings.ToLower(group)+"/"+strings.ToLower(action) == request.LoopbackEndpoint {
		h.sendOK(w)
		return
	}

	op, ok := request.OperationFor(group, action)
	if !ok {
		h.sendError(w, types.CodeNotFound, "Not Found", "Unknown API Endpoint")
		return
	}
	if err := validate.Params(op, c.params); err != nil {
		h.sendError(w, types.CodeBadRequest, "Bad Request", reason(err))
		return
	}

	h.logger.Debug("serving request", "op", op.String(), "api_id", acct.Credentials.ID())
	if fn, found := h.ops[op]; found {
		fn(w, c)
		return
	}
	h.generic(w, op, c)
}

func reason(err error) string {
	var verr *validate.ValidationError
	if errors.As(err, &verr) {
		return verr.Reason
	}
	return err.Error()
}

func (h *Handler) parse(r *http.Request) (*call, error) {
	c := &call{}
	var raw []byte

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return nil, errors.Wrap(err, "invalid multipart body")
		}
		raw = []byte(r.FormValue("params"))
		if f, hdr, err := r.FormFile("file"); err == nil {
			defer f.Close()
			data, err := io.ReadAll(f)
			if err != nil {
				return nil, errors.Wrap(err, "failed to read uploaded file")
			}
			c.upload, c.uploadName = data, hdr.Filename
		}
	} else {
		data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			return nil, errors.Wrap(err, "failed to read body")
		}
		raw = data
	}

	bag := params.New()
	if err := json.Unmarshal(raw, bag); err != nil {
		return nil, errors.New("Invalid Request Body")
	}
	c.params = bag
	return c, nil
}

// requireFileKey answers 403 unless the fileKey belongs to the caller's account
func (h *Handler) requireFileKey(w http.ResponseWriter, c *call) bool {
	if c.acct.checkFileKey(c.params.Str("fileKey")) {
		return true
	}
	h.sendError(w, types.CodeForbidden, "Forbidden", MsgInvalidFileKey)
	return false
}

func (h *Handler) read(w http.ResponseWriter, c *call) {
	if !h.requireFileKey(w, c) {
		return
	}
	data, err := h.store.Read(c.params)
	if err != nil {
		h.sendStoreError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *Handler) write(w http.ResponseWriter, c *call) {
	if !h.requireFileKey(w, c) {
		return
	}
	if c.uploadName == "" {
		h.sendError(w, types.CodeBadRequest, "Bad Request", "No File Uploaded")
		return
	}
	fileID, aliasID, err := h.store.Write(c.params, c.uploadName, c.upload)
	if err != nil {
		h.sendStoreError(w, err)
		return
	}
	h.sendOK(w, "fileId", fileID, "fileAliasId", aliasID)
}

func (h *Handler) copyFile(w http.ResponseWriter, c *call) {
	aliasID, err := h.store.Copy(c.params)
	if err != nil {
		h.sendStoreError(w, err)
		return
	}
	h.sendOK(w, "fileAliasId", aliasID)
}

func (h *Handler) moveFile(w http.ResponseWriter, c *call) {
	aliasID, err := h.store.Move(c.params)
	if err != nil {
		h.sendStoreError(w, err)
		return
	}
	h.sendOK(w, "fileAliasId", aliasID)
}

func (h *Handler) renameFile(w http.ResponseWriter, c *call) {
	h.done(w, h.store.Rename(c.params))
}

func (h *Handler) deleteFile(w http.ResponseWriter, c *call) {
	h.done(w, h.store.Delete(c.params))
}

func (h *Handler) done(w http.ResponseWriter, err error) {
	if err != nil {
		h.sendStoreError(w, err)
		return
	}
	h.sendOK(w)
}

func outputType(p *params.Params) types.OutputType {
	n, _ := p.Int("outputType")
	return types.OutputType(n)
}

func (h *Handler) listAll(w http.ResponseWriter, c *call) {
	entries, err := h.store.ListAll(c.params)
	if err != nil {
		h.sendStoreError(w, err)
		return
	}
	h.sendOK(w, "all", types.OutputGridModel.Format(entries))
}

func (h *Handler) listFiles(w http.ResponseWriter, c *call) {
	entries, err := h.store.ListFiles(c.params)
	if err != nil {
		h.sendStoreError(w, err)
		return
	}
	h.sendOK(w, "files", outputType(c.params).Format(entries))
}

// the stub keeps no SmartFolders, so every SmartFolder is empty
func (h *Handler) listSmartFolderFiles(w http.ResponseWriter, c *call) {
	h.sendOK(w, "files", outputType(c.params).Format(nil))
}

func (h *Handler) listFolders(w http.ResponseWriter, c *call) {
	entries, err := h.store.ListFolders(c.params)
	if err != nil {
		h.sendStoreError(w, err)
		return
	}
	h.sendOK(w, "folders", outputType(c.params).Format(entries))
}

func (h *Handler) getFolderID(w http.ResponseWriter, c *call) {
	h.folderResult(w)(h.store.FolderID(c.params))
}

func (h *Handler) createDirectory(w http.ResponseWriter, c *call) {
	h.folderResult(w)(h.store.CreateDirectory(c.params))
}

func (h *Handler) copyDirectory(w http.ResponseWriter, c *call) {
	h.folderResult(w)(h.store.CopyDirectory(c.params))
}

func (h *Handler) folderResult(w http.ResponseWriter) func(int64, error) {
	return func(id int64, err error) {
		if err != nil {
			h.sendStoreError(w, err)
			return
		}
		h.sendOK(w, "folderId", id)
	}
}

func (h *Handler) renameDirectory(w http.ResponseWriter, c *call) {
	h.done(w, h.store.RenameDirectory(c.params))
}

func (h *Handler) moveDirectory(w http.ResponseWriter, c *call) {
	h.done(w, h.store.MoveDirectory(c.params))
}

func (h *Handler) deleteDirectory(w http.ResponseWriter, c *call) {
	h.done(w, h.store.DeleteDirectory(c.params))
}

func (h *Handler) info(w http.ResponseWriter, field string, info *params.Params, err error) {
	if err != nil {
		h.sendStoreError(w, err)
		return
	}
	h.sendOK(w, field, info)
}

func (h *Handler) getFileInfo(w http.ResponseWriter, c *call) {
	info, err := h.store.FileInfo(c.params)
	h.info(w, "fileInfo", info, err)
}

func (h *Handler) getFolderInfo(w http.ResponseWriter, c *call) {
	info, err := h.store.FolderInfo(c.params)
	h.info(w, "folderInfo", info, err)
}

func (h *Handler) getSyncInfo(w http.ResponseWriter, c *call) {
	info, err := h.store.SyncInfo(c.params)
	h.info(w, "syncInfo", info, err)
}

func (h *Handler) getVaultInfo(w http.ResponseWriter, c *call) {
	h.sendOK(w, "vaultInfo", h.store.VaultInfo())
}

func (h *Handler) lock(set *bool) opFunc {
	return func(w http.ResponseWriter, c *call) {
		locked, err := h.store.Lock(c.params, set)
		if err != nil {
			h.sendStoreError(w, err)
			return
		}
		h.sendOK(w, "fileLock", locked)
	}
}

type tagEdit func(p *params.Params) func([]string) []string

// tagList reads "tags" as a list or a comma separated string
func tagList(p *params.Params) []string {
	if p.ListLen("tags") > 0 {
		return p.Strings("tags")
	}
	var out []string
	for _, t := range strings.Split(p.Str("tags"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func setTags(p *params.Params) func([]string) []string {
	return func([]string) []string { return tagList(p) }
}

func addTag(p *params.Params) func([]string) []string {
	return func(tags []string) []string {
		tag := p.Str("tag")
		for _, t := range tags {
			if t == tag {
				return tags
			}
		}
		return append(tags, tag)
	}
}

func deleteTag(p *params.Params) func([]string) []string {
	return func(tags []string) []string {
		out := tags[:0]
		for _, t := range tags {
			if t != p.Str("tag") {
				out = append(out, t)
			}
		}
		return out
	}
}

func (h *Handler) tags(edit tagEdit) opFunc {
	return func(w http.ResponseWriter, c *call) {
		var fn func([]string) []string
		if edit != nil {
			fn = edit(c.params)
		}
		tags, err := h.store.Tags(c.params, fn)
		if err != nil {
			h.sendStoreError(w, err)
			return
		}
		h.sendOK(w, "tags", tags)
	}
}

func (h *Handler) checkCredentials(w http.ResponseWriter, c *call) {
	if c.params.Str("accountUsername") != c.acct.Username || !c.acct.checkFileKey(c.params.Str("fileKey")) {
		h.sendError(w, types.CodeUnauthorized, "Unauthorized", "Invalid Credentials")
		return
	}
	h.sendOK(w)
}

func (h *Handler) checkCredentialsAD(w http.ResponseWriter, c *call) {
	creds := c.acct.Credentials
	if c.params.Str("accountUsername") != c.acct.Username ||
		c.params.Str("apiid") != creds.ID() ||
		c.params.Str("apipw") != creds.Secret() {
		h.sendError(w, types.CodeUnauthorized, "Unauthorized", "Invalid Credentials")
		return
	}
	h.sendOK(w)
}

func (h *Handler) isValidUser(w http.ResponseWriter, c *call) {
	if c.params.Str("accountUsername") != c.acct.Username {
		h.sendError(w, types.CodeNotFound, "Not Found", "User Not Found")
		return
	}
	h.sendOK(w)
}

func (h *Handler) webEraseToken(w http.ResponseWriter, c *call) {
	h.sendOK(w, "token", h.store.Token())
}

// generic answers operations the stub does not model. WebErase calls must
// still present a token this stub issued.
func (h *Handler) generic(w http.ResponseWriter, op validate.Operation, c *call) {
	if c.params.Has("token_key") && !h.store.ValidToken(c.params.Str("token_key")) {
		h.sendError(w, types.CodeForbidden, "Forbidden", "Invalid token_key")
		return
	}
	switch op {
	case validate.OpCheckPermissions:
		h.sendOK(w, "result", true)
	case validate.OpSetPermissions:
		h.sendOK(w, "permIds", []int64{})
	case validate.OpListVersions:
		h.sendOK(w, "versions", []any{})
	default:
		h.sendOK(w)
	}
}
