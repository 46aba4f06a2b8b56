package vault

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/Project-Sylos/Stash/internal/params"
	"github.com/Project-Sylos/Stash/internal/transport"
	"github.com/Project-Sylos/Stash/internal/types"
	"github.com/Project-Sylos/Stash/internal/validate"
)

var (
	ErrOverwriteTargetMissing = errors.New("Unable to Upload File, Overwrite Requested, but File Does Not Exist")
	ErrFileExists             = errors.New("Unable to Upload File, File with Same Name Already Exists in Destination Folder and Overwrite Not Requested")
)

// GetFile downloads the file named by src into outPath.
// src must carry the fileKey the file was stored with.
func (c *Client) GetFile(ctx context.Context, src *params.Params, outPath string) (*types.Response, error) {
	return c.download(ctx, validate.OpRead, src, outPath)
}

// PutFile uploads localPath into the destination named by dst. Before
// uploading it asks the vault whether a file of the same name exists: an
// overwrite needs the target to exist, a plain write needs it not to.
func (c *Client) PutFile(ctx context.Context, localPath string, dst *params.Params) (*types.Response, error) {
	if info, err := os.Stat(localPath); localPath == "" || err != nil || info.IsDir() {
		return nil, errors.Wrap(transport.ErrFileNotFound, localPath)
	}
	if err := validate.Params(validate.OpWrite, dst); err != nil {
		return nil, err
	}

	overwrite := false
	if n, ok := dst.Int("overwriteFile"); ok && n == 1 {
		overwrite = true
	}

	probe := params.Of("fileName", filepath.Base(localPath))
	if overwrite {
		id, _ := dst.Int("overwriteFileId")
		probe.Set("fileId", id)
	} else {
		if v, ok := dst.Get("destFolderNames"); ok && !dst.IsEmpty("destFolderNames") {
			probe.Set("folderNames", v)
		}
		if id, ok := dst.Int("destFolderId"); ok && id > 0 {
			probe.Set("folderId", id)
		}
	}

	info, err := c.GetFileInfo(ctx, probe)
	if err != nil {
		return nil, err
	}
	switch {
	case overwrite && info.Code == types.CodeNotFound:
		return nil, errors.WithStack(ErrOverwriteTargetMissing)
	case !overwrite && info.OK():
		return nil, errors.WithStack(ErrFileExists)
	case !info.OK() && info.Code != types.CodeNotFound:
		// the existence check itself failed (auth, network)
		return info, nil
	}

	return c.upload(ctx, validate.OpWrite, dst, localPath)
}

// CopyFile copies a file, creating new storage for it
func (c *Client) CopyFile(ctx context.Context, src, dst *params.Params) (*types.Response, error) {
	return c.sendPair(ctx, validate.OpCopy, src, dst)
}

// RenameFile renames a file in place
func (c *Client) RenameFile(ctx context.Context, src, dst *params.Params) (*types.Response, error) {
	return c.sendPair(ctx, validate.OpRename, src, dst)
}

// MoveFile moves a file to another folder without touching storage
func (c *Client) MoveFile(ctx context.Context, src, dst *params.Params) (*types.Response, error) {
	return c.sendPair(ctx, validate.OpMove, src, dst)
}

// DeleteFile deletes a file
func (c *Client) DeleteFile(ctx context.Context, src *params.Params) (*types.Response, error) {
	return c.Do(ctx, validate.OpDelete, src)
}

// GetFileInfo returns metadata for a file; a missing file is code 404
func (c *Client) GetFileInfo(ctx context.Context, src *params.Params) (*types.Response, error) {
	return c.Do(ctx, validate.OpGetFileInfo, src)
}

func (c *Client) SetFileLock(ctx context.Context, src *params.Params) (*types.Response, error) {
	return c.Do(ctx, validate.OpSetFileLock, src)
}

func (c *Client) GetFileLock(ctx context.Context, src *params.Params) (*types.Response, error) {
	return c.Do(ctx, validate.OpGetFileLock, src)
}

func (c *Client) ClearFileLock(ctx context.Context, src *params.Params) (*types.Response, error) {
	return c.Do(ctx, validate.OpClearFileLock, src)
}

// GetTags returns the tags on a file
func (c *Client) GetTags(ctx context.Context, src *params.Params) (*types.Response, error) {
	return c.Do(ctx, validate.OpGetTags, src)
}

// SetTags replaces the tags on a file
func (c *Client) SetTags(ctx context.Context, src *params.Params, tags []string) (*types.Response, error) {
	return c.Do(ctx, validate.OpSetTags, src.Clone().Set("tags", tags))
}

func (c *Client) AddTag(ctx context.Context, src *params.Params, tag string) (*types.Response, error) {
	return c.Do(ctx, validate.OpAddTag, src.Clone().Set("tag", tag))
}

func (c *Client) DeleteTag(ctx context.Context, src *params.Params, tag string) (*types.Response, error) {
	return c.Do(ctx, validate.OpDeleteTag, src.Clone().Set("tag", tag))
}

// ListVersions lists the stored versions of a file
func (c *Client) ListVersions(ctx context.Context, src *params.Params) (*types.Response, error) {
	return c.Do(ctx, validate.OpListVersions, src)
}

// ReadVersion downloads one version of a file into outPath
func (c *Client) ReadVersion(ctx context.Context, src *params.Params, versionID int64, outPath string) (*types.Response, error) {
	return c.download(ctx, validate.OpReadVersion, src.Clone().Set("versionId", versionID), outPath)
}

func (c *Client) RestoreVersion(ctx context.Context, src *params.Params, versionID int64) (*types.Response, error) {
	return c.Do(ctx, validate.OpRestoreVersion, src.Clone().Set("versionId", versionID))
}

func (c *Client) DeleteVersion(ctx context.Context, src *params.Params, versionID int64) (*types.Response, error) {
	return c.Do(ctx, validate.OpDeleteVersion, src.Clone().Set("versionId", versionID))
}

// sendPair merges a source and destination identifier; dst wins on shared keys
func (c *Client) sendPair(ctx context.Context, op validate.Operation, src, dst *params.Params) (*types.Response, error) {
	return c.Do(ctx, op, src.Merge(dst))
}
