// Package vaultfs exposes a vault as a read-only io/fs filesystem. Paths are
// slash separated and relative to "My Home"; "." is the base folder.
package vaultfs

import (
	"context"
	"io/fs"
	"os"
	"path"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/Project-Sylos/Stash/internal/params"
	"github.com/Project-Sylos/Stash/internal/types"
	"github.com/Project-Sylos/Stash/internal/vault"
	"github.com/Project-Sylos/Stash/internal/vault/models"
)

// FS reads folders and files through a vault client. File content is
// downloaded whole on Open.
type FS struct {
	ctx     context.Context
	client  *vault.Client
	fileKey string
}

var (
	_ fs.FS         = (*FS)(nil)
	_ fs.StatFS     = (*FS)(nil)
	_ fs.ReadDirFS  = (*FS)(nil)
	_ fs.ReadFileFS = (*FS)(nil)
)

// New creates a filesystem over client. fileKey is sent with every download;
// ctx bounds every vault call the filesystem makes.
func New(ctx context.Context, client *vault.Client, fileKey string) *FS {
	return &FS{ctx: ctx, client: client, fileKey: fileKey}
}

// treeEntry is one element of a treemodel listing
type treeEntry struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Date string `json:"date"`
	Size int64  `json:"size"`
}

// Open opens the named file or folder
func (v *FS) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	n, err := v.stat(name)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	if n.isDir {
		entries, err := v.list(name)
		if err != nil {
			return nil, &fs.PathError{Op: "open", Path: name, Err: err}
		}
		return &vaultDir{node: n, entries: entries}, nil
	}
	data, err := v.download(name)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	return newVaultFile(n, data), nil
}

// Stat describes the named file or folder without downloading it
func (v *FS) Stat(name string) (fs.FileInfo, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrInvalid}
	}
	n, err := v.stat(name)
	if err != nil {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: err}
	}
	return newFileInfo(n), nil
}

// ReadDir lists the named folder sorted by name
func (v *FS) ReadDir(name string) ([]fs.DirEntry, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
	}
	entries, err := v.list(name)
	if err != nil {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: err}
	}
	return entries, nil
}

// ReadFile downloads the named file
func (v *FS) ReadFile(name string) ([]byte, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrInvalid}
	}
	data, err := v.download(name)
	if err != nil {
		return nil, &fs.PathError{Op: "read", Path: name, Err: err}
	}
	return data, nil
}

// stat tries name as a folder first, then as a file
func (v *FS) stat(name string) (*node, error) {
	resp, err := v.client.GetFolderInfo(v.ctx, models.FolderByPath(name))
	if err != nil {
		return nil, err
	}
	if resp.OK() {
		var info struct {
			FolderID     int64 `json:"folderId"`
			DirTimestamp int64 `json:"dirTimestamp"`
		}
		if err := resp.Decode("folderInfo", &info); err != nil {
			return nil, errors.Wrap(err, "malformed folderInfo")
		}
		return &node{
			id:      info.FolderID,
			name:    path.Base(name),
			modTime: time.Unix(info.DirTimestamp, 0).UTC(),
			isDir:   true,
		}, nil
	}
	if resp.Code != types.CodeNotFound || name == "." {
		return nil, responseError(resp)
	}

	resp, err = v.client.GetFileInfo(v.ctx, models.FileByPath(path.Dir(name), path.Base(name)))
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, responseError(resp)
	}
	var info struct {
		FileID        int64 `json:"fileId"`
		FileSize      int64 `json:"fileSize"`
		FileTimestamp int64 `json:"fileTimestamp"`
	}
	if err := resp.Decode("fileInfo", &info); err != nil {
		return nil, errors.Wrap(err, "malformed fileInfo")
	}
	return &node{
		id:      info.FileID,
		name:    path.Base(name),
		size:    info.FileSize,
		modTime: time.Unix(info.FileTimestamp, 0).UTC(),
	}, nil
}

func (v *FS) list(name string) ([]fs.DirEntry, error) {
	folder := models.FolderByPath(name)

	folders, err := v.listing(v.client.ListFolders, folder, "folders")
	if err != nil {
		return nil, err
	}
	files, err := v.listing(v.client.ListFiles, folder, "files")
	if err != nil {
		return nil, err
	}

	nodes := make([]*node, 0, len(folders)+len(files))
	for _, e := range folders {
		nodes = append(nodes, e.node(true))
	}
	for _, e := range files {
		nodes = append(nodes, e.node(false))
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].name < nodes[j].name })

	entries := make([]fs.DirEntry, len(nodes))
	for i, n := range nodes {
		entries[i] = newDirEntry(n)
	}
	return entries, nil
}

type listFunc func(ctx context.Context, src *params.Params) (*types.Response, []string, error)

func (v *FS) listing(fn listFunc, folder *params.Params, field string) ([]treeEntry, error) {
	resp, _, err := fn(v.ctx, models.Listing(folder, types.OutputTreeModel))
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, responseError(resp)
	}
	var out []treeEntry
	if err := resp.Decode(field, &out); err != nil {
		return nil, errors.Wrapf(err, "malformed %s listing", field)
	}
	return out, nil
}

func (e treeEntry) node(isDir bool) *node {
	mod, _ := time.ParseInLocation(time.DateTime, e.Date, time.UTC)
	return &node{id: e.ID, name: e.Name, size: e.Size, modTime: mod, isDir: isDir}
}

// download fetches a file through a temporary file and returns its content
func (v *FS) download(name string) ([]byte, error) {
	tmp, err := os.CreateTemp("", "vaultfs-*")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create temporary file")
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	src := models.FileByPath(path.Dir(name), path.Base(name)).Set("fileKey", v.fileKey)
	resp, err := v.client.GetFile(v.ctx, src, tmpPath)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, responseError(resp)
	}
	return os.ReadFile(tmpPath)
}

// responseError maps a failed envelope onto the io/fs sentinel errors
func responseError(resp *types.Response) error {
	switch resp.Code {
	case types.CodeNotFound:
		return errors.Wrap(fs.ErrNotExist, resp.Detail())
	case types.CodeUnauthorized, types.CodeForbidden:
		return errors.Wrap(fs.ErrPermission, resp.Detail())
	}
	return errors.Errorf("vault returned %s", resp)
}
