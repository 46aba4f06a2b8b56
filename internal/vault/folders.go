package vault

import (
	"context"

	"github.com/Project-Sylos/Stash/internal/params"
	"github.com/Project-Sylos/Stash/internal/types"
	"github.com/Project-Sylos/Stash/internal/validate"
)

// ListAll lists every file and folder under the folder named by src
func (c *Client) ListAll(ctx context.Context, src *params.Params) (*types.Response, error) {
	return c.Do(ctx, validate.OpListAll, src)
}

// ListFiles lists the files in a folder and extracts their names according
// to the outputType in src
func (c *Client) ListFiles(ctx context.Context, src *params.Params) (*types.Response, []string, error) {
	return c.list(ctx, validate.OpListFiles, src, "files")
}

// ListSmartFolderFiles lists the files matched by the SmartFolder sfId
func (c *Client) ListSmartFolderFiles(ctx context.Context, src *params.Params) (*types.Response, []string, error) {
	return c.list(ctx, validate.OpListSmartFolderFiles, src, "files")
}

// ListFolders lists the subfolders of a folder
func (c *Client) ListFolders(ctx context.Context, src *params.Params) (*types.Response, []string, error) {
	return c.list(ctx, validate.OpListFolders, src, "folders")
}

func (c *Client) list(ctx context.Context, op validate.Operation, src *params.Params, field string) (*types.Response, []string, error) {
	resp, err := c.Do(ctx, op, src)
	if err != nil {
		return nil, nil, err
	}
	n, _ := src.Int("outputType")
	return resp, types.ListingNames(resp, field, types.OutputType(n)), nil
}

// GetFolderID resolves a folder to its id; 0 when the vault returned none
func (c *Client) GetFolderID(ctx context.Context, src *params.Params) (*types.Response, int64, error) {
	return c.withFolderID(c.Do(ctx, validate.OpGetFolderID, src))
}

// CreateDirectory creates the folder named by src, including missing parents
func (c *Client) CreateDirectory(ctx context.Context, src *params.Params) (*types.Response, int64, error) {
	return c.withFolderID(c.Do(ctx, validate.OpCreateDirectory, src))
}

func (c *Client) RenameDirectory(ctx context.Context, src, dst *params.Params) (*types.Response, error) {
	return c.sendPair(ctx, validate.OpRenameDirectory, src, dst)
}

func (c *Client) MoveDirectory(ctx context.Context, src, dst *params.Params) (*types.Response, error) {
	return c.sendPair(ctx, validate.OpMoveDirectory, src, dst)
}

// CopyDirectory copies a folder tree and returns the id of the new folder
func (c *Client) CopyDirectory(ctx context.Context, src, dst *params.Params) (*types.Response, int64, error) {
	return c.withFolderID(c.sendPair(ctx, validate.OpCopyDirectory, src, dst))
}

func (c *Client) DeleteDirectory(ctx context.Context, src *params.Params) (*types.Response, error) {
	return c.Do(ctx, validate.OpDeleteDirectory, src)
}

func (c *Client) GetFolderInfo(ctx context.Context, src *params.Params) (*types.Response, error) {
	return c.Do(ctx, validate.OpGetFolderInfo, src)
}

// GetSyncInfo returns the response and its syncInfo object, nil when absent
func (c *Client) GetSyncInfo(ctx context.Context, src *params.Params) (*types.Response, *params.Params, error) {
	resp, err := c.Do(ctx, validate.OpGetSyncInfo, src)
	if err != nil {
		return nil, nil, err
	}
	v, _ := resp.Get("syncInfo")
	info, _ := v.(*params.Params)
	return resp, info, nil
}

func (c *Client) withFolderID(resp *types.Response, err error) (*types.Response, int64, error) {
	if err != nil {
		return nil, 0, err
	}
	id, _ := resp.Int("folderId")
	return resp, id, nil
}
