package vault

import (
	"context"

	"github.com/Project-Sylos/Stash/internal/params"
	"github.com/Project-Sylos/Stash/internal/types"
	"github.com/Project-Sylos/Stash/internal/validate"
)

// WebEraseToken requests a WebErase token; the token is empty on failure
func (c *Client) WebEraseToken(ctx context.Context, src *params.Params) (*types.Response, string, error) {
	resp, err := c.Do(ctx, validate.OpWebEraseToken, src)
	if err != nil {
		return nil, "", err
	}
	return resp, resp.Str("token"), nil
}

// WebEraseStore stores a file under the token in the folder destFolderId
func (c *Client) WebEraseStore(ctx context.Context, src *params.Params) (*types.Response, error) {
	return c.Do(ctx, validate.OpWebEraseStore, src)
}

func (c *Client) WebEraseRetrieve(ctx context.Context, src *params.Params) (*types.Response, error) {
	return c.Do(ctx, validate.OpWebEraseRetrieve, src)
}

func (c *Client) WebEraseUpdate(ctx context.Context, src *params.Params) (*types.Response, error) {
	return c.Do(ctx, validate.OpWebEraseUpdate, src)
}

func (c *Client) WebEraseDelete(ctx context.Context, src *params.Params) (*types.Response, error) {
	return c.Do(ctx, validate.OpWebEraseDelete, src)
}

// WebEraseOneTimeCode requests a one time code for the token
func (c *Client) WebEraseOneTimeCode(ctx context.Context, src *params.Params) (*types.Response, error) {
	return c.Do(ctx, validate.OpWebEraseOneTimeCode, src)
}

// WebErasePolling polls the state of a pending WebErase request
func (c *Client) WebErasePolling(ctx context.Context, src *params.Params) (*types.Response, error) {
	return c.Do(ctx, validate.OpWebErasePolling, src)
}

func (c *Client) WebEraseProjectList(ctx context.Context, src *params.Params) (*types.Response, error) {
	return c.Do(ctx, validate.OpWebEraseProjectList, src)
}
