package vault

import (
	"context"

	"github.com/Project-Sylos/Stash/internal/params"
	"github.com/Project-Sylos/Stash/internal/request"
	"github.com/Project-Sylos/Stash/internal/types"
	"github.com/Project-Sylos/Stash/internal/validate"
)

// GetVaultInfo returns account level information. It takes no parameters.
func (c *Client) GetVaultInfo(ctx context.Context) (*types.Response, error) {
	return c.Do(ctx, validate.OpGetVaultInfo, nil)
}

// CheckVaultConnection sends a signed loopback request. A 200 means the base
// URL is reachable and the credentials are accepted.
func (c *Client) CheckVaultConnection(ctx context.Context) (*types.Response, error) {
	return c.send(ctx, validate.OpNone, request.LoopbackEndpoint, nil)
}

// CheckCredentials checks an account username and fileKey against the vault
func (c *Client) CheckCredentials(ctx context.Context, src *params.Params) (*types.Response, error) {
	return c.Do(ctx, validate.OpCheckCredentials, src)
}

// CheckCredentialsAD checks an account username with an API id and password
func (c *Client) CheckCredentialsAD(ctx context.Context, src *params.Params) (*types.Response, error) {
	return c.Do(ctx, validate.OpCheckCredentialsAD, src)
}

// IsValidUser reports whether accountUsername names an existing account
func (c *Client) IsValidUser(ctx context.Context, src *params.Params) (*types.Response, error) {
	return c.Do(ctx, validate.OpIsValidUser, src)
}

// SetPermissions applies the permJson in src and returns the affected permission ids
func (c *Client) SetPermissions(ctx context.Context, src *params.Params) (*types.Response, []string, error) {
	resp, err := c.Do(ctx, validate.OpSetPermissions, src)
	if err != nil {
		return nil, nil, err
	}
	return resp, resp.Extra.Strings("permIds"), nil
}

// CheckPermissions reports whether objectUserId has requestedAccess on the object
func (c *Client) CheckPermissions(ctx context.Context, src *params.Params) (*types.Response, bool, error) {
	resp, err := c.Do(ctx, validate.OpCheckPermissions, src)
	if err != nil {
		return nil, false, err
	}
	return resp, resp.OK() && resp.Bool("result"), nil
}
