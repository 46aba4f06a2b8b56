package sdk

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/Project-Sylos/Stash/internal/auth"
	"github.com/Project-Sylos/Stash/internal/config"
	"github.com/Project-Sylos/Stash/internal/filekey"
	"github.com/Project-Sylos/Stash/internal/journal"
	"github.com/Project-Sylos/Stash/internal/params"
	"github.com/Project-Sylos/Stash/internal/types"
	"github.com/Project-Sylos/Stash/internal/utils"
	"github.com/Project-Sylos/Stash/internal/validate"
	"github.com/Project-Sylos/Stash/internal/vault"
	"github.com/Project-Sylos/Stash/internal/vault/models"
	"github.com/Project-Sylos/Stash/internal/vaultfs"
)

// Client is the public SDK interface for a STASH vault.
// Every vault operation of the internal client is available on it directly.
type Client struct {
	*vault.Client
	cfg *types.Config
}

// New creates a Client using the specified config file
func New(configPath string) (*Client, error) {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return NewWithConfig(cfg)
}

// NewWithConfig creates a Client from an already loaded configuration
func NewWithConfig(cfg *Config, opts ...Option) (*Client, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	impl, err := vault.NewFromConfig(cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vault client: %w", err)
	}
	return &Client{Client: impl, cfg: cfg}, nil
}

// GetConfig returns the current configuration
func (c *Client) GetConfig() *Config {
	return c.cfg
}

// FileKey encrypts an account password into the fileKey that read and
// write operations expect
func (c *Client) FileKey(accountPassword string) (string, error) {
	return filekey.Encrypt(c.Credentials().Secret(), accountPassword, true)
}

// AsFS returns a read-only fs.FS over the vault, rooted at "My Home".
// fileKey is sent with every download and ctx bounds every call.
func (c *Client) AsFS(ctx context.Context, fileKey string) fs.FS {
	return vaultfs.New(ctx, c.Client, fileKey)
}

// Re-export types for convenience
type (
	Config       = types.Config
	Response     = types.Response
	Code         = types.Code
	OutputType   = types.OutputType
	Params       = params.Params
	Credentials  = auth.Credentials
	Profile      = auth.Profile
	Operation    = validate.Operation
	Option       = vault.Option
	JournalEntry = journal.Entry

	ValidationError = validate.ValidationError
	SignatureError  = auth.SignatureError
)

// Re-export constants
const (
	CodeOK           = types.CodeOK
	CodeBadRequest   = types.CodeBadRequest
	CodeUnauthorized = types.CodeUnauthorized
	CodeForbidden    = types.CodeForbidden
	CodeNotFound     = types.CodeNotFound
	CodeServerError  = types.CodeServerError

	OutputDefault       = types.OutputDefault
	OutputNames         = types.OutputNames
	OutputPathArrays    = types.OutputPathArrays
	OutputPathStrings   = types.OutputPathStrings
	OutputTreeModel     = types.OutputTreeModel
	OutputTreeModelLazy = types.OutputTreeModelLazy
	OutputGridModel     = types.OutputGridModel

	CanonicalURLEncoded = auth.CanonicalURLEncoded
	CanonicalJSON       = auth.CanonicalJSON

	BaseVaultFolder = utils.BaseVaultFolder
)

// Re-export errors
var (
	ErrFileExists             = vault.ErrFileExists
	ErrOverwriteTargetMissing = vault.ErrOverwriteTargetMissing
	ErrKeyTooShort            = filekey.ErrKeyTooShort
)

// Re-export parameter and identifier builders
var (
	NewParams = params.New
	ParamsOf  = params.Of

	FileByID         = models.FileByID
	FileByPath       = models.FileByPath
	FileInFolder     = models.FileInFolder
	FolderByID       = models.FolderByID
	FolderByPath     = models.FolderByPath
	DestFolderByID   = models.DestFolderByID
	DestFolderByPath = models.DestFolderByPath
	DestFile         = models.DestFile
	DestName         = models.DestName
	Listing          = models.Listing
	Overwrite        = models.Overwrite

	ListingNames  = types.ListingNames
	DefaultConfig = config.DefaultConfig
	LoadConfig    = config.LoadFromFile
	SaveConfig    = config.SaveToFile
)
