package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/Project-Sylos/Stash/internal/auth"
	"github.com/Project-Sylos/Stash/internal/types"
)

const (
	DefaultBaseURL        = "https://www.stashbusiness.com/"
	DefaultTimeoutSeconds = 60
	DefaultStubHost       = "localhost"
	DefaultStubPort       = 8086
	DefaultMaxSkewSeconds = 300
	DefaultStubUsername   = "demo@stashbusiness.com"
	DefaultStubPassword   = "demo-account-password"
)

// DefaultConfig returns a configuration with every optional field filled in.
// The account credentials are left empty.
func DefaultConfig() types.Config {
	return types.Config{
		Vault: types.VaultConfig{
			BaseURL:          DefaultBaseURL,
			Version:          auth.DefaultVersion,
			IDFormat:         string(auth.IDFormatHex),
			Canonicalization: string(auth.CanonicalURLEncoded),
		},
		Client: types.ClientConfig{
			TimeoutSeconds: DefaultTimeoutSeconds,
		},
		Stub: types.StubConfig{
			Host:            DefaultStubHost,
			Port:            DefaultStubPort,
			MaxSkewSeconds:  DefaultMaxSkewSeconds,
			AccountUsername: DefaultStubUsername,
			AccountPassword: DefaultStubPassword,
		},
	}
}

// LoadFromFile loads configuration from a JSON file
func LoadFromFile(configPath string) (*types.Config, error) {
	// Check if file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start from defaults so omitted sections keep sane values
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	// Journal path is resolved so the DuckDB file does not move with the working directory
	if cfg.Client.JournalPath != "" && !filepath.IsAbs(cfg.Client.JournalPath) {
		absPath, err := filepath.Abs(cfg.Client.JournalPath)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve journal path: %w", err)
		}
		cfg.Client.JournalPath = absPath
	}

	return &cfg, nil
}

// Validate checks that the configuration parameters are valid
func Validate(cfg *types.Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}

	// Validate vault config
	u, err := url.Parse(cfg.Vault.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		return fmt.Errorf("base_url must be an absolute http(s) URL, got %q", cfg.Vault.BaseURL)
	}

	profile := Profile(cfg)
	if err := profile.Validate(); err != nil {
		return fmt.Errorf("invalid vault profile: %w", err)
	}
	if cfg.Vault.APIID != "" {
		if err := auth.ValidateID(cfg.Vault.APIID, profile.IDFormat); err != nil {
			return err
		}
	}
	if cfg.Vault.APIPw != "" {
		if err := auth.ValidateSecret(cfg.Vault.APIPw); err != nil {
			return err
		}
	}

	// Validate client config
	if cfg.Client.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout_seconds must be non-negative, got %d", cfg.Client.TimeoutSeconds)
	}
	if cfg.Client.RateLimit < 0 {
		return fmt.Errorf("rate_limit must be non-negative, got %f", cfg.Client.RateLimit)
	}
	if cfg.Client.RateBurst < 0 {
		return fmt.Errorf("rate_burst must be non-negative, got %d", cfg.Client.RateBurst)
	}

	// Validate stub config
	if cfg.Stub.Port < 1 || cfg.Stub.Port > 65535 {
		return fmt.Errorf("stub port must be between 1 and 65535, got %d", cfg.Stub.Port)
	}
	if cfg.Stub.MaxSkewSeconds < 0 {
		return fmt.Errorf("max_skew_seconds must be non-negative, got %d", cfg.Stub.MaxSkewSeconds)
	}

	return nil
}

// Profile returns the deployment profile described by the vault section
func Profile(cfg *types.Config) auth.Profile {
	return auth.Profile{
		IDFormat:         auth.IDFormat(cfg.Vault.IDFormat),
		Canonicalization: auth.Canonicalization(cfg.Vault.Canonicalization),
		Version:          cfg.Vault.Version,
	}
}

// Credentials builds validated credentials from the vault section
func Credentials(cfg *types.Config) (auth.Credentials, error) {
	if cfg.Vault.APIID == "" || cfg.Vault.APIPw == "" {
		return auth.Credentials{}, fmt.Errorf("api_id and api_pw must be set")
	}
	return auth.NewCredentials(cfg.Vault.APIID, cfg.Vault.APIPw, Profile(cfg))
}

// Timeout returns the client timeout, 0 meaning no timeout
func Timeout(cfg *types.Config) time.Duration {
	return time.Duration(cfg.Client.TimeoutSeconds) * time.Second
}

// SaveToFile saves configuration to a JSON file
func SaveToFile(cfg *types.Config, configPath string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config to JSON: %w", err)
	}

	// The file holds the API secret
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
