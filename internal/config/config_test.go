package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Project-Sylos/Stash/internal/auth"
	"github.com/Project-Sylos/Stash/internal/types"
)

const (
	testID     = "0123456789abcdef0123456789abcdef"
	testSecret = "abcdefghijABCDEFGHIJ0123456789klmnopqrst"
)

// TestLoadConfig tests the LoadFromFile function
func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name        string
		configPath  string
		expectError bool
		setup       func() string // Returns temp config path
		cleanup     func(string)
		validate    func(*testing.T, *types.Config)
	}{
		{
			name:        "full config",
			expectError: false,
			setup: func() string {
				tmpFile, err := os.CreateTemp("", "stash-config-*.json")
				if err != nil {
					t.Fatal(err)
				}
				tmpFile.WriteString(`{
					"vault": {
						"base_url": "https://vault.example.com/",
						"api_id": "` + testID + `",
						"api_pw": "` + testSecret + `",
						"version": "1.0",
						"id_format": "hex",
						"canonicalization": "json"
					},
					"client": {
						"timeout_seconds": 30,
						"rate_limit": 5,
						"rate_burst": 2,
						"journal_path": "./journal.duckdb",
						"verbose": true
					},
					"stub": {
						"host": "0.0.0.0",
						"port": 9090,
						"max_skew_seconds": 60
					}
				}`)
				tmpFile.Close()
				return tmpFile.Name()
			},
			cleanup: func(path string) {
				os.Remove(path)
			},
			validate: func(t *testing.T, cfg *types.Config) {
				if cfg.Vault.Canonicalization != "json" {
					t.Errorf("Expected json canonicalization, got %s", cfg.Vault.Canonicalization)
				}
				if cfg.Client.RateLimit != 5 || cfg.Client.RateBurst != 2 {
					t.Errorf("Expected rate 5/2, got %f/%d", cfg.Client.RateLimit, cfg.Client.RateBurst)
				}
				// Journal path gets resolved to absolute path
				if !filepath.IsAbs(cfg.Client.JournalPath) {
					t.Errorf("Expected absolute journal path, got %s", cfg.Client.JournalPath)
				}
				if cfg.Stub.Port != 9090 || cfg.Stub.MaxSkewSeconds != 60 {
					t.Errorf("Unexpected stub config %+v", cfg.Stub)
				}
				creds, err := Credentials(cfg)
				if err != nil {
					t.Fatalf("Credentials: %v", err)
				}
				if creds.Profile().Canonicalization != auth.CanonicalJSON {
					t.Errorf("Expected json profile, got %s", creds.Profile().Canonicalization)
				}
			},
		},
		{
			name:        "nonexistent config file",
			configPath:  "nonexistent.json",
			expectError: true,
		},
		{
			name:        "invalid JSON config",
			expectError: true,
			setup: func() string {
				tmpFile, err := os.CreateTemp("", "invalid-config-*.json")
				if err != nil {
					t.Fatal(err)
				}
				tmpFile.WriteString(`{"invalid": json}`)
				tmpFile.Close()
				return tmpFile.Name()
			},
			cleanup: func(path string) {
				os.Remove(path)
			},
		},
		{
			name:        "minimal config keeps defaults",
			expectError: false,
			setup: func() string {
				tmpFile, err := os.CreateTemp("", "minimal-config-*.json")
				if err != nil {
					t.Fatal(err)
				}
				tmpFile.WriteString(`{"vault": {"api_id": "` + testID + `", "api_pw": "` + testSecret + `"}}`)
				tmpFile.Close()
				return tmpFile.Name()
			},
			cleanup: func(path string) {
				os.Remove(path)
			},
			validate: func(t *testing.T, cfg *types.Config) {
				if cfg.Vault.BaseURL != DefaultBaseURL {
					t.Errorf("Expected default base url, got %s", cfg.Vault.BaseURL)
				}
				if cfg.Vault.Canonicalization != string(auth.CanonicalURLEncoded) {
					t.Errorf("Expected urlencoded, got %s", cfg.Vault.Canonicalization)
				}
				if cfg.Stub.Port != DefaultStubPort {
					t.Errorf("Expected stub port %d, got %d", DefaultStubPort, cfg.Stub.Port)
				}
				if cfg.Client.JournalPath != "" {
					t.Errorf("Expected journal disabled, got %s", cfg.Client.JournalPath)
				}
			},
		},
		{
			name:        "bad api id",
			expectError: true,
			setup: func() string {
				tmpFile, err := os.CreateTemp("", "bad-id-config-*.json")
				if err != nil {
					t.Fatal(err)
				}
				tmpFile.WriteString(`{"vault": {"api_id": "not-hex", "api_pw": "` + testSecret + `"}}`)
				tmpFile.Close()
				return tmpFile.Name()
			},
			cleanup: func(path string) {
				os.Remove(path)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var configPath string
			if tt.setup != nil {
				configPath = tt.setup()
				defer tt.cleanup(configPath)
			} else {
				configPath = tt.configPath
			}

			cfg, err := LoadFromFile(configPath)

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				}
				if cfg != nil {
					t.Errorf("Expected nil config but got %v", cfg)
				}
			} else {
				if err != nil {
					t.Fatalf("Unexpected error: %v", err)
				}
				if cfg == nil {
					t.Fatalf("Expected config but got nil")
				}
				if tt.validate != nil {
					tt.validate(t, cfg)
				}
			}
		})
	}
}

// TestValidateConfig tests the Validate function
func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name        string
		modify      func(*types.Config)
		expectError string
	}{
		{
			name:   "defaults",
			modify: func(c *types.Config) {},
		},
		{
			name: "email id with email profile",
			modify: func(c *types.Config) {
				c.Vault.IDFormat = "email"
				c.Vault.APIID = "user@example.com"
			},
		},
		{
			name:        "bad secret",
			modify:      func(c *types.Config) { c.Vault.APIPw = "short" },
			expectError: "api_pw",
		},
		{
			name:        "secret with symbols",
			modify:      func(c *types.Config) { c.Vault.APIPw = strings.Repeat("a", 32) + "$" },
			expectError: "api_pw",
		},
		{
			name:        "unknown canonicalization",
			modify:      func(c *types.Config) { c.Vault.Canonicalization = "xml" },
			expectError: "canonicalization",
		},
		{
			name:        "unknown id format",
			modify:      func(c *types.Config) { c.Vault.IDFormat = "uuid" },
			expectError: "id format",
		},
		{
			name:        "relative base url",
			modify:      func(c *types.Config) { c.Vault.BaseURL = "vault.example.com" },
			expectError: "base_url",
		},
		{
			name:        "negative timeout",
			modify:      func(c *types.Config) { c.Client.TimeoutSeconds = -1 },
			expectError: "timeout_seconds",
		},
		{
			name:        "negative rate",
			modify:      func(c *types.Config) { c.Client.RateLimit = -0.5 },
			expectError: "rate_limit",
		},
		{
			name:        "stub port out of range",
			modify:      func(c *types.Config) { c.Stub.Port = 70000 },
			expectError: "port",
		},
		{
			name:        "negative skew",
			modify:      func(c *types.Config) { c.Stub.MaxSkewSeconds = -5 },
			expectError: "max_skew_seconds",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Vault.APIID = testID
			cfg.Vault.APIPw = testSecret
			tt.modify(&cfg)

			err := Validate(&cfg)
			if tt.expectError == "" {
				if err != nil {
					t.Errorf("Unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Expected error containing %q but got none", tt.expectError)
			}
			if !strings.Contains(err.Error(), tt.expectError) {
				t.Errorf("Expected error containing %q, got %v", tt.expectError, err)
			}
		})
	}

	if err := Validate(nil); err == nil {
		t.Error("Expected error for nil config")
	}
}

// TestSaveAndLoad tests that a saved config loads back unchanged
func TestSaveAndLoad(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Vault.APIID = testID
	cfg.Vault.APIPw = testSecret
	cfg.Client.RateLimit = 2.5

	path := filepath.Join(t.TempDir(), "config.json")
	if err := SaveToFile(&cfg, path); err != nil {
		t.Fatalf("SaveToFile: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm()&0077 != 0 {
		t.Errorf("Expected config to be private, got %v", info.Mode().Perm())
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if *loaded != cfg {
		t.Errorf("Loaded config differs:\n got %+v\nwant %+v", *loaded, cfg)
	}
}

// TestCredentialsRequiresAccount tests that an empty account is rejected
func TestCredentialsRequiresAccount(t *testing.T) {
	cfg := DefaultConfig()
	if _, err := Credentials(&cfg); err == nil {
		t.Error("Expected error for missing api_id/api_pw")
	}
	if Timeout(&cfg).Seconds() != DefaultTimeoutSeconds {
		t.Errorf("Unexpected timeout %v", Timeout(&cfg))
	}
}
