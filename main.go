package main

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"

	"github.com/Project-Sylos/Stash/sdk"
)

func main() {
	var (
		config   = pflag.StringP("config", "c", "configs/stash.json", "Configuration file path")
		password = pflag.StringP("password", "w", "", "Account password (default: stub.account_password from the config)")
		help     = pflag.BoolP("help", "h", false, "Show help")
	)
	pflag.Parse()

	if *help {
		showHelp()
		return
	}

	fmt.Println("Stash - SDK Demo")
	fmt.Println("================")
	fmt.Println("This is a demonstration of the Stash vault SDK.")
	fmt.Println("For a local vault to run it against, run: go run cmd/stub/main.go")
	fmt.Println()

	runDemo(*config, *password)
}

func showHelp() {
	fmt.Println("Stash - STASH Vault Client")
	fmt.Println("==========================")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  go run main.go [options]")
	fmt.Println()
	fmt.Println("Options:")
	pflag.PrintDefaults()
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  go run main.go")
	fmt.Println("  go run main.go --config configs/custom.json --password secret")
	fmt.Println()
	fmt.Println("Vault stub:")
	fmt.Println("  go run cmd/stub/main.go --config configs/stash.json")
	fmt.Println()
	fmt.Println("Interactive shell:")
	fmt.Println("  go run ./cmd/stashctl --config configs/stash.json")
}

func runDemo(configPath, password string) {
	fmt.Printf("Loading configuration from: %s\n", configPath)

	client, err := sdk.New(configPath)
	if err != nil {
		log.Fatalf("Failed to initialize Stash client: %v", err)
	}
	defer client.Close()

	cfg := client.GetConfig()
	fmt.Printf("Configuration loaded: BaseURL=%s, Canonicalization=%s\n", cfg.Vault.BaseURL, cfg.Vault.Canonicalization)

	if password == "" {
		password = cfg.Stub.AccountPassword
	}
	fileKey, err := client.FileKey(password)
	if err != nil {
		log.Fatalf("Failed to derive fileKey: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	// Connectivity
	fmt.Println("\nChecking vault connection...")
	resp, err := client.CheckVaultConnection(ctx)
	if err != nil {
		log.Fatalf("Failed to build loopback request: %v", err)
	}
	if !resp.OK() {
		log.Fatalf("Vault rejected the loopback request: %s", resp)
	}
	fmt.Println("Connection OK")

	// Vault information
	resp, err = client.GetVaultInfo(ctx)
	if err != nil || !resp.OK() {
		log.Printf("Failed to get vault info: %v %v", resp, err)
	} else {
		var info struct {
			NumFiles      int64 `json:"numFiles"`
			NumDirs       int64 `json:"numDirs"`
			NumBytesInUse int64 `json:"numBytesInUse"`
		}
		if err := resp.Decode("vaultInfo", &info); err == nil {
			fmt.Printf("Vault holds %d folders, %d files, %d bytes\n", info.NumDirs, info.NumFiles, info.NumBytesInUse)
		}
	}

	// Create a folder and upload into it
	folder := fmt.Sprintf("SDK Demo/%s", time.Now().Format("20060102-150405"))
	fmt.Printf("\nCreating folder %q...\n", folder)
	resp, folderID, err := client.CreateDirectory(ctx, sdk.FolderByPath(folder))
	if err != nil || !resp.OK() {
		log.Fatalf("Failed to create folder: %v %v", resp, err)
	}
	fmt.Printf("Folder ID: %d\n", folderID)

	local := filepath.Join(os.TempDir(), "stash-demo.txt")
	if err := os.WriteFile(local, []byte("Hello from the Stash SDK demo\n"), 0644); err != nil {
		log.Fatalf("Failed to write demo file: %v", err)
	}
	defer os.Remove(local)

	fmt.Println("Uploading demo file...")
	resp, err = client.PutFile(ctx, local, sdk.DestFolderByPath(folder).Set("fileKey", fileKey))
	if err != nil || !resp.OK() {
		log.Fatalf("Failed to upload: %v %v", resp, err)
	}
	fileID, _ := resp.Int("fileId")
	fmt.Printf("Uploaded file ID: %d\n", fileID)

	// Listing
	resp, names, err := client.ListFiles(ctx, sdk.Listing(sdk.FolderByPath(folder), sdk.OutputNames))
	if err != nil || !resp.OK() {
		log.Printf("Failed to list files: %v %v", resp, err)
	} else {
		fmt.Printf("Files in %s: %v\n", folder, names)
	}

	// Read back through the fs.FS view
	data, err := fs.ReadFile(client.AsFS(ctx, fileKey), folder+"/"+filepath.Base(local))
	if err != nil {
		log.Printf("Failed to read back through the filesystem view: %v", err)
	} else {
		fmt.Printf("Read back %d bytes: %q\n", len(data), data)
	}

	// Clean up
	fmt.Println("\nDeleting demo folder...")
	resp, err = client.DeleteDirectory(ctx, sdk.FolderByPath("SDK Demo"))
	if err != nil || !resp.OK() {
		log.Printf("Failed to delete demo folder: %v %v", resp, err)
	}

	// Journal
	if j := client.Journal(); j != nil {
		counts, err := j.CountByCode()
		if err != nil {
			log.Printf("Failed to read journal: %v", err)
		} else {
			fmt.Println("\nJournal (requests by response code):")
			for code, n := range counts {
				fmt.Printf("  %s: %d\n", code, n)
			}
		}
	}

	fmt.Println("\nStash SDK demo completed successfully!")
}
