package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/Project-Sylos/Stash/internal/config"
	"github.com/Project-Sylos/Stash/internal/stub"
)

func main() {
	configPath := pflag.StringP("config", "c", "configs/stash.json", "Path to the JSON config file")
	host := pflag.String("host", "", "Listen host (overrides stub.host)")
	port := pflag.IntP("port", "p", 0, "Listen port (overrides stub.port)")
	quiet := pflag.BoolP("quiet", "q", false, "Do not log every HTTP request")
	pflag.Parse()

	fmt.Println("Stash Vault Stub")
	fmt.Println("================")

	// Load configuration
	fmt.Printf("Loading configuration from: %s\n", *configPath)
	cfg, err := config.LoadFromFile(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *host != "" {
		cfg.Stub.Host = *host
	}
	if *port != 0 {
		cfg.Stub.Port = *port
	}

	creds, err := config.Credentials(cfg)
	if err != nil {
		log.Fatalf("The stub needs vault.api_id and vault.api_pw: %v", err)
	}
	account := stub.AccountFromConfig(cfg, creds)

	level := slog.LevelInfo
	if cfg.Client.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	// Create stub router
	fmt.Println("Creating vault stub...")
	router, err := stub.NewRouter(stub.Options{
		Accounts: []stub.Account{account},
		MaxSkew:  time.Duration(cfg.Stub.MaxSkewSeconds) * time.Second,
		Logger:   logger,
		LogHTTP:  !*quiet,
	})
	if err != nil {
		log.Fatalf("Failed to create stub: %v", err)
	}
	server := stub.NewServer(router, &cfg.Stub)

	fileKey, err := account.FileKey()
	if err != nil {
		log.Fatalf("Failed to derive fileKey: %v", err)
	}
	fmt.Printf("Account: %s (api_id %s, %s canonicalization)\n",
		account.Username, creds.ID(), creds.Profile().Canonicalization)
	fmt.Printf("fileKey for this account: %s\n", fileKey)

	// Create HTTP server with timeout
	addr := server.Addr()
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      server.GetRouter(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down stub...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down HTTP server: %v", err)
		}

		fmt.Println("Stub shutdown complete")
		os.Exit(0)
	}()

	fmt.Printf("Starting HTTP server on %s\n", addr)
	fmt.Printf("Vault API available at http://%s/api2/\n", addr)
	fmt.Printf("Health check available at http://%s/health\n", addr)
	fmt.Println("Press Ctrl+C to stop the stub")

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}
