package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/ultracoach/internal/config"
	"github.com/claude/ultracoach/internal/mcp"
	"github.com/claude/ultracoach/internal/secrets"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", os.Getenv("ULTRACOACH_URL"), "UltraCoach server URL (e.g. https://ultracoach.tail1234.ts.net)")
	apiKey := flag.String("api-key", os.Getenv(config.APIKeySecret), "API key for write tools (defaults to the encrypted config store)")
	athlete := flag.String("athlete", envOr("ULTRACOACH_ATHLETE", config.DefaultAthlete), "default athlete ID")
	secretsDB := flag.String("secrets-db", envOr("ULTRACOACH_SECRETS_DB", config.DefaultSecretsDB), "path to the encrypted config store")
	keyPath := flag.String("key", envOr("ULTRACOACH_SECRETS_KEY_PATH", config.DefaultKeyPath()), "path to the secret key file")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("ultracoach-mcp", Version)
		return
	}

	// stdout carries the MCP protocol, so logs go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *serverURL == "" {
		fmt.Fprintf(os.Stderr, "Usage: ultracoach-mcp -server <URL> [-api-key KEY] [-athlete ID]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if *apiKey == "" {
		*apiKey = apiKeyFromStore(*secretsDB, *keyPath, log)
	}

	client := mcp.NewHTTPClient(*serverURL, *apiKey)
	s := mcp.New(client, Version, *athlete, log)

	log.Info("ultracoach-mcp serving on stdio", "server", *serverURL, "athlete", *athlete)
	if err := mcpserver.ServeStdio(s); err != nil {
		log.Error("stdio server error", "error", err)
		os.Exit(1)
	}
}

// apiKeyFromStore reads the API key from the encrypted config store. Any
// problem is logged and leaves write tools unauthenticated.
func apiKeyFromStore(dbPath, keyPath string, log *slog.Logger) string {
	v, err := secrets.Lookup(context.Background(), dbPath, keyPath, config.APIKeySecret, log)
	if err != nil {
		log.Warn("no API key in config store, write tools will be rejected", "error", err)
		return ""
	}
	return v
}

func envOr(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}
