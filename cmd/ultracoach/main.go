package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/claude/ultracoach/internal/config"
	"github.com/claude/ultracoach/internal/mcp"
	"github.com/claude/ultracoach/internal/secrets"
	"github.com/claude/ultracoach/internal/server"
	"github.com/claude/ultracoach/internal/storage"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrationsPath := flag.String("migrations", "migrations", "path to the migrations directory")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log.Info("UltraCoach starting", "version", Version)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	dsn := cfg.Database.DSN()
	if err := storage.RunMigrations(dsn, *migrationsPath); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	if *migrateOnly {
		log.Info("migrate-only: exiting")
		return
	}

	ctx := context.Background()
	db, err := storage.New(ctx, dsn)
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected")

	apiKey := cfg.Auth.APIKey
	if apiKey == "" {
		apiKey, err = secrets.Lookup(ctx, cfg.Secrets.DBPath, cfg.Secrets.KeyPath, config.APIKeySecret, log)
		if err != nil {
			log.Error("auth.api_key is not set in config, environment or the encrypted config store", "error", err)
			os.Exit(1)
		}
		log.Info("API key loaded from config store", "path", cfg.Secrets.DBPath)
	}

	srv := server.New(db, apiKey, cfg.Coach.DefaultAthlete, log)

	mcpSrv := mcp.New(db, Version, cfg.Coach.DefaultAthlete, log)
	srv.MountMCP(mcpserver.NewStreamableHTTPServer(mcpSrv))

	// Start server: tsnet or plain HTTP
	var listener net.Listener
	if cfg.Tailscale.Enabled {
		tsServer := &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "plain HTTP (no tailscale)")
	}

	httpSrv := &http.Server{Handler: srv, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}
