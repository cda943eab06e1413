package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/claude/ultracoach/internal/config"
	"github.com/claude/ultracoach/internal/secrets"
)

const usage = `Usage: ultracoach-config [-db PATH] [-key PATH] <command>

Commands:
  set KEY VALUE   encrypt and store VALUE under KEY
  get KEY         print the decrypted value of KEY
  delete KEY      remove KEY
  env             print every value as a shell export line

Use with: eval "$(ultracoach-config env)"
`

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, log))
}

func run(args []string, stdout, stderr io.Writer, log *slog.Logger) int {
	fs := flag.NewFlagSet("ultracoach-config", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	dbPath := fs.String("db", envOr("ULTRACOACH_SECRETS_DB", config.DefaultSecretsDB), "path to the SQLite config store")
	keyPath := fs.String("key", envOr("ULTRACOACH_SECRETS_KEY_PATH", config.DefaultKeyPath()), "path to the base64 secret key")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return 2
	}
	ctx := context.Background()

	switch cmd := rest[0]; {
	case cmd == "set" && len(rest) >= 2:
		value := ""
		if len(rest) >= 3 {
			value = rest[2]
		}
		key, err := secrets.EnsureKey(*keyPath)
		if err != nil {
			log.Error("secret key", "error", err)
			return 1
		}
		return withStore(*dbPath, key, log, func(s *secrets.Store) error {
			return s.Set(ctx, rest[1], value)
		})

	case cmd == "get" && len(rest) == 2:
		key, err := secrets.LoadKey(*keyPath)
		if err != nil || key == nil {
			log.Error("no usable secret key", "path", *keyPath, "error", err)
			return 1
		}
		return withStore(*dbPath, key, log, func(s *secrets.Store) error {
			v, err := s.Get(ctx, rest[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(stdout, v)
			return nil
		})

	case cmd == "delete" && len(rest) == 2:
		key, err := secrets.LoadKey(*keyPath)
		if err != nil || key == nil {
			log.Error("no usable secret key", "path", *keyPath, "error", err)
			return 1
		}
		return withStore(*dbPath, key, log, func(s *secrets.Store) error {
			return s.Delete(ctx, rest[1])
		})

	case cmd == "env" && len(rest) == 1:
		// Prints nothing when there is no key or store yet, so it is safe
		// to eval from a shell profile.
		key, err := secrets.LoadKey(*keyPath)
		if err != nil || key == nil {
			return 0
		}
		if _, err := os.Stat(*dbPath); err != nil {
			return 0
		}
		return withStore(*dbPath, key, log, func(s *secrets.Store) error {
			out, err := s.Env(ctx)
			if err != nil {
				return err
			}
			fmt.Fprint(stdout, out)
			return nil
		})

	default:
		fs.Usage()
		return 2
	}
}

func withStore(dbPath string, key []byte, log *slog.Logger, fn func(*secrets.Store) error) int {
	s, err := secrets.Open(dbPath, key, log)
	if err != nil {
		log.Error("opening config store", "error", err)
		return 1
	}
	defer s.Close()

	if err := fn(s); err != nil {
		if errors.Is(err, secrets.ErrNotFound) {
			log.Error("no such key", "error", err)
		} else {
			log.Error("config store", "error", err)
		}
		return 1
	}
	return 0
}

func envOr(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}
