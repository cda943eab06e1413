package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/claude/ultracoach/internal/fitfile"
	"github.com/claude/ultracoach/internal/workout"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	os.Exit(run(os.Args[1:], os.Stderr, log))
}

// run compiles one workout JSON file into a FIT file and returns the exit
// code: 0 on success, 2 when no input was given, 1 on any other failure.
func run(args []string, stderr io.Writer, log *slog.Logger) int {
	fs := flag.NewFlagSet("workout-to-fit", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var in, out, constraintsPath string
	var version bool
	fs.StringVar(&in, "in", "", "path to the workout JSON file")
	fs.StringVar(&in, "i", "", "shorthand for -in")
	fs.StringVar(&out, "out", "workout.fit", "path of the FIT file to write")
	fs.StringVar(&out, "o", "workout.fit", "shorthand for -out")
	fs.StringVar(&constraintsPath, "constraints", "", "optional athlete constraints JSON (z2_hr_cap, z3_hr_floor)")
	fs.StringVar(&constraintsPath, "c", "", "shorthand for -constraints")
	fs.BoolVar(&version, "version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if version {
		fmt.Fprintln(stderr, "workout-to-fit", Version)
		return 0
	}
	if in == "" {
		fmt.Fprintf(stderr, "Usage: workout-to-fit -in <workout.json> [-out workout.fit] [-constraints constraints.json]\n\n")
		fs.PrintDefaults()
		return 2
	}

	data, err := os.ReadFile(in)
	if err != nil {
		log.Error("failed to read workout", "path", in, "error", err)
		return 1
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		log.Error("workout is not valid JSON", "path", in, "error", err)
		return 1
	}
	if errs := workout.Validate(doc); len(errs) > 0 {
		log.Error("invalid workout", "path", in, "errors", strings.Join(errs, "; "))
		return 1
	}

	constraints := loadConstraints(constraintsPath, log)

	c, err := workout.Build(doc.(map[string]any), constraints)
	if err != nil {
		log.Error("compile failed", "path", in, "error", err)
		return 1
	}

	if err := fitfile.WriteFile(out, c, fitfile.Options{TimeCreated: time.Now()}); err != nil {
		log.Error("failed to write FIT file", "path", out, "error", err)
		return 1
	}

	log.Info("generated", "path", out, "steps", c.StepCount, "title", c.Title)
	return 0
}

// loadConstraints reads an optional constraints file. Problems are logged
// and the workout compiles without constraints.
func loadConstraints(path string, log *slog.Logger) workout.Constraints {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn("ignoring unreadable constraints", "path", path, "error", err)
		return nil
	}
	var c workout.Constraints
	if err := json.Unmarshal(data, &c); err != nil {
		log.Warn("ignoring invalid constraints", "path", path, "error", err)
		return nil
	}
	return c
}
