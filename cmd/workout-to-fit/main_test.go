package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tormoder/fit"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestRunWritesFit compiles a workout with constraints and decodes the result.
func TestRunWritesFit(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "w.json", `{"workout_title":"Intervals","segments":[
		{"name":"Aquecimento","duration_min":10},
		{"name":"Tiro","duration_min":4,"target_hr_low":165,"target_hr_high":175},
		{"name":"Recuperação","duration_min":2}]}`)
	cons := writeFile(t, dir, "c.json", `{"z2_hr_cap":150,"z3_hr_floor":140}`)
	out := filepath.Join(dir, "out", "nested", "w.fit")

	var logs bytes.Buffer
	log := slog.New(slog.NewTextHandler(&logs, nil))
	if code := run([]string{"-i", in, "-o", out, "-c", cons}, io.Discard, log); code != 0 {
		t.Fatalf("exit = %d, logs:\n%s", code, logs.String())
	}
	if !strings.Contains(logs.String(), "steps=3") || !strings.Contains(logs.String(), "title=Intervals") {
		t.Errorf("logs = %s", logs.String())
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	decoded, err := fit.Decode(f)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	wf, err := decoded.Workout()
	if err != nil {
		t.Fatal(err)
	}
	if len(wf.WorkoutSteps) != 3 {
		t.Fatalf("steps = %d, want 3", len(wf.WorkoutSteps))
	}
	if wf.WorkoutSteps[2].Intensity != fit.IntensityRest {
		t.Errorf("step 2 intensity = %v, want rest", wf.WorkoutSteps[2].Intensity)
	}
}

// TestRunExitCodes covers missing input, invalid documents and ignorable constraint errors.
func TestRunExitCodes(t *testing.T) {
	dir := t.TempDir()
	valid := writeFile(t, dir, "ok.json", `{"segments":[{"name":"Run","duration_min":30}]}`)
	invalid := writeFile(t, dir, "bad.json", `{"segments":[{"duration_min":30}]}`)
	empty := writeFile(t, dir, "empty.json", `{"segments":[{"name":"Run","duration_min":"abc"}]}`)
	broken := writeFile(t, dir, "broken.json", `{"segments":`)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no input", nil, 2},
		{"missing file", []string{"-in", filepath.Join(dir, "nope.json")}, 1},
		{"not json", []string{"-in", broken, "-out", filepath.Join(dir, "a.fit")}, 1},
		{"invalid", []string{"-in", invalid, "-out", filepath.Join(dir, "b.fit")}, 1},
		{"no valid steps", []string{"-in", empty, "-out", filepath.Join(dir, "c.fit")}, 1},
		{"missing constraints warns", []string{"-in", valid, "-out", filepath.Join(dir, "d.fit"), "-constraints", filepath.Join(dir, "none.json")}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := run(tt.args, io.Discard, log); got != tt.want {
				t.Errorf("exit = %d, want %d", got, tt.want)
			}
		})
	}
	if _, err := os.Stat(filepath.Join(dir, "b.fit")); !os.IsNotExist(err) {
		t.Error("invalid workout still produced a file")
	}
}
