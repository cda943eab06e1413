// Package fitfile encodes compiled workouts as FIT workout files.
//
// Records are written in the order devices expect: file_id (type workout),
// the workout summary (name, sport, number of valid steps), then one
// workout_step per compiled step in ascending message index.
package fitfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/claude/ultracoach/internal/workout"
	"github.com/tormoder/fit"
)

// ContentType is the media type served for encoded workouts.
const ContentType = "application/vnd.ant.fit"

// Options tune the file_id and workout records.
type Options struct {
	// Sport defaults to running.
	Sport fit.Sport
	// TimeCreated defaults to the current time.
	TimeCreated time.Time
}

func (o Options) withDefaults() Options {
	if o.Sport == 0 {
		o.Sport = fit.SportRunning
	}
	if o.TimeCreated.IsZero() {
		o.TimeCreated = time.Now()
	}
	return o
}

// New builds the FIT file for c. It refuses to build a file without steps.
func New(c *workout.Compiled, opts Options) (*fit.File, error) {
	if c == nil || len(c.Steps) == 0 {
		return nil, workout.ErrNoValidSteps
	}
	opts = opts.withDefaults()

	h := fit.NewHeader(fit.V20, true)
	f, err := fit.NewFile(fit.FileTypeWorkout, h)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}
	f.FileId.Manufacturer = fit.ManufacturerDevelopment
	f.FileId.TimeCreated = opts.TimeCreated

	wf, err := f.Workout()
	if err != nil {
		return nil, fmt.Errorf("accessing workout file: %w", err)
	}

	wkt := fit.NewWorkoutMsg()
	wkt.WktName = c.Title
	wkt.Sport = opts.Sport
	wkt.NumValidSteps = uint16(len(c.Steps))
	wf.Workout = wkt

	for _, s := range c.Steps {
		msg, err := stepMsg(s)
		if err != nil {
			return nil, err
		}
		wf.WorkoutSteps = append(wf.WorkoutSteps, msg)
	}
	return f, nil
}

func stepMsg(s workout.Step) (*fit.WorkoutStepMsg, error) {
	if s.DurationMs <= 0 || s.DurationMs > workout.MaxDurationMs {
		return nil, fmt.Errorf("step %d: duration %d ms out of range", s.SequenceIndex, s.DurationMs)
	}

	msg := fit.NewWorkoutStepMsg()
	msg.MessageIndex = fit.MessageIndex(s.SequenceIndex)
	msg.WktStepName = s.Name
	msg.DurationType = fit.WktStepDurationTime
	msg.DurationValue = uint32(s.DurationMs)
	msg.Intensity = intensity(s.Intensity)
	msg.TargetType = fit.WktStepTargetOpen

	if s.TargetKind == workout.TargetHeartRate {
		msg.TargetType = fit.WktStepTargetHeartRate
		if s.ZoneSelector != nil {
			msg.TargetValue = uint32(*s.ZoneSelector)
		}
		if s.HRLowEncoded != nil {
			msg.CustomTargetValueLow = uint32(*s.HRLowEncoded)
		}
		if s.HRHighEncoded != nil {
			msg.CustomTargetValueHigh = uint32(*s.HRHighEncoded)
		}
	}
	return msg, nil
}

func intensity(i workout.Intensity) fit.Intensity {
	switch i {
	case workout.IntensityWarmup:
		return fit.IntensityWarmup
	case workout.IntensityCooldown:
		return fit.IntensityCooldown
	case workout.IntensityRest:
		return fit.IntensityRest
	default:
		return fit.IntensityActive
	}
}

// Encode writes c to w as a FIT workout file.
func Encode(w io.Writer, c *workout.Compiled, opts Options) error {
	f, err := New(c, opts)
	if err != nil {
		return err
	}
	if err := fit.Encode(w, f, binary.LittleEndian); err != nil {
		return fmt.Errorf("encoding fit: %w", err)
	}
	return nil
}

// Bytes returns the encoded FIT file for c.
func Bytes(c *workout.Compiled, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, c, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile encodes c and writes it to path, creating parent directories.
// Nothing is written when encoding fails.
func WriteFile(path string, c *workout.Compiled, opts Options) error {
	data, err := Bytes(c, opts)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output dir %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
