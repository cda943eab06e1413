// Package workout validates loosely-typed workout documents and compiles them
// into the ordered step records written into FIT workout files.
package workout

import "slices"

// Document is a decoded workout JSON object: optional title/workout_title and a
// segments array of objects with name, duration_min and optional HR targets.
type Document = map[string]any

// Constraints is a decoded athlete constraints JSON object carrying the zone-2
// cap and zone-3 floor under any of their accepted spellings.
type Constraints = map[string]any

const (
	// MaxNameLen bounds step names and workout titles, in characters.
	MaxNameLen = 60

	// DefaultStepName replaces absent or blank segment names.
	DefaultStepName = "Step"

	// DefaultTitle replaces an absent or blank workout title.
	DefaultTitle = "Treino"

	// HeartRateOffset is added to bpm values in custom heart-rate targets;
	// FIT reserves 0-100 for percent of max HR.
	HeartRateOffset = 100

	// CustomZone is the zone selector meaning "use the custom low/high bounds".
	CustomZone = 0

	// MaxDurationMs is the longest step the FIT duration field can hold;
	// 0xFFFFFFFF is reserved as invalid.
	MaxDurationMs = 1<<32 - 2

	// MaxEncodedHeartRate is the largest custom heart-rate value the FIT
	// target fields can hold. Bounds that encode above it are omitted.
	MaxEncodedHeartRate = 1<<32 - 2
)

// Alias lists are ordered: the first present, non-null field wins and no
// merging happens across spellings.
var aliases = struct {
	Title       []string
	HRLow       []string
	HRHigh      []string
	Z2Cap       []string
	Z3Floor     []string
	Segments    string
	Name        string
	DurationMin string
}{
	Title:       []string{"workout_title", "title"},
	HRLow:       []string{"target_hr_low", "hr_low"},
	HRHigh:      []string{"target_hr_high", "hr_high"},
	Z2Cap:       []string{"z2_hr_cap", "z2Cap", "z2_cap"},
	Z3Floor:     []string{"z3_hr_floor", "z3Floor", "z3_floor"},
	Segments:    "segments",
	Name:        "name",
	DurationMin: "duration_min",
}

// FieldAliases returns the accepted spellings of each aliased field, keyed by
// canonical name, in precedence order. The result is a copy.
func FieldAliases() map[string][]string {
	return map[string][]string{
		"title":          slices.Clone(aliases.Title),
		"target_hr_low":  slices.Clone(aliases.HRLow),
		"target_hr_high": slices.Clone(aliases.HRHigh),
		"z2_hr_cap":      slices.Clone(aliases.Z2Cap),
		"z3_hr_floor":    slices.Clone(aliases.Z3Floor),
	}
}

// Intensity classifies what a step is for.
type Intensity string

const (
	IntensityWarmup   Intensity = "warmup"
	IntensityCooldown Intensity = "cooldown"
	IntensityRest     Intensity = "rest"
	IntensityActive   Intensity = "active"
)

// TargetKind is the kind of target a step carries.
type TargetKind string

const (
	TargetOpen      TargetKind = "open"
	TargetHeartRate TargetKind = "heart_rate"
)

// DurationTime is the only duration kind produced: fixed wall-clock time.
const DurationTime = "time"

// Step is one compiled workout step.
type Step struct {
	SequenceIndex int        `json:"sequence_index"`
	Name          string     `json:"name"`
	DurationMs    int64      `json:"duration_ms"`
	DurationKind  string     `json:"duration_kind"`
	Intensity     Intensity  `json:"intensity"`
	TargetKind    TargetKind `json:"target_kind"`

	// Set only when TargetKind is TargetHeartRate.
	ZoneSelector  *int `json:"zone_selector,omitempty"`
	HRLowEncoded  *int `json:"hr_low_encoded,omitempty"`
	HRHighEncoded *int `json:"hr_high_encoded,omitempty"`
}

// Compiled is everything the FIT encoder needs, in the order it must be written:
// the title and step count for the workout record, then the steps by index.
type Compiled struct {
	Title     string `json:"title"`
	StepCount int    `json:"step_count"`
	Steps     []Step `json:"steps"`
}
