package workout

import (
	"errors"
	"math"
	"strings"
)

// ErrNoValidSteps is returned when compilation produced nothing to encode.
var ErrNoValidSteps = errors.New("no valid steps produced (empty segments or invalid duration_min)")

// KeywordRule maps name substrings to an intensity.
type KeywordRule struct {
	Intensity Intensity `json:"intensity"`
	Tokens    []string  `json:"tokens"`
}

// Intensity tokens, checked against the lowercased step name in this order.
var intensityTokens = []KeywordRule{
	{IntensityWarmup, []string{"aquec", "warm"}},
	{IntensityCooldown, []string{"desaquec", "cool"}},
	{IntensityRest, []string{"recuper", "descanso", "rest"}},
}

// IntensityKeywords returns a copy of the keyword rules in match order.
func IntensityKeywords() []KeywordRule {
	out := make([]KeywordRule, len(intensityTokens))
	for i, r := range intensityTokens {
		out[i] = KeywordRule{Intensity: r.Intensity, Tokens: append([]string(nil), r.Tokens...)}
	}
	return out
}

// Build compiles doc and packages the result for the encoder. It returns
// ErrNoValidSteps when no segment produced a step.
func Build(doc Document, constraints Constraints) (*Compiled, error) {
	steps := Compile(doc, constraints)
	if len(steps) == 0 {
		return nil, ErrNoValidSteps
	}
	return &Compiled{
		Title:     Title(doc),
		StepCount: len(steps),
		Steps:     steps,
	}, nil
}

// Compile turns the segments of doc into steps. Segments without a usable
// duration are skipped and do not consume a sequence index. Compile does not
// require doc to have passed Validate.
func Compile(doc Document, constraints Constraints) []Step {
	segs, _ := doc[aliases.Segments].([]any)
	steps := make([]Step, 0, len(segs))

	z2Cap := numberOf(constraints, aliases.Z2Cap)
	z3Floor := numberOf(constraints, aliases.Z3Floor)

	for _, s := range segs {
		seg := asObject(s)

		durMs := DurationMs(seg[aliases.DurationMin])
		if durMs == 0 {
			continue
		}

		name := StepName(seg[aliases.Name])
		step := Step{
			SequenceIndex: len(steps),
			Name:          name,
			DurationMs:    durMs,
			DurationKind:  DurationTime,
			Intensity:     IntensityFromName(name),
			TargetKind:    TargetOpen,
		}

		hrLow := numberOf(seg, aliases.HRLow)
		hrHigh := numberOf(seg, aliases.HRHigh)

		if isFinite(hrLow) || isFinite(hrHigh) || isFinite(z2Cap) || isFinite(z3Floor) {
			step.TargetKind = TargetHeartRate
			zone := CustomZone
			step.ZoneSelector = &zone

			if v := encodeBound(resolveBound(hrLow, z3Floor)); v > 0 {
				step.HRLowEncoded = &v
			}
			if v := encodeBound(resolveBound(hrHigh, z2Cap)); v > 0 {
				step.HRHighEncoded = &v
			}
		}

		steps = append(steps, step)
	}
	return steps
}

// resolveBound prefers the segment's own value and falls back to the
// constraint. A zero or negative segment value counts as absent.
func resolveBound(own, fallback float64) float64 {
	if isFinite(own) && own > 0 {
		return own
	}
	if isFinite(fallback) && fallback > 0 {
		return fallback
	}
	return 0
}

func encodeBound(bpm float64) int {
	if !isFinite(bpm) || bpm <= 0 {
		return 0
	}
	enc := math.Round(bpm + HeartRateOffset)
	if enc > MaxEncodedHeartRate {
		return 0
	}
	return int(enc)
}

// EncodeHeartRate converts a bpm value to the FIT custom heart-rate encoding.
// It returns 0 when v is not a positive finite number or encodes above
// MaxEncodedHeartRate.
func EncodeHeartRate(v any) int {
	return encodeBound(toNumber(v))
}

// DurationMs converts a duration in minutes to milliseconds. It returns 0 when
// v is not a positive finite number or the result exceeds MaxDurationMs, so
// such segments are skipped like any other unusable duration.
func DurationMs(v any) int64 {
	if v == nil {
		return 0
	}
	n := toNumber(v)
	if !isFinite(n) || n <= 0 {
		return 0
	}
	ms := math.Round(n * 60 * 1000)
	if ms > MaxDurationMs {
		return 0
	}
	return int64(ms)
}

// StepName normalizes a segment name.
func StepName(v any) string {
	return normalize(v, DefaultStepName)
}

// Title resolves the workout title from workout_title or title.
func Title(doc Document) string {
	v, _ := lookup(doc, aliases.Title)
	return normalize(v, DefaultTitle)
}

func normalize(v any, def string) string {
	s := strings.TrimSpace(toText(v))
	if s == "" {
		s = def
	}
	return truncate(s, MaxNameLen)
}

// IntensityFromName classifies a step by case-insensitive substring match.
// The first matching category wins: warmup, cooldown, rest; otherwise active.
func IntensityFromName(name string) Intensity {
	n := strings.ToLower(name)
	for _, c := range intensityTokens {
		for _, tok := range c.Tokens {
			if strings.Contains(n, tok) {
				return c.Intensity
			}
		}
	}
	return IntensityActive
}
