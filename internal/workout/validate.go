package workout

import (
	"fmt"
	"math"
	"strings"
)

// Validation messages that do not depend on a segment index.
const (
	MsgNotObject        = "workout must be a valid JSON object"
	MsgSegmentsRequired = `field "segments" is required`
	MsgSegmentsNotArray = `field "segments" must be an array`
	MsgSegmentsEmpty    = `array "segments" must not be empty`
)

// ValidationError carries every structural problem found in a document.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "invalid workout: " + strings.Join(e.Errors, "; ")
}

// Validate checks doc for structural soundness and returns one message per
// violated rule. An empty result means the document is valid. doc is usually
// the result of decoding JSON into an any.
func Validate(doc any) []string {
	errs := []string{}

	obj, ok := doc.(map[string]any)
	if !ok || obj == nil {
		return append(errs, MsgNotObject)
	}

	raw := obj[aliases.Segments]
	if !truthy(raw) {
		return append(errs, MsgSegmentsRequired)
	}
	segs, ok := raw.([]any)
	if !ok {
		return append(errs, MsgSegmentsNotArray)
	}
	if len(segs) == 0 {
		return append(errs, MsgSegmentsEmpty)
	}

	for i, s := range segs {
		seg := asObject(s)
		if !truthy(seg[aliases.Name]) {
			errs = append(errs, fmt.Sprintf(`Segment[%d]: field "name" is required`, i))
		}
		dur, present := seg[aliases.DurationMin]
		switch {
		case !present || dur == nil:
			errs = append(errs, fmt.Sprintf(`Segment[%d]: field "duration_min" is required`, i))
		case !isNumber(dur) || !(toNumber(dur) > 0) || !isFinite(toNumber(dur)):
			errs = append(errs, fmt.Sprintf(`Segment[%d]: "duration_min" must be a positive number`, i))
		case math.Round(toNumber(dur)*60*1000) > MaxDurationMs:
			errs = append(errs, fmt.Sprintf(`Segment[%d]: "duration_min" exceeds %d minutes`, i, MaxDurationMs/60000))
		}
	}
	return errs
}

// Check is Validate for callers that want an error value.
func Check(doc any) error {
	if errs := Validate(doc); len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}
