package pose

import (
	"encoding/json"
	"fmt"
	"math"
)

// InputError describes a landmark frame rejected at the boundary.
type InputError struct {
	Reason string
	Got    int // number of usable entries seen
}

func (e *InputError) Error() string {
	if e.Got > 0 {
		return fmt.Sprintf("invalid landmark frame: %s (got %d, need %d)", e.Reason, e.Got, NumLandmarks)
	}
	return "invalid landmark frame: " + e.Reason
}

// Validate decodes a raw landmark array as delivered by a pose model client and
// coerces it into a Frame.
//
// The input must be a JSON array with at least NumLandmarks object entries.
// Entries past NumLandmarks are ignored. Non-numeric coordinates become 0 and a
// missing confidence becomes 0. Confidence is read from "visibility" or, failing
// that, "confidence".
func Validate(raw json.RawMessage, timestamp int64) (Frame, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return Frame{}, &InputError{Reason: "not an array"}
	}
	if len(entries) == 0 {
		return Frame{}, &InputError{Reason: "empty array"}
	}

	points := make([]Landmark, 0, NumLandmarks)
	for _, e := range entries {
		if len(points) == NumLandmarks {
			break
		}
		var obj map[string]any
		if err := json.Unmarshal(e, &obj); err != nil || obj == nil {
			continue
		}
		conf, ok := number(obj["visibility"])
		if !ok {
			conf, _ = number(obj["confidence"])
		}
		x, _ := number(obj["x"])
		y, _ := number(obj["y"])
		points = append(points, Landmark{X: x, Y: y, Confidence: conf})
	}

	if len(points) < NumLandmarks {
		return Frame{}, &InputError{Reason: "too few landmarks", Got: len(points)}
	}
	return ValidatePoints(points, timestamp)
}

// ValidatePoints builds a Frame from typed landmarks, such as those produced by a
// Source. Non-finite values become 0 and every field is clamped to [0,1].
func ValidatePoints(points []Landmark, timestamp int64) (Frame, error) {
	if len(points) == 0 {
		return Frame{}, &InputError{Reason: "empty array"}
	}
	if len(points) < NumLandmarks {
		return Frame{}, &InputError{Reason: "too few landmarks", Got: len(points)}
	}

	f := Frame{Timestamp: timestamp}
	for i := 0; i < NumLandmarks; i++ {
		p := points[i]
		f.Points[i] = Landmark{
			X:          unit(p.X),
			Y:          unit(p.Y),
			Confidence: unit(p.Confidence),
		}
	}
	return f, nil
}

// number extracts a float from a decoded JSON value.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// unit maps non-finite values to 0 and clamps the rest to [0,1].
func unit(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
