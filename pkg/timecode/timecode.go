// Package timecode implements the immutable TimePosition and Duration
// value types (spec.md C1): parsing, saturating arithmetic, and
// timecode formatting.
package timecode

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// TimePosition is a non-negative scalar offset from the timeline
// origin, stored with microsecond precision.
type TimePosition struct {
	micros int64
}

// Duration is a non-negative length, stored with microsecond precision.
type Duration struct {
	micros int64
}

const microsPerSecond = int64(1_000_000)

// Zero is the zero Duration.
func Zero() Duration { return Duration{} }

// FromSeconds builds a TimePosition from a (possibly fractional) second
// count, saturating at zero.
func FromSeconds(seconds float64) TimePosition {
	return TimePosition{micros: secondsToMicros(seconds)}
}

// DurationFromSeconds builds a Duration from a second count, saturating
// at zero.
func DurationFromSeconds(seconds float64) Duration {
	return Duration{micros: secondsToMicros(seconds)}
}

// FromFrames builds a TimePosition from a frame count at the given
// frame rate (frames per second). fps <= 0 yields the zero position.
func FromFrames(frames int64, fps float64) TimePosition {
	if fps <= 0 {
		return TimePosition{}
	}
	return FromSeconds(float64(frames) / fps)
}

// DurationFromFrames builds a Duration from a frame count at fps.
func DurationFromFrames(frames int64, fps float64) Duration {
	if fps <= 0 {
		return Duration{}
	}
	return DurationFromSeconds(float64(frames) / fps)
}

func secondsToMicros(seconds float64) int64 {
	if seconds <= 0 || math.IsNaN(seconds) {
		return 0
	}
	return int64(math.Round(seconds * float64(microsPerSecond)))
}

// Seconds returns the value as fractional seconds.
func (t TimePosition) Seconds() float64 { return float64(t.micros) / float64(microsPerSecond) }

// Seconds returns the value as fractional seconds.
func (d Duration) Seconds() float64 { return float64(d.micros) / float64(microsPerSecond) }

// Micros returns the raw microsecond count.
func (t TimePosition) Micros() int64 { return t.micros }

// Micros returns the raw microsecond count.
func (d Duration) Micros() int64 { return d.micros }

// Add returns t shifted forward by d, saturating at zero (never
// negative, which Add alone can never produce since both operands are
// already non-negative).
func (t TimePosition) Add(d Duration) TimePosition {
	return TimePosition{micros: t.micros + d.micros}
}

// Sub returns the non-negative Duration between t and other, saturating
// at zero when other is after t.
func (t TimePosition) Sub(other TimePosition) Duration {
	diff := t.micros - other.micros
	if diff < 0 {
		diff = 0
	}
	return Duration{micros: diff}
}

// Before reports whether t is strictly earlier than other.
func (t TimePosition) Before(other TimePosition) bool { return t.micros < other.micros }

// After reports whether t is strictly later than other.
func (t TimePosition) After(other TimePosition) bool { return t.micros > other.micros }

// Equal reports value equality.
func (t TimePosition) Equal(other TimePosition) bool { return t.micros == other.micros }

// Compare returns -1, 0 or 1.
func (t TimePosition) Compare(other TimePosition) int {
	switch {
	case t.micros < other.micros:
		return -1
	case t.micros > other.micros:
		return 1
	default:
		return 0
	}
}

// Plus adds two durations.
func (d Duration) Plus(other Duration) Duration {
	return Duration{micros: d.micros + other.micros}
}

// Minus subtracts other from d, saturating at zero.
func (d Duration) Minus(other Duration) Duration {
	diff := d.micros - other.micros
	if diff < 0 {
		diff = 0
	}
	return Duration{micros: diff}
}

// Scale multiplies d by a scalar factor, saturating at zero for
// negative factors.
func (d Duration) Scale(factor float64) Duration {
	if factor <= 0 {
		return Duration{}
	}
	return Duration{micros: int64(math.Round(float64(d.micros) * factor))}
}

// Div divides d by a scalar factor. Division by zero yields zero,
// matching spec.md C1.
func (d Duration) Div(factor float64) Duration {
	if factor == 0 {
		return Duration{}
	}
	return d.Scale(1 / factor)
}

// IsZero reports whether d is the zero duration.
func (d Duration) IsZero() bool { return d.micros == 0 }

// Compare returns -1, 0 or 1.
func (d Duration) Compare(other Duration) int {
	switch {
	case d.micros < other.micros:
		return -1
	case d.micros > other.micros:
		return 1
	default:
		return 0
	}
}

// ParseError names the offending component of malformed timecode input.
type ParseError struct {
	Input     string
	Component string
	Reason    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("timecode: invalid %s in %q: %s", e.Component, e.Input, e.Reason)
}

// Parse accepts three forms:
//
//	S[.f]        plain (possibly fractional) seconds
//	H:M:S[.f]    hours:minutes:seconds
//	H:M:S:F      hours:minutes:seconds:frames, fps required and > 0
//
// fps is only consulted for the H:M:S:F form; pass 0 when frames are
// not expected.
func Parse(input string, fps float64) (TimePosition, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return TimePosition{}, &ParseError{Input: input, Component: "value", Reason: "empty"}
	}

	parts := strings.Split(s, ":")
	switch len(parts) {
	case 1:
		seconds, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return TimePosition{}, &ParseError{Input: input, Component: "seconds", Reason: err.Error()}
		}
		if seconds < 0 {
			return TimePosition{}, &ParseError{Input: input, Component: "seconds", Reason: "negative"}
		}
		return FromSeconds(seconds), nil

	case 3:
		hours, err := strconv.Atoi(parts[0])
		if err != nil {
			return TimePosition{}, &ParseError{Input: input, Component: "hours", Reason: err.Error()}
		}
		minutes, err := strconv.Atoi(parts[1])
		if err != nil {
			return TimePosition{}, &ParseError{Input: input, Component: "minutes", Reason: err.Error()}
		}
		seconds, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return TimePosition{}, &ParseError{Input: input, Component: "seconds", Reason: err.Error()}
		}
		if hours < 0 || minutes < 0 || seconds < 0 {
			return TimePosition{}, &ParseError{Input: input, Component: "value", Reason: "negative component"}
		}
		total := float64(hours)*3600 + float64(minutes)*60 + seconds
		return FromSeconds(total), nil

	case 4:
		hours, err := strconv.Atoi(parts[0])
		if err != nil {
			return TimePosition{}, &ParseError{Input: input, Component: "hours", Reason: err.Error()}
		}
		minutes, err := strconv.Atoi(parts[1])
		if err != nil {
			return TimePosition{}, &ParseError{Input: input, Component: "minutes", Reason: err.Error()}
		}
		seconds, err := strconv.Atoi(parts[2])
		if err != nil {
			return TimePosition{}, &ParseError{Input: input, Component: "seconds", Reason: err.Error()}
		}
		frames, err := strconv.Atoi(parts[3])
		if err != nil {
			return TimePosition{}, &ParseError{Input: input, Component: "frames", Reason: err.Error()}
		}
		if fps <= 0 {
			return TimePosition{}, &ParseError{Input: input, Component: "frame rate", Reason: "required for H:M:S:F input"}
		}
		if hours < 0 || minutes < 0 || seconds < 0 || frames < 0 {
			return TimePosition{}, &ParseError{Input: input, Component: "value", Reason: "negative component"}
		}
		base := float64(hours)*3600 + float64(minutes)*60 + float64(seconds)
		return FromSeconds(base + float64(frames)/fps), nil

	default:
		return TimePosition{}, &ParseError{Input: input, Component: "format", Reason: "expected S[.f], H:M:S[.f] or H:M:S:F"}
	}
}

// String formats as HH:MM:SS.mmm.
func (t TimePosition) String() string {
	return formatClock(t.micros)
}

func formatClock(micros int64) string {
	totalMillis := micros / 1000
	millis := totalMillis % 1000
	totalSeconds := totalMillis / 1000
	seconds := totalSeconds % 60
	totalMinutes := totalSeconds / 60
	minutes := totalMinutes % 60
	hours := totalMinutes / 60
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, seconds, millis)
}

// Timecode formats t as HH:MM:SS:FF at the given frame rate. fps <= 0
// yields the plain clock form with a zero frame component.
func (t TimePosition) Timecode(fps float64) string {
	if fps <= 0 {
		return formatClock(t.micros) + ":00"
	}
	totalFrames := int64(math.Round(t.Seconds() * fps))
	framesPerSecond := int64(math.Round(fps))
	if framesPerSecond <= 0 {
		framesPerSecond = 1
	}
	frame := totalFrames % framesPerSecond
	totalSeconds := totalFrames / framesPerSecond
	seconds := totalSeconds % 60
	totalMinutes := totalSeconds / 60
	minutes := totalMinutes % 60
	hours := totalMinutes / 60
	return fmt.Sprintf("%02d:%02d:%02d:%02d", hours, minutes, seconds, frame)
}

// Frames returns t expressed as a frame count at fps. fps <= 0 yields 0.
func (t TimePosition) Frames(fps float64) int64 {
	if fps <= 0 {
		return 0
	}
	return int64(math.Round(t.Seconds() * fps))
}

// Both value types serialize as fractional seconds, the same
// representation the project document uses for clip times, so they
// survive JSON and YAML encoding despite their unexported backing
// field.

// MarshalJSON implements json.Marshaler.
func (t TimePosition) MarshalJSON() ([]byte, error) { return json.Marshal(t.Seconds()) }

// UnmarshalJSON implements json.Unmarshaler.
func (t *TimePosition) UnmarshalJSON(data []byte) error {
	var seconds float64
	if err := json.Unmarshal(data, &seconds); err != nil {
		return err
	}
	*t = FromSeconds(seconds)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) { return json.Marshal(d.Seconds()) }

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var seconds float64
	if err := json.Unmarshal(data, &seconds); err != nil {
		return err
	}
	*d = DurationFromSeconds(seconds)
	return nil
}

// MarshalYAML implements yaml.Marshaler (gopkg.in/yaml.v2).
func (t TimePosition) MarshalYAML() (interface{}, error) { return t.Seconds(), nil }

// UnmarshalYAML implements yaml.Unmarshaler.
func (t *TimePosition) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var seconds float64
	if err := unmarshal(&seconds); err != nil {
		return err
	}
	*t = FromSeconds(seconds)
	return nil
}

// MarshalYAML implements yaml.Marshaler (gopkg.in/yaml.v2).
func (d Duration) MarshalYAML() (interface{}, error) { return d.Seconds(), nil }

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var seconds float64
	if err := unmarshal(&seconds); err != nil {
		return err
	}
	*d = DurationFromSeconds(seconds)
	return nil
}
