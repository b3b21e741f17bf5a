package encoder

import (
	"context"
	"errors"
	"time"

	"edv/pkg/timecode"
)

// Fake is a test double for Encoder, modeled on nvr's pkg/ffmpeg/ffmock:
// a small struct of knobs controlling whether calls fail, how long they
// take, and what progress they fabricate, rather than a generated mock.
type Fake struct {
	// ProbeResult is returned by Probe when ProbeErr is nil. Keyed by
	// path so a planner test can give different assets different
	// durations.
	ProbeResult map[string]MediaInfo
	ProbeErr    error

	// ExecuteErr, if set, is returned by every Execute call.
	ExecuteErr error
	// ExecuteDelay simulates encoder work before Execute returns.
	ExecuteDelay time.Duration
	// ExecuteSteps, if > 0, fabricates that many evenly spaced
	// progress callbacks before returning.
	ExecuteSteps int

	// ExecutedCommands records every CommandSpec passed to Execute,
	// in call order, for assertions.
	ExecutedCommands []CommandSpec

	VersionValue Version
	VersionErr   error
}

// ErrFakeProbe is returned by Probe when no ProbeResult is registered
// for the requested path and ProbeErr is nil.
var ErrFakeProbe = errors.New("fake encoder: no probe result registered")

// Probe returns the registered MediaInfo for path.
func (f *Fake) Probe(_ context.Context, path string) (MediaInfo, error) {
	if f.ProbeErr != nil {
		return MediaInfo{}, f.ProbeErr
	}
	info, ok := f.ProbeResult[path]
	if !ok {
		return MediaInfo{}, ErrFakeProbe
	}
	return info, nil
}

// Execute fabricates progress callbacks and respects cancellation.
func (f *Fake) Execute(ctx context.Context, cmd CommandSpec, progress ProgressSink, cancel <-chan struct{}) error {
	f.ExecutedCommands = append(f.ExecutedCommands, cmd)

	if f.ExecuteErr != nil {
		return f.ExecuteErr
	}

	steps := f.ExecuteSteps
	if steps <= 0 {
		steps = 1
	}
	stepDelay := f.ExecuteDelay / time.Duration(steps)

	for i := 1; i <= steps; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-cancel:
			return context.Canceled
		case <-time.After(stepDelay):
		}
		if progress != nil {
			progress(Progress{
				Fraction: float64(i) / float64(steps),
				TimeDone: timecode.DurationFromSeconds(0),
			})
		}
	}
	return nil
}

// Version returns VersionValue/VersionErr.
func (f *Fake) Version(context.Context) (Version, error) {
	if f.VersionErr != nil {
		return Version{}, f.VersionErr
	}
	return f.VersionValue, nil
}
