// Package encoder defines the capability interface the core consumes
// to delegate actual media processing to an external executable
// (spec.md §6). The core never shells out itself; everything in this
// package is an interface plus value types, mirroring how nvr's
// pkg/ffmpeg separates the mockable Process interface from the
// concrete subprocess wrapper.
package encoder

import (
	"context"
	"time"

	"edv/pkg/timecode"
)

// VideoCodec is a supported output video codec.
type VideoCodec string

// Recognized video codecs (spec.md §6).
const (
	VideoCodecH264   VideoCodec = "h264"
	VideoCodecH265   VideoCodec = "h265"
	VideoCodecVP9    VideoCodec = "vp9"
	VideoCodecProRes VideoCodec = "prores"
	VideoCodecCopy   VideoCodec = "copy"
)

// AudioCodec is a supported output audio codec.
type AudioCodec string

// Recognized audio codecs (spec.md §6).
const (
	AudioCodecAAC  AudioCodec = "aac"
	AudioCodecMP3  AudioCodec = "mp3"
	AudioCodecOpus AudioCodec = "opus"
	AudioCodecFLAC AudioCodec = "flac"
	AudioCodecCopy AudioCodec = "copy"
)

// Container is a supported output container format.
type Container string

// Recognized containers (spec.md §6).
const (
	ContainerMP4  Container = "mp4"
	ContainerWebM Container = "webm"
	ContainerMOV  Container = "mov"
	ContainerMKV  Container = "mkv"
)

// StreamInfo describes one stream probed from a media file.
type StreamInfo struct {
	Kind     string // "video", "audio" or "subtitle"
	Codec    string
	Width    int
	Height   int
	Channels int
}

// MediaInfo is what Probe returns about a source file.
type MediaInfo struct {
	Duration  timecode.Duration
	Width     int
	Height    int
	FrameRate float64
	Streams   []StreamInfo
}

// InputSpec names one source clip contributing to a command. A Blank
// input names no file; the encoder synthesizes black video or silent
// audio for the span instead, used for clips whose source asset went
// missing after the project was authored.
type InputSpec struct {
	Path        string
	SourceStart timecode.TimePosition
	SourceEnd   timecode.TimePosition
	Blank       bool
}

// FilterSpec is an opaque filter-graph fragment (e.g. a scale/overlay
// chain); its syntax is the encoder's concern, not the core's.
type FilterSpec string

// CommandSpec names one encoder invocation: a set of inputs, an output
// path, per-kind codec parameters, an optional filter graph, and the
// time range of the invocation.
type CommandSpec struct {
	Inputs     []InputSpec
	OutputPath string
	VideoCodec VideoCodec
	AudioCodec AudioCodec
	Container  Container
	Width      int
	Height     int
	FrameRate  float64
	Quality    string
	Filter     FilterSpec
	Range      *TimeRange
	Threads    int
}

// TimeRange is an explicit [Start, End) render window.
type TimeRange struct {
	Start timecode.TimePosition
	End   timecode.TimePosition
}

// Progress reports sub-step encoder progress.
type Progress struct {
	BytesDone int64
	TimeDone  timecode.Duration
	Fraction  float64 // 0..1, when known
}

// ProgressSink receives progress callbacks for a single invocation.
type ProgressSink func(Progress)

// Version is the encoder's reported (major, minor, patch) version;
// the planner may gate feature use on it.
type Version struct {
	Major, Minor, Patch int
}

// Encoder is the capability interface injected into the Composition
// Planner, which calls Probe to validate source files and Execute to
// run plan steps; the CLI's `asset probe` command also calls Probe.
// Tests supply a Fake (see fake.go); the CLI wires a subprocess-backed
// ffmpeg/ffprobe implementation (cmd/edv/cmd/encoder.go), kept out of
// the core packages.
type Encoder interface {
	Probe(ctx context.Context, path string) (MediaInfo, error)
	Execute(ctx context.Context, cmd CommandSpec, progress ProgressSink, cancel <-chan struct{}) error
	Version(ctx context.Context) (Version, error)
}

// Clock is injected into Project construction so tests can pin
// timestamps (spec.md §6).
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock backed by time.Now.
type SystemClock struct{}

// Now returns the current wall-clock time.
func (SystemClock) Now() time.Time { return time.Now() }
