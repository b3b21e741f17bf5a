package planner

import (
	"strings"
	"testing"

	"edv/pkg/encoder"
	"edv/pkg/timecode"
	"edv/pkg/track"
)

func contains(args []string, want string) bool {
	for _, a := range args {
		if a == want {
			return true
		}
	}
	return false
}

func indexOf(args []string, want string) int {
	for i, a := range args {
		if a == want {
			return i
		}
	}
	return -1
}

func TestBuildArgsSingleInputIntermediateStep(t *testing.T) {
	step := Step{
		Kind:      StepIntermediate,
		TrackKind: track.KindVideo,
		Command: encoder.CommandSpec{
			Inputs: []encoder.InputSpec{
				{Path: "a.mp4", SourceStart: timecode.FromSeconds(1), SourceEnd: timecode.FromSeconds(4)},
			},
			OutputPath: "out.mp4",
			VideoCodec: encoder.VideoCodecH264,
			AudioCodec: encoder.AudioCodecAAC,
			Threads:    4,
		},
	}
	args := BuildArgs(step)

	if !contains(args, "-i") || !contains(args, "a.mp4") {
		t.Fatalf("missing input: %v", args)
	}
	if !contains(args, "libx264") {
		t.Fatalf("missing video codec translation: %v", args)
	}
	if !contains(args, "aac") {
		t.Fatalf("missing audio codec translation: %v", args)
	}
	if contains(args, "-filter_complex") {
		t.Fatalf("single-input step should not emit a filter graph: %v", args)
	}
	if args[len(args)-1] != "out.mp4" {
		t.Fatalf("output path must be last: %v", args)
	}
	mapIdx := indexOf(args, "-map")
	if mapIdx == -1 || args[mapIdx+1] != "0:v" {
		t.Fatalf("want video stream map, got %v", args)
	}
}

func TestBuildArgsMultiInputIntermediateStepEmitsConcat(t *testing.T) {
	step := Step{
		Kind:      StepIntermediate,
		TrackKind: track.KindVideo,
		Command: encoder.CommandSpec{
			Inputs: []encoder.InputSpec{
				{Path: "a.mp4", SourceStart: timecode.FromSeconds(0), SourceEnd: timecode.FromSeconds(2)},
				{Path: "a.mp4", SourceStart: timecode.FromSeconds(4), SourceEnd: timecode.FromSeconds(6)},
			},
			OutputPath: "out.mp4",
		},
	}
	args := BuildArgs(step)

	idx := indexOf(args, "-filter_complex")
	if idx == -1 {
		t.Fatalf("multi-input step must emit a filter graph: %v", args)
	}
	filter := args[idx+1]
	if !strings.Contains(filter, "concat=n=2") {
		t.Fatalf("want concat filter over 2 segments, got %q", filter)
	}
	if !contains(args, "[outv]") || !contains(args, "[outa]") {
		t.Fatalf("want mapped concat outputs, got %v", args)
	}
}

func TestBuildArgsMuxStepMapsPerInputKind(t *testing.T) {
	step := Step{
		Kind:       StepMux,
		InputKinds: []track.Kind{track.KindVideo, track.KindAudio},
		Command: encoder.CommandSpec{
			Inputs: []encoder.InputSpec{
				{Path: "v.mp4"},
				{Path: "a.m4a"},
			},
			OutputPath: "final.mp4",
			Container:  encoder.ContainerMP4,
		},
	}
	args := BuildArgs(step)

	if !contains(args, "0:v") {
		t.Fatalf("want video input mapped by index, got %v", args)
	}
	if !contains(args, "1:a") {
		t.Fatalf("want audio input mapped by index, got %v", args)
	}
	idx := indexOf(args, "-f")
	if idx == -1 || args[idx+1] != "mp4" {
		t.Fatalf("want container format name, got %v", args)
	}
}

func TestBuildArgsAudioTrackMapsAudioOnly(t *testing.T) {
	step := Step{
		Kind:      StepIntermediate,
		TrackKind: track.KindAudio,
		Command: encoder.CommandSpec{
			Inputs:     []encoder.InputSpec{{Path: "a.m4a"}},
			OutputPath: "out.m4a",
		},
	}
	args := BuildArgs(step)
	idx := indexOf(args, "-map")
	if idx == -1 || args[idx+1] != "0:a" {
		t.Fatalf("want audio-only map, got %v", args)
	}
}

func TestBuildArgsBlankInputUsesLavfiSource(t *testing.T) {
	audio := Step{
		Kind:      StepIntermediate,
		TrackKind: track.KindAudio,
		Command: encoder.CommandSpec{
			Inputs:     []encoder.InputSpec{{SourceEnd: timecode.FromSeconds(3), Blank: true}},
			OutputPath: "out.m4a",
		},
	}
	args := BuildArgs(audio)
	if !contains(args, "lavfi") {
		t.Fatalf("want lavfi source for blank input, got %v", args)
	}
	idx := indexOf(args, "-i")
	if idx == -1 || !strings.Contains(args[idx+1], "anullsrc") {
		t.Fatalf("want silent audio source, got %v", args)
	}
	if !contains(args, "-t") {
		t.Fatalf("want blank input bounded by duration, got %v", args)
	}

	video := audio
	video.TrackKind = track.KindVideo
	args = BuildArgs(video)
	idx = indexOf(args, "-i")
	if idx == -1 || !strings.Contains(args[idx+1], "color=c=black") {
		t.Fatalf("want black video source, got %v", args)
	}
}

func TestBuildArgsIncludesResolutionAndFrameRate(t *testing.T) {
	step := Step{
		Kind:      StepIntermediate,
		TrackKind: track.KindVideo,
		Command: encoder.CommandSpec{
			Inputs:     []encoder.InputSpec{{Path: "a.mp4"}},
			OutputPath: "out.mp4",
			Width:      1920,
			Height:     1080,
			FrameRate:  29.97,
		},
	}
	args := BuildArgs(step)
	if !contains(args, "1920x1080") {
		t.Fatalf("want resolution arg, got %v", args)
	}
	if !contains(args, "-r") {
		t.Fatalf("want frame rate arg, got %v", args)
	}
}
