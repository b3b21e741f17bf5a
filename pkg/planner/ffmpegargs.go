package planner

import (
	"fmt"
	"strconv"

	"edv/pkg/encoder"
	"edv/pkg/track"
)

// BuildArgs constructs the complete encoder argument slice for step. It
// is a pure function of its input — no I/O, no subprocess, nothing the
// core can't unit-test — grounded on Muxmaster's ffmpeg.Build: a single
// allocate-and-append function with clearly commented sections rather
// than string concatenation. The injected Encoder is free to ignore
// this and build its own args; BuildArgs exists so a concrete
// ffmpeg-backed Encoder has a ready-made, tested translation from
// CommandSpec to argv.
func BuildArgs(step Step) []string {
	cmd := step.Command
	args := make([]string, 0, 32+4*len(cmd.Inputs))

	// --- Preamble ---
	args = append(args, "-y", "-hide_banner", "-loglevel", "error")

	// --- Input ---
	for _, in := range cmd.Inputs {
		if in.Blank {
			dur := in.SourceEnd.Sub(in.SourceStart)
			args = append(args, "-f", "lavfi", "-t", formatSeconds(dur.Seconds()))
			args = append(args, "-i", blankSource(step.TrackKind, cmd))
			continue
		}
		args = append(args, "-ss", formatSeconds(in.SourceStart.Seconds()))
		args = append(args, "-to", formatSeconds(in.SourceEnd.Seconds()))
		args = append(args, "-i", in.Path)
	}

	// --- Filter graph ---
	if filter := buildFilterGraph(step); filter != "" {
		args = append(args, "-filter_complex", filter)
	}

	// --- Stream maps ---
	args = append(args, buildStreamMaps(step)...)

	// --- Codec ---
	args = append(args, buildCodecArgs(step)...)

	if cmd.Width > 0 && cmd.Height > 0 {
		args = append(args, "-s", fmt.Sprintf("%dx%d", cmd.Width, cmd.Height))
	}
	if cmd.FrameRate > 0 {
		args = append(args, "-r", strconv.FormatFloat(cmd.FrameRate, 'f', -1, 64))
	}
	if cmd.Quality != "" {
		args = append(args, "-quality", cmd.Quality)
	}
	if cmd.Threads > 0 {
		args = append(args, "-threads", strconv.Itoa(cmd.Threads))
	}

	// --- Output ---
	args = append(args, cmd.OutputPath)
	return args
}

// blankSource names the lavfi generator standing in for a missing
// asset: silent audio for audio tracks, black video at the configured
// (or a fallback) resolution otherwise.
func blankSource(kind track.Kind, cmd encoder.CommandSpec) string {
	if kind == track.KindAudio {
		return "anullsrc=r=48000:cl=stereo"
	}
	w, h := cmd.Width, cmd.Height
	if w <= 0 || h <= 0 {
		w, h = 1920, 1080
	}
	return fmt.Sprintf("color=c=black:s=%dx%d", w, h)
}

// buildFilterGraph names the concat segment of the graph for an
// intermediate step with more than one contributing input (several
// visibility-adjusted sub-clips feeding one track); a single-input
// step or the mux step (whose inputs are already-rendered whole files)
// needs no concat filter.
func buildFilterGraph(step Step) string {
	if step.Kind != StepIntermediate || len(step.Command.Inputs) < 2 {
		return ""
	}
	var refs string
	for i := range step.Command.Inputs {
		refs += fmt.Sprintf("[%d:v][%d:a]", i, i)
	}
	return fmt.Sprintf("%sconcat=n=%d:v=1:a=1[outv][outa]", refs, len(step.Command.Inputs))
}

// buildStreamMaps names which inputs feed the output. An intermediate
// step maps its own single track kind; the mux step maps every
// intermediate by its recorded InputKinds, each as a separate output
// stream (video streams are not overlaid and audio streams are not
// mixed).
func buildStreamMaps(step Step) []string {
	if step.Kind == StepIntermediate {
		if len(step.Command.Inputs) > 1 {
			return []string{"-map", "[outv]", "-map", "[outa]"}
		}
		switch step.TrackKind {
		case track.KindAudio:
			return []string{"-map", "0:a"}
		case track.KindSubtitle:
			return []string{"-map", "0:s"}
		default:
			return []string{"-map", "0:v", "-map", "0:a?"}
		}
	}

	var maps []string
	for i, kind := range step.InputKinds {
		switch kind {
		case track.KindAudio:
			maps = append(maps, "-map", fmt.Sprintf("%d:a", i))
		case track.KindSubtitle:
			maps = append(maps, "-map", fmt.Sprintf("%d:s", i))
		default:
			maps = append(maps, "-map", fmt.Sprintf("%d:v", i))
		}
	}
	return maps
}

// buildCodecArgs names the output codec per kind (spec.md §6).
func buildCodecArgs(step Step) []string {
	cmd := step.Command
	var args []string
	if cmd.VideoCodec != "" {
		args = append(args, "-c:v", videoCodecName(cmd.VideoCodec))
	}
	if cmd.AudioCodec != "" {
		args = append(args, "-c:a", audioCodecName(cmd.AudioCodec))
	}
	if step.Kind == StepMux && cmd.Container != "" {
		args = append(args, "-f", containerName(cmd.Container))
	}
	return args
}

func videoCodecName(c encoder.VideoCodec) string {
	switch c {
	case encoder.VideoCodecH264:
		return "libx264"
	case encoder.VideoCodecH265:
		return "libx265"
	case encoder.VideoCodecVP9:
		return "libvpx-vp9"
	case encoder.VideoCodecProRes:
		return "prores_ks"
	case encoder.VideoCodecCopy:
		return "copy"
	default:
		return string(c)
	}
}

func audioCodecName(c encoder.AudioCodec) string {
	switch c {
	case encoder.AudioCodecAAC:
		return "aac"
	case encoder.AudioCodecMP3:
		return "libmp3lame"
	case encoder.AudioCodecOpus:
		return "libopus"
	case encoder.AudioCodecFLAC:
		return "flac"
	case encoder.AudioCodecCopy:
		return "copy"
	default:
		return string(c)
	}
}

func containerName(c encoder.Container) string {
	switch c {
	case encoder.ContainerMP4:
		return "mp4"
	case encoder.ContainerWebM:
		return "webm"
	case encoder.ContainerMOV:
		return "mov"
	case encoder.ContainerMKV:
		return "matroska"
	default:
		return string(c)
	}
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 6, 64)
}
