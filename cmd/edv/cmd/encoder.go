package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"edv/pkg/encoder"
	"edv/pkg/timecode"
)

// execEncoder is the only production encoder.Encoder implementation in
// this repository (pkg/encoder.Fake is the test double): a subprocess wrapper around real ffmpeg/ffprobe
// binaries. It is deliberately confined to the CLI rather than a core
// package (spec.md §1, §6: the core only ever talks to the injected
// interface), the way nvr keeps its own subprocess plumbing in
// pkg/ffmpeg rather than its monitor/recording core.
type execEncoder struct {
	ffmpegBin  string
	ffprobeBin string
}

func newExecEncoder(ffmpegBin, ffprobeBin string) *execEncoder {
	return &execEncoder{ffmpegBin: ffmpegBin, ffprobeBin: ffprobeBin}
}

// Execute runs ffmpeg with an argv built from cmdSpec, reporting one
// completion callback at the end (ffmpeg's own progress pipe is out of
// scope for this thin wrapper). This does not reuse
// pkg/planner.BuildArgs: that function takes a full planner.Step,
// whose TrackKind/Kind pick the right stream maps, but the
// encoder.Encoder interface only ever hands an encoder CommandSpec
// across the core/CLI boundary (spec.md §6) — so every map here is
// optional ("?") rather than TrackKind-specific, which is the only
// way to stay correct without that extra context.
func (e *execEncoder) Execute(ctx context.Context, cmdSpec encoder.CommandSpec, progress encoder.ProgressSink, cancel <-chan struct{}) error {
	args := buildArgs(cmdSpec)

	cctx, stop := context.WithCancel(ctx)
	defer stop()
	go func() {
		select {
		case <-cancel:
			stop()
		case <-cctx.Done():
		}
	}()

	cmd := exec.CommandContext(cctx, e.ffmpegBin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, stderr.String())
	}
	if progress != nil {
		progress(encoder.Progress{Fraction: 1})
	}
	return nil
}

// buildArgs constructs an ffmpeg argv from a CommandSpec, grounded on
// the same allocate-and-append, commented-section shape as
// pkg/planner's BuildArgs (in turn grounded on Muxmaster's
// ffmpeg.Build), simplified to not assume a TrackKind.
func buildArgs(cmd encoder.CommandSpec) []string {
	args := make([]string, 0, 32+4*len(cmd.Inputs))
	args = append(args, "-y", "-hide_banner", "-loglevel", "error")

	for _, in := range cmd.Inputs {
		if in.Blank {
			w, h := cmd.Width, cmd.Height
			if w <= 0 || h <= 0 {
				w, h = 1920, 1080
			}
			dur := in.SourceEnd.Sub(in.SourceStart)
			args = append(args, "-f", "lavfi", "-t", strconv.FormatFloat(dur.Seconds(), 'f', 6, 64))
			args = append(args, "-i", fmt.Sprintf("color=c=black:s=%dx%d", w, h))
			continue
		}
		args = append(args, "-ss", strconv.FormatFloat(in.SourceStart.Seconds(), 'f', 6, 64))
		args = append(args, "-to", strconv.FormatFloat(in.SourceEnd.Seconds(), 'f', 6, 64))
		args = append(args, "-i", in.Path)
	}

	if len(cmd.Inputs) > 1 {
		var refs string
		for i := range cmd.Inputs {
			refs += fmt.Sprintf("[%d:v][%d:a]", i, i)
		}
		args = append(args, "-filter_complex", fmt.Sprintf("%sconcat=n=%d:v=1:a=1[outv][outa]", refs, len(cmd.Inputs)))
		args = append(args, "-map", "[outv]", "-map", "[outa]")
	} else {
		args = append(args, "-map", "0:v?", "-map", "0:a?", "-map", "0:s?")
	}

	if cmd.VideoCodec != "" {
		args = append(args, "-c:v", videoCodecName(cmd.VideoCodec))
	}
	if cmd.AudioCodec != "" {
		args = append(args, "-c:a", audioCodecName(cmd.AudioCodec))
	}
	if cmd.Container != "" {
		args = append(args, "-f", containerName(cmd.Container))
	}
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

	args = append(args, cmd.OutputPath)
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

// ffprobeOutput mirrors the small slice of `ffprobe -of json` output
// Probe actually consumes.
type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		Channels   int    `json:"channels"`
		RFrameRate string `json:"r_frame_rate"`
	} `json:"streams"`
}

// Probe shells out to ffprobe and translates its JSON report into a
// MediaInfo, the one piece of real I/O internal/probecache exists to
// avoid repeating.
func (e *execEncoder) Probe(ctx context.Context, path string) (encoder.MediaInfo, error) {
	cmd := exec.CommandContext(ctx, e.ffprobeBin,
		"-v", "quiet", "-print_format", "json", "-show_format", "-show_streams", path)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return encoder.MediaInfo{}, fmt.Errorf("ffprobe: %w: %s", err, stderr.String())
	}

	var out ffprobeOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return encoder.MediaInfo{}, fmt.Errorf("ffprobe: parse output: %w", err)
	}

	info := encoder.MediaInfo{}
	if seconds, err := strconv.ParseFloat(out.Format.Duration, 64); err == nil {
		info.Duration = timecode.DurationFromSeconds(seconds)
	}
	for _, s := range out.Streams {
		info.Streams = append(info.Streams, encoder.StreamInfo{
			Kind:     s.CodecType,
			Codec:    s.CodecName,
			Width:    s.Width,
			Height:   s.Height,
			Channels: s.Channels,
		})
		if s.CodecType == "video" {
			info.Width = s.Width
			info.Height = s.Height
			info.FrameRate = parseRational(s.RFrameRate)
		}
	}
	return info, nil
}

// Version runs `ffmpeg -version` and parses its first line's
// major.minor.patch, when present.
func (e *execEncoder) Version(ctx context.Context) (encoder.Version, error) {
	cmd := exec.CommandContext(ctx, e.ffmpegBin, "-version")
	out, err := cmd.Output()
	if err != nil {
		return encoder.Version{}, fmt.Errorf("ffmpeg -version: %w", err)
	}
	fields := strings.Fields(string(out))
	for i, f := range fields {
		if f == "version" && i+1 < len(fields) {
			return parseVersion(fields[i+1]), nil
		}
	}
	return encoder.Version{}, nil
}

func parseRational(s string) float64 {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return 0
	}
	num, err1 := strconv.ParseFloat(parts[0], 64)
	den, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0
	}
	return num / den
}

func parseVersion(s string) encoder.Version {
	parts := strings.SplitN(s, ".", 3)
	var v encoder.Version
	if len(parts) > 0 {
		v.Major, _ = strconv.Atoi(leadingDigits(parts[0]))
	}
	if len(parts) > 1 {
		v.Minor, _ = strconv.Atoi(leadingDigits(parts[1]))
	}
	if len(parts) > 2 {
		v.Patch, _ = strconv.Atoi(leadingDigits(parts[2]))
	}
	return v
}

func leadingDigits(s string) string {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[:i]
}
