package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"edv/internal/elog"
	"edv/internal/envconfig"
	"edv/pkg/encoder"
	"edv/pkg/planner"
	"edv/pkg/timecode"
)

var renderCmd = &cobra.Command{
	Use:   "render <project-file>",
	Short: "Plan and execute a render of a project's timeline",
	Args:  cobra.ExactArgs(1),
	RunE:  runRender,
}

func runRender(cmd *cobra.Command, args []string) error {
	projectPath := args[0]
	flags := cmd.Flags()

	output, _ := flags.GetString("output")
	width, _ := flags.GetInt("width")
	height, _ := flags.GetInt("height")
	fps, _ := flags.GetFloat64("fps")
	vcodec, _ := flags.GetString("vcodec")
	acodec, _ := flags.GetString("acodec")
	format, _ := flags.GetString("format")
	quality, _ := flags.GetString("quality")
	threads, _ := flags.GetInt("threads")
	scratch, _ := flags.GetString("scratch")
	ffmpegBin, _ := flags.GetString("ffmpeg")
	ffprobeBin, _ := flags.GetString("ffprobe")
	dryRun, _ := flags.GetBool("dry-run")
	rangeStart, _ := flags.GetString("range-start")
	rangeEnd, _ := flags.GetString("range-end")
	envPath, _ := flags.GetString("env")

	if output == "" {
		return fmt.Errorf("--output is required")
	}

	// An env.yaml supplies the encoder/scratch paths and the persisted
	// render defaults, so a configured installation doesn't repeat them
	// as flags on every render.
	var env *envconfig.Env
	if envPath != "" {
		envYAML, err := os.ReadFile(envPath)
		if err != nil {
			return fmt.Errorf("read env config: %w", err)
		}
		env, err = envconfig.NewEnv(envPath, envYAML)
		if err != nil {
			return err
		}
		if err := env.PrepareDirectories(); err != nil {
			return err
		}
		if scratch == "" {
			scratch = env.ScratchDir
		}
		if !flags.Changed("ffmpeg") {
			ffmpegBin = env.EncoderBin
		}

		general, err := envconfig.NewGeneralStore(env.ConfigDir)
		if err != nil {
			return err
		}
		defaults := general.Get()
		if threads == 0 {
			threads = defaults.DefaultThreads
		}
		if !flags.Changed("vcodec") && defaults.DefaultVideoCodec != "" {
			vcodec = strings.ToLower(defaults.DefaultVideoCodec)
		}
		if !flags.Changed("acodec") && defaults.DefaultAudioCodec != "" {
			acodec = strings.ToLower(defaults.DefaultAudioCodec)
		}
		if !flags.Changed("format") && defaults.DefaultFormat != "" {
			format = strings.ToLower(defaults.DefaultFormat)
		}
	}

	p, err := openProject(projectPath)
	if err != nil {
		return err
	}

	cfg := planner.RenderConfig{
		OutputPath: output,
		Width:      width,
		Height:     height,
		FrameRate:  fps,
		VideoCodec: encoder.VideoCodec(vcodec),
		AudioCodec: encoder.AudioCodec(acodec),
		Format:     encoder.Container(format),
		Quality:    quality,
		Threads:    threads,
	}
	if rangeStart != "" || rangeEnd != "" {
		start, err := parseTimeOrZero(rangeStart)
		if err != nil {
			return fmt.Errorf("--range-start: %w", err)
		}
		end, err := parseTimeOrZero(rangeEnd)
		if err != nil {
			return fmt.Errorf("--range-end: %w", err)
		}
		cfg.Range = &encoder.TimeRange{Start: start, End: end}
	}

	if scratch == "" {
		scratch, err = os.MkdirTemp("", "edv-render-*")
		if err != nil {
			return fmt.Errorf("create scratch directory: %w", err)
		}
		defer os.RemoveAll(scratch)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := planner.Preflight(ctx, scratch, &cfg); err != nil {
		return err
	}

	log := elog.New()
	var logWG sync.WaitGroup
	log.Start(ctx, &logWG)
	go log.LogToStdout(ctx)

	// With an env config present, renders also leave a queryable trail
	// in its log database (see `edv logs`).
	if env != nil {
		logDB := elog.NewDB(filepath.Join(env.ConfigDir, "logs.db"))
		if err := logDB.Init(); err != nil {
			return err
		}
		defer logDB.Close()
		go logDB.SaveLogs(ctx, log)
	}

	enc := newExecEncoder(ffmpegBin, ffprobeBin)
	pl := planner.New(log)
	plan, err := pl.Build(ctx, p, enc, cfg, scratch)
	if err != nil {
		return err
	}

	if dryRun {
		for _, step := range plan.Steps {
			fmt.Printf("step %s (%s, %.3fs) -> %s\n", step.ID, step.TrackKind, step.Duration.Seconds(), step.Command.OutputPath)
		}
		fmt.Printf("mux (%.3fs) -> %s\n", plan.Mux.Duration.Seconds(), plan.Mux.Command.OutputPath)
		fmt.Printf("estimated work: %.3fs\n", plan.EstimatedDuration.Seconds())
		return nil
	}

	cancel := ctx.Done()
	err = pl.Execute(ctx, plan, enc, cfg, func(pr planner.Progress) {
		fmt.Printf("\r%-16s %5.1f%%", pr.Stage, pr.Fraction*100)
	}, cancel)
	fmt.Println()
	return err
}

func parseTimeOrZero(s string) (timecode.TimePosition, error) {
	if s == "" {
		return timecode.TimePosition{}, nil
	}
	return parseTime(s)
}

func init() {
	renderCmd.Flags().String("output", "", "output file path (required)")
	renderCmd.Flags().Int("width", 0, "output width in pixels")
	renderCmd.Flags().Int("height", 0, "output height in pixels")
	renderCmd.Flags().Float64("fps", 0, "output frame rate")
	renderCmd.Flags().String("vcodec", string(encoder.VideoCodecH264), "video codec: h264, h265, vp9, prores, copy")
	renderCmd.Flags().String("acodec", string(encoder.AudioCodecAAC), "audio codec: aac, mp3, opus, flac, copy")
	renderCmd.Flags().String("format", string(encoder.ContainerMP4), "container format: mp4, webm, mov, mkv")
	renderCmd.Flags().String("quality", "", "encoder quality preset")
	renderCmd.Flags().Int("threads", 0, "encoder thread count (0 = autodetect)")
	renderCmd.Flags().String("scratch", "", "scratch directory for intermediates (default: a temp directory)")
	renderCmd.Flags().String("ffmpeg", "/usr/bin/ffmpeg", "path to the ffmpeg binary")
	renderCmd.Flags().String("ffprobe", "/usr/bin/ffprobe", "path to the ffprobe binary")
	renderCmd.Flags().Bool("dry-run", false, "print the plan without invoking the encoder")
	renderCmd.Flags().String("range-start", "", "render range start (seconds or H:M:S[.f])")
	renderCmd.Flags().String("range-end", "", "render range end (seconds or H:M:S[.f])")
	renderCmd.Flags().String("env", "", "path to an env.yaml supplying encoder/scratch paths and render defaults")
}
