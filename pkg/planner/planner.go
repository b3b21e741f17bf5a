// Package planner implements the Composition Planner (spec.md C9): it
// walks a Project's timeline and produces an ordered Plan of encoder
// invocations — one intermediate step per contributing track, then a
// final mux step — and drives Plan execution against an injected
// encoder.Encoder, aggregating per-step progress into an overall
// fraction and stage label.
//
// The planner never talks to a subprocess itself; every invocation is
// a CommandSpec handed to the injected Encoder, exactly as spec.md §6
// requires.
package planner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"edv/internal/ekind"
	"edv/internal/elog"
	"edv/internal/id"
	"edv/internal/ivl"
	"edv/pkg/encoder"
	"edv/pkg/multitrack"
	"edv/pkg/project"
	"edv/pkg/timecode"
	"edv/pkg/track"
)

// RenderConfig names the render options recognized by the planner
// (spec.md §6).
type RenderConfig struct {
	OutputPath string
	Width      int
	Height     int
	FrameRate  float64
	VideoCodec encoder.VideoCodec
	AudioCodec encoder.AudioCodec
	Format     encoder.Container
	Quality    string
	Range      *encoder.TimeRange
	Threads    int
}

// Stage names a point along Plan execution (spec.md §4.9).
type Stage int

// Recognized stages.
const (
	StagePreparing Stage = iota
	StageRenderingVideo
	StageProcessingAudio
	StageMuxing
	StageFinalizing
	StageComplete
	StageFailed
	StageCancelled
)

func (s Stage) String() string {
	switch s {
	case StagePreparing:
		return "preparing"
	case StageRenderingVideo:
		return "rendering_video"
	case StageProcessingAudio:
		return "processing_audio"
	case StageMuxing:
		return "muxing"
	case StageFinalizing:
		return "finalizing"
	case StageComplete:
		return "complete"
	case StageFailed:
		return "failed"
	case StageCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// StepKind distinguishes a per-track intermediate step from the final
// mux step.
type StepKind int

// Recognized step kinds.
const (
	StepIntermediate StepKind = iota
	StepMux
)

// Step is one encoder invocation in a Plan.
type Step struct {
	ID         string
	Kind       StepKind
	TrackKind  track.Kind   // intermediate steps: the contributing track's kind.
	InputKinds []track.Kind // mux step only: per-input track kind, parallel to Command.Inputs.
	Duration   timecode.Duration
	Command    encoder.CommandSpec
}

// Plan is an ordered sequence of encoder invocations produced from a
// Project's timeline, plus a total estimated duration used to weight
// progress reporting.
type Plan struct {
	Steps             []Step // intermediate steps, independent of one another.
	Mux               Step   // final mux step, sequenced after every intermediate step.
	EstimatedDuration timecode.Duration
	ScratchDir        string
}

// Sentinel errors (spec.md §7).
var (
	ErrMissingAsset = ekind.New(ekind.MissingAsset, "asset file missing at plan time")
	ErrEmptyPlan    = ekind.New(ekind.InvalidOperation, "render range contains no contributing tracks")
)

// errEncoderFailureKind classifies every step failure under
// ekind.EncoderFailure (spec.md §7) without pinning its message, which
// carries the failing step id and the encoder's own error instead.
var errEncoderFailureKind = ekind.New(ekind.EncoderFailure, "encoder failure")

// encoderFailure wraps a failing step's underlying error with the step
// that produced it and classifies it under ekind.EncoderFailure.
func encoderFailure(stepID string, err error) error {
	return fmt.Errorf("planner: step %s: %w: %w", stepID, err, errEncoderFailureKind)
}

// Planner builds and executes Plans.
type Planner struct {
	Log *elog.Logger
}

// New returns a Planner that logs through log. A nil log falls back to
// a discarding logger so callers that don't care about diagnostics
// don't need to construct one.
func New(log *elog.Logger) *Planner {
	if log == nil {
		log = elog.NewDiscard()
	}
	return &Planner{Log: log}
}

// Build resolves the render range, computes visibility-adjusted clip
// intervals per track, and emits the ordered Plan (spec.md §4.9).
// Every referenced source file is validated through enc.Probe before
// any step is emitted, so an unreadable asset fails the plan before
// the first encoder invocation — except assets already flagged Missing
// at load time, whose clips become blank inputs instead. scratchDir is
// where intermediate files will be written; it is not created here
// (see envconfig.Env.PrepareDirectories).
func (pl *Planner) Build(ctx context.Context, p *project.Project, enc encoder.Encoder, cfg RenderConfig, scratchDir string) (*Plan, error) {
	start, end := pl.effectiveRange(p, cfg)

	var steps []Step
	var totalDuration timecode.Duration

	for _, t := range p.Timeline.Tracks() {
		if t.Muted {
			continue
		}
		if t.Duration().IsZero() {
			continue
		}

		inputs, stepDuration, err := pl.buildTrackInputs(ctx, p, enc, t, start, end)
		if err != nil {
			return nil, err
		}
		if len(inputs) == 0 {
			continue
		}

		outPath := filepath.Join(scratchDir, fmt.Sprintf("track-%s%s", t.ID, intermediateExt(t.Kind)))
		step := Step{
			ID:        t.ID.String(),
			Kind:      StepIntermediate,
			TrackKind: t.Kind,
			Duration:  stepDuration,
			Command: encoder.CommandSpec{
				Inputs:     inputs,
				OutputPath: outPath,
				VideoCodec: cfg.VideoCodec,
				AudioCodec: cfg.AudioCodec,
				Width:      cfg.Width,
				Height:     cfg.Height,
				FrameRate:  cfg.FrameRate,
				Quality:    cfg.Quality,
				Threads:    cfg.Threads,
			},
		}
		steps = append(steps, step)
		totalDuration = totalDuration.Plus(stepDuration)
	}

	if len(steps) == 0 {
		return nil, ErrEmptyPlan
	}

	mux := pl.buildMuxStep(steps, cfg)

	// EstimatedDuration weights progress by the sum of per-track
	// intermediate work only (spec.md §4.9 step 5: "Estimated total
	// work = Σ step durations"); the mux step contributes to the
	// reported stage but not to the denominator, so fraction reaches
	// 1.0 once every intermediate step completes.
	return &Plan{
		Steps:             steps,
		Mux:               mux,
		EstimatedDuration: totalDuration,
		ScratchDir:        scratchDir,
	}, nil
}

// effectiveRange resolves the [start, end) render window: the
// explicit cfg.Range if set, otherwise [0, timeline duration).
func (pl *Planner) effectiveRange(p *project.Project, cfg RenderConfig) (timecode.TimePosition, timecode.TimePosition) {
	if cfg.Range != nil {
		return cfg.Range.Start, cfg.Range.End
	}
	return timecode.TimePosition{}, timecode.TimePosition{}.Add(p.Timeline.Duration())
}

// buildTrackInputs computes the visibility-adjusted, range-clipped
// InputSpecs for one track (spec.md §4.9 step 2-3): each clip's
// occupancy interval, minus any region hidden by a VisibilityDependent
// source, minus anything outside [start, end).
//
// Assets flagged Missing at load time contribute Blank inputs of the
// same duration (rendered as black/silence); an asset that fails
// probing now, without having been flagged at load, is a plan-time
// invariant violation and fails the build.
func (pl *Planner) buildTrackInputs(ctx context.Context, p *project.Project, enc encoder.Encoder, t *track.Track, start, end timecode.TimePosition) ([]encoder.InputSpec, timecode.Duration, error) {
	hidden, err := pl.hiddenIntervals(p, t.ID)
	if err != nil {
		return nil, timecode.Zero(), err
	}

	clips := t.Clips()
	sort.Slice(clips, func(i, j int) bool { return clips[i].Position.Before(clips[j].Position) })

	probed := make(map[id.ID]bool)

	var inputs []encoder.InputSpec
	var total timecode.Duration
	for _, c := range clips {
		a, err := p.Assets.Get(c.AssetID)
		if err != nil {
			return nil, timecode.Zero(), fmt.Errorf("planner: track %s clip %s: %w", t.ID, c.ID, ErrMissingAsset)
		}
		if !a.Missing && !probed[a.ID] {
			if _, probeErr := enc.Probe(ctx, a.Path); probeErr != nil {
				return nil, timecode.Zero(), fmt.Errorf("planner: asset %s path %s: %v: %w", a.ID, a.Path, probeErr, ErrMissingAsset)
			}
			probed[a.ID] = true
		}

		clipInterval := ivl.Interval{Start: c.Position.Seconds(), End: c.End().Seconds()}
		window := ivl.Interval{Start: start.Seconds(), End: end.Seconds()}
		clipped := ivl.Subtract([]ivl.Interval{clipInterval}, invert(window, clipInterval))
		visible := ivl.Subtract(clipped, hidden)

		for _, v := range visible {
			dur := timecode.DurationFromSeconds(v.End - v.Start)
			if a.Missing {
				pl.Log.Warn().Src("planner").Track(t.ID.String()).Msgf("clip %s: asset %s is missing, rendering blank", c.ID, a.ID)
				inputs = append(inputs, encoder.InputSpec{
					SourceEnd: timecode.TimePosition{}.Add(dur),
					Blank:     true,
				})
				total = total.Plus(dur)
				continue
			}
			offsetStart := v.Start - c.Position.Seconds()
			offsetEnd := v.End - c.Position.Seconds()
			sourceStart := c.SourceStart.Add(timecode.DurationFromSeconds(offsetStart))
			sourceEnd := c.SourceStart.Add(timecode.DurationFromSeconds(offsetEnd))
			inputs = append(inputs, encoder.InputSpec{
				Path:        a.Path,
				SourceStart: sourceStart,
				SourceEnd:   sourceEnd,
			})
			total = total.Plus(sourceEnd.Sub(sourceStart))
		}
	}
	return inputs, total, nil
}

// invert returns the portions of clipInterval outside window, i.e. the
// "cut" intervals that buildTrackInputs should subtract to clip a clip
// to the render range.
func invert(window, clipInterval ivl.Interval) []ivl.Interval {
	var cuts []ivl.Interval
	if clipInterval.Start < window.Start {
		cuts = append(cuts, ivl.Interval{Start: clipInterval.Start, End: window.Start})
	}
	if clipInterval.End > window.End {
		cuts = append(cuts, ivl.Interval{Start: window.End, End: clipInterval.End})
	}
	return cuts
}

// hiddenIntervals computes the regions hidden on targetID by its
// VisibilityDependent sources (spec.md §3, §9 Open Questions — see
// DESIGN.md for the interval-subtraction decision this implements): a
// non-empty source hides the complement of its own visible clip
// occupancy (i.e. any gap, whether from a removed clip or a
// never-placed one) across the timeline's full duration, and hides
// that entire span if the whole source track is muted. A source with
// no clips hides nothing.
func (pl *Planner) hiddenIntervals(p *project.Project, targetID id.ID) ([]ivl.Interval, error) {
	var hidden []ivl.Interval
	for _, sourceID := range p.Timeline.GetDependencies(targetID) {
		label, ok := p.Timeline.GetRelationship(sourceID, targetID)
		if !ok || label != multitrack.VisibilityDependent {
			continue
		}
		source, err := p.Timeline.Track(sourceID)
		if err != nil {
			continue
		}
		if source.Duration().IsZero() {
			continue
		}
		span := p.Timeline.Duration().Seconds()
		if source.Muted {
			hidden = append(hidden, ivl.Interval{Start: 0, End: span})
			continue
		}
		var occupied []ivl.Interval
		for _, c := range source.Clips() {
			occupied = append(occupied, ivl.Interval{Start: c.Position.Seconds(), End: c.End().Seconds()})
		}
		hidden = append(hidden, ivl.Subtract([]ivl.Interval{{Start: 0, End: span}}, occupied)...)
	}
	return hidden, nil
}

func intermediateExt(kind track.Kind) string {
	switch kind {
	case track.KindAudio:
		return ".m4a"
	case track.KindSubtitle:
		return ".srt"
	default:
		return ".mp4"
	}
}

// buildMuxStep combines every intermediate step's output into the
// final render step: one input per intermediate file, in track order,
// with each input's track kind recorded in InputKinds. The step builds
// no overlay or mix filter graph, and Execute hands the encoder only
// the CommandSpec, which carries no track kinds.
func (pl *Planner) buildMuxStep(steps []Step, cfg RenderConfig) Step {
	var inputs []encoder.InputSpec
	var kinds []track.Kind
	var total timecode.Duration
	for _, s := range steps {
		inputs = append(inputs, encoder.InputSpec{
			Path:        s.Command.OutputPath,
			SourceStart: timecode.TimePosition{},
			SourceEnd:   timecode.TimePosition{}.Add(s.Duration),
		})
		kinds = append(kinds, s.TrackKind)
		if s.Duration.Compare(total) > 0 {
			total = s.Duration
		}
	}
	return Step{
		ID:         "mux",
		Kind:       StepMux,
		InputKinds: kinds,
		Duration:   total,
		Command: encoder.CommandSpec{
			Inputs:     inputs,
			OutputPath: cfg.OutputPath,
			VideoCodec: cfg.VideoCodec,
			AudioCodec: cfg.AudioCodec,
			Container:  cfg.Format,
			Width:      cfg.Width,
			Height:     cfg.Height,
			FrameRate:  cfg.FrameRate,
			Quality:    cfg.Quality,
			Threads:    cfg.Threads,
		},
	}
}

// Progress reports Plan execution progress as an overall completion
// fraction and the current stage label.
type Progress struct {
	Fraction float64
	Stage    Stage
}

// ProgressCallback receives aggregated execution progress.
type ProgressCallback func(Progress)

// Execute runs every intermediate step (up to cfg.Threads concurrently
// when their outputs don't depend on one another) followed by the mux
// step, reporting aggregated progress through report and honoring
// cooperative cancellation through cancel. On any step failure or on
// cancellation, already-written scratch outputs are removed and the
// stage transitions to Failed/Cancelled.
func (pl *Planner) Execute(ctx context.Context, plan *Plan, enc encoder.Encoder, cfg RenderConfig, report ProgressCallback, cancel <-chan struct{}) error {
	if report == nil {
		report = func(Progress) {}
	}
	// Worker goroutines all funnel through one serialized callback, so
	// the caller never sees concurrent progress reports.
	var reportMu sync.Mutex
	rawReport := report
	report = func(p Progress) {
		reportMu.Lock()
		defer reportMu.Unlock()
		rawReport(p)
	}
	report(Progress{Stage: StagePreparing, Fraction: 0})

	if isCancelled(cancel) {
		pl.cleanupScratch(plan)
		report(Progress{Stage: StageCancelled})
		return context.Canceled
	}

	total := plan.EstimatedDuration.Seconds()
	if total <= 0 {
		total = 1
	}

	var (
		mu       sync.Mutex
		done     float64
		firstErr error
	)
	recordErr := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
		}
	}
	readDone := func() float64 {
		mu.Lock()
		defer mu.Unlock()
		return done
	}
	addDone := func(seconds float64, stage Stage) {
		mu.Lock()
		done += seconds
		fraction := done / total
		mu.Unlock()
		report(Progress{Stage: stage, Fraction: fraction})
	}

	workers := cfg.Threads
	if workers <= 0 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i := range plan.Steps {
		step := plan.Steps[i]
		if isCancelled(cancel) {
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			stage := StageRenderingVideo
			if step.TrackKind == track.KindAudio {
				stage = StageProcessingAudio
			}
			pl.Log.Info().Src("planner").Track(step.ID).Msgf("running step %s", step.ID)
			err := enc.Execute(ctx, step.Command, func(p encoder.Progress) {
				report(Progress{Stage: stage, Fraction: clamp01(readDone() / total)})
			}, cancel)
			if err != nil {
				recordErr(encoderFailure(step.ID, err))
				return
			}
			addDone(step.Duration.Seconds(), stage)
		}()
	}
	wg.Wait()

	if firstErr != nil && !isCancelled(cancel) {
		pl.cleanupScratch(plan)
		pl.Log.Error().Src("planner").Msgf("step failed: %v", firstErr)
		report(Progress{Stage: StageFailed})
		return firstErr
	}
	if isCancelled(cancel) {
		pl.cleanupScratch(plan)
		report(Progress{Stage: StageCancelled})
		return context.Canceled
	}

	doneBeforeMux := readDone()
	report(Progress{Stage: StageMuxing, Fraction: clamp01(doneBeforeMux / total)})
	err := enc.Execute(ctx, plan.Mux.Command, func(p encoder.Progress) {
		report(Progress{Stage: StageMuxing, Fraction: clamp01((doneBeforeMux + p.Fraction*plan.Mux.Duration.Seconds()) / total)})
	}, cancel)
	if err != nil {
		pl.cleanupScratch(plan)
		if isCancelled(cancel) {
			report(Progress{Stage: StageCancelled})
			return context.Canceled
		}
		report(Progress{Stage: StageFailed})
		return encoderFailure(plan.Mux.ID, err)
	}

	report(Progress{Stage: StageFinalizing, Fraction: 1})
	pl.cleanupScratch(plan)
	report(Progress{Stage: StageComplete, Fraction: 1})
	return nil
}

func isCancelled(cancel <-chan struct{}) bool {
	if cancel == nil {
		return false
	}
	select {
	case <-cancel:
		return true
	default:
		return false
	}
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// cleanupScratch removes every intermediate output Build wrote,
// regardless of the execution outcome (spec.md §4.9, §5: "Temporary
// intermediate files ... are deleted on plan success, failure, or
// cancellation").
func (pl *Planner) cleanupScratch(plan *Plan) {
	for _, s := range plan.Steps {
		if err := os.Remove(s.Command.OutputPath); err != nil && !os.IsNotExist(err) {
			pl.Log.Warn().Src("planner").Msgf("cleanup scratch file %s: %v", s.Command.OutputPath, err)
		}
	}
}
