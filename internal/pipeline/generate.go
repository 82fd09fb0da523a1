package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/keagan/beatcut/internal/beat"
	"github.com/keagan/beatcut/internal/clips"
	"github.com/keagan/beatcut/internal/ffmpeg"
	"github.com/keagan/beatcut/internal/planner"
	"github.com/keagan/beatcut/pkg/util"
)

// Generate analyses the track and clips, plans the cut, and encodes the
// result to req.OutputPath. The request's working directory is removed on
// every exit path.
func (p *Pipeline) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	report := func(stage Stage, done, total int) {
		if req.Progress != nil {
			req.Progress(Progress{Stage: stage, Done: done, Total: total})
		}
	}

	start := time.Now()
	p.logger.Info().
		Str("audio", req.AudioPath).
		Int("clips", len(req.ClipPaths)).
		Str("output", req.OutputPath).
		Msg("starting generation")

	report(StageAnalyze, 0, 1)
	track, err := p.AnalyzeTrack(ctx, req.AudioPath)
	if err != nil {
		return nil, err
	}
	if len(track.Timeline) == 0 {
		return nil, ErrEmptyTimeline
	}

	assets, err := p.AnalyzeClips(ctx, req.ClipPaths, nil)
	if err != nil {
		return nil, err
	}
	report(StageAnalyze, 1, 1)

	plan, err := p.Plan(track.Timeline, assets, req.Seed)
	if err != nil {
		return nil, err
	}
	if len(plan.Specs) == 0 {
		return nil, ErrEmptyPlan
	}

	p.logSummary(track, assets, plan, req.Options)

	if err := util.EnsureDir(p.cfg.TempDir); err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	workDir, err := os.MkdirTemp(p.cfg.TempDir, "beatcut-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create work dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			p.logger.Warn().Err(err).Str("dir", workDir).Msg("failed to remove work dir")
		}
	}()

	sources := make(map[string]string, len(assets))
	for _, a := range assets {
		sources[a.ID] = a.Path
	}

	rendered, err := p.render(ctx, workDir, plan.Specs, sources, req, report)
	if err != nil {
		return nil, err
	}
	if err := util.MoveFile(rendered, req.OutputPath); err != nil {
		return nil, fmt.Errorf("failed to write output: %w", err)
	}

	res := &GenerateResult{
		OutputPath: req.OutputPath,
		Seed:       plan.Seed,
		Clips:      len(plan.Specs),
		Dropped:    plan.Dropped,
		Duration:   planner.TotalDuration(plan.Specs),
	}

	p.logger.Info().
		Str("output", res.OutputPath).
		Int("clips", res.Clips).
		Uint64("seed", res.Seed).
		Dur("elapsed", time.Since(start)).
		Msg("generation complete")

	return res, nil
}

func validateRequest(req GenerateRequest) error {
	if req.AudioPath == "" {
		return ErrMissingAudio
	}
	if !util.FileExists(req.AudioPath) {
		return fmt.Errorf("%w: %s", ErrMissingAudio, req.AudioPath)
	}
	if len(req.ClipPaths) == 0 {
		return ErrNoAssets
	}
	if req.OutputPath == "" {
		return fmt.Errorf("output path cannot be empty")
	}
	return nil
}

// render encodes every spec in order, concatenates them and muxes the track.
// It returns the path of the finished file inside workDir.
func (p *Pipeline) render(ctx context.Context, workDir string, specs []planner.ClipSpec, sources map[string]string,
	req GenerateRequest, report func(Stage, int, int)) (string, error) {
	opts := req.Options
	segments := make([]string, 0, len(specs))

	for i, spec := range specs {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		out := filepath.Join(workDir, fmt.Sprintf("segment_%04d.mp4", i))
		err := p.encoder.EncodeSegment(ctx, ffmpeg.SegmentOptions{
			Source:    sources[spec.SourceAssetID],
			Start:     spec.Start,
			Duration:  spec.Duration,
			Output:    out,
			Filter:    opts.Filter,
			Intensity: opts.FilterIntensity,
			KeepAudio: opts.MixClipAudio,
			Width:     opts.Width,
			Height:    opts.Height,
			FPS:       opts.FPS,
		})
		if err != nil {
			return "", fmt.Errorf("segment %d of %d: %w", i+1, len(specs), err)
		}
		segments = append(segments, out)
		report(StageEncode, i+1, len(specs))
	}

	concat := filepath.Join(workDir, "concat.mp4")
	err := p.encoder.Concat(ctx, ffmpeg.ConcatOptions{
		Inputs:    segments,
		Output:    concat,
		WorkDir:   workDir,
		KeepAudio: opts.MixClipAudio,
	})
	if err != nil {
		return "", err
	}
	report(StageConcat, 1, 1)

	ext := filepath.Ext(req.OutputPath)
	if ext == "" {
		ext = ".mp4"
	}
	final := filepath.Join(workDir, "output"+ext)
	err = p.encoder.MuxAudio(ctx, ffmpeg.MuxOptions{
		Video:     concat,
		Audio:     req.AudioPath,
		Output:    final,
		Mix:       opts.MixClipAudio,
		MixVolume: opts.MixVolume,
	})
	if err != nil {
		return "", err
	}
	report(StageMux, 1, 1)

	return final, nil
}

// logSummary records what is about to be encoded
func (p *Pipeline) logSummary(track *TrackAnalysis, assets []clips.Asset, plan *planner.Plan, opts GenerationOptions) {
	p.logger.Info().
		Dur("audio_duration", track.Duration).
		Int("segments", len(track.Timeline)).
		Int("assets", len(assets)).
		Int("clips", len(plan.Specs)).
		Int("dropped", plan.Dropped).
		Uint64("seed", plan.Seed).
		Bool("mix_clip_audio", opts.MixClipAudio).
		Float64("mix_volume", opts.MixVolume).
		Str("filter", string(opts.Filter)).
		Float64("filter_intensity", opts.FilterIntensity).
		Msg("generation summary")

	counts := beat.CountByCategory(track.Timeline)
	for _, c := range track.Categories {
		p.logger.Debug().Str("category", c.String()).Int("segments", counts[c]).Msg("beat segments")
	}

	for _, a := range assets {
		intensities := make([]float64, len(a.TriggerPoints))
		for i, tp := range a.TriggerPoints {
			intensities[i] = tp.Intensity
		}
		var mean float64
		if len(intensities) > 0 {
			mean = stat.Mean(intensities, nil)
		}
		p.logger.Debug().
			Str("asset", a.ID).
			Str("path", a.Path).
			Str("status", a.Status.String()).
			Int("trigger_points", len(a.TriggerPoints)).
			Float64("mean_intensity", mean).
			Msg("asset summary")
	}
}
