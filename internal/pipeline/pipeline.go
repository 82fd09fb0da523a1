package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/keagan/beatcut/internal/audio"
	"github.com/keagan/beatcut/internal/beat"
	"github.com/keagan/beatcut/internal/cache"
	"github.com/keagan/beatcut/internal/clips"
	"github.com/keagan/beatcut/internal/config"
	"github.com/keagan/beatcut/internal/energy"
	"github.com/keagan/beatcut/internal/ffmpeg"
	"github.com/keagan/beatcut/internal/planner"
	"github.com/keagan/beatcut/internal/spectrum"
)

var errNoAudioStream = errors.New("clip has no audio stream")

// Pipeline orchestrates track analysis, clip analysis, planning and encoding
type Pipeline struct {
	logger     zerolog.Logger
	cfg        *config.Config
	categories []beat.Category

	encoder Encoder
	prober  Prober
	decoder audio.Decoder
	clips   *clips.Manager
	cache   *cache.TriggerCache
}

// Deps are the external collaborators a pipeline drives
type Deps struct {
	Encoder Encoder
	Prober  Prober
	Decoder audio.Decoder
}

// New creates a pipeline backed by ffmpeg and ffprobe
func New(logger zerolog.Logger, cfg *config.Config) (*Pipeline, error) {
	exec, err := ffmpeg.New(logger, ffmpeg.Options{
		FFmpegPath:  cfg.FFmpeg.BinaryPath,
		FFprobePath: cfg.FFmpeg.ProbePath,
		Threads:     cfg.FFmpeg.Threads,
		Preset:      cfg.FFmpeg.Preset,
		CRF:         cfg.FFmpeg.CRF,
		VideoCodec:  cfg.FFmpeg.VideoCodec,
		AudioCodec:  cfg.FFmpeg.AudioCodec,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ffmpeg: %w", err)
	}

	return NewWithDeps(logger, cfg, Deps{
		Encoder: exec,
		Prober:  exec,
		Decoder: audio.NewDecoder(logger, cfg.Analysis.SampleRate, exec),
	})
}

// NewWithDeps creates a pipeline around the given collaborators
func NewWithDeps(logger zerolog.Logger, cfg *config.Config, deps Deps) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	categories, err := cfg.Categories()
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		logger:     logger.With().Str("component", "pipeline").Logger(),
		cfg:        cfg,
		categories: categories,
		encoder:    deps.Encoder,
		prober:     deps.Prober,
		decoder:    deps.Decoder,
		clips:      clips.NewManager(),
	}

	if cfg.Cache.Enabled {
		p.cache, err = cache.Open(logger, cfg.Analysis.SampleRate)
		if err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Close releases pipeline resources
func (p *Pipeline) Close() error {
	if p.cache != nil {
		return p.cache.Close()
	}
	return nil
}

// Categories returns the active category selection
func (p *Pipeline) Categories() []beat.Category {
	return p.categories
}

// AnalyzeTrack decodes the track and runs beat detection over its spectrum
func (p *Pipeline) AnalyzeTrack(ctx context.Context, path string) (*TrackAnalysis, error) {
	p.logger.Info().
		Str("input", path).
		Stringer("categories", categoryList(p.categories)).
		Msg("analyzing audio track")
	start := time.Now()

	pcm, err := p.decoder.Decode(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to decode track: %w", err)
	}

	an, err := spectrum.New(p.cfg.Analysis.FFTSize, p.cfg.Analysis.HopSize, pcm.SampleRate)
	if err != nil {
		return nil, err
	}

	tracker := beat.NewTracker(p.categories)
	frames, err := an.Frames(ctx, pcm.Samples, func(mags []float64, at time.Duration) error {
		tracker.Process(mags, at)
		return nil
	})
	if err != nil {
		return nil, err
	}

	res := &TrackAnalysis{
		Path:       path,
		Duration:   pcm.Duration,
		SampleRate: pcm.SampleRate,
		Frames:     frames,
		Categories: tracker.Active(),
		Timeline:   tracker.Timeline(pcm.Duration, p.cfg.Analysis.FullTimeline),
		Stats:      tracker.Stats(),
	}

	p.logger.Info().
		Dur("duration", res.Duration).
		Int("frames", frames).
		Int("segments", len(res.Timeline)).
		Dur("elapsed", time.Since(start)).
		Msg("track analysis complete")

	return res, nil
}

// AnalyzeClips registers the clips and finds their trigger points
// concurrently. A clip that fails is returned with StatusFailed and no
// trigger points; it does not stop the others.
func (p *Pipeline) AnalyzeClips(ctx context.Context, paths []string, onDone func(clips.Asset)) ([]clips.Asset, error) {
	if len(paths) == 0 {
		return nil, ErrNoAssets
	}

	ids := make([]string, 0, len(paths))
	seen := make(map[string]bool, len(paths))
	for _, path := range paths {
		a, _ := p.clips.Register(path)
		if !seen[a.ID] {
			seen[a.ID] = true
			ids = append(ids, a.ID)
		}
	}

	fn := p.analyzeClip
	if p.cache != nil {
		fn = p.cache.Wrap(fn)
	}

	start := time.Now()
	err := p.clips.AnalyzeAll(ctx, p.cfg.Concurrency, fn, func(a clips.Asset) {
		if a.Status == clips.StatusFailed {
			p.logger.Warn().Err(a.Err).Str("asset", a.ID).Str("path", a.Path).Msg("clip analysis failed")
		} else {
			p.logger.Debug().
				Str("asset", a.ID).
				Str("path", a.Path).
				Dur("duration", a.Duration).
				Int("trigger_points", len(a.TriggerPoints)).
				Msg("clip analyzed")
		}
		if onDone != nil {
			onDone(a)
		}
	})
	if err != nil {
		return nil, err
	}

	assets := make([]clips.Asset, 0, len(ids))
	failed := 0
	for _, id := range ids {
		a, ok := p.clips.Get(id)
		if !ok {
			continue
		}
		if a.Status == clips.StatusFailed {
			failed++
		}
		assets = append(assets, a)
	}

	p.logger.Info().
		Int("clips", len(assets)).
		Int("failed", failed).
		Dur("elapsed", time.Since(start)).
		Msg("clip analysis complete")

	return assets, nil
}

func (p *Pipeline) analyzeClip(ctx context.Context, path string) (clips.Analysis, error) {
	info, err := p.prober.ProbeVideo(ctx, path)
	if err != nil {
		return clips.Analysis{}, fmt.Errorf("probe: %w", err)
	}
	if !info.HasAudio {
		return clips.Analysis{}, errNoAudioStream
	}

	pcm, err := p.decoder.Decode(ctx, path)
	if err != nil {
		return clips.Analysis{}, err
	}
	points, err := energy.Analyze(pcm.Samples, pcm.SampleRate)
	if err != nil {
		return clips.Analysis{}, err
	}

	duration := info.Duration
	if duration <= 0 {
		duration = pcm.Duration
	}
	return clips.Analysis{Duration: duration, TriggerPoints: points}, nil
}

// Plan schedules clip excerpts against the timeline. A zero seed draws a
// fresh one; the seed used is recorded in the plan.
func (p *Pipeline) Plan(timeline []beat.Segment, assets []clips.Asset, seed uint64) (*planner.Plan, error) {
	if len(assets) == 0 {
		return nil, ErrNoAssets
	}
	if seed == 0 {
		seed = planner.NewSeed()
	}

	in := make([]planner.Asset, len(assets))
	for i, a := range assets {
		in[i] = planner.Asset{ID: a.ID, Duration: a.Duration, TriggerPoints: a.TriggerPoints}
	}

	plan, err := planner.Build(timeline, in, seed)
	if err != nil {
		return nil, err
	}

	p.logger.Info().
		Uint64("seed", plan.Seed).
		Int("segments", len(timeline)).
		Int("clips", len(plan.Specs)).
		Int("dropped", plan.Dropped).
		Dur("total", planner.TotalDuration(plan.Specs)).
		Msg("plan built")

	return plan, nil
}

// categoryList prints as "kick,snare" in log fields
type categoryList []beat.Category

func (l categoryList) String() string {
	b := make([]byte, 0, 8*len(l))
	for i, c := range l {
		if i > 0 {
			b = append(b, ',')
		}
		b = append(b, c.String()...)
	}
	return string(b)
}
