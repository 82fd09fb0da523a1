package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/keagan/beatcut/internal/beat"
	"github.com/keagan/beatcut/internal/ffmpeg"
)

// Request-level input errors. Nothing is analysed or encoded when one of
// these is returned.
var (
	ErrMissingAudio  = errors.New("audio track is missing")
	ErrNoAssets      = errors.New("no clip assets supplied")
	ErrEmptyTimeline = errors.New("no beats detected in audio track")
	// ErrEmptyPlan means every beat segment was dropped during planning
	ErrEmptyPlan = errors.New("plan produced no clips")
)

// Encoder is the external encode/concat/mux collaborator
type Encoder interface {
	EncodeSegment(ctx context.Context, opts ffmpeg.SegmentOptions) error
	Concat(ctx context.Context, opts ffmpeg.ConcatOptions) error
	MuxAudio(ctx context.Context, opts ffmpeg.MuxOptions) error
}

// Prober reads media metadata
type Prober interface {
	ProbeVideo(ctx context.Context, path string) (*ffmpeg.VideoInfo, error)
}

// TrackAnalysis is the beat analysis of one audio track
type TrackAnalysis struct {
	Path       string
	Duration   time.Duration
	SampleRate int
	Frames     int
	Categories []beat.Category
	Timeline   []beat.Segment
	Stats      map[beat.Category]beat.Stats
}

// GenerationOptions is passed through to the encoder untouched
type GenerationOptions struct {
	MixClipAudio    bool
	MixVolume       float64
	Filter          ffmpeg.FilterKind
	FilterIntensity float64
	Width           int
	Height          int
	FPS             float64
}

// Stage identifies a step of a generation request
type Stage string

const (
	StageAnalyze Stage = "analyze"
	StageEncode  Stage = "encode"
	StageConcat  Stage = "concat"
	StageMux     Stage = "mux"
)

// Progress reports how far a generation request has got. Done and Total
// count segments during StageEncode and are 0/1 otherwise.
type Progress struct {
	Stage Stage
	Done  int
	Total int
}

// ProgressFunc receives progress updates from Generate
type ProgressFunc func(Progress)

// GenerateRequest describes one output video
type GenerateRequest struct {
	AudioPath  string
	ClipPaths  []string
	OutputPath string
	Options    GenerationOptions
	// Seed 0 draws a fresh seed
	Seed     uint64
	Progress ProgressFunc
}

// GenerateResult summarises a finished request
type GenerateResult struct {
	OutputPath string
	Seed       uint64
	Clips      int
	Dropped    int
	Duration   time.Duration
}
