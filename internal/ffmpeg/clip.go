package ffmpeg

import (
	"context"
	"fmt"
	"time"

	"github.com/keagan/beatcut/pkg/util"
)

// SegmentOptions defines one scheduled excerpt to encode
type SegmentOptions struct {
	Source    string
	Start     time.Duration
	Duration  time.Duration
	Output    string
	Filter    FilterKind
	Intensity float64
	// KeepAudio encodes the clip's own audio instead of dropping it
	KeepAudio bool
	Width     int
	Height    int
	FPS       float64

	ProgressFunc ProgressFunc
}

// segmentArgs builds the argument list for one segment encode
func segmentArgs(opts SegmentOptions, enc Encoding) []string {
	args := []string{
		"-ss", util.FormatDuration(opts.Start),
		"-i", opts.Source,
		"-t", util.FormatDuration(opts.Duration),
	}

	vf := NewFilterBuilder().
		Kind(opts.Filter, opts.Intensity).
		Scale(opts.Width, opts.Height).
		FPS(opts.FPS).
		Build()
	if vf != "" {
		args = append(args, "-vf", vf)
	}

	args = append(args, enc.videoArgs()...)
	if opts.KeepAudio {
		// resample so concat sees identical audio streams
		args = append(args, "-c:a", orDefault(enc.AudioCodec, DefaultAudioCodec), "-ar", "44100", "-ac", "2")
	} else {
		args = append(args, "-an")
	}

	return append(args, opts.Output)
}

// EncodeSegment cuts and re-encodes one excerpt of a source clip
func (e *Executor) EncodeSegment(ctx context.Context, opts SegmentOptions) error {
	if opts.Duration <= 0 {
		return fmt.Errorf("invalid segment duration %v", opts.Duration)
	}
	if opts.Source == "" || opts.Output == "" {
		return fmt.Errorf("segment source and output are required")
	}

	e.logger.Debug().
		Str("source", opts.Source).
		Str("output", opts.Output).
		Dur("start", opts.Start).
		Dur("duration", opts.Duration).
		Str("filter", string(opts.Filter)).
		Msg("encoding segment")

	runOpts := RunOptions{
		Args:            segmentArgs(opts, e.encoding),
		ProgressHandler: opts.ProgressFunc,
		LogHandler: func(line string) {
			e.logger.Trace().Str("ffmpeg", line).Msg("segment encode")
		},
	}

	if err := e.Run(ctx, runOpts); err != nil {
		return fmt.Errorf("segment encode failed: %w", err)
	}
	return nil
}
