package ffmpeg

import (
	"context"
	"fmt"
)

// MuxOptions combines the concatenated video with the beat track.
// Mix keeps the video's own audio at MixVolume underneath the track;
// otherwise the track replaces it.
type MuxOptions struct {
	Video     string
	Audio     string
	Output    string
	Mix       bool
	MixVolume float64

	ProgressFunc ProgressFunc
}

// muxArgs builds the argument list for the final mux
func muxArgs(opts MuxOptions, enc Encoding) []string {
	args := []string{"-i", opts.Video, "-i", opts.Audio}

	if opts.Mix {
		graph := fmt.Sprintf("[0:a]volume=%s[clip];[1:a][clip]amix=inputs=2:duration=first:normalize=0[aout]",
			formatFloat(opts.MixVolume))
		args = append(args, "-filter_complex", graph, "-map", "0:v", "-map", "[aout]")
	} else {
		args = append(args, "-map", "0:v", "-map", "1:a")
	}

	return append(args,
		"-c:v", "copy",
		"-c:a", orDefault(enc.AudioCodec, DefaultAudioCodec),
		"-shortest",
		opts.Output,
	)
}

// MuxAudio writes the final output with the beat track as its soundtrack
func (e *Executor) MuxAudio(ctx context.Context, opts MuxOptions) error {
	if opts.Video == "" || opts.Audio == "" || opts.Output == "" {
		return fmt.Errorf("video, audio and output paths are required")
	}

	e.logger.Info().
		Str("video", opts.Video).
		Str("audio", opts.Audio).
		Bool("mix", opts.Mix).
		Float64("mix_volume", opts.MixVolume).
		Msg("muxing audio")

	runOpts := RunOptions{
		Args:            muxArgs(opts, e.encoding),
		ProgressHandler: opts.ProgressFunc,
		LogHandler: func(line string) {
			e.logger.Trace().Str("ffmpeg", line).Msg("muxing")
		},
	}

	if err := e.Run(ctx, runOpts); err != nil {
		return fmt.Errorf("mux failed: %w", err)
	}
	return nil
}
