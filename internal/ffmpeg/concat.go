package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ConcatOptions defines concatenation parameters
type ConcatOptions struct {
	Inputs []string
	Output string
	// WorkDir holds the generated list file; defaults to the output's directory
	WorkDir string
	// KeepAudio carries segment audio through the re-encode
	KeepAudio    bool
	ProgressFunc ProgressFunc
}

// concatArgs builds the argument list for a concat demuxer run over listFile
func concatArgs(listFile, output string, keepAudio bool, enc Encoding) []string {
	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
	}
	args = append(args, enc.videoArgs()...)
	if keepAudio {
		args = append(args, "-c:a", orDefault(enc.AudioCodec, DefaultAudioCodec))
	} else {
		args = append(args, "-an")
	}
	return append(args, output)
}

// Concat merges encoded segments into one video, re-encoding on the way
func (e *Executor) Concat(ctx context.Context, opts ConcatOptions) error {
	if len(opts.Inputs) == 0 {
		return ErrNoInputs
	}
	if opts.Output == "" {
		return fmt.Errorf("output path is required")
	}

	e.logger.Info().
		Int("inputs", len(opts.Inputs)).
		Str("output", opts.Output).
		Msg("concatenating segments")

	dir := opts.WorkDir
	if dir == "" {
		dir = filepath.Dir(opts.Output)
	}
	listFile, err := writeConcatList(dir, opts.Inputs)
	if err != nil {
		return fmt.Errorf("failed to create concat file: %w", err)
	}
	defer os.Remove(listFile)

	runOpts := RunOptions{
		Args:            concatArgs(listFile, opts.Output, opts.KeepAudio, e.encoding),
		ProgressHandler: opts.ProgressFunc,
		LogHandler: func(line string) {
			e.logger.Trace().Str("ffmpeg", line).Msg("concatenating")
		},
	}

	if err := e.Run(ctx, runOpts); err != nil {
		return fmt.Errorf("concat failed: %w", err)
	}
	return nil
}

// writeConcatList generates the concat demuxer file list in dir
func writeConcatList(dir string, inputs []string) (string, error) {
	f, err := os.CreateTemp(dir, "concat-*.txt")
	if err != nil {
		return "", err
	}
	defer f.Close()

	for _, input := range inputs {
		absPath, err := filepath.Abs(input)
		if err != nil {
			return "", err
		}
		// single quotes inside a quoted path are written as '\''
		escaped := strings.ReplaceAll(absPath, "'", `'\''`)
		if _, err := fmt.Fprintf(f, "file '%s'\n", escaped); err != nil {
			return "", err
		}
	}

	return f.Name(), nil
}
