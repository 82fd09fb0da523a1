package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Options configures an Executor. Zero values fall back to the defaults.
type Options struct {
	FFmpegPath  string
	FFprobePath string
	Threads     int
	Preset      string
	CRF         int
	VideoCodec  string
	AudioCodec  string
}

// Executor handles all ffmpeg operations with progress streaming
type Executor struct {
	logger      zerolog.Logger
	ffmpegPath  string
	ffprobePath string
	threads     int
	encoding    Encoding
}

// New creates a new ffmpeg executor, resolving both binaries
func New(logger zerolog.Logger, opts Options) (*Executor, error) {
	ffmpegPath, err := exec.LookPath(orDefault(opts.FFmpegPath, "ffmpeg"))
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}

	ffprobePath, err := exec.LookPath(orDefault(opts.FFprobePath, "ffprobe"))
	if err != nil {
		return nil, fmt.Errorf("ffprobe not found: %w", err)
	}

	return &Executor{
		logger:      logger.With().Str("component", "ffmpeg").Logger(),
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		threads:     opts.Threads,
		encoding: Encoding{
			Preset:     orDefault(opts.Preset, DefaultPreset),
			CRF:        opts.CRF,
			VideoCodec: orDefault(opts.VideoCodec, DefaultVideoCodec),
			AudioCodec: orDefault(opts.AudioCodec, DefaultAudioCodec),
		},
	}, nil
}

// baseArgs are prepended to every ffmpeg invocation
func (e *Executor) baseArgs(progress bool) []string {
	args := []string{"-y", "-hide_banner", "-loglevel", "info"}
	if e.threads > 0 {
		args = append(args, "-threads", fmt.Sprintf("%d", e.threads))
	}
	if progress {
		args = append(args, "-progress", "pipe:2")
	}
	return args
}

// Run executes ffmpeg with the given arguments and streams progress
func (e *Executor) Run(ctx context.Context, opts RunOptions) error {
	if len(opts.Args) == 0 {
		return fmt.Errorf("no arguments provided")
	}

	args := append(e.baseArgs(true), opts.Args...)

	e.logger.Debug().
		Str("cmd", "ffmpeg").
		Strs("args", args).
		Msg("executing ffmpeg")

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	// keep the tail of stderr for error reports
	tail := &lineTail{max: 8}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		e.streamOutput(stderr, opts.ProgressHandler, func(line string) {
			tail.add(line)
			if opts.LogHandler != nil {
				opts.LogHandler(line)
			}
		})
	}()

	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			if opts.LogHandler != nil {
				opts.LogHandler(scanner.Text())
			}
		}
	}()

	wg.Wait()

	if err := cmd.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("ffmpeg execution failed: %w: %s", err, tail.String())
	}

	e.logger.Debug().Msg("ffmpeg execution completed")
	return nil
}

// Capture runs ffmpeg and returns everything it wrote to stdout
func (e *Executor) Capture(ctx context.Context, args []string) ([]byte, error) {
	full := append(e.baseArgs(false), args...)

	e.logger.Debug().
		Str("cmd", "ffmpeg").
		Strs("args", full).
		Msg("capturing ffmpeg output")

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.ffmpegPath, full...)
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("ffmpeg execution failed: %w: %s", err, lastLines(stderr.String(), 8))
	}
	return out, nil
}

// streamOutput parses ffmpeg output and calls handlers
func (e *Executor) streamOutput(r io.Reader, progressHandler func(*Progress), logHandler func(string)) {
	scanner := bufio.NewScanner(r)
	progressData := &Progress{}

	for scanner.Scan() {
		line := scanner.Text()

		if logHandler != nil {
			logHandler(line)
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)

		switch key {
		case "frame":
			fmt.Sscanf(value, "%d", &progressData.Frame)
		case "fps":
			fmt.Sscanf(value, "%f", &progressData.FPS)
		case "bitrate":
			progressData.Bitrate = value
		case "out_time":
			progressData.Time = value
		case "speed":
			progressData.Speed = value
		case "progress":
			// end of a progress block
			if progressHandler != nil && progressData.Frame > 0 {
				progressHandler(progressData)
			}
			progressData = &Progress{}
		}
	}
}

type lineTail struct {
	mu    sync.Mutex
	max   int
	lines []string
}

func (t *lineTail) add(line string) {
	if strings.Contains(line, "=") && !strings.Contains(line, " ") {
		// progress key=value lines are noise in an error report
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	if len(t.lines) > t.max {
		t.lines = t.lines[1:]
	}
}

func (t *lineTail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Join(t.lines, "; ")
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "; ")
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// ErrNoInputs is returned by operations that need at least one input file
var ErrNoInputs = errors.New("no input files provided")
