package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/rs/zerolog"
)

// ErrNoFallback is returned when a file needs ffmpeg but none is configured
var ErrNoFallback = errors.New("no fallback decoder configured")

// PCM is decoded mono audio
type PCM struct {
	SampleRate int
	Samples    []float64
	Duration   time.Duration
}

// NewPCM wraps samples, deriving the duration from the sample count
func NewPCM(samples []float64, sampleRate int) *PCM {
	var d time.Duration
	if sampleRate > 0 {
		d = time.Duration(len(samples)) * time.Second / time.Duration(sampleRate)
	}
	return &PCM{SampleRate: sampleRate, Samples: samples, Duration: d}
}

// Decoder turns a media file into mono PCM at a fixed rate
type Decoder interface {
	Decode(ctx context.Context, path string) (*PCM, error)
}

// PCMSource is anything that can decode arbitrary media to mono samples, such
// as the ffmpeg executor
type PCMSource interface {
	DecodePCM(ctx context.Context, path string, sampleRate int) ([]float64, error)
}

// FileDecoder reads WAV files that already match the target rate directly and
// hands everything else to the fallback
type FileDecoder struct {
	logger     zerolog.Logger
	sampleRate int
	fallback   PCMSource
}

// NewDecoder creates a decoder producing audio at sampleRate
func NewDecoder(logger zerolog.Logger, sampleRate int, fallback PCMSource) *FileDecoder {
	return &FileDecoder{
		logger:     logger.With().Str("component", "audio").Logger(),
		sampleRate: sampleRate,
		fallback:   fallback,
	}
}

// Decode implements Decoder
func (d *FileDecoder) Decode(ctx context.Context, path string) (*PCM, error) {
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		pcm, err := readWAV(path)
		switch {
		case err != nil:
			d.logger.Debug().Err(err).Str("path", path).Msg("wav fast path failed, falling back")
		case pcm.SampleRate != d.sampleRate:
			d.logger.Debug().
				Str("path", path).
				Int("sample_rate", pcm.SampleRate).
				Int("target", d.sampleRate).
				Msg("wav needs resampling, falling back")
		default:
			return pcm, nil
		}
	}

	if d.fallback == nil {
		return nil, fmt.Errorf("decode %s: %w", path, ErrNoFallback)
	}
	samples, err := d.fallback.DecodePCM(ctx, path, d.sampleRate)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("decode %s: no audio samples", path)
	}
	return NewPCM(samples, d.sampleRate), nil
}

// readWAV decodes a PCM WAV file and downmixes it to mono
func readWAV(path string) (*PCM, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%s is not a valid wav file", path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("read pcm: %w", err)
	}
	if buf.Format == nil || buf.Format.NumChannels <= 0 {
		return nil, fmt.Errorf("%s has no channel layout", path)
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = int(dec.BitDepth)
	}
	return NewPCM(downmix(buf, bitDepth), buf.Format.SampleRate), nil
}

// downmix averages interleaved channels and scales to [-1,1)
func downmix(buf *goaudio.IntBuffer, bitDepth int) []float64 {
	if bitDepth <= 0 {
		bitDepth = 16
	}
	channels := buf.Format.NumChannels
	scale := float64(int64(1) << (bitDepth - 1))

	frames := len(buf.Data) / channels
	out := make([]float64, frames)
	for i := range out {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(buf.Data[i*channels+c])
		}
		out[i] = sum / float64(channels) / scale
	}
	return out
}
