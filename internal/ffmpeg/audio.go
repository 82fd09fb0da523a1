package ffmpeg

import (
	"context"
	"encoding/binary"
	"fmt"
)

// decodeArgs asks ffmpeg for raw mono s16le PCM on stdout
func decodeArgs(input string, sampleRate int) []string {
	return []string{
		"-i", input,
		"-vn",
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", fmt.Sprintf("%d", sampleRate),
		"-ac", "1",
		"pipe:1",
	}
}

// DecodePCM decodes the audio stream of input to mono samples in [-1,1)
func (e *Executor) DecodePCM(ctx context.Context, input string, sampleRate int) ([]float64, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}

	e.logger.Debug().
		Str("input", input).
		Int("sample_rate", sampleRate).
		Msg("decoding audio")

	out, err := e.Capture(ctx, decodeArgs(input, sampleRate))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", input, err)
	}
	return s16leToFloat(out), nil
}

// s16leToFloat converts little-endian int16 PCM, dropping a trailing odd byte
func s16leToFloat(raw []byte) []float64 {
	samples := make([]float64, len(raw)/2)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(raw[i*2:]))
		samples[i] = float64(v) / 32768.0
	}
	return samples
}
