package audio

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/rs/zerolog"
)

// writeWAV encodes interleaved 16-bit samples to path
func writeWAV(t *testing.T, path string, rate, channels int, data []int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
}

type fakeSource struct {
	calls   int
	rate    int
	samples []float64
	err     error
}

func (f *fakeSource) DecodePCM(_ context.Context, _ string, sampleRate int) ([]float64, error) {
	f.calls++
	f.rate = sampleRate
	return f.samples, f.err
}

func TestDecodeWAVFastPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	data := make([]int, 8000)
	for i := range data {
		data[i] = int(16384 * math.Sin(2*math.Pi*float64(i)/80))
	}
	writeWAV(t, path, 8000, 1, data)

	src := &fakeSource{}
	pcm, err := NewDecoder(zerolog.Nop(), 8000, src).Decode(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if src.calls != 0 {
		t.Error("fallback used for a matching wav")
	}
	if pcm.SampleRate != 8000 || len(pcm.Samples) != 8000 || pcm.Duration != time.Second {
		t.Fatalf("pcm = rate %d, %d samples, %v", pcm.SampleRate, len(pcm.Samples), pcm.Duration)
	}
	if got := pcm.Samples[20]; math.Abs(got-0.5) > 1e-3 {
		t.Errorf("sample 20 = %v, want ~0.5", got)
	}
}

func TestDecodeWAVDownmix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")
	writeWAV(t, path, 8000, 2, []int{16384, 0, -16384, -16384, 8192, 8192})

	pcm, err := NewDecoder(zerolog.Nop(), 8000, nil).Decode(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{0.25, -0.5, 0.25}
	if len(pcm.Samples) != len(want) {
		t.Fatalf("samples = %v, want %v", pcm.Samples, want)
	}
	for i := range want {
		if math.Abs(pcm.Samples[i]-want[i]) > 1e-9 {
			t.Errorf("sample %d = %v, want %v", i, pcm.Samples[i], want[i])
		}
	}
}

func TestDecodeFallback(t *testing.T) {
	dir := t.TempDir()
	wrongRate := filepath.Join(dir, "48k.wav")
	writeWAV(t, wrongRate, 48000, 1, make([]int, 480))

	tests := []struct {
		name string
		path string
	}{
		{"resample wav", wrongRate},
		{"not a wav", filepath.Join(dir, "clip.mp4")},
		{"broken wav", filepath.Join(dir, "missing.wav")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{samples: make([]float64, 4410)}
			pcm, err := NewDecoder(zerolog.Nop(), 44100, src).Decode(context.Background(), tt.path)
			if err != nil {
				t.Fatal(err)
			}
			if src.calls != 1 || src.rate != 44100 {
				t.Errorf("fallback calls=%d rate=%d", src.calls, src.rate)
			}
			if pcm.Duration != 100*time.Millisecond {
				t.Errorf("duration = %v", pcm.Duration)
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	ctx := context.Background()

	_, err := NewDecoder(zerolog.Nop(), 44100, nil).Decode(ctx, "song.mp3")
	if !errors.Is(err, ErrNoFallback) {
		t.Errorf("err = %v, want ErrNoFallback", err)
	}

	boom := errors.New("boom")
	_, err = NewDecoder(zerolog.Nop(), 44100, &fakeSource{err: boom}).Decode(ctx, "song.mp3")
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want the fallback error", err)
	}

	if _, err := NewDecoder(zerolog.Nop(), 44100, &fakeSource{}).Decode(ctx, "silent.mp3"); err == nil {
		t.Error("expected error for an empty decode")
	}
}
