package spectrum

import (
	"context"
	"errors"
	"math"
	"math/cmplx"
	"testing"
	"time"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

func sine(freq float64, rate, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / float64(rate))
	}
	return out
}

func TestNewValidates(t *testing.T) {
	tests := []struct {
		name            string
		size, hop, rate int
	}{
		{"tiny fft", 1, 512, 44100},
		{"zero hop", 512, 0, 44100},
		{"zero rate", 512, 512, 0},
	}
	for _, tt := range tests {
		if _, err := New(tt.size, tt.hop, tt.rate); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestMagnitudesPeakAtToneBin(t *testing.T) {
	a, err := New(DefaultFFTSize, DefaultHopSize, DefaultSampleRate)
	if err != nil {
		t.Fatal(err)
	}

	for _, bin := range []int{3, 10, 42, 100} {
		freq := a.BinFrequency(bin)
		mags := a.Magnitudes(sine(freq, DefaultSampleRate, DefaultFFTSize))
		if len(mags) != a.Bins() {
			t.Fatalf("got %d bins, want %d", len(mags), a.Bins())
		}

		peak := 0
		for k, m := range mags {
			if m > mags[peak] {
				peak = k
			}
		}
		if peak != bin {
			t.Errorf("tone at %.1fHz peaked in bin %d, want %d", freq, peak, bin)
		}
	}
}

func TestMagnitudesMatchReferenceFFT(t *testing.T) {
	a, err := New(256, 128, 8000)
	if err != nil {
		t.Fatal(err)
	}

	frame := sine(440, 8000, 256)
	for i := range frame {
		frame[i] += 0.3 * math.Cos(float64(i)*0.7)
	}
	got := a.Magnitudes(frame)

	windowed := make([]float64, len(frame))
	win := window.Hann(len(frame))
	for i := range frame {
		windowed[i] = frame[i] * win[i]
	}
	ref := fft.FFTReal(windowed)

	for k := range got {
		if want := cmplx.Abs(ref[k]); math.Abs(got[k]-want) > 1e-6*math.Max(1, want) {
			t.Fatalf("bin %d = %v, reference %v", k, got[k], want)
		}
	}
}

func TestMagnitudesSilence(t *testing.T) {
	a, _ := New(512, 512, 44100)
	for k, m := range a.Magnitudes(make([]float64, 512)) {
		if m != 0 {
			t.Fatalf("bin %d = %v for silence", k, m)
		}
	}
}

func TestFramesCountAndTimes(t *testing.T) {
	a, _ := New(512, 512, 44100)
	samples := make([]float64, 44100)

	var times []time.Duration
	n, err := a.Frames(context.Background(), samples, func(mags []float64, at time.Duration) error {
		times = append(times, at)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if n != 86 || len(times) != 86 {
		t.Fatalf("frames = %d (callbacks %d), want 86", n, len(times))
	}
	if times[0] != 0 {
		t.Errorf("first frame at %v", times[0])
	}
	if want := time.Duration(512) * time.Second / 44100; times[1] != want {
		t.Errorf("second frame at %v, want %v", times[1], want)
	}
	for i := 1; i < len(times); i++ {
		if times[i] <= times[i-1] {
			t.Fatalf("frame times not increasing at %d", i)
		}
	}
}

func TestFrameCount(t *testing.T) {
	a, _ := New(512, 256, 44100)
	tests := []struct{ n, want int }{
		{0, 0},
		{100, 1},
		{512, 1},
		{767, 1},
		{768, 2},
		{1024, 3},
	}
	for _, tt := range tests {
		if got := a.FrameCount(tt.n); got != tt.want {
			t.Errorf("FrameCount(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestFramesStopsOnCallbackError(t *testing.T) {
	a, _ := New(64, 32, 8000)
	stop := errors.New("stop")

	calls := 0
	_, err := a.Frames(context.Background(), make([]float64, 4096), func([]float64, time.Duration) error {
		calls++
		if calls == 3 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) || calls != 3 {
		t.Errorf("err = %v after %d calls", err, calls)
	}
}

func TestFramesHonoursCancellation(t *testing.T) {
	a, _ := New(64, 32, 8000)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := a.Frames(ctx, make([]float64, 4096), func([]float64, time.Duration) error { return nil })
	if !errors.Is(err, context.Canceled) || n != 0 {
		t.Errorf("n = %d, err = %v", n, err)
	}
}
