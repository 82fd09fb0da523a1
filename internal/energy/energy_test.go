package energy

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"
	"time"
)

const rate = 8000

// signal builds a flat low background with 440Hz bursts of the given length
func signal(length time.Duration, burst time.Duration, starts ...time.Duration) []float64 {
	n := toSamples(length)
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.01
	}
	for _, s := range starts {
		from := toSamples(s)
		to := from + toSamples(burst)
		for i := from; i < to && i < n; i++ {
			out[i] = math.Sin(2 * math.Pi * 440 * float64(i-from) / rate)
		}
	}
	return out
}

func toSamples(d time.Duration) int {
	return int(int64(d) * rate / int64(time.Second))
}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

func TestAnalyzeSingleBurst(t *testing.T) {
	t0 := 1500 * time.Millisecond
	samples := signal(3*time.Second, ms(100), t0-ms(50))

	points, err := Analyze(samples, rate)
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 1 {
		t.Fatalf("got %d trigger points, want 1: %+v", len(points), points)
	}
	tp := points[0]
	if d := tp.Time - t0; d < -ms(100) || d > ms(100) {
		t.Errorf("trigger at %v, want near %v", tp.Time, t0)
	}
	if tp.Intensity < 0 || tp.Intensity > 1 {
		t.Errorf("intensity %v out of range", tp.Intensity)
	}
}

func TestAnalyzeMinimumSeparation(t *testing.T) {
	// 1.3s is too close to 1.0s; 1.6s is measured against 1.0s, not the rejected 1.3s
	samples := signal(3*time.Second, ms(100), ms(1000), ms(1300), ms(1600), ms(2500))

	points, err := Analyze(samples, rate)
	if err != nil {
		t.Fatal(err)
	}

	want := []time.Duration{ms(1000), ms(1600), ms(2500)}
	if len(points) != len(want) {
		t.Fatalf("got %+v, want times %v", points, want)
	}
	for i, tp := range points {
		if tp.Time != want[i] {
			t.Errorf("point %d at %v, want %v", i, tp.Time, want[i])
		}
	}
}

func TestAnalyzeSeparationProperty(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	for trial := 0; trial < 20; trial++ {
		samples := make([]float64, 5*rate)
		for i := range samples {
			samples[i] = 0.05 * (rng.Float64() - 0.5)
		}
		for b := 0; b < 12; b++ {
			start := rng.IntN(len(samples) - 400)
			amp := 0.2 + rng.Float64()
			for i := start; i < start+400; i++ {
				samples[i] = amp * math.Sin(float64(i))
			}
		}

		points, err := Analyze(samples, rate)
		if err != nil {
			t.Fatal(err)
		}
		for i, tp := range points {
			if tp.Intensity < 0 || tp.Intensity > 1 {
				t.Fatalf("trial %d: intensity %v out of range", trial, tp.Intensity)
			}
			if i > 0 && tp.Time-points[i-1].Time < MinSeparation {
				t.Fatalf("trial %d: points %v and %v too close", trial, points[i-1].Time, tp.Time)
			}
		}
	}
}

func TestAnalyzeDegenerateInput(t *testing.T) {
	tests := []struct {
		name    string
		samples []float64
	}{
		{"empty", nil},
		{"shorter than a window", make([]float64, rate/20)},
		{"silence", make([]float64, 2*rate)},
		{"flat", signal(2*time.Second, 0)},
	}
	for _, tt := range tests {
		points, err := Analyze(tt.samples, rate)
		if err != nil {
			t.Errorf("%s: %v", tt.name, err)
		}
		if len(points) != 0 {
			t.Errorf("%s: got %+v", tt.name, points)
		}
	}
}

func TestAnalyzeInvalidSampleRate(t *testing.T) {
	for _, r := range []int{0, -44100, 5} {
		if _, err := Analyze(make([]float64, 100), r); !errors.Is(err, ErrInvalidSampleRate) {
			t.Errorf("rate %d: err = %v", r, err)
		}
	}
}

func TestRMSWindowLayout(t *testing.T) {
	samples := make([]float64, rate)
	for i := range samples {
		samples[i] = 0.5
	}
	windows := rmsWindows(samples, rate, rate/10, rate/20)

	// starts at 0, 50ms ... 900ms
	if len(windows) != 19 {
		t.Fatalf("got %d windows, want 19", len(windows))
	}
	if windows[1].at != ms(50) || windows[18].at != ms(900) {
		t.Errorf("window times %v .. %v", windows[1].at, windows[18].at)
	}
	for _, w := range windows {
		if math.Abs(w.energy-0.5) > 1e-12 {
			t.Fatalf("energy %v, want 0.5", w.energy)
		}
	}
}
