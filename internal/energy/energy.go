package energy

import (
	"errors"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

const (
	// WindowLength is the RMS window
	WindowLength = 100 * time.Millisecond
	// HopLength is the step between windows
	HopLength = 50 * time.Millisecond
	// MinSeparation is the minimum spacing between accepted trigger points
	MinSeparation = 500 * time.Millisecond

	thresholdDeviations = 1.5
	intensityDeviations = 3.0
)

// ErrInvalidSampleRate is returned when the sample rate cannot hold a window
var ErrInvalidSampleRate = errors.New("invalid sample rate")

// TriggerPoint is a high-energy instant in a clip's audio
type TriggerPoint struct {
	Time      time.Duration `json:"time"`
	Intensity float64       `json:"intensity"`
}

type window struct {
	at     time.Duration
	energy float64
}

// Analyze finds trigger points in mono PCM. The result is ordered by time with
// consecutive points at least MinSeparation apart.
func Analyze(samples []float64, sampleRate int) ([]TriggerPoint, error) {
	if sampleRate <= 0 {
		return nil, ErrInvalidSampleRate
	}
	size := int(int64(sampleRate) * int64(WindowLength) / int64(time.Second))
	hop := int(int64(sampleRate) * int64(HopLength) / int64(time.Second))
	if size <= 0 || hop <= 0 {
		return nil, ErrInvalidSampleRate
	}

	windows := rmsWindows(samples, sampleRate, size, hop)
	if len(windows) == 0 {
		return []TriggerPoint{}, nil
	}

	energies := make([]float64, len(windows))
	for i, w := range windows {
		energies[i] = w.energy
	}
	mean, stddev := stat.PopMeanStdDev(energies, nil)
	threshold := mean + thresholdDeviations*stddev

	points := []TriggerPoint{}
	var (
		last    time.Duration
		hasLast bool
	)
	for i := 1; i < len(windows)-1; i++ {
		w := windows[i]
		if w.energy <= threshold || w.energy <= windows[i-1].energy || w.energy <= windows[i+1].energy {
			continue
		}
		if hasLast && w.at-last < MinSeparation {
			continue
		}

		points = append(points, TriggerPoint{Time: w.at, Intensity: intensity(w.energy, mean, stddev)})
		last = w.at
		hasLast = true
	}
	return points, nil
}

func rmsWindows(samples []float64, sampleRate, size, hop int) []window {
	var out []window
	for i := 0; i+size <= len(samples); i += hop {
		var sum float64
		for _, s := range samples[i : i+size] {
			sum += s * s
		}
		out = append(out, window{
			at:     time.Duration(i) * time.Second / time.Duration(sampleRate),
			energy: math.Sqrt(sum / float64(size)),
		})
	}
	return out
}

func intensity(energy, mean, stddev float64) float64 {
	if stddev == 0 {
		return 0
	}
	v := (energy - mean) / (intensityDeviations * stddev)
	return math.Max(0, math.Min(1, v))
}
