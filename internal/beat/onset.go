package beat

import (
	"slices"
	"time"

	"gonum.org/v1/gonum/stat"
)

const (
	// FluxHistorySize bounds the rolling flux window per category
	FluxHistorySize = 43
	// OnsetHistorySize bounds the recorded onset timestamps per category
	OnsetHistorySize = 10
	// WarmupSamples is the minimum history before a category can fire
	WarmupSamples = 30

	localMaxWindow = 4
	minFluxFactor  = 1.3
)

// DetectorState is the rolling state of one category's onset detector.
// The caller owns it; only Observe mutates it.
type DetectorState struct {
	Category  Category
	History   []float64
	BeatTimes []time.Duration
	Count     int
	LastOnset time.Duration

	sorted []float64
}

// NewDetectorState creates an empty state for c
func NewDetectorState(c Category) *DetectorState {
	return &DetectorState{
		Category:  c,
		History:   make([]float64, 0, FluxHistorySize+1),
		BeatTimes: make([]time.Duration, 0, OnsetHistorySize+1),
	}
}

// Armed reports whether enough history exists for detection
func (s *DetectorState) Armed() bool {
	return len(s.History) >= WarmupSamples
}

// Observe feeds one flux sample taken at now and reports whether an onset fired
func (s *DetectorState) Observe(flux float64, now time.Duration) bool {
	s.History = append(s.History, flux)
	if len(s.History) > FluxHistorySize {
		s.History = slices.Delete(s.History, 0, 1)
	}

	if !s.Armed() {
		return false
	}

	median := s.median()
	mean, stddev := stat.PopMeanStdDev(s.History, nil)

	info := categoryTable[s.Category]
	threshold := max(median, mean) + stddev*info.Sensitivity
	minFlux := median * minFluxFactor
	sinceLast := now - s.LastOnset

	if flux > threshold && s.isLocalMax(flux) && flux > minFlux && sinceLast > info.MinInterval {
		s.record(now)
		return true
	}
	return false
}

// isLocalMax compares flux against the entries just before the newest one
func (s *DetectorState) isLocalMax(flux float64) bool {
	end := len(s.History) - 1
	start := max(end-localMaxWindow, 0)
	window := s.History[start:end]
	if len(window) == 0 {
		return false
	}
	for _, v := range window {
		if flux <= v {
			return false
		}
	}
	return true
}

// median is the element at index n/2 of the sorted history
func (s *DetectorState) median() float64 {
	s.sorted = append(s.sorted[:0], s.History...)
	slices.Sort(s.sorted)
	return s.sorted[len(s.sorted)/2]
}

func (s *DetectorState) record(now time.Duration) {
	s.BeatTimes = append(s.BeatTimes, now)
	if len(s.BeatTimes) > OnsetHistorySize {
		s.BeatTimes = slices.Delete(s.BeatTimes, 0, 1)
	}
	s.Count++
	s.LastOnset = now
}

// Reset clears every field except the category
func (s *DetectorState) Reset() {
	s.History = s.History[:0]
	s.BeatTimes = s.BeatTimes[:0]
	s.Count = 0
	s.LastOnset = 0
}
