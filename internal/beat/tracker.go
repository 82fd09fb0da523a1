package beat

import (
	"slices"
	"time"
)

// FlashDuration is how long a detection stays visible to a presentation layer
const FlashDuration = 100 * time.Millisecond

// Flash is the transient detection feedback a renderer polls
type Flash struct {
	Active    bool
	ExpiresAt time.Duration
}

// ActiveAt reports whether the flash is still showing at t
func (f Flash) ActiveAt(t time.Duration) bool {
	return f.Active && t < f.ExpiresAt
}

// Stats summarises one category's detections
type Stats struct {
	Count        int
	LastDetected time.Duration
}

// Tracker runs the flux engine and every active category's detector over a
// stream of spectrum frames. It is not safe for concurrent use.
type Tracker struct {
	engine *FluxEngine
	states [NumCategories]*DetectorState
	active []Category
	log    [NumCategories][]time.Duration

	flash        Flash
	lastDetected Category
	hasDetected  bool
}

// NewTracker creates a tracker observing the given categories
func NewTracker(active []Category) *Tracker {
	t := &Tracker{engine: NewFluxEngine()}
	for c := Kick; c <= All; c++ {
		t.states[c] = NewDetectorState(c)
	}
	t.SetActive(active)
	return t
}

// SetActive replaces the active selection, keeping the given order
func (t *Tracker) SetActive(active []Category) {
	t.active = t.active[:0]
	for _, c := range active {
		if c.Valid() && !slices.Contains(t.active, c) {
			t.active = append(t.active, c)
		}
	}
}

// Toggle flips c in or out of the active selection
func (t *Tracker) Toggle(c Category) {
	if i := slices.Index(t.active, c); i >= 0 {
		t.active = slices.Delete(t.active, i, i+1)
		return
	}
	if c.Valid() {
		t.active = append(t.active, c)
	}
}

// Active returns a copy of the active selection
func (t *Tracker) Active() []Category {
	return slices.Clone(t.active)
}

// Process consumes one spectrum frame captured at now. Every firing category
// records its own onset; the highest-priority one is returned as the event.
func (t *Tracker) Process(spectrum []float64, now time.Duration) (Category, bool) {
	flux := t.engine.Compute(spectrum)

	var (
		event Category
		fired bool
	)
	for _, c := range t.active {
		if !t.states[c].Observe(flux[c], now) {
			continue
		}
		t.log[c] = append(t.log[c], now)
		if !fired || c.Priority() > event.Priority() {
			event = c
			fired = true
		}
	}

	if fired {
		t.flash = Flash{Active: true, ExpiresAt: now + FlashDuration}
		t.lastDetected = event
		t.hasDetected = true
	}
	return event, fired
}

// Flash returns the current feedback value
func (t *Tracker) Flash() Flash {
	return t.flash
}

// LastDetected returns the most recent representative category
func (t *Tracker) LastDetected() (Category, bool) {
	return t.lastDetected, t.hasDetected
}

// State exposes the detector state for c
func (t *Tracker) State(c Category) *DetectorState {
	return t.states[c]
}

// Stats returns count and last detection time per category
func (t *Tracker) Stats() map[Category]Stats {
	out := make(map[Category]Stats, NumCategories)
	for c := Kick; c <= All; c++ {
		s := t.states[c]
		out[c] = Stats{Count: s.Count, LastDetected: s.LastOnset}
	}
	return out
}

// OnsetTimes returns onset timestamps per category. With full=false these are
// the bounded detector histories; with full=true every onset since the last reset.
func (t *Tracker) OnsetTimes(full bool) map[Category][]time.Duration {
	out := make(map[Category][]time.Duration, NumCategories)
	for c := Kick; c <= All; c++ {
		if full {
			out[c] = slices.Clone(t.log[c])
		} else {
			out[c] = slices.Clone(t.states[c].BeatTimes)
		}
	}
	return out
}

// Timeline builds beat segments for the active categories
func (t *Tracker) Timeline(duration time.Duration, full bool) []Segment {
	return BuildTimeline(t.active, t.OnsetTimes(full), duration)
}

// Reset clears all detector state, the stored spectrum and the feedback value
func (t *Tracker) Reset() {
	t.engine.Reset()
	for c := Kick; c <= All; c++ {
		t.states[c].Reset()
		t.log[c] = nil
	}
	t.flash = Flash{}
	t.lastDetected = 0
	t.hasDetected = false
}
