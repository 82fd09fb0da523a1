package planner

import (
	"errors"
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"github.com/keagan/beatcut/internal/beat"
	"github.com/keagan/beatcut/internal/energy"
)

// seqRand replays fixed draws and counts calls
type seqRand struct {
	vals  []int
	calls int
}

func (r *seqRand) IntN(n int) int {
	v := 0
	if len(r.vals) > 0 {
		v = r.vals[r.calls%len(r.vals)]
	}
	r.calls++
	return v % n
}

func sec(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

func points(times ...float64) []energy.TriggerPoint {
	out := make([]energy.TriggerPoint, len(times))
	for i, t := range times {
		out[i] = energy.TriggerPoint{Time: sec(t), Intensity: 0.5}
	}
	return out
}

func evenTimeline(n int, step, total time.Duration) []beat.Segment {
	onsets := make([]time.Duration, n)
	for i := range onsets {
		onsets[i] = time.Duration(i) * step
	}
	return beat.BuildTimeline([]beat.Category{beat.Kick}, map[beat.Category][]time.Duration{beat.Kick: onsets}, total)
}

func TestScheduleEndToEnd(t *testing.T) {
	timeline := evenTimeline(5, 2*time.Second, 10*time.Second)
	if len(timeline) != 5 {
		t.Fatalf("timeline has %d segments", len(timeline))
	}

	asset := Asset{ID: "a", Duration: 5 * time.Second, TriggerPoints: points(0.5, 3)}
	specs, err := Schedule(timeline, []Asset{asset}, &seqRand{})
	if err != nil {
		t.Fatal(err)
	}

	// cursor runs 0, 1, wrap to 0, 1, 0
	wantStarts := []time.Duration{sec(0.5), sec(3), sec(0.5), sec(3), sec(0.5)}
	if len(specs) != len(wantStarts) {
		t.Fatalf("got %d specs, want %d", len(specs), len(wantStarts))
	}
	for i, s := range specs {
		if s.Start != wantStarts[i] {
			t.Errorf("spec %d starts at %v, want %v", i, s.Start, wantStarts[i])
		}
		if s.Duration != 2*time.Second {
			t.Errorf("spec %d duration %v, want 2s", i, s.Duration)
		}
		if s.BeatTime != timeline[i].Start || s.Category != beat.Kick || s.SourceAssetID != "a" {
			t.Errorf("spec %d = %+v", i, s)
		}
	}
	if got := TotalDuration(specs); got != 10*time.Second {
		t.Errorf("total duration %v, want 10s", got)
	}
}

func TestScheduleCapsAtRemainingLength(t *testing.T) {
	timeline := evenTimeline(4, 2*time.Second, 8*time.Second)
	asset := Asset{ID: "a", Duration: 4 * time.Second, TriggerPoints: points(0.5, 3)}

	specs, err := Schedule(timeline, []Asset{asset}, &seqRand{})
	if err != nil {
		t.Fatal(err)
	}

	want := []time.Duration{2 * time.Second, time.Second, 2 * time.Second, time.Second}
	got := make([]time.Duration, len(specs))
	for i, s := range specs {
		got[i] = s.Duration
	}
	if !slices.Equal(got, want) {
		t.Errorf("durations = %v, want %v", got, want)
	}
}

func TestScheduleSkipsAssetsWithoutTriggerPoints(t *testing.T) {
	timeline := evenTimeline(4, time.Second, 4*time.Second)
	assets := []Asset{
		{ID: "empty", Duration: 10 * time.Second},
		{ID: "full", Duration: 10 * time.Second, TriggerPoints: points(1, 2, 3)},
	}

	// every draw lands on the empty asset, which hands over to the next one
	specs, err := Schedule(timeline, assets, &seqRand{vals: []int{0}})
	if err != nil {
		t.Fatal(err)
	}
	if len(specs) != 2 {
		t.Fatalf("got %d specs, want 2: %+v", len(specs), specs)
	}
	for i, want := range []time.Duration{time.Second, 3 * time.Second} {
		if specs[i].BeatTime != want || specs[i].SourceAssetID != "full" {
			t.Errorf("spec %d = %+v, want beat at %v from full", i, specs[i], want)
		}
	}
	if specs[0].Start != time.Second || specs[1].Start != 2*time.Second {
		t.Errorf("cursor did not advance: %v then %v", specs[0].Start, specs[1].Start)
	}
}

func TestScheduleDropKeepsCursorAndAsset(t *testing.T) {
	timeline := []beat.Segment{
		{Start: sec(1), End: sec(1), Category: beat.Snare},
		{Start: sec(1), End: sec(3), Category: beat.Kick},
	}
	asset := Asset{ID: "a", Duration: 10 * time.Second, TriggerPoints: points(4, 6)}
	rng := &seqRand{}

	specs, err := Schedule(timeline, []Asset{asset}, rng)
	if err != nil {
		t.Fatal(err)
	}
	if len(specs) != 1 {
		t.Fatalf("got %d specs, want 1", len(specs))
	}
	if specs[0].Start != sec(4) || specs[0].Category != beat.Kick {
		t.Errorf("spec = %+v, want the first trigger point for the kick segment", specs[0])
	}
	// initial draw plus one per emitted spec
	if rng.calls != 2 {
		t.Errorf("rng drawn %d times, want 2", rng.calls)
	}
}

func TestScheduleDropsTriggerPastAssetEnd(t *testing.T) {
	timeline := evenTimeline(3, time.Second, 3*time.Second)
	asset := Asset{ID: "a", Duration: 2 * time.Second, TriggerPoints: points(2)}

	specs, err := Schedule(timeline, []Asset{asset}, &seqRand{})
	if err != nil {
		t.Fatal(err)
	}
	if len(specs) != 0 {
		t.Errorf("got %+v, want nothing", specs)
	}
}

func TestScheduleNoAssets(t *testing.T) {
	if _, err := Schedule(evenTimeline(2, time.Second, 2*time.Second), nil, &seqRand{}); !errors.Is(err, ErrNoAssets) {
		t.Errorf("err = %v, want ErrNoAssets", err)
	}
}

func TestScheduleEmptyTimeline(t *testing.T) {
	specs, err := Schedule(nil, []Asset{{ID: "a", Duration: time.Second, TriggerPoints: points(0)}}, &seqRand{})
	if err != nil || len(specs) != 0 {
		t.Errorf("specs = %v, err = %v", specs, err)
	}
}

func TestScheduleProperties(t *testing.T) {
	gen := rand.New(rand.NewPCG(1, 2))

	for trial := 0; trial < 200; trial++ {
		var onsets []time.Duration
		for range gen.IntN(30) {
			onsets = append(onsets, time.Duration(gen.IntN(20000))*time.Millisecond)
		}
		timeline := beat.BuildTimeline([]beat.Category{beat.Bass}, map[beat.Category][]time.Duration{beat.Bass: onsets}, 20*time.Second)

		assets := make([]Asset, 1+gen.IntN(4))
		for i := range assets {
			dur := time.Duration(1+gen.IntN(8000)) * time.Millisecond
			var tps []float64
			for range gen.IntN(4) {
				tps = append(tps, gen.Float64()*dur.Seconds())
			}
			slices.Sort(tps)
			assets[i] = Asset{ID: string(rune('a' + i)), Duration: dur, TriggerPoints: points(tps...)}
		}

		seed := gen.Uint64()
		plan, err := Build(timeline, assets, seed)
		if err != nil {
			t.Fatal(err)
		}
		if len(plan.Specs) > len(timeline) {
			t.Fatalf("trial %d: %d specs for %d segments", trial, len(plan.Specs), len(timeline))
		}
		if plan.Dropped != len(timeline)-len(plan.Specs) || plan.Seed != seed {
			t.Fatalf("trial %d: plan bookkeeping %+v", trial, plan)
		}
		for _, s := range plan.Specs {
			if s.Duration <= 0 {
				t.Fatalf("trial %d: non-positive duration %+v", trial, s)
			}
		}

		again, _ := Build(timeline, assets, seed)
		if !slices.Equal(plan.Specs, again.Specs) {
			t.Fatalf("trial %d: same seed gave different plans", trial)
		}
	}
}

func TestNewSeed(t *testing.T) {
	if NewSeed() == 0 {
		t.Error("seed must be non-zero")
	}
}
