package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/keagan/beatcut/internal/beat"
	"github.com/keagan/beatcut/internal/clips"
	"github.com/keagan/beatcut/internal/energy"
	"github.com/keagan/beatcut/internal/pipeline"
	"github.com/keagan/beatcut/internal/planner"
)

func assertContains(t *testing.T, out string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(out, w) {
			t.Errorf("output missing %q:\n%s", w, out)
		}
	}
}

func TestPrintTrack(t *testing.T) {
	track := &pipeline.TrackAnalysis{
		Path:       "song.mp3",
		Duration:   4 * time.Second,
		Frames:     344,
		Categories: []beat.Category{beat.Kick, beat.Snare},
		Timeline: []beat.Segment{
			{Start: time.Second, End: 2500 * time.Millisecond, Category: beat.Kick},
			{Start: 2500 * time.Millisecond, End: 4 * time.Second, Category: beat.Snare},
		},
		Stats: map[beat.Category]beat.Stats{
			beat.Kick:  {Count: 1, LastDetected: time.Second},
			beat.Snare: {Count: 1, LastDetected: 2500 * time.Millisecond},
		},
	}

	var buf bytes.Buffer
	PrintTrack(&buf, track)
	assertContains(t, buf.String(), "song.mp3", "4.000s", "kick", "snare", "2.500s", "1.500s")
}

func TestPrintTrackEmpty(t *testing.T) {
	var buf bytes.Buffer
	PrintTrack(&buf, &pipeline.TrackAnalysis{Categories: []beat.Category{beat.Kick}, Stats: map[beat.Category]beat.Stats{}})
	assertContains(t, buf.String(), "no beats detected")
}

func TestPrintTriggers(t *testing.T) {
	assets := []clips.Asset{
		{
			Path:          "good.mp4",
			Duration:      3 * time.Second,
			Status:        clips.StatusReady,
			TriggerPoints: []energy.TriggerPoint{{Time: 1600 * time.Millisecond, Intensity: 0.75}},
		},
		{Path: "bad.mp4", Status: clips.StatusFailed, Err: errors.New("invalid data")},
	}

	var buf bytes.Buffer
	PrintTriggers(&buf, assets)
	assertContains(t, buf.String(), "good.mp4", "1.600s", "0.75", "bad.mp4", "invalid data", "failed")
}

func TestPrintPlan(t *testing.T) {
	plan := &planner.Plan{
		Seed: 99,
		Specs: []planner.ClipSpec{
			{SourceAssetID: "id-a", Start: 500 * time.Millisecond, Duration: 2 * time.Second, BeatTime: 0, Category: beat.Bass},
		},
		Dropped: 2,
	}

	var buf bytes.Buffer
	PrintPlan(&buf, plan, []clips.Asset{{ID: "id-a", Path: "/clips/a.mp4"}})
	assertContains(t, buf.String(), "99", "/clips/a.mp4", "bass", "0.500s", "2.000s")
}

func TestPrintResult(t *testing.T) {
	var buf bytes.Buffer
	PrintResult(&buf, &pipeline.GenerateResult{OutputPath: "out.mp4", Clips: 12, Seed: 5, Duration: 7 * time.Second})
	assertContains(t, buf.String(), "out.mp4", "12", "7.000s")
}

func TestPrintLists(t *testing.T) {
	var buf bytes.Buffer
	PrintCategories(&buf)
	assertContains(t, buf.String(), "kick", "[1,5)", "250ms", "hihat", "[30,80)")

	buf.Reset()
	PrintPresets(&buf)
	assertContains(t, buf.String(), "drums", "kick,snare,hihat", "melody", "mid,vocal")

	buf.Reset()
	PrintFilters(&buf)
	assertContains(t, buf.String(), "none", "grayscale", "sepia", "blur", "brightness")
}

func TestPrintError(t *testing.T) {
	var buf bytes.Buffer
	PrintError(&buf, "boom")
	assertContains(t, buf.String(), "Error:", "boom")
}
