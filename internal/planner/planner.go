package planner

import (
	"errors"
	"math/rand/v2"
	"time"

	"github.com/keagan/beatcut/internal/beat"
	"github.com/keagan/beatcut/internal/energy"
)

// ErrNoAssets is returned when there is nothing to schedule from
var ErrNoAssets = errors.New("no clip assets to plan from")

// Rand is the randomness the planner needs. *rand.Rand satisfies it.
type Rand interface {
	IntN(n int) int
}

// Asset is the planner's view of an analysed clip
type Asset struct {
	ID            string
	Duration      time.Duration
	TriggerPoints []energy.TriggerPoint
}

// ClipSpec is one scheduled excerpt, ready for encoding
type ClipSpec struct {
	SourceAssetID string        `json:"source_asset_id"`
	Start         time.Duration `json:"start"`
	Duration      time.Duration `json:"duration"`
	BeatTime      time.Duration `json:"beat_time"`
	Category      beat.Category `json:"category"`
}

// Plan is a schedule along with the seed that produced it. Dropped counts
// beat segments that produced no clip.
type Plan struct {
	Seed    uint64     `json:"seed"`
	Specs   []ClipSpec `json:"specs"`
	Dropped int        `json:"dropped"`
}

// NewSeeded returns a PCG-backed generator for seed
func NewSeeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// NewSeed draws a fresh non-zero seed
func NewSeed() uint64 {
	for {
		if s := rand.Uint64(); s != 0 {
			return s
		}
	}
}

// Build plans segments against assets with a generator derived from seed
func Build(segments []beat.Segment, assets []Asset, seed uint64) (*Plan, error) {
	specs, err := Schedule(segments, assets, NewSeeded(seed))
	if err != nil {
		return nil, err
	}
	return &Plan{
		Seed:    seed,
		Specs:   specs,
		Dropped: len(segments) - len(specs),
	}, nil
}

// Schedule maps each beat segment onto a trigger point of the current asset.
//
// The current asset starts as a random draw. An asset without trigger points
// hands over to the next asset in order and its segment is skipped. Each
// asset's cursor wraps to its first trigger point once exhausted. A segment
// whose duration, capped at the asset's remaining length, is not positive is
// dropped without moving the cursor or changing asset. After every emitted
// spec a new asset is drawn uniformly.
func Schedule(segments []beat.Segment, assets []Asset, rng Rand) ([]ClipSpec, error) {
	if len(assets) == 0 {
		return nil, ErrNoAssets
	}

	cursors := make([]int, len(assets))
	current := rng.IntN(len(assets))
	specs := make([]ClipSpec, 0, len(segments))

	for _, seg := range segments {
		asset := assets[current]
		if len(asset.TriggerPoints) == 0 {
			current = (current + 1) % len(assets)
			continue
		}

		if cursors[current] >= len(asset.TriggerPoints) {
			cursors[current] = 0
		}
		tp := asset.TriggerPoints[cursors[current]]

		duration := min(seg.End-seg.Start, asset.Duration-tp.Time)
		if duration <= 0 {
			continue
		}

		specs = append(specs, ClipSpec{
			SourceAssetID: asset.ID,
			Start:         tp.Time,
			Duration:      duration,
			BeatTime:      seg.Start,
			Category:      seg.Category,
		})
		cursors[current]++
		current = rng.IntN(len(assets))
	}

	return specs, nil
}

// TotalDuration sums the durations of specs
func TotalDuration(specs []ClipSpec) time.Duration {
	var total time.Duration
	for _, s := range specs {
		total += s.Duration
	}
	return total
}
