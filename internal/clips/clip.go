package clips

import (
	"context"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/keagan/beatcut/internal/energy"
)

// Status tracks where an asset is in trigger analysis
type Status int

const (
	StatusPending Status = iota
	StatusAnalyzing
	StatusReady
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusAnalyzing:
		return "analyzing"
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Done reports whether analysis has finished, successfully or not
func (s Status) Done() bool {
	return s == StatusReady || s == StatusFailed
}

// Asset is an auxiliary clip and its trigger points. The registry hands out
// copies; trigger points are written once when analysis finishes.
type Asset struct {
	ID            string
	Path          string
	Duration      time.Duration
	TriggerPoints []energy.TriggerPoint
	Status        Status
	Err           error
}

// Analysis is the result of analysing one asset
type Analysis struct {
	Duration      time.Duration
	TriggerPoints []energy.TriggerPoint
}

// AnalyzeFunc produces the analysis for the clip at path
type AnalyzeFunc func(ctx context.Context, path string) (Analysis, error)

// Manager is the registry of clip assets. It is safe for concurrent use.
type Manager struct {
	mu     sync.RWMutex
	assets []*Asset
}

// NewManager creates a new clip manager
func NewManager() *Manager {
	return &Manager{
		assets: make([]*Asset, 0),
	}
}

// Register adds the clip at path. Registering a path twice returns the
// existing asset and false; a failed asset goes back to pending so the next
// AnalyzeAll retries it.
func (m *Manager) Register(path string) (Asset, bool) {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.assets {
		if a.Path == path {
			if a.Status == StatusFailed {
				a.Status = StatusPending
				a.Err = nil
			}
			return *a, false
		}
	}

	a := &Asset{ID: uuid.NewString(), Path: path, Status: StatusPending}
	m.assets = append(m.assets, a)
	return *a, true
}

// Remove deletes an asset by ID
func (m *Manager) Remove(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := slices.IndexFunc(m.assets, func(a *Asset) bool { return a.ID == id })
	if i < 0 {
		return false
	}
	m.assets = slices.Delete(m.assets, i, i+1)
	return true
}

// Clear removes every asset
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assets = m.assets[:0]
}

// Get retrieves an asset by ID
func (m *Manager) Get(id string) (Asset, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, a := range m.assets {
		if a.ID == id {
			return *a, true
		}
	}
	return Asset{}, false
}

// Len returns the number of registered assets
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.assets)
}

// All returns a snapshot of every asset in registration order
func (m *Manager) All() []Asset {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Asset, len(m.assets))
	for i, a := range m.assets {
		out[i] = *a
	}
	return out
}

// AllAnalyzed reports whether at least one asset exists and none is pending or analyzing
func (m *Manager) AllAnalyzed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.assets) == 0 {
		return false
	}
	for _, a := range m.assets {
		if !a.Status.Done() {
			return false
		}
	}
	return true
}

// AnalyzeAll runs fn over every pending asset with at most workers in flight.
// A failing asset is marked failed with no trigger points and never stops the
// others. onDone, if set, is called once per finished asset.
func (m *Manager) AnalyzeAll(ctx context.Context, workers int, fn AnalyzeFunc, onDone func(Asset)) error {
	pending := m.claimPending()

	var g errgroup.Group
	if workers > 0 {
		g.SetLimit(workers)
	}

	for _, a := range pending {
		g.Go(func() error {
			if ctx.Err() != nil {
				m.release(a.ID)
				return nil
			}

			res, err := fn(ctx, a.Path)
			if err != nil && ctx.Err() != nil {
				m.release(a.ID)
				return nil
			}

			done, ok := m.finish(a.ID, res, err)
			if ok && onDone != nil {
				onDone(done)
			}
			return nil
		})
	}

	_ = g.Wait()
	return ctx.Err()
}

// claimPending moves every pending asset to analyzing and returns snapshots
func (m *Manager) claimPending() []Asset {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Asset
	for _, a := range m.assets {
		if a.Status == StatusPending {
			a.Status = StatusAnalyzing
			out = append(out, *a)
		}
	}
	return out
}

// release returns an interrupted asset to pending
func (m *Manager) release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.assets {
		if a.ID == id && a.Status == StatusAnalyzing {
			a.Status = StatusPending
		}
	}
}

// finish records the analysis outcome; results for removed assets are dropped
func (m *Manager) finish(id string, res Analysis, err error) (Asset, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.assets {
		if a.ID != id {
			continue
		}
		if err != nil {
			a.Status = StatusFailed
			a.Err = err
			a.TriggerPoints = []energy.TriggerPoint{}
		} else {
			a.Status = StatusReady
			a.Duration = res.Duration
			a.TriggerPoints = slices.Clone(res.TriggerPoints)
			if a.TriggerPoints == nil {
				a.TriggerPoints = []energy.TriggerPoint{}
			}
		}
		return *a, true
	}
	return Asset{}, false
}
