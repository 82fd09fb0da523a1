package beat

// FluxFrame holds one flux value per category, indexed by Category
type FluxFrame [NumCategories]float64

// Get returns the flux for c
func (f FluxFrame) Get(c Category) float64 {
	return f[c]
}

// FluxEngine turns consecutive magnitude spectra into per-category spectral flux.
// It keeps a single previous-spectrum buffer shared by all categories.
type FluxEngine struct {
	prev    []float64
	hasPrev bool
}

// NewFluxEngine creates an engine with no stored spectrum
func NewFluxEngine() *FluxEngine {
	return &FluxEngine{}
}

// Compute returns the half-wave rectified, weighted flux of every category.
// The first call after construction or Reset returns all zeros.
func (e *FluxEngine) Compute(current []float64) FluxFrame {
	var frame FluxFrame

	if e.hasPrev {
		for c := Kick; c <= All; c++ {
			frame[c] = e.bandFlux(current, categoryTable[c])
		}
	}

	e.store(current)
	return frame
}

// bandFlux sums positive bin differences over the category's range
func (e *FluxEngine) bandFlux(current []float64, info CategoryInfo) float64 {
	end := info.Bins.End
	if end > len(current) {
		end = len(current)
	}
	if end > len(e.prev) {
		end = len(e.prev)
	}

	var flux float64
	for i := info.Bins.Start; i < end; i++ {
		if diff := current[i] - e.prev[i]; diff > 0 {
			flux += diff * info.Weight
		}
	}
	return flux
}

// store copies current into the previous-spectrum buffer, reusing capacity
func (e *FluxEngine) store(current []float64) {
	if cap(e.prev) < len(current) {
		e.prev = make([]float64, len(current))
	}
	e.prev = e.prev[:len(current)]
	copy(e.prev, current)
	e.hasPrev = true
}

// Reset forgets the stored spectrum
func (e *FluxEngine) Reset() {
	e.prev = e.prev[:0]
	e.hasPrev = false
}
