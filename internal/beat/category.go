package beat

import (
	"fmt"
	"strings"
	"time"
)

// Category is a frequency-weighted detection channel
type Category int

const (
	Kick Category = iota
	Snare
	HiHat
	Bass
	Mid
	Vocal
	All

	// NumCategories is the size of the fixed category set
	NumCategories = int(All) + 1
)

// BinRange is a half-open range of spectrum bins [Start, End)
type BinRange struct {
	Start int
	End   int
}

// CategoryInfo holds the static tuning for one category
type CategoryInfo struct {
	Name        string
	Bins        BinRange
	Weight      float64
	Sensitivity float64
	MinInterval time.Duration
	Priority    int
}

// Bin ranges assume a 512-point FFT at 44.1kHz (~86Hz per bin).
var categoryTable = [NumCategories]CategoryInfo{
	Kick:  {Name: "kick", Bins: BinRange{1, 5}, Weight: 1.5, Sensitivity: 2.2, MinInterval: 250 * time.Millisecond, Priority: 100},
	Snare: {Name: "snare", Bins: BinRange{4, 15}, Weight: 1.3, Sensitivity: 2.0, MinInterval: 250 * time.Millisecond, Priority: 80},
	HiHat: {Name: "hihat", Bins: BinRange{30, 80}, Weight: 1.0, Sensitivity: 1.8, MinInterval: 100 * time.Millisecond, Priority: 40},
	Bass:  {Name: "bass", Bins: BinRange{1, 8}, Weight: 1.2, Sensitivity: 2.0, MinInterval: 300 * time.Millisecond, Priority: 90},
	Mid:   {Name: "mid", Bins: BinRange{15, 40}, Weight: 1.1, Sensitivity: 2.0, MinInterval: 200 * time.Millisecond, Priority: 60},
	Vocal: {Name: "vocal", Bins: BinRange{10, 35}, Weight: 1.0, Sensitivity: 2.0, MinInterval: 400 * time.Millisecond, Priority: 50},
	All:   {Name: "all", Bins: BinRange{1, 50}, Weight: 1.0, Sensitivity: 2.0, MinInterval: 150 * time.Millisecond, Priority: 30},
}

// Info returns the static tuning for c
func (c Category) Info() CategoryInfo {
	return categoryTable[c]
}

// Priority is used to pick one representative category per pass
func (c Category) Priority() int {
	return categoryTable[c].Priority
}

// Valid reports whether c is one of the fixed categories
func (c Category) Valid() bool {
	return c >= Kick && c <= All
}

func (c Category) String() string {
	if !c.Valid() {
		return fmt.Sprintf("category(%d)", int(c))
	}
	return categoryTable[c].Name
}

// MarshalText implements encoding.TextMarshaler
func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid category %d", int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Categories returns every category in table order
func Categories() []Category {
	out := make([]Category, 0, NumCategories)
	for c := Kick; c <= All; c++ {
		out = append(out, c)
	}
	return out
}

// ParseCategory resolves a category by name (case-insensitive)
func ParseCategory(name string) (Category, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for c := Kick; c <= All; c++ {
		if categoryTable[c].Name == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown category %q", name)
}

// ParseCategories resolves a comma-separated list, dropping duplicates
func ParseCategories(list string) ([]Category, error) {
	var out []Category
	seen := make(map[Category]bool)
	for _, part := range strings.Split(list, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		c, err := ParseCategory(part)
		if err != nil {
			return nil, err
		}
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out, nil
}

// Preset names a predefined category selection
type Preset string

const (
	PresetDrums  Preset = "drums"
	PresetLow    Preset = "low"
	PresetMelody Preset = "melody"
	PresetAll    Preset = "all"
	PresetNone   Preset = "none"
)

// Presets lists the known presets
func Presets() []Preset {
	return []Preset{PresetDrums, PresetLow, PresetMelody, PresetAll, PresetNone}
}

// DefaultSelection is the category selection used when nothing is configured
func DefaultSelection() []Category {
	return []Category{Kick, Snare}
}

// Categories returns the selection for a preset
func (p Preset) Categories() ([]Category, error) {
	switch p {
	case PresetDrums:
		return []Category{Kick, Snare, HiHat}, nil
	case PresetLow:
		return []Category{Kick, Bass}, nil
	case PresetMelody:
		return []Category{Mid, Vocal}, nil
	case PresetAll:
		// "all" the preset selects every band except the aggregate channel
		return []Category{Kick, Snare, HiHat, Bass, Mid, Vocal}, nil
	case PresetNone:
		return []Category{}, nil
	default:
		return nil, fmt.Errorf("unknown preset %q", string(p))
	}
}
