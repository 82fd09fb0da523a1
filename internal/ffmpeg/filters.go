package ffmpeg

import (
	"fmt"
	"strconv"
	"strings"
)

// FilterKind is a visual effect applied to every encoded segment
type FilterKind string

const (
	FilterNone       FilterKind = "none"
	FilterGrayscale  FilterKind = "grayscale"
	FilterSepia      FilterKind = "sepia"
	FilterBlur       FilterKind = "blur"
	FilterBrightness FilterKind = "brightness"
)

const sepiaMatrix = ".393:.769:.189:0:.349:.686:.168:0:.272:.534:.131"

// FilterKinds lists the supported filters
func FilterKinds() []FilterKind {
	return []FilterKind{FilterNone, FilterGrayscale, FilterSepia, FilterBlur, FilterBrightness}
}

// ParseFilterKind resolves a filter name; empty means none
func ParseFilterKind(s string) (FilterKind, error) {
	if s == "" {
		return FilterNone, nil
	}
	k := FilterKind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range FilterKinds() {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown filter %q", s)
}

// FilterBuilder helps construct ffmpeg filter chains
type FilterBuilder struct {
	filters []string
}

// NewFilterBuilder creates a new filter builder
func NewFilterBuilder() *FilterBuilder {
	return &FilterBuilder{
		filters: make([]string, 0),
	}
}

// Kind adds the filter for kind at the given intensity in [0,1]
func (fb *FilterBuilder) Kind(kind FilterKind, intensity float64) *FilterBuilder {
	switch kind {
	case FilterGrayscale:
		fb.filters = append(fb.filters, "hue=s=0")
	case FilterSepia:
		fb.filters = append(fb.filters, "colorchannelmixer="+sepiaMatrix)
	case FilterBlur:
		fb.filters = append(fb.filters, fmt.Sprintf("boxblur=%s:1", formatFloat(intensity*2)))
	case FilterBrightness:
		fb.filters = append(fb.filters, fmt.Sprintf("eq=brightness=%s", formatFloat((intensity-0.5)*0.5)))
	}
	return fb
}

// Scale adds a scale filter
func (fb *FilterBuilder) Scale(width, height int) *FilterBuilder {
	if width <= 0 || height <= 0 {
		// Return self without adding filter - allows chaining to continue
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("scale=%d:%d", width, height))
	return fb
}

// FPS adds an fps filter
func (fb *FilterBuilder) FPS(fps float64) *FilterBuilder {
	if fps <= 0 {
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("fps=%f", fps))
	return fb
}

// Build returns the complete filter string joined with commas
func (fb *FilterBuilder) Build() string {
	if len(fb.filters) == 0 {
		return ""
	}
	return strings.Join(fb.filters, ",")
}

// formatFloat prints v with at most three decimals and no trailing zeros
func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', 3, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" {
		return "0"
	}
	return s
}

func itoa(v int) string {
	return strconv.Itoa(v)
}
