package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/keagan/beatcut/internal/beat"
	"github.com/keagan/beatcut/internal/clips"
	"github.com/keagan/beatcut/internal/ffmpeg"
	"github.com/keagan/beatcut/internal/pipeline"
	"github.com/keagan/beatcut/internal/planner"
	"github.com/keagan/beatcut/pkg/util"
)

// PrintTrack reports a track's beat timeline and per-category detections
func PrintTrack(w io.Writer, track *pipeline.TrackAnalysis) {
	fmt.Fprintln(w, TitleStyle.Render("Beat timeline"))
	keyValue(w, "Track", track.Path)
	keyValue(w, "Duration", util.FormatSeconds(track.Duration))
	keyValue(w, "Frames", track.Frames)
	keyValue(w, "Segments", len(track.Timeline))
	fmt.Fprintln(w)

	fmt.Fprintln(w, SectionStyle.Render("Categories"))
	counts := beat.CountByCategory(track.Timeline)
	rows := make([][]string, 0, len(track.Categories))
	for _, c := range track.Categories {
		st := track.Stats[c]
		rows = append(rows, []string{
			c.String(),
			strconv.Itoa(st.Count),
			strconv.Itoa(counts[c]),
			util.FormatSeconds(st.LastDetected),
		})
	}
	table(w, []string{"category", "onsets", "segments", "last"}, rows)

	if len(track.Timeline) == 0 {
		fmt.Fprintln(w, WarnStyle.Render("no beats detected"))
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, SectionStyle.Render("Segments"))
	rows = rows[:0]
	for i, s := range track.Timeline {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			util.FormatSeconds(s.Start),
			util.FormatSeconds(s.End),
			util.FormatSeconds(s.Duration()),
			s.Category.String(),
		})
	}
	table(w, []string{"#", "start", "end", "length", "category"}, rows)
}

// PrintTriggers reports each clip's trigger points
func PrintTriggers(w io.Writer, assets []clips.Asset) {
	fmt.Fprintln(w, TitleStyle.Render("Trigger points"))
	for _, a := range assets {
		fmt.Fprintln(w, SectionStyle.Render(a.Path))
		keyValue(w, "Status", a.Status)
		if a.Err != nil {
			fmt.Fprintln(w, WarnStyle.Render(a.Err.Error()))
			fmt.Fprintln(w)
			continue
		}
		keyValue(w, "Duration", util.FormatSeconds(a.Duration))

		rows := make([][]string, len(a.TriggerPoints))
		for i, tp := range a.TriggerPoints {
			rows[i] = []string{util.FormatSeconds(tp.Time), strconv.FormatFloat(tp.Intensity, 'f', 2, 64)}
		}
		table(w, []string{"time", "intensity"}, rows)
		fmt.Fprintln(w)
	}
}

// PrintPlan reports the scheduled clip specs
func PrintPlan(w io.Writer, plan *planner.Plan, assets []clips.Asset) {
	paths := make(map[string]string, len(assets))
	for _, a := range assets {
		paths[a.ID] = a.Path
	}

	fmt.Fprintln(w, TitleStyle.Render("Clip plan"))
	keyValue(w, "Seed", plan.Seed)
	keyValue(w, "Clips", len(plan.Specs))
	keyValue(w, "Dropped", plan.Dropped)
	keyValue(w, "Total", util.FormatSeconds(planner.TotalDuration(plan.Specs)))
	fmt.Fprintln(w)

	rows := make([][]string, len(plan.Specs))
	for i, s := range plan.Specs {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			util.FormatSeconds(s.BeatTime),
			s.Category.String(),
			paths[s.SourceAssetID],
			util.FormatSeconds(s.Start),
			util.FormatSeconds(s.Duration),
		}
	}
	table(w, []string{"#", "beat", "category", "source", "start", "length"}, rows)
}

// PrintResult reports a finished generation
func PrintResult(w io.Writer, res *pipeline.GenerateResult) {
	fmt.Fprintln(w, TitleStyle.Render("Done"))
	keyValue(w, "Output", res.OutputPath)
	keyValue(w, "Clips", res.Clips)
	keyValue(w, "Dropped", res.Dropped)
	keyValue(w, "Length", util.FormatSeconds(res.Duration))
	keyValue(w, "Seed", res.Seed)
}

// PrintCategories lists every category with its detection parameters
func PrintCategories(w io.Writer) {
	rows := make([][]string, 0, beat.NumCategories)
	for _, c := range beat.Categories() {
		info := c.Info()
		rows = append(rows, []string{
			c.String(),
			fmt.Sprintf("[%d,%d)", info.Bins.Start, info.Bins.End),
			strconv.FormatFloat(info.Weight, 'f', 1, 64),
			strconv.FormatFloat(info.Sensitivity, 'f', 1, 64),
			info.MinInterval.String(),
			strconv.Itoa(c.Priority()),
		})
	}
	table(w, []string{"category", "bins", "weight", "sensitivity", "min interval", "priority"}, rows)
}

// PrintPresets lists the category presets
func PrintPresets(w io.Writer) {
	rows := make([][]string, 0, len(beat.Presets()))
	for _, p := range beat.Presets() {
		cats, _ := p.Categories()
		names := make([]string, len(cats))
		for i, c := range cats {
			names[i] = c.String()
		}
		rows = append(rows, []string{string(p), strings.Join(names, ",")})
	}
	table(w, []string{"preset", "categories"}, rows)
}

// PrintFilters lists the supported visual filters
func PrintFilters(w io.Writer) {
	for _, k := range ffmpeg.FilterKinds() {
		fmt.Fprintln(w, string(k))
	}
}
