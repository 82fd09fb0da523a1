package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"gopkg.in/yaml.v3"

	"github.com/keagan/beatcut/internal/cli"
	"github.com/keagan/beatcut/internal/clips"
	"github.com/keagan/beatcut/internal/config"
	"github.com/keagan/beatcut/internal/ffmpeg"
	"github.com/keagan/beatcut/internal/logging"
	"github.com/keagan/beatcut/internal/pipeline"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		cli.PrintError(os.Stderr, err.Error())
		stop()
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "beatcut",
	Short:         "beatcut - cut clips to the beat",
	Long:          "Detects beats in an audio track, finds energy peaks in video clips and cuts them together on the beat.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Init(verbose)

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		cmd.SetContext(config.WithConfig(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./beatcut.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	for _, cmd := range []*cobra.Command{analyzeCmd, planCmd, generateCmd} {
		addAnalysisFlags(cmd)
	}
	for _, cmd := range []*cobra.Command{planCmd, generateCmd} {
		addPlanFlags(cmd)
	}
	addGenerationFlags(generateCmd)
	planCmd.Flags().Bool("json", false, "print the plan as JSON")
	generateCmd.Flags().StringP("output", "o", "output.mp4", "output video path")

	configCmd.AddCommand(configShowCmd, configInitCmd)
	rootCmd.AddCommand(analyzeCmd, triggersCmd, planCmd, generateCmd, listCmd, configCmd)
}

func addAnalysisFlags(cmd *cobra.Command) {
	cmd.Flags().String("preset", "", "category preset (drums, low, melody, all, none)")
	cmd.Flags().String("categories", "", "comma-separated categories, overrides --preset")
	cmd.Flags().Bool("full-timeline", config.Default().Analysis.FullTimeline, "build the timeline from every onset rather than the recent history")
}

func addPlanFlags(cmd *cobra.Command) {
	cmd.Flags().Uint64("seed", 0, "planner seed (0 draws a fresh one)")
}

// addGenerationFlags shows the built-in defaults; only flags that are set
// override the config file
func addGenerationFlags(cmd *cobra.Command) {
	def := config.Default().Generation
	cmd.Flags().String("filter", def.Filter, "visual filter (none, grayscale, sepia, blur, brightness)")
	cmd.Flags().Float64("filter-intensity", def.FilterIntensity, "filter intensity in [0,1]")
	cmd.Flags().Float64("mix-volume", def.MixVolume, "clip audio volume under the track in [0,1]")
	cmd.Flags().Bool("no-clip-audio", !def.MixClipAudio, "replace clip audio with the track instead of mixing")
}

// loadConfig applies changed command flags on top of the loaded config
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.FromContext(cmd.Context())
	flags := cmd.Flags()

	if flags.Changed("preset") {
		cfg.Analysis.Preset, _ = flags.GetString("preset")
		cfg.Analysis.Categories = ""
	}
	if flags.Changed("categories") {
		cfg.Analysis.Categories, _ = flags.GetString("categories")
	}
	if flags.Changed("seed") {
		cfg.Analysis.Seed, _ = flags.GetUint64("seed")
	}
	if flags.Changed("full-timeline") {
		cfg.Analysis.FullTimeline, _ = flags.GetBool("full-timeline")
	}
	if flags.Changed("filter") {
		cfg.Generation.Filter, _ = flags.GetString("filter")
	}
	if flags.Changed("filter-intensity") {
		cfg.Generation.FilterIntensity, _ = flags.GetFloat64("filter-intensity")
	}
	if flags.Changed("mix-volume") {
		cfg.Generation.MixVolume, _ = flags.GetFloat64("mix-volume")
	}
	if flags.Changed("no-clip-audio") {
		noAudio, _ := flags.GetBool("no-clip-audio")
		cfg.Generation.MixClipAudio = !noAudio
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newPipeline(cmd *cobra.Command) (*pipeline.Pipeline, *config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	pipe, err := pipeline.New(log.Logger, cfg)
	if err != nil {
		return nil, nil, err
	}
	return pipe, cfg, nil
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <audio>",
	Short: "Detect beats in an audio track",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pipe, _, err := newPipeline(cmd)
		if err != nil {
			return err
		}
		defer pipe.Close()

		track, err := pipe.AnalyzeTrack(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		cli.PrintTrack(cmd.OutOrStdout(), track)
		return nil
	},
}

var triggersCmd = &cobra.Command{
	Use:   "triggers <clip>...",
	Short: "Find energy trigger points in video clips",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pipe, _, err := newPipeline(cmd)
		if err != nil {
			return err
		}
		defer pipe.Close()

		assets, err := analyzeClipsWithBar(cmd.Context(), pipe, args)
		if err != nil {
			return err
		}
		cli.PrintTriggers(cmd.OutOrStdout(), assets)
		return nil
	},
}

var planCmd = &cobra.Command{
	Use:   "plan <audio> <clip>...",
	Short: "Plan the cut without encoding",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pipe, cfg, err := newPipeline(cmd)
		if err != nil {
			return err
		}
		defer pipe.Close()

		ctx := cmd.Context()
		track, err := pipe.AnalyzeTrack(ctx, args[0])
		if err != nil {
			return err
		}
		if len(track.Timeline) == 0 {
			return pipeline.ErrEmptyTimeline
		}

		assets, err := analyzeClipsWithBar(ctx, pipe, args[1:])
		if err != nil {
			return err
		}
		plan, err := pipe.Plan(track.Timeline, assets, cfg.Analysis.Seed)
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(plan)
		}
		cli.PrintPlan(cmd.OutOrStdout(), plan, assets)
		return nil
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate <audio> <clip>...",
	Short: "Cut the clips to the beat of the track",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pipe, cfg, err := newPipeline(cmd)
		if err != nil {
			return err
		}
		defer pipe.Close()

		output, _ := cmd.Flags().GetString("output")
		filter, err := ffmpeg.ParseFilterKind(cfg.Generation.Filter)
		if err != nil {
			return err
		}

		progress := mpb.NewWithContext(cmd.Context(), mpb.WithWidth(64), mpb.WithOutput(os.Stderr))
		var bar *mpb.Bar

		res, err := pipe.Generate(cmd.Context(), pipeline.GenerateRequest{
			AudioPath:  args[0],
			ClipPaths:  args[1:],
			OutputPath: output,
			Seed:       cfg.Analysis.Seed,
			Options: pipeline.GenerationOptions{
				MixClipAudio:    cfg.Generation.MixClipAudio,
				MixVolume:       cfg.Generation.MixVolume,
				Filter:          filter,
				FilterIntensity: cfg.Generation.FilterIntensity,
				Width:           cfg.Generation.Width,
				Height:          cfg.Generation.Height,
				FPS:             cfg.Generation.FPS,
			},
			Progress: func(p pipeline.Progress) {
				if p.Stage != pipeline.StageEncode {
					return
				}
				if bar == nil {
					bar = progress.AddBar(int64(p.Total),
						mpb.PrependDecorators(
							decor.Name("Encoding: "),
							decor.CountersNoUnit("%d / %d"),
						),
						mpb.AppendDecorators(
							decor.Percentage(),
							decor.AverageETA(decor.ET_STYLE_GO),
						),
					)
				}
				bar.SetCurrent(int64(p.Done))
			},
		})
		if bar != nil && !bar.Completed() {
			bar.Abort(false)
		}
		progress.Wait()
		if err != nil {
			return err
		}

		cli.PrintResult(cmd.OutOrStdout(), res)
		return nil
	},
}

// analyzeClipsWithBar runs clip analysis with a progress bar on stderr
func analyzeClipsWithBar(ctx context.Context, pipe *pipeline.Pipeline, paths []string) ([]clips.Asset, error) {
	progress := mpb.NewWithContext(ctx, mpb.WithWidth(64), mpb.WithOutput(os.Stderr))
	bar := progress.AddBar(int64(len(paths)),
		mpb.PrependDecorators(
			decor.Name("Analyzing: "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(decor.Percentage()),
	)

	assets, err := pipe.AnalyzeClips(ctx, paths, func(clips.Asset) {
		bar.Increment()
	})
	if !bar.Completed() {
		// duplicate paths are analysed once
		bar.Abort(false)
	}
	progress.Wait()
	return assets, err
}

var listCmd = &cobra.Command{
	Use:       "list [categories|presets|filters]",
	Short:     "List available categories, presets and filters",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"categories", "presets", "filters"},
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		switch args[0] {
		case "categories":
			cli.PrintCategories(w)
		case "presets":
			cli.PrintPresets(w)
		case "filters":
			cli.PrintFilters(w)
		}
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Config management commands",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := yaml.Marshal(config.FromContext(cmd.Context()))
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration to a file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "beatcut.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
		if err := config.Default().Save(path); err != nil {
			return err
		}
		logger := logging.WithComponent(log.Logger, "config")
		logger.Info().Str("path", path).Msg("config written")
		return nil
	},
}
