package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/keagan/clipsieve/internal/config"
	"github.com/keagan/clipsieve/internal/detect"
	"github.com/keagan/clipsieve/internal/ffmpeg"
	"github.com/keagan/clipsieve/internal/logging"
	"github.com/keagan/clipsieve/internal/metrics"
	"github.com/keagan/clipsieve/internal/pipeline"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	cfgFile   string
	verbose   bool
	outputDir string
)

func main() {
	ctx := context.Background()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "clipsieve",
	Short: "clipsieve - single-subject clip curation",
	Long:  "Scans video frames for a single high-quality face and losslessly extracts every run long enough to stand as its own clip.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logging
		logging.Init(verbose)

		// Load config
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if outputDir != "" {
			cfg.OutputDir = outputDir
		}

		// Store config in context
		ctx := config.WithConfig(cmd.Context(), cfg)
		cmd.SetContext(ctx)

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./clipsieve.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "output directory for extracted clips")

	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(configCmd)
}

var processCmd = &cobra.Command{
	Use:   "process [input video]",
	Short: "Scan a video and extract qualifying clips",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		// Stop between frames on SIGINT/SIGTERM; an in-progress segment is
		// closed and emitted like at end of stream.
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		exec, err := ffmpeg.New(log.Logger, cfg.FFmpeg.BinaryPath, cfg.FFmpeg.ProbePath, cfg.FFmpeg.Threads)
		if err != nil {
			return err
		}

		detector, err := detect.NewWorker(log.Logger, cfg.Detector.Python, cfg.Detector.Script)
		if err != nil {
			return fmt.Errorf("failed to start detector: %w", err)
		}
		defer detector.Close()

		pipe, err := pipeline.New(log.Logger, cfg, exec, detector)
		if err != nil {
			return err
		}

		if cfg.MetricsListen != "" {
			collector := metrics.NewCollector()
			collector.Serve(ctx, cfg.MetricsListen, log.Logger)
			pipe.SetMetrics(collector)
		}

		bar := progressbar.NewOptions(-1,
			progressbar.OptionSetDescription("classifying"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionShowCount(),
		)
		pipe.SetObserver(func(ev pipeline.FrameEvent) {
			_ = bar.Add(1)
			if !verbose {
				return
			}
			bar.Describe(fmt.Sprintf("frame %d: %s", ev.Index, ev.Verdict))
		})

		report, err := pipe.Process(ctx, args[0])
		_ = bar.Finish()
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return err
		}

		log.Info().
			Str("run_id", report.RunID).
			Int("clips", len(report.Clips)).
			Int("discarded", report.Discarded).
			Int("trim_failures", report.TrimFailures).
			Dur("elapsed", report.Elapsed).
			Float64("avg_speed", report.AvgSpeed).
			Msg("done")

		for _, clip := range report.Clips {
			fmt.Printf("%d\t%s\t%.2fs\n", clip.Index, clip.Path, clip.Duration().Seconds())
		}

		return nil
	},
}

var probeCmd = &cobra.Command{
	Use:   "probe [input video]",
	Short: "Print source video metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		exec, err := ffmpeg.New(log.Logger, cfg.FFmpeg.BinaryPath, cfg.FFmpeg.ProbePath, cfg.FFmpeg.Threads)
		if err != nil {
			return err
		}

		info, err := exec.ProbeVideo(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("file:       %s\n", info.FilePath)
		fmt.Printf("resolution: %dx%d\n", info.Width, info.Height)
		fmt.Printf("fps:        %.2f\n", info.FPS)
		fmt.Printf("duration:   %v\n", info.Duration)
		fmt.Printf("codec:      %s\n", info.VideoCodec)
		if info.HasAudio {
			fmt.Printf("audio:      %s\n", info.AudioCodec)
		} else {
			fmt.Printf("audio:      none\n")
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
		cfg := config.FromContext(cmd.Context())
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
}
