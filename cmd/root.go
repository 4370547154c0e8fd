package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/audiolibrelab/clipstitch/internal/config"

	"github.com/spf13/cobra"
)

var (
	cfg          *config.Config
	cfgFile      string
	verboseLevel int
)

var rootCmd = &cobra.Command{
	Use:   "clipstitch",
	Short: "Capture short video clips and replay them as one continuous recording",
	Long: `ClipStitch records short video clips over time and plays them back either
naively (one player per clip, visible seams at each boundary) or composed
(a single merged timeline with no seam).

Without camera hardware the tool runs against a deterministic simulated
backend, so every command works in headless environments too.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging(verboseLevel)

		if cfgFile == "" {
			cfgFile = config.DefaultPath()
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.config/clipstitch.yaml)")
	rootCmd.PersistentFlags().IntVarP(&verboseLevel, "verbose", "v", 0, "verbose level: 0=info, 1=debug")
	rootCmd.PersistentFlags().Bool("simulated", false, "force the simulated capture backend")

	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(segmentsCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(serveCmd)
}

// setupLogging configures slog for clean terminal output.
func setupLogging(level int) {
	slogLevel := slog.LevelInfo
	if level >= 1 {
		slogLevel = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(handler))
}

// applyFlags folds command-line overrides into the loaded config.
func applyFlags(cmd *cobra.Command) {
	if simulated, _ := cmd.Root().PersistentFlags().GetBool("simulated"); simulated {
		cfg.Capture.Simulated = true
	}
}
