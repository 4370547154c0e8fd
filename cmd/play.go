package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/audiolibrelab/clipstitch/internal/playback"
	"github.com/audiolibrelab/clipstitch/internal/service"

	"github.com/spf13/cobra"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play back the current project",
	Long: `Play every segment of the project in order.

Composed mode (the default) merges all segments into one timeline and plays
it with a single player, so there is no seam at former clip boundaries.
Naive mode plays one file at a time and switches players between clips.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		applyFlags(cmd)

		mode := playback.ModeComposed
		if m, _ := cmd.Flags().GetString("mode"); m == "naive" {
			mode = playback.ModeNaive
		} else if m != "" && m != "composed" {
			return fmt.Errorf("unknown mode %q (expected naive or composed)", m)
		}

		svc := service.New(cfg)
		defer svc.Shutdown()

		// Finished when the controller publishes playing and then idle.
		var once sync.Once
		var sawPlaying atomic.Bool
		finished := make(chan struct{})
		svc.Subscribe(func(st service.Status) {
			if st.IsPlaying {
				sawPlaying.Store(true)
			} else if sawPlaying.Load() {
				once.Do(func() { close(finished) })
			}
		})

		if err := svc.Play(mode); err != nil {
			return fmt.Errorf("playback failed: %w", err)
		}
		slog.Info("Playback started", "mode", mode)

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case <-sigChan:
			slog.Info("Stopping playback...")
			svc.StopPlayback()
		case <-finished:
		}

		fmt.Println("Playback finished")
		return nil
	},
}

func init() {
	playCmd.Flags().StringP("mode", "m", "composed", "playback mode: composed or naive")
}
