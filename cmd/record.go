package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/audiolibrelab/clipstitch/internal/service"

	"github.com/spf13/cobra"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a new clip into the current project",
	Long: `Record one clip and append it to the project as a new segment.

Recording stops on Ctrl+C, when --duration elapses, or at the safety bound
from the configuration, whichever comes first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		applyFlags(cmd)
		duration, _ := cmd.Flags().GetDuration("duration")

		svc := service.New(cfg)
		defer svc.Shutdown()

		done, err := svc.StartRecording()
		if err != nil {
			return fmt.Errorf("failed to start recording: %w", err)
		}

		slog.Info("Recording... press Ctrl+C to stop")

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		var timeout <-chan time.Time
		if duration > 0 {
			timeout = time.After(duration)
		}

		select {
		case <-sigChan:
			slog.Info("Stopping recording...")
			svc.StopRecording()
		case <-timeout:
			slog.Info("Requested duration reached, stopping")
			svc.StopRecording()
		case res := <-done:
			// Simulated clips and the safety bound finalize on their own.
			return printResult(res)
		}

		return printResult(<-done)
	},
}

func printResult(res service.RecordingResult) error {
	if res.Err != nil {
		return fmt.Errorf("recording failed: %w", res.Err)
	}
	fmt.Printf("Recorded segment %s (%s, %s)\n", res.Segment.ID, res.Segment.Path, res.Segment.Duration)
	return nil
}

func init() {
	recordCmd.Flags().DurationP("duration", "d", 0, "stop automatically after this long (0 = manual stop)")
}
