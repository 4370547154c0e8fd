package cmd

import (
	"fmt"

	"github.com/audiolibrelab/clipstitch/internal/service"

	"github.com/spf13/cobra"
)

var segmentsCmd = &cobra.Command{
	Use:   "segments",
	Short: "Inspect and prune the project's segments",
}

var segmentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the project's segments in playback order",
	RunE: func(cmd *cobra.Command, args []string) error {
		applyFlags(cmd)
		svc := service.New(cfg)
		defer svc.Shutdown()

		segments, err := svc.Segments()
		if err != nil {
			return fmt.Errorf("failed to load segments: %w", err)
		}

		if len(segments) == 0 {
			fmt.Println("Project is empty")
			return nil
		}

		for _, seg := range segments {
			fmt.Printf("%2d. %s  %s  %s  %s  %s\n",
				seg.Ordinal, seg.ID, seg.RecordedAt.Format("2006-01-02 15:04:05"),
				seg.Facing, seg.Duration, seg.Path)
		}
		return nil
	},
}

var segmentsRemoveCmd = &cobra.Command{
	Use:   "remove [segment-id]",
	Short: "Remove a segment and delete its clip file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		applyFlags(cmd)
		svc := service.New(cfg)
		defer svc.Shutdown()

		if err := svc.RemoveSegment(args[0]); err != nil {
			return fmt.Errorf("failed to remove segment: %w", err)
		}
		fmt.Printf("Removed segment %s\n", args[0])
		return nil
	},
}

var segmentsComposeCmd = &cobra.Command{
	Use:   "compose",
	Short: "Preview the merged timeline without playing it",
	RunE: func(cmd *cobra.Command, args []string) error {
		applyFlags(cmd)
		svc := service.New(cfg)
		defer svc.Shutdown()

		comp, err := svc.Compose()
		if err != nil {
			return fmt.Errorf("composition failed: %w", err)
		}

		fmt.Printf("Composition: %d segments, total %s\n", len(comp.Sources), comp.Duration)
		for i, ins := range comp.Video.Inserts {
			fmt.Printf("%2d. video @ %-12s %-12s %s\n", i, ins.Offset, ins.Duration, ins.Source)
		}
		for i, ins := range comp.Audio.Inserts {
			fmt.Printf("%2d. audio @ %-12s %-12s %s\n", i, ins.Offset, ins.Duration, ins.Source)
		}
		return nil
	},
}

func init() {
	segmentsCmd.AddCommand(segmentsListCmd)
	segmentsCmd.AddCommand(segmentsRemoveCmd)
	segmentsCmd.AddCommand(segmentsComposeCmd)
}
