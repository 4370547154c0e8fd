package cmd

import (
	"fmt"

	"github.com/audiolibrelab/clipstitch/internal/capture"
	"github.com/audiolibrelab/clipstitch/internal/service"

	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List available capture devices",
	Long:  `List the video and audio inputs the capture backend can record from.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		applyFlags(cmd)
		svc := service.New(cfg)
		defer svc.Shutdown()

		for _, kind := range []capture.DeviceKind{capture.DeviceVideo, capture.DeviceAudio} {
			devices, err := svc.Devices(kind)
			if err != nil {
				return fmt.Errorf("failed to enumerate %s devices: %w", kind, err)
			}

			fmt.Printf("%s inputs (%d found):\n", kind, len(devices))
			for i, d := range devices {
				if d.Facing != "" {
					fmt.Printf("  %d. %s (%s, facing %s)\n", i+1, d.Name, d.ID, d.Facing)
				} else {
					fmt.Printf("  %d. %s (%s)\n", i+1, d.Name, d.ID)
				}
			}
			fmt.Println()
		}
		return nil
	},
}
