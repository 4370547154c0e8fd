package cmd

import (
	"fmt"
	"log/slog"

	"github.com/audiolibrelab/clipstitch/internal/server"
	"github.com/audiolibrelab/clipstitch/internal/service"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the control server",
	Long: `Start the ClipStitch HTTP server so recording and playback can be driven
remotely, for example from a phone on the same network.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		applyFlags(cmd)
		port, _ := cmd.Flags().GetString("port")

		svc := service.New(cfg)
		defer svc.Shutdown()

		srv := server.New(svc, port)
		slog.Info("ClipStitch server starting", "port", port, "config", cfgFile)

		if err := srv.Start(); err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().String("port", "8080", "port for the control server")
}
