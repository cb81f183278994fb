package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mrlynn/design-reviewer-backend/internal/config"
	"github.com/mrlynn/design-reviewer-backend/internal/server"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the reviewer server",
	Long: `Start the reviewer HTTP server.

The server opens the embedded template store and, when retrieval is enabled
in config, connects to the vector store for reference context.

Examples:
  reviewer serve                 # Start on default port 8080
  reviewer serve --port 3000     # Start on custom port
  reviewer serve --host 0.0.0.0  # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))

		mgr, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}
		mgr.WatchConfig()

		cfg := mgr.Get()
		if serveHost != "" {
			cfg.Server.Host = serveHost
		}
		if servePort != "" {
			cfg.Server.Port = servePort
		}

		srv, err := server.New(cfg, logger)
		if err != nil {
			return err
		}

		// Blocks until shutdown
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (overrides config)")
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (overrides config)")

	rootCmd.AddCommand(serveCmd)
}
