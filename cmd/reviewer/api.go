package main

import (
	"github.com/spf13/cobra"

	"github.com/mrlynn/design-reviewer-backend/internal/server/endpoints"
)

var serverURL string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Commands that call the running server",
	Long: `API commands call the running reviewer server via HTTP.

These commands require a running server (reviewer serve).
Use --server to specify a custom server URL.

Examples:
  reviewer api health                      # Check server health
  reviewer api templates list              # List templates
  reviewer api templates get <id>          # Fetch one template
  reviewer api generate request.json       # Generate a review document`,
}

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Template management commands",
}

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

func init() {
	// Add --server flag to api command (persistent so all subcommands inherit it)
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8080", "Server URL",
	)

	// Health endpoints at top level of api
	apiCmd.AddCommand((&endpoints.HealthEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.ReadyEndpoint{}).Command(getServerURL))

	// Templates as subcommand group
	templatesCmd.AddCommand((&endpoints.ListTemplatesEndpoint{}).Command(getServerURL))
	templatesCmd.AddCommand((&endpoints.CreateTemplateEndpoint{}).Command(getServerURL))
	templatesCmd.AddCommand((&endpoints.GetTemplateEndpoint{}).Command(getServerURL))
	templatesCmd.AddCommand((&endpoints.UpdateTemplateEndpoint{}).Command(getServerURL))
	templatesCmd.AddCommand((&endpoints.DeleteTemplateEndpoint{}).Command(getServerURL))
	templatesCmd.AddCommand((&endpoints.TemplateHistoryEndpoint{}).Command(getServerURL))
	templatesCmd.AddCommand((&endpoints.RevertTemplateEndpoint{}).Command(getServerURL))

	// Generation endpoints at top level of api
	apiCmd.AddCommand((&endpoints.GenerateEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.AskEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.AnalyzeEndpoint{}).Command(getServerURL))

	apiCmd.AddCommand(templatesCmd)
	rootCmd.AddCommand(apiCmd)
}
