// Command curator serves the photo curation UI and its agent tools.
//
// Usage:
//
//	curator serve [--port 8080] [--api URL] [--auth-url URL] [--tenant ID]
//	              [--presets-table NAME] [--share-bucket NAME] [--lambda]
//	curator mcp   [--api URL] [--auth-url URL] [--tenant ID] [--email ADDR]
//
// Every flag falls back to an environment variable (see --help).
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// Environment fallbacks for flags.
const (
	envAPIURL       = "CURATOR_API_URL"
	envAuthURL      = "CURATOR_AUTH_URL"
	envTenant       = "CURATOR_TENANT"
	envPresetsTable = "CURATOR_PRESETS_TABLE"
	envShareBucket  = "CURATOR_SHARE_BUCKET"
	envEmail        = "CURATOR_EMAIL"
	envPassword     = "CURATOR_PASSWORD"
)

// Flags shared by both subcommands.
var (
	apiURLFlag  string
	authURLFlag string
	tenantFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "curator",
	Short: "Photo and video curation over a REST media backend",
	Long: `Curator is a server-driven UI for browsing, rating, tagging and
collecting photos and videos held by a REST media backend.

Examples:
  curator serve --port 9090
  curator serve --lambda
  curator mcp --email me@example.com`,
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&apiURLFlag, "api", os.Getenv(envAPIURL), "REST backend base URL (env "+envAPIURL+")")
	pf.StringVar(&authURLFlag, "auth-url", os.Getenv(envAuthURL), "Auth provider base URL (env "+envAuthURL+")")
	pf.StringVar(&tenantFlag, "tenant", os.Getenv(envTenant), "Tenant id sent with every listing (env "+envTenant+")")

	rootCmd.AddCommand(serveCmd, mcpCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
