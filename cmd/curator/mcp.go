package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fpang/photo-curator/internal/api"
	"github.com/fpang/photo-curator/internal/auth"
	"github.com/fpang/photo-curator/internal/lambdaboot"
	"github.com/fpang/photo-curator/internal/logging"
	"github.com/fpang/photo-curator/internal/mcpserver"
)

var emailFlag string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve curation tools to an MCP client over stdio",
	Long: `Mcp signs in with --email and the password in ` + envPassword + `, then
serves the search_images, rate_image and add_to_list tools over stdin/stdout.
Logs go to stderr.`,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&emailFlag, "email", os.Getenv(envEmail), "Account to sign in as (env "+envEmail+")")
}

func runMCP(cmd *cobra.Command, args []string) error {
	initStart := time.Now()
	logging.Init(false)

	if apiURLFlag == "" || authURLFlag == "" {
		return fmt.Errorf("--api and --auth-url are required (or set %s and %s)", envAPIURL, envAuthURL)
	}
	password := os.Getenv(envPassword)
	if emailFlag == "" || password == "" {
		return fmt.Errorf("--email and %s are required", envPassword)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	anonKey, err := lambdaboot.LoadAnonKey(ctx, nil)
	if err != nil {
		return err
	}
	provider := auth.NewProvider(authURLFlag, anonKey)
	if _, err := provider.SignIn(ctx, emailFlag, password); err != nil {
		return fmt.Errorf("sign in as %s: %w", emailFlag, err)
	}
	defer provider.SignOut(context.Background())

	client := api.NewClient(apiURLFlag, tenantFlag, provider)

	lambdaboot.StartupLog("curator-mcp", initStart).
		Endpoint("api", apiURLFlag).
		Endpoint("auth", authURLFlag).
		Config("tenant", tenantFlag).
		Config("user", emailFlag).
		Log()

	return mcpserver.NewServer(client, tenantFlag).Run(ctx)
}
