package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/photo-curator/internal/auth"
	"github.com/fpang/photo-curator/internal/lambdaboot"
	"github.com/fpang/photo-curator/internal/logging"
	"github.com/fpang/photo-curator/internal/web"
)

var (
	portFlag         int
	presetsTableFlag string
	shareBucketFlag  string
	lambdaFlag       bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the curation UI",
	Long: `Serve starts the web UI. Locally it listens on --port; with --lambda
(or when running inside AWS Lambda) it serves API Gateway v2 events instead.`,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.IntVar(&portFlag, "port", 8080, "Port to listen on")
	f.StringVar(&presetsTableFlag, "presets-table", os.Getenv(envPresetsTable), "DynamoDB table for saved searches; empty keeps them in memory (env "+envPresetsTable+")")
	f.StringVar(&shareBucketFlag, "share-bucket", os.Getenv(envShareBucket), "S3 bucket for shared list archives; empty disables sharing (env "+envShareBucket+")")
	f.BoolVar(&lambdaFlag, "lambda", os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "", "Serve AWS Lambda events instead of listening on a port")
}

func runServe(cmd *cobra.Command, args []string) error {
	initStart := time.Now()
	logging.Init(lambdaFlag)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if apiURLFlag == "" || authURLFlag == "" {
		return fmt.Errorf("--api and --auth-url are required (or set %s and %s)", envAPIURL, envAuthURL)
	}

	// AWS is only needed for Lambda mode, presets in DynamoDB, or sharing.
	var awsCfg *aws.Config
	var ssmClient *ssm.Client
	if lambdaFlag || presetsTableFlag != "" || shareBucketFlag != "" {
		clients, err := lambdaboot.InitAWS(ctx)
		if err != nil {
			return err
		}
		awsCfg = &clients.Config
		if lambdaFlag {
			ssmClient = clients.SSM
		}
	}

	anonKey, err := lambdaboot.LoadAnonKey(ctx, ssmClient)
	if err != nil {
		return err
	}

	cfg := web.Config{
		APIURL:  apiURLFlag,
		AuthURL: authURLFlag,
		AnonKey: anonKey,
		Tenant:  tenantFlag,
		Presets: lambdaboot.InitPresets(awsCfg, presetsTableFlag),
	}
	var share *lambdaboot.S3Clients
	if awsCfg != nil {
		share = lambdaboot.InitS3(*awsCfg, shareBucketFlag)
	}
	if share != nil {
		cfg.ShareBucket, cfg.SharePutter, cfg.SharePresigner = share.Bucket, share.Client, share.Presigner
	}

	srv, err := web.New(cfg)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}
	defer srv.Close()

	startup := lambdaboot.StartupLog("curator-serve", initStart).
		Endpoint("api", apiURLFlag).
		Endpoint("auth", authURLFlag).
		DynamoTable("presets", presetsTableFlag).
		S3Bucket("share", shareBucketFlag).
		Feature("lambda", lambdaFlag).
		Feature("sharing", share != nil).
		Config("tenant", tenantFlag)
	if ssmClient != nil && os.Getenv(auth.AnonKeyEnvVar) == "" {
		startup.SSMParam("anonKey", logging.EnvOrDefault(auth.AnonKeyParamEnvVar, auth.DefaultAnonKeyParam))
	}
	startup.Log()

	if lambdaFlag {
		adapter := httpadapter.NewV2(srv.Handler())
		lambda.Start(adapter.ProxyWithContext)
		return nil
	}

	httpSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", portFlag),
		Handler:      srv.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpSrv.Shutdown(ctx)
	}()

	log.Info().Int("port", portFlag).Msg("Starting web server")
	fmt.Printf("\n  Curator UI: http://localhost:%d\n\n", portFlag)

	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
