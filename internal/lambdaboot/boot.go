// Package lambdaboot holds the AWS bootstrap shared by the curator's server
// modes: AWS config, the S3 share bucket, the DynamoDB preset table, the auth
// anon key from SSM, and startup logging.
package lambdaboot

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"

	"github.com/fpang/photo-curator/internal/auth"
	"github.com/fpang/photo-curator/internal/logging"
	"github.com/fpang/photo-curator/internal/store"
)

// AWSClients holds the AWS config and the SSM client.
type AWSClients struct {
	Config aws.Config
	SSM    *ssm.Client
}

// S3Clients holds S3 client, presigner, and bucket name.
type S3Clients struct {
	Client    *s3.Client
	Presigner *s3.PresignClient
	Bucket    string
}

// InitAWS loads the default AWS config.
func InitAWS(ctx context.Context) (AWSClients, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return AWSClients{}, fmt.Errorf("load AWS config: %w", err)
	}
	log.Debug().Str("region", cfg.Region).Msg("AWS config loaded")
	return AWSClients{
		Config: cfg,
		SSM:    ssm.NewFromConfig(cfg),
	}, nil
}

// InitS3 creates the S3 clients for bucket. An empty bucket returns nil:
// sharing is disabled.
func InitS3(cfg aws.Config, bucket string) *S3Clients {
	if bucket == "" {
		log.Warn().Msg("Share bucket not set; list sharing disabled")
		return nil
	}
	client := s3.NewFromConfig(cfg)
	return &S3Clients{
		Client:    client,
		Presigner: s3.NewPresignClient(client),
		Bucket:    bucket,
	}
}

// InitPresets returns the DynamoDB preset store for table, or an in-memory
// store when no table is configured.
func InitPresets(cfg *aws.Config, table string) store.PresetStore {
	if table == "" || cfg == nil {
		log.Warn().Msg("Presets table not set; saved searches are kept in memory")
		return store.NewMemoryStore()
	}
	return store.NewDynamoStore(dynamodb.NewFromConfig(*cfg), table)
}

// LoadAnonKey resolves the auth provider's anon key from the environment,
// then from SSM when ssmClient is non-nil.
func LoadAnonKey(ctx context.Context, ssmClient *ssm.Client) (string, error) {
	var params auth.ParameterGetter
	if ssmClient != nil {
		params = ssmClient
	}
	return auth.ResolveAnonKey(ctx, params)
}

// StartupLog is a convenience wrapper for the startup logger.
func StartupLog(name string, initStart time.Time) *logging.StartupLogger {
	return logging.NewStartupLogger(name).InitDuration(time.Since(initStart))
}
