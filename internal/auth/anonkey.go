package auth

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"
)

const (
	// AnonKeyEnvVar holds the provider's public anon key.
	AnonKeyEnvVar = "CURATOR_AUTH_ANON_KEY"
	// AnonKeyParamEnvVar overrides the SSM parameter name.
	AnonKeyParamEnvVar = "CURATOR_SSM_ANON_KEY_PARAM"
	// DefaultAnonKeyParam is the SSM parameter read in Lambda mode.
	DefaultAnonKeyParam = "/photo-curator/prod/auth-anon-key"
)

// ParameterGetter is the SSM call used to resolve the anon key.
type ParameterGetter interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// ResolveAnonKey returns the anon key from the environment, falling back to
// SSM Parameter Store when params is non-nil.
func ResolveAnonKey(ctx context.Context, params ParameterGetter) (string, error) {
	if key := os.Getenv(AnonKeyEnvVar); key != "" {
		log.Debug().Msg("Using auth anon key from environment variable")
		return key, nil
	}
	if params == nil {
		return "", fmt.Errorf("auth anon key not found: set %s", AnonKeyEnvVar)
	}

	name := os.Getenv(AnonKeyParamEnvVar)
	if name == "" {
		name = DefaultAnonKeyParam
	}
	start := time.Now()
	out, err := params.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("read anon key from SSM %s: %w", name, err)
	}
	if out.Parameter == nil || aws.ToString(out.Parameter.Value) == "" {
		return "", fmt.Errorf("SSM parameter %s is empty", name)
	}
	log.Debug().Str("param", name).Dur("elapsed", time.Since(start)).Msg("Auth anon key loaded from SSM")
	return aws.ToString(out.Parameter.Value), nil
}
