// Package lambdaboot provides shared Lambda cold-start bootstrap logic.
//
// Every Lambda in the project needs some subset of: AWS config, S3, DynamoDB,
// SSM parameter fetch, and startup logging. This package extracts the common
// init patterns so each Lambda's init() is a short composition of helpers.
package lambdaboot

import (
	"context"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"

	"github.com/jtallis/sceneforge/internal/logging"
	"github.com/jtallis/sceneforge/internal/runner"
	"github.com/jtallis/sceneforge/internal/store"
)

// AWSClients holds the core AWS SDK clients used across Lambdas.
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

// InitAWS loads the default AWS config and returns it along with common clients.
func InitAWS() AWSClients {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load AWS config")
	}
	log.Debug().Str("region", cfg.Region).Msg("AWS config loaded")
	return AWSClients{
		Config: cfg,
		SSM:    ssm.NewFromConfig(cfg),
	}
}

// InitS3 creates an S3 client, presigner, and reads the bucket name from the
// given environment variable. Fatals if the env var is empty.
func InitS3(cfg aws.Config, bucketEnvVar string) S3Clients {
	client := s3.NewFromConfig(cfg)
	bucket := os.Getenv(bucketEnvVar)
	if bucket == "" {
		log.Fatal().Str("envVar", bucketEnvVar).Msg("Bucket environment variable is required")
	}
	return S3Clients{
		Client:    client,
		Presigner: s3.NewPresignClient(client),
		Bucket:    bucket,
	}
}

// InitDynamo creates a DynamoDB project store from the given config and
// table name environment variable. Fatals if the env var is empty.
func InitDynamo(cfg aws.Config, tableEnvVar string) *store.DynamoStore {
	tableName := os.Getenv(tableEnvVar)
	if tableName == "" {
		log.Fatal().Str("envVar", tableEnvVar).Msg("DynamoDB table environment variable is required")
	}
	ddbClient := dynamodb.NewFromConfig(cfg)
	return store.NewDynamoStore(ddbClient, tableName)
}

// InitDynamoOptional creates a DynamoDB project store if the env var is set.
// Returns nil (with a warning) if not configured.
func InitDynamoOptional(cfg aws.Config, tableEnvVar string) *store.DynamoStore {
	tableName := os.Getenv(tableEnvVar)
	if tableName == "" {
		log.Warn().Str("envVar", tableEnvVar).Msg("DynamoDB table not set — store disabled")
		return nil
	}
	ddbClient := dynamodb.NewFromConfig(cfg)
	return store.NewDynamoStore(ddbClient, tableName)
}

// LoadGeminiKey fetches the Gemini API key from SSM Parameter Store if not
// already set via GEMINI_API_KEY env var. Fatals on error.
func LoadGeminiKey(ssmClient *ssm.Client) {
	if os.Getenv("GEMINI_API_KEY") != "" {
		return
	}
	paramName := os.Getenv("SSM_API_KEY_PARAM")
	if paramName == "" {
		paramName = "/sceneforge/prod/gemini-api-key"
	}
	ssmStart := time.Now()
	result, err := ssmClient.GetParameter(context.Background(), &ssm.GetParameterInput{
		Name:           &paramName,
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		log.Fatal().Err(err).Str("param", paramName).Msg("Failed to read API key from SSM")
	}
	os.Setenv("GEMINI_API_KEY", *result.Parameter.Value)
	log.Debug().Str("param", paramName).Dur("elapsed", time.Since(ssmStart)).Msg("Gemini API key loaded from SSM")
}

// LoadRunnerCreds fetches the workflow runner endpoint and API token from the
// environment, falling back to SSM Parameter Store. Returns a runner client if
// an endpoint is available, nil otherwise. Non-fatal: logs a warning if the
// endpoint is missing so read-only paths keep working.
func LoadRunnerCreds(ssmClient *ssm.Client) *runner.Client {
	endpoint := os.Getenv("SCENEFORGE_RUNNER_URL")
	token := os.Getenv("SCENEFORGE_RUNNER_TOKEN")

	if endpoint == "" {
		urlParam := os.Getenv("SSM_RUNNER_URL_PARAM")
		if urlParam == "" {
			urlParam = "/sceneforge/prod/runner-url"
		}
		ssmStart := time.Now()
		urlResult, err := ssmClient.GetParameter(context.Background(), &ssm.GetParameterInput{
			Name:           &urlParam,
			WithDecryption: aws.Bool(false),
		})
		if err == nil {
			endpoint = *urlResult.Parameter.Value
			log.Debug().Str("param", urlParam).Dur("elapsed", time.Since(ssmStart)).Msg("Runner endpoint loaded from SSM")
		} else {
			log.Warn().Err(err).Str("param", urlParam).Msg("Runner endpoint not found in SSM — generation disabled")
		}
	}

	if token == "" {
		tokenParam := os.Getenv("SSM_RUNNER_TOKEN_PARAM")
		if tokenParam == "" {
			tokenParam = "/sceneforge/prod/runner-token"
		}
		ssmStart := time.Now()
		tokenResult, err := ssmClient.GetParameter(context.Background(), &ssm.GetParameterInput{
			Name:           &tokenParam,
			WithDecryption: aws.Bool(true),
		})
		if err == nil {
			token = *tokenResult.Parameter.Value
			log.Debug().Str("param", tokenParam).Dur("elapsed", time.Since(ssmStart)).Msg("Runner token loaded from SSM")
		} else {
			log.Warn().Err(err).Str("param", tokenParam).Msg("Runner token not found in SSM — continuing unauthenticated")
		}
	}

	if endpoint != "" {
		client := runner.NewClient(endpoint, token)
		log.Info().Str("endpoint", endpoint).Msg("Workflow runner client initialized")
		return client
	}
	log.Warn().Msg("Workflow runner not configured — generation disabled")
	return nil
}

// StartupLog is a convenience wrapper for the startup logger.
func StartupLog(name string, initStart time.Time) *logging.StartupLogger {
	return logging.NewStartupLogger(name).InitDuration(time.Since(initStart))
}
